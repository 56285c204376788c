// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package securemail

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// List of supported UserQuery identifier types
const (
	IdentifierEmail             = "email"
	IdentifierSAMAccountName    = "samaccountname"
	IdentifierDistinguishedName = "distinguishedname"
)

var (
	// ErrUserNotFound is returned by a Directory if no user matches the UserQuery
	ErrUserNotFound = errors.New("directory user not found")

	// ErrUnsupportedIdentifier is returned by a Directory if the UserQuery identifier type is unknown
	ErrUnsupportedIdentifier = errors.New("unsupported directory identifier type")
)

// UserQuery identifies a directory user by an identifier type (e.g. "email") and its value
type UserQuery struct {
	IdentifierType string
	ID             string
}

// User is a directory user as returned by a Directory lookup
type User struct {
	FirstName         string
	LastName          string
	DisplayName       string
	Description       string
	Email             string
	SAMAccountName    string
	DistinguishedName string
	Domain            string
	Certificates      []*x509.Certificate
}

// Directory resolves users and their certificates. Implementations are typically backed by an
// LDAP-based organizational directory.
type Directory interface {
	LookupUser(ctx context.Context, query UserQuery) (*User, error)
}

// RecipientIdentity converts the User into the RecipientIdentity used for message assembly.
func (u *User) RecipientIdentity() RecipientIdentity {
	return RecipientIdentity{EmailAddress: u.Email, Certificates: u.Certificates}
}

// StaticDirectory is a Directory backed by an in-memory list of users. It is safe for concurrent
// lookups as long as it is not modified.
type StaticDirectory struct {
	users []*User
}

// staticDirectoryFile is the YAML representation of a StaticDirectory
type staticDirectoryFile struct {
	Users []staticDirectoryUser `yaml:"users"`
}

type staticDirectoryUser struct {
	FirstName         string   `yaml:"first_name"`
	LastName          string   `yaml:"last_name"`
	DisplayName       string   `yaml:"display_name"`
	Description       string   `yaml:"description"`
	Email             string   `yaml:"email"`
	SAMAccountName    string   `yaml:"sam_account_name"`
	DistinguishedName string   `yaml:"distinguished_name"`
	Domain            string   `yaml:"domain"`
	Certificates      []string `yaml:"certificates"`
}

// NewStaticDirectory returns a StaticDirectory holding the given users
func NewStaticDirectory(users ...*User) *StaticDirectory {
	return &StaticDirectory{users: users}
}

// LoadDirectoryFile reads a StaticDirectory from a YAML file.
//
// Every user entry lists its certificates either as inline PEM blocks or as paths to PEM files.
// Relative paths are resolved against the directory of the YAML file.
func LoadDirectoryFile(path string) (*StaticDirectory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory file: %w", err)
	}
	var file staticDirectoryFile
	if err = yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse directory file: %w", err)
	}

	baseDir := filepath.Dir(path)
	users := make([]*User, 0, len(file.Users))
	for _, entry := range file.Users {
		user := &User{
			FirstName:         entry.FirstName,
			LastName:          entry.LastName,
			DisplayName:       entry.DisplayName,
			Description:       entry.Description,
			Email:             entry.Email,
			SAMAccountName:    entry.SAMAccountName,
			DistinguishedName: entry.DistinguishedName,
			Domain:            entry.Domain,
		}
		for _, certEntry := range entry.Certificates {
			certs, err := loadCertificates(certEntry, baseDir)
			if err != nil {
				return nil, fmt.Errorf("failed to load certificates of %q: %w", entry.Email, err)
			}
			user.Certificates = append(user.Certificates, certs...)
		}
		users = append(users, user)
	}
	return NewStaticDirectory(users...), nil
}

// LookupUser returns the first user matching the query. Identifier types and values are
// compared case-insensitively.
func (d *StaticDirectory) LookupUser(ctx context.Context, query UserQuery) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var field func(*User) string
	switch strings.ToLower(query.IdentifierType) {
	case IdentifierEmail, "mail":
		field = func(u *User) string { return u.Email }
	case IdentifierSAMAccountName:
		field = func(u *User) string { return u.SAMAccountName }
	case IdentifierDistinguishedName, "dn":
		field = func(u *User) string { return u.DistinguishedName }
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedIdentifier, query.IdentifierType)
	}
	for _, user := range d.users {
		if strings.EqualFold(field(user), query.ID) {
			return user, nil
		}
	}
	return nil, fmt.Errorf("%w: %s=%s", ErrUserNotFound, query.IdentifierType, query.ID)
}

// loadCertificates parses the PEM certificates of entry, which is either inline PEM data or a
// path to a PEM file
func loadCertificates(entry, baseDir string) ([]*x509.Certificate, error) {
	data := []byte(entry)
	if !strings.Contains(entry, "-----BEGIN") {
		path := entry
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("failed to read certificate file: %w", err)
		}
	}
	return ParseCertificatesPEM(data)
}

// ParseCertificatesPEM parses all CERTIFICATE blocks of the PEM data in order. Other block
// types are skipped.
func ParseCertificatesPEM(data []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse certificate: %w", err)
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, errors.New("no PEM encoded certificate found")
	}
	return certs, nil
}
