// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package securemail

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func certificatePEM(cert *x509.Certificate) string {
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}))
}

func TestLoadDirectoryFile(t *testing.T) {
	inline := testCertificate(t, certOptions{commonName: "inline"})
	fromFile := testCertificate(t, certOptions{commonName: "from-file"})
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "arya.pem"), []byte(certificatePEM(fromFile)), 0o600); err != nil {
		t.Fatalf("failed to write certificate file: %s", err)
	}
	indented := "        " + strings.ReplaceAll(strings.TrimSpace(certificatePEM(inline)), "\n", "\n        ")
	content := "users:\n" +
		"  - email: jon@example.com\n" +
		"    display_name: Jon Snow\n" +
		"    sam_account_name: jsnow\n" +
		"    distinguished_name: CN=Jon Snow,OU=Night Watch,DC=example,DC=com\n" +
		"    certificates:\n" +
		"      - |\n" + indented + "\n" +
		"  - email: arya@example.com\n" +
		"    certificates:\n" +
		"      - arya.pem\n"
	path := filepath.Join(dir, "users.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write directory file: %s", err)
	}

	directory, err := LoadDirectoryFile(path)
	if err != nil {
		t.Fatalf("failed to load directory file: %s", err)
	}
	tests := []struct {
		name  string
		query UserQuery
		email string
		cert  *x509.Certificate
	}{
		{"by email", UserQuery{IdentifierType: "email", ID: "JON@example.com"}, "jon@example.com", inline},
		{"by mail alias", UserQuery{IdentifierType: "mail", ID: "arya@example.com"}, "arya@example.com", fromFile},
		{"by account name", UserQuery{IdentifierType: "sAMAccountName", ID: "jsnow"}, "jon@example.com", inline},
		{
			"by distinguished name",
			UserQuery{IdentifierType: "dn", ID: "CN=Jon Snow,OU=Night Watch,DC=example,DC=com"},
			"jon@example.com", inline,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := directory.LookupUser(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("failed to look up user: %s", err)
			}
			identity := user.RecipientIdentity()
			if identity.EmailAddress != tt.email {
				t.Errorf("expected email %s, got: %s", tt.email, identity.EmailAddress)
			}
			if len(identity.Certificates) != 1 || !identity.Certificates[0].Equal(tt.cert) {
				t.Errorf("expected certificate %q", tt.cert.Subject.CommonName)
			}
		})
	}
}

func TestStaticDirectory_LookupErrors(t *testing.T) {
	directory := NewStaticDirectory(&User{Email: "jon@example.com"})
	if _, err := directory.LookupUser(context.Background(), UserQuery{IdentifierType: "email", ID: "x@example.com"}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got: %v", err)
	}
	if _, err := directory.LookupUser(context.Background(), UserQuery{IdentifierType: "phone", ID: "1"}); !errors.Is(err, ErrUnsupportedIdentifier) {
		t.Errorf("expected ErrUnsupportedIdentifier, got: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := directory.LookupUser(ctx, UserQuery{IdentifierType: "email", ID: "jon@example.com"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
}

func TestLoadDirectoryFile_Errors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write file: %s", err)
		}
		return path
	}
	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "missing.yaml")},
		{"invalid YAML", write("invalid.yaml", "users: [")},
		{"missing certificate file", write("missing-cert.yaml", "users:\n  - email: a@example.com\n    certificates: [nope.pem]\n")},
		{"no certificate in PEM", write("empty-pem.yaml", "users:\n  - email: a@example.com\n    certificates: [empty.pem]\n")},
	}
	write("empty.pem", "")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadDirectoryFile(tt.path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseCertificatesPEM(t *testing.T) {
	first := testCertificate(t, certOptions{commonName: "first"})
	second := testCertificate(t, certOptions{commonName: "second"})
	data := certificatePEM(first) +
		string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte{0x01}})) +
		certificatePEM(second)
	certs, err := ParseCertificatesPEM([]byte(data))
	if err != nil {
		t.Fatalf("failed to parse certificates: %s", err)
	}
	if len(certs) != 2 || !certs[0].Equal(first) || !certs[1].Equal(second) {
		t.Errorf("expected both certificates in order, got %d certificates", len(certs))
	}
	broken := string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{0x30, 0x00}}))
	if _, err = ParseCertificatesPEM([]byte(broken)); err == nil {
		t.Error("expected error for malformed certificate")
	}
}
