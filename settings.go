// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package securemail

import (
	"errors"
	"fmt"
	"net/mail"

	"github.com/hashicorp/go-multierror"

	"github.com/wneessen/go-securemail/internal/pkcs7"
)

// ErrInvalidSettings is returned by Settings.Validate if the Settings are unusable
var ErrInvalidSettings = errors.New("invalid mail settings")

// Settings holds the immutable configuration of the encrypted mail assembly. It is loaded once
// and only read afterwards, so it can be shared by any number of concurrent callers.
type Settings struct {
	// FromAddress is the sender address of all assembled messages
	FromAddress string `mapstructure:"from_address"`

	// MailServer is the host of the SMTP server the MailService delivers to
	MailServer string `mapstructure:"server"`

	// MailPort is the port of the SMTP server the MailService delivers to
	MailPort int `mapstructure:"port"`

	// SecureEmailOID is the extended key usage OID that designates secure email certificates
	SecureEmailOID string `mapstructure:"secure_email_oid"`

	// EncryptionAlgorithmOID is the OID of the content encryption algorithm of the envelope
	EncryptionAlgorithmOID string `mapstructure:"encryption_algorithm_oid"`

	// Subject is the default subject used by MailService.SendEmail
	Subject string `mapstructure:"subject"`

	// Body is the default body text used by MailService.SendEmail
	Body string `mapstructure:"body"`
}

// DefaultSettings returns Settings with the default OIDs and SMTP port set.
func DefaultSettings() Settings {
	return Settings{
		MailPort:               DefaultPort,
		SecureEmailOID:         DefaultSecureEmailOID,
		EncryptionAlgorithmOID: DefaultEncryptionAlgorithmOID,
	}
}

// Validate checks the Settings for completeness. All problems found are reported at once; the
// returned error matches ErrInvalidSettings.
func (s Settings) Validate() error {
	var result *multierror.Error
	if _, err := mail.ParseAddress(s.FromAddress); err != nil {
		result = multierror.Append(result, fmt.Errorf("from address %q: %w", s.FromAddress, err))
	}
	if s.MailServer != "" && (s.MailPort < 1 || s.MailPort > 65535) {
		result = multierror.Append(result, fmt.Errorf("mail port %d is out of range", s.MailPort))
	}
	if _, err := pkcs7.ParseOID(s.SecureEmailOID); err != nil {
		result = multierror.Append(result, fmt.Errorf("secure email OID: %w", err))
	}
	algorithm, err := pkcs7.ParseOID(s.EncryptionAlgorithmOID)
	switch {
	case err != nil:
		result = multierror.Append(result, fmt.Errorf("encryption algorithm OID: %w", err))
	case !pkcs7.SupportsAlgorithm(algorithm):
		result = multierror.Append(result, fmt.Errorf("encryption algorithm OID %s is not supported",
			s.EncryptionAlgorithmOID))
	}
	if err = result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	return nil
}
