// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package securemail

import (
	"errors"
	"fmt"
	"strings"
)

// SMTPAuthType represents a string to any SMTP AUTH type
type SMTPAuthType string

// Supported SMTP AUTH types
const (
	// SMTPAuthLogin is the "LOGIN" SASL authentication mechanism as used by Microsoft Exchange
	SMTPAuthLogin SMTPAuthType = "LOGIN"

	// SMTPAuthNoAuth disables SMTP authentication
	SMTPAuthNoAuth SMTPAuthType = ""

	// SMTPAuthNTLM is the NTLMv2 authentication mechanism
	SMTPAuthNTLM SMTPAuthType = "NTLM"

	// SMTPAuthPlain is the "PLAIN" authentication mechanism as described in RFC 4616
	SMTPAuthPlain SMTPAuthType = "PLAIN"

	// SMTPAuthXOAUTH2 is the "XOAUTH2" mechanism with an OAuth 2.0 bearer token
	SMTPAuthXOAUTH2 SMTPAuthType = "XOAUTH2"

	// SMTPAuthSCRAMSHA1 is the "SCRAM-SHA-1" SASL mechanism as described in RFC 5802
	SMTPAuthSCRAMSHA1 SMTPAuthType = "SCRAM-SHA-1"

	// SMTPAuthSCRAMSHA1PLUS is the "SCRAM-SHA-1-PLUS" mechanism with channel binding
	SMTPAuthSCRAMSHA1PLUS SMTPAuthType = "SCRAM-SHA-1-PLUS"

	// SMTPAuthSCRAMSHA256 is the "SCRAM-SHA-256" SASL mechanism as described in RFC 7677
	SMTPAuthSCRAMSHA256 SMTPAuthType = "SCRAM-SHA-256"

	// SMTPAuthSCRAMSHA256PLUS is the "SCRAM-SHA-256-PLUS" mechanism with channel binding
	SMTPAuthSCRAMSHA256PLUS SMTPAuthType = "SCRAM-SHA-256-PLUS"
)

var (
	// ErrSMTPAuthNotSupported is returned if the server does not offer SMTP AUTH at all
	ErrSMTPAuthNotSupported = errors.New("server does not support SMTP AUTH")

	// ErrSMTPAuthTypeNotSupported is returned if the server does not offer the configured
	// SMTPAuthType
	ErrSMTPAuthTypeNotSupported = errors.New("server does not support SMTP AUTH type")

	// ErrNoTokenSource is returned if XOAUTH2 is configured without a TokenSource
	ErrNoTokenSource = errors.New("XOAUTH2 requires a token source")
)

// ParseSMTPAuthType parses the configuration value of a SMTPAuthType. Values are compared
// case-insensitively; "none" and the empty string disable authentication.
func ParseSMTPAuthType(value string) (SMTPAuthType, error) {
	value = strings.ToUpper(strings.TrimSpace(value))
	if value == "NONE" {
		return SMTPAuthNoAuth, nil
	}
	authType := SMTPAuthType(value)
	switch authType {
	case SMTPAuthNoAuth, SMTPAuthLogin, SMTPAuthNTLM, SMTPAuthPlain, SMTPAuthXOAUTH2, SMTPAuthSCRAMSHA1,
		SMTPAuthSCRAMSHA1PLUS, SMTPAuthSCRAMSHA256, SMTPAuthSCRAMSHA256PLUS:
		return authType, nil
	default:
		return SMTPAuthNoAuth, fmt.Errorf("unknown SMTP AUTH type %q", value)
	}
}

// supportedBy reports whether the mechanism is in the AUTH extension parameters of the server
func (a SMTPAuthType) supportedBy(mechanisms string) bool {
	for _, mechanism := range strings.Fields(mechanisms) {
		if strings.EqualFold(mechanism, string(a)) {
			return true
		}
	}
	return false
}
