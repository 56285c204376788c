// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package securemail

import (
	"errors"
	"strings"
	"testing"
)

func TestDefaultSettings(t *testing.T) {
	settings := DefaultSettings()
	if settings.MailPort != DefaultPort {
		t.Errorf("expected default port %d, got: %d", DefaultPort, settings.MailPort)
	}
	if settings.SecureEmailOID != "1.3.6.1.5.5.7.3.4" {
		t.Errorf("expected id-kp-emailProtection OID, got: %s", settings.SecureEmailOID)
	}
	if settings.EncryptionAlgorithmOID != "2.16.840.1.101.3.4.1.42" {
		t.Errorf("expected AES-256-CBC OID, got: %s", settings.EncryptionAlgorithmOID)
	}
	if err := settings.Validate(); !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("expected default settings without sender to be invalid, got: %v", err)
	}
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Settings)
		wantErr string
	}{
		{"valid", func(*Settings) {}, ""},
		{"no mail server", func(s *Settings) { s.MailServer = ""; s.MailPort = 0 }, ""},
		{"invalid sender", func(s *Settings) { s.FromAddress = "noreply" }, "from address"},
		{"port out of range", func(s *Settings) { s.MailPort = 70000 }, "mail port 70000"},
		{"malformed secure email OID", func(s *Settings) { s.SecureEmailOID = "email" }, "secure email OID"},
		{"malformed algorithm OID", func(s *Settings) { s.EncryptionAlgorithmOID = "" }, "encryption algorithm OID"},
		{
			"unsupported algorithm", func(s *Settings) { s.EncryptionAlgorithmOID = "1.2.840.113549.3.2" },
			"is not supported",
		},
		{
			"AES-GCM algorithm", func(s *Settings) { s.EncryptionAlgorithmOID = "2.16.840.1.101.3.4.1.46" },
			"is not supported",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := testSettings()
			tt.modify(&settings)
			err := settings.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected valid settings, got: %s", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidSettings) {
				t.Fatalf("expected ErrInvalidSettings, got: %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error to contain %q, got: %s", tt.wantErr, err)
			}
		})
	}
	t.Run("all problems are reported", func(t *testing.T) {
		settings := Settings{FromAddress: "invalid", SecureEmailOID: "x", EncryptionAlgorithmOID: "y"}
		err := settings.Validate()
		for _, want := range []string{"from address", "secure email OID", "encryption algorithm OID"} {
			if err == nil || !strings.Contains(err.Error(), want) {
				t.Errorf("expected error to contain %q, got: %v", want, err)
			}
		}
	})
}

func TestParseTLSPolicy(t *testing.T) {
	tests := []struct {
		value   string
		want    TLSPolicy
		wantErr bool
	}{
		{"mandatory", TLSMandatory, false},
		{"", TLSMandatory, false},
		{"TLSMandatory", TLSMandatory, false},
		{" Opportunistic ", TLSOpportunistic, false},
		{"none", NoTLS, false},
		{"NoTLS", NoTLS, false},
		{"sometimes", TLSMandatory, true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := ParseTLSPolicy(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got: %s", tt.want, got)
			}
		})
	}
	if TLSPolicy(42).String() != "UnknownPolicy" {
		t.Errorf("expected UnknownPolicy, got: %s", TLSPolicy(42).String())
	}
}

func TestParseSMTPAuthType(t *testing.T) {
	tests := []struct {
		value   string
		want    SMTPAuthType
		wantErr bool
	}{
		{"none", SMTPAuthNoAuth, false},
		{"", SMTPAuthNoAuth, false},
		{"plain", SMTPAuthPlain, false},
		{"LOGIN", SMTPAuthLogin, false},
		{"xoauth2", SMTPAuthXOAUTH2, false},
		{"ntlm", SMTPAuthNTLM, false},
		{"scram-sha-256-plus", SMTPAuthSCRAMSHA256PLUS, false},
		{"cram-md5", SMTPAuthNoAuth, true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := ParseSMTPAuthType(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got: %q", tt.want, got)
			}
		})
	}
	if !SMTPAuthPlain.supportedBy("LOGIN plain XOAUTH2") {
		t.Error("expected PLAIN to be supported case-insensitively")
	}
	if SMTPAuthSCRAMSHA1.supportedBy("SCRAM-SHA-1-PLUS") {
		t.Error("expected SCRAM-SHA-1 not to match SCRAM-SHA-1-PLUS")
	}
}
