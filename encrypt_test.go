// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package securemail

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/wneessen/go-securemail/internal/pkcs7"
)

func TestEncryptEnvelope_RoundTrip(t *testing.T) {
	cert := testCertificate(t, certOptions{})
	algorithms := []struct {
		name string
		oid  string
	}{
		{"AES-256-CBC", DefaultEncryptionAlgorithmOID},
		{"AES-128-CBC", "2.16.840.1.101.3.4.1.2"},
		{"AES-192-CBC", "2.16.840.1.101.3.4.1.22"},
		{"DES-EDE3-CBC", "1.2.840.113549.3.7"},
	}
	body := BuildEnvelopeBody("<p>Your documents are ready.</p>")
	for _, alg := range algorithms {
		t.Run(alg.name, func(t *testing.T) {
			envelope, err := EncryptEnvelope(body, cert, alg.oid)
			if err != nil {
				t.Fatalf("failed to encrypt envelope: %s", err)
			}
			if envelope.ContentType != TypeSMIMEEnveloped {
				t.Errorf("expected content type %q, got: %q", TypeSMIMEEnveloped, envelope.ContentType)
			}
			parsed, err := pkcs7.Parse(envelope.Data)
			if err != nil {
				t.Fatalf("failed to parse envelope: %s", err)
			}
			if got := parsed.ContentEncryptionAlgorithm().String(); got != alg.oid {
				t.Errorf("expected content encryption algorithm %s, got: %s", alg.oid, got)
			}
			recipients := parsed.Recipients()
			if len(recipients) != 1 || !recipients[0].Matches(cert) {
				t.Errorf("expected a single recipient addressed by the issuer and serial of the certificate")
			}
			plain, err := DecryptEnvelope(envelope.Data, cert, testPrivateKey(t))
			if err != nil {
				t.Fatalf("failed to decrypt envelope: %s", err)
			}
			if !bytes.Equal(plain, []byte(body)) {
				t.Errorf("round trip mismatch, expected: %q, got: %q", body, plain)
			}
		})
	}
}

// TestEncryptEnvelope_OpenSSLDecrypt has the openssl command decrypt the envelope. It is
// skipped if openssl is not installed.
func TestEncryptEnvelope_OpenSSLDecrypt(t *testing.T) {
	opensslPath, err := exec.LookPath("openssl")
	if err != nil {
		t.Skipf("openssl command not found. Skipping")
	}
	cert := testCertificate(t, certOptions{})
	keyDER, err := x509.MarshalPKCS8PrivateKey(testPrivateKey(t))
	if err != nil {
		t.Fatalf("failed to marshal private key: %s", err)
	}
	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")
	if err = os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}),
		0o600); err != nil {
		t.Fatalf("failed to write certificate: %s", err)
	}
	if err = os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}),
		0o600); err != nil {
		t.Fatalf("failed to write private key: %s", err)
	}

	body := BuildEnvelopeBody("<p>hello</p>")
	for _, oid := range []string{DefaultEncryptionAlgorithmOID, "2.16.840.1.101.3.4.1.2", "1.2.840.113549.3.7"} {
		t.Run(oid, func(t *testing.T) {
			envelope, err := EncryptEnvelope(body, cert, oid)
			if err != nil {
				t.Fatalf("failed to encrypt envelope: %s", err)
			}
			path := filepath.Join(dir, oid+".der")
			if err = os.WriteFile(path, envelope.Data, 0o600); err != nil {
				t.Fatalf("failed to write envelope: %s", err)
			}
			cmd := exec.Command(opensslPath, "cms", "-decrypt", "-binary", "-inform", "DER", "-in", path,
				"-recip", certPath, "-inkey", keyPath)
			var stderr bytes.Buffer
			cmd.Stderr = &stderr
			plain, err := cmd.Output()
			if err != nil {
				t.Fatalf("openssl failed to decrypt envelope: %s: %s", err, stderr.String())
			}
			if string(plain) != body {
				t.Errorf("openssl decrypted content mismatch, expected: %q, got: %q", body, plain)
			}
		})
	}
}

func TestEncryptEnvelope_ASCIIReplacement(t *testing.T) {
	cert := testCertificate(t, certOptions{})
	envelope, err := EncryptEnvelope("Grüße, 世界!", cert, DefaultEncryptionAlgorithmOID)
	if err != nil {
		t.Fatalf("failed to encrypt envelope: %s", err)
	}
	plain, err := DecryptEnvelope(envelope.Data, cert, testPrivateKey(t))
	if err != nil {
		t.Fatalf("failed to decrypt envelope: %s", err)
	}
	if string(plain) != "Gr??e, ??!" {
		t.Errorf("expected non-ASCII runes to be replaced, got: %q", plain)
	}
}

func TestEncryptEnvelope_Failures(t *testing.T) {
	valid := testCertificate(t, certOptions{})
	expired := testCertificate(t, certOptions{
		notBefore: time.Now().AddDate(-2, 0, 0),
		notAfter:  time.Now().AddDate(-1, 0, 0),
	})
	notYetValid := testCertificate(t, certOptions{
		notBefore: time.Now().Add(24 * time.Hour),
		notAfter:  time.Now().AddDate(1, 0, 0),
	})
	tests := []struct {
		name string
		cert *x509.Certificate
		oid  string
	}{
		{"nil certificate", nil, DefaultEncryptionAlgorithmOID},
		{"expired certificate", expired, DefaultEncryptionAlgorithmOID},
		{"not yet valid certificate", notYetValid, DefaultEncryptionAlgorithmOID},
		{"unsupported algorithm", valid, "1.2.840.113549.3.2"},
		{"AES-128-GCM", valid, "2.16.840.1.101.3.4.1.6"},
		{"AES-256-GCM", valid, "2.16.840.1.101.3.4.1.46"},
		{"malformed algorithm OID", valid, "aes-256"},
		{"empty algorithm OID", valid, ""},
		{"non-RSA certificate", ecdsaCertificate(t), DefaultEncryptionAlgorithmOID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envelope, err := EncryptEnvelope("<p>secret</p>", tt.cert, tt.oid)
			if !errors.Is(err, ErrEnvelopeEncryptionFailed) {
				t.Errorf("expected ErrEnvelopeEncryptionFailed, got: %v", err)
			}
			if envelope != nil {
				t.Error("expected no envelope on failure")
			}
		})
	}
}

func TestDecryptEnvelope_WrongCertificate(t *testing.T) {
	cert := testCertificate(t, certOptions{commonName: "recipient"})
	other := testCertificate(t, certOptions{commonName: "other"})
	envelope, err := EncryptEnvelope("<p>secret</p>", cert, DefaultEncryptionAlgorithmOID)
	if err != nil {
		t.Fatalf("failed to encrypt envelope: %s", err)
	}
	if _, err = DecryptEnvelope(envelope.Data, other, testPrivateKey(t)); !errors.Is(err, pkcs7.ErrNoMatchingRecipient) {
		t.Errorf("expected ErrNoMatchingRecipient, got: %v", err)
	}
	if _, err = DecryptEnvelope([]byte("not DER"), cert, testPrivateKey(t)); err == nil {
		t.Error("expected error for malformed envelope")
	}
	if _, err = DecryptEnvelope(envelope.Data, nil, testPrivateKey(t)); err == nil {
		t.Error("expected error for nil certificate")
	}
}

// ecdsaCertificate returns a secure email certificate with an ECDSA key, which cannot be used
// for RSA key transport
func ecdsaCertificate(t *testing.T) *x509.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate ECDSA key: %s", err)
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(4711),
		Subject:      pkix.Name{CommonName: "ecdsa"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().AddDate(1, 0, 0),
		KeyUsage:     x509.KeyUsageKeyAgreement,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageEmailProtection},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, key.Public(), key)
	if err != nil {
		t.Fatalf("failed to create ECDSA certificate: %s", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("failed to parse ECDSA certificate: %s", err)
	}
	return cert
}
