// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package securemail

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"sync"
	"testing"
	"time"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
	testKeyErr  error
)

// certOptions describes a test certificate. The zero value is a valid secure email
// certificate with key encipherment.
type certOptions struct {
	commonName  string
	keyUsage    x509.KeyUsage
	extKeyUsage []x509.ExtKeyUsage
	notBefore   time.Time
	notAfter    time.Time
}

// testPrivateKey returns the RSA key shared by all test certificates
func testPrivateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	testKeyOnce.Do(func() {
		testKey, testKeyErr = rsa.GenerateKey(rand.Reader, 2048)
	})
	if testKeyErr != nil {
		t.Fatalf("failed to generate test key: %s", testKeyErr)
	}
	return testKey
}

// testCertificate creates a self-signed test certificate for the shared test key
func testCertificate(t *testing.T, opts certOptions) *x509.Certificate {
	t.Helper()
	key := testPrivateKey(t)
	if opts.commonName == "" {
		opts.commonName = "Jon Snow"
	}
	if opts.keyUsage == 0 && opts.extKeyUsage == nil {
		opts.keyUsage = x509.KeyUsageKeyEncipherment
		opts.extKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageEmailProtection}
	}
	if opts.notBefore.IsZero() {
		opts.notBefore = time.Now().Add(-time.Hour)
	}
	if opts.notAfter.IsZero() {
		opts.notAfter = time.Now().AddDate(1, 0, 0)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		t.Fatalf("failed to generate serial number: %s", err)
	}
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   opts.commonName,
			Organization: []string{"Acme Co"},
		},
		NotBefore:   opts.notBefore,
		NotAfter:    opts.notAfter,
		KeyUsage:    opts.keyUsage,
		ExtKeyUsage: opts.extKeyUsage,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, key.Public(), key)
	if err != nil {
		t.Fatalf("failed to create test certificate: %s", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("failed to parse test certificate: %s", err)
	}
	return cert
}

// testSettings returns valid Settings for tests
func testSettings() Settings {
	settings := DefaultSettings()
	settings.FromAddress = "noreply@example.com"
	settings.MailServer = "127.0.0.1"
	settings.Subject = "Default subject"
	settings.Body = "Default body"
	return settings
}
