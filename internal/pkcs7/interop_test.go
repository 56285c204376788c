// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package pkcs7

import (
	"bytes"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// The files in testdata were created with OpenSSL 3.0:
//
//	openssl req -x509 -newkey rsa:2048 -nodes -keyout recipient.key -out recipient.pem \
//	    -days 36500 -subj "/O=Acme Co/CN=Jon Snow" -addext keyUsage=keyEncipherment \
//	    -addext extendedKeyUsage=emailProtection
//	openssl cms -encrypt -binary -in content.txt -outform DER -out envelope-<alg>.der -<alg> recipient.pem
var opensslEnvelopes = []struct {
	name string
	file string
	oid  asn1.ObjectIdentifier
}{
	{"AES-256-CBC", "testdata/envelope-aes256.der", OIDEncryptionAlgorithmAES256CBC},
	{"AES-128-CBC", "testdata/envelope-aes128.der", OIDEncryptionAlgorithmAES128CBC},
	{"DES-EDE3-CBC", "testdata/envelope-des3.der", OIDEncryptionAlgorithmDESEDE3CBC},
}

func TestParse_OpenSSLEnvelope(t *testing.T) {
	cert, key := opensslRecipient(t)
	content := readTestdata(t, "testdata/content.txt")
	for _, tt := range opensslEnvelopes {
		t.Run(tt.name, func(t *testing.T) {
			envelope, err := Parse(readTestdata(t, tt.file))
			if err != nil {
				t.Fatalf("failed to parse OpenSSL envelope: %s", err)
			}
			if !envelope.ContentEncryptionAlgorithm().Equal(tt.oid) {
				t.Errorf("expected content encryption algorithm %s, got: %s", tt.oid,
					envelope.ContentEncryptionAlgorithm())
			}
			recipients := envelope.Recipients()
			if len(recipients) != 1 || !recipients[0].Matches(cert) {
				t.Error("expected the OpenSSL recipient to match the certificate")
			}
			plaintext, err := envelope.Decrypt(cert, key)
			if err != nil {
				t.Fatalf("failed to decrypt OpenSSL envelope: %s", err)
			}
			if !bytes.Equal(plaintext, content) {
				t.Errorf("decrypted content mismatch, expected: %q, got: %q", content, plaintext)
			}
		})
	}
}

func TestEncrypt_MatchesOpenSSLStructure(t *testing.T) {
	cert, _ := opensslRecipient(t)
	content := readTestdata(t, "testdata/content.txt")
	for _, tt := range opensslEnvelopes {
		t.Run(tt.name, func(t *testing.T) {
			der, err := Encrypt(content, cert, tt.oid)
			if err != nil {
				t.Fatalf("failed to encrypt content: %s", err)
			}
			want := derStructure(t, readTestdata(t, tt.file))
			got := derStructure(t, der)
			if len(got) != len(want) {
				t.Fatalf("expected %d DER elements like OpenSSL, got %d:\n%v\n%v", len(want), len(got), want, got)
			}
			for i := range want {
				if got[i] != want[i] {
					t.Errorf("DER element %d differs from OpenSSL, expected: %s, got: %s", i, want[i], got[i])
				}
			}
		})
	}
}

// TestEncrypt_OpenSSLDecrypt has the openssl command decrypt our output. It is skipped if
// openssl is not installed.
func TestEncrypt_OpenSSLDecrypt(t *testing.T) {
	opensslPath, err := exec.LookPath("openssl")
	if err != nil {
		t.Skipf("openssl command not found. Skipping")
	}
	cert, _ := opensslRecipient(t)
	content := readTestdata(t, "testdata/content.txt")
	for _, tt := range opensslEnvelopes {
		t.Run(tt.name, func(t *testing.T) {
			der, err := Encrypt(content, cert, tt.oid)
			if err != nil {
				t.Fatalf("failed to encrypt content: %s", err)
			}
			path := filepath.Join(t.TempDir(), "envelope.der")
			if err = os.WriteFile(path, der, 0o600); err != nil {
				t.Fatalf("failed to write envelope: %s", err)
			}
			cmd := exec.Command(opensslPath, "cms", "-decrypt", "-binary", "-inform", "DER", "-in", path,
				"-recip", "testdata/recipient.pem", "-inkey", "testdata/recipient.key")
			var stderr bytes.Buffer
			cmd.Stderr = &stderr
			plaintext, err := cmd.Output()
			if err != nil {
				t.Fatalf("openssl failed to decrypt envelope: %s: %s", err, stderr.String())
			}
			if !bytes.Equal(plaintext, content) {
				t.Errorf("openssl decrypted content mismatch, expected: %q, got: %q", content, plaintext)
			}
		})
	}
}

// derStructure lists every element of a DER encoding as depth, class, tag and form. Object
// identifiers include their value. Lengths and other values are left out.
func derStructure(t *testing.T, der []byte) []string {
	t.Helper()
	var elements []string
	var walk func(data []byte, depth int)
	walk = func(data []byte, depth int) {
		for len(data) > 0 {
			var value asn1.RawValue
			rest, err := asn1.Unmarshal(data, &value)
			if err != nil {
				t.Fatalf("failed to parse DER element at depth %d: %s", depth, err)
			}
			element := fmt.Sprintf("%d/%d/%d/%t", depth, value.Class, value.Tag, value.IsCompound)
			if value.Class == asn1.ClassUniversal && value.Tag == asn1.TagOID {
				var oid asn1.ObjectIdentifier
				if _, err = asn1.Unmarshal(value.FullBytes, &oid); err != nil {
					t.Fatalf("failed to parse object identifier: %s", err)
				}
				element += "/" + oid.String()
			}
			elements = append(elements, element)
			if value.IsCompound {
				walk(value.Bytes, depth+1)
			}
			data = rest
		}
	}
	walk(der, 0)
	return elements
}

func opensslRecipient(t *testing.T) (*x509.Certificate, *rsa.PrivateKey) {
	t.Helper()
	certBlock, _ := pem.Decode(readTestdata(t, "testdata/recipient.pem"))
	if certBlock == nil {
		t.Fatal("failed to decode recipient certificate PEM")
	}
	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		t.Fatalf("failed to parse recipient certificate: %s", err)
	}
	keyBlock, _ := pem.Decode(readTestdata(t, "testdata/recipient.key"))
	if keyBlock == nil {
		t.Fatal("failed to decode recipient key PEM")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
	if err != nil {
		t.Fatalf("failed to parse recipient key: %s", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		t.Fatalf("expected an RSA recipient key, got: %T", parsed)
	}
	return cert, key
}

func readTestdata(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %s", path, err)
	}
	return data
}
