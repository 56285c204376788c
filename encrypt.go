// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package securemail

import (
	"crypto"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-securemail/internal/pkcs7"
)

// DefaultEncryptionAlgorithmOID is the OID of the AES-256-CBC content encryption algorithm.
const DefaultEncryptionAlgorithmOID = "2.16.840.1.101.3.4.1.42"

// EncryptedEnvelope holds the DER encoded CMS EnvelopedData and the media type it is
// attached to the Msg with.
type EncryptedEnvelope struct {
	Data        []byte
	ContentType ContentType
}

// EncryptEnvelope encrypts the envelope body for the given recipient certificate.
//
// The body is encoded as US-ASCII (runes outside of ASCII become '?') and sealed into a CMS
// EnvelopedData structure with a single key transport recipient, addressed by the issuer and
// serial number of cert. The content is encrypted with the algorithm identified by algorithmOID.
// There is no fallback to another algorithm.
//
// Parameters:
//   - body: The MIME body as returned by BuildEnvelopeBody.
//   - cert: The recipient certificate as returned by SelectCertificate.
//   - algorithmOID: The dotted decimal OID of the content encryption algorithm.
//
// Returns:
//   - The EncryptedEnvelope tagged with TypeSMIMEEnveloped.
//   - An error wrapping ErrEnvelopeEncryptionFailed if the algorithm is unsupported, the
//     certificate is nil, expired, not yet valid or holds no RSA key, or encryption fails.
func EncryptEnvelope(body string, cert *x509.Certificate, algorithmOID string) (*EncryptedEnvelope, error) {
	return encryptEnvelope(body, cert, algorithmOID, time.Now())
}

func encryptEnvelope(body string, cert *x509.Certificate, algorithmOID string, now time.Time) (*EncryptedEnvelope, error) {
	if cert == nil {
		return nil, fmt.Errorf("%w: recipient certificate is nil", ErrEnvelopeEncryptionFailed)
	}
	if now.Before(cert.NotBefore) || now.After(cert.NotAfter) {
		return nil, fmt.Errorf("%w: certificate %s is not valid at %s", ErrEnvelopeEncryptionFailed,
			cert.SerialNumber, now.Format(time.RFC3339))
	}
	oid, err := pkcs7.ParseOID(algorithmOID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnvelopeEncryptionFailed, err)
	}
	data, err := pkcs7.Encrypt(toASCII(body), cert, oid)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnvelopeEncryptionFailed, err)
	}
	return &EncryptedEnvelope{Data: data, ContentType: TypeSMIMEEnveloped}, nil
}

// DecryptEnvelope recovers the envelope body from the DER encoded EnvelopedData using the
// recipient certificate and its private key.
func DecryptEnvelope(data []byte, cert *x509.Certificate, key crypto.PrivateKey) ([]byte, error) {
	if cert == nil {
		return nil, errors.New("recipient certificate is nil")
	}
	envelope, err := pkcs7.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse envelope: %w", err)
	}
	body, err := envelope.Decrypt(cert, key)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt envelope: %w", err)
	}
	return body, nil
}
