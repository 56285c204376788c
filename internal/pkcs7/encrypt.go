// SPDX-FileCopyrightText: Copyright (c) 2015 Andrew Smith
// SPDX-FileCopyrightText: Copyright (c) 2017-2024 The mozilla services project (https://github.com/mozilla-services)
// SPDX-FileCopyrightText: Copyright (c) The go-mail Authors
//
// Partially forked from https://github.com/mozilla-services/pkcs7, which in turn is also a fork
// of https://github.com/fullsailor/pkcs7.
// Use of the forked source code is, same as go-mail, governed by a MIT license.
//
// go-mail specific modifications by the go-mail Authors.
// Licensed under the MIT License.
// See [PROJECT ROOT]/LICENSES directory for more information.
//
// SPDX-License-Identifier: MIT

package pkcs7

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"io"
)

// contentCipher describes how a content encryption algorithm is keyed. Only CBC mode ciphers
// fit EnvelopedData; AES-GCM needs AuthEnvelopedData (RFC 5083) and is not implemented.
type contentCipher struct {
	keySize   int
	blockSize int
}

var contentCiphers = map[string]contentCipher{
	OIDEncryptionAlgorithmDESEDE3CBC.String(): {keySize: 24, blockSize: des.BlockSize},
	OIDEncryptionAlgorithmAES128CBC.String():  {keySize: 16, blockSize: aes.BlockSize},
	OIDEncryptionAlgorithmAES192CBC.String():  {keySize: 24, blockSize: aes.BlockSize},
	OIDEncryptionAlgorithmAES256CBC.String():  {keySize: 32, blockSize: aes.BlockSize},
}

// SupportsAlgorithm reports whether the content encryption algorithm identified by the OID
// is implemented by Encrypt.
func SupportsAlgorithm(oid asn1.ObjectIdentifier) bool {
	_, ok := contentCiphers[oid.String()]
	return ok
}

// Encrypt creates a DER encoded ContentInfo carrying EnvelopedData for the given content.
//
// A fresh content encryption key is generated and encrypted with the RSA public key of the
// recipient certificate (PKCS#1 v1.5 key transport). The recipient is addressed by the
// issuer and serial number of the certificate. The content itself is encrypted with the
// algorithm identified by contentAlg.
//
// Parameters:
//   - content: The plaintext to envelope.
//   - recipient: The certificate of the single recipient.
//   - contentAlg: The OID of the content encryption algorithm.
//
// Returns:
//   - The DER encoding of the ContentInfo.
//   - An error if the algorithm or the recipient key is unsupported or encryption fails.
func Encrypt(content []byte, recipient *x509.Certificate, contentAlg asn1.ObjectIdentifier) ([]byte, error) {
	if recipient == nil {
		return nil, fmt.Errorf("pkcs7: recipient certificate is nil")
	}
	pub, ok := recipient.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, ErrUnsupportedKeyType
	}
	ciph, ok := contentCiphers[contentAlg.String()]
	if !ok {
		return nil, ErrUnsupportedAlgorithm
	}

	key := make([]byte, ciph.keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("pkcs7: failed to generate content encryption key: %w", err)
	}

	eci, err := encryptCBC(content, key, ciph.blockSize, contentAlg)
	if err != nil {
		return nil, err
	}

	encryptedKey, err := rsa.EncryptPKCS1v15(rand.Reader, pub, key)
	if err != nil {
		return nil, fmt.Errorf("pkcs7: failed to encrypt content encryption key: %w", err)
	}
	ias, err := newIssuerAndSerial(recipient)
	if err != nil {
		return nil, err
	}

	envelope := envelopedData{
		Version: 0,
		RecipientInfos: []recipientInfo{{
			Version:               0,
			IssuerAndSerialNumber: ias,
			KeyEncryptionAlgorithm: pkix.AlgorithmIdentifier{
				Algorithm:  OIDEncryptionAlgorithmRSA,
				Parameters: asn1.NullRawValue,
			},
			EncryptedKey: encryptedKey,
		}},
		EncryptedContentInfo: *eci,
	}
	inner, err := asn1.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("pkcs7: failed to marshal enveloped data: %w", err)
	}

	wrapper := contentInfo{
		ContentType: OIDEnvelopedData,
		Content:     asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 0, Bytes: inner, IsCompound: true},
	}
	return asn1.Marshal(wrapper)
}

func newIssuerAndSerial(cert *x509.Certificate) (issuerAndSerial, error) {
	var name asn1.RawValue
	if _, err := asn1.Unmarshal(cert.RawIssuer, &name); err != nil {
		return issuerAndSerial{}, fmt.Errorf("pkcs7: failed to parse certificate issuer: %w", err)
	}
	return issuerAndSerial{IssuerName: name, SerialNumber: cert.SerialNumber}, nil
}

func encryptCBC(content, key []byte, blockSize int, alg asn1.ObjectIdentifier) (*encryptedContentInfo, error) {
	var block cipher.Block
	var err error
	switch blockSize {
	case des.BlockSize:
		block, err = des.NewTripleDESCipher(key)
	default:
		block, err = aes.NewCipher(key)
	}
	if err != nil {
		return nil, fmt.Errorf("pkcs7: failed to initialize block cipher: %w", err)
	}

	iv := make([]byte, blockSize)
	if _, err = io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("pkcs7: failed to generate initialization vector: %w", err)
	}
	padded := pad(content, blockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	params, err := asn1.Marshal(iv)
	if err != nil {
		return nil, fmt.Errorf("pkcs7: failed to marshal initialization vector: %w", err)
	}
	return &encryptedContentInfo{
		ContentType: OIDData,
		ContentEncryptionAlgorithm: pkix.AlgorithmIdentifier{
			Algorithm:  alg,
			Parameters: asn1.RawValue{FullBytes: params},
		},
		EncryptedContent: marshalEncryptedContent(ciphertext),
	}, nil
}

// marshalEncryptedContent encodes the ciphertext as the primitive [0] IMPLICIT OCTET STRING
// that DER requires for EncryptedContentInfo.encryptedContent
func marshalEncryptedContent(ciphertext []byte) asn1.RawValue {
	return asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 0, Bytes: ciphertext}
}

// pad applies PKCS#7 padding. A full block of padding is added if the data already is a
// multiple of the block size.
func pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	return append(append(make([]byte, 0, len(data)+padLen), data...), bytes.Repeat([]byte{byte(padLen)}, padLen)...)
}
