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
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"errors"
	"fmt"
)

// EnvelopedData is a parsed CMS EnvelopedData structure
type EnvelopedData struct {
	raw envelopedData
}

// Parse decodes a DER encoded ContentInfo that carries EnvelopedData.
func Parse(data []byte) (*EnvelopedData, error) {
	if len(data) == 0 {
		return nil, errors.New("pkcs7: input data is empty")
	}
	var info contentInfo
	rest, err := asn1.Unmarshal(data, &info)
	if err != nil {
		return nil, fmt.Errorf("pkcs7: failed to parse content info: %w", err)
	}
	if len(rest) > 0 {
		return nil, errors.New("pkcs7: trailing data after content info")
	}
	if !info.ContentType.Equal(OIDEnvelopedData) {
		return nil, ErrNotEnvelopedData
	}
	var ed envelopedData
	if _, err = asn1.Unmarshal(info.Content.Bytes, &ed); err != nil {
		return nil, fmt.Errorf("pkcs7: failed to parse enveloped data: %w", err)
	}
	return &EnvelopedData{raw: ed}, nil
}

// Version returns the EnvelopedData syntax version
func (e *EnvelopedData) Version() int {
	return e.raw.Version
}

// ContentEncryptionAlgorithm returns the OID of the algorithm the content is encrypted with
func (e *EnvelopedData) ContentEncryptionAlgorithm() asn1.ObjectIdentifier {
	return e.raw.EncryptedContentInfo.ContentEncryptionAlgorithm.Algorithm
}

// Recipients returns the issuer and serial number of every recipient the content is
// encrypted for
func (e *EnvelopedData) Recipients() []IssuerAndSerial {
	recipients := make([]IssuerAndSerial, 0, len(e.raw.RecipientInfos))
	for _, ri := range e.raw.RecipientInfos {
		recipients = append(recipients, IssuerAndSerial{
			RawIssuer:    ri.IssuerAndSerialNumber.IssuerName.FullBytes,
			SerialNumber: ri.IssuerAndSerialNumber.SerialNumber,
		})
	}
	return recipients
}

// Decrypt recovers the plaintext content using the private key that belongs to cert.
func (e *EnvelopedData) Decrypt(cert *x509.Certificate, key crypto.PrivateKey) ([]byte, error) {
	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrUnsupportedKeyType
	}
	var recipient *recipientInfo
	for i := range e.raw.RecipientInfos {
		if isCertMatchForIssuerAndSerial(cert, e.raw.RecipientInfos[i].IssuerAndSerialNumber) {
			recipient = &e.raw.RecipientInfos[i]
			break
		}
	}
	if recipient == nil {
		return nil, ErrNoMatchingRecipient
	}
	if !recipient.KeyEncryptionAlgorithm.Algorithm.Equal(OIDEncryptionAlgorithmRSA) {
		return nil, ErrUnsupportedKeyType
	}
	contentKey, err := rsa.DecryptPKCS1v15(rand.Reader, priv, recipient.EncryptedKey)
	if err != nil {
		return nil, fmt.Errorf("pkcs7: failed to decrypt content encryption key: %w", err)
	}
	return e.raw.EncryptedContentInfo.decrypt(contentKey)
}

func (eci encryptedContentInfo) decrypt(key []byte) ([]byte, error) {
	alg := eci.ContentEncryptionAlgorithm.Algorithm
	ciph, ok := contentCiphers[alg.String()]
	if !ok {
		return nil, ErrUnsupportedAlgorithm
	}
	if len(key) != ciph.keySize {
		return nil, fmt.Errorf("pkcs7: content key has %d bytes, expected %d", len(key), ciph.keySize)
	}
	ciphertext, err := eci.ciphertext()
	if err != nil {
		return nil, err
	}

	var iv []byte
	if _, err = asn1.Unmarshal(eci.ContentEncryptionAlgorithm.Parameters.FullBytes, &iv); err != nil {
		return nil, fmt.Errorf("pkcs7: failed to parse initialization vector: %w", err)
	}
	var block cipher.Block
	if ciph.blockSize == des.BlockSize {
		block, err = des.NewTripleDESCipher(key)
	} else {
		block, err = aes.NewCipher(key)
	}
	if err != nil {
		return nil, fmt.Errorf("pkcs7: failed to initialize block cipher: %w", err)
	}
	if len(iv) != block.BlockSize() {
		return nil, errors.New("pkcs7: initialization vector does not match the cipher block size")
	}
	if len(ciphertext) == 0 || len(ciphertext)%block.BlockSize() != 0 {
		return nil, errors.New("pkcs7: ciphertext is not a multiple of the block size")
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	return unpad(plaintext, block.BlockSize())
}

// ciphertext returns the encrypted content. A constructed encoding (BER) is flattened by
// concatenating the contained OCTET STRING segments.
func (eci encryptedContentInfo) ciphertext() ([]byte, error) {
	raw := eci.EncryptedContent
	if !raw.IsCompound {
		return raw.Bytes, nil
	}
	var out []byte
	rest := raw.Bytes
	for len(rest) > 0 {
		var segment []byte
		var err error
		rest, err = asn1.Unmarshal(rest, &segment)
		if err != nil {
			return nil, fmt.Errorf("pkcs7: failed to parse encrypted content segment: %w", err)
		}
		out = append(out, segment...)
	}
	return out, nil
}

func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("pkcs7: invalid padding on empty data")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, errors.New("pkcs7: invalid padding")
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, errors.New("pkcs7: invalid padding")
		}
	}
	return data[:len(data)-padLen], nil
}
