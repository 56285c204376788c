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

// Package pkcs7 implements the CMS EnvelopedData content type (RFC 5652, section 6) for
// a single key transport recipient.
package pkcs7

import (
	"bytes"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

var (
	OIDData          = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 1}
	OIDEnvelopedData = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 3}

	OIDEncryptionAlgorithmRSA = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}

	OIDEncryptionAlgorithmDESEDE3CBC = asn1.ObjectIdentifier{1, 2, 840, 113549, 3, 7}
	OIDEncryptionAlgorithmAES128CBC  = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 2}
	OIDEncryptionAlgorithmAES192CBC  = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 22}
	OIDEncryptionAlgorithmAES256CBC  = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 42}
)

var (
	// ErrUnsupportedAlgorithm is returned if the content encryption algorithm is not implemented
	ErrUnsupportedAlgorithm = errors.New("pkcs7: only DES-EDE3-CBC and AES-CBC content encryption " +
		"is supported")

	// ErrUnsupportedKeyType is returned if the recipient certificate does not hold an RSA public key
	ErrUnsupportedKeyType = errors.New("pkcs7: only RSA recipient keys are supported")

	// ErrNotEnvelopedData is returned by Parse if the ContentInfo does not carry EnvelopedData
	ErrNotEnvelopedData = errors.New("pkcs7: content type is not enveloped-data")

	// ErrNoMatchingRecipient is returned by Decrypt if no RecipientInfo addresses the given certificate
	ErrNoMatchingRecipient = errors.New("pkcs7: no recipient info matches the certificate")
)

type contentInfo struct {
	ContentType asn1.ObjectIdentifier
	Content     asn1.RawValue `asn1:"explicit,optional,tag:0"`
}

type issuerAndSerial struct {
	IssuerName   asn1.RawValue
	SerialNumber *big.Int
}

type envelopedData struct {
	Version              int
	RecipientInfos       []recipientInfo `asn1:"set"`
	EncryptedContentInfo encryptedContentInfo
}

type recipientInfo struct {
	Version                int
	IssuerAndSerialNumber  issuerAndSerial
	KeyEncryptionAlgorithm pkix.AlgorithmIdentifier
	EncryptedKey           []byte
}

type encryptedContentInfo struct {
	ContentType                asn1.ObjectIdentifier
	ContentEncryptionAlgorithm pkix.AlgorithmIdentifier
	EncryptedContent           asn1.RawValue `asn1:"tag:0,optional"`
}

// ParseOID converts a dotted decimal string like "2.16.840.1.101.3.4.1.42" into an
// asn1.ObjectIdentifier.
func ParseOID(s string) (asn1.ObjectIdentifier, error) {
	if s == "" {
		return nil, errors.New("pkcs7: empty object identifier")
	}
	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("pkcs7: object identifier %q needs at least two arcs", s)
	}
	oid := make(asn1.ObjectIdentifier, len(parts))
	for i, part := range parts {
		arc, err := strconv.Atoi(part)
		if err != nil || arc < 0 {
			return nil, fmt.Errorf("pkcs7: invalid object identifier arc %q in %q", part, s)
		}
		oid[i] = arc
	}
	return oid, nil
}

// IssuerAndSerial identifies a recipient certificate by its issuer distinguished name and
// serial number
type IssuerAndSerial struct {
	RawIssuer    []byte
	SerialNumber *big.Int
}

// Matches reports whether the certificate is the one identified by the IssuerAndSerial
func (ias IssuerAndSerial) Matches(cert *x509.Certificate) bool {
	if cert == nil || ias.SerialNumber == nil {
		return false
	}
	return cert.SerialNumber.Cmp(ias.SerialNumber) == 0 && bytes.Equal(cert.RawIssuer, ias.RawIssuer)
}

func isCertMatchForIssuerAndSerial(cert *x509.Certificate, ias issuerAndSerial) bool {
	return IssuerAndSerial{RawIssuer: ias.IssuerName.FullBytes, SerialNumber: ias.SerialNumber}.Matches(cert)
}
