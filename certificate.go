// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package securemail

import (
	"crypto/x509"
	"encoding/asn1"
	"strings"
)

// DefaultSecureEmailOID is the extended key usage OID for E-mail protection (id-kp-emailProtection).
const DefaultSecureEmailOID = "1.3.6.1.5.5.7.3.4"

// oidExtensionExtKeyUsage identifies the X.509 extended key usage extension
var oidExtensionExtKeyUsage = asn1.ObjectIdentifier{2, 5, 29, 37}

// SelectCertificate returns the first certificate of the given sequence that is usable for mail
// encryption.
//
// A certificate is usable if its key usage includes key encipherment, or if its extended key
// usage extension contains the given secure email OID. The sequence is scanned in the given order
// and the first match wins. Nil entries are skipped. The returned certificate is the element of
// the given slice; it is neither copied nor modified.
//
// Parameters:
//   - certs: The candidate certificates of the recipient, in directory order.
//   - secureEmailOID: The dotted decimal OID designating secure email certificates.
//
// Returns:
//   - The selected certificate.
//   - ErrNoEligibleCertificate if no certificate qualifies.
func SelectCertificate(certs []*x509.Certificate, secureEmailOID string) (*x509.Certificate, error) {
	secureEmailOID = strings.TrimSpace(secureEmailOID)
	for _, cert := range certs {
		if cert == nil {
			continue
		}
		if cert.KeyUsage&x509.KeyUsageKeyEncipherment != 0 {
			return cert, nil
		}
		if secureEmailOID != "" && hasExtKeyUsageOID(cert, secureEmailOID) {
			return cert, nil
		}
	}
	return nil, ErrNoEligibleCertificate
}

// hasExtKeyUsageOID reports whether the extended key usage extension of the certificate lists
// the given OID. The raw extension is evaluated so that OIDs unknown to crypto/x509 compare the
// same way as the well-known ones.
func hasExtKeyUsageOID(cert *x509.Certificate, oid string) bool {
	for _, ext := range cert.Extensions {
		if !ext.Id.Equal(oidExtensionExtKeyUsage) {
			continue
		}
		var usages []asn1.ObjectIdentifier
		if rest, err := asn1.Unmarshal(ext.Value, &usages); err != nil || len(rest) > 0 {
			continue
		}
		for _, usage := range usages {
			if usage.String() == oid {
				return true
			}
		}
	}
	return false
}
