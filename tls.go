// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package securemail

import (
	"fmt"
	"strings"
)

// TLSPolicy defines whether the Client upgrades the connection with STARTTLS
type TLSPolicy int

const (
	// TLSMandatory requires STARTTLS. The connection fails if the server does not offer it.
	TLSMandatory TLSPolicy = iota

	// TLSOpportunistic uses STARTTLS if the server offers it
	TLSOpportunistic

	// NoTLS never uses STARTTLS
	NoTLS
)

// String satisfies the fmt.Stringer interface for the TLSPolicy type
func (p TLSPolicy) String() string {
	switch p {
	case TLSMandatory:
		return "TLSMandatory"
	case TLSOpportunistic:
		return "TLSOpportunistic"
	case NoTLS:
		return "NoTLS"
	default:
		return "UnknownPolicy"
	}
}

// ParseTLSPolicy parses the configuration value of a TLSPolicy. It accepts "mandatory",
// "opportunistic" and "none" as well as the String representation, case-insensitively.
func ParseTLSPolicy(value string) (TLSPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "mandatory", "tlsmandatory", "":
		return TLSMandatory, nil
	case "opportunistic", "tlsopportunistic":
		return TLSOpportunistic, nil
	case "none", "notls":
		return NoTLS, nil
	default:
		return TLSMandatory, fmt.Errorf("unknown TLS policy %q", value)
	}
}
