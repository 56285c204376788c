// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package securemail

import (
	"errors"
	"strings"
)

var (
	// ErrNoEligibleCertificate is returned if none of the recipient's certificates permits key
	// encipherment or carries the configured secure email extended key usage
	ErrNoEligibleCertificate = errors.New("no certificate eligible for mail encryption")

	// ErrEnvelopeEncryptionFailed is returned if the mail envelope could not be encrypted for the
	// selected certificate
	ErrEnvelopeEncryptionFailed = errors.New("failed to encrypt mail envelope")

	// ErrInvalidAddress is returned if the sender or recipient address is not RFC 5322 compliant
	ErrInvalidAddress = errors.New("invalid mail address")
)

// List of EnvelopeError reasons
const (
	// ErrReasonNoCertificate indicates that no eligible certificate was found for the recipient
	ErrReasonNoCertificate EnvelopeErrReason = iota

	// ErrReasonEncryption indicates that the envelope encryption failed
	ErrReasonEncryption

	// ErrReasonAddress indicates that the sender or recipient address was rejected
	ErrReasonAddress
)

// EnvelopeErrReason represents a comparable reason on why the assembly of an encrypted
// message failed
type EnvelopeErrReason int

// EnvelopeError is an error wrapper for failures during the assembly of an encrypted Msg.
//
// It holds the reason, the affected recipient address and the underlying cause. Using errors.Is,
// an EnvelopeError matches the sentinel error that belongs to its reason (ErrNoEligibleCertificate,
// ErrEnvelopeEncryptionFailed or ErrInvalidAddress) as well as any other EnvelopeError with the
// same reason.
type EnvelopeError struct {
	Reason    EnvelopeErrReason
	Recipient string
	err       error
}

// Error implements the error interface for the EnvelopeError type.
func (e *EnvelopeError) Error() string {
	var errMessage strings.Builder
	sentinel := e.Reason.sentinel()
	switch {
	case e.err == nil || e.err == sentinel:
		errMessage.WriteString(e.Reason.String())
	case sentinel != nil && errors.Is(e.err, sentinel):
		errMessage.WriteString(e.err.Error())
	default:
		errMessage.WriteString(e.Reason.String())
		errMessage.WriteString(": ")
		errMessage.WriteString(e.err.Error())
	}
	if e.Recipient != "" {
		errMessage.WriteString(", affected recipient: ")
		errMessage.WriteString(e.Recipient)
	}
	return errMessage.String()
}

// Is implements the errors.Is functionality and compares the EnvelopeErrReason.
func (e *EnvelopeError) Is(target error) bool {
	var t *EnvelopeError
	if errors.As(target, &t) && t != nil {
		return e.Reason == t.Reason
	}
	sentinel := e.Reason.sentinel()
	return sentinel != nil && target == sentinel
}

// Unwrap returns the underlying cause of the EnvelopeError
func (e *EnvelopeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// String satisfies the fmt.Stringer interface for the EnvelopeErrReason type
func (r EnvelopeErrReason) String() string {
	if sentinel := r.sentinel(); sentinel != nil {
		return sentinel.Error()
	}
	return "unknown reason"
}

// sentinel maps the EnvelopeErrReason to its sentinel error
func (r EnvelopeErrReason) sentinel() error {
	switch r {
	case ErrReasonNoCertificate:
		return ErrNoEligibleCertificate
	case ErrReasonEncryption:
		return ErrEnvelopeEncryptionFailed
	case ErrReasonAddress:
		return ErrInvalidAddress
	default:
		return nil
	}
}

func newEnvelopeError(reason EnvelopeErrReason, recipient string, err error) *EnvelopeError {
	return &EnvelopeError{Reason: reason, Recipient: recipient, err: err}
}
