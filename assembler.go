// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package securemail

import (
	"crypto/x509"
	"fmt"
	"net/mail"
	"time"

	"github.com/wneessen/go-securemail/log"
)

// randomBoundaryLength is the number of random characters of a per-message envelope boundary
const randomBoundaryLength = 30

// BodyFormatter renders the raw body text of a message into the final HTML body. It is called
// exactly once per assembled message.
type BodyFormatter func(bodyText string) string

// MessageContents holds the per-send content of a message
type MessageContents struct {
	Subject  string
	BodyText string
}

// RecipientIdentity is a resolved recipient: the mail address and the certificates of the
// recipient in the order the directory returned them
type RecipientIdentity struct {
	EmailAddress string
	Certificates []*x509.Certificate
}

// Assembler builds encrypted messages. It only holds immutable state and is safe for
// concurrent use.
type Assembler struct {
	formatter      BodyFormatter
	logger         log.Logger
	now            func() time.Time
	randomBoundary bool
	settings       Settings
}

// AssemblerOption returns a function that can be used for grouping Assembler options
type AssemblerOption func(*Assembler) error

// NewAssembler returns a new Assembler for the given Settings. The formatter renders the body
// text into HTML; if it is nil, the body text is used as is.
func NewAssembler(settings Settings, formatter BodyFormatter, opts ...AssemblerOption) (*Assembler, error) {
	if formatter == nil {
		formatter = func(bodyText string) string { return bodyText }
	}
	assembler := &Assembler{
		formatter: formatter,
		now:       time.Now,
		settings:  settings,
	}
	for _, option := range opts {
		if option == nil {
			continue
		}
		if err := option(assembler); err != nil {
			return nil, fmt.Errorf("failed to apply assembler option: %w", err)
		}
	}
	return assembler, nil
}

// WithAssemblerLogger sets the logger the Assembler reports its steps to
func WithAssemblerLogger(logger log.Logger) AssemblerOption {
	return func(a *Assembler) error {
		a.logger = logger
		return nil
	}
}

// WithRandomBoundary makes the Assembler use a random boundary per message for the encrypted
// MIME body instead of EnvelopeBoundary
func WithRandomBoundary() AssemblerOption {
	return func(a *Assembler) error {
		a.randomBoundary = true
		return nil
	}
}

// withClock overrides the time source used for the certificate validity check and the Date header
func withClock(now func() time.Time) AssemblerOption {
	return func(a *Assembler) error {
		if now == nil {
			return fmt.Errorf("clock function must not be nil")
		}
		a.now = now
		return nil
	}
}

// Settings returns the Settings of the Assembler
func (a *Assembler) Settings() Settings {
	return a.settings
}

// Assemble builds the encrypted Msg for the recipient.
//
// The steps run in a fixed order: the certificate is selected from the recipient's
// certificates, the body text is rendered by the BodyFormatter, wrapped into the MIME envelope
// body and encrypted for the selected certificate. Only then the Msg is built with the sender
// address of the Settings, the recipient address and the subject, and the envelope attached as
// its only part. Sender and recipient addresses are validated before any of these steps.
//
// Parameters:
//   - recipient: The resolved recipient.
//   - contents: The subject and body text of the message.
//
// Returns:
//   - The assembled Msg.
//   - An *EnvelopeError that matches ErrInvalidAddress, ErrNoEligibleCertificate or
//     ErrEnvelopeEncryptionFailed. No Msg is returned in that case.
func (a *Assembler) Assemble(recipient RecipientIdentity, contents MessageContents) (*Msg, error) {
	if _, err := mail.ParseAddress(a.settings.FromAddress); err != nil {
		return nil, newEnvelopeError(ErrReasonAddress, recipient.EmailAddress,
			fmt.Errorf("sender address %q: %w", a.settings.FromAddress, err))
	}
	if _, err := mail.ParseAddress(recipient.EmailAddress); err != nil {
		return nil, newEnvelopeError(ErrReasonAddress, recipient.EmailAddress,
			fmt.Errorf("recipient address %q: %w", recipient.EmailAddress, err))
	}

	cert, err := SelectCertificate(recipient.Certificates, a.settings.SecureEmailOID)
	if err != nil {
		a.warnf("no eligible certificate among %d certificate(s) for %s", len(recipient.Certificates),
			recipient.EmailAddress)
		return nil, newEnvelopeError(ErrReasonNoCertificate, recipient.EmailAddress, err)
	}
	a.debugf("selected certificate %q (serial %s) for %s", cert.Subject.CommonName, cert.SerialNumber,
		recipient.EmailAddress)

	boundary := EnvelopeBoundary
	if a.randomBoundary {
		if boundary, err = randomStringSecure(randomBoundaryLength); err != nil {
			return nil, newEnvelopeError(ErrReasonEncryption, recipient.EmailAddress,
				fmt.Errorf("failed to generate envelope boundary: %w", err))
		}
	}
	body := BuildEnvelopeBodyWithBoundary(a.formatter(contents.BodyText), boundary)

	now := a.now()
	envelope, err := encryptEnvelope(body, cert, a.settings.EncryptionAlgorithmOID, now)
	if err != nil {
		a.errorf("failed to encrypt envelope for %s: %s", recipient.EmailAddress, err)
		return nil, newEnvelopeError(ErrReasonEncryption, recipient.EmailAddress, err)
	}

	msg := NewMsg(WithEncoding(EncodingB64))
	if err = msg.From(a.settings.FromAddress); err != nil {
		return nil, newEnvelopeError(ErrReasonAddress, recipient.EmailAddress, err)
	}
	if err = msg.To(recipient.EmailAddress); err != nil {
		return nil, newEnvelopeError(ErrReasonAddress, recipient.EmailAddress, err)
	}
	msg.Subject(contents.Subject)
	msg.SetDateWithValue(now)
	msg.SetMessageID()
	msg.AddAlternativeBytes(envelope.ContentType, envelope.Data, WithPartEncoding(EncodingB64))
	a.debugf("assembled encrypted message %s for %s (%d envelope bytes)", msg.GetMessageID(),
		recipient.EmailAddress, len(envelope.Data))

	return msg, nil
}

func (a *Assembler) debugf(format string, args ...interface{}) {
	if a.logger != nil {
		a.logger.Debugf(log.Log{Direction: log.DirInternal, Format: format, Messages: args})
	}
}

func (a *Assembler) warnf(format string, args ...interface{}) {
	if a.logger != nil {
		a.logger.Warnf(log.Log{Direction: log.DirInternal, Format: format, Messages: args})
	}
}

func (a *Assembler) errorf(format string, args ...interface{}) {
	if a.logger != nil {
		a.logger.Errorf(log.Log{Direction: log.DirInternal, Format: format, Messages: args})
	}
}
