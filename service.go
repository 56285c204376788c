// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package securemail

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-securemail/log"
)

var (
	// ErrDirectoryLookup is returned if the recipient could not be resolved via the Directory
	ErrDirectoryLookup = errors.New("directory lookup failed")

	// ErrNoDirectory is returned by NewMailService if no Directory is given
	ErrNoDirectory = errors.New("no directory set")

	// ErrNoSender is returned by NewMailService if no Sender is given
	ErrNoSender = errors.New("no sender set")
)

// Sender delivers assembled messages. The Client satisfies this interface.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*Msg) error
}

// MailService resolves recipients via a Directory, assembles encrypted messages for them and
// hands the messages to a Sender.
type MailService struct {
	assembler     *Assembler
	assemblerOpts []AssemblerOption
	directory     Directory
	logger        log.Logger
	sender        Sender
	settings      Settings
}

// ServiceOption returns a function that can be used for grouping MailService options
type ServiceOption func(*MailService) error

// NewMailService returns a new MailService. The Settings are validated; the formatter is passed
// on to the Assembler.
func NewMailService(settings Settings, directory Directory, formatter BodyFormatter, sender Sender,
	opts ...ServiceOption,
) (*MailService, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if directory == nil {
		return nil, ErrNoDirectory
	}
	if sender == nil {
		return nil, ErrNoSender
	}
	service := &MailService{
		directory: directory,
		sender:    sender,
		settings:  settings,
	}
	for _, option := range opts {
		if option == nil {
			continue
		}
		if err := option(service); err != nil {
			return nil, fmt.Errorf("failed to apply service option: %w", err)
		}
	}

	assemblerOpts := append([]AssemblerOption{WithAssemblerLogger(service.logger)}, service.assemblerOpts...)
	assembler, err := NewAssembler(settings, formatter, assemblerOpts...)
	if err != nil {
		return nil, err
	}
	service.assembler = assembler
	return service, nil
}

// WithServiceLogger sets the logger of the MailService and its Assembler
func WithServiceLogger(logger log.Logger) ServiceOption {
	return func(s *MailService) error {
		s.logger = logger
		return nil
	}
}

// WithAssemblerOptions passes additional options to the Assembler of the MailService
func WithAssemblerOptions(opts ...AssemblerOption) ServiceOption {
	return func(s *MailService) error {
		s.assemblerOpts = append(s.assemblerOpts, opts...)
		return nil
	}
}

// SendEmail sends the default subject and body of the Settings encrypted to the user
// identified by the query.
func (s *MailService) SendEmail(ctx context.Context, query UserQuery) error {
	return s.SendEmailWithContents(ctx, query, MessageContents{
		Subject:  s.settings.Subject,
		BodyText: s.settings.Body,
	})
}

// SendEmailWithContents sends the given contents encrypted to the user identified by the query.
// Nothing is sent if the message cannot be assembled.
func (s *MailService) SendEmailWithContents(ctx context.Context, query UserQuery, contents MessageContents) error {
	msg, err := s.AssembleFor(ctx, query, contents)
	if err != nil {
		return err
	}
	return s.SendMessage(ctx, msg)
}

// AssembleFor resolves the user identified by the query and assembles the encrypted message
// without sending it.
func (s *MailService) AssembleFor(ctx context.Context, query UserQuery, contents MessageContents) (*Msg, error) {
	user, err := s.directory.LookupUser(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectoryLookup, err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectoryLookup, ErrUserNotFound)
	}
	return s.assembler.Assemble(user.RecipientIdentity(), contents)
}

// SendMessage hands an already assembled message to the Sender
func (s *MailService) SendMessage(ctx context.Context, msg *Msg) error {
	if msg == nil {
		return errors.New("message is nil")
	}
	if err := s.sender.DialAndSendWithContext(ctx, msg); err != nil {
		s.log(func(l log.Logger) {
			l.Errorf(log.Log{Direction: log.DirInternal, Format: "failed to send message %s: %s",
				Messages: []interface{}{msg.GetMessageID(), err}})
		})
		return fmt.Errorf("failed to send message: %w", err)
	}
	s.log(func(l log.Logger) {
		l.Infof(log.Log{Direction: log.DirInternal, Format: "sent encrypted message %s",
			Messages: []interface{}{msg.GetMessageID()}})
	})
	return nil
}

func (s *MailService) log(fn func(log.Logger)) {
	if s.logger != nil {
		fn(s.logger)
	}
}
