// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package securemail

import (
	"errors"
	"net/textproto"
	"regexp"
	"strconv"
	"strings"
)

// List of SendError reasons
const (
	// ErrGetSender is returned if the Msg.GetSender method fails during a Client.Send
	ErrGetSender SendErrReason = iota

	// ErrGetRcpts is returned if the Msg.GetRecipients method fails during a Client.Send
	ErrGetRcpts

	// ErrSMTPMailFrom is returned if the Msg delivery failed when sending the MAIL FROM command
	ErrSMTPMailFrom

	// ErrSMTPRcptTo is returned if the Msg delivery failed when sending the RCPT TO command
	ErrSMTPRcptTo

	// ErrSMTPData is returned if the Msg delivery failed when sending the DATA command
	ErrSMTPData

	// ErrSMTPDataClose is returned if the Msg delivery failed when closing the DATA writer
	ErrSMTPDataClose

	// ErrSMTPReset is returned if the Msg delivery failed when sending the RSET command
	ErrSMTPReset

	// ErrWriteContent is returned if the Msg delivery failed when writing the content
	ErrWriteContent

	// ErrConnCheck is returned if the connection check failed before or after a delivery
	ErrConnCheck

	// ErrNoMessage is returned for a nil Msg passed to Client.Send
	ErrNoMessage
)

// enhancedStatusCodePattern matches RFC 3463 enhanced status codes like 5.7.1
var enhancedStatusCodePattern = regexp.MustCompile(`\b([245])\.\d{1,3}\.\d{1,3}\b`)

// SendError is an error wrapper for delivery errors of the Client.
//
// It holds the SendErrReason, the list of underlying errors, the affected recipients and the
// affected Msg. Temporary errors (4xx) can be told apart from permanent errors (5xx) with
// IsTemp.
type SendError struct {
	affectedMsg        *Msg
	errcode            int
	enhancedStatusCode string
	errlist            []error
	isTemp             bool
	rcpt               []string
	Reason             SendErrReason
}

// SendErrReason represents a comparable reason on why the delivery failed
type SendErrReason int

// Error implements the error interface for the SendError type
func (e *SendError) Error() string {
	var errMessage strings.Builder
	errMessage.WriteString(e.Reason.String())
	if len(e.errlist) > 0 {
		errMessage.WriteString(": ")
		for i, err := range e.errlist {
			if i > 0 {
				errMessage.WriteString(", ")
			}
			errMessage.WriteString(err.Error())
		}
	}
	if len(e.rcpt) > 0 {
		errMessage.WriteString(", affected recipient(s): ")
		errMessage.WriteString(strings.Join(e.rcpt, ", "))
	}
	if messageID := e.MessageID(); messageID != "" {
		errMessage.WriteString(", affected message ID: ")
		errMessage.WriteString(messageID)
	}
	return errMessage.String()
}

// Is implements the errors.Is functionality and compares the SendErrReason and the
// temporary flag
func (e *SendError) Is(target error) bool {
	var t *SendError
	if errors.As(target, &t) && t != nil {
		return e.Reason == t.Reason && e.isTemp == t.isTemp
	}
	return false
}

// Unwrap returns the underlying errors of the SendError
func (e *SendError) Unwrap() []error {
	if e == nil {
		return nil
	}
	return e.errlist
}

// IsTemp reports whether the delivery failed with a temporary error and can be retried
func (e *SendError) IsTemp() bool {
	if e == nil {
		return false
	}
	return e.isTemp
}

// MessageID returns the message ID of the affected Msg
func (e *SendError) MessageID() string {
	if e == nil || e.affectedMsg == nil {
		return ""
	}
	return e.affectedMsg.GetMessageID()
}

// Msg returns the affected Msg
func (e *SendError) Msg() *Msg {
	if e == nil {
		return nil
	}
	return e.affectedMsg
}

// Recipients returns the recipient addresses the server rejected
func (e *SendError) Recipients() []string {
	if e == nil {
		return nil
	}
	return e.rcpt
}

// EnhancedStatusCode returns the RFC 3463 enhanced status code of the server response, if
// the server supports ENHANCEDSTATUSCODES and returned one
func (e *SendError) EnhancedStatusCode() string {
	if e == nil {
		return ""
	}
	return e.enhancedStatusCode
}

// ErrorCode returns the SMTP reply code of the server response. It starts with 4 on
// temporary and with 5 on permanent errors, and is 0 if the error was not returned by the
// server.
func (e *SendError) ErrorCode() int {
	if e == nil {
		return 0
	}
	return e.errcode
}

// String satisfies the fmt.Stringer interface for the SendErrReason type
func (r SendErrReason) String() string {
	switch r {
	case ErrGetSender:
		return "getting sender address"
	case ErrGetRcpts:
		return "getting recipient addresses"
	case ErrSMTPMailFrom:
		return "sending SMTP MAIL FROM command"
	case ErrSMTPRcptTo:
		return "sending SMTP RCPT TO command"
	case ErrSMTPData:
		return "sending SMTP DATA command"
	case ErrSMTPDataClose:
		return "closing SMTP DATA writer"
	case ErrSMTPReset:
		return "sending SMTP RESET command"
	case ErrWriteContent:
		return "sending message content"
	case ErrConnCheck:
		return "checking SMTP connection"
	case ErrNoMessage:
		return "no message given"
	}
	return "unknown reason"
}

// newSendError returns a SendError for the Msg with the reply code, the enhanced status code
// and the temporary flag taken from the first error
func newSendError(reason SendErrReason, msg *Msg, esmtpCodes bool, errs ...error) *SendError {
	sendErr := &SendError{Reason: reason, affectedMsg: msg, errlist: errs}
	if len(errs) > 0 {
		sendErr.errcode = errorCode(errs[0])
		sendErr.isTemp = isTempError(errs[0])
		sendErr.enhancedStatusCode = enhancedStatusCode(errs[0], esmtpCodes)
	}
	return sendErr
}

// isTempError reports whether err is a temporary SMTP error (4xx) that can be retried
func isTempError(err error) bool {
	code := errorCode(err)
	return code >= 400 && code < 500
}

// errorCode returns the SMTP reply code of err or 0 if err is no server reply
func errorCode(err error) int {
	if err == nil {
		return 0
	}
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return protoErr.Code
	}
	message := err.Error()
	if len(message) < 3 || (message[0] != '4' && message[0] != '5') {
		return 0
	}
	code, cerr := strconv.Atoi(message[:3])
	if cerr != nil {
		return 0
	}
	return code
}

// enhancedStatusCode extracts the RFC 3463 enhanced status code of a server reply
func enhancedStatusCode(err error, supported bool) string {
	if err == nil || !supported || errorCode(err) == 0 {
		return ""
	}
	return enhancedStatusCodePattern.FindString(err.Error())
}
