// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package securemail

import (
	"errors"
	"fmt"
	"net/textproto"
	"strings"
	"testing"
)

func TestSendError(t *testing.T) {
	msg := NewMsg()
	msg.SetMessageIDWithValue("42@example.com")
	tests := []struct {
		name         string
		err          error
		esmtpCodes   bool
		wantCode     int
		wantEnhanced string
		wantTemp     bool
	}{
		{
			"permanent textproto error", &textproto.Error{Code: 550, Msg: "5.1.1 mailbox unavailable"},
			true, 550, "5.1.1", false,
		},
		{
			"temporary textproto error", &textproto.Error{Code: 451, Msg: "4.3.0 try again later"},
			true, 451, "4.3.0", true,
		},
		{
			"enhanced codes not supported", &textproto.Error{Code: 550, Msg: "5.1.1 mailbox unavailable"},
			false, 550, "", false,
		},
		{"wrapped reply", fmt.Errorf("rcpt: %w", &textproto.Error{Code: 452, Msg: "busy"}), true, 452, "", true},
		{"plain reply text", errors.New("554 5.7.1 rejected"), true, 554, "5.7.1", false},
		{"local error", errors.New("connection reset"), true, 0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sendErr := newSendError(ErrSMTPRcptTo, msg, tt.esmtpCodes, tt.err)
			if sendErr.ErrorCode() != tt.wantCode {
				t.Errorf("expected error code %d, got: %d", tt.wantCode, sendErr.ErrorCode())
			}
			if sendErr.EnhancedStatusCode() != tt.wantEnhanced {
				t.Errorf("expected enhanced status code %q, got: %q", tt.wantEnhanced, sendErr.EnhancedStatusCode())
			}
			if sendErr.IsTemp() != tt.wantTemp {
				t.Errorf("expected temporary flag %t, got: %t", tt.wantTemp, sendErr.IsTemp())
			}
			if !errors.Is(sendErr, tt.err) {
				t.Error("expected send error to unwrap to the underlying error")
			}
			if sendErr.Msg() != msg || sendErr.MessageID() != "<42@example.com>" {
				t.Errorf("expected affected message, got ID: %s", sendErr.MessageID())
			}
		})
	}
}

func TestSendError_Error(t *testing.T) {
	sendErr := newSendError(ErrSMTPRcptTo, nil, false, errors.New("550 no such user"))
	sendErr.rcpt = []string{"jon@example.com", "arya@example.com"}
	want := "sending SMTP RCPT TO command: 550 no such user, affected recipient(s): jon@example.com, arya@example.com"
	if sendErr.Error() != want {
		t.Errorf("expected error message %q, got: %q", want, sendErr.Error())
	}
	if len(sendErr.Recipients()) != 2 {
		t.Errorf("expected 2 affected recipients, got: %v", sendErr.Recipients())
	}
	if got := newSendError(SendErrReason(99), nil, false).Error(); got != "unknown reason" {
		t.Errorf("expected unknown reason, got: %s", got)
	}
}

func TestSendError_Is(t *testing.T) {
	permanent := newSendError(ErrSMTPData, nil, false, errors.New("554 rejected"))
	temporary := newSendError(ErrSMTPData, nil, false, errors.New("451 later"))
	if !errors.Is(permanent, &SendError{Reason: ErrSMTPData}) {
		t.Error("expected permanent error to match reason with isTemp false")
	}
	if errors.Is(temporary, &SendError{Reason: ErrSMTPData}) {
		t.Error("expected temporary error not to match a permanent SendError")
	}
	if errors.Is(permanent, &SendError{Reason: ErrSMTPMailFrom}) {
		t.Error("expected error not to match another reason")
	}
	if errors.Is(permanent, errors.New("554 rejected")) {
		t.Error("expected error not to match an unrelated error")
	}

	var nilErr *SendError
	if nilErr.IsTemp() || nilErr.MessageID() != "" || nilErr.Msg() != nil || nilErr.ErrorCode() != 0 ||
		nilErr.EnhancedStatusCode() != "" || nilErr.Recipients() != nil || nilErr.Unwrap() != nil {
		t.Error("expected nil SendError accessors to return zero values")
	}
}

func TestSendErrReason_String(t *testing.T) {
	for reason := ErrGetSender; reason <= ErrNoMessage; reason++ {
		if reason.String() == "unknown reason" || strings.TrimSpace(reason.String()) == "" {
			t.Errorf("expected a description for reason %d", reason)
		}
	}
}
