// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package securemail

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"
)

func testWriterMsg(t *testing.T, opts ...MsgOption) *Msg {
	t.Helper()
	msg := NewMsg(opts...)
	if err := msg.From("noreply@example.com"); err != nil {
		t.Fatalf("failed to set from address: %s", err)
	}
	if err := msg.To("jon@example.com"); err != nil {
		t.Fatalf("failed to set to address: %s", err)
	}
	if err := msg.Bcc("hidden@example.com"); err != nil {
		t.Fatalf("failed to set bcc address: %s", err)
	}
	msg.Subject("Test subject")
	msg.SetDateWithValue(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	msg.SetMessageIDWithValue("test@example.com")
	msg.SetUserAgent("test")
	return msg
}

func TestMsgWriter_Write(t *testing.T) {
	t.Run("writes and counts bytes", func(t *testing.T) {
		buffer := bytes.NewBuffer(nil)
		mw := &msgWriter{writer: buffer}
		if _, err := mw.Write([]byte("test")); err != nil {
			t.Fatalf("failed to write: %s", err)
		}
		if mw.bytesWritten != 4 || buffer.String() != "test" {
			t.Errorf("expected 4 bytes written, got: %d, %q", mw.bytesWritten, buffer.String())
		}
	})
	t.Run("fails on writer error", func(t *testing.T) {
		mw := &msgWriter{writer: &failingWriter{}}
		if _, err := mw.Write([]byte("test")); !errors.Is(err, errMockWrite) {
			t.Errorf("expected mock write error, got: %v", err)
		}
	})
	t.Run("fails on previous error", func(t *testing.T) {
		mw := &msgWriter{writer: bytes.NewBuffer(nil), err: errMockWrite}
		if _, err := mw.Write([]byte("test")); !errors.Is(err, errMockWrite) {
			t.Errorf("expected previous error, got: %v", err)
		}
	})
}

func TestMsgWriter_writeHeader(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   string
	}{
		{"no value", nil, "Subject:\r\n"},
		{"short value", []string{"Hello"}, "Subject: Hello\r\n"},
		{"multiple values", []string{"a", "b"}, "Subject: a, b\r\n"},
		{
			"folded value",
			[]string{strings.Repeat("word ", 20)},
			"Subject: word word word word word word word word word word word word word\r\n" +
				" word word word word word word word \r\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buffer := bytes.NewBuffer(nil)
			mw := &msgWriter{writer: buffer}
			mw.writeHeader(HeaderSubject, tt.values...)
			if buffer.String() != tt.want {
				t.Errorf("expected header %q, got: %q", tt.want, buffer.String())
			}
			for _, line := range strings.Split(buffer.String(), SingleNewLine) {
				if len(line) > MaxHeaderLength {
					t.Errorf("header line exceeds %d characters: %q", MaxHeaderLength, line)
				}
			}
		})
	}
}

func TestMsg_WriteTo(t *testing.T) {
	t.Run("single text part", func(t *testing.T) {
		msg := testWriterMsg(t)
		msg.SetBodyString(TypeTextPlain, "Hello Jon")
		buffer := bytes.NewBuffer(nil)
		n, err := msg.WriteTo(buffer)
		if err != nil {
			t.Fatalf("failed to write message: %s", err)
		}
		if n != int64(buffer.Len()) {
			t.Errorf("expected %d bytes written, got: %d", buffer.Len(), n)
		}
		want := "Date: Mon, 01 Jan 2024 12:00:00 +0000\r\n" +
			"Message-ID: <test@example.com>\r\n" +
			"Subject: Test subject\r\n" +
			"User-Agent: test\r\n" +
			"X-Mailer: test\r\n" +
			"From: <noreply@example.com>\r\n" +
			"To: <jon@example.com>\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=UTF-8\r\n" +
			"Content-Transfer-Encoding: quoted-printable\r\n" +
			"\r\n" +
			"Hello Jon"
		if buffer.String() != want {
			t.Errorf("unexpected message output\nexpected: %q\ngot:      %q", want, buffer.String())
		}
		if strings.Contains(buffer.String(), "hidden@example.com") {
			t.Error("expected Bcc address not to be written")
		}
	})
	t.Run("base64 envelope part", func(t *testing.T) {
		msg := testWriterMsg(t, WithEncoding(EncodingB64))
		data := bytes.Repeat([]byte{0x30, 0x82, 0x01}, 100)
		msg.AddAlternativeBytes(TypeSMIMEEnveloped, data, WithPartEncoding(EncodingB64))
		buffer := bytes.NewBuffer(nil)
		if _, err := msg.WriteTo(buffer); err != nil {
			t.Fatalf("failed to write message: %s", err)
		}
		_, body, found := strings.Cut(buffer.String(), DoubleNewLine)
		if !found {
			t.Fatal("expected header and body to be separated by an empty line")
		}
		decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(body, SingleNewLine, ""))
		if err != nil {
			t.Fatalf("failed to decode body: %s", err)
		}
		if !bytes.Equal(decoded, data) {
			t.Error("expected decoded body to match the envelope data")
		}
		if strings.Contains(buffer.String(), "charset=") {
			t.Error("expected no charset parameter for the envelope part")
		}
	})
	t.Run("multipart alternative", func(t *testing.T) {
		msg := testWriterMsg(t, WithBoundary("test-boundary"))
		msg.SetBodyString(TypeTextPlain, "plain", WithPartEncoding(Encoding7bit))
		msg.AddAlternativeString(TypeTextHTML, "<p>html</p>", WithPartEncoding(Encoding7bit))
		buffer := bytes.NewBuffer(nil)
		if _, err := msg.WriteTo(buffer); err != nil {
			t.Fatalf("failed to write message: %s", err)
		}
		for _, want := range []string{
			"Content-Type: multipart/alternative;\r\n boundary=test-boundary\r\n\r\n",
			"--test-boundary\r\nContent-Transfer-Encoding: 7bit\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\nplain",
			"Content-Type: text/html; charset=UTF-8\r\n\r\n<p>html</p>",
			"\r\n--test-boundary--\r\n",
		} {
			if !strings.Contains(buffer.String(), want) {
				t.Errorf("expected message to contain %q, got: %q", want, buffer.String())
			}
		}
	})
	t.Run("default headers", func(t *testing.T) {
		msg := NewMsg()
		msg.SetBodyString(TypeTextPlain, "body")
		buffer := bytes.NewBuffer(nil)
		if _, err := msg.WriteTo(buffer); err != nil {
			t.Fatalf("failed to write message: %s", err)
		}
		for _, header := range []string{"Date: ", "Message-ID: <", "User-Agent: go-securemail v" + VERSION} {
			if !strings.Contains(buffer.String(), header) {
				t.Errorf("expected default header %q", header)
			}
		}
	})
	t.Run("fails on writer error", func(t *testing.T) {
		msg := testWriterMsg(t)
		msg.SetBodyString(TypeTextPlain, "body")
		if _, err := msg.WriteTo(&failingWriter{failAt: 3}); !errors.Is(err, errMockWrite) {
			t.Errorf("expected mock write error, got: %v", err)
		}
	})
}
