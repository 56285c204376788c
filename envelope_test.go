// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package securemail

import (
	"strings"
	"testing"
)

const envelopeHeader = "content-type: multipart/mixed; boundary=unique-boundary-1\r\n\r\n" +
	"--unique-boundary-1\r\n" +
	"Content-Type: text/html\r\n" +
	"Content-Transfer-Encoding: 7bit\r\n\r\n"

const envelopeFooter = "\r\n--unique-boundary-1\r\n"

func TestBuildEnvelopeBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"simple HTML", "<p>Hello World</p>"},
		{"multiline HTML", "<html>\r\n<body>\r\n<p>Line</p>\r\n</body>\r\n</html>"},
		{"trailing newline", "<p>Hello</p>\n"},
		{"non-ASCII text", "<p>Grüße</p>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildEnvelopeBody(tt.body)
			if want := envelopeHeader + tt.body + envelopeFooter; got != want {
				t.Errorf("unexpected envelope body, expected: %q, got: %q", want, got)
			}
			if !strings.HasPrefix(got, envelopeHeader) {
				t.Error("expected envelope body to start with the multipart header")
			}
			if !strings.HasSuffix(got, envelopeFooter) {
				t.Error("expected envelope body to end with the boundary footer")
			}
		})
	}
}

func TestBuildEnvelopeBodyWithBoundary(t *testing.T) {
	got := BuildEnvelopeBodyWithBoundary("<p>Hi</p>", "abc123")
	want := "content-type: multipart/mixed; boundary=abc123\r\n\r\n--abc123\r\nContent-Type: text/html\r\n" +
		"Content-Transfer-Encoding: 7bit\r\n\r\n<p>Hi</p>\r\n--abc123\r\n"
	if got != want {
		t.Errorf("unexpected envelope body, expected: %q, got: %q", want, got)
	}
	if BuildEnvelopeBodyWithBoundary("<p>Hi</p>", "") != BuildEnvelopeBody("<p>Hi</p>") {
		t.Error("expected empty boundary to fall back to EnvelopeBoundary")
	}
}
