// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package securemail

import "strings"

// Charset is a type wrapper for a string representing different character encodings.
type Charset string

// ContentType is a type wrapper for a string and represents the MIME type of the content being handled.
type ContentType string

// Encoding represents a MIME encoding scheme like quoted-printable or base64.
type Encoding string

// MIMEType is a type wrapper for a string and represents the MIME type for the Msg content or parts.
type MIMEType string

// MIMEVersion is a type wrapper for a string and represents the MIME version used in email messages.
type MIMEVersion string

const (
	// EncodingB64 represents the Base64 encoding as specified in RFC 2045.
	EncodingB64 Encoding = "base64"

	// EncodingQP represents the "quoted-printable" encoding as specified in RFC 2045.
	EncodingQP Encoding = "quoted-printable"

	// Encoding7bit represents 7bit transfer as used for the inner envelope body.
	Encoding7bit Encoding = "7bit"

	// NoEncoding avoids any character encoding (except of the mail headers)
	NoEncoding Encoding = "8bit"
)

const (
	// CharsetUTF8 represents the "UTF-8" charset.
	CharsetUTF8 Charset = "UTF-8"

	// CharsetASCII represents the "US-ASCII" charset.
	CharsetASCII Charset = "US-ASCII"
)

const (
	// TypeTextPlain represents the MIME type for plain text content.
	TypeTextPlain ContentType = "text/plain"

	// TypeTextHTML represents the MIME type for HTML text content.
	TypeTextHTML ContentType = "text/html"

	// TypeAppOctetStream represents the MIME type for arbitrary binary data.
	TypeAppOctetStream ContentType = "application/octet-stream"

	// TypeSMIMEEnveloped is the media type the encrypted envelope is tagged with. The
	// smime-type parameter is kept as "signed-data" for compatibility with existing
	// receivers of these messages, even though the content is enveloped data.
	TypeSMIMEEnveloped ContentType = "application/pkcs7-mime; smime-type=signed-data; name=smime.p7m"
)

const (
	// MIMEAlternative MIMEType represents a MIME multipart/alternative type, used for emails with multiple versions.
	MIMEAlternative MIMEType = "alternative"

	// MIMEMixed MIMEType represents a MIME multipart/mixed type used for emails containing different types of content.
	MIMEMixed MIMEType = "mixed"
)

const (
	// Mime10 represents the MIME version "1.0" used in email messages.
	Mime10 MIMEVersion = "1.0"
)

const (
	// MaxHeaderLength defines the maximum line length for a mail header. RFC 2047 suggests 76 characters
	MaxHeaderLength = 76

	// MaxBodyLength defines the maximum line length for the mail body. RFC 2047 suggests 76 characters
	MaxBodyLength = 76

	// SingleNewLine represents a new line that can be used by the msgWriter to issue a carriage return
	SingleNewLine = "\r\n"

	// DoubleNewLine represents a double new line that can be used by the msgWriter to
	// indicate a new segment of the mail
	DoubleNewLine = "\r\n\r\n"
)

// String satisfies the fmt.Stringer interface for the Charset type.
func (c Charset) String() string {
	return string(c)
}

// String satisfies the fmt.Stringer interface for the ContentType type.
func (c ContentType) String() string {
	return string(c)
}

// String satisfies the fmt.Stringer interface for the Encoding type.
func (e Encoding) String() string {
	return string(e)
}

// isText reports whether the ContentType is a text/* media type that takes a charset parameter
func (c ContentType) isText() bool {
	return strings.HasPrefix(strings.ToLower(string(c)), "text/")
}

// toASCII converts s into its US-ASCII byte representation. Every rune outside of the
// ASCII range is replaced by a single question mark.
func toASCII(s string) []byte {
	buf := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0x7f {
			buf = append(buf, '?')
			continue
		}
		buf = append(buf, byte(r))
	}
	return buf
}
