// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package securemail

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/mail"
	"os"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNoFromAddress should be used when a FROM address is requested but not set
	ErrNoFromAddress = errors.New("no FROM address set")

	// ErrNoRcptAddresses should be used when the list of RCPTs is empty
	ErrNoRcptAddresses = errors.New("no recipient addresses set")
)

// Msg represents an outbound mail message
type Msg struct {
	// addrHeader holds the address header fields of the Msg
	addrHeader map[AddrHeader][]*mail.Address

	// boundary is the MIME content boundary used if the Msg has more than one part
	boundary string

	// charset represents the charset of the mail (defaults to UTF-8)
	charset Charset

	// encoder represents a mime.WordEncoder from the std lib
	encoder mime.WordEncoder

	// encoding represents the message encoding (the encoder will be a corresponding WordEncoder)
	encoding Encoding

	// genHeader holds the generic header fields of the Msg
	genHeader map[Header][]string

	// mimever represents the MIME version
	mimever MIMEVersion

	// parts represent the different body parts of the Msg
	parts []*Part

	// sendError holds the SendError of the last delivery attempt of the Msg
	sendError error
}

// MsgOption returns a function that can be used for grouping Msg options
type MsgOption func(*Msg)

// NewMsg returns a new Msg pointer
func NewMsg(opts ...MsgOption) *Msg {
	msg := &Msg{
		addrHeader: make(map[AddrHeader][]*mail.Address),
		charset:    CharsetUTF8,
		encoding:   EncodingQP,
		genHeader:  make(map[Header][]string),
		mimever:    Mime10,
	}

	for _, option := range opts {
		if option == nil {
			continue
		}
		option(msg)
	}
	msg.encoder = getEncoder(msg.encoding)

	return msg
}

// WithCharset overrides the default message charset
func WithCharset(c Charset) MsgOption {
	return func(m *Msg) {
		m.charset = c
	}
}

// WithEncoding overrides the default message encoding
func WithEncoding(e Encoding) MsgOption {
	return func(m *Msg) {
		m.encoding = e
	}
}

// WithBoundary overrides the default MIME boundary
func WithBoundary(b string) MsgOption {
	return func(m *Msg) {
		m.boundary = b
	}
}

// Charset returns the currently set charset of the Msg
func (m *Msg) Charset() string {
	return m.charset.String()
}

// Encoding returns the currently set encoding of the Msg
func (m *Msg) Encoding() string {
	return m.encoding.String()
}

// SetHeader sets a generic header field of the Msg. Values are encoded with the word
// encoder of the Msg if they contain characters that require it.
func (m *Msg) SetHeader(header Header, values ...string) {
	encoded := make([]string, len(values))
	for i, value := range values {
		encoded[i] = m.encodeString(value)
	}
	m.genHeader[header] = encoded
}

// SetAddrHeader sets an address related header field of the Msg. Every value must be a
// RFC 5322 compliant address.
func (m *Msg) SetAddrHeader(header AddrHeader, values ...string) error {
	addresses := make([]*mail.Address, 0, len(values))
	for _, value := range values {
		address, err := mail.ParseAddress(value)
		if err != nil {
			return fmt.Errorf("failed to parse mail address header %q: %w", value, err)
		}
		addresses = append(addresses, address)
	}
	if header == HeaderFrom && len(addresses) > 1 {
		addresses = addresses[:1]
	}
	m.addrHeader[header] = addresses
	return nil
}

// From takes and validates a given mail address and sets it as "From" header of the Msg
func (m *Msg) From(from string) error {
	return m.SetAddrHeader(HeaderFrom, from)
}

// To takes and validates a given mail address list sets the To: addresses of the Msg
func (m *Msg) To(rcpts ...string) error {
	return m.SetAddrHeader(HeaderTo, rcpts...)
}

// AddTo adds an additional address to the To address header field
func (m *Msg) AddTo(rcpt string) error {
	return m.addAddr(HeaderTo, rcpt)
}

// Cc takes and validates a given mail address list sets the Cc: addresses of the Msg
func (m *Msg) Cc(rcpts ...string) error {
	return m.SetAddrHeader(HeaderCc, rcpts...)
}

// Bcc takes and validates a given mail address list sets the Bcc: addresses of the Msg
func (m *Msg) Bcc(rcpts ...string) error {
	return m.SetAddrHeader(HeaderBcc, rcpts...)
}

// addAddr adds an additional address to the given addrHeader of the Msg
func (m *Msg) addAddr(header AddrHeader, addr string) error {
	var addresses []string
	for _, address := range m.addrHeader[header] {
		addresses = append(addresses, address.String())
	}
	addresses = append(addresses, addr)
	return m.SetAddrHeader(header, addresses...)
}

// Subject sets the "Subject" header field of the Msg
func (m *Msg) Subject(subj string) {
	m.SetHeader(HeaderSubject, subj)
}

// SetMessageID generates a random message id for the mail in the form <uuid@hostname>
func (m *Msg) SetMessageID() {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost.localdomain"
	}
	m.SetMessageIDWithValue(fmt.Sprintf("%s@%s", uuid.NewString(), hostname))
}

// SetMessageIDWithValue sets the message id for the mail
func (m *Msg) SetMessageIDWithValue(messageID string) {
	m.SetHeader(HeaderMessageID, fmt.Sprintf("<%s>", messageID))
}

// GetMessageID returns the message ID of the Msg, if set, or an empty string otherwise
func (m *Msg) GetMessageID() string {
	if msgIDs, ok := m.genHeader[HeaderMessageID]; ok && len(msgIDs) > 0 {
		return msgIDs[0]
	}
	return ""
}

// SetDate sets the Date header field to the current time in a valid format
func (m *Msg) SetDate() {
	m.SetDateWithValue(time.Now())
}

// SetDateWithValue sets the Date header field to the provided time in a valid format
func (m *Msg) SetDateWithValue(timeVal time.Time) {
	m.SetHeader(HeaderDate, timeVal.Format(time.RFC1123Z))
}

// SetUserAgent sets the User-Agent/X-Mailer header for the Msg
func (m *Msg) SetUserAgent(userAgent string) {
	m.SetHeader(HeaderUserAgent, userAgent)
	m.SetHeader(HeaderXMailer, userAgent)
}

// GetSender returns the currently set FROM address. If fullAddr is true, it will return the full
// address string including the address name, if set
func (m *Msg) GetSender(fullAddr bool) (string, error) {
	from, ok := m.addrHeader[HeaderFrom]
	if !ok || len(from) == 0 {
		return "", ErrNoFromAddress
	}
	if fullAddr {
		return from[0].String(), nil
	}
	return from[0].Address, nil
}

// GetRecipients returns a list of the currently set TO/CC/BCC addresses.
func (m *Msg) GetRecipients() ([]string, error) {
	var rcpts []string
	for _, header := range []AddrHeader{HeaderTo, HeaderCc, HeaderBcc} {
		for _, address := range m.addrHeader[header] {
			rcpts = append(rcpts, address.Address)
		}
	}
	if len(rcpts) == 0 {
		return rcpts, ErrNoRcptAddresses
	}
	return rcpts, nil
}

// GetAddrHeader returns the content of the requested address header of the Msg
func (m *Msg) GetAddrHeader(header AddrHeader) []*mail.Address {
	return m.addrHeader[header]
}

// GetGenHeader returns the content of the requested generic header of the Msg
func (m *Msg) GetGenHeader(header Header) []string {
	return m.genHeader[header]
}

// HasSendError reports whether the last delivery attempt of the Msg failed
func (m *Msg) HasSendError() bool {
	return m.sendError != nil
}

// SendError returns the error of the last delivery attempt of the Msg, if any
func (m *Msg) SendError() error {
	return m.sendError
}

// SendErrorIsTemp reports whether the last delivery attempt of the Msg failed with a
// temporary error
func (m *Msg) SendErrorIsTemp() bool {
	var sendErr *SendError
	if errors.As(m.sendError, &sendErr) && sendErr != nil {
		return sendErr.isTemp
	}
	return false
}

// GetParts returns the body parts of the Msg
func (m *Msg) GetParts() []*Part {
	return m.parts
}

// SetBodyString sets the body of the message, replacing all existing parts.
func (m *Msg) SetBodyString(contentType ContentType, content string, opts ...PartOption) {
	part := m.newPart(contentType, opts...)
	part.w = writeFuncFromBytes([]byte(content))
	m.parts = []*Part{part}
}

// AddAlternativeBytes adds an alternative body part holding the given bytes to the message.
func (m *Msg) AddAlternativeBytes(contentType ContentType, content []byte, opts ...PartOption) {
	part := m.newPart(contentType, opts...)
	part.w = writeFuncFromBytes(content)
	m.parts = append(m.parts, part)
}

// AddAlternativeString adds an alternative body part holding the given string to the message.
func (m *Msg) AddAlternativeString(contentType ContentType, content string, opts ...PartOption) {
	m.AddAlternativeBytes(contentType, []byte(content), opts...)
}

// WriteTo writes the formatted Msg into a give io.Writer and satisfies the io.WriterTo interface
func (m *Msg) WriteTo(writer io.Writer) (int64, error) {
	mw := &msgWriter{writer: writer}
	mw.writeMsg(m)
	return mw.bytesWritten, mw.err
}

// encodeString encodes a string based on the configured message encoder and the corresponding
// charset for the Msg
func (m *Msg) encodeString(str string) string {
	return m.encoder.Encode(string(m.charset), str)
}

// hasAlt returns true if the Msg has more than one part
func (m *Msg) hasAlt() bool {
	return len(m.parts) > 1
}

// newPart returns a new Part for the Msg
func (m *Msg) newPart(contentType ContentType, opts ...PartOption) *Part {
	p := &Part{
		ctype: contentType,
		enc:   m.encoding,
	}
	for _, option := range opts {
		if option == nil {
			continue
		}
		option(p)
	}
	return p
}

// addDefaultHeader sets some default headers, if they haven't been set before
func (m *Msg) addDefaultHeader() {
	if _, ok := m.genHeader[HeaderDate]; !ok {
		m.SetDate()
	}
	if _, ok := m.genHeader[HeaderMessageID]; !ok {
		m.SetMessageID()
	}
	if _, ok := m.genHeader[HeaderUserAgent]; !ok {
		m.SetUserAgent(fmt.Sprintf("go-securemail v%s // https://github.com/wneessen/go-securemail", VERSION))
	}
}

// getEncoder creates a new mime.WordEncoder based on the encoding setting of the message
func getEncoder(enc Encoding) mime.WordEncoder {
	switch enc {
	case EncodingQP:
		return mime.QEncoding
	case EncodingB64:
		return mime.BEncoding
	default:
		return mime.QEncoding
	}
}
