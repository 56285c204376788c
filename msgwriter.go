// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package securemail

import (
	"encoding/base64"
	"fmt"
	"io"
	"maps"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"slices"
	"strings"
)

// msgWriter handles the I/O to the io.WriteCloser of the SMTP client
type msgWriter struct {
	bytesWritten    int64
	depth           int8
	err             error
	multiPartWriter [1]*multipart.Writer
	partWriter      io.Writer
	writer          io.Writer
}

// Write implements the io.Writer interface for msgWriter
func (mw *msgWriter) Write(payload []byte) (int, error) {
	if mw.err != nil {
		return 0, fmt.Errorf("failed to write due to previous error: %w", mw.err)
	}

	var n int
	n, mw.err = mw.writer.Write(payload)
	mw.bytesWritten += int64(n)
	return n, mw.err
}

// writeMsg formats the message and sends it to its io.Writer. Generic headers are written in
// lexical order so that the output of a Msg is stable.
func (mw *msgWriter) writeMsg(msg *Msg) {
	msg.addDefaultHeader()
	for _, header := range slices.Sorted(maps.Keys(msg.genHeader)) {
		mw.writeHeader(header, msg.genHeader[header]...)
	}
	for _, addrHeader := range []AddrHeader{HeaderFrom, HeaderTo, HeaderCc} {
		if addresses, ok := msg.addrHeader[addrHeader]; ok && len(addresses) > 0 {
			values := make([]string, 0, len(addresses))
			for _, address := range addresses {
				values = append(values, address.String())
			}
			mw.writeHeader(Header(addrHeader), values...)
		}
	}
	mw.writeHeader(HeaderMIMEVersion, string(msg.mimever))

	if msg.hasAlt() {
		mw.startMP(MIMEAlternative, msg.boundary)
		mw.writeString(DoubleNewLine)
	}
	for _, part := range msg.parts {
		mw.writePart(part, msg.charset)
	}
	if msg.hasAlt() {
		mw.stopMP()
	}
}

// startMP writes a multipart beginning
func (mw *msgWriter) startMP(mimeType MIMEType, boundary string) {
	multiPartWriter := multipart.NewWriter(mw)
	if boundary != "" {
		mw.err = multiPartWriter.SetBoundary(boundary)
	}
	mw.multiPartWriter[mw.depth] = multiPartWriter
	mw.writeString(fmt.Sprintf("%s: multipart/%s;\r\n boundary=%s", HeaderContentType, mimeType,
		multiPartWriter.Boundary()))
	mw.depth++
}

// stopMP closes the multipart
func (mw *msgWriter) stopMP() {
	if mw.depth > 0 {
		mw.err = mw.multiPartWriter[mw.depth-1].Close()
		mw.depth--
	}
}

// newPart creates a new MIME multipart io.Writer and sets the partwriter to it
func (mw *msgWriter) newPart(header map[string][]string) {
	mw.partWriter, mw.err = mw.multiPartWriter[mw.depth-1].CreatePart(header)
}

// writePart writes the corresponding part to the Msg body. Only text parts carry a charset
// parameter, other media types are written as given.
func (mw *msgWriter) writePart(part *Part, charset Charset) {
	contentType := part.ctype.String()
	if part.ctype.isText() {
		contentType = fmt.Sprintf("%s; charset=%s", part.ctype, charset)
	}
	contentTransferEnc := part.enc.String()
	if mw.depth == 0 {
		mw.writeHeader(HeaderContentType, contentType)
		mw.writeHeader(HeaderContentTransferEnc, contentTransferEnc)
		mw.writeString(SingleNewLine)
	}
	if mw.depth > 0 {
		mimeHeader := textproto.MIMEHeader{}
		mimeHeader.Add(string(HeaderContentType), contentType)
		mimeHeader.Add(string(HeaderContentTransferEnc), contentTransferEnc)
		mw.newPart(mimeHeader)
	}
	mw.writeBody(part.w, part.enc)
}

// writeString writes a string into the msgWriter's io.Writer interface
func (mw *msgWriter) writeString(s string) {
	if mw.err != nil {
		return
	}
	var n int
	n, mw.err = io.WriteString(mw.writer, s)
	mw.bytesWritten += int64(n)
}

// writeHeader writes a header into the msgWriter's io.Writer. Values are folded at
// whitespace once the line would exceed MaxHeaderLength.
func (mw *msgWriter) writeHeader(key Header, values ...string) {
	buffer := strings.Builder{}
	buffer.WriteString(string(key))
	buffer.WriteString(":")
	if len(values) == 0 {
		mw.writeString(buffer.String() + SingleNewLine)
		return
	}

	// Chars left: MaxHeaderLength - "CRLF"
	maxLength := MaxHeaderLength - 2
	lineLength := len(key) + 1
	for i, word := range strings.Split(strings.Join(values, ", "), " ") {
		if i > 0 && lineLength+1+len(word) > maxLength {
			buffer.WriteString(SingleNewLine)
			lineLength = 0
		}
		buffer.WriteString(" ")
		buffer.WriteString(word)
		lineLength += 1 + len(word)
	}
	buffer.WriteString(SingleNewLine)
	mw.writeString(buffer.String())
}

// writeBody writes the output of the write function into the msgWriter using provided Encoding
func (mw *msgWriter) writeBody(writeFunc func(io.Writer) (int64, error), encoding Encoding) {
	if mw.err != nil {
		return
	}
	var writer io.Writer = mw
	if mw.depth > 0 {
		writer = mw.partWriter
	}

	switch encoding {
	case EncodingB64:
		lineBreaker := &Base64LineBreaker{out: writer}
		encoder := base64.NewEncoder(base64.StdEncoding, lineBreaker)
		if _, mw.err = writeFunc(encoder); mw.err != nil {
			return
		}
		if mw.err = encoder.Close(); mw.err != nil {
			return
		}
		mw.err = lineBreaker.Close()
	case NoEncoding, Encoding7bit:
		_, mw.err = writeFunc(writer)
	default:
		encoder := quotedprintable.NewWriter(writer)
		if _, mw.err = writeFunc(encoder); mw.err != nil {
			return
		}
		mw.err = encoder.Close()
	}
}
