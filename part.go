// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package securemail

import (
	"bytes"
	"io"
)

// PartOption returns a function that can be used for grouping Part options
type PartOption func(*Part)

// Part is a part of the Msg
type Part struct {
	ctype ContentType
	enc   Encoding
	w     func(io.Writer) (int64, error)
}

// GetContent executes the WriteFunc of the Part and returns the content as byte slice
func (p *Part) GetContent() ([]byte, error) {
	var b bytes.Buffer
	if _, err := p.w(&b); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// GetContentType returns the currently set ContentType of the Part
func (p *Part) GetContentType() ContentType {
	return p.ctype
}

// GetEncoding returns the currently set Encoding of the Part
func (p *Part) GetEncoding() Encoding {
	return p.enc
}

// WithPartEncoding overrides the default Part encoding
func WithPartEncoding(e Encoding) PartOption {
	return func(p *Part) {
		p.enc = e
	}
}

// writeFuncFromBytes returns a write function that writes a copy of the given bytes. The copy
// makes the Part independent of later modifications of b.
func writeFuncFromBytes(b []byte) func(io.Writer) (int64, error) {
	content := bytes.Clone(b)
	return func(w io.Writer) (int64, error) {
		n, err := w.Write(content)
		return int64(n), err
	}
}
