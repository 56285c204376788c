// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package securemail

import (
	"errors"
	"io"
)

// newlineBytes is a byte slice representation of the SingleNewLine constant used for line breaking
// in encoding processes.
var newlineBytes = []byte(SingleNewLine)

// ErrNoOutWriter is the error returned when no io.Writer is set for Base64LineBreaker.
var ErrNoOutWriter = errors.New("no io.Writer set for Base64LineBreaker")

// Base64LineBreaker is used to handle base64 encoding with the insertion of new lines after a certain
// number of characters.
//
// It satisfies the io.WriteCloser interface.
type Base64LineBreaker struct {
	line [MaxBodyLength]byte
	used int
	out  io.Writer
}

// Write writes data to the Base64LineBreaker, ensuring lines do not exceed MaxBodyLength.
// It handles continuation if data length exceeds the limit and writes new lines accordingly.
func (l *Base64LineBreaker) Write(data []byte) (numBytes int, err error) {
	if l.out == nil {
		return 0, ErrNoOutWriter
	}
	for len(data) > 0 {
		if l.used+len(data) < MaxBodyLength {
			copy(l.line[l.used:], data)
			l.used += len(data)
			numBytes += len(data)
			return numBytes, nil
		}

		excess := MaxBodyLength - l.used
		if _, err = l.out.Write(l.line[0:l.used]); err != nil {
			return numBytes, err
		}
		if _, err = l.out.Write(data[0:excess]); err != nil {
			return numBytes, err
		}
		if _, err = l.out.Write(newlineBytes); err != nil {
			return numBytes, err
		}
		l.used = 0
		numBytes += excess
		data = data[excess:]
	}
	return numBytes, nil
}

// Close finalizes the Base64LineBreaker, writing any remaining buffered data and appending a newline.
func (l *Base64LineBreaker) Close() (err error) {
	if l.used > 0 {
		if l.out == nil {
			return ErrNoOutWriter
		}
		if _, err = l.out.Write(l.line[0:l.used]); err != nil {
			return err
		}
		_, err = l.out.Write(newlineBytes)
		l.used = 0
	}
	return err
}
