// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package securemail

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

var errMockWrite = errors.New("mock write error")

// failingWriter fails on the write call with the given index
type failingWriter struct {
	failAt int
	calls  int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	defer func() { w.calls++ }()
	if w.calls == w.failAt {
		return 0, errMockWrite
	}
	return len(p), nil
}

func TestBase64LineBreaker(t *testing.T) {
	sizes := []int{0, 1, 56, 57, 58, 1024, 4096 + 17}
	for _, size := range sizes {
		data := make([]byte, size)
		if _, err := rand.Read(data); err != nil {
			t.Fatalf("failed to read random data: %s", err)
		}
		buffer := bytes.NewBuffer(nil)
		lineBreaker := &Base64LineBreaker{out: buffer}
		encoder := base64.NewEncoder(base64.StdEncoding, lineBreaker)
		if _, err := encoder.Write(data); err != nil {
			t.Fatalf("failed to write %d bytes: %s", size, err)
		}
		if err := encoder.Close(); err != nil {
			t.Fatalf("failed to close encoder: %s", err)
		}
		if err := lineBreaker.Close(); err != nil {
			t.Fatalf("failed to close line breaker: %s", err)
		}

		output := buffer.String()
		if size > 0 && !strings.HasSuffix(output, SingleNewLine) {
			t.Errorf("%d bytes: expected output to end with CRLF", size)
		}
		lines := strings.Split(strings.TrimSuffix(output, SingleNewLine), SingleNewLine)
		for i, line := range lines {
			if len(line) > MaxBodyLength {
				t.Errorf("%d bytes: line %d exceeds %d characters: %d", size, i, MaxBodyLength, len(line))
			}
		}
		decoded, err := base64.StdEncoding.DecodeString(strings.Join(lines, ""))
		if err != nil {
			t.Fatalf("%d bytes: failed to decode output: %s", size, err)
		}
		if !bytes.Equal(decoded, data) {
			t.Errorf("%d bytes: decoded output does not match input", size)
		}
	}
}

func TestBase64LineBreaker_Errors(t *testing.T) {
	t.Run("no writer", func(t *testing.T) {
		lineBreaker := &Base64LineBreaker{}
		if _, err := lineBreaker.Write([]byte("data")); !errors.Is(err, ErrNoOutWriter) {
			t.Errorf("expected ErrNoOutWriter, got: %v", err)
		}
		lineBreaker.used = 1
		if err := lineBreaker.Close(); !errors.Is(err, ErrNoOutWriter) {
			t.Errorf("expected ErrNoOutWriter on close, got: %v", err)
		}
	})
	for failAt, name := range []string{"buffered line", "excess data", "newline"} {
		t.Run("fails on "+name, func(t *testing.T) {
			lineBreaker := &Base64LineBreaker{out: &failingWriter{failAt: failAt}}
			if _, err := lineBreaker.Write(bytes.Repeat([]byte("A"), MaxBodyLength*2)); !errors.Is(err, errMockWrite) {
				t.Errorf("expected mock write error, got: %v", err)
			}
		})
	}
	t.Run("fails on close", func(t *testing.T) {
		lineBreaker := &Base64LineBreaker{out: &failingWriter{failAt: 0}}
		if _, err := lineBreaker.Write([]byte("AAAA")); err != nil {
			t.Fatalf("expected buffered write to succeed, got: %s", err)
		}
		if err := lineBreaker.Close(); !errors.Is(err, errMockWrite) {
			t.Errorf("expected mock write error, got: %v", err)
		}
	})
}
