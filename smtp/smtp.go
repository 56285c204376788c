// SPDX-FileCopyrightText: Copyright 2010 The Go Authors. All rights reserved.
// SPDX-FileCopyrightText: Copyright (c) The go-mail Authors
//
// Original net/smtp code from the Go stdlib by the Go Authors.
// Use of this source code is governed by a BSD-style
// LICENSE file that can be found in this directory.
//
// go-mail specific modifications by the go-mail Authors.
// Licensed under the MIT License.
// See [PROJECT ROOT]/LICENSES directory for more information.
//
// SPDX-License-Identifier: BSD-3-Clause AND MIT

// Package smtp implements the client side of the Simple Mail Transfer Protocol as defined in
// RFC 5321, as far as it is needed to deliver encrypted messages. It also implements the
// following extensions:
//
//	8BITMIME  RFC 1652
//	AUTH      RFC 2554
//	STARTTLS  RFC 3207
//	SMTPUTF8  RFC 6531
package smtp

import (
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/wneessen/go-securemail/log"
)

var (
	// ErrNonTLSConnection is returned when the TLS state of a plain connection is requested
	ErrNonTLSConnection = errors.New("connection is not using TLS")

	// ErrNoConnection is returned when an operation requires an established connection
	ErrNoConnection = errors.New("connection is not established")

	// ErrHelloAfterCommand is returned if Hello is called after another command
	ErrHelloAfterCommand = errors.New("smtp: Hello called after other methods")

	// ErrLineBreak is returned if a command argument contains a CR or LF
	ErrLineBreak = errors.New("smtp: A line must not contain CR or LF")
)

// authRedacted replaces SMTP authentication data in the debug log
const authRedacted = "<SMTP auth data redacted>"

// A Client represents a client connection to an SMTP server.
type Client struct {
	// Text is the textproto.Conn used by the Client
	Text *textproto.Conn

	// auth holds the authentication mechanisms advertised by the server
	auth []string

	// authIsActive is set while an AUTH exchange is running, so its data is redacted in the log
	authIsActive bool

	// conn is kept so a STARTTLS upgrade can wrap it
	conn net.Conn

	debug       bool
	didHello    bool
	ext         map[string]string
	helloError  error
	isConnected bool
	localName   string
	logAuthData bool
	logger      log.Logger
	mutex       sync.RWMutex
	serverName  string
	tls         bool
}

// Dial returns a new Client connected to an SMTP server at addr. The addr must include
// a port, as in "mail.example.com:smtp".
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	host, _, _ := net.SplitHostPort(addr)
	return NewClient(conn, host)
}

// NewClient returns a new Client using an existing connection. The host is used as server
// name during authentication. NewClient waits for the 220 greeting of the server.
func NewClient(conn net.Conn, host string) (*Client, error) {
	text := textproto.NewConn(conn)
	if _, _, err := text.ReadResponse(220); err != nil {
		if cerr := text.Close(); cerr != nil {
			return nil, errors.Join(err, cerr)
		}
		return nil, err
	}
	client := &Client{Text: text, conn: conn, serverName: host, localName: "localhost", isConnected: true}
	_, client.tls = conn.(*tls.Conn)
	return client, nil
}

// Close closes the connection without sending QUIT.
func (c *Client) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.isConnected = false
	return c.Text.Close()
}

// Hello sends a HELO or EHLO to the server as the given host name. Calling Hello is only
// necessary if the client needs control over the host name used; otherwise the client
// introduces itself as "localhost". If Hello is called, it must be called before any other
// method.
func (c *Client) Hello(localName string) error {
	if err := validateLine(localName); err != nil {
		return err
	}
	if c.didHello {
		return ErrHelloAfterCommand
	}
	c.mutex.Lock()
	c.localName = localName
	c.mutex.Unlock()
	return c.hello()
}

// hello runs the EHLO exchange once and falls back to HELO if the server rejects EHLO
func (c *Client) hello() error {
	if c.didHello {
		return c.helloError
	}
	c.didHello = true
	if err := c.ehlo(); err != nil {
		c.helloError = c.helo()
	}
	return c.helloError
}

// ehlo sends the EHLO greeting and records the advertised extensions
func (c *Client) ehlo() error {
	_, msg, err := c.cmd(250, "EHLO %s", c.localName)
	if err != nil {
		return err
	}
	ext := make(map[string]string)
	lines := strings.Split(msg, "\n")
	for _, line := range lines[1:] {
		keyword, param, _ := strings.Cut(line, " ")
		ext[strings.ToUpper(keyword)] = param
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if mechs, ok := ext["AUTH"]; ok {
		c.auth = strings.Split(mechs, " ")
	}
	c.ext = ext
	return nil
}

// helo sends the HELO greeting for servers that do not understand EHLO
func (c *Client) helo() error {
	c.mutex.Lock()
	c.ext = nil
	c.mutex.Unlock()
	_, _, err := c.cmd(250, "HELO %s", c.localName)
	return err
}

// cmd sends a command and reads the response. An expectCode of 0 accepts any code.
func (c *Client) cmd(expectCode int, format string, args ...interface{}) (int, string, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.authIsActive {
		c.debugLog(log.DirClientToServer, "%s", authRedacted)
	} else {
		c.debugLog(log.DirClientToServer, format, args...)
	}

	id, err := c.Text.Cmd(format, args...)
	if err != nil {
		return 0, "", err
	}
	c.Text.StartResponse(id)
	defer c.Text.EndResponse(id)
	code, msg, err := c.Text.ReadResponse(expectCode)

	if c.authIsActive && code >= 300 && code < 400 {
		c.debugLog(log.DirServerToClient, "%d %s", code, authRedacted)
	} else {
		c.debugLog(log.DirServerToClient, "%d %s", code, msg)
	}
	return code, msg, err
}

// StartTLS sends the STARTTLS command and encrypts all further communication. Only servers
// that advertise the STARTTLS extension support this function.
func (c *Client) StartTLS(config *tls.Config) error {
	if err := c.hello(); err != nil {
		return err
	}
	if _, _, err := c.cmd(220, "STARTTLS"); err != nil {
		return err
	}
	c.mutex.Lock()
	c.conn = tls.Client(c.conn, config)
	c.Text = textproto.NewConn(c.conn)
	c.tls = true
	c.mutex.Unlock()
	return c.ehlo()
}

// TLSConnectionState returns the TLS state of the current connection. It fails with
// ErrNoConnection or ErrNonTLSConnection if there is no TLS connection.
func (c *Client) TLSConnectionState() (*tls.ConnectionState, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	if !c.isConnected {
		return nil, ErrNoConnection
	}
	if !c.tls {
		return nil, ErrNonTLSConnection
	}
	conn, ok := c.conn.(*tls.Conn)
	if !ok {
		return nil, errors.New("unable to retrieve TLS connection state")
	}
	state := conn.ConnectionState()
	return &state, nil
}

// Auth authenticates the client using the provided mechanism. A failed authentication
// closes the connection. Only servers that advertise the AUTH extension support this
// function.
func (c *Client) Auth(a Auth) error {
	if err := c.hello(); err != nil {
		return err
	}

	c.setAuthActive(true)
	defer c.setAuthActive(false)

	encoding := base64.StdEncoding
	c.mutex.RLock()
	server := &ServerInfo{Name: c.serverName, TLS: c.tls, Auth: c.auth}
	c.mutex.RUnlock()
	mech, resp, err := a.Start(server)
	if err != nil {
		if qerr := c.Quit(); qerr != nil {
			return errors.Join(err, qerr)
		}
		return err
	}
	code, msg64, err := c.cmd(0, "%s", strings.TrimSpace(fmt.Sprintf("AUTH %s %s", mech,
		encoding.EncodeToString(resp))))
	for err == nil {
		var msg []byte
		switch code {
		case 334:
			msg, err = encoding.DecodeString(msg64)
		case 235:
			// the final message is no challenge and not base64 encoded
			msg = []byte(msg64)
		default:
			err = &textproto.Error{Code: code, Msg: msg64}
		}
		if err == nil {
			resp, err = a.Next(msg, code == 334)
		}
		if err != nil {
			if mech != "XOAUTH2" {
				_, _, _ = c.cmd(501, "*")
			}
			_ = c.Quit()
			break
		}
		if resp == nil {
			break
		}
		code, msg64, err = c.cmd(0, "%s", encoding.EncodeToString(resp))
	}
	return err
}

// Mail issues a MAIL command for the given sender address. The BODY=8BITMIME and SMTPUTF8
// parameters are added if the server supports them.
func (c *Client) Mail(from string) error {
	if err := validateLine(from); err != nil {
		return err
	}
	if err := c.hello(); err != nil {
		return err
	}
	cmdStr := "MAIL FROM:<%s>"
	c.mutex.RLock()
	if _, ok := c.ext["8BITMIME"]; ok {
		cmdStr += " BODY=8BITMIME"
	}
	if _, ok := c.ext["SMTPUTF8"]; ok {
		cmdStr += " SMTPUTF8"
	}
	c.mutex.RUnlock()
	_, _, err := c.cmd(250, cmdStr, from)
	return err
}

// Rcpt issues a RCPT command for the given recipient address. A call to Rcpt must be
// preceded by a call to Mail.
func (c *Client) Rcpt(to string) error {
	if err := validateLine(to); err != nil {
		return err
	}
	_, _, err := c.cmd(25, "RCPT TO:<%s>", to)
	return err
}

// dataCloser wraps the DATA dot writer and reads the server response on Close
type dataCloser struct {
	client *Client
	io.WriteCloser
}

// Close ends the DATA transfer and waits for the server to accept the message
func (d *dataCloser) Close() error {
	d.client.mutex.Lock()
	defer d.client.mutex.Unlock()
	_ = d.WriteCloser.Close()
	code, msg, err := d.client.Text.ReadResponse(250)
	d.client.debugLog(log.DirServerToClient, "%d %s", code, msg)
	return err
}

// Write writes message data while holding the client lock
func (d *dataCloser) Write(p []byte) (int, error) {
	d.client.mutex.Lock()
	defer d.client.mutex.Unlock()
	return d.WriteCloser.Write(p)
}

// Data issues a DATA command and returns a writer for the message headers and body. The
// caller must close the writer before calling any other method of the Client.
func (c *Client) Data() (io.WriteCloser, error) {
	if _, _, err := c.cmd(354, "DATA"); err != nil {
		return nil, err
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return &dataCloser{client: c, WriteCloser: c.Text.DotWriter()}, nil
}

// Extension reports whether an extension is supported by the server. The name is
// case-insensitive. For supported extensions the parameters of the server are returned
// as well.
func (c *Client) Extension(ext string) (bool, string) {
	if err := c.hello(); err != nil {
		return false, ""
	}
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	if c.ext == nil {
		return false, ""
	}
	param, ok := c.ext[strings.ToUpper(ext)]
	return ok, param
}

// Reset sends the RSET command, aborting the current mail transaction.
func (c *Client) Reset() error {
	if err := c.hello(); err != nil {
		return err
	}
	_, _, err := c.cmd(250, "RSET")
	return err
}

// Noop sends the NOOP command to check that the connection is still usable.
func (c *Client) Noop() error {
	if err := c.hello(); err != nil {
		return err
	}
	_, _, err := c.cmd(250, "NOOP")
	return err
}

// Quit sends the QUIT command and closes the connection.
func (c *Client) Quit() error {
	_ = c.hello() // we are quitting anyway
	if _, _, err := c.cmd(221, "QUIT"); err != nil {
		return err
	}
	return c.Close()
}

// SetDebugLog enables the debug logging of the SMTP dialog. If no logger is set, a
// log.Stdlog writing to os.Stderr is used.
func (c *Client) SetDebugLog(enabled bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.debug = enabled
	if enabled && c.logger == nil {
		c.logger = log.New(os.Stderr, log.LevelDebug)
	}
}

// SetLogger sets the logger used for the debug logging
func (c *Client) SetLogger(logger log.Logger) {
	if logger == nil {
		return
	}
	c.mutex.Lock()
	c.logger = logger
	c.mutex.Unlock()
}

// SetLogAuthData disables the redaction of authentication data in the debug log
func (c *Client) SetLogAuthData() {
	c.mutex.Lock()
	c.logAuthData = true
	c.mutex.Unlock()
}

// HasConnection reports whether the client is connected
func (c *Client) HasConnection() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.isConnected
}

// UpdateDeadline sets a new deadline on the connection, timeout from now.
func (c *Client) UpdateDeadline(timeout time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.conn == nil {
		return ErrNoConnection
	}
	if err := c.conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return fmt.Errorf("smtp: failed to update deadline: %w", err)
	}
	return nil
}

func (c *Client) setAuthActive(active bool) {
	c.mutex.Lock()
	if !c.logAuthData {
		c.authIsActive = active
	}
	c.mutex.Unlock()
}

// debugLog logs the SMTP dialog if debug logging is enabled. The caller must hold the lock.
func (c *Client) debugLog(direction log.Direction, format string, args ...interface{}) {
	if c.debug && c.logger != nil {
		c.logger.Debugf(log.Log{Direction: direction, Format: format, Messages: args})
	}
}

// validateLine checks that a command argument contains no CR or LF as per RFC 5321
func validateLine(line string) error {
	if strings.ContainsAny(line, "\n\r") {
		return ErrLineBreak
	}
	return nil
}
