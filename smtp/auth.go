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

package smtp

import "errors"

var (
	// ErrUnencrypted is returned if credentials would be sent over an unencrypted connection
	ErrUnencrypted = errors.New("unencrypted connection")

	// ErrWrongHostname is returned if the server name does not match the name the Auth was
	// created for
	ErrWrongHostname = errors.New("wrong host name")

	// ErrUnexpectedServerChallenge is returned if the server sends a challenge after all
	// credentials were sent
	ErrUnexpectedServerChallenge = errors.New("unexpected server challenge")

	// ErrUnexpectedServerResponse is returned if the server response cannot be processed by
	// the mechanism
	ErrUnexpectedServerResponse = errors.New("unexpected server response")
)

// Auth is implemented by an SMTP authentication mechanism.
type Auth interface {
	// Start begins an authentication with a server. It returns the name of the mechanism and
	// optionally data to include in the initial AUTH message sent to the server. If it
	// returns a non-nil error, the authentication is aborted and the connection closed.
	Start(server *ServerInfo) (proto string, toServer []byte, err error)

	// Next continues the authentication. The server has just sent the fromServer data. If
	// more is true, the server expects a response, which Next returns as toServer;
	// otherwise Next should return nil.
	Next(fromServer []byte, more bool) (toServer []byte, err error)
}

// ServerInfo records information about an SMTP server.
type ServerInfo struct {
	Name string   // SMTP server name
	TLS  bool     // using TLS, with valid certificate for Name
	Auth []string // advertised authentication mechanisms
}

// isLocalhost reports whether credentials may be sent to the server without TLS
func isLocalhost(name string) bool {
	return name == "localhost" || name == "127.0.0.1" || name == "::1"
}

// checkCredentialTransport makes sure a mechanism that sends credentials in the clear only
// talks to the expected host over TLS or to localhost
func checkCredentialTransport(server *ServerInfo, host string, allowUnencrypted bool) error {
	if !allowUnencrypted && !server.TLS && !isLocalhost(server.Name) {
		return ErrUnencrypted
	}
	if server.Name != host {
		return ErrWrongHostname
	}
	return nil
}
