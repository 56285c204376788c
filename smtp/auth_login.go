// SPDX-FileCopyrightText: Copyright (c) The go-mail Authors
//
// SPDX-License-Identifier: MIT

package smtp

import "fmt"

// Challenges the server sends during an AUTH LOGIN exchange
const (
	// LoginXUsernameChallenge is the username challenge of the Microsoft AUTH LOGIN extension
	LoginXUsernameChallenge = "Username:"

	// LoginXPasswordChallenge is the password challenge of the Microsoft AUTH LOGIN extension
	LoginXPasswordChallenge = "Password:"

	// LoginXDraftUsernameChallenge is the username challenge of the expired
	// draft-murchison-sasl-login
	LoginXDraftUsernameChallenge = "User Name\x00"

	// LoginXDraftPasswordChallenge is the password challenge of the expired
	// draft-murchison-sasl-login
	LoginXDraftPasswordChallenge = "Password\x00"
)

type loginAuth struct {
	username, password string
	host               string
	allowUnencrypted   bool
}

// LoginAuth returns an Auth that implements the LOGIN authentication mechanism as used by
// Microsoft Exchange. Username and password are sent in separate steps after the server
// asked for them.
//
// LoginAuth only sends the credentials if the connection is using TLS or is connected to
// localhost, unless allowUnencrypted is set.
func LoginAuth(username, password, host string, allowUnencrypted bool) Auth {
	return &loginAuth{username, password, host, allowUnencrypted}
}

func (a *loginAuth) Start(server *ServerInfo) (string, []byte, error) {
	if err := checkCredentialTransport(server, a.host, a.allowUnencrypted); err != nil {
		return "", nil, err
	}
	return "LOGIN", nil, nil
}

func (a *loginAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if !more {
		return nil, nil
	}
	switch string(fromServer) {
	case LoginXUsernameChallenge, LoginXDraftUsernameChallenge:
		return []byte(a.username), nil
	case LoginXPasswordChallenge, LoginXDraftPasswordChallenge:
		return []byte(a.password), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedServerResponse, fromServer)
	}
}
