// SPDX-FileCopyrightText: Copyright (c) The go-mail Authors
//
// SPDX-License-Identifier: MIT

package smtp

type plainAuth struct {
	identity, username, password string
	host                         string
	allowUnencryptedAuth         bool
}

// PlainAuth returns an Auth that implements the PLAIN authentication mechanism as defined in
// RFC 4616. The returned Auth uses the given username and password to authenticate to host
// and act as identity. Usually identity should be the empty string, to act as username.
//
// PlainAuth only sends the credentials if the connection is using TLS or is connected to
// localhost, unless allowUnencrypted is set.
func PlainAuth(identity, username, password, host string, allowUnencrypted bool) Auth {
	return &plainAuth{identity, username, password, host, allowUnencrypted}
}

func (a *plainAuth) Start(server *ServerInfo) (string, []byte, error) {
	if err := checkCredentialTransport(server, a.host, a.allowUnencryptedAuth); err != nil {
		return "", nil, err
	}
	return "PLAIN", []byte(a.identity + "\x00" + a.username + "\x00" + a.password), nil
}

func (a *plainAuth) Next(_ []byte, more bool) ([]byte, error) {
	if more {
		return nil, ErrUnexpectedServerChallenge
	}
	return nil, nil
}
