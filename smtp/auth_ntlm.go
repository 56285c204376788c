// SPDX-FileCopyrightText: Copyright (c) The go-mail Authors
//
// SPDX-License-Identifier: MIT

package smtp

import (
	"errors"

	"github.com/Azure/go-ntlmssp"
)

// ErrNTLMChallengeEmpty is returned if the server sends an empty NTLM challenge message
var ErrNTLMChallengeEmpty = errors.New("NTLMv2 challenge message is empty")

type ntlmAuth struct {
	domain, password, username, workstation string
	domainNeeded                            bool
}

// NTLMv2Auth returns an Auth that implements the NTLMv2 mechanism via go-ntlmssp. The username
// may carry the domain, as in "DOMAIN\user" or "user@domain".
func NTLMv2Auth(username, password, workstation string) Auth {
	user, domain, domainNeeded := ntlmssp.GetDomain(username)
	return &ntlmAuth{
		domain:       domain,
		password:     password,
		username:     user,
		workstation:  workstation,
		domainNeeded: domainNeeded,
	}
}

func (a *ntlmAuth) Start(_ *ServerInfo) (string, []byte, error) {
	negotiate, err := ntlmssp.NewNegotiateMessage(a.domain, a.workstation)
	return "NTLM", negotiate, err
}

func (a *ntlmAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if !more {
		return nil, nil
	}
	if len(fromServer) == 0 {
		return nil, ErrNTLMChallengeEmpty
	}
	return ntlmssp.ProcessChallenge(fromServer, a.username, a.password, a.domainNeeded)
}
