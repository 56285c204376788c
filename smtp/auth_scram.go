// SPDX-FileCopyrightText: Copyright (c) The go-mail Authors
//
// SPDX-License-Identifier: MIT

package smtp

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/text/secure/precis"
)

// scramNonceLength is the number of random bytes of the client nonce
const scramNonceLength = 24

var (
	// ErrSCRAMServerSignature is returned if the server signature does not match
	ErrSCRAMServerSignature = errors.New("invalid SCRAM server signature")

	// ErrSCRAMNoTLSState is returned if a -PLUS mechanism is used without a TLS connection state
	ErrSCRAMNoTLSState = errors.New("tls connection state is required for SCRAM-SHA-X-PLUS")
)

// scramAuth implements the SCRAM mechanisms of RFC 5802 and RFC 7677, optionally with
// channel binding (RFC 5929, RFC 9266).
type scramAuth struct {
	mechanism    string
	newHash      func() hash.Hash
	username     string
	password     string
	tlsConnState *tls.ConnectionState

	// exchange state, cleared by reset
	authMessage     []byte
	channelBinding  []byte
	clientFirstBare []byte
	nonce           []byte
	saltedPassword  []byte
}

// ScramSHA1Auth returns an Auth for the SCRAM-SHA-1 mechanism
func ScramSHA1Auth(username, password string) Auth {
	return &scramAuth{mechanism: "SCRAM-SHA-1", newHash: sha1.New, username: username, password: password}
}

// ScramSHA256Auth returns an Auth for the SCRAM-SHA-256 mechanism
func ScramSHA256Auth(username, password string) Auth {
	return &scramAuth{mechanism: "SCRAM-SHA-256", newHash: sha256.New, username: username, password: password}
}

// ScramSHA1PlusAuth returns an Auth for the SCRAM-SHA-1-PLUS mechanism, which binds the
// authentication to the given TLS connection.
func ScramSHA1PlusAuth(username, password string, state *tls.ConnectionState) Auth {
	return &scramAuth{
		mechanism: "SCRAM-SHA-1-PLUS", newHash: sha1.New, username: username, password: password,
		tlsConnState: state,
	}
}

// ScramSHA256PlusAuth returns an Auth for the SCRAM-SHA-256-PLUS mechanism, which binds the
// authentication to the given TLS connection.
func ScramSHA256PlusAuth(username, password string, state *tls.ConnectionState) Auth {
	return &scramAuth{
		mechanism: "SCRAM-SHA-256-PLUS", newHash: sha256.New, username: username, password: password,
		tlsConnState: state,
	}
}

func (a *scramAuth) Start(_ *ServerInfo) (string, []byte, error) {
	return a.mechanism, nil, nil
}

func (a *scramAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if !more {
		return nil, nil
	}
	var resp []byte
	var err error
	switch {
	case len(fromServer) == 0:
		a.reset()
		resp, err = a.clientFirstMessage()
	case bytes.HasPrefix(fromServer, []byte("r=")):
		resp, err = a.clientFinalMessage(fromServer)
	case bytes.HasPrefix(fromServer, []byte("v=")):
		resp, err = a.verifyServerFinal(fromServer)
	default:
		err = fmt.Errorf("%w: %s", ErrUnexpectedServerResponse, fromServer)
	}
	if err != nil {
		a.reset()
		return nil, err
	}
	return resp, nil
}

func (a *scramAuth) isPlus() bool {
	return strings.HasSuffix(a.mechanism, "-PLUS")
}

func (a *scramAuth) reset() {
	a.authMessage = nil
	a.channelBinding = nil
	a.clientFirstBare = nil
	a.nonce = nil
	a.saltedPassword = nil
}

// clientFirstMessage builds the client-first-message with a fresh nonce
func (a *scramAuth) clientFirstMessage() ([]byte, error) {
	username, err := normalizeSCRAMUsername(a.username)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, scramNonceLength)
	if _, err = rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("unable to generate client nonce: %w", err)
	}
	a.nonce = []byte(base64.StdEncoding.EncodeToString(nonce))
	a.clientFirstBare = []byte("n=" + username + ",r=" + string(a.nonce))

	header := "n,,"
	if a.isPlus() {
		bindType, bindData, err := a.channelBindingData()
		if err != nil {
			return nil, err
		}
		header = "p=" + bindType + ",,"
		a.channelBinding = []byte(base64.StdEncoding.EncodeToString(append([]byte(header), bindData...)))
	}
	return []byte(header + string(a.clientFirstBare)), nil
}

// channelBindingData returns tls-unique data if available and tls-exporter data for TLS 1.3
// and connections without tls-unique
func (a *scramAuth) channelBindingData() (string, []byte, error) {
	if a.tlsConnState == nil {
		return "", nil, ErrSCRAMNoTLSState
	}
	if a.tlsConnState.TLSUnique != nil && a.tlsConnState.Version < tls.VersionTLS13 {
		return "tls-unique", a.tlsConnState.TLSUnique, nil
	}
	data, err := a.tlsConnState.ExportKeyingMaterial("EXPORTER-Channel-Binding", []byte{}, 32)
	if err != nil {
		return "", nil, fmt.Errorf("unable to export keying material: %w", err)
	}
	return "tls-exporter", data, nil
}

// clientFinalMessage processes the server-first-message and returns the client-final-message
// carrying the client proof
func (a *scramAuth) clientFinalMessage(serverFirst []byte) ([]byte, error) {
	fields := bytes.Split(serverFirst, []byte(","))
	if len(fields) < 3 {
		return nil, errors.New("not enough fields in the first server response")
	}
	for i, prefix := range []string{"r=", "s=", "i="} {
		if !bytes.HasPrefix(fields[i], []byte(prefix)) {
			return nil, fmt.Errorf("field %d of the server response does not start with %s", i+1, prefix)
		}
	}

	combinedNonce := fields[0][2:]
	if len(a.nonce) == 0 || !bytes.HasPrefix(combinedNonce, a.nonce) {
		return nil, errors.New("server nonce does not start with our nonce")
	}
	a.nonce = combinedNonce

	salt, err := base64.StdEncoding.DecodeString(string(fields[1][2:]))
	if err != nil {
		return nil, fmt.Errorf("invalid encoded salt: %w", err)
	}
	iterations, err := strconv.Atoi(string(fields[2][2:]))
	if err != nil || iterations < 1 {
		return nil, fmt.Errorf("invalid iteration count %q", fields[2][2:])
	}
	password, err := precis.OpaqueString.String(a.password)
	if err != nil {
		return nil, fmt.Errorf("unable to normalize password: %w", err)
	}
	a.saltedPassword = pbkdf2.Key([]byte(password), salt, iterations, a.newHash().Size(), a.newHash)

	binding := "biws" // base64 of "n,,"
	if a.isPlus() {
		binding = string(a.channelBinding)
	}
	withoutProof := "c=" + binding + ",r=" + string(a.nonce)
	a.authMessage = []byte(string(a.clientFirstBare) + "," + string(serverFirst) + "," + withoutProof)

	return []byte(withoutProof + ",p=" + a.clientProof()), nil
}

// verifyServerFinal checks the server signature of the server-final-message
func (a *scramAuth) verifyServerFinal(serverFinal []byte) ([]byte, error) {
	serverKey := a.hmac(a.saltedPassword, []byte("Server Key"))
	expected := base64.StdEncoding.EncodeToString(a.hmac(serverKey, a.authMessage))
	if !hmac.Equal(serverFinal[2:], []byte(expected)) {
		return nil, ErrSCRAMServerSignature
	}
	return []byte{}, nil
}

func (a *scramAuth) clientProof() string {
	clientKey := a.hmac(a.saltedPassword, []byte("Client Key"))
	hasher := a.newHash()
	hasher.Write(clientKey)
	clientSignature := a.hmac(hasher.Sum(nil), a.authMessage)
	proof := make([]byte, len(clientSignature))
	for i := range clientSignature {
		proof[i] = clientKey[i] ^ clientSignature[i]
	}
	return base64.StdEncoding.EncodeToString(proof)
}

func (a *scramAuth) hmac(key, msg []byte) []byte {
	mac := hmac.New(a.newHash, key)
	mac.Write(msg)
	return mac.Sum(nil)
}

// normalizeSCRAMUsername escapes ',' and '=' as required by RFC 5802 section 5.1 and prepares
// the username with the RFC 8265 OpaqueString profile, which obsoletes SASLprep.
func normalizeSCRAMUsername(username string) (string, error) {
	username = strings.NewReplacer("=", "=3D", ",", "=2C").Replace(username)
	username, err := precis.OpaqueString.String(username)
	if err != nil {
		return "", fmt.Errorf("unable to normalize username: %w", err)
	}
	return username, nil
}
