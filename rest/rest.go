// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

// Package rest calls JSON REST endpoints that are protected by OAuth 2.0 bearer tokens. The
// tokens are taken from an oauth.TokenCache.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wneessen/go-securemail/log"
	"github.com/wneessen/go-securemail/oauth"
)

// DefaultTimeout is the default timeout of a REST call
const DefaultTimeout = 30 * time.Second

// maxErrorBody limits how much of an error response body is kept in an Error
const maxErrorBody = 4096

var (
	// ErrRequest is matched by every Error returned for an unsuccessful response
	ErrRequest = errors.New("REST request failed")

	// ErrNoTokenCache is returned by NewClient if no oauth.TokenCache is given
	ErrNoTokenCache = errors.New("no token cache set")
)

// Error is returned for a response with a status code other than 200, 202 or 204
type Error struct {
	StatusCode int
	Status     string
	Body       string
}

// Error implements the error interface for the Error type
func (e *Error) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: %s: %s", ErrRequest, e.Status, e.Body)
	}
	return fmt.Sprintf("%s: %s", ErrRequest, e.Status)
}

// Unwrap returns ErrRequest
func (e *Error) Unwrap() error {
	return ErrRequest
}

// Client calls REST endpoints with the access token of one OAuth 2.0 client
type Client struct {
	config     oauth.Config
	httpClient *http.Client
	logger     log.Logger
	tokens     *oauth.TokenCache
}

// Option returns a function that can be used for grouping Client options
type Option func(*Client) error

// NewClient returns a new Client that authenticates with the token of the oauth.Config
func NewClient(tokens *oauth.TokenCache, cfg oauth.Config, opts ...Option) (*Client, error) {
	if tokens == nil {
		return nil, ErrNoTokenCache
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		tokens:     tokens,
	}
	for _, option := range opts {
		if option == nil {
			continue
		}
		if err := option(client); err != nil {
			return nil, fmt.Errorf("failed to apply REST client option: %w", err)
		}
	}
	return client, nil
}

// WithHTTPClient overrides the http.Client used for the REST calls
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) error {
		if httpClient == nil {
			return errors.New("http client must not be nil")
		}
		c.httpClient = httpClient
		return nil
	}
}

// WithLogger sets the logger of the Client
func WithLogger(logger log.Logger) Option {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

// NewRequest returns a request for the endpoint with the bearer token of the Client set. A
// non-nil body is encoded as JSON.
func (c *Client) NewRequest(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	token, err := c.tokens.Token(ctx, c.config)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		if err = setJSONBody(req, body); err != nil {
			return nil, err
		}
	}
	return req, nil
}

// GetPayload sends the request and decodes the JSON response into a T
func GetPayload[T any](c *Client, req *http.Request) (T, error) {
	var payload T
	resp, err := c.do(req)
	if err != nil {
		return payload, err
	}
	defer closeBody(resp)
	if !isSuccess(resp.StatusCode) {
		return payload, newError(resp)
	}
	if resp.StatusCode == http.StatusNoContent {
		return payload, nil
	}
	if err = json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return payload, fmt.Errorf("failed to decode response: %w", err)
	}
	return payload, nil
}

// PostPayload sends data as JSON body with the request and decodes the JSON response into a T
func PostPayload[T any](c *Client, req *http.Request, data any) (T, error) {
	if err := setJSONBody(req, data); err != nil {
		var payload T
		return payload, err
	}
	return GetPayload[T](c, req)
}

// GetBool sends the request and reports whether the response status is 200, 202 or 204.
// Only transport failures are returned as error.
func (c *Client) GetBool(req *http.Request) (bool, error) {
	resp, err := c.do(req)
	if err != nil {
		return false, err
	}
	defer closeBody(resp)
	return isSuccess(resp.StatusCode), nil
}

// PostBool sends data as JSON body with the request and reports whether the response status
// is 200, 202 or 204
func (c *Client) PostBool(req *http.Request, data any) (bool, error) {
	if err := setJSONBody(req, data); err != nil {
		return false, err
	}
	return c.GetBool(req)
}

// do sends the request. A 401 response drops the cached token, so the next request
// acquires a new one.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("request is nil")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.Invalidate(c.config.ClientID)
	}
	if c.logger != nil {
		c.logger.Debugf(log.Log{Direction: log.DirInternal, Format: "%s %s: %s",
			Messages: []interface{}{req.Method, req.URL.Redacted(), resp.Status}})
	}
	return resp, nil
}

func setJSONBody(req *http.Request, data any) error {
	if req == nil {
		return errors.New("request is nil")
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	req.Body = io.NopCloser(bytes.NewReader(encoded))
	req.ContentLength = int64(len(encoded))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(encoded)), nil
	}
	req.Header.Set("Content-Type", "application/json")
	return nil
}

func isSuccess(status int) bool {
	return status == http.StatusOK || status == http.StatusAccepted || status == http.StatusNoContent
}

func newError(resp *http.Response) *Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &Error{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(bytes.TrimSpace(body))}
}

func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
