// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

// Package oauth acquires and caches OAuth 2.0 access tokens with the client credentials grant.
//
// Tokens are cached per client ID for a fixed time to live, independent of the expires_in value
// returned by the token endpoint. Concurrent requests for the same client share one token
// request.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pmylund/go-cache"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/wneessen/go-securemail/log"
)

const (
	// GrantTypeClientCredentials is the only supported OAuth 2.0 grant type
	GrantTypeClientCredentials = "client_credentials"

	// DefaultTokenTTL is the time a token is cached for
	DefaultTokenTTL = 59 * time.Minute

	// cleanupInterval is the interval in which expired tokens are purged from the cache
	cleanupInterval = 10 * time.Minute
)

var (
	// ErrTokenRequest is returned if the token endpoint did not issue a token
	ErrTokenRequest = errors.New("oauth token request failed")

	// ErrInvalidConfig is returned if a Config misses required values
	ErrInvalidConfig = errors.New("invalid oauth config")

	// ErrUnsupportedGrantType is returned for any grant type but client_credentials
	ErrUnsupportedGrantType = errors.New("unsupported oauth grant type")

	// ErrInvalidTTL is returned by WithTTL for a zero or negative duration
	ErrInvalidTTL = errors.New("token TTL must be positive")
)

// Config holds the client credentials and the token endpoint of an OAuth 2.0 client
type Config struct {
	ClientID      string   `mapstructure:"client_id"`
	ClientSecret  string   `mapstructure:"client_secret"`
	TokenEndpoint string   `mapstructure:"token_endpoint"`
	Scopes        []string `mapstructure:"scopes"`
	GrantType     string   `mapstructure:"grant_type"`
}

// Validate checks that the Config can be used for a token request
func (c Config) Validate() error {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, "client ID")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "client secret")
	}
	if c.TokenEndpoint == "" {
		missing = append(missing, "token endpoint")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	if c.GrantType != "" && c.GrantType != GrantTypeClientCredentials {
		return fmt.Errorf("%w: %q", ErrUnsupportedGrantType, c.GrantType)
	}
	return nil
}

// Token is an access token issued by the token endpoint
type Token struct {
	AccessToken string
	TokenType   string
	Scope       string
	// Expiry is the expiry reported by the token endpoint. It does not affect caching.
	Expiry time.Time
	// FetchedAt is the time the token was acquired
	FetchedAt time.Time
}

// TokenCache acquires tokens and caches them per client ID. It is safe for concurrent use.
type TokenCache struct {
	cache      *cache.Cache
	httpClient *http.Client
	logger     log.Logger
	now        func() time.Time
	ttl        time.Duration

	// locks holds one acquisition lock per client ID
	locks      map[string]*sync.Mutex
	locksMutex sync.Mutex
}

// Option returns a function that can be used for grouping TokenCache options
type Option func(*TokenCache) error

// NewTokenCache returns a new TokenCache with the DefaultTokenTTL
func NewTokenCache(opts ...Option) (*TokenCache, error) {
	tokenCache := &TokenCache{
		locks: make(map[string]*sync.Mutex),
		now:   time.Now,
		ttl:   DefaultTokenTTL,
	}
	for _, option := range opts {
		if option == nil {
			continue
		}
		if err := option(tokenCache); err != nil {
			return nil, fmt.Errorf("failed to apply token cache option: %w", err)
		}
	}
	tokenCache.cache = cache.New(tokenCache.ttl, cleanupInterval)
	return tokenCache, nil
}

// WithTTL overrides the DefaultTokenTTL
func WithTTL(ttl time.Duration) Option {
	return func(c *TokenCache) error {
		if ttl <= 0 {
			return ErrInvalidTTL
		}
		c.ttl = ttl
		return nil
	}
}

// WithHTTPClient sets the http.Client used for token requests
func WithHTTPClient(client *http.Client) Option {
	return func(c *TokenCache) error {
		c.httpClient = client
		return nil
	}
}

// WithLogger sets the logger of the TokenCache
func WithLogger(logger log.Logger) Option {
	return func(c *TokenCache) error {
		c.logger = logger
		return nil
	}
}

// TTL returns the time a token is cached for
func (c *TokenCache) TTL() time.Duration {
	return c.ttl
}

// Token returns the cached token for the client ID of the Config or requests a new one from
// the token endpoint.
func (c *TokenCache) Token(ctx context.Context, cfg Config) (*Token, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if token, ok := c.cached(cfg.ClientID); ok {
		return token, nil
	}

	lock := c.lockFor(cfg.ClientID)
	lock.Lock()
	defer lock.Unlock()

	// another caller might have acquired the token while we were waiting
	if token, ok := c.cached(cfg.ClientID); ok {
		return token, nil
	}
	token, err := c.fetch(ctx, cfg)
	if err != nil {
		c.log(func(l log.Logger) {
			l.Errorf(log.Log{Direction: log.DirInternal, Format: "token request for client %s failed: %s",
				Messages: []interface{}{cfg.ClientID, err}})
		})
		return nil, err
	}
	c.cache.Set(cfg.ClientID, token, c.ttl)
	c.log(func(l log.Logger) {
		l.Debugf(log.Log{Direction: log.DirInternal, Format: "cached new access token for client %s for %s",
			Messages: []interface{}{cfg.ClientID, c.ttl}})
	})
	return token, nil
}

// Invalidate drops the cached token of the client ID
func (c *TokenCache) Invalidate(clientID string) {
	c.cache.Delete(clientID)
}

// TokenSource returns a function that provides the current access token for the Config. It
// fits the TokenSource of the SMTP Client for XOAUTH2 authentication.
func (c *TokenCache) TokenSource(cfg Config) func(ctx context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		token, err := c.Token(ctx, cfg)
		if err != nil {
			return "", err
		}
		return token.AccessToken, nil
	}
}

func (c *TokenCache) cached(clientID string) (*Token, bool) {
	item, ok := c.cache.Get(clientID)
	if !ok {
		return nil, false
	}
	token, ok := item.(*Token)
	return token, ok
}

func (c *TokenCache) lockFor(clientID string) *sync.Mutex {
	c.locksMutex.Lock()
	defer c.locksMutex.Unlock()
	lock, ok := c.locks[clientID]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[clientID] = lock
	}
	return lock
}

// fetch requests a token with the client credentials grant. The credentials are sent as the
// form fields client_id and client_secret.
func (c *TokenCache) fetch(ctx context.Context, cfg Config) (*Token, error) {
	credentials := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenEndpoint,
		Scopes:       cfg.Scopes,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}
	oauthToken, err := credentials.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenRequest, err)
	}
	if oauthToken.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrTokenRequest)
	}
	token := &Token{
		AccessToken: oauthToken.AccessToken,
		TokenType:   oauthToken.TokenType,
		Expiry:      oauthToken.Expiry,
		FetchedAt:   c.now(),
	}
	if scope, ok := oauthToken.Extra("scope").(string); ok {
		token.Scope = scope
	}
	return token, nil
}

func (c *TokenCache) log(fn func(log.Logger)) {
	if c.logger != nil {
		fn(c.logger)
	}
}
