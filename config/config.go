// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

// Package config loads the configuration of the securemail command from a YAML file and
// SECUREMAIL_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/viper"

	securemail "github.com/wneessen/go-securemail"
	"github.com/wneessen/go-securemail/log"
	"github.com/wneessen/go-securemail/oauth"
)

// EnvPrefix is the prefix of the environment variables that override configuration values
const EnvPrefix = "SECUREMAIL"

// Supported log formats
const (
	LogFormatJSON    = "json"
	LogFormatText    = "text"
	LogFormatZerolog = "zerolog"
	LogFormatConsole = "console"
)

// ErrInvalidConfig is returned if a configuration value cannot be used
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the complete configuration
type Config struct {
	Mail      securemail.Settings `mapstructure:"mail"`
	SMTP      SMTPConfig          `mapstructure:"smtp"`
	OAuth     OAuthConfig         `mapstructure:"oauth"`
	Directory DirectoryConfig     `mapstructure:"directory"`
	Log       LogConfig           `mapstructure:"log"`
}

// SMTPConfig holds the transport settings of the SMTP client
type SMTPConfig struct {
	TLSPolicy string        `mapstructure:"tls_policy"`
	SSL       bool          `mapstructure:"ssl"`
	AuthType  string        `mapstructure:"auth_type"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	HELO      string        `mapstructure:"helo"`
	Timeout   time.Duration `mapstructure:"timeout"`
	DebugLog  bool          `mapstructure:"debug_log"`
}

// OAuthConfig holds the OAuth 2.0 client used for XOAUTH2 and REST calls
type OAuthConfig struct {
	oauth.Config `mapstructure:",squash"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
}

// DirectoryConfig points to the YAML file of the static user directory
type DirectoryConfig struct {
	File string `mapstructure:"file"`
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads the configuration. If path is empty, a securemail.yaml in the working directory
// or in /etc/securemail is used if present. Environment variables like
// SECUREMAIL_MAIL_FROM_ADDRESS override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("securemail")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/securemail")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key, so environment variables are picked up for all of them
func setDefaults(v *viper.Viper) {
	v.SetDefault("mail.from_address", "")
	v.SetDefault("mail.server", "")
	v.SetDefault("mail.port", securemail.DefaultPort)
	v.SetDefault("mail.secure_email_oid", securemail.DefaultSecureEmailOID)
	v.SetDefault("mail.encryption_algorithm_oid", securemail.DefaultEncryptionAlgorithmOID)
	v.SetDefault("mail.subject", "")
	v.SetDefault("mail.body", "")

	v.SetDefault("smtp.tls_policy", "mandatory")
	v.SetDefault("smtp.ssl", false)
	v.SetDefault("smtp.auth_type", "none")
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.helo", "")
	v.SetDefault("smtp.timeout", securemail.DefaultTimeout.String())
	v.SetDefault("smtp.debug_log", false)

	v.SetDefault("oauth.client_id", "")
	v.SetDefault("oauth.client_secret", "")
	v.SetDefault("oauth.token_endpoint", "")
	v.SetDefault("oauth.scopes", []string{})
	v.SetDefault("oauth.grant_type", oauth.GrantTypeClientCredentials)
	v.SetDefault("oauth.token_ttl", oauth.DefaultTokenTTL.String())

	v.SetDefault("directory.file", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", LogFormatJSON)
}

// Validate checks the values that Load cannot check by type. The mail settings are validated
// separately by securemail.Settings.Validate.
func (c *Config) Validate() error {
	if _, err := securemail.ParseTLSPolicy(c.SMTP.TLSPolicy); err != nil {
		return fmt.Errorf("%w: smtp.tls_policy: %w", ErrInvalidConfig, err)
	}
	if _, err := securemail.ParseSMTPAuthType(c.SMTP.AuthType); err != nil {
		return fmt.Errorf("%w: smtp.auth_type: %w", ErrInvalidConfig, err)
	}
	if c.SMTP.Timeout <= 0 {
		return fmt.Errorf("%w: smtp.timeout must be positive", ErrInvalidConfig)
	}
	if c.OAuth.TokenTTL <= 0 {
		return fmt.Errorf("%w: oauth.token_ttl must be positive", ErrInvalidConfig)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %w", ErrInvalidConfig, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case LogFormatJSON, LogFormatText, LogFormatZerolog, LogFormatConsole:
	default:
		return fmt.Errorf("%w: log.format: unknown format %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}

// OAuthEnabled reports whether an OAuth 2.0 client is configured
func (c *Config) OAuthEnabled() bool {
	return c.OAuth.ClientID != "" && c.OAuth.TokenEndpoint != ""
}

// TokenCacheOptions returns the oauth.TokenCache options for the configuration
func (c *Config) TokenCacheOptions(logger log.Logger) []oauth.Option {
	return []oauth.Option{oauth.WithTTL(c.OAuth.TokenTTL), oauth.WithLogger(logger)}
}

// ClientOptions returns the securemail.Client options for the SMTP configuration. The
// tokens are used for XOAUTH2 authentication and may be nil otherwise.
func (c *Config) ClientOptions(tokens *oauth.TokenCache, logger log.Logger) ([]securemail.Option, error) {
	policy, err := securemail.ParseTLSPolicy(c.SMTP.TLSPolicy)
	if err != nil {
		return nil, err
	}
	authType, err := securemail.ParseSMTPAuthType(c.SMTP.AuthType)
	if err != nil {
		return nil, err
	}
	opts := []securemail.Option{
		securemail.WithPort(c.Mail.MailPort),
		securemail.WithTimeout(c.SMTP.Timeout),
		securemail.WithTLSPolicy(policy),
		securemail.WithLogger(logger),
	}
	if c.SMTP.SSL {
		opts = append(opts, securemail.WithSSL())
	}
	if c.SMTP.HELO != "" {
		opts = append(opts, securemail.WithHELO(c.SMTP.HELO))
	}
	if c.SMTP.DebugLog {
		opts = append(opts, securemail.WithDebugLog())
	}
	if authType == securemail.SMTPAuthNoAuth {
		return opts, nil
	}
	opts = append(opts, securemail.WithSMTPAuth(authType), securemail.WithUsername(c.SMTP.Username),
		securemail.WithPassword(c.SMTP.Password))
	if authType == securemail.SMTPAuthXOAUTH2 && c.SMTP.Password == "" {
		if tokens == nil || !c.OAuthEnabled() {
			return nil, fmt.Errorf("%w: XOAUTH2 requires an oauth client or a static token", ErrInvalidConfig)
		}
		opts = append(opts, securemail.WithTokenSource(tokens.TokenSource(c.OAuth.Config)))
	}
	return opts, nil
}

// NewLogger returns the logger for the LogConfig, writing to output
func (c LogConfig) NewLogger(output io.Writer) (log.Logger, error) {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(c.Format) {
	case LogFormatJSON:
		return log.NewJSON(output, level), nil
	case LogFormatText:
		return log.New(output, level), nil
	case LogFormatZerolog:
		return log.NewZerolog(output, level, false), nil
	case LogFormatConsole:
		return log.NewZerolog(output, level, true), nil
	default:
		return nil, fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Format)
	}
}
