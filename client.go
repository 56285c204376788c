// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

package securemail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/wneessen/go-securemail/log"
	"github.com/wneessen/go-securemail/smtp"
)

// Defaults
const (
	// DefaultPort is the default connection port to the SMTP server
	DefaultPort = 25

	// DefaultPortSSL is the default connection port for SSL/TLS to the SMTP server
	DefaultPortSSL = 465

	// DefaultPortTLS is the default connection port for STARTTLS to the SMTP server
	DefaultPortTLS = 587

	// DefaultTimeout is the default connection timeout
	DefaultTimeout = time.Second * 15

	// DefaultTLSPolicy is the default STARTTLS policy
	DefaultTLSPolicy = TLSMandatory

	// DefaultTLSMinVersion is the minimum TLS version required for the connection
	DefaultTLSMinVersion = tls.VersionTLS12
)

var (
	// ErrInvalidPort should be used if a port is specified that is not valid
	ErrInvalidPort = errors.New("invalid port number")

	// ErrInvalidTimeout should be used if a timeout is set that is zero or negative
	ErrInvalidTimeout = errors.New("timeout cannot be zero or negative")

	// ErrInvalidHELO should be used if an empty HELO string is provided
	ErrInvalidHELO = errors.New("invalid HELO/EHLO value - must not be empty")

	// ErrInvalidTLSConfig should be used if an empty tls.Config is provided
	ErrInvalidTLSConfig = errors.New("invalid TLS config")

	// ErrNoHostname should be used if a Client has no hostname set
	ErrNoHostname = errors.New("hostname for client cannot be empty")

	// ErrDeadlineExtendFailed should be used if the extension of the connection deadline fails
	ErrDeadlineExtendFailed = errors.New("connection deadline extension failed")

	// ErrNoActiveConnection should be used when a method is used that requires a server
	// connection but is not yet connected
	ErrNoActiveConnection = errors.New("not connected to SMTP server")

	// ErrServerNoSTARTTLS is returned if the TLSPolicy is TLSMandatory but the server does not
	// offer STARTTLS
	ErrServerNoSTARTTLS = errors.New("target host does not support STARTTLS")
)

// DialContextFunc is a type to define custom DialContext function.
type DialContextFunc func(ctx context.Context, network, address string) (net.Conn, error)

// TokenSource returns a current OAuth 2.0 access token for the XOAUTH2 authentication
type TokenSource func(ctx context.Context) (string, error)

// Client is the SMTP client struct. A Client holds a single connection and must not be used
// for concurrent sends.
type Client struct {
	// connection is the net.Conn that the smtp.Client is based on
	connection net.Conn

	// connTimeout specifies timeout for the connection to the SMTP server
	connTimeout time.Duration

	// dialContextFunc is a custom DialContext function to dial target SMTP server
	dialContextFunc DialContextFunc

	// isEncrypted indicates if a Client connection is encrypted or not
	isEncrypted bool

	// helo is the hostname for the HELO/EHLO greeting
	helo string

	// host is the hostname of the SMTP server we are connecting to
	host string

	// logger is the log.Logger for the SMTP debug log
	logger log.Logger

	// noNoop indicates that the Client should skip the "NOOP" command during the dial
	noNoop bool

	// pass is the corresponding SMTP AUTH password
	pass string

	// port specifies the network port that is used to establish the connection with the server
	port int

	// smtpAuth is a custom smtp.Auth that is used by the Client
	smtpAuth smtp.Auth

	// smtpAuthType represents the authentication type for SMTP AUTH
	smtpAuthType SMTPAuthType

	// smtpClient is the smtp.Client that is set up when using the Dial*() methods
	smtpClient *smtp.Client

	// tlsPolicy defines whether STARTTLS is mandatory, opportunistic or disabled
	tlsPolicy TLSPolicy

	// tlsConfig represents the tls.Config setting for the STARTTLS connection
	tlsConfig *tls.Config

	// tokenSource provides the access token for the XOAUTH2 authentication
	tokenSource TokenSource

	// useDebugLog enables the debug logging on the SMTP client
	useDebugLog bool

	// user is the SMTP AUTH username
	user string

	// useSSL indicates whether to use SSL/TLS from the start instead of STARTTLS
	useSSL bool
}

// Option returns a function that can be used for grouping Client options
type Option func(*Client) error

// NewClient returns a new Client for the given SMTP host.
//
// Without options the Client connects to port 25 with a mandatory STARTTLS upgrade and no
// SMTP authentication. The HELO/EHLO name defaults to the local hostname.
func NewClient(host string, opts ...Option) (*Client, error) {
	client := &Client{
		connTimeout: DefaultTimeout,
		host:        host,
		port:        DefaultPort,
		tlsConfig:   &tls.Config{ServerName: host, MinVersion: DefaultTLSMinVersion},
		tlsPolicy:   DefaultTLSPolicy,
	}
	var err error
	if client.helo, err = os.Hostname(); err != nil || client.helo == "" {
		client.helo = "localhost"
	}

	for _, option := range opts {
		if option == nil {
			continue
		}
		if err = option(client); err != nil {
			return client, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if client.host == "" {
		return client, ErrNoHostname
	}
	return client, nil
}

// WithPort overrides the default connection port
func WithPort(port int) Option {
	return func(c *Client) error {
		if port < 1 || port > 65535 {
			return ErrInvalidPort
		}
		c.port = port
		return nil
	}
}

// WithTimeout overrides the default connection timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		if timeout <= 0 {
			return ErrInvalidTimeout
		}
		c.connTimeout = timeout
		return nil
	}
}

// WithSSL enables implicit SSL/TLS for the Client connection. The port is switched to
// DefaultPortSSL unless it was changed before.
func WithSSL() Option {
	return func(c *Client) error {
		c.useSSL = true
		if c.port == DefaultPort {
			c.port = DefaultPortSSL
		}
		return nil
	}
}

// WithTLSPolicy sets the TLSPolicy of the Client
func WithTLSPolicy(policy TLSPolicy) Option {
	return func(c *Client) error {
		c.tlsPolicy = policy
		return nil
	}
}

// WithTLSConfig overrides the tls.Config of the Client
func WithTLSConfig(tlsConfig *tls.Config) Option {
	return func(c *Client) error {
		if tlsConfig == nil {
			return ErrInvalidTLSConfig
		}
		c.tlsConfig = tlsConfig
		return nil
	}
}

// WithHELO overrides the HELO/EHLO name of the Client
func WithHELO(helo string) Option {
	return func(c *Client) error {
		if helo == "" {
			return ErrInvalidHELO
		}
		c.helo = helo
		return nil
	}
}

// WithSMTPAuth enables SMTP AUTH with the given SMTPAuthType
func WithSMTPAuth(authType SMTPAuthType) Option {
	return func(c *Client) error {
		c.smtpAuthType = authType
		return nil
	}
}

// WithSMTPAuthCustom sets a custom smtp.Auth that is used instead of the SMTPAuthType
func WithSMTPAuthCustom(smtpAuth smtp.Auth) Option {
	return func(c *Client) error {
		c.smtpAuth = smtpAuth
		return nil
	}
}

// WithUsername sets the username for the SMTP AUTH
func WithUsername(username string) Option {
	return func(c *Client) error {
		c.user = username
		return nil
	}
}

// WithPassword sets the password for the SMTP AUTH
func WithPassword(password string) Option {
	return func(c *Client) error {
		c.pass = password
		return nil
	}
}

// WithTokenSource sets the TokenSource that provides the access token for the XOAUTH2
// authentication. The token is requested on every dial.
func WithTokenSource(source TokenSource) Option {
	return func(c *Client) error {
		c.tokenSource = source
		return nil
	}
}

// WithLogger sets the logger for the SMTP debug log
func WithLogger(logger log.Logger) Option {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}

// WithDebugLog enables the debug logging of the SMTP dialog
func WithDebugLog() Option {
	return func(c *Client) error {
		c.useDebugLog = true
		return nil
	}
}

// WithoutNoop disables the NOOP command that checks the connection before sending
func WithoutNoop() Option {
	return func(c *Client) error {
		c.noNoop = true
		return nil
	}
}

// WithDialContextFunc overrides the DialContext function used to connect to the server
func WithDialContextFunc(dialCtxFunc DialContextFunc) Option {
	return func(c *Client) error {
		c.dialContextFunc = dialCtxFunc
		return nil
	}
}

// TLSPolicy returns the TLSPolicy of the Client as string
func (c *Client) TLSPolicy() string {
	return c.tlsPolicy.String()
}

// ServerAddr returns the server address in host:port notation
func (c *Client) ServerAddr() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

// DialWithContext connects to the SMTP server, upgrades the connection according to the
// TLSPolicy and authenticates if SMTP AUTH is configured. The connection timeout is applied on
// top of the deadline of the context.
func (c *Client) DialWithContext(ctxDial context.Context) error {
	ctx, cancel := context.WithTimeout(ctxDial, c.connTimeout)
	defer cancel()

	dialContextFunc := c.dialContextFunc
	if dialContextFunc == nil {
		netDialer := net.Dialer{}
		dialContextFunc = netDialer.DialContext
		if c.useSSL {
			tlsDialer := tls.Dialer{NetDialer: &netDialer, Config: c.tlsConfig}
			dialContextFunc = tlsDialer.DialContext
		}
	}
	c.isEncrypted = c.useSSL

	connection, err := dialContextFunc(ctx, "tcp", c.ServerAddr())
	if err != nil {
		return err
	}
	c.connection = connection
	if err = connection.SetDeadline(time.Now().Add(c.connTimeout)); err != nil {
		return ErrDeadlineExtendFailed
	}

	smtpClient, err := smtp.NewClient(connection, c.host)
	if err != nil {
		return err
	}
	c.smtpClient = smtpClient
	if c.logger != nil {
		c.smtpClient.SetLogger(c.logger)
	}
	if c.useDebugLog {
		c.smtpClient.SetDebugLog(true)
	}
	if err = c.smtpClient.Hello(c.helo); err != nil {
		return err
	}
	if err = c.tls(); err != nil {
		return err
	}
	return c.auth(ctx)
}

// Send sends out the mail messages over the established connection.
//
// Every Msg is delivered on its own; the failure of one Msg does not stop the delivery of the
// others. The *SendError of a failed Msg is stored in the Msg. A nil Msg is not delivered and
// results in a *SendError with the ErrNoMessage reason. If more than one Msg failed, the errors
// are aggregated in a *multierror.Error.
func (c *Client) Send(messages ...*Msg) error {
	if err := c.checkConn(); err != nil {
		return newSendError(ErrConnCheck, nil, false, err)
	}
	var result *multierror.Error
	for _, message := range messages {
		if message == nil {
			result = multierror.Append(result, newSendError(ErrNoMessage, nil, false))
			continue
		}
		message.sendError = nil
		if err := c.sendSingleMsg(message); err != nil {
			message.sendError = err
			result = multierror.Append(result, err)
		}
	}
	if result == nil {
		return nil
	}
	if len(result.Errors) == 1 {
		return result.Errors[0]
	}
	return result
}

// Close closes the connection to the SMTP server with QUIT
func (c *Client) Close() error {
	if c.smtpClient == nil || !c.smtpClient.HasConnection() {
		return nil
	}
	if err := c.smtpClient.Quit(); err != nil {
		return fmt.Errorf("failed to close SMTP client: %w", err)
	}
	return nil
}

// Reset sends the RSET command to the SMTP server
func (c *Client) Reset() error {
	if err := c.checkConn(); err != nil {
		return err
	}
	if err := c.smtpClient.Reset(); err != nil {
		return fmt.Errorf("failed to send RSET to SMTP client: %w", err)
	}
	return nil
}

// DialAndSend establishes a connection to the SMTP server with a default context.Background
// and sends the mail messages
func (c *Client) DialAndSend(messages ...*Msg) error {
	return c.DialAndSendWithContext(context.Background(), messages...)
}

// DialAndSendWithContext establishes a connection to the SMTP server with the given context,
// sends the mail messages and closes the connection
func (c *Client) DialAndSendWithContext(ctx context.Context, messages ...*Msg) error {
	if err := c.DialWithContext(ctx); err != nil {
		_ = c.Close()
		return fmt.Errorf("dial failed: %w", err)
	}
	if err := c.Send(messages...); err != nil {
		_ = c.Close()
		return fmt.Errorf("send failed: %w", err)
	}
	if err := c.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

// sendSingleMsg runs one MAIL/RCPT/DATA transaction for the Msg
func (c *Client) sendSingleMsg(message *Msg) error {
	esmtpCodes, _ := c.smtpClient.Extension("ENHANCEDSTATUSCODES")
	from, err := message.GetSender(false)
	if err != nil {
		return newSendError(ErrGetSender, message, esmtpCodes, err)
	}
	rcpts, err := message.GetRecipients()
	if err != nil {
		return newSendError(ErrGetRcpts, message, esmtpCodes, err)
	}

	if err = c.smtpClient.Mail(from); err != nil {
		sendErr := newSendError(ErrSMTPMailFrom, message, esmtpCodes, err)
		if resetErr := c.smtpClient.Reset(); resetErr != nil {
			sendErr.errlist = append(sendErr.errlist, resetErr)
		}
		return sendErr
	}
	var rcptErr *SendError
	for _, rcpt := range rcpts {
		if err = c.smtpClient.Rcpt(rcpt); err != nil {
			if rcptErr == nil {
				rcptErr = newSendError(ErrSMTPRcptTo, message, esmtpCodes, err)
			} else {
				rcptErr.errlist = append(rcptErr.errlist, err)
			}
			rcptErr.rcpt = append(rcptErr.rcpt, rcpt)
		}
	}
	if rcptErr != nil {
		if resetErr := c.smtpClient.Reset(); resetErr != nil {
			rcptErr.errlist = append(rcptErr.errlist, resetErr)
		}
		return rcptErr
	}

	writer, err := c.smtpClient.Data()
	if err != nil {
		return newSendError(ErrSMTPData, message, esmtpCodes, err)
	}
	if _, err = message.WriteTo(writer); err != nil {
		return newSendError(ErrWriteContent, message, esmtpCodes, err)
	}
	if err = writer.Close(); err != nil {
		return newSendError(ErrSMTPDataClose, message, esmtpCodes, err)
	}
	if err = c.Reset(); err != nil {
		return newSendError(ErrSMTPReset, message, esmtpCodes, err)
	}
	return nil
}

// checkConn makes sure that a required server connection is available and extends the
// connection deadline
func (c *Client) checkConn() error {
	if c.connection == nil || c.smtpClient == nil || !c.smtpClient.HasConnection() {
		return ErrNoActiveConnection
	}
	if !c.noNoop {
		if err := c.smtpClient.Noop(); err != nil {
			return ErrNoActiveConnection
		}
	}
	if err := c.smtpClient.UpdateDeadline(c.connTimeout); err != nil {
		return ErrDeadlineExtendFailed
	}
	return nil
}

// tls upgrades the connection with STARTTLS according to the TLSPolicy
func (c *Client) tls() error {
	if c.useSSL || c.tlsPolicy == NoTLS {
		return nil
	}
	hasSTARTTLS, _ := c.smtpClient.Extension("STARTTLS")
	if !hasSTARTTLS {
		if c.tlsPolicy == TLSMandatory {
			return fmt.Errorf("STARTTLS mode set to: %q: %w", c.tlsPolicy, ErrServerNoSTARTTLS)
		}
		return nil
	}
	if err := c.smtpClient.StartTLS(c.tlsConfig); err != nil {
		return err
	}
	c.isEncrypted = true
	return nil
}

// auth authenticates the Client with the configured SMTPAuthType or custom smtp.Auth
func (c *Client) auth(ctx context.Context) error {
	if c.smtpAuth == nil && c.smtpAuthType != SMTPAuthNoAuth {
		hasAuth, mechanisms := c.smtpClient.Extension("AUTH")
		if !hasAuth {
			return ErrSMTPAuthNotSupported
		}
		if !c.smtpAuthType.supportedBy(mechanisms) {
			return fmt.Errorf("%w: %s", ErrSMTPAuthTypeNotSupported, c.smtpAuthType)
		}
		smtpAuth, err := c.newSMTPAuth(ctx)
		if err != nil {
			return err
		}
		c.smtpAuth = smtpAuth
		// XOAUTH2 tokens expire, so the Auth is built anew for every dial
		if c.smtpAuthType == SMTPAuthXOAUTH2 {
			defer func() { c.smtpAuth = nil }()
		}
	}
	if c.smtpAuth == nil {
		return nil
	}
	if err := c.smtpClient.Auth(c.smtpAuth); err != nil {
		return fmt.Errorf("SMTP AUTH failed: %w", err)
	}
	return nil
}

// newSMTPAuth returns the smtp.Auth for the SMTPAuthType of the Client
func (c *Client) newSMTPAuth(ctx context.Context) (smtp.Auth, error) {
	switch c.smtpAuthType {
	case SMTPAuthPlain:
		return smtp.PlainAuth("", c.user, c.pass, c.host, false), nil
	case SMTPAuthLogin:
		return smtp.LoginAuth(c.user, c.pass, c.host, false), nil
	case SMTPAuthNTLM:
		return smtp.NTLMv2Auth(c.user, c.pass, c.helo), nil
	case SMTPAuthXOAUTH2:
		if c.tokenSource == nil {
			if c.pass == "" {
				return nil, ErrNoTokenSource
			}
			return smtp.XOAuth2Auth(c.user, c.pass), nil
		}
		token, err := c.tokenSource(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get XOAUTH2 access token: %w", err)
		}
		return smtp.XOAuth2Auth(c.user, token), nil
	case SMTPAuthSCRAMSHA1:
		return smtp.ScramSHA1Auth(c.user, c.pass), nil
	case SMTPAuthSCRAMSHA256:
		return smtp.ScramSHA256Auth(c.user, c.pass), nil
	case SMTPAuthSCRAMSHA1PLUS, SMTPAuthSCRAMSHA256PLUS:
		state, err := c.smtpClient.TLSConnectionState()
		if err != nil {
			return nil, err
		}
		if c.smtpAuthType == SMTPAuthSCRAMSHA1PLUS {
			return smtp.ScramSHA1PlusAuth(c.user, c.pass, state), nil
		}
		return smtp.ScramSHA256PlusAuth(c.user, c.pass, state), nil
	default:
		return nil, fmt.Errorf("unsupported SMTP AUTH type %q", c.smtpAuthType)
	}
}
