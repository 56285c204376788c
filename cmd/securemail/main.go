// SPDX-FileCopyrightText: The go-mail Authors
//
// SPDX-License-Identifier: MIT

// Command securemail sends S/MIME encrypted messages to directory users.
package main

import (
	"context"
	"errors"
	"fmt"
	"html"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	securemail "github.com/wneessen/go-securemail"
	"github.com/wneessen/go-securemail/config"
	"github.com/wneessen/go-securemail/log"
	"github.com/wneessen/go-securemail/oauth"
)

var (
	configFile     string
	identifierType string
	subject        string
	body           string
	dryRun         bool
)

var rootCmd = &cobra.Command{
	Use:          "securemail",
	Short:        "Send S/MIME encrypted mail to directory users",
	SilenceUsage: true,
}

var sendCmd = &cobra.Command{
	Use:   "send [identifier]",
	Short: "Send an encrypted message to the directory user with the given identifier",
	Args:  cobra.ExactArgs(1),
	RunE:  runSend,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Request an OAuth access token for the configured client",
	Args:  cobra.NoArgs,
	RunE:  runToken,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Println(securemail.VERSION)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to the config file")
	sendCmd.Flags().StringVarP(&identifierType, "type", "t", securemail.IdentifierEmail,
		"identifier type (email, samaccountname or distinguishedname)")
	sendCmd.Flags().StringVarP(&subject, "subject", "s", "", "message subject, overrides mail.subject")
	sendCmd.Flags().StringVarP(&body, "body", "b", "", "message body, overrides mail.body")
	sendCmd.Flags().BoolVar(&dryRun, "dry-run", false, "write the encrypted message to stdout instead of sending it")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, log.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := cfg.Log.NewLogger(os.Stderr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Directory.File == "" {
		return errors.New("no directory file configured")
	}
	directory, err := securemail.LoadDirectoryFile(cfg.Directory.File)
	if err != nil {
		return fmt.Errorf("failed to load directory: %w", err)
	}

	var tokens *oauth.TokenCache
	if cfg.OAuthEnabled() {
		if tokens, err = oauth.NewTokenCache(cfg.TokenCacheOptions(logger)...); err != nil {
			return err
		}
	}
	clientOpts, err := cfg.ClientOptions(tokens, logger)
	if err != nil {
		return err
	}
	client, err := securemail.NewClient(cfg.Mail.MailServer, clientOpts...)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	service, err := securemail.NewMailService(cfg.Mail, directory, htmlBody, client,
		securemail.WithServiceLogger(logger))
	if err != nil {
		return err
	}

	contents := securemail.MessageContents{Subject: cfg.Mail.Subject, BodyText: cfg.Mail.Body}
	if subject != "" {
		contents.Subject = subject
	}
	if body != "" {
		contents.BodyText = body
	}
	query := securemail.UserQuery{IdentifierType: identifierType, ID: args[0]}

	if dryRun {
		msg, err := service.AssembleFor(cmd.Context(), query, contents)
		if err != nil {
			return err
		}
		_, err = msg.WriteTo(cmd.OutOrStdout())
		return err
	}
	return service.SendEmailWithContents(cmd.Context(), query, contents)
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	tokens, err := oauth.NewTokenCache(cfg.TokenCacheOptions(logger)...)
	if err != nil {
		return err
	}
	token, err := tokens.Token(cmd.Context(), cfg.OAuth.Config)
	if err != nil {
		return err
	}
	cmd.Printf("token type: %s\nscope: %s\nexpires: %s\naccess token: %s\n", token.TokenType, token.Scope,
		token.Expiry.Format("2006-01-02 15:04:05 MST"), token.AccessToken)
	return nil
}

// htmlBody renders plain body text as HTML paragraphs. Blank lines separate paragraphs, single
// line breaks become <br>.
func htmlBody(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var builder strings.Builder
	for _, paragraph := range strings.Split(text, "\n\n") {
		paragraph = strings.Trim(paragraph, "\n")
		if strings.TrimSpace(paragraph) == "" {
			continue
		}
		lines := strings.Split(html.EscapeString(paragraph), "\n")
		builder.WriteString("<p>" + strings.Join(lines, "<br>") + "</p>\n")
	}
	return builder.String()
}
