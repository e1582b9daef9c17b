// Package mailer sends the account confirmation email.
//
// FIRE-AND-FORGET CONTRACT:
// Registration must not wait on (or fail because of) mail delivery. The
// handler calls SendConfirmationAsync, which returns immediately; delivery
// happens on a goroutine with its own timeout, and a failure is logged and
// counted but never reaches the user whose account was already created.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"time"

	"github.com/sakif/pastebin/internal/metrics"
)

// sendTimeout bounds one delivery attempt. The goroutine must not hang on a
// dead SMTP server forever.
const sendTimeout = 30 * time.Second

// Sender delivers a confirmation email carrying the link the user must
// visit. Implemented by SMTPSender; tests use a recording fake.
type Sender interface {
	SendConfirmation(ctx context.Context, to, token, baseURL string) error
}

// Config holds the outbound-mail settings, all environment-sourced.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender delivers mail through a plain SMTP server with PLAIN auth.
type SMTPSender struct {
	cfg Config
}

// NewSMTPSender validates the configuration and returns a sender. All fields
// are required — a half-configured mailer should fail at startup, not at the
// first registration.
func NewSMTPSender(cfg Config) (*SMTPSender, error) {
	if cfg.Host == "" || cfg.Port == 0 || cfg.Username == "" || cfg.Password == "" || cfg.From == "" {
		return nil, fmt.Errorf("mailer: incomplete SMTP configuration")
	}
	return &SMTPSender{cfg: cfg}, nil
}

// SendConfirmation sends the confirmation link to the given address.
//
// The message body is deliberately plain text with the full link; the
// recipient either clicks it or pastes it, and plain text survives every
// mail client.
func (s *SMTPSender) SendConfirmation(ctx context.Context, to, token, baseURL string) error {
	link := fmt.Sprintf("%s/auth/confirm/%s", baseURL, token)
	msg := []byte(fmt.Sprintf(
		"From: Pastebin <%s>\r\nTo: %s\r\nSubject: Confirm your email\r\n\r\n"+
			"Welcome to Pastebin!\r\n\r\n"+
			"Confirm your email address by visiting:\r\n\r\n  %s\r\n\r\n"+
			"If you did not register, ignore this message.\r\n",
		s.cfg.From, to, link,
	))

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	// smtp.SendMail has no context support, so run it on a goroutine and
	// race it against the context. On timeout the connection leaks until the
	// dial's own TCP timeout fires — acceptable for a best-effort path.
	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, s.cfg.From, []string{to}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("mailer: sending to %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("mailer: sending to %s: %w", to, ctx.Err())
	}
}

// SendConfirmationAsync dispatches delivery in the background and returns
// immediately. The caller's request context is NOT used — the HTTP response
// will be written long before delivery finishes, and cancelling the mail with
// the request would defeat the point.
func SendConfirmationAsync(sender Sender, logger *slog.Logger, collector metrics.Collector, to, token, baseURL string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		if err := sender.SendConfirmation(ctx, to, token, baseURL); err != nil {
			collector.RecordMailFailure()
			logger.Error("confirmation email failed",
				slog.String("to", to),
				slog.String("error", err.Error()),
			)
			return
		}

		collector.RecordMailSent()
		logger.Info("confirmation email sent", slog.String("to", to))
	}()
}
