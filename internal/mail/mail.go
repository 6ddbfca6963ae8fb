// Package mail sends outgoing email through the user's own SMTP account.
//
// The sender settings come entirely from the user's stored email
// configuration; voicedesk holds no mail credentials of its own.
package mail

import (
	"fmt"
	"log/slog"
	"strconv"

	"gopkg.in/gomail.v2"

	"github.com/voicedesk/voicedesk/internal/model"
)

// Mailer delivers a message using the given per-user configuration.
type Mailer interface {
	Send(cfg model.EmailConfig, recipient, subject, body string) error
}

// SMTPMailer implements Mailer over SMTP with STARTTLS/implicit TLS,
// dialing the host and port from the user's configuration.
type SMTPMailer struct{}

// NewSMTP creates an SMTP-backed mailer.
func NewSMTP() *SMTPMailer { return &SMTPMailer{} }

// Send composes a plain-text message and delivers it in one dial.
func (m *SMTPMailer) Send(cfg model.EmailConfig, recipient, subject, body string) error {
	port, err := strconv.Atoi(cfg.TLSPort)
	if err != nil {
		return fmt.Errorf("invalid TLS port %q: %w", cfg.TLSPort, err)
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", cfg.Email, cfg.DisplayName)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	dialer := gomail.NewDialer(cfg.SMTPHost, port, cfg.Email, cfg.EmailPassword)
	if err := dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending via %s:%d: %w", cfg.SMTPHost, port, err)
	}

	slog.Debug("email sent", "host", cfg.SMTPHost, "recipient", recipient)
	return nil
}
