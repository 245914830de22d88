package notifier

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"
)

// EmailConfig holds SMTP settings for the alert channel.
type EmailConfig struct {
	From     string
	To       string // comma separated
	Password string
	Host     string
	Port     int
}

// EmailSender delivers alerts over SMTP.
type EmailSender struct {
	from   string
	to     []string
	dialer *gomail.Dialer
}

// NewEmailSender creates an SMTP sender authenticating as cfg.From.
func NewEmailSender(cfg EmailConfig) *EmailSender {
	var to []string
	for _, addr := range strings.Split(cfg.To, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, addr)
		}
	}
	return &EmailSender{
		from:   cfg.From,
		to:     to,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.From, cfg.Password),
	}
}

func (e *EmailSender) Name() string { return "email" }

// Send dials the SMTP server and sends one HTML message. gomail has no
// context support, so ctx only bounds how long the caller waits.
func (e *EmailSender) Send(ctx context.Context, subject, htmlBody string) error {
	if len(e.to) == 0 {
		return fmt.Errorf("no recipients configured")
	}
	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", e.to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	done := make(chan error, 1)
	go func() { done <- e.dialer.DialAndSend(m) }()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	}
}
