package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/health-manager/internal/config"
	"github.com/wneessen/go-mail"
)

var ErrMailerDisabled = errors.New("mailer disabled: EMAIL_SENDER or EMAIL_PASSWORD not set")

// Mailer delivers plain-text e-mail.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NewMailer returns an SMTP mailer, or a disabled one when credentials are
// missing.
func NewMailer(cfg *config.Config) Mailer {
	if cfg.EmailSender == "" || cfg.EmailPassword == "" {
		slog.Warn("email credentials not set, reminders will not be delivered")
		return disabledMailer{}
	}
	return &SMTPMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		sender:   cfg.EmailSender,
		password: cfg.EmailPassword,
	}
}

type disabledMailer struct{}

func (disabledMailer) Send(_ context.Context, to, subject, _ string) error {
	slog.Info("mail not sent, mailer disabled", "to", to, "subject", subject)
	return ErrMailerDisabled
}

// SMTPMailer authenticates as the sender. Port 465 uses implicit TLS,
// anything else requires STARTTLS.
type SMTPMailer struct {
	host     string
	port     int
	sender   string
	password string
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.sender); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(m.host, m.clientOptions()...)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

func (m *SMTPMailer) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(m.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.sender),
		mail.WithPassword(m.password),
		mail.WithTimeout(30 * time.Second),
	}
	if m.port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	return opts
}
