// Package notify delivers purchase notifications: an order notice to the
// company that owns the listing and a receipt to the buyer. Delivery runs on
// a bounded worker pool, off the purchase path, and every attempt is recorded
// in the notification log.
package notify

//go:generate mockgen -source=mailer.go -destination=mailer_mock.go -package=notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wneessen/go-mail"

	"github.com/tbourn/affiliate-ledger/internal/config"
)

// Message is one outgoing email with a plain-text body and an optional
// HTML alternative.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends a single message.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// SMTPMailer sends mail through an SMTP relay. A new connection is dialed
// per message.
type SMTPMailer struct {
	client *mail.Client
	from   string
}

// NewSMTPMailer builds a mailer from cfg. Port 465 uses implicit TLS; any
// other port upgrades with STARTTLS when the server offers it.
func NewSMTPMailer(cfg config.SMTPConfig, timeout time.Duration) (*SMTPMailer, error) {
	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.User),
			mail.WithPassword(cfg.Pass),
		)
	}
	if timeout > 0 {
		opts = append(opts, mail.WithTimeout(timeout))
	}
	c, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{client: c, from: cfg.From}, nil
}

// Send implements Mailer.
func (s *SMTPMailer) Send(ctx context.Context, m Message) error {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(m.To); err != nil {
		return fmt.Errorf("to address: %w", err)
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextPlain, m.Text)
	if m.HTML != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, m.HTML)
	}
	return s.client.DialAndSendWithContext(ctx, msg)
}

// LogMailer writes messages to the log instead of sending them. It is used
// when no SMTP host is configured.
type LogMailer struct{}

// Send implements Mailer.
func (LogMailer) Send(_ context.Context, m Message) error {
	log.Info().
		Str("component", "mailer").
		Str("to", m.To).
		Str("subject", m.Subject).
		Int("text_len", len(m.Text)).
		Msg("mail not sent (no SMTP host configured)")
	return nil
}
