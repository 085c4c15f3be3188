// Package mail delivers transactional email over SMTP. Delivery is
// best-effort: callers treat a failed send as a logged event, never as a
// request failure.
package mail

import (
	"context"
	"time"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Sender delivers one message. Implementations report success as a boolean
// so callers can log without branching on error shapes.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) bool
}

// SMTPConfig carries the connection settings for the SMTP sender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// sendAttempts bounds delivery retries for transient SMTP failures.
const sendAttempts = 2

// SMTPSender sends mail through a single SMTP account. Port 465 uses
// implicit TLS; any other port negotiates STARTTLS.
type SMTPSender struct {
	cfg SMTPConfig
	log *zap.Logger
}

// NewSMTPSender returns a sender for the given account.
func NewSMTPSender(cfg SMTPConfig, log *zap.Logger) *SMTPSender {
	return &SMTPSender{cfg: cfg, log: log}
}

// Send delivers the message and reports whether delivery succeeded.
// Failures are logged with the recipient and subject, never the body.
func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody, textBody string) bool {
	msg := gomail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		s.log.Error("mail: invalid sender address", zap.String("from", s.cfg.From), zap.Error(err))
		return false
	}
	if err := msg.To(to); err != nil {
		s.log.Error("mail: invalid recipient address", zap.String("to", to), zap.Error(err))
		return false
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, textBody)
	if htmlBody != "" {
		msg.AddAlternativeString(gomail.TypeTextHTML, htmlBody)
	}

	opts := []gomail.Option{
		gomail.WithPort(s.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.cfg.Username),
		gomail.WithPassword(s.cfg.Password),
		gomail.WithTimeout(s.cfg.Timeout),
	}
	if s.cfg.Port == 465 {
		opts = append(opts, gomail.WithSSL())
	} else {
		opts = append(opts, gomail.WithTLSPortPolicy(gomail.TLSMandatory))
	}

	client, err := gomail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		s.log.Error("mail: client setup failed", zap.Error(err))
		return false
	}
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		if err = client.DialAndSendWithContext(ctx, msg); err == nil {
			s.log.Info("mail: delivered", zap.String("to", to), zap.String("subject", subject))
			return true
		}
		if ctx.Err() != nil {
			break
		}
		s.log.Warn("mail: delivery attempt failed",
			zap.Int("attempt", attempt),
			zap.String("to", to),
			zap.Error(err))
	}
	s.log.Error("mail: delivery failed",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Error(err))
	return false
}

// DisabledSender reports success without sending anything. Used when email is
// switched off by configuration so recovery flows still complete.
type DisabledSender struct {
	log *zap.Logger
}

// NewDisabledSender returns a sender that drops all mail.
func NewDisabledSender(log *zap.Logger) *DisabledSender {
	return &DisabledSender{log: log}
}

// Send logs the would-be delivery and reports success.
func (s *DisabledSender) Send(_ context.Context, to, subject, _, _ string) bool {
	s.log.Info("mail: disabled, dropping message", zap.String("to", to), zap.String("subject", subject))
	return true
}
