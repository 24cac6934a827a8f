// AngelaMos | 2026
// mail.go

package mail

import (
	"context"
	"fmt"
	"log/slog"

	gomail "github.com/wneessen/go-mail"

	"github.com/carterperez-dev/stockease/internal/config"
)

// Sender delivers transactional mail. The registration flow treats delivery
// as best-effort; implementations should not retry internally.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type SMTPSender struct {
	client *gomail.Client
	from   string
}

func NewSMTPSender(cfg config.MailConfig) (*SMTPSender, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}

	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &SMTPSender{client: client, from: cfg.From}, nil
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	return nil
}

// LogSender writes mail to the application log instead of delivering it.
// Used in development so the OTP is readable without an SMTP server.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(
	_ context.Context,
	to, subject, body string,
) error {
	s.logger.Info("mail (log driver)",
		"to", to,
		"subject", subject,
		"body", body,
	)
	return nil
}

// NewSender picks the implementation configured by mail.driver.
func NewSender(cfg config.MailConfig, logger *slog.Logger) (Sender, error) {
	if cfg.Driver == "smtp" {
		return NewSMTPSender(cfg)
	}
	return NewLogSender(logger), nil
}
