package mail

import (
	"context"
	"errors"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/vetcare/identity-api/internal/core/domain"
)

const defaultSendTimeout = 15 * time.Second

// Config captures the SMTP relay settings. Username empty disables SMTP AUTH.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTPNotifier sends HTML mail through an SMTP relay using STARTTLS.
type SMTPNotifier struct {
	cfg Config
}

func NewSMTPNotifier(cfg Config) (*SMTPNotifier, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSendTimeout
	}
	return &SMTPNotifier{cfg: cfg}, nil
}

// Send delivers one HTML message. Failures are returned as Email.Failure.
func (n *SMTPNotifier) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg, err := n.message(to, subject, htmlBody)
	if err != nil {
		return domain.Failure("Email.Failure", err)
	}

	client, err := gomail.NewClient(n.cfg.Host, n.clientOptions()...)
	if err != nil {
		return domain.Failure("Email.Failure", fmt.Errorf("smtp client: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return domain.Failure("Email.Failure", fmt.Errorf("smtp send: %w", err))
	}
	return nil
}

func (n *SMTPNotifier) message(to, subject, htmlBody string) (*gomail.Msg, error) {
	msg := gomail.NewMsg()
	if err := msg.From(n.cfg.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlBody)
	return msg, nil
}

func (n *SMTPNotifier) clientOptions() []gomail.Option {
	opts := []gomail.Option{
		gomail.WithPort(n.cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
		gomail.WithTimeout(n.cfg.Timeout),
	}
	if n.cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(n.cfg.Username),
			gomail.WithPassword(n.cfg.Password),
		)
	}
	return opts
}
