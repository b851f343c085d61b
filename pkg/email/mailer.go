// Package email sends transactional mail through Postmark, or writes it to
// disk in development.
package email

import (
	"context"
	"errors"

	"github.com/dmitrymomot/quill/pkg/validator"
)

var (
	ErrFailedToSendEmail = errors.New("email: failed to send")
	ErrInvalidConfig     = errors.New("email: invalid config")
	ErrInvalidParams     = errors.New("email: invalid params")
)

// Config selects the sender. Without Postmark tokens messages are written to
// DevDir.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"noreply@example.com"`
	SupportEmail         string `env:"SUPPORT_EMAIL"` // Reply-To, optional
	DevDir               string `env:"EMAIL_DEV_DIR" envDefault:"tmp/emails"`
}

func (c Config) PostmarkEnabled() bool {
	return c.PostmarkServerToken != "" && c.PostmarkAccountToken != ""
}

// Sender sends a single HTML email.
type Sender interface {
	SendEmail(ctx context.Context, params SendEmailParams) error
}

type SendEmailParams struct {
	SendTo   string
	Subject  string
	BodyHTML string
	Tag      string // Postmark message stream tag, e.g. "comment"
}

func (p SendEmailParams) Validate() error {
	if err := validator.Apply(
		validator.Required("send_to", p.SendTo),
		validator.ValidEmail("send_to", p.SendTo),
		validator.Required("subject", p.Subject),
		validator.MaxLen("subject", p.Subject, 255),
		validator.Required("body_html", p.BodyHTML),
	); err != nil {
		return errors.Join(ErrInvalidParams, err)
	}
	return nil
}

// New returns a Postmark sender when tokens are configured and a DevSender
// otherwise.
func New(cfg Config) (Sender, error) {
	if cfg.PostmarkEnabled() {
		return NewPostmarkClient(cfg)
	}
	return NewDevSender(cfg.DevDir), nil
}
