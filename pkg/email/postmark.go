package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"

	"github.com/dmitrymomot/quill/pkg/validator"
)

type postmarkClient struct {
	client  *postmark.Client
	from    string
	replyTo string
}

func NewPostmarkClient(cfg Config) (Sender, error) {
	if !cfg.PostmarkEnabled() {
		return nil, fmt.Errorf("%w: both Postmark tokens are required", ErrInvalidConfig)
	}
	rules := []validator.Rule{
		validator.Required("sender_email", cfg.SenderEmail),
		validator.ValidEmail("sender_email", cfg.SenderEmail),
	}
	if cfg.SupportEmail != "" {
		rules = append(rules, validator.ValidEmail("support_email", cfg.SupportEmail))
	}
	if err := validator.Apply(rules...); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	return &postmarkClient{
		client:  postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		from:    cfg.SenderEmail,
		replyTo: cfg.SupportEmail,
	}, nil
}

func (c *postmarkClient) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	resp, err := c.client.SendEmail(ctx, postmark.Email{
		From:     c.from,
		ReplyTo:  c.replyTo,
		To:       params.SendTo,
		Subject:  params.Subject,
		Tag:      params.Tag,
		HTMLBody: params.BodyHTML,
	})
	if err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("%w: postmark error %d: %s", ErrFailedToSendEmail, resp.ErrorCode, resp.Message)
	}
	return nil
}
