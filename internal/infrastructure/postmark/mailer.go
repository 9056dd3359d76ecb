package postmark

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
	"github.com/shop-auth-api/internal/config"
)

var ErrSendFailed = errors.New("postmark: failed to send email")

// Mailer sends transactional emails through the Postmark API.
type Mailer struct {
	client *postmark.Client
	from   string
}

func NewMailer(cfg *config.Config) (*Mailer, error) {
	if cfg.PostmarkServerToken == "" || cfg.PostmarkAccountToken == "" {
		return nil, errors.New("postmark: server and account tokens are required")
	}
	return &Mailer{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		from:   cfg.SMTPFrom,
	}, nil
}

func (m *Mailer) SendEmail(ctx context.Context, to, subject, body string) error {
	resp, err := m.client.SendEmail(ctx, postmark.Email{
		From:     m.from,
		To:       to,
		Subject:  subject,
		Tag:      "auth",
		TextBody: body,
	})
	if err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrSendFailed, fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}
