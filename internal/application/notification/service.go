// Package notification renders account messages and hands them to a mail
// backend.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shop-auth-api/internal/domain"
)

// Mailer is implemented by the SMTP, Postmark and SNS backends.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type Service interface {
	Send(ctx context.Context, kind domain.NotificationKind, to domain.PublicIdentity, artifact domain.IssuedArtifact) error
}

type service struct {
	mailer  Mailer
	baseURL string
	now     func() time.Time
}

// NewService returns a notifier whose links point at baseURL. now is the
// clock the expiry window is rendered against; nil means time.Now.
func NewService(mailer Mailer, baseURL string, now func() time.Time) Service {
	if now == nil {
		now = time.Now
	}
	return &service{mailer: mailer, baseURL: strings.TrimRight(baseURL, "/"), now: now}
}

func (s *service) Send(ctx context.Context, kind domain.NotificationKind, to domain.PublicIdentity, a domain.IssuedArtifact) error {
	subject, body, err := s.render(kind, to, a)
	if err != nil {
		return err
	}
	if err := s.mailer.SendEmail(ctx, to.Email, subject, body); err != nil {
		return fmt.Errorf("deliver %s: %w: %w", kind, domain.ErrUpstreamUnavailable, err)
	}
	return nil
}

func (s *service) render(kind domain.NotificationKind, to domain.PublicIdentity, a domain.IssuedArtifact) (subject, body string, err error) {
	minutes := int(a.ExpiresAt.Sub(s.now()).Round(time.Minute).Minutes())
	if minutes < 1 {
		minutes = 1
	}
	name := to.FirstName
	if name == "" {
		name = to.Email
	}
	switch kind {
	case domain.NotifyAccountVerification, domain.NotifyVerificationResend:
		subject = "Verify your account"
		if kind == domain.NotifyVerificationResend {
			subject = "Your new verification code"
		}
		link := fmt.Sprintf("%s/verify/%s/%s", s.baseURL, a.UserID, a.Token)
		body = fmt.Sprintf("Hi %s,\n\nYour verification code is %s.\nOr open this link: %s\n\nBoth expire in %d minutes.\n",
			name, a.Code, link, minutes)
	case domain.NotifyPasswordReset:
		subject = "Reset your password"
		link := fmt.Sprintf("%s/reset-password/%s/%s", s.baseURL, a.UserID, a.Token)
		body = fmt.Sprintf("Hi %s,\n\nUse this link to choose a new password: %s\nYour reset code is %s.\n\nBoth expire in %d minutes. If you did not ask for this, ignore this email.\n",
			name, link, a.Code, minutes)
	default:
		return "", "", fmt.Errorf("unknown notification kind %q", kind)
	}
	return subject, body, nil
}

// LogMailer writes messages to the log instead of sending them. Used in
// development when no mail backend is configured.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) SendEmail(ctx context.Context, to, subject, body string) error {
	m.Logger.InfoContext(ctx, "outbound email", "to", to, "subject", subject, "body", body)
	return nil
}
