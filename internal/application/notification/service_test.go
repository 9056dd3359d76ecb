package notification

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shop-auth-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(ctx context.Context, to, subject, body string) error {
	return m.Called(ctx, to, subject, body).Error(0)
}

var ada = domain.PublicIdentity{UserID: "u1", Email: "ada@shop.test", FirstName: "Ada"}

var issuedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return issuedAt }

func artifact(p domain.Purpose) domain.IssuedArtifact {
	return domain.IssuedArtifact{
		UserID: "u1", Purpose: p, Code: "123456", Token: "tok",
		ExpiresAt: issuedAt.Add(10 * time.Minute),
	}
}

func TestSend_Verification(t *testing.T) {
	m := new(mockMailer)
	svc := NewService(m, "https://shop.test/", fixedClock)
	m.On("SendEmail", mock.Anything, "ada@shop.test", "Verify your account", mock.MatchedBy(func(body string) bool {
		return assert.Contains(t, body, "123456") &&
			assert.Contains(t, body, "https://shop.test/verify/u1/tok") &&
			assert.Contains(t, body, "10 minutes")
	})).Return(nil)

	require.NoError(t, svc.Send(context.Background(), domain.NotifyAccountVerification, ada, artifact(domain.PurposeVerification)))
	m.AssertExpectations(t)
}

func TestSend_Reset(t *testing.T) {
	m := new(mockMailer)
	svc := NewService(m, "https://shop.test", fixedClock)
	m.On("SendEmail", mock.Anything, "ada@shop.test", "Reset your password", mock.MatchedBy(func(body string) bool {
		return assert.Contains(t, body, "https://shop.test/reset-password/u1/tok")
	})).Return(nil)

	require.NoError(t, svc.Send(context.Background(), domain.NotifyPasswordReset, ada, artifact(domain.PurposeReset)))
	m.AssertExpectations(t)
}

func TestSend_ExpiryUsesInjectedClock(t *testing.T) {
	m := new(mockMailer)
	later := func() time.Time { return issuedAt.Add(7 * time.Minute) }
	m.On("SendEmail", mock.Anything, "ada@shop.test", "Verify your account", mock.MatchedBy(func(body string) bool {
		return assert.Contains(t, body, "expire in 3 minutes")
	})).Return(nil)

	svc := NewService(m, "https://shop.test", later)
	require.NoError(t, svc.Send(context.Background(), domain.NotifyAccountVerification, ada, artifact(domain.PurposeVerification)))
	m.AssertExpectations(t)
}

func TestSend_DeliveryFailure(t *testing.T) {
	m := new(mockMailer)
	m.On("SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("relay down"))
	err := NewService(m, "https://shop.test", fixedClock).Send(context.Background(), domain.NotifyVerificationResend, ada, artifact(domain.PurposeVerification))
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestSend_UnknownKind(t *testing.T) {
	m := new(mockMailer)
	err := NewService(m, "https://shop.test", fixedClock).Send(context.Background(), "promo", ada, artifact(domain.PurposeVerification))
	assert.Error(t, err)
	m.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	m := LogMailer{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	require.NoError(t, m.SendEmail(context.Background(), "ada@shop.test", "hello", "body"))
	assert.Contains(t, buf.String(), "ada@shop.test")
}
