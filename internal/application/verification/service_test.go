package verification

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/shop-auth-api/internal/application/otp"
	"github.com/shop-auth-api/internal/application/session"
	"github.com/shop-auth-api/internal/domain"
	jwtinfra "github.com/shop-auth-api/internal/infrastructure/jwt"
	"github.com/shop-auth-api/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Send(ctx context.Context, kind domain.NotificationKind, to domain.PublicIdentity, a domain.IssuedArtifact) error {
	return m.Called(ctx, kind, to, a).Error(0)
}

type fixture struct {
	svc      Service
	users    *memory.UserStore
	sessions session.Service
	notifier *mockNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	users := memory.NewUserStore()
	require.NoError(t, users.Create(context.Background(), &domain.Identity{
		UserID: "u1", Email: "a@x.com", FirstName: "A", Role: domain.RoleUser,
	}))
	sessions := session.NewService(session.ServiceDeps{
		UserRepo: users,
		Tokens:   jwtinfra.NewProviderWithKey(key, "test"),
		TTL:      time.Hour,
	})
	codes := otp.NewGenerator(memory.NewVerificationStore(), otp.Config{
		Digits: 6, VerificationTTL: 10 * time.Minute, ResetTTL: 10 * time.Minute,
	})
	n := new(mockNotifier)
	return &fixture{
		svc: NewService(ServiceDeps{
			UserRepo: users, Codes: codes, Notifier: n, Sessions: sessions,
		}),
		users:    users,
		sessions: sessions,
		notifier: n,
	}
}

func TestInitiateComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.notifier.On("Send", mock.Anything, domain.NotifyAccountVerification, mock.Anything, mock.Anything).Return(nil)

	state, err := f.svc.State(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateUnverified, state)

	a, err := f.svc.Initiate(ctx, "u1")
	require.NoError(t, err)
	state, _ = f.svc.State(ctx, "u1")
	assert.Equal(t, domain.StatePendingVerification, state)

	u, tok, err := f.svc.Complete(ctx, "u1", a.Token)
	require.NoError(t, err)
	assert.True(t, u.Verified)

	p, err := f.sessions.Validate(ctx, tok.Token)
	require.NoError(t, err)
	assert.True(t, p.Identity.Verified)

	state, _ = f.svc.State(ctx, "u1")
	assert.Equal(t, domain.StateVerified, state)
	f.notifier.AssertExpectations(t)
}

func TestComplete_WithCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.notifier.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	a, err := f.svc.Initiate(ctx, "u1")
	require.NoError(t, err)
	_, _, err = f.svc.Complete(ctx, "u1", a.Code)
	assert.NoError(t, err)
}

func TestComplete_WrongCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.notifier.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Initiate(ctx, "u1")
	require.NoError(t, err)
	_, _, err = f.svc.Complete(ctx, "u1", "000000x")
	assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredCode)

	u, _ := f.users.Get(ctx, "u1")
	assert.False(t, u.Verified)
}

func TestReinitiate_OnlyLatestConsumable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.notifier.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	first, err := f.svc.Reinitiate(ctx, "u1")
	require.NoError(t, err)
	second, err := f.svc.Reinitiate(ctx, "u1")
	require.NoError(t, err)

	state, _ := f.svc.State(ctx, "u1")
	assert.Equal(t, domain.StatePendingVerification, state)

	_, _, err = f.svc.Complete(ctx, "u1", first.Token)
	assert.ErrorIs(t, err, domain.ErrInvalidOrExpiredCode)
	_, _, err = f.svc.Complete(ctx, "u1", second.Token)
	assert.NoError(t, err)
	f.notifier.AssertCalled(t, "Send", mock.Anything, domain.NotifyVerificationResend, mock.Anything, mock.Anything)
}

func TestComplete_SecondTimeFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.notifier.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	a, err := f.svc.Initiate(ctx, "u1")
	require.NoError(t, err)

	_, _, err = f.svc.Complete(ctx, "u1", a.Token)
	require.NoError(t, err)
	_, _, err = f.svc.Complete(ctx, "u1", a.Token)
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
}

func TestInitiate_AlreadyVerified(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.users.Update(ctx, "u1", map[string]interface{}{"is_account_verified": true}))

	_, err := f.svc.Initiate(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
	f.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestInitiate_DeliveryFailureSurfaces(t *testing.T) {
	f := newFixture(t)
	down := errors.Join(domain.ErrUpstreamUnavailable, errors.New("smtp down"))
	f.notifier.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(down)

	a, err := f.svc.Initiate(context.Background(), "u1")
	assert.Nil(t, a)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.notifier.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	a, err := f.svc.Initiate(ctx, "u1")
	require.NoError(t, err)

	ok, err := f.svc.Check(ctx, "u1", a.Token)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = f.svc.Check(ctx, "u1", "nope")
	assert.False(t, ok)

	_, _, err = f.svc.Complete(ctx, "u1", a.Token)
	assert.NoError(t, err, "check must not consume")
}
