package account

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/shop-auth-api/internal/application/credential"
	"github.com/shop-auth-api/internal/application/session"
	"github.com/shop-auth-api/internal/domain"
	"github.com/shop-auth-api/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockTokens struct{ mock.Mock }

func (m *mockTokens) Issue(ctx context.Context, identity domain.PublicIdentity) (*session.IssuedToken, error) {
	args := m.Called(ctx, identity)
	if t, _ := args.Get(0).(*session.IssuedToken); t != nil {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockStates struct{ mock.Mock }

func (m *mockStates) State(ctx context.Context, userID string) (domain.VerificationState, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.VerificationState), args.Error(1)
}

type mockAvatars struct{ mock.Mock }

func (m *mockAvatars) Upload(ctx context.Context, key string, _ io.Reader, size int64, contentType string) (string, error) {
	args := m.Called(ctx, key, size, contentType)
	return args.String(0), args.Error(1)
}

func (m *mockAvatars) DeleteURL(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

// --- helpers ---

type fixture struct {
	svc       Service
	users     *memory.UserStore
	carts     *memory.CartStore
	artifacts *memory.VerificationStore
	tokens    *mockTokens
	states    *mockStates
	avatars   *mockAvatars
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:     memory.NewUserStore(),
		carts:     memory.NewCartStore(),
		artifacts: memory.NewVerificationStore(),
		tokens:    new(mockTokens),
		states:    new(mockStates),
		avatars:   new(mockAvatars),
	}
	f.svc = NewService(ServiceDeps{
		UserRepo:       f.users,
		CartRepo:       f.carts,
		Artifacts:      discarder{f.artifacts},
		States:         f.states,
		Sessions:       f.tokens,
		Hasher:         credential.NewVerifier(bcrypt.MinCost),
		Avatars:        f.avatars,
		AvatarMaxBytes: 1024000,
		Now:            func() time.Time { return time.UnixMilli(1700000000000) },
	})
	f.tokens.On("Issue", mock.Anything, mock.Anything).Return(&session.IssuedToken{Token: "tok", TokenID: "jti"}, nil)
	return f
}

type discarder struct{ store *memory.VerificationStore }

func (d discarder) Discard(ctx context.Context, userID string, purpose domain.Purpose) error {
	return d.store.Delete(ctx, userID, purpose)
}

func (f *fixture) register(t *testing.T, email string) *domain.PublicIdentity {
	u, _, err := f.svc.Register(context.Background(), domain.RegisterRequest{
		FirstName: "Ada", LastName: "Lovelace", Email: email, Password: "secret123",
	})
	require.NoError(t, err)
	return u
}

// --- tests ---

func TestRegister(t *testing.T) {
	f := newFixture(t)
	u, tok, err := f.svc.Register(context.Background(), domain.RegisterRequest{
		FirstName: " Ada ", LastName: "Lovelace", Email: "A@X.com ", Password: "secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", u.Email)
	assert.Equal(t, "Ada", u.FirstName)
	assert.Equal(t, domain.RoleUser, u.Role)
	assert.False(t, u.Verified)
	assert.Equal(t, "tok", tok.Token)

	stored, err := f.users.GetCredentials(context.Background(), u.UserID)
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", stored.PasswordHash)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com")
	_, _, err := f.svc.Register(context.Background(), domain.RegisterRequest{
		FirstName: "B", LastName: "C", Email: "a@x.com", Password: "secret123",
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com")

	u, tok, err := f.svc.Login(context.Background(), domain.LoginRequest{Email: "a@x.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", u.Email)
	assert.NotNil(t, tok)
}

func TestLogin_FailuresLookAlike(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@x.com")

	_, _, wrongPass := f.svc.Login(context.Background(), domain.LoginRequest{Email: "a@x.com", Password: "nope"})
	_, _, unknown := f.svc.Login(context.Background(), domain.LoginRequest{Email: "b@x.com", Password: "secret123"})
	assert.ErrorIs(t, wrongPass, domain.ErrInvalidCredentials)
	assert.ErrorIs(t, unknown, domain.ErrInvalidCredentials)
	assert.Equal(t, wrongPass.Error(), unknown.Error())
}

type recordingHasher struct {
	*credential.Verifier
	compared []string
}

func (h *recordingHasher) Matches(hash, secret string) bool {
	h.compared = append(h.compared, hash)
	return h.Verifier.Matches(hash, secret)
}

func TestLogin_UnknownEmailComparesAgainstRealHash(t *testing.T) {
	f := newFixture(t)
	h := &recordingHasher{Verifier: credential.NewVerifier(bcrypt.MinCost)}
	svc := NewService(ServiceDeps{UserRepo: f.users, CartRepo: f.carts, Sessions: f.tokens, Hasher: h})

	_, _, err := svc.Login(context.Background(), domain.LoginRequest{Email: "nobody@x.com", Password: "secret123"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	require.Len(t, h.compared, 1)
	cost, err := bcrypt.Cost([]byte(h.compared[0]))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
	assert.ErrorIs(t, bcrypt.CompareHashAndPassword([]byte(h.compared[0]), []byte("secret123")), bcrypt.ErrMismatchedHashAndPassword)
}

func TestAdminLogin(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "a@x.com")
	req := domain.LoginRequest{Email: "a@x.com", Password: "secret123"}

	_, _, err := f.svc.AdminLogin(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	require.NoError(t, f.users.Update(context.Background(), u.UserID, map[string]interface{}{"role": domain.RoleAdmin}))
	got, _, err := f.svc.AdminLogin(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, got.Role)
}

func TestCurrent(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "a@x.com")
	f.carts.SetItemsCount(u.UserID, 2)
	f.states.On("State", mock.Anything, u.UserID).Return(domain.StatePendingVerification, nil)

	p, err := f.svc.Current(context.Background(), u.UserID)
	require.NoError(t, err)
	assert.Equal(t, u.UserID, p.UserID)
	assert.Equal(t, domain.StatePendingVerification, p.VerificationState)
	assert.Equal(t, 2, p.CartItemsCount)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "a@x.com")
	first, email := "Augusta", "ada@x.com"

	got, err := f.svc.UpdateProfile(context.Background(), u.UserID, domain.UpdateProfileRequest{FirstName: &first, Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "Augusta", got.FirstName)
	assert.Equal(t, "Lovelace", got.LastName)
	assert.Equal(t, "ada@x.com", got.Email)
}

func TestUpdateProfile_EmailTaken(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "a@x.com")
	f.register(t, "b@x.com")
	taken := "b@x.com"

	_, err := f.svc.UpdateProfile(context.Background(), u.UserID, domain.UpdateProfileRequest{Email: &taken})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestUpdateProfile_Empty(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "a@x.com")
	_, err := f.svc.UpdateProfile(context.Background(), u.UserID, domain.UpdateProfileRequest{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdateAvatar(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "a@x.com")
	key := "avatars/user-" + u.UserID + "-1700000000000.png"
	f.avatars.On("Upload", mock.Anything, key, int64(3), "image/png").Return("https://cdn/"+key, nil)

	got, err := f.svc.UpdateAvatar(context.Background(), u.UserID, Avatar{
		Body: strings.NewReader("png"), Size: 3, ContentType: "image/png", Filename: "me.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/"+key, got.AvatarURL)
	f.avatars.AssertNotCalled(t, "DeleteURL", mock.Anything, mock.Anything)
}

func TestUpdateAvatar_Rejects(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "a@x.com")

	_, err := f.svc.UpdateAvatar(context.Background(), u.UserID, Avatar{Body: strings.NewReader("x"), Size: 1, ContentType: "application/pdf"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.svc.UpdateAvatar(context.Background(), u.UserID, Avatar{Body: strings.NewReader("x"), Size: 1024001, ContentType: "image/jpeg"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	f.avatars.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateAvatar_UploadFailure(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "a@x.com")
	f.avatars.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("s3 down"))

	_, err := f.svc.UpdateAvatar(context.Background(), u.UserID, Avatar{Body: strings.NewReader("x"), Size: 1, ContentType: "image/jpeg"})
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestDelete_CartGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.register(t, "a@x.com")
	require.NoError(t, f.artifacts.Put(ctx, &domain.Artifact{UserID: u.UserID, Purpose: domain.PurposeReset, ExpiresAt: time.Now().Add(time.Hour).Unix()}))
	f.carts.SetItemsCount(u.UserID, 1)

	err := f.svc.Delete(ctx, u.UserID, "secret123")
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
	_, err = f.users.Get(ctx, u.UserID)
	require.NoError(t, err)

	f.carts.SetItemsCount(u.UserID, 0)
	require.NoError(t, f.svc.Delete(ctx, u.UserID, "secret123"))
	_, err = f.users.Get(ctx, u.UserID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.artifacts.Get(ctx, u.UserID, domain.PurposeReset)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDelete_WrongPassword(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "a@x.com")
	err := f.svc.Delete(context.Background(), u.UserID, "nope")
	assert.ErrorIs(t, err, domain.ErrPreconditionFailed)
}
