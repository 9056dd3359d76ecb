package domain

import "time"

// Roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Identity is the sensitive view of a user record. It carries the password
// hash and the password-change timestamp and must only reach code that
// checks credentials. Everything else works with PublicIdentity.
type Identity struct {
	UserID            string     `dynamodbav:"user_id"`
	Email             string     `dynamodbav:"email"`
	FirstName         string     `dynamodbav:"first_name"`
	LastName          string     `dynamodbav:"last_name"`
	Role              string     `dynamodbav:"role"`
	PasswordHash      string     `dynamodbav:"password_hash"`
	PasswordChangedAt *time.Time `dynamodbav:"password_changed_at,omitempty"`
	Verified          bool       `dynamodbav:"is_account_verified"`
	AvatarURL         string     `dynamodbav:"avatar_url,omitempty"`
	CreatedAt         time.Time  `dynamodbav:"created_at"`
	UpdatedAt         time.Time  `dynamodbav:"updated_at"`
}

// Public returns the safe view of the identity.
func (i *Identity) Public() PublicIdentity {
	return PublicIdentity{
		UserID:    i.UserID,
		Email:     i.Email,
		FirstName: i.FirstName,
		LastName:  i.LastName,
		Role:      i.Role,
		Verified:  i.Verified,
		AvatarURL: i.AvatarURL,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
}

// PasswordChangedAfter reports whether the password was changed after t,
// compared at millisecond precision (the precision tokens carry).
func (i *Identity) PasswordChangedAfter(t time.Time) bool {
	if i.PasswordChangedAt == nil {
		return false
	}
	return i.PasswordChangedAt.Truncate(time.Millisecond).After(t.Truncate(time.Millisecond))
}

// PublicIdentity is the safe view of a user record: no password hash, no
// password-change timestamp.
type PublicIdentity struct {
	UserID    string    `json:"id" dynamodbav:"user_id"`
	Email     string    `json:"email" dynamodbav:"email"`
	FirstName string    `json:"first_name" dynamodbav:"first_name"`
	LastName  string    `json:"last_name" dynamodbav:"last_name"`
	Role      string    `json:"role" dynamodbav:"role"`
	Verified  bool      `json:"is_account_verified" dynamodbav:"is_account_verified"`
	AvatarURL string    `json:"avatar,omitempty" dynamodbav:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"account_created_at" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}

// Profile is what the current-identity endpoint returns.
type Profile struct {
	PublicIdentity
	VerificationState VerificationState `json:"verification_state"`
	CartItemsCount    int               `json:"cart_items_count"`
}

type RegisterRequest struct {
	FirstName string `json:"firstName" validate:"required,max=50"`
	LastName  string `json:"lastName" validate:"required,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	FirstName *string `json:"firstName" validate:"omitempty,max=50"`
	LastName  *string `json:"lastName" validate:"omitempty,max=50"`
	Email     *string `json:"email" validate:"omitempty,email"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"password" validate:"required,min=8,max=72"`
}

type ResetPasswordRequest struct {
	NewPassword string `json:"password" validate:"required,min=8,max=72"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type DeleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}
