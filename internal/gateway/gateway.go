// Package gateway defines the boundary to the storefront backend. The
// Gateway interface mirrors the backend's logical endpoints; HTTPGateway
// talks to a real server over HTTP/JSON, and Fake is a stateful in-memory
// stand-in used by tests.
package gateway

import (
	"context"

	"storefront/internal/models"
)

// RegisterRequest carries the fields of a registration submission.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone,omitempty"`
}

// AuthResult is returned by login and OTP verification: a token pair plus
// the authoritative user record.
type AuthResult struct {
	Tokens models.TokenPair
	User   models.User
}

// Gateway is the abstract request/response boundary to the backend.
// Implementations own transport concerns (timeouts included); callers own
// input validation and local state.
type Gateway interface {
	Register(ctx context.Context, req RegisterRequest) (userID string, err error)
	VerifyOTP(ctx context.Context, userID, code string) (*AuthResult, error)
	ResendOTP(ctx context.Context, userID string) error
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Logout(ctx context.Context, accessToken string) error
	RefreshToken(ctx context.Context, refreshToken string) (*models.TokenPair, error)

	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
	ChangePassword(ctx context.Context, accessToken, currentPassword, newPassword string) error

	GetProfile(ctx context.Context, accessToken string) (*models.User, error)
	UpdateProfile(ctx context.Context, accessToken string, upd models.ProfileUpdate) (*models.User, error)
	UpdateAvatar(ctx context.Context, accessToken string, image []byte, contentType string) (avatarURL string, err error)
	DeleteAccount(ctx context.Context, accessToken, password string) error

	ListAddresses(ctx context.Context, accessToken string) ([]models.Address, error)
	GetAddress(ctx context.Context, accessToken, id string) (*models.Address, error)
	AddAddress(ctx context.Context, accessToken string, in models.AddressInput) (*models.Address, error)
	UpdateAddress(ctx context.Context, accessToken, id string, in models.AddressInput) (*models.Address, error)
	DeleteAddress(ctx context.Context, accessToken, id string) error
	SetDefaultAddress(ctx context.Context, accessToken, id string) error
}
