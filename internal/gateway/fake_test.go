package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
)

func TestFake_RegisterVerifyLogin(t *testing.T) {
	ctx := context.Background()
	f := NewFake()

	id, err := f.Register(ctx, RegisterRequest{
		Email: "new@example.com", Password: "SecurePass123",
		FirstName: "Ann", LastName: "Lee",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	// Login before verification is refused.
	_, err = f.Login(ctx, "new@example.com", "SecurePass123")
	require.ErrorIs(t, err, ErrRejected)

	_, err = f.VerifyOTP(ctx, id, "000000")
	require.ErrorIs(t, err, ErrRejected)

	res, err := f.VerifyOTP(ctx, id, DefaultOTP)
	require.NoError(t, err)
	require.True(t, res.User.Verified)
	require.NotEmpty(t, res.Tokens.AccessToken)

	res2, err := f.Login(ctx, "new@example.com", "SecurePass123")
	require.NoError(t, err)
	require.Equal(t, id, res2.User.ID)
}

func TestFake_LoginWrongCredentialsOpaque(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	f.Seed(models.User{Email: "u@example.com"}, "SecurePass123")

	_, errUnknown := f.Login(ctx, "nobody@example.com", "SecurePass123")
	_, errWrongPw := f.Login(ctx, "u@example.com", "WrongPass123")

	require.ErrorIs(t, errUnknown, ErrUnauthorized)
	require.ErrorIs(t, errWrongPw, ErrUnauthorized)
	require.Equal(t, errUnknown.Error(), errWrongPw.Error())
}

func TestFake_MintedTokenCarriesExpiry(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	f.AccessTTL = 30 * time.Minute
	f.Seed(models.User{Email: "u@example.com"}, "SecurePass123")

	res, err := f.Login(ctx, "u@example.com", "SecurePass123")
	require.NoError(t, err)

	claims := &jwt.RegisteredClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(res.Tokens.AccessToken, claims)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(30*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestFake_RefreshRotation(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	f.Seed(models.User{Email: "u@example.com"}, "SecurePass123")

	res, err := f.Login(ctx, "u@example.com", "SecurePass123")
	require.NoError(t, err)

	pair, err := f.RefreshToken(ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, res.Tokens.RefreshToken, pair.RefreshToken)

	// The spent token is no longer accepted.
	_, err = f.RefreshToken(ctx, res.Tokens.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestFake_Unavailable(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	f.Seed(models.User{Email: "u@example.com"}, "SecurePass123")
	f.Unavailable = true

	_, err := f.Login(ctx, "u@example.com", "SecurePass123")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestFake_AddressLifecycle(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	f.Seed(models.User{Email: "u@example.com"}, "SecurePass123")
	res, err := f.Login(ctx, "u@example.com", "SecurePass123")
	require.NoError(t, err)
	token := res.Tokens.AccessToken

	in := models.AddressInput{
		FullName: "Ann Lee", Phone: "+1234567890",
		AddressLine1: "1 Main St", City: "Springfield", State: "IL",
		ZipCode: "62704", Country: "US", Type: models.AddressHome,
	}
	first, err := f.AddAddress(ctx, token, in)
	require.NoError(t, err)
	require.True(t, first.IsDefault, "first address becomes the default")

	in.AddressLine1 = "2 Oak Ave"
	second, err := f.AddAddress(ctx, token, in)
	require.NoError(t, err)
	require.False(t, second.IsDefault)

	require.NoError(t, f.SetDefaultAddress(ctx, token, second.ID))
	list, err := f.ListAddresses(ctx, token)
	require.NoError(t, err)
	var defaults int
	for _, a := range list {
		if a.IsDefault {
			defaults++
			require.Equal(t, second.ID, a.ID)
		}
	}
	require.Equal(t, 1, defaults)

	require.NoError(t, f.DeleteAddress(ctx, token, first.ID))
	require.ErrorIs(t, f.DeleteAddress(ctx, token, first.ID), ErrNotFound)

	_, err = f.GetAddress(ctx, token, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFake_ResetPasswordFlow(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	f.Seed(models.User{Email: "u@example.com"}, "OldPass123")

	require.NoError(t, f.ForgotPassword(ctx, "u@example.com"))
	token, ok := f.IssueResetToken("u@example.com")
	require.True(t, ok)

	require.NoError(t, f.ResetPassword(ctx, token, "NewPass123"))
	require.ErrorIs(t, f.ResetPassword(ctx, token, "NewPass123"), ErrRejected)

	_, err := f.Login(ctx, "u@example.com", "NewPass123")
	require.NoError(t, err)
}

func TestFake_DeleteAccount(t *testing.T) {
	ctx := context.Background()
	f := NewFake()
	f.Seed(models.User{Email: "u@example.com"}, "SecurePass123")
	res, err := f.Login(ctx, "u@example.com", "SecurePass123")
	require.NoError(t, err)

	require.ErrorIs(t, f.DeleteAccount(ctx, res.Tokens.AccessToken, "wrong"), ErrRejected)
	require.NoError(t, f.DeleteAccount(ctx, res.Tokens.AccessToken, "SecurePass123"))

	_, err = f.Login(ctx, "u@example.com", "SecurePass123")
	require.ErrorIs(t, err, ErrUnauthorized)
}
