// Package tokenstore owns the persisted session material: access and refresh
// tokens plus the cached user record. It has no network access; decoding a
// token here only reads the embedded expiry claim and never verifies the
// signature — signature verification is the backend's responsibility, and
// nothing security-relevant may be decided from an unverified decode beyond
// "is it time to refresh".
package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"storefront/internal/models"
	"storefront/internal/repositories/metadata"
)

// ErrMalformedToken means the stored token is not a decodable JWT.
var ErrMalformedToken = errors.New("malformed token")

const (
	keyAccessToken     = "access_token"
	keyRefreshToken    = "refresh_token"
	keyUser            = "user"
	keyRememberedEmail = "remembered_email"
	keyAddressesSynced = "addresses_synced"
)

// Store persists tokens and the cached user in the metadata repository.
// The pending-registration marker is deliberately session-scoped: it lives
// in process memory only and dies with the process.
type Store struct {
	meta metadata.Repository

	mu      sync.Mutex
	pending *models.PendingRegistration
}

func New(meta metadata.Repository) *Store {
	return &Store{meta: meta}
}

// SaveTokens overwrites the access token. The refresh token is only
// overwritten when non-empty; it is never cleared implicitly.
func (s *Store) SaveTokens(ctx context.Context, access, refresh string) error {
	if err := s.meta.Set(ctx, keyAccessToken, []byte(access)); err != nil {
		return err
	}
	if refresh != "" {
		if err := s.meta.Set(ctx, keyRefreshToken, []byte(refresh)); err != nil {
			return err
		}
	}
	return nil
}

// SaveUser overwrites the cached user record.
func (s *Store) SaveUser(ctx context.Context, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	return s.meta.Set(ctx, keyUser, data)
}

// AccessToken returns the stored access token, or "" when absent.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	v, err := s.meta.Get(ctx, keyAccessToken)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// RefreshToken returns the stored refresh token, or "" when absent.
func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	v, err := s.meta.Get(ctx, keyRefreshToken)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// CachedUser returns the cached user record, or nil when absent.
func (s *Store) CachedUser(ctx context.Context) (*models.User, error) {
	v, err := s.meta.Get(ctx, keyUser)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	var user models.User
	if err := json.Unmarshal(v, &user); err != nil {
		return nil, fmt.Errorf("failed to decode cached user: %w", err)
	}
	return &user, nil
}

// SetPendingRegistration records a registration awaiting OTP verification.
// Passing nil clears the marker.
func (s *Store) SetPendingRegistration(p *models.PendingRegistration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = p
}

// PendingRegistration returns the current marker, or nil.
func (s *Store) PendingRegistration() *models.PendingRegistration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// MarkAddressesSynced records that the address collection has been fetched
// successfully at least once, so an empty cached collection can be told
// apart from one that was never populated.
func (s *Store) MarkAddressesSynced(ctx context.Context) error {
	return s.meta.Set(ctx, keyAddressesSynced, []byte("1"))
}

// ClearAddressesSynced drops the marker, returning the cache to the
// never-populated state.
func (s *Store) ClearAddressesSynced(ctx context.Context) error {
	return s.meta.Delete(ctx, keyAddressesSynced)
}

// AddressesSynced reports whether the address collection has ever been
// fetched successfully.
func (s *Store) AddressesSynced(ctx context.Context) (bool, error) {
	v, err := s.meta.Get(ctx, keyAddressesSynced)
	if err != nil {
		return false, err
	}
	return v != nil, nil
}

// SaveRememberedEmail persists the "remember me" login email. An empty
// value clears it.
func (s *Store) SaveRememberedEmail(ctx context.Context, email string) error {
	if email == "" {
		return s.meta.Delete(ctx, keyRememberedEmail)
	}
	return s.meta.Set(ctx, keyRememberedEmail, []byte(email))
}

// RememberedEmail returns the persisted login email, or "" when absent.
func (s *Store) RememberedEmail(ctx context.Context) (string, error) {
	v, err := s.meta.Get(ctx, keyRememberedEmail)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// ClearAll removes the access token, refresh token, cached user, the
// addresses-synced marker, and the pending-registration marker. Safe to call
// when already empty. The remembered login email is a convenience, not a
// credential, and survives.
func (s *Store) ClearAll(ctx context.Context) error {
	for _, key := range []string{keyAccessToken, keyRefreshToken, keyUser, keyAddressesSynced} {
		if err := s.meta.Delete(ctx, key); err != nil {
			return err
		}
	}
	s.SetPendingRegistration(nil)
	return nil
}

// DecodeExpiry reads the expiry claim out of token without verifying the
// signature. Returns ErrMalformedToken when the token is not a decodable
// three-segment JWT or carries no expiry.
func DecodeExpiry(token string) (time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("%w: missing expiry claim", ErrMalformedToken)
	}
	return claims.ExpiresAt.Time, nil
}
