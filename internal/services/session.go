// Package services contains the application services of the storefront
// client: the session manager (identity lifecycle) and the profile service
// (profile and address CRUD with local cache reconciliation).
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"storefront/internal/events"
	"storefront/internal/gateway"
	"storefront/internal/logging"
	"storefront/internal/models"
	"storefront/internal/tokenstore"
	"storefront/internal/validate"
)

// SessionManager owns the identity lifecycle: registration, OTP
// verification, login, logout, token refresh, and the password flows. It is
// the sole writer of the token store's token fields.
//
// Authentication status is always derived from the stored token's expiry
// claim; the manager keeps no boolean flag that could go stale.
type SessionManager struct {
	gw     gateway.Gateway
	tokens *tokenstore.Store
	bus    *events.Bus
	log    logging.Logger

	// refreshGroup serializes refresh attempts: concurrent callers
	// (including the coordinator's periodic check) share one in-flight
	// exchange and its result.
	refreshGroup singleflight.Group

	// resetEmail is the session-scoped password-reset marker.
	mu         sync.Mutex
	resetEmail string
}

func NewSessionManager(gw gateway.Gateway, tokens *tokenstore.Store, bus *events.Bus, log logging.Logger) *SessionManager {
	return &SessionManager{gw: gw, tokens: tokens, bus: bus, log: log.With("component", "session")}
}

// Register validates the submission and creates an unverified account.
// On success a pending-registration marker is kept so the OTP step can
// resolve the user id. No tokens are issued until verification.
func (m *SessionManager) Register(ctx context.Context, req gateway.RegisterRequest) (*models.PendingRegistration, error) {
	if err := validate.Email(req.Email); err != nil {
		return nil, err
	}
	if err := validate.Password("password", req.Password); err != nil {
		return nil, err
	}
	if err := validate.Name("first_name", req.FirstName); err != nil {
		return nil, err
	}
	if err := validate.Name("last_name", req.LastName); err != nil {
		return nil, err
	}
	if req.Phone != "" {
		if err := validate.Phone("phone", req.Phone); err != nil {
			return nil, err
		}
	}

	userID, err := m.gw.Register(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}

	pending := &models.PendingRegistration{Email: req.Email, UserID: userID}
	m.tokens.SetPendingRegistration(pending)
	m.log.Info(ctx, "registration submitted", "user_id", userID)
	return pending, nil
}

// VerifyOTP confirms the 6-digit code and establishes the session. The
// SessionEstablished event is only published after tokens and user record
// have both been committed, so observers never see a half-written session.
func (m *SessionManager) VerifyOTP(ctx context.Context, userID, code string) (*models.User, error) {
	if err := validate.OTP(code); err != nil {
		return nil, err
	}

	res, err := m.gw.VerifyOTP(ctx, userID, code)
	if err != nil {
		return nil, fmt.Errorf("verification failed: %w", err)
	}

	if err := m.tokens.SaveTokens(ctx, res.Tokens.AccessToken, res.Tokens.RefreshToken); err != nil {
		return nil, err
	}
	if err := m.tokens.SaveUser(ctx, &res.User); err != nil {
		return nil, err
	}
	m.tokens.SetPendingRegistration(nil)

	m.log.Info(ctx, "session established", "user_id", res.User.ID, "via", "otp")
	m.bus.Publish(events.SessionEstablished{User: res.User})
	return &res.User, nil
}

// ResendOTP re-triggers code issuance for a pending registration. No local
// state changes.
func (m *SessionManager) ResendOTP(ctx context.Context, userID string) error {
	if err := m.gw.ResendOTP(ctx, userID); err != nil {
		return fmt.Errorf("resend failed: %w", err)
	}
	return nil
}

// Login validates input shape (not strength — existing passwords predate the
// policy) and establishes the session. With remember set, the email is
// persisted for prefilling the next login.
func (m *SessionManager) Login(ctx context.Context, email, password string, remember bool) (*models.User, error) {
	if err := validate.Email(email); err != nil {
		return nil, err
	}
	if err := validate.Required("password", password); err != nil {
		return nil, err
	}

	res, err := m.gw.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, gateway.ErrUnauthorized) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login failed: %w", err)
	}

	if err := m.tokens.SaveTokens(ctx, res.Tokens.AccessToken, res.Tokens.RefreshToken); err != nil {
		return nil, err
	}
	if err := m.tokens.SaveUser(ctx, &res.User); err != nil {
		return nil, err
	}
	if remember {
		if err := m.tokens.SaveRememberedEmail(ctx, email); err != nil {
			m.log.Warn(ctx, "failed to remember email", "error", err)
		}
	} else if err := m.tokens.SaveRememberedEmail(ctx, ""); err != nil {
		m.log.Warn(ctx, "failed to clear remembered email", "error", err)
	}

	m.log.Info(ctx, "session established", "user_id", res.User.ID, "via", "login")
	m.bus.Publish(events.SessionEstablished{User: res.User})
	return &res.User, nil
}

// Logout notifies the backend on a best-effort basis, then unconditionally
// clears local session state. Neither a network failure nor a failed token
// read blocks the local teardown, and logging out twice is harmless.
func (m *SessionManager) Logout(ctx context.Context) error {
	token, err := m.tokens.AccessToken(ctx)
	if err != nil {
		m.log.Warn(ctx, "failed to read access token during logout, skipping server notification", "error", err)
	}
	if token != "" {
		if err := m.gw.Logout(ctx, token); err != nil {
			m.log.Warn(ctx, "logout notification failed, clearing local state anyway", "error", err)
		}
	}

	if err := m.tokens.ClearAll(ctx); err != nil {
		return err
	}
	m.log.Info(ctx, "session ended", "via", "logout")
	m.bus.Publish(events.SessionEnded{})
	return nil
}

// Refresh exchanges the refresh token for a new pair. Concurrent calls are
// collapsed into a single in-flight exchange. A rejected refresh always ends
// the session — local state is fully cleared and ErrSessionExpired returned
// — so the client never continues on a half-valid token. A merely
// unreachable server leaves the session intact.
func (m *SessionManager) Refresh(ctx context.Context) error {
	_, err, _ := m.refreshGroup.Do("refresh", func() (any, error) {
		return nil, m.doRefresh(ctx)
	})
	return err
}

func (m *SessionManager) doRefresh(ctx context.Context) error {
	refresh, err := m.tokens.RefreshToken(ctx)
	if err != nil {
		return err
	}
	if refresh == "" {
		return ErrNoRefreshToken
	}

	pair, err := m.gw.RefreshToken(ctx, refresh)
	if err != nil {
		if errors.Is(err, gateway.ErrUnavailable) {
			return fmt.Errorf("refresh failed: %w", err)
		}
		// Explicit rejection: the session is over.
		m.teardown(ctx, "refresh rejection", err)
		return fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}

	return m.tokens.SaveTokens(ctx, pair.AccessToken, pair.RefreshToken)
}

// teardown clears local session state and notifies observers.
func (m *SessionManager) teardown(ctx context.Context, via string, cause error) {
	if err := m.tokens.ClearAll(ctx); err != nil {
		m.log.Error(ctx, "failed to clear session state", "error", err)
	}
	m.log.Warn(ctx, "session ended", "via", via, "error", cause)
	m.bus.Publish(events.SessionEnded{})
}

// InvalidateSession tears the session down after the backend rejected the
// stored access token on an authenticated call (server-side revocation can
// happen while the local copy is still unexpired). Local state is cleared
// and SessionEnded published. Safe to call when no session exists.
func (m *SessionManager) InvalidateSession(ctx context.Context, cause error) {
	m.teardown(ctx, "token rejection", cause)
}

// ForgotPassword requests a reset email and records the address as the
// session-scoped reset marker.
func (m *SessionManager) ForgotPassword(ctx context.Context, email string) error {
	if err := validate.Email(email); err != nil {
		return err
	}
	if err := m.gw.ForgotPassword(ctx, email); err != nil {
		return fmt.Errorf("password reset request failed: %w", err)
	}
	m.mu.Lock()
	m.resetEmail = email
	m.mu.Unlock()
	return nil
}

// PasswordResetEmail returns the email a reset was last requested for, or "".
func (m *SessionManager) PasswordResetEmail() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resetEmail
}

// ResetPassword redeems a reset token. Does not touch session state.
func (m *SessionManager) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	if err := validate.Required("reset_token", resetToken); err != nil {
		return err
	}
	if err := validate.Password("new_password", newPassword); err != nil {
		return err
	}
	if err := m.gw.ResetPassword(ctx, resetToken, newPassword); err != nil {
		return fmt.Errorf("password reset failed: %w", err)
	}
	m.mu.Lock()
	m.resetEmail = ""
	m.mu.Unlock()
	return nil
}

// ChangePassword requires an active session and does not re-authenticate on
// success: the current tokens stay valid.
func (m *SessionManager) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	if !m.IsAuthenticated(ctx) {
		return ErrNotAuthenticated
	}
	if err := validate.Required("current_password", currentPassword); err != nil {
		return err
	}
	if err := validate.Password("new_password", newPassword); err != nil {
		return err
	}

	token, err := m.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}
	if err := m.gw.ChangePassword(ctx, token, currentPassword, newPassword); err != nil {
		if errors.Is(err, gateway.ErrUnauthorized) {
			m.teardown(ctx, "token rejection", err)
			return ErrNotAuthenticated
		}
		return fmt.Errorf("password change failed: %w", err)
	}
	return nil
}

// IsAuthenticated recomputes authentication status from the stored token's
// expiry claim on every call. An expired or undecodable token means false,
// regardless of what was true at login time.
func (m *SessionManager) IsAuthenticated(ctx context.Context) bool {
	token, err := m.tokens.AccessToken(ctx)
	if err != nil || token == "" {
		return false
	}
	exp, err := tokenstore.DecodeExpiry(token)
	if err != nil {
		return false
	}
	return exp.After(time.Now())
}

// CurrentUser returns the cached user record, or nil when no session exists.
func (m *SessionManager) CurrentUser(ctx context.Context) *models.User {
	user, err := m.tokens.CachedUser(ctx)
	if err != nil {
		m.log.Warn(ctx, "failed to read cached user", "error", err)
		return nil
	}
	return user
}

// AccessToken is a pass-through read of the stored access token.
func (m *SessionManager) AccessToken(ctx context.Context) string {
	token, err := m.tokens.AccessToken(ctx)
	if err != nil {
		m.log.Warn(ctx, "failed to read access token", "error", err)
		return ""
	}
	return token
}

// PendingRegistration returns the current registration marker, or nil.
func (m *SessionManager) PendingRegistration() *models.PendingRegistration {
	return m.tokens.PendingRegistration()
}

// RememberedEmail returns the persisted "remember me" login email, or "".
func (m *SessionManager) RememberedEmail(ctx context.Context) string {
	email, err := m.tokens.RememberedEmail(ctx)
	if err != nil {
		return ""
	}
	return email
}
