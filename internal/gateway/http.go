package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"storefront/internal/models"
)

// HTTPGateway implements Gateway against a JSON-over-HTTP backend.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

// NewHTTPGateway returns a gateway bound to baseURL, e.g.
// "https://api.example.com". The request timeout is owned here; callers do
// not enforce their own.
func NewHTTPGateway(baseURL string) *HTTPGateway {
	return &HTTPGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// errorBody is the backend's error envelope.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (g *HTTPGateway) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}

	return g.mapStatus(resp)
}

// mapStatus converts a non-2xx response into a sentinel error, keeping the
// server's message where one exists.
func (g *HTTPGateway) mapStatus(resp *http.Response) error {
	var eb errorBody
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&eb)
	detail := eb.Message
	if detail == "" {
		detail = eb.Error
	}
	if detail == "" {
		detail = resp.Status
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, detail)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, detail)
	case resp.StatusCode == http.StatusBadGateway,
		resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s", ErrUnavailable, detail)
	default:
		return fmt.Errorf("%w: %s", ErrRejected, detail)
	}
}

func (g *HTTPGateway) Register(ctx context.Context, req RegisterRequest) (string, error) {
	var resp struct {
		UserID string `json:"user_id"`
	}
	if err := g.do(ctx, http.MethodPost, "/auth/register", "", req, &resp); err != nil {
		return "", err
	}
	return resp.UserID, nil
}

func (g *HTTPGateway) VerifyOTP(ctx context.Context, userID, code string) (*AuthResult, error) {
	body := struct {
		UserID string `json:"user_id"`
		Code   string `json:"code"`
	}{userID, code}

	var resp struct {
		AccessToken  string      `json:"access_token"`
		RefreshToken string      `json:"refresh_token"`
		User         models.User `json:"user"`
	}
	if err := g.do(ctx, http.MethodPost, "/auth/verify-otp", "", body, &resp); err != nil {
		return nil, err
	}
	return &AuthResult{
		Tokens: models.TokenPair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken},
		User:   resp.User,
	}, nil
}

func (g *HTTPGateway) ResendOTP(ctx context.Context, userID string) error {
	body := struct {
		UserID string `json:"user_id"`
	}{userID}
	return g.do(ctx, http.MethodPost, "/auth/resend-otp", "", body, nil)
}

func (g *HTTPGateway) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	body := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{email, password}

	var resp struct {
		AccessToken  string      `json:"access_token"`
		RefreshToken string      `json:"refresh_token"`
		User         models.User `json:"user"`
	}
	if err := g.do(ctx, http.MethodPost, "/auth/login", "", body, &resp); err != nil {
		return nil, err
	}
	return &AuthResult{
		Tokens: models.TokenPair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken},
		User:   resp.User,
	}, nil
}

func (g *HTTPGateway) Logout(ctx context.Context, accessToken string) error {
	return g.do(ctx, http.MethodPost, "/auth/logout", accessToken, nil, nil)
}

func (g *HTTPGateway) RefreshToken(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	body := struct {
		RefreshToken string `json:"refresh_token"`
	}{refreshToken}

	var resp models.TokenPair
	if err := g.do(ctx, http.MethodPost, "/auth/refresh", "", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (g *HTTPGateway) ForgotPassword(ctx context.Context, email string) error {
	body := struct {
		Email string `json:"email"`
	}{email}
	return g.do(ctx, http.MethodPost, "/auth/forgot-password", "", body, nil)
}

func (g *HTTPGateway) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	body := struct {
		ResetToken  string `json:"reset_token"`
		NewPassword string `json:"new_password"`
	}{resetToken, newPassword}
	return g.do(ctx, http.MethodPost, "/auth/reset-password", "", body, nil)
}

func (g *HTTPGateway) ChangePassword(ctx context.Context, accessToken, currentPassword, newPassword string) error {
	body := struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}{currentPassword, newPassword}
	return g.do(ctx, http.MethodPost, "/auth/change-password", accessToken, body, nil)
}

func (g *HTTPGateway) GetProfile(ctx context.Context, accessToken string) (*models.User, error) {
	var resp struct {
		User models.User `json:"user"`
	}
	if err := g.do(ctx, http.MethodGet, "/profile", accessToken, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func (g *HTTPGateway) UpdateProfile(ctx context.Context, accessToken string, upd models.ProfileUpdate) (*models.User, error) {
	var resp struct {
		User models.User `json:"user"`
	}
	if err := g.do(ctx, http.MethodPatch, "/profile", accessToken, upd, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func (g *HTTPGateway) UpdateAvatar(ctx context.Context, accessToken string, image []byte, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, g.baseURL+"/profile/avatar", bytes.NewReader(image))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", g.mapStatus(resp)
	}

	var out struct {
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.AvatarURL, nil
}

func (g *HTTPGateway) DeleteAccount(ctx context.Context, accessToken, password string) error {
	body := struct {
		Password string `json:"password"`
	}{password}
	return g.do(ctx, http.MethodDelete, "/profile", accessToken, body, nil)
}

func (g *HTTPGateway) ListAddresses(ctx context.Context, accessToken string) ([]models.Address, error) {
	var resp struct {
		Addresses []models.Address `json:"addresses"`
	}
	if err := g.do(ctx, http.MethodGet, "/addresses", accessToken, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Addresses, nil
}

func (g *HTTPGateway) GetAddress(ctx context.Context, accessToken, id string) (*models.Address, error) {
	var resp struct {
		Address models.Address `json:"address"`
	}
	if err := g.do(ctx, http.MethodGet, "/addresses/"+url.PathEscape(id), accessToken, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Address, nil
}

func (g *HTTPGateway) AddAddress(ctx context.Context, accessToken string, in models.AddressInput) (*models.Address, error) {
	var resp struct {
		Address models.Address `json:"address"`
	}
	if err := g.do(ctx, http.MethodPost, "/addresses", accessToken, in, &resp); err != nil {
		return nil, err
	}
	return &resp.Address, nil
}

func (g *HTTPGateway) UpdateAddress(ctx context.Context, accessToken, id string, in models.AddressInput) (*models.Address, error) {
	var resp struct {
		Address models.Address `json:"address"`
	}
	if err := g.do(ctx, http.MethodPut, "/addresses/"+url.PathEscape(id), accessToken, in, &resp); err != nil {
		return nil, err
	}
	return &resp.Address, nil
}

func (g *HTTPGateway) DeleteAddress(ctx context.Context, accessToken, id string) error {
	return g.do(ctx, http.MethodDelete, "/addresses/"+url.PathEscape(id), accessToken, nil, nil)
}

func (g *HTTPGateway) SetDefaultAddress(ctx context.Context, accessToken, id string) error {
	return g.do(ctx, http.MethodPost, "/addresses/"+url.PathEscape(id)+"/default", accessToken, nil, nil)
}
