package models

// TokenPair holds an access and refresh token pair as issued by the backend.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// PendingRegistration marks a registration awaiting OTP verification.
// It is session-scoped: held in process memory only, never persisted.
type PendingRegistration struct {
	Email  string
	UserID string
}
