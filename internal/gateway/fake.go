package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"storefront/internal/models"
)

// DefaultOTP is the verification code the fake issues for every pending
// registration.
const DefaultOTP = "123456"

// Fake is an in-memory Gateway with real backend semantics: stateful user
// and address collections, signed HS256 token pairs with configurable TTLs,
// refresh rotation, and OTP-gated registration. Tests flip Unavailable to
// simulate an unreachable server.
type Fake struct {
	mu sync.Mutex

	// Unavailable makes every call fail with ErrUnavailable.
	Unavailable bool

	// AccessTTL and RefreshTTL control minted token lifetimes.
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// SigningKey signs minted JWTs.
	SigningKey []byte

	users         map[string]*models.User // by id
	idsByEmail    map[string]string
	passwords     map[string]string // by user id
	pendingOTP    map[string]string // user id -> expected code
	refreshTokens map[string]string // refresh token -> user id
	resetTokens   map[string]string // reset token -> user id
	addresses     map[string][]models.Address
}

func NewFake() *Fake {
	return &Fake{
		AccessTTL:     60 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		SigningKey:    []byte("fake-gateway-signing-key"),
		users:         make(map[string]*models.User),
		idsByEmail:    make(map[string]string),
		passwords:     make(map[string]string),
		pendingOTP:    make(map[string]string),
		refreshTokens: make(map[string]string),
		resetTokens:   make(map[string]string),
		addresses:     make(map[string][]models.Address),
	}
}

// Seed creates a verified user without going through register/verify.
// Returns the assigned user id.
func (f *Fake) Seed(user models.User, password string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Verified = true
	f.users[user.ID] = &user
	f.idsByEmail[user.Email] = user.ID
	f.passwords[user.ID] = password
	return user.ID
}

// IssueResetToken registers a password-reset token for the given email.
func (f *Fake) IssueResetToken(email string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.idsByEmail[email]
	if !ok {
		return "", false
	}
	token := uuid.NewString()
	f.resetTokens[token] = id
	return token, true
}

func (f *Fake) mintTokens(userID string) (models.TokenPair, error) {
	access, err := f.mintAccess(userID, f.AccessTTL)
	if err != nil {
		return models.TokenPair{}, err
	}
	refresh := uuid.NewString()
	f.refreshTokens[refresh] = userID
	return models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (f *Fake) mintAccess(userID string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	})
	return token.SignedString(f.SigningKey)
}

// authenticate verifies the bearer token and returns the user it belongs to.
func (f *Fake) authenticate(accessToken string) (*models.User, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(accessToken, claims, func(t *jwt.Token) (any, error) {
		return f.SigningKey, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrUnauthorized
	}
	user, ok := f.users[claims.Subject]
	if !ok {
		return nil, ErrUnauthorized
	}
	return user, nil
}

func (f *Fake) gate() error {
	if f.Unavailable {
		return ErrUnavailable
	}
	return nil
}

func (f *Fake) Register(ctx context.Context, req RegisterRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gate(); err != nil {
		return "", err
	}
	if _, exists := f.idsByEmail[req.Email]; exists {
		return "", fmt.Errorf("%w: email already registered", ErrRejected)
	}

	id := uuid.NewString()
	f.users[id] = &models.User{
		ID:        id,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	}
	f.idsByEmail[req.Email] = id
	f.passwords[id] = req.Password
	f.pendingOTP[id] = DefaultOTP
	return id, nil
}

func (f *Fake) VerifyOTP(ctx context.Context, userID, code string) (*AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gate(); err != nil {
		return nil, err
	}
	expected, ok := f.pendingOTP[userID]
	if !ok {
		return nil, fmt.Errorf("%w: no pending verification", ErrRejected)
	}
	if code != expected {
		return nil, fmt.Errorf("%w: incorrect verification code", ErrRejected)
	}

	user := f.users[userID]
	user.Verified = true
	delete(f.pendingOTP, userID)

	tokens, err := f.mintTokens(userID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Tokens: tokens, User: *user}, nil
}

func (f *Fake) ResendOTP(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gate(); err != nil {
		return err
	}
	if _, ok := f.pendingOTP[userID]; !ok {
		return fmt.Errorf("%w: no pending verification", ErrRejected)
	}
	f.pendingOTP[userID] = DefaultOTP
	return nil
}

func (f *Fake) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gate(); err != nil {
		return nil, err
	}
	id, ok := f.idsByEmail[email]
	if !ok || f.passwords[id] != password {
		// Same error for unknown user and wrong password.
		return nil, ErrUnauthorized
	}
	user := f.users[id]
	if !user.Verified {
		return nil, fmt.Errorf("%w: account not verified", ErrRejected)
	}

	tokens, err := f.mintTokens(id)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Tokens: tokens, User: *user}, nil
}

func (f *Fake) Logout(ctx context.Context, accessToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gate(); err != nil {
		return err
	}
	user, err := f.authenticate(accessToken)
	if err != nil {
		return err
	}
	for token, id := range f.refreshTokens {
		if id == user.ID {
			delete(f.refreshTokens, token)
		}
	}
	return nil
}

func (f *Fake) RefreshToken(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gate(); err != nil {
		return nil, err
	}
	userID, ok := f.refreshTokens[refreshToken]
	if !ok {
		return nil, ErrUnauthorized
	}
	// Rotation: the presented token is spent.
	delete(f.refreshTokens, refreshToken)

	tokens, err := f.mintTokens(userID)
	if err != nil {
		return nil, err
	}
	return &tokens, nil
}

func (f *Fake) ForgotPassword(ctx context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gate(); err != nil {
		return err
	}
	// Succeeds regardless of whether the email exists, to avoid enumeration.
	if id, ok := f.idsByEmail[email]; ok {
		f.resetTokens[uuid.NewString()] = id
	}
	return nil
}

func (f *Fake) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gate(); err != nil {
		return err
	}
	id, ok := f.resetTokens[resetToken]
	if !ok {
		return fmt.Errorf("%w: invalid or expired reset token", ErrRejected)
	}
	delete(f.resetTokens, resetToken)
	f.passwords[id] = newPassword
	return nil
}

func (f *Fake) ChangePassword(ctx context.Context, accessToken, currentPassword, newPassword string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gate(); err != nil {
		return err
	}
	user, err := f.authenticate(accessToken)
	if err != nil {
		return err
	}
	if f.passwords[user.ID] != currentPassword {
		return fmt.Errorf("%w: current password is incorrect", ErrRejected)
	}
	f.passwords[user.ID] = newPassword
	return nil
}

func (f *Fake) GetProfile(ctx context.Context, accessToken string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gate(); err != nil {
		return nil, err
	}
	user, err := f.authenticate(accessToken)
	if err != nil {
		return nil, err
	}
	u := *user
	return &u, nil
}

func (f *Fake) UpdateProfile(ctx context.Context, accessToken string, upd models.ProfileUpdate) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gate(); err != nil {
		return nil, err
	}
	user, err := f.authenticate(accessToken)
	if err != nil {
		return nil, err
	}

	if upd.FirstName != nil {
		user.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		user.LastName = *upd.LastName
	}
	if upd.Email != nil {
		if id, exists := f.idsByEmail[*upd.Email]; exists && id != user.ID {
			return nil, fmt.Errorf("%w: email already in use", ErrRejected)
		}
		delete(f.idsByEmail, user.Email)
		user.Email = *upd.Email
		f.idsByEmail[user.Email] = user.ID
	}
	if upd.Phone != nil {
		user.Phone = *upd.Phone
	}
	if upd.DateOfBirth != nil {
		user.DateOfBirth = *upd.DateOfBirth
	}
	if upd.Gender != nil {
		user.Gender = *upd.Gender
	}

	u := *user
	return &u, nil
}

func (f *Fake) UpdateAvatar(ctx context.Context, accessToken string, image []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gate(); err != nil {
		return "", err
	}
	user, err := f.authenticate(accessToken)
	if err != nil {
		return "", err
	}
	url := "https://cdn.example.com/avatars/" + user.ID
	user.AvatarURL = url
	return url, nil
}

func (f *Fake) DeleteAccount(ctx context.Context, accessToken, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gate(); err != nil {
		return err
	}
	user, err := f.authenticate(accessToken)
	if err != nil {
		return err
	}
	if f.passwords[user.ID] != password {
		return fmt.Errorf("%w: password is incorrect", ErrRejected)
	}

	delete(f.idsByEmail, user.Email)
	delete(f.passwords, user.ID)
	delete(f.addresses, user.ID)
	delete(f.users, user.ID)
	for token, id := range f.refreshTokens {
		if id == user.ID {
			delete(f.refreshTokens, token)
		}
	}
	return nil
}

func (f *Fake) ListAddresses(ctx context.Context, accessToken string) ([]models.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gate(); err != nil {
		return nil, err
	}
	user, err := f.authenticate(accessToken)
	if err != nil {
		return nil, err
	}
	list := make([]models.Address, len(f.addresses[user.ID]))
	copy(list, f.addresses[user.ID])
	return list, nil
}

func (f *Fake) GetAddress(ctx context.Context, accessToken, id string) (*models.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gate(); err != nil {
		return nil, err
	}
	user, err := f.authenticate(accessToken)
	if err != nil {
		return nil, err
	}
	for _, a := range f.addresses[user.ID] {
		if a.ID == id {
			found := a
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (f *Fake) AddAddress(ctx context.Context, accessToken string, in models.AddressInput) (*models.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gate(); err != nil {
		return nil, err
	}
	user, err := f.authenticate(accessToken)
	if err != nil {
		return nil, err
	}

	addr := models.Address{
		ID:           uuid.NewString(),
		FullName:     in.FullName,
		Phone:        in.Phone,
		AddressLine1: in.AddressLine1,
		AddressLine2: in.AddressLine2,
		City:         in.City,
		State:        in.State,
		ZipCode:      in.ZipCode,
		Country:      in.Country,
		Type:         in.Type,
		// The first address becomes the default.
		IsDefault: len(f.addresses[user.ID]) == 0,
	}
	f.addresses[user.ID] = append(f.addresses[user.ID], addr)
	return &addr, nil
}

func (f *Fake) UpdateAddress(ctx context.Context, accessToken, id string, in models.AddressInput) (*models.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gate(); err != nil {
		return nil, err
	}
	user, err := f.authenticate(accessToken)
	if err != nil {
		return nil, err
	}

	list := f.addresses[user.ID]
	for i := range list {
		if list[i].ID == id {
			list[i].FullName = in.FullName
			list[i].Phone = in.Phone
			list[i].AddressLine1 = in.AddressLine1
			list[i].AddressLine2 = in.AddressLine2
			list[i].City = in.City
			list[i].State = in.State
			list[i].ZipCode = in.ZipCode
			list[i].Country = in.Country
			list[i].Type = in.Type
			found := list[i]
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (f *Fake) DeleteAddress(ctx context.Context, accessToken, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gate(); err != nil {
		return err
	}
	user, err := f.authenticate(accessToken)
	if err != nil {
		return err
	}

	list := f.addresses[user.ID]
	for i := range list {
		if list[i].ID == id {
			f.addresses[user.ID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (f *Fake) SetDefaultAddress(ctx context.Context, accessToken, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.gate(); err != nil {
		return err
	}
	user, err := f.authenticate(accessToken)
	if err != nil {
		return err
	}

	list := f.addresses[user.ID]
	found := false
	for i := range list {
		if list[i].ID == id {
			found = true
		}
	}
	if !found {
		return ErrNotFound
	}
	for i := range list {
		list[i].IsDefault = list[i].ID == id
	}
	return nil
}

var _ Gateway = (*Fake)(nil)
var _ Gateway = (*HTTPGateway)(nil)
