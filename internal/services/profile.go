package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/events"
	"storefront/internal/gateway"
	"storefront/internal/logging"
	"storefront/internal/models"
	"storefront/internal/repositories/addresses"
	"storefront/internal/tokenstore"
	"storefront/internal/validate"
)

// maxAvatarSize is the largest accepted avatar upload.
const maxAvatarSize = 5 << 20

// ProfileService manages profile and address data with a read-through,
// write-invalidate cache discipline:
//
//   - reads go to the server first and fall back to the local cache only
//     when the server is unreachable (results are then marked stale);
//   - writes mutate the cache only after the server confirms them, so a
//     rejected write never leaves partial local state.
//
// Every operation requires an access token and fails with
// ErrNotAuthenticated before touching cache or network when none exists.
type ProfileService struct {
	gw       gateway.Gateway
	session  *SessionManager
	tokens   *tokenstore.Store
	addrRepo addresses.Repository
	bus      *events.Bus
	log      logging.Logger
}

func NewProfileService(gw gateway.Gateway, session *SessionManager, tokens *tokenstore.Store,
	addrRepo addresses.Repository, bus *events.Bus, log logging.Logger) *ProfileService {
	return &ProfileService{
		gw: gw, session: session, tokens: tokens,
		addrRepo: addrRepo, bus: bus, log: log.With("component", "profile"),
	}
}

func (s *ProfileService) accessToken(ctx context.Context) (string, error) {
	token := s.session.AccessToken(ctx)
	if token == "" {
		return "", ErrNotAuthenticated
	}
	return token, nil
}

// remoteErr maps a gateway failure from an authenticated call. A 401-class
// response means the backend no longer honors the stored token (revoked
// server-side, even if locally unexpired): the session is destroyed and
// ErrNotAuthenticated returned so callers route back to login.
func (s *ProfileService) remoteErr(ctx context.Context, action string, err error) error {
	if errors.Is(err, gateway.ErrUnauthorized) {
		s.session.InvalidateSession(ctx, err)
		return ErrNotAuthenticated
	}
	return fmt.Errorf("%s: %w", action, err)
}

// GetProfile fetches the authoritative record and refreshes the cache. When
// the server is unreachable, the cached record is returned with stale=true;
// ErrProfileUnavailable is returned only when no cache exists either.
func (s *ProfileService) GetProfile(ctx context.Context) (user *models.User, stale bool, err error) {
	token, err := s.accessToken(ctx)
	if err != nil {
		return nil, false, err
	}

	fresh, err := s.gw.GetProfile(ctx, token)
	if err != nil {
		if !errors.Is(err, gateway.ErrUnavailable) {
			return nil, false, s.remoteErr(ctx, "profile fetch failed", err)
		}
		cached, cacheErr := s.tokens.CachedUser(ctx)
		if cacheErr != nil || cached == nil {
			return nil, false, ErrProfileUnavailable
		}
		s.log.Warn(ctx, "serving stale profile, server unreachable")
		return cached, true, nil
	}

	if err := s.tokens.SaveUser(ctx, fresh); err != nil {
		return nil, false, err
	}
	return fresh, false, nil
}

// UpdateProfile validates only the fields present in upd (partial update:
// absent fields are never sent, never blanked). The cache is written only
// with the server-returned record, after the server confirms.
func (s *ProfileService) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.User, error) {
	token, err := s.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	if upd.FirstName != nil {
		if err := validate.Name("first_name", *upd.FirstName); err != nil {
			return nil, err
		}
	}
	if upd.LastName != nil {
		if err := validate.Name("last_name", *upd.LastName); err != nil {
			return nil, err
		}
	}
	if upd.Email != nil {
		if err := validate.Email(*upd.Email); err != nil {
			return nil, err
		}
	}
	if upd.Phone != nil {
		if err := validate.Phone("phone", *upd.Phone); err != nil {
			return nil, err
		}
	}

	user, err := s.gw.UpdateProfile(ctx, token, upd)
	if err != nil {
		return nil, s.remoteErr(ctx, "profile update failed", err)
	}

	if err := s.tokens.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "profile updated", "user_id", user.ID)
	s.bus.Publish(events.ProfileUpdated{User: *user})
	return user, nil
}

// UpdateAvatar checks MIME type and size before any network attempt. On
// success only the avatar field of the cached record is patched; no full
// profile refetch happens.
func (s *ProfileService) UpdateAvatar(ctx context.Context, image []byte, contentType string) (string, error) {
	token, err := s.accessToken(ctx)
	if err != nil {
		return "", err
	}

	if !strings.HasPrefix(contentType, "image/") {
		return "", &validate.Error{Field: "avatar", Message: "must be an image"}
	}
	if len(image) > maxAvatarSize {
		return "", &validate.Error{Field: "avatar", Message: "must be 5 MiB or smaller"}
	}

	url, err := s.gw.UpdateAvatar(ctx, token, image, contentType)
	if err != nil {
		return "", s.remoteErr(ctx, "avatar upload failed", err)
	}

	if cached, err := s.tokens.CachedUser(ctx); err == nil && cached != nil {
		cached.AvatarURL = url
		if err := s.tokens.SaveUser(ctx, cached); err != nil {
			s.log.Warn(ctx, "failed to patch cached avatar", "error", err)
		}
	}
	return url, nil
}

// DeleteAccount removes the account after password confirmation. Success
// carries full logout semantics; failure leaves the session untouched.
func (s *ProfileService) DeleteAccount(ctx context.Context, password string) error {
	token, err := s.accessToken(ctx)
	if err != nil {
		return err
	}
	if err := validate.Required("password", password); err != nil {
		return err
	}

	if err := s.gw.DeleteAccount(ctx, token, password); err != nil {
		return s.remoteErr(ctx, "account deletion failed", err)
	}

	s.log.Info(ctx, "account deleted")
	return s.session.Logout(ctx)
}

// ListAddresses fetches the authoritative collection and replaces the cache
// wholesale (never merged entry-by-entry). When the server is unreachable,
// the cached collection is returned with stale=true; ErrAddressesUnavailable
// only when no cache exists.
func (s *ProfileService) ListAddresses(ctx context.Context) (list []models.Address, stale bool, err error) {
	token, err := s.accessToken(ctx)
	if err != nil {
		return nil, false, err
	}

	fresh, err := s.gw.ListAddresses(ctx, token)
	if err != nil {
		if !errors.Is(err, gateway.ErrUnavailable) {
			return nil, false, s.remoteErr(ctx, "address fetch failed", err)
		}
		// An empty cached collection is a valid answer for a user with no
		// addresses; only a never-synced cache is unusable.
		synced, syncErr := s.tokens.AddressesSynced(ctx)
		if syncErr != nil || !synced {
			return nil, false, ErrAddressesUnavailable
		}
		cached, cacheErr := s.addrRepo.GetAll(ctx)
		if cacheErr != nil {
			return nil, false, ErrAddressesUnavailable
		}
		s.log.Warn(ctx, "serving stale addresses, server unreachable")
		return cached, true, nil
	}

	if err := s.addrRepo.ReplaceAll(ctx, fresh); err != nil {
		return nil, false, err
	}
	if err := s.tokens.MarkAddressesSynced(ctx); err != nil {
		return nil, false, err
	}
	return fresh, false, nil
}

// GetAddress is authoritative-only: a detail view must be fresh or fail.
func (s *ProfileService) GetAddress(ctx context.Context, id string) (*models.Address, error) {
	token, err := s.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	addr, err := s.gw.GetAddress(ctx, token, id)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return nil, ErrAddressNotFound
		}
		return nil, s.remoteErr(ctx, "address fetch failed", err)
	}
	return addr, nil
}

func validateAddressInput(in models.AddressInput) error {
	if err := validate.Required("full_name", in.FullName); err != nil {
		return err
	}
	if err := validate.Required("address_line1", in.AddressLine1); err != nil {
		return err
	}
	if err := validate.Required("city", in.City); err != nil {
		return err
	}
	if err := validate.Required("state", in.State); err != nil {
		return err
	}
	if err := validate.Zip(in.ZipCode); err != nil {
		return err
	}
	if err := validate.Required("country", in.Country); err != nil {
		return err
	}
	return validate.Phone("phone", in.Phone)
}

// AddAddress appends the server-assigned record to the cache on success.
func (s *ProfileService) AddAddress(ctx context.Context, in models.AddressInput) (*models.Address, error) {
	token, err := s.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateAddressInput(in); err != nil {
		return nil, err
	}

	addr, err := s.gw.AddAddress(ctx, token, in)
	if err != nil {
		return nil, s.remoteErr(ctx, "address creation failed", err)
	}

	if err := s.addrRepo.Upsert(ctx, *addr); err != nil {
		return nil, err
	}
	if addr.IsDefault {
		// The server may promote a first address to default; keep the
		// cached collection consistent with that.
		if err := s.addrRepo.SetDefault(ctx, addr.ID); err != nil {
			return nil, err
		}
	}
	s.log.Info(ctx, "address added", "address_id", addr.ID)
	s.bus.Publish(events.AddressAdded{Address: *addr})
	return addr, nil
}

// UpdateAddress replaces the matching cache entry with the server-returned
// record on success.
func (s *ProfileService) UpdateAddress(ctx context.Context, id string, in models.AddressInput) (*models.Address, error) {
	token, err := s.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateAddressInput(in); err != nil {
		return nil, err
	}

	addr, err := s.gw.UpdateAddress(ctx, token, id, in)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return nil, ErrAddressNotFound
		}
		return nil, s.remoteErr(ctx, "address update failed", err)
	}

	if err := s.addrRepo.Upsert(ctx, *addr); err != nil {
		return nil, err
	}
	if addr.IsDefault {
		if err := s.addrRepo.SetDefault(ctx, addr.ID); err != nil {
			return nil, err
		}
	}
	s.log.Info(ctx, "address updated", "address_id", addr.ID)
	s.bus.Publish(events.AddressUpdated{Address: *addr})
	return addr, nil
}

// DeleteAddress removes the entry from the cache on confirmed success.
func (s *ProfileService) DeleteAddress(ctx context.Context, id string) error {
	token, err := s.accessToken(ctx)
	if err != nil {
		return err
	}

	if err := s.gw.DeleteAddress(ctx, token, id); err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return ErrAddressNotFound
		}
		return s.remoteErr(ctx, "address deletion failed", err)
	}

	if err := s.addrRepo.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.log.Info(ctx, "address deleted", "address_id", id)
	s.bus.Publish(events.AddressDeleted{AddressID: id})
	return nil
}

// SetDefaultAddress asks the server to mark id as default and then enforces
// the at-most-one-default invariant across the entire cached collection,
// not just the target entry. The server only confirms the target changed;
// sibling state cannot be trusted, so every entry is rewritten locally from
// the request echo.
func (s *ProfileService) SetDefaultAddress(ctx context.Context, id string) error {
	token, err := s.accessToken(ctx)
	if err != nil {
		return err
	}

	if err := s.gw.SetDefaultAddress(ctx, token, id); err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return ErrAddressNotFound
		}
		return s.remoteErr(ctx, "setting default address failed", err)
	}

	return s.addrRepo.SetDefault(ctx, id)
}

// GetDefaultAddress re-lists addresses (same fallback policy) and returns
// the default entry. A missing default is a nil result, not an error.
func (s *ProfileService) GetDefaultAddress(ctx context.Context) (addr *models.Address, stale bool, err error) {
	list, stale, err := s.ListAddresses(ctx)
	if err != nil {
		return nil, false, err
	}
	for i := range list {
		if list[i].IsDefault {
			return &list[i], stale, nil
		}
	}
	return nil, stale, nil
}

// ClearCache wipes the cached address collection and its synced marker. The
// coordinator calls this on logout so address data never leaks across
// sessions on a shared device.
func (s *ProfileService) ClearCache(ctx context.Context) error {
	if err := s.tokens.ClearAddressesSynced(ctx); err != nil {
		return err
	}
	return s.addrRepo.Clear(ctx)
}
