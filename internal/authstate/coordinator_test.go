package authstate

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"storefront/internal/events"
	"storefront/internal/gateway"
	"storefront/internal/logging"
	"storefront/internal/models"
	"storefront/internal/repositories/addresses"
	"storefront/internal/repositories/metadata"
	"storefront/internal/services"
	"storefront/internal/tokenstore"
)

type env struct {
	fake     *gateway.Fake
	tokens   *tokenstore.Store
	addrRepo addresses.Repository
	session  *services.SessionManager
	profile  *services.ProfileService
	coord    *Coordinator
}

func setupEnv(t *testing.T, checkInterval, threshold time.Duration) *env {
	t.Helper()

	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE metadata (key TEXT PRIMARY KEY, value BLOB NOT NULL);
CREATE TABLE addresses (
    id TEXT PRIMARY KEY, full_name TEXT NOT NULL, phone TEXT NOT NULL,
    address_line1 TEXT NOT NULL, address_line2 TEXT NOT NULL DEFAULT '',
    city TEXT NOT NULL, state TEXT NOT NULL, zip_code TEXT NOT NULL,
    country TEXT NOT NULL, address_type TEXT NOT NULL DEFAULT 'home',
    is_default INTEGER NOT NULL DEFAULT 0, position INTEGER NOT NULL DEFAULT 0
);`)
	require.NoError(t, err)

	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	bus := events.NewBus()

	e := &env{
		fake:     gateway.NewFake(),
		tokens:   tokenstore.New(metadata.NewSQLiteRepository(db)),
		addrRepo: addresses.NewSQLiteRepository(db),
	}
	e.session = services.NewSessionManager(e.fake, e.tokens, bus, log)
	e.profile = services.NewProfileService(e.fake, e.session, e.tokens, e.addrRepo, bus, log)
	e.coord = New(e.session, e.profile, bus, log, checkInterval, threshold)

	e.fake.Seed(models.User{Email: "user@example.com", FirstName: "Ann"}, "SecurePass123")
	return e
}

func (e *env) login(t *testing.T) {
	t.Helper()
	_, err := e.session.Login(context.Background(), "user@example.com", "SecurePass123", false)
	require.NoError(t, err)
}

// recorder is a thread-safe snapshot sink for listener tests.
type recorder struct {
	mu   sync.Mutex
	snap []Snapshot
}

func (r *recorder) listen(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap = append(r.snap, s)
}

func (r *recorder) all() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Snapshot, len(r.snap))
	copy(out, r.snap)
	return out
}

func TestListeners_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	e := setupEnv(t, time.Minute, 10*time.Minute)

	var rec recorder
	e.coord.AddListener(rec.listen)

	e.login(t)
	require.NoError(t, e.session.Logout(ctx))

	got := rec.all()
	require.Len(t, got, 2)
	require.True(t, got[0].Authenticated)
	require.Equal(t, "user@example.com", got[0].User.Email)
	require.False(t, got[1].Authenticated)
	require.Nil(t, got[1].User)
}

func TestListeners_ProfileUpdateBroadcasts(t *testing.T) {
	ctx := context.Background()
	e := setupEnv(t, time.Minute, 10*time.Minute)
	e.login(t)

	var rec recorder
	e.coord.AddListener(rec.listen)

	name := "Anna"
	_, err := e.profile.UpdateProfile(ctx, models.ProfileUpdate{FirstName: &name})
	require.NoError(t, err)

	got := rec.all()
	require.Len(t, got, 1)
	require.True(t, got[0].Authenticated)
	require.Equal(t, "Anna", got[0].User.FirstName)
}

func TestRemoveListener_Idempotent(t *testing.T) {
	e := setupEnv(t, time.Minute, 10*time.Minute)

	var rec recorder
	id := e.coord.AddListener(rec.listen)
	e.coord.RemoveListener(id)
	e.coord.RemoveListener(id) // second removal is a no-op
	e.coord.RemoveListener(999)

	e.login(t)
	require.Empty(t, rec.all())
}

func TestListeners_PanicIsolated(t *testing.T) {
	e := setupEnv(t, time.Minute, 10*time.Minute)

	var rec recorder
	e.coord.AddListener(func(Snapshot) { panic("listener bug") })
	e.coord.AddListener(rec.listen)

	e.login(t)
	require.Len(t, rec.all(), 1, "a panicking listener must not block the rest")
}

func TestSessionEnd_ClearsAddressCache(t *testing.T) {
	ctx := context.Background()
	e := setupEnv(t, time.Minute, 10*time.Minute)
	e.login(t)

	_, err := e.profile.AddAddress(ctx, models.AddressInput{
		FullName: "Ann Lee", Phone: "+1 555-0100", AddressLine1: "1 Main St",
		City: "Springfield", State: "IL", ZipCode: "62701", Country: "US",
		Type: models.AddressHome,
	})
	require.NoError(t, err)

	require.NoError(t, e.session.Logout(ctx))

	cached, err := e.addrRepo.GetAll(ctx)
	require.NoError(t, err)
	require.Empty(t, cached, "address cache must not survive the session")
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	e := setupEnv(t, time.Minute, 10*time.Minute)

	snap := e.coord.Snapshot(ctx)
	require.False(t, snap.Authenticated)
	require.Nil(t, snap.User)

	e.login(t)
	snap = e.coord.Snapshot(ctx)
	require.True(t, snap.Authenticated)
	require.Equal(t, "user@example.com", snap.User.Email)
}

func TestRequireAuth(t *testing.T) {
	ctx := context.Background()
	e := setupEnv(t, time.Minute, 10*time.Minute)

	ok, redirect := e.coord.RequireAuth(ctx, "/account/addresses?sort=name")
	require.False(t, ok)
	require.Equal(t, "/login?redirect=%2Faccount%2Faddresses%3Fsort%3Dname", redirect)

	e.login(t)
	ok, redirect = e.coord.RequireAuth(ctx, "/account/addresses")
	require.True(t, ok)
	require.Empty(t, redirect)
}

func TestRun_RefreshesNearExpiryToken(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := setupEnv(t, 10*time.Millisecond, 10*time.Minute)
	e.fake.AccessTTL = 5 * time.Minute // always under the threshold
	e.login(t)
	before := e.session.AccessToken(ctx)

	go e.coord.Run(ctx)

	require.Eventually(t, func() bool {
		return e.session.AccessToken(ctx) != before
	}, 2*time.Second, 10*time.Millisecond, "the loop must rotate a near-expiry token")
	require.True(t, e.session.IsAuthenticated(ctx))
}

func TestRun_LeavesHealthyTokenAlone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := setupEnv(t, 10*time.Millisecond, 10*time.Minute)
	e.fake.AccessTTL = time.Hour
	e.login(t)
	before := e.session.AccessToken(ctx)

	go e.coord.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, before, e.session.AccessToken(ctx))
}

func TestRun_RejectedRefreshEndsSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := setupEnv(t, 10*time.Millisecond, 10*time.Minute)
	e.fake.AccessTTL = 5 * time.Minute
	e.login(t)

	var rec recorder
	e.coord.AddListener(rec.listen)

	// Corrupt the refresh token so the exchange is rejected outright.
	require.NoError(t, e.tokens.SaveTokens(context.Background(), e.session.AccessToken(ctx), "bogus"))

	go e.coord.Run(ctx)

	require.Eventually(t, func() bool {
		return !e.session.IsAuthenticated(ctx)
	}, 2*time.Second, 10*time.Millisecond)

	got := rec.all()
	require.NotEmpty(t, got)
	require.False(t, got[len(got)-1].Authenticated)
}
