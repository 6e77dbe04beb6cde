// Package authstate keeps every interested component's view of "who is
// logged in" consistent. The coordinator listens to session events, fans the
// resulting snapshots out to registered listeners, and runs the proactive
// token refresh loop so access tokens are renewed before they expire.
package authstate

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"storefront/internal/events"
	"storefront/internal/logging"
	"storefront/internal/models"
	"storefront/internal/services"
	"storefront/internal/tokenstore"
)

// Snapshot is the authentication state handed to listeners. User is nil when
// Authenticated is false.
type Snapshot struct {
	Authenticated bool
	User          *models.User
}

// Listener receives state snapshots. Listeners run synchronously on the
// goroutine that triggered the change; a panicking listener does not stop
// delivery to the rest.
type Listener func(Snapshot)

type listenerEntry struct {
	id int
	fn Listener
}

// Coordinator owns the derived authentication state of the client.
type Coordinator struct {
	session *services.SessionManager
	profile *services.ProfileService
	bus     *events.Bus
	log     logging.Logger

	// checkInterval is how often the refresh loop wakes up; threshold is the
	// remaining token lifetime below which a refresh is triggered.
	checkInterval time.Duration
	threshold     time.Duration

	mu        sync.Mutex
	nextID    int
	listeners []listenerEntry

	// unreachable tracks server liveness between ticks so transitions are
	// logged once, not on every failing tick.
	unreachable bool
}

func New(session *services.SessionManager, profile *services.ProfileService,
	bus *events.Bus, log logging.Logger, checkInterval, threshold time.Duration) *Coordinator {

	c := &Coordinator{
		session:       session,
		profile:       profile,
		bus:           bus,
		log:           log.With("component", "authstate"),
		checkInterval: checkInterval,
		threshold:     threshold,
	}
	bus.Subscribe(c.onEvent)
	return c
}

// AddListener registers fn and returns an id for RemoveListener. The
// listener receives no immediate snapshot; call Snapshot for the current
// state.
func (c *Coordinator) AddListener(fn Listener) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.listeners = append(c.listeners, listenerEntry{id: c.nextID, fn: fn})
	return c.nextID
}

// RemoveListener deregisters the listener with the given id. Removing an
// unknown or already-removed id is a no-op.
func (c *Coordinator) RemoveListener(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, l := range c.listeners {
		if l.id == id {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			return
		}
	}
}

// Snapshot returns the current authentication state.
func (c *Coordinator) Snapshot(ctx context.Context) Snapshot {
	if !c.session.IsAuthenticated(ctx) {
		return Snapshot{}
	}
	return Snapshot{Authenticated: true, User: c.session.CurrentUser(ctx)}
}

func (c *Coordinator) onEvent(e events.Event) {
	ctx := context.Background()
	switch ev := e.(type) {
	case events.SessionEstablished:
		user := ev.User
		c.broadcast(Snapshot{Authenticated: true, User: &user})
	case events.SessionEnded:
		// Cached addresses must not leak to the next account on a shared
		// device.
		if err := c.profile.ClearCache(ctx); err != nil {
			c.log.Warn(ctx, "failed to clear address cache on session end", "error", err)
		}
		c.broadcast(Snapshot{})
	case events.ProfileUpdated:
		user := ev.User
		c.broadcast(Snapshot{Authenticated: true, User: &user})
	}
}

func (c *Coordinator) broadcast(snap Snapshot) {
	c.mu.Lock()
	listeners := make([]listenerEntry, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, l := range listeners {
		notify(l.fn, snap)
	}
}

func notify(fn Listener, snap Snapshot) {
	defer func() {
		_ = recover()
	}()
	fn(snap)
}

// RequireAuth gates access to an authenticated area. It returns ok=true when
// a live session exists; otherwise ok=false plus the login redirect carrying
// the originally requested target.
func (c *Coordinator) RequireAuth(ctx context.Context, target string) (ok bool, redirect string) {
	if c.session.IsAuthenticated(ctx) {
		return true, ""
	}
	return false, "/login?redirect=" + url.QueryEscape(target)
}

// Run drives the proactive refresh loop until ctx is cancelled. Each tick it
// inspects the stored access token and refreshes when the remaining lifetime
// drops below the threshold. A rejected refresh ends the session (the session
// manager broadcasts that); the loop keeps ticking so a later login is picked
// up again without restarting it.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.checkInterval)
	defer ticker.Stop()

	c.log.Info(ctx, "refresh loop started",
		"check_interval", c.checkInterval, "threshold", c.threshold)
	for {
		select {
		case <-ctx.Done():
			c.log.Info(ctx, "refresh loop stopped")
			return
		case <-ticker.C:
			c.checkOnce(ctx)
		}
	}
}

func (c *Coordinator) checkOnce(ctx context.Context) {
	token := c.session.AccessToken(ctx)
	if token == "" {
		return
	}
	exp, err := tokenstore.DecodeExpiry(token)
	if err != nil {
		c.log.Warn(ctx, "stored token undecodable, skipping refresh", "error", err)
		return
	}
	remaining := time.Until(exp)
	if remaining >= c.threshold {
		return
	}

	c.log.Debug(ctx, "access token near expiry, refreshing", "remaining", remaining)
	if err := c.session.Refresh(ctx); err != nil {
		switch {
		case errors.Is(err, services.ErrSessionExpired):
			// Authoritative rejection; the session manager already tore the
			// session down and published SessionEnded. Nothing to retry.
			c.log.Warn(ctx, "proactive refresh rejected, session ended")
		case errors.Is(err, services.ErrNoRefreshToken):
			c.log.Debug(ctx, "no refresh token stored, skipping")
		default:
			// Unreachable server: keep the session and retry on the next tick.
			if !c.unreachable {
				c.unreachable = true
				c.log.Warn(ctx, "server unreachable, keeping session and retrying", "error", err)
			}
		}
		return
	}

	if c.unreachable {
		c.unreachable = false
		c.log.Info(ctx, "server reachable again")
	}
}
