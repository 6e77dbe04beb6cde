// Package cli implements the interactive storefront client: a small REPL
// over the session manager, the profile service, and the auth state
// coordinator.
package cli

import (
	"bufio"
	"context"
	"log/slog"
	"os"

	_ "modernc.org/sqlite"

	"storefront/internal/authstate"
	"storefront/internal/config"
	"storefront/internal/events"
	"storefront/internal/gateway"
	"storefront/internal/logging"
	"storefront/internal/services"
	"storefront/internal/storage"
	"storefront/internal/tokenstore"
)

type App struct {
	config  *config.Config
	repos   *storage.Repositories
	session *services.SessionManager
	profile *services.ProfileService
	coord   *authstate.Coordinator
	log     logging.Logger
	reader  *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()

	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	repos, err := storage.Init(ctx, c.DatabasePath)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	gw := gateway.NewHTTPGateway(c.GatewayBaseURL)
	tokens := tokenstore.New(repos.Metadata)
	bus := events.NewBus()

	session := services.NewSessionManager(gw, tokens, bus, log)
	profile := services.NewProfileService(gw, session, tokens, repos.Addresses, bus, log)
	coord := authstate.New(session, profile, bus, log,
		c.RefreshCheckInterval, c.RefreshThreshold)

	return &App{
		config:  c,
		repos:   repos,
		session: session,
		profile: profile,
		coord:   coord,
		log:     log,
		reader:  bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) isLoggedIn(ctx context.Context) bool {
	return a.session.IsAuthenticated(ctx)
}

// Run starts the proactive refresh loop and hands control to the REPL. It
// returns when the user exits; the refresh loop is stopped with it.
func (a *App) Run(ctx context.Context) {
	defer a.repos.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go a.coord.Run(ctx)

	a.Root(ctx)
}
