package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/craftlink/chat-server/internal/auth"
	"github.com/craftlink/chat-server/internal/bus"
	"github.com/craftlink/chat-server/internal/config"
	"github.com/craftlink/chat-server/internal/core"
	"github.com/craftlink/chat-server/internal/service/chat"
	"github.com/craftlink/chat-server/internal/service/jobs"
	"github.com/craftlink/chat-server/internal/store"
	"github.com/craftlink/chat-server/internal/store/sqlite"
	transporthttp "github.com/craftlink/chat-server/internal/transport/http"
)

// App wires together store, bus, bridge, services, and transport.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	bridge          *core.Bridge
	bus             bus.Bus
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	var b bus.Bus
	if cfg.RedisURL != "" {
		client, err := bus.Connect(ctx, cfg.RedisURL)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("init bus: %w", err)
		}
		b = bus.NewRedis(client, logger)
		logger.Info().Str("redis_url", cfg.RedisURL).Msg("bus connected")
	} else {
		b = bus.NewMemory()
		logger.Warn().Msg("no redis configured, events reach this node only")
	}

	registry := core.NewRegistry()
	bridge := core.NewBridge(b, registry, categoryResolver{st}, logger)

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}
	gateway := auth.NewGateway(auth.NewJWTVerifier(jwtConfig))

	chatSvc := chat.NewService(st, bridge, logger)
	jobsSvc := jobs.NewService(st, bridge, logger)
	dispatcher := transporthttp.NewDispatcher(chatSvc, jobsSvc, logger)

	server := transporthttp.NewServer(cfg, gateway, jwtConfig, registry, dispatcher, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		bridge:          bridge,
		bus:             b,
		store:           st,
		log:             logger,
	}, nil
}

// Run subscribes the bridge, starts the HTTP server, and blocks until
// context cancellation or a fatal error.
func (a *App) Run(ctx context.Context) error {
	if err := a.bridge.Start(ctx); err != nil {
		a.cleanup()
		return fmt.Errorf("start bridge: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes the bus and store.
func (a *App) cleanup() {
	if err := a.bus.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close bus")
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close store")
	} else {
		a.log.Info().Msg("store closed")
	}
}

// categoryResolver adapts the category store for delivery-time
// enrichment in the bridge.
type categoryResolver struct {
	store store.CategoryStore
}

func (r categoryResolver) CategoryDetails(ctx context.Context, id string) (*core.CategoryDetails, error) {
	cat, err := r.store.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, nil
	}
	return &core.CategoryDetails{ID: cat.ID, Name: cat.Name}, nil
}
