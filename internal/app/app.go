package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"threejsmcp/internal/mcpserver"
	"threejsmcp/internal/modelquery"
	"threejsmcp/internal/sketchfab"
	"threejsmcp/internal/tokenmanager"
)

// App orchestrates the lifecycle of the tool server and related services.
type App struct {
	cfg    *Config
	server *mcpserver.Server
}

// New creates a new App instance, loading persisted credentials and wiring
// all components.
func New(ctx context.Context, cfg *Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := cfg.Auth.NewCredentialStore()
	if err != nil {
		return nil, fmt.Errorf("failed to create credential store: %w", err)
	}

	refresher, err := tokenmanager.NewOAuthRefresher(cfg.Upstream.TokenURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create token refresher: %w", err)
	}

	manager, err := tokenmanager.New(ctx, store, refresher, cfg.Auth.Seed())
	if err != nil {
		return nil, fmt.Errorf("failed to create token manager: %w", err)
	}

	logCredentialStatus(ctx, manager)

	client, err := sketchfab.New(manager, sketchfab.WithBaseURL(cfg.Upstream.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create sketchfab client: %w", err)
	}

	queries, err := modelquery.New(client)
	if err != nil {
		return nil, fmt.Errorf("failed to create query service: %w", err)
	}

	server, err := mcpserver.New(queries, manager.HasTokenMaterial())
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP server: %w", err)
	}

	return &App{
		cfg:    cfg,
		server: server,
	}, nil
}

// logCredentialStatus reports at startup what the credential set can and
// cannot do, so a misconfigured deployment is diagnosable from the first
// lines of output.
func logCredentialStatus(ctx context.Context, manager *tokenmanager.Manager) {
	state := manager.State()
	switch state {
	case tokenmanager.StateUninitialized:
		slog.WarnContext(ctx, "no sketchfab credentials configured; all sketchfab queries will fail and the download tool is not advertised")
	case tokenmanager.StateExpired:
		slog.InfoContext(ctx, "access token expired or absent; will refresh on first use")
	default:
		slog.InfoContext(ctx, "sketchfab credentials loaded", "state", string(state))
	}
}

// Start starts the configured transport and blocks until shutdown is
// triggered.
func (a *App) Start(ctx context.Context) error {
	switch a.cfg.Transport {
	case TransportStdio:
		return a.startStdio(ctx)
	case TransportHTTP:
		return a.startHTTP(ctx)
	default:
		return fmt.Errorf("unsupported transport: %s", a.cfg.Transport)
	}
}

// startStdio blocks on the stdio transport until the client disconnects or
// the context is cancelled.
func (a *App) startStdio(ctx context.Context) error {
	if err := a.server.ServeStdio(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio transport: %w", err)
	}
	slog.Info("application stopped")
	return nil
}

// startHTTP starts the HTTP transport and blocks until shutdown is triggered.
// Uses errgroup for runtime error monitoring and coordinated cleanup.
func (a *App) startHTTP(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	address := a.cfg.Server.Host + ":" + strconv.FormatUint(uint64(a.cfg.Server.Port), 10)

	serverErrCh, err := a.server.StartHTTP(gCtx, address)
	if err != nil {
		return fmt.Errorf("http transport startup failed: %w", err)
	}

	// Monitor runtime errors - errgroup cancels context on first error
	g.Go(func() error {
		select {
		case err := <-serverErrCh:
			if err != nil {
				slog.ErrorContext(gCtx, "http transport runtime error", "error", err)
				return fmt.Errorf("http transport: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	slog.InfoContext(gCtx, "application ready", "address", address)

	runtimeErr := g.Wait()

	slog.InfoContext(gCtx, "shutting down services")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Shutdown.Timeout)
	defer cancel()

	var errs []error
	if runtimeErr != nil {
		errs = append(errs, fmt.Errorf("runtime: %w", runtimeErr))
	}
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "service shutdown failed", "error", err)
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("application stopped")
	return nil
}
