// Package main is the entrypoint for the Headhunter dashboard server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samtoma/Headhunter-sub000/internal/activity"
	"github.com/samtoma/Headhunter-sub000/internal/api"
	"github.com/samtoma/Headhunter-sub000/internal/api/handler"
	mw "github.com/samtoma/Headhunter-sub000/internal/api/middleware"
	"github.com/samtoma/Headhunter-sub000/internal/api/response"
	"github.com/samtoma/Headhunter-sub000/internal/api/stream"
	"github.com/samtoma/Headhunter-sub000/internal/backend"
	"github.com/samtoma/Headhunter-sub000/internal/bulk"
	"github.com/samtoma/Headhunter-sub000/internal/cache"
	"github.com/samtoma/Headhunter-sub000/internal/config"
	"github.com/samtoma/Headhunter-sub000/internal/grid"
	"github.com/samtoma/Headhunter-sub000/internal/kanban"
	"github.com/samtoma/Headhunter-sub000/internal/roster"
	"github.com/samtoma/Headhunter-sub000/internal/upload"
)

const (
	shutdownTimeout = 30 * time.Second
	startupTimeout  = 10 * time.Second
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, fail fast on invalid values
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "backend", cfg.Backend.BaseURL, "env", cfg.Server.Env,
		"page_size", cfg.Roster.PageSize, "stages", len(cfg.Pipeline.Stages))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Backend client, behind the Redis read cache when one is configured
	var client backend.Client = backend.NewHTTPClient(
		cfg.Backend.BaseURL, cfg.Backend.Token, cfg.Backend.Timeout, cfg.Backend.UploadTimeout)

	var (
		redisCache *cache.RedisCache
		rateLimit  *mw.RateLimit
	)
	if cfg.Redis.URL != "" {
		redisCache, err = cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("create redis cache: %w", err)
		}
		defer redisCache.Close()

		if err := redisCache.Ping(ctx); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		slog.Info("redis connected", "ttl", cfg.Redis.CacheTTL.String())

		client = backend.NewCachedClient(client, redisCache, cfg.Redis.CacheTTL)
		rateLimit = mw.NewRateLimit(redisCache, cfg.Server.RateLimitPerMin)
	} else {
		slog.Info("redis not configured, caching and rate limiting disabled")
	}

	// 3. Domain components
	store := roster.New(client, cfg.Roster.PageSize)
	board, err := kanban.New(store, cfg.Pipeline.Stages)
	if err != nil {
		return fmt.Errorf("create kanban board: %w", err)
	}
	renderer := grid.New(store, grid.Geometry{
		CardWidth: float64(cfg.Grid.CardWidth),
		Gap:       float64(cfg.Grid.Gap),
		RowHeight: float64(cfg.Grid.RowHeight),
		Overscan:  cfg.Grid.Overscan,
	})
	coordinator := bulk.New(store, client)
	defer coordinator.Close()
	session := upload.NewSession(client, upload.WithDismissDelay(cfg.Upload.DismissDelay))
	acts := handler.NewActivity(activity.NewFeed(client))

	// 4. Event stream
	hub := stream.NewHub()
	go hub.Run(ctx)
	defer store.Subscribe(hub.OnRosterEvent)()
	defer session.Subscribe(hub.OnUploadChange)()

	// 5. Initial page and background refresh. A failed first load is not fatal; the
	// refresher and the next client request retry it.
	loadCtx, cancelLoad := context.WithTimeout(ctx, startupTimeout)
	if err := store.SetQuery(loadCtx, store.Query()); err != nil {
		slog.Warn("initial roster load failed", "error", err)
	} else {
		slog.Info("roster loaded", "profiles", store.Len(), "has_more", store.HasMore())
	}
	cancelLoad()
	go roster.NewRefresher(store, cfg.Roster.RefreshInterval).Run(ctx)

	// 6. Build router with dependencies
	var healthCache cache.Cache
	if redisCache != nil {
		healthCache = redisCache
	}
	deps := api.Dependencies{
		RateLimit: rateLimit,

		HealthHandler: healthHandler(client, healthCache),
		JobsHandler:   handler.NewListJobsHandler(client),

		ListRoster:     handler.NewListRosterHandler(store),
		SetQuery:       handler.NewSetQueryHandler(store, board),
		LoadPage:       handler.NewLoadPageHandler(store),
		Refresh:        handler.NewRefreshHandler(store),
		Window:         handler.NewWindowHandler(store, renderer),
		PatchProfile:   handler.NewPatchProfileHandler(store),
		DeleteProfile:  handler.NewDeleteProfileHandler(store),
		PatchApp:       handler.NewPatchApplicationHandler(store),
		RemoveApp:      handler.NewRemoveApplicationHandler(store),
		ActivityFeed:   acts.Feed,
		ToggleActivity: acts.Toggle,

		Board: handler.NewBoardHandler(board),
		Drag:  handler.NewDragHandler(board),
		Drop:  handler.NewDropHandler(board),

		GetSelection:    handler.NewGetSelectionHandler(coordinator),
		ClearSelection:  handler.NewClearSelectionHandler(coordinator),
		ToggleSelection: handler.NewToggleSelectionHandler(coordinator),
		SelectAll:       handler.NewSelectAllHandler(coordinator),
		BulkReprocess:   handler.NewBulkReprocessHandler(coordinator),
		BulkAssign:      handler.NewBulkAssignHandler(coordinator),
		BulkDelete:      handler.NewBulkDeleteHandler(coordinator),

		StartUpload:   handler.NewStartUploadHandler(session),
		UploadStatus:  handler.NewUploadStatusHandler(session),
		DismissUpload: handler.NewDismissUploadHandler(session),

		Events: hub,
	}

	router := api.NewRouter(deps)

	// 7. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       cfg.Backend.UploadTimeout,
		WriteTimeout:      cfg.Backend.Timeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully", "upload_state", session.Snapshot().State)
	return nil
}

type readiness interface {
	Ready(ctx context.Context) error
}

// healthHandler checks backend reachability and, when configured, the cache.
func healthHandler(b readiness, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"backend": "ok",
			"cache":   "disabled",
		}

		if err := b.Ready(r.Context()); err != nil {
			checks["backend"] = "degraded"
		}
		if c != nil {
			checks["cache"] = "ok"
			if err := c.Ping(r.Context()); err != nil {
				checks["cache"] = "degraded"
			}
		}

		degraded := checks["backend"] == "degraded" || checks["cache"] == "degraded"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
