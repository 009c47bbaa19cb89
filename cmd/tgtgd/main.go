package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	sqliteadapter "github.com/Zappdidappdi/home-assistant-tgtg/internal/adapter/driven/sqlite"
	tgtgadapter "github.com/Zappdidappdi/home-assistant-tgtg/internal/adapter/driven/tgtg"
	webhookadapter "github.com/Zappdidappdi/home-assistant-tgtg/internal/adapter/driven/webhook"
	httphandler "github.com/Zappdidappdi/home-assistant-tgtg/internal/adapter/driving/http"
	webhandler "github.com/Zappdidappdi/home-assistant-tgtg/internal/adapter/driving/web"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/application"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/config"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/model"
	"github.com/Zappdidappdi/home-assistant-tgtg/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid values).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"poll_interval", cfg.PollInterval,
		"item_ids", len(cfg.ItemIDs),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := db.Migrate(); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire adapters.
	itemStore := sqliteadapter.NewItemRepo(db)
	orderStore := sqliteadapter.NewOrderRepo(db)
	snapshotStore := sqliteadapter.NewSnapshotRepo(db)
	trackStore := sqliteadapter.NewTrackRepo(db)
	settingsStore := sqliteadapter.NewSettingsRepo(db)
	muteStore := sqliteadapter.NewMuteRepo(db)
	webhookStore := sqliteadapter.NewWebhookRepo(db)
	credentialStore := sqliteadapter.NewCredentialRepo(db, cfg.EncryptionKey)
	notifier := webhookadapter.NewNotifier()

	// 6. Auth: the provider starts empty; Bootstrap activates a client when
	// usable credentials are stored. The factory pins the configured user
	// agent on every client it builds.
	provider := application.NewClientProvider(nil)
	factory := func(tokens model.TokenSet, onRefresh func(model.TokenSet)) driven.TGTGClient {
		client := tgtgadapter.NewClient(tokens)
		client.SetUserAgent(cfg.UserAgent)
		if onRefresh != nil {
			client.SetTokenRefreshHandler(onRefresh)
		}
		return client
	}
	authSvc := application.NewAuthService(provider, credentialStore, factory)
	if err := authSvc.Bootstrap(ctx); err != nil {
		return err
	}

	// 6b. Without stored credentials, a configured email starts the login
	// mail flow in the background. The operator still has to click the link.
	if state, _ := authSvc.Status(); state == model.AuthStateNone && cfg.HasEmail() {
		go func() {
			if err := authSvc.Login(ctx, cfg.Email); err != nil {
				slog.Error("startup login failed", "email", cfg.Email, "error", err)
			}
		}()
	}

	// 6c. Seed tracks for the configured item IDs. Already-tracked IDs are
	// left as they are.
	seedTracks(ctx, trackStore, cfg.ItemIDs)

	// 7. Create alert and poll services, then start the poll loop.
	alertSvc := application.NewAlertService(webhookStore, muteStore, trackStore, settingsStore, itemStore, notifier)
	pollSvc := application.NewPollService(
		provider,
		itemStore,
		orderStore,
		snapshotStore,
		trackStore,
		settingsStore,
		alertSvc,
		cfg.PollInterval,
		cfg.HistoryRetention,
	)
	go pollSvc.Start(ctx)

	// 7b. An optional cron schedule forces extra full refreshes on top of
	// the adaptive loop, e.g. right before the usual evening drop.
	if cfg.PollCron != "" {
		scheduler := cron.New()
		if _, err := scheduler.AddFunc(cfg.PollCron, func() {
			if err := pollSvc.RefreshAll(ctx); err != nil {
				slog.Warn("scheduled refresh failed", "error", err)
			}
		}); err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()
		slog.Info("extra refresh schedule active", "cron", cfg.PollCron)
	}

	// 7c. Read-side services.
	sensorSvc := application.NewSensorService(itemStore, orderStore, snapshotStore)
	trackSvc := application.NewTrackService(provider, itemStore, trackStore)
	healthSvc := application.NewHealthService(db.Reader, pollSvc, authSvc)

	// 7.5. Create HTTP handler and register API routes.
	var metrics *httphandler.Metrics
	if cfg.MetricsEnabled {
		metrics = httphandler.NewMetrics(itemStore, pollSvc, authSvc)
	}

	apiHandler := httphandler.NewHandler(sensorSvc, trackSvc, pollSvc, authSvc, healthSvc, settingsStore, muteStore, webhookStore, notifier, slog.Default())
	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, apiHandler)

	// 7.6. Create web handler and register GUI routes.
	webHandler := webhandler.NewHandler(itemStore, trackStore, muteStore, settingsStore, webhookStore, sensorSvc, trackSvc, pollSvc, authSvc, healthSvc, slog.Default())
	webhandler.RegisterRoutes(mux, webHandler)

	if metrics != nil {
		mux.Handle("GET /metrics", metrics.ExporterHandler())
	}

	// Apply middleware.
	handler := httphandler.ApplyMiddleware(mux, metrics, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	// 8. Log startup complete.
	slog.Info("tgtgd started",
		"listen_addr", cfg.ListenAddr,
		"poll_interval", cfg.PollInterval,
		"metrics", cfg.MetricsEnabled,
	)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 10. Graceful shutdown with 10s timeout to drain the HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	// 11. Log shutdown complete.
	slog.Info("shutdown complete")
	return nil
}

// seedTracks registers the configured item IDs as tracked listings. Their
// details arrive with the first poll cycle.
func seedTracks(ctx context.Context, tracks driven.TrackStore, itemIDs []string) {
	for _, id := range itemIDs {
		_, err := tracks.Add(ctx, model.Track{
			ItemID:  id,
			Notify:  true,
			AddedAt: time.Now().UTC(),
		})
		if err != nil && !errors.Is(err, driven.ErrTrackAlreadyExists) {
			slog.Warn("failed to seed track", "item_id", id, "error", err)
		}
	}
}
