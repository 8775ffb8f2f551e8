// Package app wires configuration, infrastructure, and every domain
// handler into a running process. Grounded on the teacher's internal/app's
// Run/runAPI/runWorker split, adapted from a two-process (api, worker)
// topology to a single api process: automation and webhook delivery are
// now in-process subscribers on the shared event bus (spec.md §4.7, §4.8)
// rather than a separately-scheduled poller, so there is nothing left for
// a worker process to do.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/boardkeep/kernel/internal/audit"
	"github.com/boardkeep/kernel/internal/automation"
	"github.com/boardkeep/kernel/internal/config"
	"github.com/boardkeep/kernel/internal/dal"
	"github.com/boardkeep/kernel/internal/events"
	"github.com/boardkeep/kernel/internal/httpserver"
	"github.com/boardkeep/kernel/internal/identity"
	"github.com/boardkeep/kernel/internal/platform"
	"github.com/boardkeep/kernel/internal/ratelimit"
	"github.com/boardkeep/kernel/internal/safeaction"
	"github.com/boardkeep/kernel/internal/seed"
	"github.com/boardkeep/kernel/internal/telemetry"
	"github.com/boardkeep/kernel/internal/webhook"
	"github.com/boardkeep/kernel/pkg/auto"
	"github.com/boardkeep/kernel/pkg/board"
	"github.com/boardkeep/kernel/pkg/card"
	"github.com/boardkeep/kernel/pkg/comment"
	"github.com/boardkeep/kernel/pkg/hook"
	"github.com/boardkeep/kernel/pkg/label"
	"github.com/boardkeep/kernel/pkg/list"
	"github.com/boardkeep/kernel/pkg/notify"
	"github.com/boardkeep/kernel/pkg/reaction"
)

// Run is the process entry point. It reads config, connects to
// infrastructure, and starts the mode selected by cfg.Mode.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting boardkeep kernel", "mode", cfg.Mode, "listen", cfg.ListenAddr())

	db, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	if err := platform.RunGlobalMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("migrations applied")

	switch cfg.Mode {
	case "api":
		return runAPI(ctx, cfg, logger, db)
	case "seed":
		return seed.Run(ctx, db, cfg.DatabaseURL, cfg.MigrationsDir, logger)
	case "seed-demo":
		return seed.RunDemo(ctx, db, cfg.DatabaseURL, cfg.MigrationsDir, logger)
	default:
		return fmt.Errorf("unknown mode: %s", cfg.Mode)
	}
}

func runAPI(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool) error {
	metricsReg := telemetry.NewMetricsRegistry(telemetry.All()...)

	factory := dal.NewFactory(db)

	// --- Identity: verifier + resolver (spec.md §4.3) ---
	var verifier identity.Verifier
	if cfg.OIDCIssuerURL != "" && cfg.OIDCClientID != "" {
		oidcVerifier, err := identity.NewOIDCVerifier(ctx, cfg.OIDCIssuerURL, cfg.OIDCClientID)
		if err != nil {
			return fmt.Errorf("initializing OIDC verifier: %w", err)
		}
		verifier = oidcVerifier
		logger.Info("OIDC authentication enabled", "issuer", cfg.OIDCIssuerURL)
	} else {
		sessionSecret := cfg.SessionSecret
		if sessionSecret == "" {
			return errors.New("either OIDC_ISSUER_URL/OIDC_CLIENT_ID or KERNEL_SESSION_SECRET must be set")
		}
		sessionVerifier, err := identity.NewSessionVerifier(sessionSecret, cfg.SessionIssuer)
		if err != nil {
			return fmt.Errorf("initializing session verifier: %w", err)
		}
		verifier = sessionVerifier
		logger.Info("session-token authentication enabled")
	}

	profiles, ok := verifier.(identity.ProfileFetcher)
	if !ok {
		return errors.New("configured verifier does not implement ProfileFetcher")
	}
	resolver := &identity.Resolver{
		Store:    &identity.PostgresStore{DB: db},
		Profiles: profiles,
	}

	// --- Event bus (spec.md §4.7, §4.8) ---
	bus := events.NewBus(logger)

	slackNotifier := notify.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackAlertChannel, logger)
	if slackNotifier.IsEnabled() {
		logger.Info("slack notification sink enabled", "channel", cfg.SlackAlertChannel)
	} else {
		logger.Info("slack notification sink disabled (SLACK_BOT_TOKEN not set)")
	}

	automationEngine := automation.NewEngine(factory, logger, slackNotifier, cfg.SystemUserID, cfg.MaxAutomationDepth)
	bus.Subscribe(automationEngine)

	webhookDispatcher := webhook.NewDispatcher(factory, logger, cfg.AllowHTTPWebhooks)
	bus.Subscribe(webhookDispatcher)

	go automation.RunDueScanLoop(ctx, db, bus, logger, cfg.DueScanInterval)

	// --- Audit log writer (async, buffered) ---
	auditWriter := audit.NewWriter(db, logger)
	auditWriter.Start(ctx)
	defer auditWriter.Close()

	safeDeps := &safeaction.Deps{
		Limiter:   ratelimit.New(ratelimit.DefaultConfig()),
		Audit:     auditWriter,
		Events:    bus,
		DemoOrgID: cfg.DemoOrgID,
		Logger:    logger,
	}

	srv := httpserver.NewServer(cfg, logger, db, nil, metricsReg, verifier, resolver)

	boardHandler := board.NewHandler(factory, safeDeps, logger)
	srv.APIRouter.Mount("/boards", boardHandler.Routes())

	listHandler := list.NewHandler(factory, safeDeps, logger)
	srv.APIRouter.Mount("/lists", listHandler.Routes())

	cardHandler := card.NewHandler(factory, safeDeps, logger)
	srv.APIRouter.Mount("/cards", cardHandler.Routes())

	labelHandler := label.NewHandler(factory, safeDeps, logger)
	srv.APIRouter.Mount("/labels", labelHandler.Routes())

	commentHandler := comment.NewHandler(factory, safeDeps, logger)
	srv.APIRouter.Mount("/comments", commentHandler.Routes())

	reactionHandler := reaction.NewHandler(factory, safeDeps, logger)
	srv.APIRouter.Mount("/reactions", reactionHandler.Routes())

	autoHandler := auto.NewHandler(factory, safeDeps, automationEngine, logger)
	srv.APIRouter.Mount("/automations", autoHandler.Routes())

	hookHandler := hook.NewHandler(factory, safeDeps, logger)
	srv.APIRouter.Mount("/webhooks", hookHandler.Routes())

	auditHandler := audit.NewHandler(factory, logger)
	srv.APIRouter.Mount("/audit-logs", auditHandler.Routes())

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
