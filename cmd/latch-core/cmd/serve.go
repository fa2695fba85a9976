package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/latchagent/latch-core/internal/adapter/inbound/authzhttp"
	"github.com/latchagent/latch-core/internal/adapter/outbound/activityfile"
	"github.com/latchagent/latch-core/internal/adapter/outbound/feed"
	"github.com/latchagent/latch-core/internal/adapter/outbound/memory"
	"github.com/latchagent/latch-core/internal/adapter/outbound/policyfile"
	"github.com/latchagent/latch-core/internal/adapter/outbound/sessionstore"
	"github.com/latchagent/latch-core/internal/adapter/outbound/vaultenv"
	"github.com/latchagent/latch-core/internal/adapter/outbound/vaulthttp"
	"github.com/latchagent/latch-core/internal/config"
	"github.com/latchagent/latch-core/internal/domain/approval"
	"github.com/latchagent/latch-core/internal/domain/policy"
	"github.com/latchagent/latch-core/internal/domain/session"
	"github.com/latchagent/latch-core/internal/domain/tool"
	"github.com/latchagent/latch-core/internal/domain/vault"
	"github.com/latchagent/latch-core/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the authorization server",
	Long: `serve loads every session "register" has written to the sessions
file, starts the loopback authorization server, and blocks until an
interrupt or terminate signal arrives.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg.LogLevel)

	policyStore, err := newPolicyStore(*cfg)
	if err != nil {
		return fmt.Errorf("build policy store: %w", err)
	}

	activityStore, err := activityfile.Open(activityfile.Config{
		Dir:           cfg.Activity.Dir,
		RetentionDays: cfg.Activity.RetentionDays,
		MaxFileSizeMB: cfg.Activity.MaxFileSizeMB,
	}, logger)
	if err != nil {
		return fmt.Errorf("build activity store: %w", err)
	}

	sessions := session.NewRegistry()
	sessionFile := sessionstore.Open(cfg.Sessions.File)
	loaded, err := loadSessions(sessionFile, sessions)
	if err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}
	logger.Info("loaded registered sessions", "count", loaded, "file", cfg.Sessions.File)

	settingsStore := memory.NewSettingsStore()
	coordinator := approval.NewCoordinator()
	broadcaster := feed.NewBroadcaster()
	evaluator := &tool.Evaluator{}
	vaultResolver := newVaultResolver(*cfg)

	svc := service.NewAuthzService(sessions, policyStore, activityStore, settingsStore, vaultResolver, evaluator, coordinator, broadcaster, logger)

	reg := prometheus.NewRegistry()
	srv, err := authzhttp.New(svc, reg, logger)
	if err != nil {
		return fmt.Errorf("build authorization server: %w", err)
	}

	shutdownTracing, err := initTracing(cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	srv.Start()
	fmt.Printf("latch-core listening on 127.0.0.1:%d\n", srv.Port())
	fmt.Printf("secret: %s\n", srv.Secret())
	logger.Info("authorization server started", "port", srv.Port())

	ctx, stop := signalContext()
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("error during shutdown", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("error shutting down tracing", "error", err)
	}
	return nil
}

// newLogger builds a text-handler slog.Logger writing to stderr at level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}

func newPolicyStore(cfg config.Config) (policy.Store, error) {
	if cfg.Policy.Backend == "file" {
		return policyfile.Open(cfg.Policy.Dir)
	}
	return memory.NewPolicyStore(), nil
}

func newVaultResolver(cfg config.Config) vault.Resolver {
	if cfg.Vault.URL != "" {
		return vaulthttp.New(cfg.Vault.URL)
	}
	return vaultenv.New()
}

// loadSessions replays every persisted registration into sessions. A bad
// entry is skipped rather than failing the whole server start.
func loadSessions(store *sessionstore.Store, sessions *session.Registry) (int, error) {
	entries, err := store.Load()
	if err != nil {
		return 0, err
	}

	loaded := 0
	for _, e := range entries {
		override, err := decodePolicyOverride(e.PolicyOverride)
		if err != nil {
			continue
		}
		if err := sessions.Register(e.SessionID, e.HarnessID, e.PolicyID, override); err != nil {
			continue
		}
		loaded++
	}
	return loaded, nil
}
