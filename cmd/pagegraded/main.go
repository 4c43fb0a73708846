// Command pagegraded is the hosted pagegrade service. It accepts audit run
// payloads over HTTP, recomputes run reports and serves them back.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pagegrade/pagegrade/internal/api"
	"github.com/pagegrade/pagegrade/internal/ingestion"
	"github.com/pagegrade/pagegrade/internal/notify"
	"github.com/pagegrade/pagegrade/internal/platform"
	"github.com/pagegrade/pagegrade/internal/runs"
	"github.com/pagegrade/pagegrade/internal/webhook"
	"github.com/pagegrade/pagegrade/pkg/config"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type daemonOpts struct {
	settingsPath string
	reset        bool
}

func newRootCmd() *cobra.Command {
	var opts daemonOpts

	cmd := &cobra.Command{
		Use:   "pagegraded",
		Short: "Serve the pagegrade ingestion and report API",
		Long: `pagegraded accepts audit run payloads over HTTP and signed worker
callbacks, recomputes each run's report as payloads arrive and serves the
latest report back.

Settings come from flags, then environment variables (and .env), then the
optional --settings file.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(opts.settingsPath, cmd.Flags())
			if err != nil {
				return err
			}
			return run(s, opts.reset)
		},
	}

	cmd.Flags().StringVar(&opts.settingsPath, "settings", "", "Path to a daemon settings file (yaml)")
	cmd.Flags().BoolVar(&opts.reset, "reset", false, "Roll back all database migrations before migrating up")
	cmd.Flags().String("port", "", "HTTP listen port (overrides PORT)")
	cmd.Flags().String("log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	return cmd
}

func run(s *settings, reset bool) error {
	logger, err := platform.NewLogger(s.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := loadEngineConfig(s.ConfigFile)
	if err != nil {
		return err
	}
	applyStorageSettings(cfg, s)
	if err := cfg.Validate(); err != nil {
		return err
	}

	engine, err := cfg.Engine()
	if err != nil {
		return fmt.Errorf("build scoring engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run store: Postgres when configured, in-memory otherwise.
	var (
		store runs.Store
		check func(context.Context) error
	)
	if s.DatabaseURL != "" {
		db, err := sql.Open("postgres", s.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
		if reset {
			if err := platform.MigrateDown(db); err != nil {
				return err
			}
			logger.Warn("database migrations rolled back")
		}
		if err := platform.AutoMigrate(db); err != nil {
			return err
		}
		store = runs.NewPostgresStore(db)
		check = db.PingContext
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory run store")
		store = runs.NewMemoryStore()
	}

	storage, err := ingestion.OpenStorage(ctx, cfg.Storage, s.AWSAccessKey, s.AWSSecretKey)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	if c, ok := storage.(io.Closer); ok {
		defer c.Close()
	}

	var publisher notify.Publisher = notify.Nop{}
	if s.RedisAddr != "" {
		rp, err := notify.NewRedisPublisher(ctx, s.RedisAddr, s.RedisPassword, s.RedisDB)
		if err != nil {
			return err
		}
		defer rp.Close()
		publisher = rp
	}

	ingestionSvc := ingestion.NewService(store, storage, engine, publisher, logger)
	cache := api.NewReportCache(s.ReportCacheSize)
	handler := api.NewHandler(store, ingestionSvc, cache, logger)

	apiMux := http.NewServeMux()
	handler.RegisterRoutes(apiMux)

	mux := http.NewServeMux()
	api.RegisterHealth(mux, check)
	mux.Handle("/api/", api.APIKeyAuth(s.APIKey)(apiMux))
	if s.WebhookSecret != "" {
		mux.Handle("/webhooks/audit", webhook.NewHandler([]byte(s.WebhookSecret), store, ingestionSvc, cache, logger))
	} else {
		logger.Warn("WEBHOOK_SECRET not set, audit worker callbacks disabled")
	}

	srv := &http.Server{
		Addr:              ":" + s.Port,
		Handler:           api.RequestLogger(logger)(api.CORS(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting pagegraded",
			zap.String("addr", srv.Addr),
			zap.String("storage", cfg.Storage.Backend),
			zap.Bool("postgres", s.DatabaseURL != ""),
			zap.Bool("redis", s.RedisAddr != ""),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
	return nil
}

// loadEngineConfig reads the scoring/storage config file, or the defaults
// when path is empty.
func loadEngineConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	return cfg, nil
}

// applyStorageSettings lets environment settings override the config file's
// storage section.
func applyStorageSettings(cfg *config.Config, s *settings) {
	if s.StorageBackend != "" {
		cfg.Storage.Backend = s.StorageBackend
	}
	if s.StorageBucket != "" {
		cfg.Storage.Bucket = s.StorageBucket
	}
	if s.StoragePrefix != "" {
		cfg.Storage.Prefix = s.StoragePrefix
	}
	if s.StorageRegion != "" {
		cfg.Storage.Region = s.StorageRegion
	}
	if s.StorageEndpoint != "" {
		cfg.Storage.Endpoint = s.StorageEndpoint
	}
	if s.LocalStoragePath != "" {
		cfg.Storage.LocalDir = s.LocalStoragePath
	}
}
