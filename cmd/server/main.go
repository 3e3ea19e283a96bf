/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the canteen ledger server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load config (.env, flags, environment)
  2. Build the zap logger
  3. Open the SQLite snapshot store
  4. Open the coordinator (seeds admin/tech on first start)
  5. Start the integrity scheduler
  6. Configure HTTP router and serve

CONFIGURATION (flag / env):
  -a                   RUN_ADDRESS          listen address (default :8080)
  -db                  DATABASE_PATH        SQLite path (default canteen.db)
                                            Use ":memory:" for in-memory database
  -log-level           LOG_LEVEL            debug, info, warn, error
  -adjustment-mode     ADJUSTMENT_MODE      reject or record
  -dedupe-import       DEDUPE_IMPORT_BATCH  skip repeated IDs within one import
  -integrity-interval  INTEGRITY_INTERVAL   balance check period, 0 disables
  -origins             ALLOWED_ORIGINS      CORS origins, comma separated
  -seed-admin-password SEED_ADMIN_PASSWORD  first-start admin password
  -seed-tech-password  SEED_TECH_PASSWORD   first-start tech password

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the integrity scheduler
  4. Close database connection
  5. Exit

SEE ALSO:
  - config/config.go: Configuration loading
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/canteen-ledger/api"
	"github.com/warp/canteen-ledger/config"
	"github.com/warp/canteen-ledger/coordinator"
	"github.com/warp/canteen-ledger/credentials"
	"github.com/warp/canteen-ledger/ledger"
	"github.com/warp/canteen-ledger/logger"
	"github.com/warp/canteen-ledger/store/sqlite"
	"go.uber.org/zap"
)

func main() {
	cfg := config.MustLoad()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	// Initialize store
	store, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	seed, err := credentials.SeedUsers(cfg.SeedAdminPassword, cfg.SeedTechPassword)
	if err != nil {
		return err
	}

	coord, err := coordinator.Open(context.Background(), store, ledger.NewEngine(cfg.EngineOptions()), seed, log.Named("coordinator"))
	if err != nil {
		return err
	}

	handler := api.NewHandler(coord, store, log)

	scheduler := api.NewIntegrityScheduler(coord, store, cfg.IntegrityInterval, log)
	handler.Scheduler = scheduler
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         cfg.RunAddress,
		Handler:      api.NewRouter(handler, cfg.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("addr", cfg.RunAddress),
			zap.String("db", cfg.DatabasePath),
			zap.String("adjustment_mode", cfg.AdjustmentMode),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case <-quit:
	}

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return err
	}

	log.Info("server stopped")
	return nil
}
