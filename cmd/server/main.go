// Command ecosort-server starts the EcoSort dashboard API server.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/ecosort/internal/collab"
	"github.com/and161185/ecosort/internal/limiter"
	"github.com/and161185/ecosort/internal/migrate"
	"github.com/and161185/ecosort/internal/model"
	"github.com/and161185/ecosort/internal/notify"
	"github.com/and161185/ecosort/internal/repository"
	"github.com/and161185/ecosort/internal/repository/badgerstore"
	"github.com/and161185/ecosort/internal/repository/postgres"
	"github.com/and161185/ecosort/internal/server/httpserver"
	"github.com/and161185/ecosort/internal/session"
	"github.com/and161185/ecosort/internal/store"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main parses configuration, prepares the chosen storage backend, and runs
// the HTTP server until interrupted.
func main() {
	// Flags
	addr := flag.String("addr", ":8080", "listen address")
	storage := flag.String("storage", "badger", "storage backend: badger or postgres")
	dsn := flag.String("dsn", "", "PostgreSQL DSN (storage=postgres)")
	dataDir := flag.String("data-dir", "./data", "Badger data directory (storage=badger)")
	jwtKey := flag.String("jwt-key", "", "HS256 signing key (required)")
	claimTTL := flag.Duration("claim-ttl", session.DefaultClaimTTL, "session claim TTL")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", *addr),
		zap.String("storage", *storage),
	)

	if *jwtKey == "" {
		logger.Fatal("missing jwt signing key (--jwt-key)")
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		identities repository.IdentityRepository
		classRepo  repository.RecordRepository[model.ClassificationRecord]
		reportRepo repository.RecordRepository[model.Report]
	)
	switch *storage {
	case "postgres":
		if *dsn == "" {
			logger.Fatal("missing dsn (--dsn)")
		}
		if err := migrate.Up(ctx, *dsn); err != nil {
			logger.Fatal("migrate up", zap.Error(err))
		}
		db, err := postgres.New(ctx, *dsn)
		if err != nil {
			logger.Fatal("postgres connect", zap.Error(err))
		}
		defer db.Close()
		identities = postgres.NewIdentityRepo(db)
		classRepo = postgres.NewClassificationRepo(db)
		reportRepo = postgres.NewReportRepo(db)
	case "badger":
		bs, err := badgerstore.Open(badgerstore.Config{Path: *dataDir, SyncWrites: true, Logger: logger})
		if err != nil {
			logger.Fatal("badger open", zap.Error(err))
		}
		defer func() { _ = bs.Close() }()
		identities = badgerstore.NewIdentities(bs)
		classRepo = badgerstore.NewRecords[model.ClassificationRecord](bs, "classification")
		reportRepo = badgerstore.NewRecords[model.Report](bs, "report")
	default:
		logger.Fatal("unknown storage backend", zap.String("storage", *storage))
	}

	lim := limiter.NewMemory(15*time.Minute, 5, 15*time.Minute)

	// Services
	sessions := session.NewService(identities, classRepo, reportRepo, []byte(*jwtKey), *claimTTL, lim)
	classStore := store.NewClassificationStore(classRepo, identities, collab.NewTableClassifier(), nil, logger)
	reportStore := store.NewReportStore(reportRepo, identities, collab.DocExporter{}, logger)

	app := httpserver.New(sessions, classStore, reportStore, notify.NewHub(), logger)
	srv := &http.Server{
		Addr:              *addr,
		Handler:           app.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", *addr))
		errCh <- srv.ListenAndServe()
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
