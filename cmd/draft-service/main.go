// cmd/draft-service/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"draft-engine/internal/common/aws"
	"draft-engine/internal/common/config"
	"draft-engine/internal/common/database"
	"draft-engine/internal/common/logger"
	"draft-engine/internal/common/observability"
	"draft-engine/internal/draftstore"
	"draft-engine/internal/engine"
	"draft-engine/internal/mailbox"
	"draft-engine/internal/resolver"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting draft service...",
		zap.String("environment", cfg.App.Environment),
		zap.String("bucket", cfg.Storage.Bucket),
	)

	obs := observability.New("draft-service")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init object storage presigner ---
	s3Client, err := aws.NewS3Client(ctx, cfg.Storage.Region)
	if err != nil {
		zapLog.Fatal("s3 client failed", zap.Error(err))
	}

	// Engine wiring: screens consume the engine through the session and
	// collection APIs.
	summaries := draftstore.NewPostgresSummaryIndex(pg.GetDB())
	store := draftstore.NewRedisStore(rdb.GetClient(), summaries, log)
	res := resolver.NewS3Resolver(s3Client, cfg.Storage.SignedURLTTL)
	handoffs := mailbox.New(rdb.GetClient(), cfg.Engine.HandoffTTL)
	eng := engine.New(cfg.Engine, cfg.Storage.Bucket, store, res, handoffs, log)

	// --- Ops HTTP listener: metrics, pprof, health ---
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := rdb.Ping(checkCtx); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
		if err := pg.Ping(checkCtx); err != nil {
			http.Error(w, "postgres unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	// Operator-only view of a user's drafts; the product list screen goes
	// through the collection API directly.
	mux.HandleFunc("/debug/drafts", func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("user")
		if userID == "" {
			http.Error(w, "user query parameter required", http.StatusBadRequest)
			return
		}
		summaries, err := eng.Collection().List(r.Context(), userID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(summaries)
	})

	srv := &http.Server{Addr: cfg.Server.MetricsAddress, Handler: mux}
	go func() {
		zapLog.Info("ops listener started", zap.String("address", cfg.Server.MetricsAddress))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("ops listener failed", zap.Error(err))
		}
	}()

	// --- Wait for shutdown signal ---
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	zapLog.Info("Shutting down draft service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Warn("ops listener shutdown failed", zap.Error(err))
	}
}
