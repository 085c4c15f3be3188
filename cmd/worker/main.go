// worker periodically purges expired and long-retired sessions so the
// user_sessions table does not grow without bound.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/L1oneSs/AuthTemplate/internal/config"
	"github.com/L1oneSs/AuthTemplate/internal/db"
	"github.com/L1oneSs/AuthTemplate/internal/logging"
	sessionrepo "github.com/L1oneSs/AuthTemplate/internal/session/repository"
)

func main() {
	interval := flag.Duration("interval", time.Hour, "Time between purge runs")
	retention := flag.Duration("retention", 30*24*time.Hour, "How long retired sessions are kept")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Info("worker: shutting down")
		cancel()
	}()

	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()
	sessions := sessionrepo.NewPostgresRepository(pool)

	logger.Info("worker: purging stale sessions",
		zap.Duration("interval", *interval),
		zap.Duration("retention", *retention))

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		purgeCtx, purgeCancel := context.WithTimeout(ctx, time.Minute)
		n, err := sessions.PurgeStale(purgeCtx, time.Now().Add(-*retention))
		purgeCancel()
		if err != nil {
			logger.Error("worker: purge failed", zap.Error(err))
		} else if n > 0 {
			logger.Info("worker: purged sessions", zap.Int64("count", n))
		}

		select {
		case <-ctx.Done():
			logger.Info("worker: stopped")
			return
		case <-ticker.C:
		}
	}
}
