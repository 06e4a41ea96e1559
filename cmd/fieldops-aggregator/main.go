// Command fieldops-aggregator maintains the liquidation rollup tables. It
// either runs one aggregation pass and exits, or keeps recomputing rollups on
// a cron schedule.
package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/agroline/fieldops/pkg/liquidation"
	"github.com/agroline/fieldops/pkg/observability"
)

var (
	dbURL    = flag.String("db-url", getEnv("FIELDOPS_POSTGRES_URL", getEnv("DATABASE_URL", "postgres://localhost/fieldops?sslmode=disable")), "PostgreSQL connection URL")
	schedule = flag.String("schedule", getEnv("FIELDOPS_ROLLUP_SCHEDULE", "*/15 * * * *"), "Cron schedule for rollup recomputation")
	runOnce  = flag.Bool("run-once", false, "Run a single aggregation pass and exit")
	logLevel = flag.String("log-level", getEnv("FIELDOPS_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
)

func main() {
	flag.Parse()

	logger := observability.NewLogger(observability.ParseLevel(*logLevel), os.Stdout)

	db, err := sql.Open("postgres", *dbURL)
	if err != nil {
		logger.WithError(err).Error("Opening database failed")
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		logger.WithError(err).Error("Database ping failed")
		os.Exit(1)
	}

	if err := liquidation.NewStore(db).EnsureSchema(ctx); err != nil {
		logger.WithError(err).Error("Ensuring liquidation schema failed")
		os.Exit(1)
	}

	agg := liquidation.NewAggregator(db, logger)

	if *runOnce {
		if err := agg.RunOnce(ctx); err != nil {
			logger.WithError(err).Error("Aggregation pass failed")
			os.Exit(1)
		}
		logger.Info("Aggregation pass complete")
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(*schedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()
		if err := agg.RunOnce(runCtx); err != nil {
			logger.WithError(err).Error("Scheduled aggregation failed")
		}
	}); err != nil {
		logger.WithError(err).Errorf("Invalid schedule %q", *schedule)
		os.Exit(1)
	}
	c.Start()
	logger.Infof("Aggregator running on schedule %q", *schedule)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	stopCtx := c.Stop()
	<-stopCtx.Done()
	logger.Info("Aggregator stopped")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
