package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/united-manufacturing-hub/umh-utils/env"
	"github.com/united-manufacturing-hub/umh-utils/logger"
	"go.uber.org/zap"

	"github.com/nosql-lab/redis-use-cases/internal"
	"github.com/nosql-lab/redis-use-cases/internal/movies"
)

var (
	recordsImported = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "records_imported_total",
		Help: "Number of records imported, per file category",
	}, []string{"category"})
	recordsSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "records_skipped_total",
		Help: "Number of malformed or filtered records skipped, per file category",
	}, []string{"category"})
)

func main() {
	InitLogging()
	internal.Initfgtrace()
	InitPrometheus()

	ctx := context.Background()
	rdb, err := internal.NewRedisClient(ctx)
	if err != nil {
		zap.S().Fatalf("Failed to connect to redis: %s", err)
	}
	InitHealthCheck(rdb)

	shutdown := internal.NewGracefulShutdown(nil)

	dataPath, _ := env.GetAsString("DATA_PATH", false, "./data") //nolint:errcheck
	limit, _ := env.GetAsInt("IMPORT_LIMIT", false, 0)           //nolint:errcheck

	fmt.Println("==================================================")
	fmt.Println("Movies Use Case - Data Import")
	fmt.Println("==================================================")

	imp := movies.NewImporter(rdb, dataPath, limit, shutdown)
	steps := []struct {
		name     string
		category string
		run      func(context.Context) (uint64, uint64, error)
	}{
		{"Importing movie metadata", "metadata", imp.ImportMetadata},
		{"Importing credits", "credits", imp.ImportCredits},
		{"Importing ratings", "ratings", imp.ImportRatings},
		{"Importing keywords", "keywords", imp.ImportKeywords},
		{"Importing links", "links", imp.ImportLinks},
	}

	for i, step := range steps {
		if shutdown.ShuttingDown() {
			zap.S().Warnf("Shutdown requested, import stopped after %d of %d steps", i, len(steps))
			return
		}
		fmt.Printf("\nStep %d: %s...\n", i+1, step.name)
		imported, skipped, err := step.run(ctx)
		if err != nil {
			zap.S().Fatalf("%s failed: %s", step.name, err)
		}
		recordsImported.WithLabelValues(step.category).Add(float64(imported))
		recordsSkipped.WithLabelValues(step.category).Add(float64(skipped))
		fmt.Printf("  -> %d %s records imported, %d skipped.\n", imported, step.category, skipped)
	}

	fmt.Println("\n==================================================")
	fmt.Println("Import finished successfully!")
	fmt.Println("==================================================")
}

func InitLogging() {
	logLevel, _ := env.GetAsString("LOGGING_LEVEL", false, "PRODUCTION") //nolint:errcheck
	_ = logger.New(logLevel)
}

func InitPrometheus() {
	prometheus.MustRegister(recordsImported, recordsSkipped)

	metricsPath := "/metrics"
	metricsPort := ":2112"
	zap.S().Debugf("Setting up metrics %s %v", metricsPath, metricsPort)

	http.Handle(metricsPath, promhttp.Handler())
	go func() {
		/* #nosec G114 */
		err := http.ListenAndServe(metricsPort, nil)
		if err != nil {
			zap.S().Errorf("Error starting metrics: %s", err)
		}
	}()
}

func InitHealthCheck(rdb *redis.Client) {
	zap.S().Debugf("Setting up healthcheck")

	health := healthcheck.NewHandler()
	health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(1000000))
	health.AddReadinessCheck("redis", internal.RedisPingCheck(rdb))
	health.AddLivenessCheck("redis", internal.RedisPingCheck(rdb))
	go func() {
		/* #nosec G114 */
		err := http.ListenAndServe("0.0.0.0:8086", health)
		if err != nil {
			zap.S().Errorf("Error starting healthcheck: %s", err)
		}
	}()
}
