package main

import (
	"context"
	"fmt"

	"github.com/united-manufacturing-hub/umh-utils/env"
	"github.com/united-manufacturing-hub/umh-utils/logger"
	"go.uber.org/zap"

	"github.com/nosql-lab/redis-use-cases/internal"
	"github.com/nosql-lab/redis-use-cases/internal/overview"
)

func main() {
	InitLogging()
	internal.Initfgtrace()

	ctx := context.Background()
	rdb, err := internal.NewRedisClient(ctx)
	if err != nil {
		zap.S().Fatalf("Failed to connect to redis: %s", err)
	}
	dryRun, err := env.GetAsBool("DRY_RUN", false, false)
	if err != nil {
		zap.S().Fatalf("Failed to parse DRY_RUN: %s", err)
	}
	internal.InitCache(rdb, dryRun)

	comparison, err := overview.NewCollector(rdb).Collect(ctx)
	if err != nil {
		zap.S().Fatalf("Failed to collect comparison: %s", err)
	}
	printComparison(comparison)
}

func printComparison(comparison overview.Comparison) {
	imported := comparison.Imported()

	fmt.Println("==================================================")
	fmt.Println("Redis Use Cases - Dataset Overview")
	fmt.Println("==================================================")
	fmt.Printf("%-14s %-16s %10s   %-16s %10s\n", "Use Case", "Primary Entity", "Count", "Secondary", "Count")
	fmt.Println("--------------------------------------------------")

	printRow("movies", imported, "movies", comparison.Movies.Movies, "users", comparison.Movies.Users)
	printRow("iot", imported, "sensors", comparison.IoT.Sensors, "readings", comparison.IoT.Readings)
	printRow("social", imported, "posts", comparison.Social.Posts, "users", comparison.Social.Users)
	printRow("e-commerce", imported, "orders", comparison.Ecommerce.Orders, "customers", comparison.Ecommerce.Customers)

	fmt.Println("--------------------------------------------------")
	printDetails(comparison, imported)
}

func printRow(dataset string, imported map[string]bool, primary string, primaryCount int64, secondary string, secondaryCount int64) {
	if !imported[dataset] {
		fmt.Printf("%-14s No data imported\n", dataset)
		return
	}
	fmt.Printf("%-14s %-16s %10d   %-16s %10d\n", dataset, primary, primaryCount, secondary, secondaryCount)
}

func printDetails(comparison overview.Comparison, imported map[string]bool) {
	if imported["movies"] {
		fmt.Printf("\nMovies: %d rated, %d in popularity ranking\n",
			comparison.Movies.TopRated, comparison.Movies.Popular)
	}
	if imported["iot"] {
		fmt.Printf("IoT: %d readings, %d alerts\n",
			comparison.IoT.Readings, comparison.IoT.Alerts)
	}
	if imported["social"] {
		fmt.Printf("Social: %d hashtags, %d posts in trending ranking\n",
			comparison.Social.Hashtags, comparison.Social.TrendingPosts)
	}
	if imported["e-commerce"] {
		fmt.Printf("E-Commerce: %d products, %d sellers\n",
			comparison.Ecommerce.Products, comparison.Ecommerce.Sellers)
	}
}

func InitLogging() {
	logLevel, _ := env.GetAsString("LOGGING_LEVEL", false, "PRODUCTION") //nolint:errcheck
	_ = logger.New(logLevel)
}
