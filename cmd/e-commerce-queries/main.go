package main

import (
	"context"
	"fmt"

	"github.com/united-manufacturing-hub/umh-utils/env"
	"github.com/united-manufacturing-hub/umh-utils/logger"
	"go.uber.org/zap"

	"github.com/nosql-lab/redis-use-cases/internal"
	"github.com/nosql-lab/redis-use-cases/internal/ecommerce"
	"github.com/nosql-lab/redis-use-cases/pkg/datamodel"
)

func main() {
	InitLogging()
	internal.Initfgtrace()

	ctx := context.Background()
	rdb, err := internal.NewRedisClient(ctx)
	if err != nil {
		zap.S().Fatalf("Failed to connect to redis: %s", err)
	}
	store := ecommerce.NewStore(rdb)

	fmt.Println("==================================================")
	fmt.Println("E-Commerce Use Case - Queries Demo")
	fmt.Println("==================================================")

	runStatistics(ctx, store)
	runProductRankings(ctx, store)
	runReviews(ctx, store)
	runGeography(ctx, store)
	runCRUDDemo(ctx, store)
}

func runStatistics(ctx context.Context, store *ecommerce.Store) {
	orderCount, err := store.OrderCount(ctx)
	fatalOn(err)
	customerCount, err := store.CustomerCount(ctx)
	fatalOn(err)
	productCount, err := store.ProductCount(ctx)
	fatalOn(err)
	sellerCount, err := store.SellerCount(ctx)
	fatalOn(err)
	fmt.Printf("\nTotal orders: %d\n", orderCount)
	fmt.Printf("Total customers: %d\n", customerCount)
	fmt.Printf("Total products: %d\n", productCount)
	fmt.Printf("Total sellers: %d\n", sellerCount)

	statuses, err := store.OrdersByStatus(ctx)
	fatalOn(err)
	fmt.Println("\nOrders per status:")
	for _, status := range statuses {
		fmt.Printf("  %-12s %8d orders\n", status.Status, status.Count)
	}
}

func runProductRankings(ctx context.Context, store *ecommerce.Store) {
	selling, err := store.TopSellingProducts(ctx, 5)
	fatalOn(err)
	fmt.Println("\nTop 5 products by units sold:")
	for _, product := range selling {
		fmt.Printf("  %s: %.0f units\n", product.Member, product.Score)
	}

	revenue, err := store.TopRevenueProducts(ctx, 5)
	fatalOn(err)
	fmt.Println("\nTop 5 products by revenue:")
	for _, product := range revenue {
		fmt.Printf("  %s: R$ %.2f\n", product.Member, product.Score)
	}

	categories, err := store.TopCategories(ctx, 5)
	fatalOn(err)
	fmt.Println("\nTop 5 categories by revenue:")
	for _, category := range categories {
		fmt.Printf("  %-30s R$ %.2f\n", category.Member, category.Score)
	}
}

func runReviews(ctx context.Context, store *ecommerce.Store) {
	distribution, err := store.ReviewScoreDistribution(ctx)
	fatalOn(err)
	fmt.Println("\nReview score distribution:")
	for score := 1; score <= 5; score++ {
		fmt.Printf("  %d stars: %d reviews\n", score, distribution[score])
	}

	average, err := store.AverageReviewScore(ctx)
	fatalOn(err)
	fmt.Printf("Average review score: %.2f\n", average)
}

func runGeography(ctx context.Context, store *ecommerce.Store) {
	customers, err := store.CustomersByState(ctx, 5)
	fatalOn(err)
	fmt.Println("\nTop 5 states by customers:")
	for _, state := range customers {
		fmt.Printf("  %s: %d customers\n", state.State, state.Count)
	}

	sellers, err := store.SellersByState(ctx, 5)
	fatalOn(err)
	fmt.Println("\nTop 5 states by sellers:")
	for _, state := range sellers {
		fmt.Printf("  %s: %d sellers\n", state.State, state.Count)
	}

	freight, err := store.FreightByState(ctx, 500)
	fatalOn(err)
	fmt.Println("\nAverage freight per state (sampled):")
	for _, state := range freight {
		fmt.Printf("  %s: R$ %.2f over %d orders\n", state.State, state.Average, state.Orders)
	}
}

func runCRUDDemo(ctx context.Context, store *ecommerce.Store) {
	fmt.Println("\n--------------------------------------------------")
	fmt.Println("CRUD Demo")
	fmt.Println("--------------------------------------------------")

	fatalOn(store.CreateOrder(ctx, datamodel.Order{
		ID:         "test123",
		CustomerID: "test_customer",
		PurchaseTs: "2024-01-01 12:00:00",
	}))
	order, _, err := store.Order(ctx, "test123")
	fatalOn(err)
	fmt.Printf("Order test123: status %s, customer %s\n", order.Status, order.CustomerID)

	fatalOn(store.AddReview(ctx, "test123", datamodel.Review{
		Score:   5,
		Comment: "Great product!",
	}))
	review, err := store.OrderReview(ctx, "test123")
	fatalOn(err)
	fmt.Printf("Review: %s stars, %q\n", review["score"], review["comment"])

	fatalOn(store.UpdateOrderStatus(ctx, "test123", "shipped"))
	order, _, err = store.Order(ctx, "test123")
	fatalOn(err)
	fmt.Printf("After update: status %s\n", order.Status)

	fatalOn(store.DeleteOrder(ctx, "test123"))
	_, found, err := store.Order(ctx, "test123")
	fatalOn(err)
	fmt.Printf("After delete, order found: %t\n", found)
}

func fatalOn(err error) {
	if err != nil {
		zap.S().Fatalf("Query failed: %s", err)
	}
}

func InitLogging() {
	logLevel, _ := env.GetAsString("LOGGING_LEVEL", false, "PRODUCTION") //nolint:errcheck
	_ = logger.New(logLevel)
}
