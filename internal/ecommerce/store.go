package ecommerce

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/nosql-lab/redis-use-cases/pkg/datamodel"
)

// Store owns every mutation of the e-commerce data model. Orders carry
// the heaviest index surface (customer list, status set, review
// ranking); each write method computes the complete delta and applies
// it as one pipeline.
type Store struct {
	rdb *redis.Client
	mu  sync.Mutex
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// RankedEntry is one entry of a revenue, sales or review ranking.
type RankedEntry struct {
	Member string
	Score  float64
}

// StatusCount is the number of orders in one status set.
type StatusCount struct {
	Status string
	Count  int64
}

// StateCount is the number of customers or sellers in one state.
type StateCount struct {
	State string
	Count int64
}

// StateFreight is the sampled freight average of one customer state.
type StateFreight struct {
	State   string
	Average float64
	Orders  int
}

// CreateOrder writes a fresh order with its customer link and status
// index membership in one batch.
func (s *Store) CreateOrder(ctx context.Context, order datamodel.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.Status == "" {
		order.Status = "created"
	}
	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, datamodel.OrderKey(order.ID), order.HashFields())
		pipe.LPush(ctx, datamodel.CustomerOrdersKey(order.CustomerID), order.ID)
		pipe.SAdd(ctx, datamodel.OrderStatusKey(order.Status), order.ID)
		pipe.SAdd(ctx, datamodel.KeyOrderAll, order.ID)
		return nil
	})
	if err == nil {
		zap.S().Debugf("Created order %s for customer %s", order.ID, order.CustomerID)
	}
	return err
}

// AddReview attaches a review to an order and mirrors the score into
// the review ranking and the score distribution.
func (s *Store) AddReview(ctx context.Context, orderID string, review datamodel.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, datamodel.OrderReviewKey(orderID), review.HashFields())
		pipe.ZAdd(ctx, datamodel.KeyReviewScores, &redis.Z{Score: float64(review.Score), Member: orderID})
		pipe.ZIncrBy(ctx, datamodel.KeyReviewScoreDistribution, 1, strconv.Itoa(review.Score))
		return nil
	})
	return err
}

// Order reads the order hash. found is false for unknown orders.
func (s *Store) Order(ctx context.Context, orderID string) (order datamodel.Order, found bool, err error) {
	fields, err := s.rdb.HGetAll(ctx, datamodel.OrderKey(orderID)).Result()
	if err != nil {
		return datamodel.Order{}, false, err
	}
	if len(fields) == 0 {
		return datamodel.Order{}, false, nil
	}
	return datamodel.OrderFromHash(orderID, fields), true, nil
}

// Customer reads the raw customer hash.
func (s *Store) Customer(ctx context.Context, customerID string) (map[string]string, error) {
	return s.rdb.HGetAll(ctx, datamodel.CustomerKey(customerID)).Result()
}

// Product reads the raw product hash.
func (s *Store) Product(ctx context.Context, productID string) (map[string]string, error) {
	return s.rdb.HGetAll(ctx, datamodel.ProductKey(productID)).Result()
}

// CustomerOrders returns the newest order ids of a customer.
func (s *Store) CustomerOrders(ctx context.Context, customerID string, limit int64) ([]string, error) {
	return s.rdb.LRange(ctx, datamodel.CustomerOrdersKey(customerID), 0, limit-1).Result()
}

// OrderReview reads the raw review hash of an order.
func (s *Store) OrderReview(ctx context.Context, orderID string) (map[string]string, error) {
	return s.rdb.HGetAll(ctx, datamodel.OrderReviewKey(orderID)).Result()
}

// OrderPayments decodes the JSON payment entries of an order.
func (s *Store) OrderPayments(ctx context.Context, orderID string) ([]datamodel.Payment, error) {
	raw, err := s.rdb.LRange(ctx, datamodel.OrderPaymentsKey(orderID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	payments := make([]datamodel.Payment, 0, len(raw))
	for _, entry := range raw {
		var payment datamodel.Payment
		if err := json.Unmarshal([]byte(entry), &payment); err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, nil
}

// Geolocation reads the raw geo hash of a zip code prefix.
func (s *Store) Geolocation(ctx context.Context, zip string) (map[string]string, error) {
	return s.rdb.HGetAll(ctx, datamodel.GeoKey(zip)).Result()
}

// UpdateOrderStatus moves the order between status index sets and
// rewrites the hash field, in one batch.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID, newStatus string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldStatus, err := s.rdb.HGet(ctx, datamodel.OrderKey(orderID), "status").Result()
	if err != nil && err != redis.Nil {
		return err
	}

	_, err = s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		if oldStatus != "" {
			pipe.SRem(ctx, datamodel.OrderStatusKey(oldStatus), orderID)
		}
		pipe.HSet(ctx, datamodel.OrderKey(orderID), "status", newStatus)
		pipe.SAdd(ctx, datamodel.OrderStatusKey(newStatus), orderID)
		return nil
	})
	if err == nil {
		zap.S().Debugf("Order %s moved to status %s", orderID, newStatus)
	}
	return err
}

// DeleteOrder removes an order with its items, payments and review. The
// customer link and the status index are re-derived from the currently
// stored hash fields.
func (s *Store) DeleteOrder(ctx context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, found, err := s.Order(ctx, orderID)
	if err != nil {
		return err
	}
	if !found {
		zap.S().Debugf("Order %s not found, nothing to delete", orderID)
		return nil
	}

	_, err = s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		if order.CustomerID != "" {
			pipe.LRem(ctx, datamodel.CustomerOrdersKey(order.CustomerID), 0, orderID)
		}
		if order.Status != "" {
			pipe.SRem(ctx, datamodel.OrderStatusKey(order.Status), orderID)
		}
		pipe.SRem(ctx, datamodel.KeyOrderAll, orderID)
		pipe.ZRem(ctx, datamodel.KeyReviewScores, orderID)
		pipe.Del(ctx,
			datamodel.OrderKey(orderID),
			datamodel.OrderItemsKey(orderID),
			datamodel.OrderPaymentsKey(orderID),
			datamodel.OrderReviewKey(orderID),
		)
		return nil
	})
	if err == nil {
		zap.S().Debugf("Deleted order %s and all associated data", orderID)
	}
	return err
}

// TopSellingProducts returns the products with the most units sold.
func (s *Store) TopSellingProducts(ctx context.Context, n int64) ([]RankedEntry, error) {
	return s.rankedEntries(ctx, datamodel.KeyProductSales, n)
}

// TopRevenueProducts returns the products with the highest revenue.
func (s *Store) TopRevenueProducts(ctx context.Context, n int64) ([]RankedEntry, error) {
	return s.rankedEntries(ctx, datamodel.KeyProductRevenue, n)
}

// TopCategories returns the categories with the highest revenue.
func (s *Store) TopCategories(ctx context.Context, n int64) ([]RankedEntry, error) {
	return s.rankedEntries(ctx, datamodel.KeyCategoryRevenue, n)
}

func (s *Store) rankedEntries(ctx context.Context, key string, n int64) ([]RankedEntry, error) {
	entries, err := s.rdb.ZRevRangeWithScores(ctx, key, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	ranked := make([]RankedEntry, 0, len(entries))
	for _, entry := range entries {
		member, _ := entry.Member.(string)
		ranked = append(ranked, RankedEntry{Member: member, Score: entry.Score})
	}
	return ranked, nil
}

// Order statuses of the dataset, probed by the status statistics.
var knownStatuses = []string{
	"delivered", "shipped", "processing", "canceled",
	"unavailable", "invoiced", "created", "approved",
}

// OrdersByStatus returns the order count per known status, empty
// statuses omitted.
func (s *Store) OrdersByStatus(ctx context.Context) ([]StatusCount, error) {
	counts := make([]StatusCount, 0, len(knownStatuses))
	for _, status := range knownStatuses {
		count, err := s.rdb.SCard(ctx, datamodel.OrderStatusKey(status)).Result()
		if err != nil {
			return nil, err
		}
		if count > 0 {
			counts = append(counts, StatusCount{Status: status, Count: count})
		}
	}
	return counts, nil
}

func (s *Store) OrderCount(ctx context.Context) (int64, error) {
	return s.rdb.SCard(ctx, datamodel.KeyOrderAll).Result()
}

func (s *Store) CustomerCount(ctx context.Context) (int64, error) {
	return s.rdb.SCard(ctx, datamodel.KeyCustomerAll).Result()
}

func (s *Store) ProductCount(ctx context.Context) (int64, error) {
	return s.rdb.SCard(ctx, datamodel.KeyProductAll).Result()
}

func (s *Store) SellerCount(ctx context.Context) (int64, error) {
	return s.rdb.SCard(ctx, datamodel.KeySellerAll).Result()
}

// ReviewScoreDistribution returns the review count per score, ordered
// by score ascending.
func (s *Store) ReviewScoreDistribution(ctx context.Context) (map[int]int64, error) {
	entries, err := s.rdb.ZRangeWithScores(ctx, datamodel.KeyReviewScoreDistribution, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	distribution := make(map[int]int64, len(entries))
	for _, entry := range entries {
		member, _ := entry.Member.(string)
		score, convErr := strconv.Atoi(member)
		if convErr != nil {
			continue
		}
		distribution[score] = int64(entry.Score)
	}
	return distribution, nil
}

// AverageReviewScore derives the overall average from the score
// distribution.
func (s *Store) AverageReviewScore(ctx context.Context) (float64, error) {
	distribution, err := s.ReviewScoreDistribution(ctx)
	if err != nil {
		return 0, err
	}
	var totalScore, totalCount int64
	for score, count := range distribution {
		totalScore += int64(score) * count
		totalCount += count
	}
	if totalCount == 0 {
		return 0, nil
	}
	return float64(totalScore) / float64(totalCount), nil
}

// BestReviewedOrders returns the orders with the highest review scores.
func (s *Store) BestReviewedOrders(ctx context.Context, n int64) ([]RankedEntry, error) {
	return s.rankedEntries(ctx, datamodel.KeyReviewScores, n)
}

// WorstReviewedOrders returns the orders with the lowest review scores.
func (s *Store) WorstReviewedOrders(ctx context.Context, n int64) ([]RankedEntry, error) {
	entries, err := s.rdb.ZRangeWithScores(ctx, datamodel.KeyReviewScores, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	ranked := make([]RankedEntry, 0, len(entries))
	for _, entry := range entries {
		member, _ := entry.Member.(string)
		ranked = append(ranked, RankedEntry{Member: member, Score: entry.Score})
	}
	return ranked, nil
}

// Brazilian federal states of the dataset, probed by the geographic
// statistics.
var brazilianStates = []string{
	"SP", "RJ", "MG", "RS", "PR", "SC", "BA", "DF", "GO", "ES",
	"PE", "CE", "PA", "MT", "MA", "MS", "PB", "RN", "PI", "AL",
	"SE", "RO", "TO", "AC", "AP", "AM", "RR",
}

// CustomersByState returns the top states by customer count.
func (s *Store) CustomersByState(ctx context.Context, n int) ([]StateCount, error) {
	return s.stateCounts(ctx, datamodel.StateCustomersKey, n)
}

// SellersByState returns the top states by seller count.
func (s *Store) SellersByState(ctx context.Context, n int) ([]StateCount, error) {
	return s.stateCounts(ctx, datamodel.StateSellersKey, n)
}

func (s *Store) stateCounts(ctx context.Context, key func(string) string, n int) ([]StateCount, error) {
	counts := make([]StateCount, 0, len(brazilianStates))
	for _, state := range brazilianStates {
		count, err := s.rdb.SCard(ctx, key(state)).Result()
		if err != nil {
			return nil, err
		}
		if count > 0 {
			counts = append(counts, StateCount{State: state, Count: count})
		}
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].State < counts[j].State
	})
	if n > 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts, nil
}

// FreightByState samples orders and averages their freight value per
// customer state, highest average first.
func (s *Store) FreightByState(ctx context.Context, sampleSize int64) ([]StateFreight, error) {
	orderIDs, err := s.rdb.SRandMemberN(ctx, datamodel.KeyOrderAll, sampleSize).Result()
	if err != nil {
		return nil, err
	}

	stateFreights := make(map[string][]float64)
	for _, orderID := range orderIDs {
		fields, err := s.rdb.HGetAll(ctx, datamodel.OrderKey(orderID)).Result()
		if err != nil {
			return nil, err
		}
		customerID := fields["customer_id"]
		if customerID == "" {
			continue
		}
		freight, _ := strconv.ParseFloat(fields["freight_value"], 64)

		state, err := s.rdb.HGet(ctx, datamodel.CustomerKey(customerID), "state").Result()
		if err == redis.Nil || state == "" {
			continue
		}
		if err != nil {
			return nil, err
		}
		stateFreights[state] = append(stateFreights[state], freight)
	}

	results := make([]StateFreight, 0, len(stateFreights))
	for state, freights := range stateFreights {
		results = append(results, StateFreight{
			State:   state,
			Average: stat.Mean(freights, nil),
			Orders:  len(freights),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Average != results[j].Average {
			return results[i].Average > results[j].Average
		}
		return results[i].State < results[j].State
	})
	return results, nil
}
