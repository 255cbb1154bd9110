package ecommerce

import (
	"context"
	"sort"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nosql-lab/redis-use-cases/pkg/datamodel"
)

func newTestStore(t *testing.T) (*Store, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client), client
}

func sortedMembers(t *testing.T, client *redis.Client, key string) []string {
	t.Helper()
	members, err := client.SMembers(context.Background(), key).Result()
	require.NoError(t, err)
	sort.Strings(members)
	return members
}

func TestCreateOrderDefaultsToCreatedStatus(t *testing.T) {
	store, client := newTestStore(t)
	testCtx := context.Background()

	require.NoError(t, store.CreateOrder(testCtx, datamodel.Order{ID: "o1", CustomerID: "c1"}))

	order, found, err := store.Order(testCtx, "o1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "created", order.Status)
	assert.Equal(t, "c1", order.CustomerID)

	assert.Equal(t, []string{"o1"}, sortedMembers(t, client, datamodel.OrderStatusKey("created")))
	assert.Equal(t, []string{"o1"}, sortedMembers(t, client, datamodel.KeyOrderAll))

	orders, err := store.CustomerOrders(testCtx, "c1", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"o1"}, orders)
}

func TestAddReviewUpdatesRankingAndDistribution(t *testing.T) {
	store, client := newTestStore(t)
	testCtx := context.Background()

	require.NoError(t, store.CreateOrder(testCtx, datamodel.Order{ID: "o1", CustomerID: "c1"}))
	require.NoError(t, store.AddReview(testCtx, "o1", datamodel.Review{Score: 5, Comment: "Great product!"}))
	require.NoError(t, store.CreateOrder(testCtx, datamodel.Order{ID: "o2", CustomerID: "c1"}))
	require.NoError(t, store.AddReview(testCtx, "o2", datamodel.Review{Score: 5}))
	require.NoError(t, store.CreateOrder(testCtx, datamodel.Order{ID: "o3", CustomerID: "c1"}))
	require.NoError(t, store.AddReview(testCtx, "o3", datamodel.Review{Score: 1, Comment: "Never arrived"}))

	review, err := store.OrderReview(testCtx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "5", review["score"])
	assert.Equal(t, "Great product!", review["comment"])

	score, err := client.ZScore(testCtx, datamodel.KeyReviewScores, "o1").Result()
	require.NoError(t, err)
	assert.Equal(t, float64(5), score)

	distribution, err := store.ReviewScoreDistribution(testCtx)
	require.NoError(t, err)
	assert.Equal(t, map[int]int64{5: 2, 1: 1}, distribution)

	avg, err := store.AverageReviewScore(testCtx)
	require.NoError(t, err)
	assert.InDelta(t, 11.0/3.0, avg, 1e-9)

	best, err := store.BestReviewedOrders(testCtx, 1)
	require.NoError(t, err)
	require.Len(t, best, 1)
	assert.Equal(t, float64(5), best[0].Score)

	worst, err := store.WorstReviewedOrders(testCtx, 1)
	require.NoError(t, err)
	require.Len(t, worst, 1)
	assert.Equal(t, "o3", worst[0].Member)
}

func TestUpdateOrderStatusMovesIndexEntry(t *testing.T) {
	store, client := newTestStore(t)
	testCtx := context.Background()

	require.NoError(t, store.CreateOrder(testCtx, datamodel.Order{ID: "o1", CustomerID: "c1"}))
	require.NoError(t, store.UpdateOrderStatus(testCtx, "o1", "shipped"))

	assert.Empty(t, sortedMembers(t, client, datamodel.OrderStatusKey("created")))
	assert.Equal(t, []string{"o1"}, sortedMembers(t, client, datamodel.OrderStatusKey("shipped")))

	order, _, err := store.Order(testCtx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "shipped", order.Status)
}

func TestDeleteOrderCleansEverything(t *testing.T) {
	store, client := newTestStore(t)
	testCtx := context.Background()

	require.NoError(t, store.CreateOrder(testCtx, datamodel.Order{ID: "o1", CustomerID: "c1"}))
	require.NoError(t, store.AddReview(testCtx, "o1", datamodel.Review{Score: 4}))
	require.NoError(t, client.LPush(testCtx, datamodel.OrderItemsKey("o1"), "p1").Err())
	require.NoError(t, client.LPush(testCtx, datamodel.OrderPaymentsKey("o1"), `{"type":"boleto"}`).Err())

	require.NoError(t, store.DeleteOrder(testCtx, "o1"))

	assert.Empty(t, sortedMembers(t, client, datamodel.KeyOrderAll))
	assert.Empty(t, sortedMembers(t, client, datamodel.OrderStatusKey("created")))

	exists, err := client.Exists(testCtx,
		datamodel.OrderKey("o1"),
		datamodel.OrderItemsKey("o1"),
		datamodel.OrderPaymentsKey("o1"),
		datamodel.OrderReviewKey("o1"),
	).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), exists)

	_, err = client.ZScore(testCtx, datamodel.KeyReviewScores, "o1").Result()
	assert.Equal(t, redis.Nil, err)

	orders, err := store.CustomerOrders(testCtx, "c1", 10)
	require.NoError(t, err)
	assert.Empty(t, orders)

	// Unknown order delete is a no-op.
	require.NoError(t, store.DeleteOrder(testCtx, "o1"))
}

func TestDeleteOrderUsesCurrentStatus(t *testing.T) {
	store, client := newTestStore(t)
	testCtx := context.Background()

	require.NoError(t, store.CreateOrder(testCtx, datamodel.Order{ID: "o1", CustomerID: "c1"}))
	require.NoError(t, store.UpdateOrderStatus(testCtx, "o1", "delivered"))
	require.NoError(t, store.DeleteOrder(testCtx, "o1"))

	assert.Empty(t, sortedMembers(t, client, datamodel.OrderStatusKey("delivered")))
	assert.Empty(t, sortedMembers(t, client, datamodel.OrderStatusKey("created")))
}

func TestProductRankings(t *testing.T) {
	store, client := newTestStore(t)
	testCtx := context.Background()

	require.NoError(t, client.ZAdd(testCtx, datamodel.KeyProductSales,
		&redis.Z{Score: 12, Member: "p1"}, &redis.Z{Score: 40, Member: "p2"}).Err())
	require.NoError(t, client.ZAdd(testCtx, datamodel.KeyProductRevenue,
		&redis.Z{Score: 99.5, Member: "p1"}, &redis.Z{Score: 20, Member: "p2"}).Err())
	require.NoError(t, client.ZAdd(testCtx, datamodel.KeyCategoryRevenue,
		&redis.Z{Score: 120, Member: "telefonia"}).Err())

	selling, err := store.TopSellingProducts(testCtx, 1)
	require.NoError(t, err)
	require.Len(t, selling, 1)
	assert.Equal(t, RankedEntry{Member: "p2", Score: 40}, selling[0])

	revenue, err := store.TopRevenueProducts(testCtx, 2)
	require.NoError(t, err)
	assert.Equal(t, "p1", revenue[0].Member)

	categories, err := store.TopCategories(testCtx, 5)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "telefonia", categories[0].Member)
}

func TestOrdersByStatusSkipsEmptySets(t *testing.T) {
	store, _ := newTestStore(t)
	testCtx := context.Background()

	require.NoError(t, store.CreateOrder(testCtx, datamodel.Order{ID: "o1", CustomerID: "c1", Status: "delivered"}))
	require.NoError(t, store.CreateOrder(testCtx, datamodel.Order{ID: "o2", CustomerID: "c1", Status: "delivered"}))
	require.NoError(t, store.CreateOrder(testCtx, datamodel.Order{ID: "o3", CustomerID: "c2", Status: "shipped"}))

	counts, err := store.OrdersByStatus(testCtx)
	require.NoError(t, err)
	assert.Equal(t, []StatusCount{
		{Status: "delivered", Count: 2},
		{Status: "shipped", Count: 1},
	}, counts)

	total, err := store.OrderCount(testCtx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestStateCountsSortedDescending(t *testing.T) {
	store, client := newTestStore(t)
	testCtx := context.Background()

	for i, state := range []string{"SP", "SP", "SP", "RJ", "MG", "MG"} {
		require.NoError(t, client.SAdd(testCtx, datamodel.StateCustomersKey(state), i).Err())
	}
	require.NoError(t, client.SAdd(testCtx, datamodel.StateSellersKey("PR"), "s1").Err())

	customers, err := store.CustomersByState(testCtx, 2)
	require.NoError(t, err)
	assert.Equal(t, []StateCount{{State: "SP", Count: 3}, {State: "MG", Count: 2}}, customers)

	sellers, err := store.SellersByState(testCtx, 10)
	require.NoError(t, err)
	assert.Equal(t, []StateCount{{State: "PR", Count: 1}}, sellers)
}

func TestFreightByStateAveragesSampledOrders(t *testing.T) {
	store, client := newTestStore(t)
	testCtx := context.Background()

	require.NoError(t, client.HSet(testCtx, datamodel.CustomerKey("c1"), "state", "SP").Err())
	require.NoError(t, client.HSet(testCtx, datamodel.CustomerKey("c2"), "state", "RJ").Err())

	orders := []struct {
		id       string
		customer string
		freight  string
	}{
		{"o1", "c1", "10.0"},
		{"o2", "c1", "20.0"},
		{"o3", "c2", "40.0"},
	}
	for _, order := range orders {
		require.NoError(t, client.HSet(testCtx, datamodel.OrderKey(order.id), map[string]interface{}{
			"customer_id":   order.customer,
			"freight_value": order.freight,
		}).Err())
		require.NoError(t, client.SAdd(testCtx, datamodel.KeyOrderAll, order.id).Err())
	}

	results, err := store.FreightByState(testCtx, 100)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, StateFreight{State: "RJ", Average: 40, Orders: 1}, results[0])
	assert.Equal(t, StateFreight{State: "SP", Average: 15, Orders: 2}, results[1])
}

func TestOrderPaymentsDecodeJSON(t *testing.T) {
	store, client := newTestStore(t)
	testCtx := context.Background()

	require.NoError(t, client.LPush(testCtx, datamodel.OrderPaymentsKey("o1"),
		`{"type":"credit_card","installments":"3","value":"129.90"}`).Err())

	payments, err := store.OrderPayments(testCtx, "o1")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, datamodel.Payment{Type: "credit_card", Installments: "3", Value: "129.90"}, payments[0])
}
