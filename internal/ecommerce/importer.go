package ecommerce

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/coocood/freecache"
	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/nosql-lab/redis-use-cases/internal"
	"github.com/nosql-lab/redis-use-cases/pkg/datamodel"
)

const (
	// The order items pass resolves the category of every sold product.
	// Sales are heavily skewed, a small ARC cache covers most lookups.
	categoryCacheSize = 20000

	// The geolocation file repeats each zip prefix hundreds of times,
	// only the first occurrence is kept.
	zipCacheSizeBytes = 16 * 1024 * 1024
)

// Importer bulk loads the Olist e-commerce dataset, one file per Import
// method. The order items, payments and reviews passes aggregate their
// rankings in memory and flush them as a final pipeline stage.
type Importer struct {
	rdb      *redis.Client
	dataPath string
	limit    int
	shutdown internal.GracefulShutdownHandler
}

func NewImporter(rdb *redis.Client, dataPath string, limit int, shutdown internal.GracefulShutdownHandler) *Importer {
	return &Importer{rdb: rdb, dataPath: dataPath, limit: limit, shutdown: shutdown}
}

func (imp *Importer) reachedLimit(imported uint64) bool {
	return imp.limit > 0 && imported >= uint64(imp.limit)
}

func (imp *Importer) aborted() bool {
	return imp.shutdown != nil && imp.shutdown.ShuttingDown()
}

// ImportCustomers loads olist_customers_dataset.csv: the customer
// hashes and the per-state index.
func (imp *Importer) ImportCustomers(ctx context.Context) (imported, skipped uint64, err error) {
	path := filepath.Join(imp.dataPath, "olist_customers_dataset.csv")
	reader, err := internal.OpenCSV(path)
	if os.IsNotExist(err) {
		zap.S().Infof("%s not found, generating synthetic customers", path)
		return imp.importSampleCustomers(ctx)
	}
	if err != nil {
		return 0, 0, err
	}
	defer reader.Close()

	batch := internal.NewPipelineBatcher(imp.rdb, 0)
	for {
		row, ok := reader.Next()
		if !ok || imp.reachedLimit(imported) || imp.aborted() {
			break
		}

		customer := datamodel.Customer{
			ID:    row.Get("customer_id"),
			Zip:   row.Get("customer_zip_code_prefix"),
			City:  row.Get("customer_city"),
			State: row.Get("customer_state"),
		}
		if customer.ID == "" {
			skipped++
			continue
		}
		queueCustomer(ctx, batch.Pipe(), customer)
		imported++

		if err = batch.MaybeFlush(ctx); err != nil {
			return imported, skipped, err
		}
	}
	if err = reader.Err(); err != nil {
		return imported, skipped, err
	}
	if err = batch.Flush(ctx); err != nil {
		return imported, skipped, err
	}
	return imported, skipped + reader.Skipped(), nil
}

func queueCustomer(ctx context.Context, pipe redis.Pipeliner, customer datamodel.Customer) {
	pipe.HSet(ctx, datamodel.CustomerKey(customer.ID), customer.HashFields())
	pipe.SAdd(ctx, datamodel.StateCustomersKey(customer.State), customer.ID)
	pipe.SAdd(ctx, datamodel.KeyCustomerAll, customer.ID)
}

// ImportOrders loads olist_orders_dataset.csv: the order hashes, the
// customer order lists and the status index.
func (imp *Importer) ImportOrders(ctx context.Context) (imported, skipped uint64, err error) {
	path := filepath.Join(imp.dataPath, "olist_orders_dataset.csv")
	reader, err := internal.OpenCSV(path)
	if os.IsNotExist(err) {
		zap.S().Infof("%s not found, generating synthetic orders", path)
		return imp.importSampleOrders(ctx)
	}
	if err != nil {
		return 0, 0, err
	}
	defer reader.Close()

	batch := internal.NewPipelineBatcher(imp.rdb, 0)
	for {
		row, ok := reader.Next()
		if !ok || imp.reachedLimit(imported) || imp.aborted() {
			break
		}

		order := datamodel.Order{
			ID:                row.Get("order_id"),
			CustomerID:        row.Get("customer_id"),
			Status:            row.Get("order_status"),
			PurchaseTs:        row.Get("order_purchase_timestamp"),
			ApprovedTs:        row.Get("order_approved_at"),
			DeliveredCarrier:  row.Get("order_delivered_carrier_date"),
			DeliveredCustomer: row.Get("order_delivered_customer_date"),
			EstimatedDelivery: row.Get("order_estimated_delivery_date"),
		}
		if order.ID == "" || order.CustomerID == "" {
			skipped++
			continue
		}
		queueOrder(ctx, batch.Pipe(), order)
		imported++

		if imported%10000 == 0 {
			fmt.Printf("  -> %d orders imported...\n", imported)
		}
		if err = batch.MaybeFlush(ctx); err != nil {
			return imported, skipped, err
		}
	}
	if err = reader.Err(); err != nil {
		return imported, skipped, err
	}
	if err = batch.Flush(ctx); err != nil {
		return imported, skipped, err
	}
	return imported, skipped + reader.Skipped(), nil
}

func queueOrder(ctx context.Context, pipe redis.Pipeliner, order datamodel.Order) {
	pipe.HSet(ctx, datamodel.OrderKey(order.ID), order.HashFields())
	pipe.LPush(ctx, datamodel.CustomerOrdersKey(order.CustomerID), order.ID)
	pipe.SAdd(ctx, datamodel.OrderStatusKey(order.Status), order.ID)
	pipe.SAdd(ctx, datamodel.KeyOrderAll, order.ID)
}

// ImportProducts loads olist_products_dataset.csv: the product hashes
// and the category index. Products without a category fall into the
// "unknown" bucket.
func (imp *Importer) ImportProducts(ctx context.Context) (imported, skipped uint64, err error) {
	path := filepath.Join(imp.dataPath, "olist_products_dataset.csv")
	reader, err := internal.OpenCSV(path)
	if os.IsNotExist(err) {
		zap.S().Infof("%s not found, generating synthetic products", path)
		return imp.importSampleProducts(ctx)
	}
	if err != nil {
		return 0, 0, err
	}
	defer reader.Close()

	batch := internal.NewPipelineBatcher(imp.rdb, 0)
	for {
		row, ok := reader.Next()
		if !ok || imp.reachedLimit(imported) || imp.aborted() {
			break
		}

		product := datamodel.Product{
			ID:       row.Get("product_id"),
			Category: row.Get("product_category_name"),
			Weight:   row.Get("product_weight_g"),
			Length:   row.Get("product_length_cm"),
			Height:   row.Get("product_height_cm"),
			Width:    row.Get("product_width_cm"),
		}
		if product.ID == "" {
			skipped++
			continue
		}
		if product.Category == "" {
			product.Category = "unknown"
		}
		queueProduct(ctx, batch.Pipe(), product)
		imported++

		if err = batch.MaybeFlush(ctx); err != nil {
			return imported, skipped, err
		}
	}
	if err = reader.Err(); err != nil {
		return imported, skipped, err
	}
	if err = batch.Flush(ctx); err != nil {
		return imported, skipped, err
	}
	return imported, skipped + reader.Skipped(), nil
}

func queueProduct(ctx context.Context, pipe redis.Pipeliner, product datamodel.Product) {
	pipe.HSet(ctx, datamodel.ProductKey(product.ID), product.HashFields())
	pipe.SAdd(ctx, datamodel.CategoryProductsKey(product.Category), product.ID)
	pipe.SAdd(ctx, datamodel.KeyProductAll, product.ID)
}

// itemAggregates carries the in-memory sales, revenue and category
// totals of the order items pass.
type itemAggregates struct {
	productSales    map[string]int
	productRevenue  map[string]float64
	categoryRevenue map[string]float64
}

func newItemAggregates() *itemAggregates {
	return &itemAggregates{
		productSales:    make(map[string]int),
		productRevenue:  make(map[string]float64),
		categoryRevenue: make(map[string]float64),
	}
}

func (agg *itemAggregates) track(productID, category string, price float64) {
	agg.productSales[productID]++
	agg.productRevenue[productID] += price
	agg.categoryRevenue[category] += price
}

func (agg *itemAggregates) flush(ctx context.Context, batch *internal.PipelineBatcher) error {
	zap.S().Infof("Updating rankings for %d products and %d categories",
		len(agg.productSales), len(agg.categoryRevenue))
	for productID, sales := range agg.productSales {
		batch.Pipe().ZAdd(ctx, datamodel.KeyProductSales, &redis.Z{Score: float64(sales), Member: productID})
		batch.Pipe().ZAdd(ctx, datamodel.KeyProductRevenue, &redis.Z{Score: agg.productRevenue[productID], Member: productID})
		if err := batch.MaybeFlush(ctx); err != nil {
			return err
		}
	}
	for category, revenue := range agg.categoryRevenue {
		batch.Pipe().ZAdd(ctx, datamodel.KeyCategoryRevenue, &redis.Z{Score: revenue, Member: category})
		if err := batch.MaybeFlush(ctx); err != nil {
			return err
		}
	}
	return batch.Flush(ctx)
}

// categoryResolver answers product to category lookups against the
// already imported product hashes, fronted by an ARC cache.
type categoryResolver struct {
	rdb   *redis.Client
	cache *lru.ARCCache
}

func newCategoryResolver(rdb *redis.Client) (*categoryResolver, error) {
	cache, err := lru.NewARC(categoryCacheSize)
	if err != nil {
		return nil, err
	}
	return &categoryResolver{rdb: rdb, cache: cache}, nil
}

func (c *categoryResolver) resolve(ctx context.Context, productID string) (string, error) {
	if cached, ok := c.cache.Get(productID); ok {
		return cached.(string), nil
	}
	category, err := c.rdb.HGet(ctx, datamodel.ProductKey(productID), "category").Result()
	if err == redis.Nil || category == "" {
		category = "unknown"
	} else if err != nil {
		return "", err
	}
	c.cache.Add(productID, category)
	return category, nil
}

// ImportOrderItems loads olist_order_items_dataset.csv: the item lists,
// the product prices, the freight and seller fields of the orders and
// the sales and revenue rankings. Run after ImportProducts, the
// category totals resolve against the stored product hashes.
func (imp *Importer) ImportOrderItems(ctx context.Context) (imported, skipped uint64, err error) {
	path := filepath.Join(imp.dataPath, "olist_order_items_dataset.csv")
	reader, err := internal.OpenCSV(path)
	if os.IsNotExist(err) {
		zap.S().Infof("%s not found, generating synthetic order items", path)
		return imp.importSampleOrderItems(ctx)
	}
	if err != nil {
		return 0, 0, err
	}
	defer reader.Close()

	resolver, err := newCategoryResolver(imp.rdb)
	if err != nil {
		return 0, 0, err
	}
	batch := internal.NewPipelineBatcher(imp.rdb, 0)
	agg := newItemAggregates()
	for {
		row, ok := reader.Next()
		if !ok || imp.reachedLimit(imported) || imp.aborted() {
			break
		}

		orderID := row.Get("order_id")
		productID := row.Get("product_id")
		price, convErr := strconv.ParseFloat(row.Get("price"), 64)
		if orderID == "" || productID == "" || convErr != nil {
			skipped++
			continue
		}
		freight, _ := strconv.ParseFloat(row.Get("freight_value"), 64)

		category, err := resolver.resolve(ctx, productID)
		if err != nil {
			return imported, skipped, err
		}
		queueOrderItem(ctx, batch.Pipe(), orderID, productID, row.Get("seller_id"), price, freight)
		agg.track(productID, category, price)
		imported++

		if imported%10000 == 0 {
			fmt.Printf("  -> %d order items imported...\n", imported)
		}
		if err = batch.MaybeFlush(ctx); err != nil {
			return imported, skipped, err
		}
	}
	if err = reader.Err(); err != nil {
		return imported, skipped, err
	}
	if err = batch.Flush(ctx); err != nil {
		return imported, skipped, err
	}
	if err = agg.flush(ctx, batch); err != nil {
		return imported, skipped, err
	}
	return imported, skipped + reader.Skipped(), nil
}

func queueOrderItem(ctx context.Context, pipe redis.Pipeliner, orderID, productID, sellerID string, price, freight float64) {
	pipe.LPush(ctx, datamodel.OrderItemsKey(orderID), productID)
	pipe.HSet(ctx, datamodel.ProductKey(productID), "price", price)
	pipe.HSet(ctx, datamodel.OrderKey(orderID), map[string]interface{}{
		"freight_value": freight,
		"seller_id":     sellerID,
	})
}

// ImportPayments loads olist_order_payments_dataset.csv: the JSON
// payment lists and the per-type payment count rankings.
func (imp *Importer) ImportPayments(ctx context.Context) (imported, skipped uint64, err error) {
	path := filepath.Join(imp.dataPath, "olist_order_payments_dataset.csv")
	reader, err := internal.OpenCSV(path)
	if os.IsNotExist(err) {
		zap.S().Infof("%s not found, generating synthetic payments", path)
		return imp.importSamplePayments(ctx)
	}
	if err != nil {
		return 0, 0, err
	}
	defer reader.Close()

	batch := internal.NewPipelineBatcher(imp.rdb, 0)
	// payment type -> order id -> count of payments
	paymentTypes := make(map[string]map[string]int)
	for {
		row, ok := reader.Next()
		if !ok || imp.reachedLimit(imported) || imp.aborted() {
			break
		}

		orderID := row.Get("order_id")
		paymentType := row.Get("payment_type")
		if orderID == "" || paymentType == "" {
			skipped++
			continue
		}
		payment := datamodel.Payment{
			Type:         paymentType,
			Installments: row.Get("payment_installments"),
			Value:        row.Get("payment_value"),
		}
		encoded, marshalErr := json.Marshal(payment)
		if marshalErr != nil {
			skipped++
			continue
		}
		batch.Pipe().LPush(ctx, datamodel.OrderPaymentsKey(orderID), string(encoded))

		if paymentTypes[paymentType] == nil {
			paymentTypes[paymentType] = make(map[string]int)
		}
		paymentTypes[paymentType][orderID]++
		imported++

		if err = batch.MaybeFlush(ctx); err != nil {
			return imported, skipped, err
		}
	}
	if err = reader.Err(); err != nil {
		return imported, skipped, err
	}
	if err = batch.Flush(ctx); err != nil {
		return imported, skipped, err
	}

	for paymentType, orders := range paymentTypes {
		for orderID, count := range orders {
			batch.Pipe().ZAdd(ctx, datamodel.PaymentTypeKey(paymentType), &redis.Z{Score: float64(count), Member: orderID})
			if err = batch.MaybeFlush(ctx); err != nil {
				return imported, skipped, err
			}
		}
	}
	if err = batch.Flush(ctx); err != nil {
		return imported, skipped, err
	}
	return imported, skipped + reader.Skipped(), nil
}

// ImportReviews loads olist_order_reviews_dataset.csv: the review
// hashes, the score ranking and the score distribution. Rows without a
// numeric score are skipped.
func (imp *Importer) ImportReviews(ctx context.Context) (imported, skipped uint64, err error) {
	path := filepath.Join(imp.dataPath, "olist_order_reviews_dataset.csv")
	reader, err := internal.OpenCSV(path)
	if os.IsNotExist(err) {
		zap.S().Infof("%s not found, generating synthetic reviews", path)
		return imp.importSampleReviews(ctx)
	}
	if err != nil {
		return 0, 0, err
	}
	defer reader.Close()

	batch := internal.NewPipelineBatcher(imp.rdb, 0)
	scoreDistribution := make(map[int]int)
	for {
		row, ok := reader.Next()
		if !ok || imp.reachedLimit(imported) || imp.aborted() {
			break
		}

		orderID := row.Get("order_id")
		score, convErr := strconv.Atoi(row.Get("review_score"))
		if orderID == "" || convErr != nil {
			skipped++
			continue
		}
		review := datamodel.Review{
			Score:        score,
			CommentTitle: row.Get("review_comment_title"),
			Comment:      row.Get("review_comment_message"),
			CreationDate: row.Get("review_creation_date"),
		}
		queueReview(ctx, batch.Pipe(), orderID, review)
		scoreDistribution[score]++
		imported++

		if err = batch.MaybeFlush(ctx); err != nil {
			return imported, skipped, err
		}
	}
	if err = reader.Err(); err != nil {
		return imported, skipped, err
	}
	if err = batch.Flush(ctx); err != nil {
		return imported, skipped, err
	}

	for score, count := range scoreDistribution {
		batch.Pipe().ZAdd(ctx, datamodel.KeyReviewScoreDistribution, &redis.Z{
			Score:  float64(count),
			Member: strconv.Itoa(score),
		})
	}
	if err = batch.Flush(ctx); err != nil {
		return imported, skipped, err
	}
	return imported, skipped + reader.Skipped(), nil
}

func queueReview(ctx context.Context, pipe redis.Pipeliner, orderID string, review datamodel.Review) {
	pipe.HSet(ctx, datamodel.OrderReviewKey(orderID), review.HashFields())
	pipe.ZAdd(ctx, datamodel.KeyReviewScores, &redis.Z{Score: float64(review.Score), Member: orderID})
}

// ImportSellers loads olist_sellers_dataset.csv: the seller hashes and
// the per-state index.
func (imp *Importer) ImportSellers(ctx context.Context) (imported, skipped uint64, err error) {
	path := filepath.Join(imp.dataPath, "olist_sellers_dataset.csv")
	reader, err := internal.OpenCSV(path)
	if os.IsNotExist(err) {
		zap.S().Infof("%s not found, generating synthetic sellers", path)
		return imp.importSampleSellers(ctx)
	}
	if err != nil {
		return 0, 0, err
	}
	defer reader.Close()

	batch := internal.NewPipelineBatcher(imp.rdb, 0)
	for {
		row, ok := reader.Next()
		if !ok || imp.reachedLimit(imported) || imp.aborted() {
			break
		}

		seller := datamodel.Seller{
			ID:    row.Get("seller_id"),
			Zip:   row.Get("seller_zip_code_prefix"),
			City:  row.Get("seller_city"),
			State: row.Get("seller_state"),
		}
		if seller.ID == "" {
			skipped++
			continue
		}
		queueSeller(ctx, batch.Pipe(), seller)
		imported++

		if err = batch.MaybeFlush(ctx); err != nil {
			return imported, skipped, err
		}
	}
	if err = reader.Err(); err != nil {
		return imported, skipped, err
	}
	if err = batch.Flush(ctx); err != nil {
		return imported, skipped, err
	}
	return imported, skipped + reader.Skipped(), nil
}

func queueSeller(ctx context.Context, pipe redis.Pipeliner, seller datamodel.Seller) {
	pipe.HSet(ctx, datamodel.SellerKey(seller.ID), seller.HashFields())
	pipe.SAdd(ctx, datamodel.StateSellersKey(seller.State), seller.ID)
	pipe.SAdd(ctx, datamodel.KeySellerAll, seller.ID)
}

// ImportGeolocation loads olist_geolocation_dataset.csv. The file holds
// many rows per zip prefix, only the first one is stored. The seen set
// lives in a freecache to keep the memory footprint bounded.
func (imp *Importer) ImportGeolocation(ctx context.Context) (imported, skipped uint64, err error) {
	path := filepath.Join(imp.dataPath, "olist_geolocation_dataset.csv")
	reader, err := internal.OpenCSV(path)
	if os.IsNotExist(err) {
		zap.S().Infof("%s not found, generating synthetic geolocation", path)
		return imp.importSampleGeolocation(ctx)
	}
	if err != nil {
		return 0, 0, err
	}
	defer reader.Close()

	seenZips := freecache.NewCache(zipCacheSizeBytes)
	batch := internal.NewPipelineBatcher(imp.rdb, 0)
	for {
		row, ok := reader.Next()
		if !ok || imp.reachedLimit(imported) || imp.aborted() {
			break
		}

		geo := datamodel.Geolocation{
			Zip:   row.Get("geolocation_zip_code_prefix"),
			Lat:   row.Get("geolocation_lat"),
			Lng:   row.Get("geolocation_lng"),
			City:  row.Get("geolocation_city"),
			State: row.Get("geolocation_state"),
		}
		if geo.Zip == "" {
			skipped++
			continue
		}
		zipKey := []byte(geo.Zip)
		if _, cacheErr := seenZips.Get(zipKey); cacheErr == nil {
			continue
		}
		if cacheErr := seenZips.Set(zipKey, []byte{1}, 0); cacheErr != nil {
			return imported, skipped, cacheErr
		}
		batch.Pipe().HSet(ctx, datamodel.GeoKey(geo.Zip), geo.HashFields())
		imported++

		if err = batch.MaybeFlush(ctx); err != nil {
			return imported, skipped, err
		}
	}
	if err = reader.Err(); err != nil {
		return imported, skipped, err
	}
	if err = batch.Flush(ctx); err != nil {
		return imported, skipped, err
	}
	return imported, skipped + reader.Skipped(), nil
}
