package ecommerce

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"

	"github.com/nosql-lab/redis-use-cases/internal"
	"github.com/nosql-lab/redis-use-cases/pkg/datamodel"
)

// Synthetic sample parameters. The ids follow the anonymized 32 hex
// character shape of the real dataset, derived from a stable hash so
// the files reference each other consistently without shared state.
const (
	sampleCustomerCount = 500
	sampleOrderCount    = 800
	sampleProductCount  = 300
	sampleSellerCount   = 60
	sampleSeed          = 2018
)

var (
	sampleStates       = []string{"SP", "RJ", "MG", "RS", "PR", "BA", "SC", "GO", "PE", "CE"}
	sampleStateWeights = []int{40, 13, 12, 6, 5, 4, 4, 2, 2, 2}

	sampleCities = map[string][]string{
		"SP": {"sao paulo", "campinas", "santos"},
		"RJ": {"rio de janeiro", "niteroi"},
		"MG": {"belo horizonte", "uberlandia"},
		"RS": {"porto alegre", "caxias do sul"},
		"PR": {"curitiba", "londrina"},
		"BA": {"salvador", "feira de santana"},
		"SC": {"florianopolis", "joinville"},
		"GO": {"goiania"},
		"PE": {"recife"},
		"CE": {"fortaleza"},
	}

	sampleCategories = []string{
		"cama_mesa_banho", "beleza_saude", "esporte_lazer", "moveis_decoracao",
		"informatica_acessorios", "utilidades_domesticas", "relogios_presentes",
		"telefonia", "brinquedos", "automotivo",
	}

	sampleStatuses       = []string{"delivered", "shipped", "processing", "canceled", "invoiced"}
	sampleStatusWeights  = []int{85, 6, 4, 3, 2}
	samplePaymentTypes   = []string{"credit_card", "boleto", "voucher", "debit_card"}
	samplePaymentWeights = []int{74, 19, 4, 3}
)

func sampleCustomerID(i int) string { return internal.HexID("sample_customer", strconv.Itoa(i)) }
func sampleOrderID(i int) string    { return internal.HexID("sample_order", strconv.Itoa(i)) }
func sampleProductID(i int) string  { return internal.HexID("sample_product", strconv.Itoa(i)) }
func sampleSellerID(i int) string   { return internal.HexID("sample_seller", strconv.Itoa(i)) }

func samplePlace(r *rand.Rand) (state, city, zip string) {
	state = internal.PickWeighted(r, sampleStates, sampleStateWeights)
	city = internal.Pick(r, sampleCities[state])
	zip = fmt.Sprintf("%05d", 1000+r.Intn(90000))
	return state, city, zip
}

func sampleCustomers() []datamodel.Customer {
	r := internal.NewSampleRand(sampleSeed)
	customers := make([]datamodel.Customer, 0, sampleCustomerCount)
	for i := 0; i < sampleCustomerCount; i++ {
		state, city, zip := samplePlace(r)
		customers = append(customers, datamodel.Customer{
			ID:    sampleCustomerID(i),
			Zip:   zip,
			City:  city,
			State: state,
		})
	}
	return customers
}

func sampleOrders() []datamodel.Order {
	r := internal.NewSampleRand(sampleSeed + 1)
	orders := make([]datamodel.Order, 0, sampleOrderCount)
	for i := 0; i < sampleOrderCount; i++ {
		purchase := sampleTimestamp(r)
		orders = append(orders, datamodel.Order{
			ID:                sampleOrderID(i),
			CustomerID:        sampleCustomerID(r.Intn(sampleCustomerCount)),
			Status:            internal.PickWeighted(r, sampleStatuses, sampleStatusWeights),
			PurchaseTs:        purchase,
			ApprovedTs:        purchase,
			EstimatedDelivery: sampleTimestamp(r),
		})
	}
	return orders
}

func sampleProducts() []datamodel.Product {
	r := internal.NewSampleRand(sampleSeed + 2)
	products := make([]datamodel.Product, 0, sampleProductCount)
	for i := 0; i < sampleProductCount; i++ {
		products = append(products, datamodel.Product{
			ID:       sampleProductID(i),
			Category: internal.Pick(r, sampleCategories),
			Weight:   strconv.Itoa(50 + r.Intn(10000)),
			Length:   strconv.Itoa(10 + r.Intn(90)),
			Height:   strconv.Itoa(2 + r.Intn(60)),
			Width:    strconv.Itoa(5 + r.Intn(50)),
		})
	}
	return products
}

func sampleSellers() []datamodel.Seller {
	r := internal.NewSampleRand(sampleSeed + 3)
	sellers := make([]datamodel.Seller, 0, sampleSellerCount)
	for i := 0; i < sampleSellerCount; i++ {
		state, city, zip := samplePlace(r)
		sellers = append(sellers, datamodel.Seller{
			ID:    sampleSellerID(i),
			Zip:   zip,
			City:  city,
			State: state,
		})
	}
	return sellers
}

// sampleOrderItem is one line of the synthetic order items file.
type sampleOrderItem struct {
	OrderID   string
	ProductID string
	SellerID  string
	Price     float64
	Freight   float64
}

func sampleOrderItems() []sampleOrderItem {
	r := internal.NewSampleRand(sampleSeed + 4)
	items := make([]sampleOrderItem, 0, sampleOrderCount*2)
	for i := 0; i < sampleOrderCount; i++ {
		for n := 1 + r.Intn(3); n > 0; n-- {
			items = append(items, sampleOrderItem{
				OrderID:   sampleOrderID(i),
				ProductID: sampleProductID(r.Intn(sampleProductCount)),
				SellerID:  sampleSellerID(r.Intn(sampleSellerCount)),
				Price:     float64(500+r.Intn(29500)) / 100,
				Freight:   float64(500+r.Intn(4500)) / 100,
			})
		}
	}
	return items
}

// samplePayment is one synthetic payment, roughly one per order with
// occasional voucher splits.
type samplePayment struct {
	OrderID string
	Payment datamodel.Payment
}

func samplePayments() []samplePayment {
	r := internal.NewSampleRand(sampleSeed + 5)
	payments := make([]samplePayment, 0, sampleOrderCount)
	for i := 0; i < sampleOrderCount; i++ {
		payments = append(payments, samplePayment{
			OrderID: sampleOrderID(i),
			Payment: datamodel.Payment{
				Type:         internal.PickWeighted(r, samplePaymentTypes, samplePaymentWeights),
				Installments: strconv.Itoa(1 + r.Intn(10)),
				Value:        fmt.Sprintf("%.2f", float64(1000+r.Intn(49000))/100),
			},
		})
	}
	return payments
}

// sampleReview is one synthetic review; roughly half the orders carry one.
type sampleReview struct {
	OrderID string
	Review  datamodel.Review
}

func sampleReviews() []sampleReview {
	r := internal.NewSampleRand(sampleSeed + 6)
	reviews := make([]sampleReview, 0, sampleOrderCount/2)
	for i := 0; i < sampleOrderCount; i++ {
		if r.Intn(2) == 0 {
			continue
		}
		// The real distribution is heavily five star skewed.
		score := internal.PickWeighted(r, []int{1, 2, 3, 4, 5}, []int{11, 3, 8, 19, 59})
		reviews = append(reviews, sampleReview{
			OrderID: sampleOrderID(i),
			Review: datamodel.Review{
				Score:        score,
				CreationDate: sampleTimestamp(r),
			},
		})
	}
	return reviews
}

func sampleGeolocations() []datamodel.Geolocation {
	r := internal.NewSampleRand(sampleSeed + 7)
	geos := make([]datamodel.Geolocation, 0, 200)
	for i := 0; i < 200; i++ {
		state, city, zip := samplePlace(r)
		geos = append(geos, datamodel.Geolocation{
			Zip:   zip,
			Lat:   fmt.Sprintf("%.6f", -23.5-r.Float64()*10),
			Lng:   fmt.Sprintf("%.6f", -46.6-r.Float64()*8),
			City:  city,
			State: state,
		})
	}
	return geos
}

// sampleTimestamp spreads events over 2017 and 2018, the span of the
// real dataset.
func sampleTimestamp(r *rand.Rand) string {
	year := 2017 + r.Intn(2)
	month := 1 + r.Intn(12)
	day := 1 + r.Intn(28)
	return fmt.Sprintf("%d-%02d-%02d %02d:%02d:00", year, month, day, r.Intn(24), r.Intn(60))
}

func (imp *Importer) importSampleCustomers(ctx context.Context) (imported, skipped uint64, err error) {
	batch := internal.NewPipelineBatcher(imp.rdb, 0)
	for _, customer := range sampleCustomers() {
		if imp.reachedLimit(imported) || imp.aborted() {
			break
		}
		queueCustomer(ctx, batch.Pipe(), customer)
		imported++
		if err = batch.MaybeFlush(ctx); err != nil {
			return imported, skipped, err
		}
	}
	return imported, skipped, batch.Flush(ctx)
}

func (imp *Importer) importSampleOrders(ctx context.Context) (imported, skipped uint64, err error) {
	batch := internal.NewPipelineBatcher(imp.rdb, 0)
	for _, order := range sampleOrders() {
		if imp.reachedLimit(imported) || imp.aborted() {
			break
		}
		queueOrder(ctx, batch.Pipe(), order)
		imported++
		if err = batch.MaybeFlush(ctx); err != nil {
			return imported, skipped, err
		}
	}
	return imported, skipped, batch.Flush(ctx)
}

func (imp *Importer) importSampleProducts(ctx context.Context) (imported, skipped uint64, err error) {
	batch := internal.NewPipelineBatcher(imp.rdb, 0)
	for _, product := range sampleProducts() {
		if imp.reachedLimit(imported) || imp.aborted() {
			break
		}
		queueProduct(ctx, batch.Pipe(), product)
		imported++
		if err = batch.MaybeFlush(ctx); err != nil {
			return imported, skipped, err
		}
	}
	return imported, skipped, batch.Flush(ctx)
}

func (imp *Importer) importSampleOrderItems(ctx context.Context) (imported, skipped uint64, err error) {
	resolver, err := newCategoryResolver(imp.rdb)
	if err != nil {
		return 0, 0, err
	}
	batch := internal.NewPipelineBatcher(imp.rdb, 0)
	agg := newItemAggregates()
	for _, item := range sampleOrderItems() {
		if imp.reachedLimit(imported) || imp.aborted() {
			break
		}
		category, resolveErr := resolver.resolve(ctx, item.ProductID)
		if resolveErr != nil {
			return imported, skipped, resolveErr
		}
		queueOrderItem(ctx, batch.Pipe(), item.OrderID, item.ProductID, item.SellerID, item.Price, item.Freight)
		agg.track(item.ProductID, category, item.Price)
		imported++
		if err = batch.MaybeFlush(ctx); err != nil {
			return imported, skipped, err
		}
	}
	if err = batch.Flush(ctx); err != nil {
		return imported, skipped, err
	}
	return imported, skipped, agg.flush(ctx, batch)
}

func (imp *Importer) importSamplePayments(ctx context.Context) (imported, skipped uint64, err error) {
	batch := internal.NewPipelineBatcher(imp.rdb, 0)
	paymentTypes := make(map[string]map[string]int)
	for _, entry := range samplePayments() {
		if imp.reachedLimit(imported) || imp.aborted() {
			break
		}
		encoded, marshalErr := json.Marshal(entry.Payment)
		if marshalErr != nil {
			return imported, skipped, marshalErr
		}
		batch.Pipe().LPush(ctx, datamodel.OrderPaymentsKey(entry.OrderID), string(encoded))
		if paymentTypes[entry.Payment.Type] == nil {
			paymentTypes[entry.Payment.Type] = make(map[string]int)
		}
		paymentTypes[entry.Payment.Type][entry.OrderID]++
		imported++
		if err = batch.MaybeFlush(ctx); err != nil {
			return imported, skipped, err
		}
	}
	for paymentType, orders := range paymentTypes {
		for orderID, count := range orders {
			batch.Pipe().ZAdd(ctx, datamodel.PaymentTypeKey(paymentType), &redis.Z{Score: float64(count), Member: orderID})
			if err = batch.MaybeFlush(ctx); err != nil {
				return imported, skipped, err
			}
		}
	}
	return imported, skipped, batch.Flush(ctx)
}

func (imp *Importer) importSampleReviews(ctx context.Context) (imported, skipped uint64, err error) {
	batch := internal.NewPipelineBatcher(imp.rdb, 0)
	scoreDistribution := make(map[int]int)
	for _, entry := range sampleReviews() {
		if imp.reachedLimit(imported) || imp.aborted() {
			break
		}
		queueReview(ctx, batch.Pipe(), entry.OrderID, entry.Review)
		scoreDistribution[entry.Review.Score]++
		imported++
		if err = batch.MaybeFlush(ctx); err != nil {
			return imported, skipped, err
		}
	}
	for score, count := range scoreDistribution {
		batch.Pipe().ZAdd(ctx, datamodel.KeyReviewScoreDistribution, &redis.Z{
			Score:  float64(count),
			Member: strconv.Itoa(score),
		})
	}
	return imported, skipped, batch.Flush(ctx)
}

func (imp *Importer) importSampleSellers(ctx context.Context) (imported, skipped uint64, err error) {
	batch := internal.NewPipelineBatcher(imp.rdb, 0)
	for _, seller := range sampleSellers() {
		if imp.reachedLimit(imported) || imp.aborted() {
			break
		}
		queueSeller(ctx, batch.Pipe(), seller)
		imported++
		if err = batch.MaybeFlush(ctx); err != nil {
			return imported, skipped, err
		}
	}
	return imported, skipped, batch.Flush(ctx)
}

func (imp *Importer) importSampleGeolocation(ctx context.Context) (imported, skipped uint64, err error) {
	batch := internal.NewPipelineBatcher(imp.rdb, 0)
	seen := make(map[string]bool)
	for _, geo := range sampleGeolocations() {
		if imp.reachedLimit(imported) || imp.aborted() {
			break
		}
		if seen[geo.Zip] {
			continue
		}
		seen[geo.Zip] = true
		batch.Pipe().HSet(ctx, datamodel.GeoKey(geo.Zip), geo.HashFields())
		imported++
		if err = batch.MaybeFlush(ctx); err != nil {
			return imported, skipped, err
		}
	}
	return imported, skipped, batch.Flush(ctx)
}
