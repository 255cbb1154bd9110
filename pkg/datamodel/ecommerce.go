package datamodel

// Fixed index and ranking keys of the e-commerce data model
const (
	KeyOrderAll                = "order:all"
	KeyCustomerAll             = "customer:all"
	KeyProductAll              = "product:all"
	KeySellerAll               = "seller:all"
	KeyProductSales            = "product:sales"
	KeyProductRevenue          = "product:revenue"
	KeyCategoryRevenue         = "category:revenue"
	KeyReviewScores            = "review:scores"
	KeyReviewScoreDistribution = "review:score:distribution"
)

// Customer is stored under customer:<id> and indexed by state.
type Customer struct {
	ID    string
	Zip   string
	City  string
	State string
}

// HashFields returns the customer fields as stored in the customer:<id> hash.
func (c *Customer) HashFields() map[string]interface{} {
	return map[string]interface{}{
		"zip":   c.Zip,
		"city":  c.City,
		"state": c.State,
	}
}

// Order is the primary record of one purchase, stored under order:<id>.
// The status feeds the order:status:<status> index. Freight value and
// seller id are filled in by the order items import.
type Order struct {
	ID                string
	CustomerID        string
	Status            string
	PurchaseTs        string
	ApprovedTs        string
	DeliveredCarrier  string
	DeliveredCustomer string
	EstimatedDelivery string
}

// HashFields returns the order fields as stored in the order:<id> hash.
func (o *Order) HashFields() map[string]interface{} {
	return map[string]interface{}{
		"customer_id":           o.CustomerID,
		"status":                o.Status,
		"purchase_ts":           o.PurchaseTs,
		"approved_ts":           o.ApprovedTs,
		"delivered_carrier_ts":  o.DeliveredCarrier,
		"delivered_customer_ts": o.DeliveredCustomer,
		"estimated_delivery_ts": o.EstimatedDelivery,
	}
}

// OrderFromHash rebuilds an order from the fields of its hash.
func OrderFromHash(id string, fields map[string]string) Order {
	return Order{
		ID:                id,
		CustomerID:        fields["customer_id"],
		Status:            fields["status"],
		PurchaseTs:        fields["purchase_ts"],
		ApprovedTs:        fields["approved_ts"],
		DeliveredCarrier:  fields["delivered_carrier_ts"],
		DeliveredCustomer: fields["delivered_customer_ts"],
		EstimatedDelivery: fields["estimated_delivery_ts"],
	}
}

// Product dimensions are stored verbatim as read from the catalog file,
// the price is attached later by the order items import.
type Product struct {
	ID       string
	Category string
	Weight   string
	Length   string
	Height   string
	Width    string
}

// HashFields returns the product fields as stored in the product:<id> hash.
func (p *Product) HashFields() map[string]interface{} {
	return map[string]interface{}{
		"category": p.Category,
		"weight":   p.Weight,
		"length":   p.Length,
		"height":   p.Height,
		"width":    p.Width,
	}
}

// Seller is stored under seller:<id> and indexed by state.
type Seller struct {
	ID    string
	Zip   string
	City  string
	State string
}

// HashFields returns the seller fields as stored in the seller:<id> hash.
func (s *Seller) HashFields() map[string]interface{} {
	return map[string]interface{}{
		"zip":   s.Zip,
		"city":  s.City,
		"state": s.State,
	}
}

// Payment is one payment of an order, serialized to JSON and kept in the
// order:<id>:payments list. Installments and value stay verbatim strings.
type Payment struct {
	Type         string `json:"type"`
	Installments string `json:"installments"`
	Value        string `json:"value"`
}

// Review is the review of one order, stored under order:<id>:review.
type Review struct {
	Score        int
	CommentTitle string
	Comment      string
	CreationDate string
}

// HashFields returns the review fields as stored in the order:<id>:review hash.
func (r *Review) HashFields() map[string]interface{} {
	return map[string]interface{}{
		"score":         r.Score,
		"comment_title": r.CommentTitle,
		"comment":       Truncate(r.Comment, 500),
		"creation_date": r.CreationDate,
	}
}

// Geolocation is one zip code prefix, stored under geo:<zip>.
type Geolocation struct {
	Zip   string
	Lat   string
	Lng   string
	City  string
	State string
}

// HashFields returns the geolocation fields as stored in the geo:<zip> hash.
func (g *Geolocation) HashFields() map[string]interface{} {
	return map[string]interface{}{
		"lat":   g.Lat,
		"lng":   g.Lng,
		"city":  g.City,
		"state": g.State,
	}
}

// CustomerKey returns customer:<id>
func CustomerKey(id string) string { return "customer:" + id }

// CustomerOrdersKey returns customer:<id>:orders
func CustomerOrdersKey(id string) string { return "customer:" + id + ":orders" }

// OrderKey returns order:<id>
func OrderKey(id string) string { return "order:" + id }

// OrderItemsKey returns order:<id>:items
func OrderItemsKey(id string) string { return "order:" + id + ":items" }

// OrderPaymentsKey returns order:<id>:payments
func OrderPaymentsKey(id string) string { return "order:" + id + ":payments" }

// OrderReviewKey returns order:<id>:review
func OrderReviewKey(id string) string { return "order:" + id + ":review" }

// OrderStatusKey returns the status index key order:status:<status>
func OrderStatusKey(status string) string { return "order:status:" + status }

// ProductKey returns product:<id>
func ProductKey(id string) string { return "product:" + id }

// CategoryProductsKey returns category:<category>:products
func CategoryProductsKey(category string) string {
	return "category:" + category + ":products"
}

// SellerKey returns seller:<id>
func SellerKey(id string) string { return "seller:" + id }

// StateCustomersKey returns state:<state>:customers
func StateCustomersKey(state string) string { return "state:" + state + ":customers" }

// StateSellersKey returns state:<state>:sellers
func StateSellersKey(state string) string { return "state:" + state + ":sellers" }

// PaymentTypeKey returns payment:type:<type>
func PaymentTypeKey(paymentType string) string { return "payment:type:" + paymentType }

// GeoKey returns geo:<zip>
func GeoKey(zip string) string { return "geo:" + zip }
