package models

import "time"

// Transaction is one row of the uploaded retail dataset. Created by the
// ingestor, never mutated afterwards.
type Transaction struct {
	TransactionID   string  `json:"transaction_id"`
	CustomerID      string  `json:"customer_id"`
	ProductID       string  `json:"product_id"`
	ProductCategory string  `json:"product_category"`
	PurchaseCount   float64 `json:"purchase_count"`
	Price           float64 `json:"price"`
	TotalAmount     float64 `json:"total_amount"`
	Timestamp       string  `json:"timestamp"`
	StoreID         string  `json:"store_id"`
	CustomerSegment string  `json:"customer_segment"`
	PaymentMethod   string  `json:"payment_method"`
	PromotionCode   string  `json:"promotion_code"`
}

// Customer is derived per distinct CustomerID. Segment comes from the
// first transaction seen for that customer.
type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Segment string `json:"segment"`
}

// ProductAggregate is the top-products view entry: purchase counts
// summed per product, category from the last transaction processed.
type ProductAggregate struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	TotalPurchaseCount float64 `json:"total_purchase_count"`
	Category           string  `json:"category"`
}

// DistributionBucket counts customers whose summed purchase count falls
// in a fixed range.
type DistributionBucket struct {
	Range string `json:"range"`
	Count int    `json:"count"`
}

// RecommendationScore is a globally recommended product: score is the
// sum of co-occurrence pair counts involving this product.
type RecommendationScore struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Score    float64 `json:"score"`
	Category string  `json:"category"`
}

// PersonalizedRecommendation is one of up to three products suggested
// to a single customer. Confidence is normalized within that customer's
// top three only and is not comparable across customers.
type PersonalizedRecommendation struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Category   string  `json:"category"`
}

// Snapshot is the full dashboard state: the raw transactions, every
// derived view, and the time the set was last replaced. It is swapped
// wholesale on each upload and persisted as one unit.
type Snapshot struct {
	Transactions            []Transaction                           `json:"transactions"`
	TopProducts             []ProductAggregate                      `json:"top_products"`
	CustomerDistribution    []DistributionBucket                    `json:"customer_distribution"`
	RecommendedProducts     []RecommendationScore                   `json:"recommended_products"`
	Customers               []Customer                              `json:"customers"`
	CustomerRecommendations map[string][]PersonalizedRecommendation `json:"customer_recommendations"`
	LastUpdated             time.Time                               `json:"last_updated"`
}
