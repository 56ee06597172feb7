package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"donki-dashboard/internal/ingest"
	"donki-dashboard/internal/models"
)

const (
	maxTopProducts     = 10
	maxRecommended     = 10
	maxPerCustomerRecs = 3

	confidenceFloor = 0.80
	confidenceSpan  = 0.15
)

// Fixed histogram bins for total purchases per customer. Closed
// intervals; the last bin is unbounded above. Customers with a total
// below 1 are counted nowhere.
var distributionRanges = []struct {
	Min   float64
	Max   float64
	Label string
}{
	{1, 5, "1-5"},
	{6, 10, "6-10"},
	{11, 15, "11-15"},
	{16, 20, "16-20"},
	{21, 25, "21-25"},
	{26, 30, "26-30"},
	{31, 35, "31-35"},
	{36, 40, "36-40"},
	{41, 45, "41-45"},
	{46, math.Inf(1), "46+"},
}

// Analytics owns the current transaction set and all derived views as
// one atomic snapshot. Every UpdateData call recomputes everything and
// swaps the whole snapshot; readers never observe a half-updated set.
type Analytics struct {
	mu       sync.RWMutex
	snapshot *models.Snapshot
	logger   *slog.Logger
}

func NewAnalytics(logger *slog.Logger) *Analytics {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analytics{
		snapshot: &models.Snapshot{},
		logger:   logger,
	}
}

// UpdateData replaces the transaction snapshot and synchronously
// recomputes every derived view. The four views are independent pure
// functions of the transaction sequence, so they are computed
// concurrently; the caller still observes a single atomic step.
func (a *Analytics) UpdateData(transactions []models.Transaction) {
	start := time.Now()

	customers := computeCustomers(transactions)

	snap := &models.Snapshot{
		Transactions: transactions,
		Customers:    customers,
	}

	var g errgroup.Group
	g.Go(func() error {
		snap.TopProducts = computeTopProducts(transactions)
		return nil
	})
	g.Go(func() error {
		snap.CustomerDistribution = computeCustomerDistribution(transactions)
		return nil
	})
	g.Go(func() error {
		snap.RecommendedProducts = computeRecommendedProducts(transactions)
		return nil
	})
	g.Go(func() error {
		snap.CustomerRecommendations = computeCustomerRecommendations(transactions, customers)
		return nil
	})
	if err := g.Wait(); err != nil {
		a.logger.Error("failed to compute derived views", "error", err)
	}

	snap.LastUpdated = time.Now()

	a.mu.Lock()
	a.snapshot = snap
	a.mu.Unlock()

	a.logger.Info("derived views recomputed",
		"transactions", len(transactions),
		"customers", len(customers),
		"duration", time.Since(start),
	)
}

// LoadFromCSV reads and parses a CSV file and replaces the snapshot.
// A file that cannot be read or whose header is invalid leaves the
// prior snapshot untouched.
func (a *Analytics) LoadFromCSV(ctx context.Context, filename string) error {
	start := time.Now()
	a.logger.Info("loading CSV file", "filename", filename)

	raw, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read csv file: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	parser := ingest.NewParser(a.logger)
	transactions, err := parser.Parse(string(raw))
	if err != nil {
		return fmt.Errorf("parse csv: %w", err)
	}

	a.UpdateData(transactions)

	a.logger.Info("csv load complete",
		"records", len(transactions),
		"duration", time.Since(start),
	)
	return nil
}

// Restore installs a previously persisted snapshot without recomputing.
func (a *Analytics) Restore(snap *models.Snapshot) {
	if snap == nil {
		return
	}
	a.mu.Lock()
	a.snapshot = snap
	a.mu.Unlock()
}

// Snapshot returns the current snapshot. The contents are treated as
// immutable by all consumers until the next UpdateData.
func (a *Analytics) Snapshot() *models.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot
}

func (a *Analytics) HasData() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.snapshot.Transactions) > 0
}

func (a *Analytics) LastUpdated() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot.LastUpdated
}

func (a *Analytics) TopProducts() []models.ProductAggregate {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot.TopProducts
}

func (a *Analytics) CustomerDistribution() []models.DistributionBucket {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot.CustomerDistribution
}

func (a *Analytics) RecommendedProducts() []models.RecommendationScore {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot.RecommendedProducts
}

func (a *Analytics) Customers() []models.Customer {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot.Customers
}

func (a *Analytics) CustomerRecommendations() map[string][]models.PersonalizedRecommendation {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot.CustomerRecommendations
}

// RecommendationsFor returns the personalized list for one customer and
// whether that customer exists in the current snapshot.
func (a *Analytics) RecommendationsFor(customerID string) ([]models.PersonalizedRecommendation, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	recs, ok := a.snapshot.CustomerRecommendations[customerID]
	return recs, ok
}

// Stats exposes snapshot sizes for the admin endpoint.
func (a *Analytics) Stats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return map[string]any{
		"record_count":         len(a.snapshot.Transactions),
		"last_updated":         a.snapshot.LastUpdated,
		"customers":            len(a.snapshot.Customers),
		"top_products":         len(a.snapshot.TopProducts),
		"recommended_products": len(a.snapshot.RecommendedProducts),
	}
}

// computeCustomers derives one customer per distinct CustomerID. The
// segment is taken from the first transaction seen for that customer;
// the list itself is sorted ascending by ID.
func computeCustomers(transactions []models.Transaction) []models.Customer {
	seen := make(map[string]bool)
	customers := make([]models.Customer, 0)

	for _, tx := range transactions {
		if seen[tx.CustomerID] {
			continue
		}
		seen[tx.CustomerID] = true
		customers = append(customers, models.Customer{
			ID:      tx.CustomerID,
			Name:    "Customer " + tx.CustomerID,
			Segment: tx.CustomerSegment,
		})
	}

	slices.SortFunc(customers, func(a, b models.Customer) int {
		return strings.Compare(a.ID, b.ID)
	})
	return customers
}

// computeTopProducts sums PurchaseCount per product. The category is
// overwritten by every transaction, so the last one in input order
// wins. Note the customer segment rule is the opposite (first wins).
func computeTopProducts(transactions []models.Transaction) []models.ProductAggregate {
	byID := make(map[string]*models.ProductAggregate)
	order := make([]string, 0)

	for _, tx := range transactions {
		agg, ok := byID[tx.ProductID]
		if !ok {
			agg = &models.ProductAggregate{ID: tx.ProductID, Name: tx.ProductID}
			byID[tx.ProductID] = agg
			order = append(order, tx.ProductID)
		}
		agg.TotalPurchaseCount += tx.PurchaseCount
		agg.Category = tx.ProductCategory
	}

	result := make([]models.ProductAggregate, 0, len(order))
	for _, id := range order {
		result = append(result, *byID[id])
	}

	// Stable sort keeps ties in input order, so output is reproducible.
	slices.SortStableFunc(result, func(a, b models.ProductAggregate) int {
		if a.TotalPurchaseCount > b.TotalPurchaseCount {
			return -1
		}
		if a.TotalPurchaseCount < b.TotalPurchaseCount {
			return 1
		}
		return 0
	})

	if len(result) > maxTopProducts {
		result = result[:maxTopProducts]
	}
	return result
}

// computeCustomerDistribution classifies each customer's summed
// PurchaseCount into exactly one of the ten fixed bins. All ten buckets
// are always emitted, in fixed order, zero counts included.
func computeCustomerDistribution(transactions []models.Transaction) []models.DistributionBucket {
	totals := make(map[string]float64)
	for _, tx := range transactions {
		totals[tx.CustomerID] += tx.PurchaseCount
	}

	buckets := make([]models.DistributionBucket, 0, len(distributionRanges))
	for _, r := range distributionRanges {
		count := 0
		for _, total := range totals {
			if total >= r.Min && total <= r.Max {
				count++
			}
		}
		buckets = append(buckets, models.DistributionBucket{Range: r.Label, Count: count})
	}
	return buckets
}

// computeRecommendedProducts is the global co-occurrence recommender.
// Each customer's purchases collapse to a distinct product set; every
// unordered pair within a set increments a counter keyed by the sorted
// pair; a product's score is the sum over all pairs containing it.
// Products that never co-occur with anything have no score and are
// absent from the result.
func computeRecommendedProducts(transactions []models.Transaction) []models.RecommendationScore {
	productsOf := make(map[string][]string)
	seen := make(map[string]map[string]bool)
	productOrder := make([]string, 0)
	firstCategory := make(map[string]string)

	for _, tx := range transactions {
		if seen[tx.CustomerID] == nil {
			seen[tx.CustomerID] = make(map[string]bool)
		}
		if !seen[tx.CustomerID][tx.ProductID] {
			seen[tx.CustomerID][tx.ProductID] = true
			productsOf[tx.CustomerID] = append(productsOf[tx.CustomerID], tx.ProductID)
		}
		if _, ok := firstCategory[tx.ProductID]; !ok {
			firstCategory[tx.ProductID] = tx.ProductCategory
			productOrder = append(productOrder, tx.ProductID)
		}
	}

	pairCounts := make(map[[2]string]float64)
	for _, products := range productsOf {
		for i := 0; i < len(products); i++ {
			for j := i + 1; j < len(products); j++ {
				pair := [2]string{products[i], products[j]}
				if pair[0] > pair[1] {
					pair[0], pair[1] = pair[1], pair[0]
				}
				pairCounts[pair]++
			}
		}
	}

	scores := make(map[string]float64)
	for pair, count := range pairCounts {
		scores[pair[0]] += count
		scores[pair[1]] += count
	}

	result := make([]models.RecommendationScore, 0, len(scores))
	for _, id := range productOrder {
		score, ok := scores[id]
		if !ok {
			continue
		}
		result = append(result, models.RecommendationScore{
			ID:       id,
			Name:     id,
			Score:    score,
			Category: firstCategory[id],
		})
	}

	slices.SortStableFunc(result, func(a, b models.RecommendationScore) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(result) > maxRecommended {
		result = result[:maxRecommended]
	}
	return result
}

// computeCustomerRecommendations builds the per-customer top-3 list:
// products the customer has not bought, ranked by how often they appear
// in other customers' transactions. Confidence is normalized over that
// customer's selected top three only; when all three counts are equal
// every confidence is exactly 0.80.
func computeCustomerRecommendations(transactions []models.Transaction, customers []models.Customer) map[string][]models.PersonalizedRecommendation {
	firstCategory := make(map[string]string)
	for _, tx := range transactions {
		if _, ok := firstCategory[tx.ProductID]; !ok {
			firstCategory[tx.ProductID] = tx.ProductCategory
		}
	}

	recommendations := make(map[string][]models.PersonalizedRecommendation, len(customers))

	for _, customer := range customers {
		owned := make(map[string]bool)
		for _, tx := range transactions {
			if tx.CustomerID == customer.ID {
				owned[tx.ProductID] = true
			}
		}

		type candidate struct {
			id    string
			count int
		}
		counts := make(map[string]int)
		order := make([]string, 0)

		for _, tx := range transactions {
			if tx.CustomerID == customer.ID || owned[tx.ProductID] {
				continue
			}
			if _, ok := counts[tx.ProductID]; !ok {
				order = append(order, tx.ProductID)
			}
			counts[tx.ProductID]++
		}

		candidates := make([]candidate, 0, len(order))
		for _, id := range order {
			candidates = append(candidates, candidate{id: id, count: counts[id]})
		}

		slices.SortStableFunc(candidates, func(a, b candidate) int {
			return b.count - a.count
		})

		if len(candidates) > maxPerCustomerRecs {
			candidates = candidates[:maxPerCustomerRecs]
		}

		recs := make([]models.PersonalizedRecommendation, 0, len(candidates))
		if len(candidates) > 0 {
			maxCount := candidates[0].count
			minCount := candidates[len(candidates)-1].count

			for _, c := range candidates {
				confidence := confidenceFloor
				if maxCount != minCount {
					confidence = confidenceFloor +
						float64(c.count-minCount)/float64(maxCount-minCount)*confidenceSpan
					// 0.80 + 1.0*0.15 rounds up one ulp past 0.95 in
					// float64; the ceiling must hold exactly.
					confidence = math.Min(confidence, confidenceFloor+confidenceSpan)
				}
				recs = append(recs, models.PersonalizedRecommendation{
					ID:         c.id,
					Name:       c.id,
					Confidence: confidence,
					Category:   firstCategory[c.id],
				})
			}
		}

		recommendations[customer.ID] = recs
	}

	return recommendations
}
