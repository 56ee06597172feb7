package services

import (
	"context"
	"fmt"
	"math"
	"os"
	"reflect"
	"testing"

	"donki-dashboard/internal/models"
)

func tx(customerID, productID string, count float64) models.Transaction {
	return models.Transaction{
		CustomerID:    customerID,
		ProductID:     productID,
		PurchaseCount: count,
	}
}

func createTempCSV(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "test*.csv")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
	return f.Name()
}

func TestNewAnalytics(t *testing.T) {
	a := NewAnalytics(nil)
	if a == nil {
		t.Fatal("NewAnalytics() returned nil")
	}
	if a.snapshot == nil {
		t.Error("snapshot should be initialized")
	}
	if a.HasData() {
		t.Error("fresh analytics should have no data")
	}
}

func TestAnalytics_UpdateData_Example(t *testing.T) {
	a := NewAnalytics(nil)
	a.UpdateData([]models.Transaction{
		tx("C1", "P1", 3),
		tx("C1", "P2", 2),
		tx("C2", "P1", 1),
	})

	top := a.TopProducts()
	if len(top) != 2 {
		t.Fatalf("TopProducts() length = %d, want 2", len(top))
	}
	if top[0].ID != "P1" || top[0].TotalPurchaseCount != 4 {
		t.Errorf("top[0] = %+v, want P1 with total 4", top[0])
	}
	if top[1].ID != "P2" || top[1].TotalPurchaseCount != 2 {
		t.Errorf("top[1] = %+v, want P2 with total 2", top[1])
	}

	dist := a.CustomerDistribution()
	if len(dist) != 10 {
		t.Fatalf("CustomerDistribution() length = %d, want 10", len(dist))
	}
	if dist[0].Range != "1-5" || dist[0].Count != 2 {
		t.Errorf("dist[0] = %+v, want range 1-5 with count 2", dist[0])
	}

	// C1 bought {P1,P2}, so the pair (P1,P2) co-occurs once; each
	// product's score is 1.
	recs := a.RecommendedProducts()
	if len(recs) != 2 {
		t.Fatalf("RecommendedProducts() length = %d, want 2", len(recs))
	}
	for _, r := range recs {
		if r.Score != 1 {
			t.Errorf("score for %s = %v, want 1", r.ID, r.Score)
		}
	}
}

func TestComputeTopProducts(t *testing.T) {
	transactions := []models.Transaction{
		{CustomerID: "C1", ProductID: "P1", ProductCategory: "Food", PurchaseCount: 2},
		{CustomerID: "C2", ProductID: "P2", ProductCategory: "Drink", PurchaseCount: 5},
		{CustomerID: "C3", ProductID: "P1", ProductCategory: "Snacks", PurchaseCount: 1},
	}

	result := computeTopProducts(transactions)

	if len(result) != 2 {
		t.Fatalf("length = %d, want 2", len(result))
	}
	if result[0].ID != "P2" {
		t.Errorf("result[0].ID = %s, want P2", result[0].ID)
	}

	// Category follows the last transaction seen for the product.
	for _, p := range result {
		if p.ID == "P1" && p.Category != "Snacks" {
			t.Errorf("P1 category = %s, want Snacks (last write wins)", p.Category)
		}
	}

	for i := 1; i < len(result); i++ {
		if result[i].TotalPurchaseCount > result[i-1].TotalPurchaseCount {
			t.Error("result should be sorted non-increasing by total purchase count")
		}
	}
}

func TestComputeTopProducts_TruncatesToTen(t *testing.T) {
	var transactions []models.Transaction
	for i := 0; i < 15; i++ {
		transactions = append(transactions, tx("C1", fmt.Sprintf("P%02d", i), float64(i+1)))
	}

	result := computeTopProducts(transactions)
	if len(result) != 10 {
		t.Errorf("length = %d, want 10", len(result))
	}
	if result[0].ID != "P14" {
		t.Errorf("result[0].ID = %s, want P14", result[0].ID)
	}
}

func TestComputeTopProducts_StableTies(t *testing.T) {
	transactions := []models.Transaction{
		tx("C1", "PB", 3),
		tx("C1", "PA", 3),
		tx("C1", "PC", 3),
	}

	result := computeTopProducts(transactions)
	want := []string{"PB", "PA", "PC"}
	for i, id := range want {
		if result[i].ID != id {
			t.Errorf("result[%d].ID = %s, want %s (ties keep input order)", i, result[i].ID, id)
		}
	}
}

func TestComputeCustomerDistribution(t *testing.T) {
	transactions := []models.Transaction{
		tx("C1", "P1", 3),  // total 5 -> "1-5"
		tx("C1", "P2", 2),
		tx("C2", "P1", 6),  // "6-10"
		tx("C3", "P1", 46), // "46+"
		tx("C4", "P1", 100),
		tx("C5", "P1", 0), // counted nowhere
	}

	result := computeCustomerDistribution(transactions)

	if len(result) != 10 {
		t.Fatalf("length = %d, want exactly 10 buckets", len(result))
	}

	wantLabels := []string{"1-5", "6-10", "11-15", "16-20", "21-25", "26-30", "31-35", "36-40", "41-45", "46+"}
	counts := make(map[string]int)
	for i, b := range result {
		if b.Range != wantLabels[i] {
			t.Errorf("bucket %d label = %s, want %s", i, b.Range, wantLabels[i])
		}
		counts[b.Range] = b.Count
	}

	if counts["1-5"] != 1 {
		t.Errorf("1-5 count = %d, want 1", counts["1-5"])
	}
	if counts["6-10"] != 1 {
		t.Errorf("6-10 count = %d, want 1", counts["6-10"])
	}
	if counts["46+"] != 2 {
		t.Errorf("46+ count = %d, want 2", counts["46+"])
	}

	// Bucket counts sum to the number of distinct customers with a
	// total of at least 1.
	sum := 0
	for _, b := range result {
		sum += b.Count
	}
	if sum != 4 {
		t.Errorf("bucket sum = %d, want 4", sum)
	}
}

func TestComputeCustomerDistribution_Empty(t *testing.T) {
	result := computeCustomerDistribution(nil)
	if len(result) != 10 {
		t.Fatalf("length = %d, want 10", len(result))
	}
	for _, b := range result {
		if b.Count != 0 {
			t.Errorf("bucket %s count = %d, want 0", b.Range, b.Count)
		}
	}
}

func TestComputeRecommendedProducts(t *testing.T) {
	transactions := []models.Transaction{
		tx("C1", "P1", 1),
		tx("C1", "P1", 1), // repeat collapses in the distinct set
		tx("C1", "P2", 1),
		tx("C2", "P1", 1),
		tx("C2", "P2", 1),
		tx("C2", "P3", 1),
		tx("C3", "P9", 1), // singleton basket forms no pairs
	}

	result := computeRecommendedProducts(transactions)

	scores := make(map[string]float64)
	for _, r := range result {
		scores[r.ID] = r.Score
	}

	// Pairs: C1 -> (P1,P2). C2 -> (P1,P2), (P1,P3), (P2,P3).
	// (P1,P2)=2, (P1,P3)=1, (P2,P3)=1.
	if scores["P1"] != 3 {
		t.Errorf("P1 score = %v, want 3", scores["P1"])
	}
	if scores["P2"] != 3 {
		t.Errorf("P2 score = %v, want 3", scores["P2"])
	}
	if scores["P3"] != 2 {
		t.Errorf("P3 score = %v, want 2", scores["P3"])
	}
	if _, ok := scores["P9"]; ok {
		t.Error("P9 never co-occurs and should not be scored")
	}

	for i := 1; i < len(result); i++ {
		if result[i].Score > result[i-1].Score {
			t.Error("result should be sorted non-increasing by score")
		}
	}
}

func TestComputeRecommendedProducts_TruncatesToTen(t *testing.T) {
	var transactions []models.Transaction
	// One big basket: every product co-occurs with every other.
	for i := 0; i < 12; i++ {
		transactions = append(transactions, tx("C1", fmt.Sprintf("P%02d", i), 1))
	}

	result := computeRecommendedProducts(transactions)
	if len(result) != 10 {
		t.Errorf("length = %d, want 10", len(result))
	}
}

func TestComputeCustomerRecommendations(t *testing.T) {
	transactions := []models.Transaction{
		tx("C1", "P1", 1),
		tx("C2", "P2", 1),
		tx("C2", "P2", 1),
		tx("C2", "P2", 1),
		tx("C3", "P3", 1),
		tx("C3", "P3", 1),
		tx("C4", "P4", 1),
	}
	customers := computeCustomers(transactions)

	recs := computeCustomerRecommendations(transactions, customers)

	c1 := recs["C1"]
	if len(c1) != 3 {
		t.Fatalf("C1 recommendations length = %d, want 3", len(c1))
	}

	// Candidates for C1: P2 seen 3 times, P3 twice, P4 once.
	if c1[0].ID != "P2" || c1[1].ID != "P3" || c1[2].ID != "P4" {
		t.Errorf("C1 recommendation order = %s,%s,%s, want P2,P3,P4", c1[0].ID, c1[1].ID, c1[2].ID)
	}

	// Confidence normalizes over the selected top three: counts 3,2,1
	// map to 0.95, 0.875, 0.80.
	wantConfidence := []float64{0.95, 0.875, 0.80}
	for i, want := range wantConfidence {
		if math.Abs(c1[i].Confidence-want) > 1e-9 {
			t.Errorf("C1 confidence[%d] = %v, want %v", i, c1[i].Confidence, want)
		}
	}

	// The endpoints must be exact, not one ulp off: floor for the lowest
	// count, ceiling for the highest.
	if c1[0].Confidence != 0.95 {
		t.Errorf("top confidence = %v, want exactly 0.95", c1[0].Confidence)
	}
	if c1[2].Confidence != 0.80 {
		t.Errorf("bottom confidence = %v, want exactly 0.80", c1[2].Confidence)
	}

	// Never recommend a product the customer already bought.
	for id, list := range recs {
		owned := make(map[string]bool)
		for _, transaction := range transactions {
			if transaction.CustomerID == id {
				owned[transaction.ProductID] = true
			}
		}
		for _, r := range list {
			if owned[r.ID] {
				t.Errorf("customer %s recommended already-owned product %s", id, r.ID)
			}
			if r.Confidence < 0.80 || r.Confidence > 0.95 {
				t.Errorf("confidence %v outside [0.80, 0.95]", r.Confidence)
			}
		}
		if len(list) > 3 {
			t.Errorf("customer %s has %d recommendations, want at most 3", id, len(list))
		}
	}
}

func TestComputeCustomerRecommendations_EqualCounts(t *testing.T) {
	transactions := []models.Transaction{
		tx("C1", "P1", 1),
		tx("C2", "P2", 1),
		tx("C3", "P3", 1),
		tx("C4", "P4", 1),
	}
	customers := computeCustomers(transactions)

	recs := computeCustomerRecommendations(transactions, customers)

	c1 := recs["C1"]
	if len(c1) != 3 {
		t.Fatalf("C1 recommendations length = %d, want 3", len(c1))
	}
	for _, r := range c1 {
		if r.Confidence != 0.80 {
			t.Errorf("confidence = %v, want exactly 0.80 when all counts equal", r.Confidence)
		}
	}
}

func TestComputeCustomerRecommendations_EmptyCandidates(t *testing.T) {
	// C1 owns the entire catalog, so nothing is left to recommend.
	transactions := []models.Transaction{
		tx("C1", "P1", 1),
		tx("C1", "P2", 1),
		tx("C2", "P1", 1),
		tx("C2", "P2", 1),
	}
	customers := computeCustomers(transactions)

	recs := computeCustomerRecommendations(transactions, customers)

	for _, id := range []string{"C1", "C2"} {
		list, ok := recs[id]
		if !ok {
			t.Fatalf("customer %s missing from recommendations map", id)
		}
		if len(list) != 0 {
			t.Errorf("customer %s recommendations = %v, want empty", id, list)
		}
	}
}

func TestComputeCustomers(t *testing.T) {
	transactions := []models.Transaction{
		{CustomerID: "C2", CustomerSegment: "Gold"},
		{CustomerID: "C1", CustomerSegment: "Silver"},
		{CustomerID: "C2", CustomerSegment: "Bronze"}, // later segment ignored
	}

	customers := computeCustomers(transactions)

	if len(customers) != 2 {
		t.Fatalf("length = %d, want 2", len(customers))
	}
	if customers[0].ID != "C1" || customers[1].ID != "C2" {
		t.Errorf("customers not sorted by ID: %+v", customers)
	}
	if customers[1].Segment != "Gold" {
		t.Errorf("C2 segment = %s, want Gold (first transaction wins)", customers[1].Segment)
	}
	if customers[0].Name != "Customer C1" {
		t.Errorf("name = %s, want Customer C1", customers[0].Name)
	}
}

func TestAnalytics_Idempotence(t *testing.T) {
	transactions := []models.Transaction{
		tx("C1", "P1", 3),
		tx("C1", "P2", 2),
		tx("C2", "P1", 1),
		tx("C3", "P3", 7),
	}

	a := NewAnalytics(nil)
	a.UpdateData(transactions)
	first := a.Snapshot()

	a.UpdateData(transactions)
	second := a.Snapshot()

	if !reflect.DeepEqual(first.TopProducts, second.TopProducts) {
		t.Error("TopProducts differ across identical updates")
	}
	if !reflect.DeepEqual(first.CustomerDistribution, second.CustomerDistribution) {
		t.Error("CustomerDistribution differs across identical updates")
	}
	if !reflect.DeepEqual(first.RecommendedProducts, second.RecommendedProducts) {
		t.Error("RecommendedProducts differ across identical updates")
	}
	if !reflect.DeepEqual(first.Customers, second.Customers) {
		t.Error("Customers differ across identical updates")
	}
	if !reflect.DeepEqual(first.CustomerRecommendations, second.CustomerRecommendations) {
		t.Error("CustomerRecommendations differ across identical updates")
	}
	if !second.LastUpdated.After(first.LastUpdated) && !second.LastUpdated.Equal(first.LastUpdated) {
		t.Error("LastUpdated should move forward")
	}
}

func TestAnalytics_LoadFromCSV(t *testing.T) {
	csv := `TransactionID,CustomerID,ProductID,ProductCategory,PurchaseCount,Price,TotalAmount
T1,C1,P1,Food,3,10.0,30.0
T2,C1,P2,Drink,2,5.0,10.0
T3,C2,P1,Food,1,10.0,10.0`

	f := createTempCSV(t, csv)

	a := NewAnalytics(nil)
	if err := a.LoadFromCSV(context.Background(), f); err != nil {
		t.Fatalf("LoadFromCSV() error = %v", err)
	}

	if !a.HasData() {
		t.Error("HasData() = false after successful load")
	}
	if got := len(a.TopProducts()); got != 2 {
		t.Errorf("TopProducts() length = %d, want 2", got)
	}
}

func TestAnalytics_LoadFromCSV_MissingFile(t *testing.T) {
	a := NewAnalytics(nil)
	if err := a.LoadFromCSV(context.Background(), "does-not-exist.csv"); err == nil {
		t.Error("LoadFromCSV() with missing file should error")
	}
	if a.HasData() {
		t.Error("failed load must not install data")
	}
}

func TestAnalytics_LoadFromCSV_BadHeaderKeepsPriorSnapshot(t *testing.T) {
	a := NewAnalytics(nil)
	a.UpdateData([]models.Transaction{tx("C1", "P1", 1)})
	before := a.LastUpdated()

	f := createTempCSV(t, "TransactionID,CustomerID\nT1,C1")
	if err := a.LoadFromCSV(context.Background(), f); err == nil {
		t.Fatal("LoadFromCSV() with bad header should error")
	}

	if !a.LastUpdated().Equal(before) {
		t.Error("failed load must leave the prior snapshot untouched")
	}
	if got := len(a.Snapshot().Transactions); got != 1 {
		t.Errorf("transactions = %d, want prior snapshot intact", got)
	}
}

func TestAnalytics_EmptyData(t *testing.T) {
	a := NewAnalytics(nil)

	if len(a.TopProducts()) != 0 {
		t.Error("TopProducts() should be empty before any update")
	}
	if len(a.RecommendedProducts()) != 0 {
		t.Error("RecommendedProducts() should be empty before any update")
	}
	if len(a.Customers()) != 0 {
		t.Error("Customers() should be empty before any update")
	}
	if _, ok := a.RecommendationsFor("C1"); ok {
		t.Error("RecommendationsFor() should report unknown customer")
	}
}

func TestAnalytics_ConcurrentAccess(t *testing.T) {
	a := NewAnalytics(nil)
	a.UpdateData([]models.Transaction{
		tx("C1", "P1", 3),
		tx("C2", "P2", 1),
	})

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- true }()

			_ = a.TopProducts()
			_ = a.CustomerDistribution()
			_ = a.RecommendedProducts()
			_ = a.CustomerRecommendations()
			a.UpdateData([]models.Transaction{tx("C1", "P1", 1)})
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func BenchmarkAnalytics_UpdateData(b *testing.B) {
	transactions := make([]models.Transaction, 1000)
	for i := 0; i < 1000; i++ {
		transactions[i] = tx(
			fmt.Sprintf("C%d", i%50),
			fmt.Sprintf("P%d", i%100),
			float64(i%10),
		)
	}

	a := NewAnalytics(nil)

	b.ResetTimer()
	for b.Loop() {
		a.UpdateData(transactions)
	}
}

func BenchmarkComputeRecommendedProducts(b *testing.B) {
	transactions := make([]models.Transaction, 1000)
	for i := 0; i < 1000; i++ {
		transactions[i] = tx(
			fmt.Sprintf("C%d", i%50),
			fmt.Sprintf("P%d", i%100),
			1,
		)
	}

	b.ResetTimer()
	for b.Loop() {
		_ = computeRecommendedProducts(transactions)
	}
}
