package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewSSEHandlers(t *testing.T) {
	analytics := createTestAnalytics()
	logger := testLogger()

	handlers := NewSSEHandlers(analytics, logger)

	if handlers == nil {
		t.Fatal("NewSSEHandlers() returned nil")
	}
	if handlers.analytics != analytics {
		t.Error("NewSSEHandlers() should set analytics field")
	}
	if handlers.logger != logger {
		t.Error("NewSSEHandlers() should set logger field")
	}
}

func TestSSEHandlers_renderRecommendationsTable(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	html, err := handlers.renderRecommendationsTable()
	if err != nil {
		t.Fatalf("renderRecommendationsTable() failed: %v", err)
	}

	expectedContent := []string{
		`<div id="customer-recs-content">`,
		`<table class="modern-table">`,
		"<th>Customer</th>",
		"<th>Segment</th>",
		"<th>Recommended</th>",
		"<th>Confidence</th>",
		"Customer C1",
		"Gold",
		"Customer C2",
	}

	for _, content := range expectedContent {
		if !strings.Contains(html, content) {
			t.Errorf("expected HTML to contain %q", content)
		}
	}
}

func sseRequest(t *testing.T, handler http.HandlerFunc, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Accept", "text/event-stream")
	w := httptest.NewRecorder()

	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	ct := w.Header().Get("Content-Type")
	if !strings.Contains(ct, "text/event-stream") {
		t.Errorf("content-type = %q, want text/event-stream", ct)
	}
	return w
}

func TestSSEHandlers_HandleTopProducts(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	w := sseRequest(t, handlers.HandleTopProducts, "/sse/top-products")

	body := w.Body.String()
	if !strings.Contains(body, "topProductsData") {
		t.Error("response should patch topProductsData signal")
	}
	if !strings.Contains(body, "top-products-content") {
		t.Error("response should patch the top-products element")
	}
	if !strings.Contains(body, "P3") {
		t.Error("response should carry the product data")
	}
}

func TestSSEHandlers_HandleCustomerDistribution(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	w := sseRequest(t, handlers.HandleCustomerDistribution, "/sse/customer-distribution")

	body := w.Body.String()
	if !strings.Contains(body, "distributionData") {
		t.Error("response should patch distributionData signal")
	}
	if !strings.Contains(body, "46+") {
		t.Error("response should carry all ten buckets")
	}
}

func TestSSEHandlers_HandleRecommendedProducts(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	w := sseRequest(t, handlers.HandleRecommendedProducts, "/sse/recommended-products")

	if !strings.Contains(w.Body.String(), "recommendedData") {
		t.Error("response should patch recommendedData signal")
	}
}

func TestSSEHandlers_HandleCustomerRecommendations(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	w := sseRequest(t, handlers.HandleCustomerRecommendations, "/sse/customer-recommendations")

	if !strings.Contains(w.Body.String(), "customer-recs-content") {
		t.Error("response should patch the recommendations table")
	}
}

func TestSSEHandlers_HandleRefreshAll(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	w := sseRequest(t, handlers.HandleRefreshAll, "/sse/refresh-all")

	body := w.Body.String()
	for _, signal := range []string{"topProductsData", "distributionData", "recommendedData"} {
		if !strings.Contains(body, signal) {
			t.Errorf("refresh-all should patch %s", signal)
		}
	}
	if !strings.Contains(body, "customer-recs-content") {
		t.Error("refresh-all should patch the recommendations table")
	}
}

func TestSSEHandlers_EmptyData(t *testing.T) {
	handlers := NewSSEHandlers(newEmptyAnalytics(), testLogger())

	// Handlers must not panic or error with an empty store.
	w := sseRequest(t, handlers.HandleRefreshAll, "/sse/refresh-all")
	if w.Body.Len() == 0 {
		t.Error("refresh-all should still emit events with no data")
	}
}
