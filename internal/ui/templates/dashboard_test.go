package templates

import (
	"context"
	"strings"
	"testing"
)

func TestProductImage(t *testing.T) {
	tests := []struct {
		name    string
		product string
		wantKey string
	}{
		{"exact match", "Matcha", "1582793988951"},
		{"substring match", "Premium Matcha Powder", "1582793988951"},
		{"case insensitive", "instant ramen cup", "1569718212165"},
		{"no match falls back", "Umbrella", "1542990253"},
		{"empty name falls back", "", "1542990253"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := ProductImage(tt.product)
			if !strings.Contains(url, tt.wantKey) {
				t.Errorf("ProductImage(%q) = %q, want photo id %s", tt.product, url, tt.wantKey)
			}
		})
	}
}

func TestDashboard_Render(t *testing.T) {
	var sb strings.Builder
	if err := Dashboard().Render(context.Background(), &sb); err != nil {
		t.Fatalf("render: %v", err)
	}
	html := sb.String()

	for _, want := range []string{
		"<!DOCTYPE html>",
		"DON DON DONKI",
		"@get('/sse/refresh-all')",
		"top-products-content",
		"distribution-content",
		"recommended-content",
		"customer-recs-content",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
}
