package templates

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Catalog image URLs for recommendation cards, matched by product name.
var productImages = map[string]string{
	"Bento":       "https://images.unsplash.com/photo-1530260626688-048d70fd1e68?q=80&w=300&auto=format&fit=crop",
	"Sushi":       "https://images.unsplash.com/photo-1579871494447-9811cf80d66c?q=80&w=300&auto=format&fit=crop",
	"Ramen":       "https://images.unsplash.com/photo-1569718212165-3a8278d5f624?q=80&w=300&auto=format&fit=crop",
	"Sake":        "https://images.unsplash.com/photo-1627436580244-b10f3919e8d4?q=80&w=300&auto=format&fit=crop",
	"Matcha":      "https://images.unsplash.com/photo-1582793988951-9aed5509eb97?q=80&w=300&auto=format&fit=crop",
	"Mochi":       "https://images.unsplash.com/photo-1581798459219-318e68f60ae5?q=80&w=300&auto=format&fit=crop",
	"Snacks":      "https://images.unsplash.com/photo-1461009683693-342af2f2d6ce?q=80&w=300&auto=format&fit=crop",
	"Tea":         "https://images.unsplash.com/photo-1563514227147-6d2ff665a6a0?q=80&w=300&auto=format&fit=crop",
	"Wagyu":       "https://images.unsplash.com/photo-1603356033288-acfcb54801e6?q=80&w=300&auto=format&fit=crop",
	"Kitchenware": "https://images.unsplash.com/photo-1593618998160-e34014e67546?q=80&w=300&auto=format&fit=crop",
	"Stationery":  "https://images.unsplash.com/photo-1608389168343-ba8aa0cb3a71?q=80&w=300&auto=format&fit=crop",
	"Beauty":      "https://images.unsplash.com/photo-1556228720-195a672e8a03?q=80&w=300&auto=format&fit=crop",
	"Anime":       "https://images.unsplash.com/photo-1608042314453-ae338d80c427?q=80&w=300&auto=format&fit=crop",
	"Manga":       "https://images.unsplash.com/photo-1531501410720-c8d437636169?q=80&w=300&auto=format&fit=crop",
}

const defaultProductImage = "https://images.unsplash.com/photo-1542990253-0d0f5be5f0ed?q=80&w=300&auto=format&fit=crop"

// ProductImage resolves a catalog image for a product name: exact
// match first, then substring match, then a default.
func ProductImage(productName string) string {
	if url, ok := productImages[productName]; ok {
		return url
	}
	lower := strings.ToLower(productName)
	for key, url := range productImages {
		if strings.Contains(lower, strings.ToLower(key)) {
			return url
		}
	}
	return defaultProductImage
}

// Dashboard renders the single-page dashboard shell. Chart data is
// streamed in through the /sse endpoints after load.
func Dashboard() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, dashboardHTML)
		return err
	})
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8"/>
<meta name="viewport" content="width=device-width, initial-scale=1"/>
<title>DON DON DONKI – Customer Insights</title>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@main/bundles/datastar.js"></script>
<style>
body { font-family: system-ui, sans-serif; margin: 0; background: #121212; color: #eee; }
header { background: #000; border-bottom: 1px solid rgba(255,215,0,.2); padding: 1rem 2rem; }
header h1 { color: gold; font-size: 1.25rem; margin: 0; }
main { padding: 2rem; max-width: 1100px; margin: 0 auto; }
.tabs { display: flex; gap: .5rem; margin-bottom: 1.5rem; }
.tabs button { background: #1e1e1e; color: #eee; border: 1px solid rgba(255,215,0,.3); border-radius: .5rem; padding: .5rem 1rem; cursor: pointer; }
.tabs button.active { background: gold; color: #000; }
.panel { background: #1a1a1a; border: 1px solid rgba(255,215,0,.15); border-radius: .75rem; padding: 1.5rem; margin-bottom: 1.5rem; }
.modern-table { width: 100%; border-collapse: collapse; }
.modern-table th, .modern-table td { text-align: left; padding: .5rem .75rem; border-bottom: 1px solid #2a2a2a; }
.category-badge { background: rgba(255,215,0,.15); border-radius: .5rem; padding: .1rem .5rem; font-size: .8rem; }
</style>
</head>
<body data-signals="{topProductsData: [], distributionData: [], recommendedData: []}">
<header><h1>DON DON DONKI – Customer Insights</h1></header>
<main data-on-load="@get('/sse/refresh-all')">
<div class="tabs">
<button class="active" data-on-click="@get('/sse/top-products')">Top Products</button>
<button data-on-click="@get('/sse/customer-distribution')">Customer Distribution</button>
<button data-on-click="@get('/sse/recommended-products')">Recommended Products</button>
<button data-on-click="@get('/sse/customer-recommendations')">Customer Recommendations</button>
</div>
<div class="panel"><div id="top-products-content">Loading top products…</div></div>
<div class="panel"><div id="distribution-content">Loading customer distribution…</div></div>
<div class="panel"><div id="recommended-content">Loading recommended products…</div></div>
<div class="panel"><div id="customer-recs-content">Loading customer recommendations…</div></div>
</main>
</body>
</html>`
