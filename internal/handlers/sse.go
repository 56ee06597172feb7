package handlers

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"donki-dashboard/internal/models"
	"donki-dashboard/internal/services"
)

var recommendationsTableTemplate = template.Must(template.New("recsTable").Funcs(template.FuncMap{
	"percent": func(c float64) float64 { return c * 100 },
}).Parse(`
<div id="customer-recs-content">
<table class="modern-table">
<thead><tr><th>Customer</th><th>Segment</th><th>Recommended</th><th>Confidence</th></tr></thead>
<tbody>
{{range .Customers}}{{$c := .}}{{range index $.Recommendations $c.ID}}<tr>
<td>{{$c.Name}}</td>
<td><span class="category-badge">{{$c.Segment}}</span></td>
<td>{{.Name}}</td>
<td><strong>{{printf "%.0f%%" (percent .Confidence)}}</strong></td>
</tr>{{end}}{{end}}
</tbody>
</table>
</div>`))

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

func (h *SSEHandlers) HandleTopProducts(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	jsonData, err := json.Marshal(map[string]any{
		"topProductsData": h.analytics.TopProducts(),
	})
	if err != nil {
		h.logger.Error("marshal top products data", "error", err)
		return
	}
	sse.PatchSignals(jsonData)

	sse.PatchElements(`<div id="top-products-content">Top products chart data loaded</div>`)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleCustomerDistribution(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	jsonData, err := json.Marshal(map[string]any{
		"distributionData": h.analytics.CustomerDistribution(),
	})
	if err != nil {
		h.logger.Error("marshal distribution data", "error", err)
		return
	}
	sse.PatchSignals(jsonData)

	sse.PatchElements(`<div id="distribution-content">Customer distribution chart data loaded</div>`)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleRecommendedProducts(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	jsonData, err := json.Marshal(map[string]any{
		"recommendedData": h.analytics.RecommendedProducts(),
	})
	if err != nil {
		h.logger.Error("marshal recommended products data", "error", err)
		return
	}
	sse.PatchSignals(jsonData)

	sse.PatchElements(`<div id="recommended-content">Recommended products chart data loaded</div>`)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleCustomerRecommendations(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	html, err := h.renderRecommendationsTable()
	if err != nil {
		h.logger.Error("render recommendations table", "error", err)
		return
	}
	sse.PatchElements(html)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	html, err := h.renderRecommendationsTable()
	if err != nil {
		h.logger.Error("render recommendations table", "error", err)
		return
	}
	sse.PatchElements(html)

	allSignals, err := json.Marshal(map[string]any{
		"topProductsData":  h.analytics.TopProducts(),
		"distributionData": h.analytics.CustomerDistribution(),
		"recommendedData":  h.analytics.RecommendedProducts(),
	})
	if err != nil {
		h.logger.Error("marshal all signals data", "error", err)
		return
	}
	sse.PatchSignals(allSignals)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) renderRecommendationsTable() (string, error) {
	var buf strings.Builder

	data := struct {
		Customers       []models.Customer
		Recommendations map[string][]models.PersonalizedRecommendation
	}{
		Customers:       h.analytics.Customers(),
		Recommendations: h.analytics.CustomerRecommendations(),
	}

	err := recommendationsTableTemplate.Execute(&buf, data)
	return buf.String(), err
}
