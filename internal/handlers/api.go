package handlers

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/google/uuid"

	"donki-dashboard/internal/errors"
	"donki-dashboard/internal/ingest"
	"donki-dashboard/internal/observability"
	"donki-dashboard/internal/services"
	"donki-dashboard/internal/storage"
)

const cacheControl = "public, max-age=300"

type APIHandlers struct {
	analytics      *services.Analytics
	store          *storage.Store
	logger         *slog.Logger
	maxUploadBytes int64
}

// NewAPIHandlers wires the REST endpoints. store may be nil when
// snapshot persistence is disabled.
func NewAPIHandlers(analytics *services.Analytics, store *storage.Store, logger *slog.Logger, maxUploadBytes int64) *APIHandlers {
	return &APIHandlers{
		analytics:      analytics,
		store:          store,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

func (h *APIHandlers) HandleTopProducts(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.analytics.TopProducts(), map[string]string{
		"Cache-Control": cacheControl,
	})
}

func (h *APIHandlers) HandleCustomerDistribution(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.analytics.CustomerDistribution(), map[string]string{
		"Cache-Control": cacheControl,
	})
}

func (h *APIHandlers) HandleRecommendedProducts(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.analytics.RecommendedProducts(), map[string]string{
		"Cache-Control": cacheControl,
	})
}

func (h *APIHandlers) HandleCustomers(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.analytics.Customers(), map[string]string{
		"Cache-Control": cacheControl,
	})
}

func (h *APIHandlers) HandleCustomerRecommendations(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.analytics.CustomerRecommendations())
}

func (h *APIHandlers) HandleCustomerRecommendationsByID(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	customerID := r.PathValue("id")
	recs, ok := h.analytics.RecommendationsFor(customerID)
	if !ok {
		errors.WriteError(w, h.logger, errors.NotFound("unknown customer: "+customerID), requestID)
		return
	}

	errors.WriteSuccess(w, recs)
}

// HandleUpload replaces the whole dataset with an uploaded CSV. The
// body may be a multipart form with a "file" field or raw CSV text.
// A parse failure leaves the prior snapshot untouched.
func (h *APIHandlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())
	uploadID := uuid.NewString()

	_, span := observability.StartSpan(r.Context(), "upload dataset")
	defer span.Finish()
	span.SetTag("upload_id", uploadID)

	raw, err := h.readUploadBody(w, r)
	if err != nil {
		errors.WriteError(w, h.logger, errors.BadRequestWrap(err, "Failed to read uploaded file"), requestID)
		return
	}

	parser := ingest.NewParser(h.logger)
	transactions, err := parser.Parse(string(raw))
	if err != nil {
		span.SetError(err)
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	h.analytics.UpdateData(transactions)

	if h.store != nil {
		if err := h.store.Save(h.analytics.Snapshot()); err != nil {
			// The in-memory views are already live; persistence failure
			// only costs durability across restarts.
			h.logger.Warn("failed to persist snapshot",
				"upload_id", uploadID,
				"error", err,
			)
		}
	}

	h.logger.Info("dataset replaced",
		"upload_id", uploadID,
		"records", len(transactions),
		"request_id", requestID,
	)

	errors.WriteSuccess(w, map[string]any{
		"upload_id":    uploadID,
		"records":      len(transactions),
		"last_updated": h.analytics.LastUpdated(),
	})
}

func (h *APIHandlers) readUploadBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			return nil, err
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return io.ReadAll(file)
	}

	return io.ReadAll(r.Body)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"has_data":  h.analytics.HasData(),
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.analytics.Stats())
}
