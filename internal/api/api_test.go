package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"flip-finder/internal/models"
	"flip-finder/internal/pipeline"
	"flip-finder/internal/storage"
)

// flakyStore fails UpsertListing for chosen external IDs and records
// every attempt.
type flakyStore struct {
	failOn   map[string]bool
	attempts []string
}

func (s *flakyStore) UpsertListing(ctx context.Context, l *models.Listing) error {
	s.attempts = append(s.attempts, l.ExternalID)
	if s.failOn[l.ExternalID] {
		return errors.New("storage unavailable")
	}
	return nil
}

func (s *flakyStore) GetListing(ctx context.Context, id uint) (*models.Listing, error) {
	return nil, storage.ErrNotFound
}

func (s *flakyStore) ListListings(ctx context.Context, f storage.ListingFilter) ([]models.Listing, error) {
	return nil, nil
}

func (s *flakyStore) ListOpportunities(ctx context.Context, limit int) ([]models.Listing, error) {
	return nil, nil
}

func (s *flakyStore) UpdateListingMarketValue(ctx context.Context, id uint, v, d float64) error {
	return nil
}

func (s *flakyStore) InsertPriceHistory(ctx context.Context, h *models.PriceHistory) (bool, error) {
	return true, nil
}

func (s *flakyStore) GetPriceHistory(ctx context.Context, q storage.PriceQuery) ([]models.PriceHistory, storage.PriceStats, error) {
	return nil, storage.PriceStats{}, nil
}

func scanRouter(store storage.Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	analyzer := pipeline.NewAnalyzer(nil, nil, nil, nil, false, 1)
	SetupRoutes(r.Group("/api/v1"), store, analyzer, nil)
	return r
}

func TestPostScanSurvivesStoreFailure(t *testing.T) {
	store := &flakyStore{failOn: map[string]bool{"b": true}}
	r := scanRouter(store)

	body, _ := json.Marshal(map[string]any{
		"platform": "craigslist",
		"listings": []models.RawListing{
			{ExternalID: "a", Title: "iPhone 14", AskingPrice: 100},
			{ExternalID: "b", Title: "PS5", AskingPrice: 200},
			{ExternalID: "c", Title: "DeWalt drill", AskingPrice: 50},
		},
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/scan", bytes.NewReader(body))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if len(store.attempts) != 3 {
		t.Errorf("upsert attempts = %v, want all 3 listings tried", store.attempts)
	}

	var resp struct {
		Summary     models.ScanSummary `json:"summary"`
		Stored      int                `json:"stored"`
		StoreErrors []struct {
			ExternalID string `json:"external_id"`
			Error      string `json:"error"`
		} `json:"store_errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Summary.TotalListings != 3 {
		t.Errorf("summary listings = %d, want 3", resp.Summary.TotalListings)
	}
	if resp.Stored != 2 {
		t.Errorf("stored = %d, want 2", resp.Stored)
	}
	if len(resp.StoreErrors) != 1 || resp.StoreErrors[0].ExternalID != "b" {
		t.Errorf("store errors = %+v, want one for listing b", resp.StoreErrors)
	}
}

func TestPostScanAllStoresFail(t *testing.T) {
	store := &flakyStore{failOn: map[string]bool{"a": true, "b": true}}
	r := scanRouter(store)

	body, _ := json.Marshal(map[string]any{
		"platform": "craigslist",
		"listings": []models.RawListing{
			{ExternalID: "a", Title: "iPhone 14", AskingPrice: 100},
			{ExternalID: "b", Title: "PS5", AskingPrice: 200},
		},
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/scan", bytes.NewReader(body))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even when no row persists", w.Code)
	}
	var resp struct {
		Stored      int             `json:"stored"`
		StoreErrors []any           `json:"store_errors"`
		Summary     json.RawMessage `json:"summary"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Stored != 0 || len(resp.StoreErrors) != 2 {
		t.Errorf("stored/errors = %d/%d, want 0/2", resp.Stored, len(resp.StoreErrors))
	}
	if len(resp.Summary) == 0 {
		t.Error("summary must be reported even when every write fails")
	}
}
