package pricehistory

import (
	"context"
	"errors"
	"testing"
	"time"

	"flip-finder/internal/models"
	"flip-finder/internal/storage"
)

type fakeMarket struct {
	result *models.MarketPrice
}

func (f *fakeMarket) FetchMarketPrice(ctx context.Context, query, category string) *models.MarketPrice {
	return f.result
}

type fakeClock struct {
	sleeps int
}

func (f *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	f.sleeps++
	return nil
}

// fakeStore implements storage.Store in memory with natural-key dedup.
type fakeStore struct {
	listings map[uint]*models.Listing
	history  []models.PriceHistory
	updates  map[uint][2]float64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		listings: make(map[uint]*models.Listing),
		updates:  make(map[uint][2]float64),
	}
}

func (s *fakeStore) UpsertListing(ctx context.Context, l *models.Listing) error { return nil }

func (s *fakeStore) GetListing(ctx context.Context, id uint) (*models.Listing, error) {
	l, ok := s.listings[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return l, nil
}

func (s *fakeStore) ListListings(ctx context.Context, f storage.ListingFilter) ([]models.Listing, error) {
	return nil, nil
}

func (s *fakeStore) ListOpportunities(ctx context.Context, limit int) ([]models.Listing, error) {
	return nil, nil
}

func (s *fakeStore) UpdateListingMarketValue(ctx context.Context, id uint, v, d float64) error {
	if _, ok := s.listings[id]; !ok {
		return storage.ErrNotFound
	}
	s.updates[id] = [2]float64{v, d}
	return nil
}

func (s *fakeStore) InsertPriceHistory(ctx context.Context, h *models.PriceHistory) (bool, error) {
	for _, existing := range s.history {
		if existing.ProductName == h.ProductName && existing.Platform == h.Platform &&
			existing.SoldPrice == h.SoldPrice && existing.SoldAt.Equal(h.SoldAt) {
			return false, nil
		}
	}
	s.history = append(s.history, *h)
	return true, nil
}

func (s *fakeStore) GetPriceHistory(ctx context.Context, q storage.PriceQuery) ([]models.PriceHistory, storage.PriceStats, error) {
	return s.history, storage.ComputeStats(s.history), nil
}

func marketWith(sales ...models.SoldListing) *models.MarketPrice {
	return &models.MarketPrice{
		Source:      "ebay",
		Listings:    sales,
		MedianPrice: 100,
		SalesCount:  len(sales),
		FetchedAt:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestFetchAndStoreNoMarketData(t *testing.T) {
	s := NewService(newFakeStore(), &fakeMarket{result: nil}, &fakeClock{}, 0, nil)
	mp, err := s.FetchAndStore(context.Background(), "iPhone 14", "phones")
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if mp != nil {
		t.Error("no market data should return nil, nil")
	}
}

func TestFetchAndStoreRecordsSales(t *testing.T) {
	store := newFakeStore()
	mk := &fakeMarket{result: marketWith(
		models.SoldListing{Title: "a", Price: 90, ShippingCost: 10, SoldDate: "Aug 10, 2026"},
		models.SoldListing{Title: "b", Price: 110},
	)}
	s := NewService(store, mk, &fakeClock{}, 0, nil)

	mp, err := s.FetchAndStore(context.Background(), "iPhone 14", "phones")
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if mp == nil {
		t.Fatal("expected market data back")
	}
	if len(store.history) != 2 {
		t.Fatalf("history rows = %d, want 2", len(store.history))
	}
	if store.history[0].SoldPrice != 100 {
		t.Errorf("sold price should include shipping, got %v", store.history[0].SoldPrice)
	}
	want := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	if !store.history[0].SoldAt.Equal(want) {
		t.Errorf("SoldAt = %v, want parsed date %v", store.history[0].SoldAt, want)
	}
	// Unparseable or absent dates fall back to the fetch time.
	if !store.history[1].SoldAt.Equal(mk.result.FetchedAt) {
		t.Errorf("SoldAt = %v, want fetch time", store.history[1].SoldAt)
	}
}

func TestFetchAndStoreSkipsDuplicates(t *testing.T) {
	store := newFakeStore()
	mk := &fakeMarket{result: marketWith(
		models.SoldListing{Title: "a", Price: 100, SoldDate: "Aug 10, 2026"},
	)}
	s := NewService(store, mk, &fakeClock{}, 0, nil)

	for i := 0; i < 2; i++ {
		if _, err := s.FetchAndStore(context.Background(), "iPhone 14", "phones"); err != nil {
			t.Fatalf("err = %v", err)
		}
	}
	if len(store.history) != 1 {
		t.Errorf("history rows = %d, want 1 after duplicate fetch", len(store.history))
	}
}

// failingInsertStore rejects inserts at one sold price and delegates
// the rest.
type failingInsertStore struct {
	*fakeStore
	failPrice float64
}

func (s *failingInsertStore) InsertPriceHistory(ctx context.Context, h *models.PriceHistory) (bool, error) {
	if h.SoldPrice == s.failPrice {
		return false, errors.New("deadlock")
	}
	return s.fakeStore.InsertPriceHistory(ctx, h)
}

func TestFetchAndStoreContinuesPastInsertFailure(t *testing.T) {
	store := &failingInsertStore{fakeStore: newFakeStore(), failPrice: 110}
	mk := &fakeMarket{result: marketWith(
		models.SoldListing{Title: "a", Price: 90},
		models.SoldListing{Title: "b", Price: 110},
		models.SoldListing{Title: "c", Price: 120},
	)}
	s := NewService(store, mk, &fakeClock{}, 0, nil)

	mp, err := s.FetchAndStore(context.Background(), "iPhone 14", "phones")
	if err != nil {
		t.Fatalf("one bad row must not fail the fetch, got %v", err)
	}
	if mp == nil {
		t.Fatal("market data should still be returned")
	}
	if len(store.history) != 2 {
		t.Fatalf("history rows = %d, want the 2 good sales stored", len(store.history))
	}
	for _, row := range store.history {
		if row.SoldPrice == 110 {
			t.Error("failed row should not be stored")
		}
	}
}

func TestUpdateListingNotFound(t *testing.T) {
	s := NewService(newFakeStore(), &fakeMarket{}, &fakeClock{}, 0, nil)
	err := s.UpdateListingWithMarketValue(context.Background(), 42)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateListingNoMarketDataIsNoOp(t *testing.T) {
	store := newFakeStore()
	store.listings[1] = &models.Listing{ID: 1, Title: "iPhone 14", AskingPrice: 60}
	s := NewService(store, &fakeMarket{result: nil}, &fakeClock{}, 0, nil)

	if err := s.UpdateListingWithMarketValue(context.Background(), 1); err != nil {
		t.Fatalf("no market data should be a silent no-op, got %v", err)
	}
	if len(store.updates) != 0 {
		t.Error("no update should be written")
	}
}

func TestUpdateListingWritesMedianAndDiscount(t *testing.T) {
	store := newFakeStore()
	store.listings[1] = &models.Listing{ID: 1, Title: "iPhone 14", AskingPrice: 60}
	mk := &fakeMarket{result: marketWith(models.SoldListing{Title: "a", Price: 100})}
	s := NewService(store, mk, &fakeClock{}, 0, nil)

	if err := s.UpdateListingWithMarketValue(context.Background(), 1); err != nil {
		t.Fatalf("err = %v", err)
	}
	got, ok := store.updates[1]
	if !ok {
		t.Fatal("update not written")
	}
	if got[0] != 100 {
		t.Errorf("verified value = %v, want median 100", got[0])
	}
	if got[1] != 40 {
		t.Errorf("discount = %v, want 40", got[1])
	}
}

func TestBatchUpdateAllNotFound(t *testing.T) {
	s := NewService(newFakeStore(), &fakeMarket{}, &fakeClock{}, 0, nil)
	ids := []uint{1, 2, 3}

	result := s.BatchUpdate(context.Background(), ids)
	if result.Success != 0 {
		t.Errorf("success = %d, want 0", result.Success)
	}
	if result.Failed != len(ids) {
		t.Errorf("failed = %d, want %d", result.Failed, len(ids))
	}
	if len(result.Errors) != len(ids) {
		t.Errorf("errors = %d, want %d", len(result.Errors), len(ids))
	}
}

func TestBatchUpdatePacesBetweenItems(t *testing.T) {
	store := newFakeStore()
	store.listings[1] = &models.Listing{ID: 1, Title: "a", AskingPrice: 50}
	store.listings[2] = &models.Listing{ID: 2, Title: "b", AskingPrice: 50}
	store.listings[3] = &models.Listing{ID: 3, Title: "c", AskingPrice: 50}
	mk := &fakeMarket{result: marketWith(models.SoldListing{Title: "x", Price: 100})}
	clock := &fakeClock{}
	s := NewService(store, mk, clock, time.Second, nil)

	result := s.BatchUpdate(context.Background(), []uint{1, 2, 3})
	if result.Success != 3 {
		t.Errorf("success = %d, want 3: %+v", result.Success, result.Errors)
	}
	if clock.sleeps != 2 {
		t.Errorf("sleeps = %d, want 2 (between items, not before the first)", clock.sleeps)
	}
}

func TestBatchUpdateContinuesPastFailure(t *testing.T) {
	store := newFakeStore()
	store.listings[2] = &models.Listing{ID: 2, Title: "b", AskingPrice: 50}
	mk := &fakeMarket{result: marketWith(models.SoldListing{Title: "x", Price: 100})}
	s := NewService(store, mk, &fakeClock{}, 0, nil)

	result := s.BatchUpdate(context.Background(), []uint{1, 2})
	if result.Success != 1 || result.Failed != 1 {
		t.Errorf("success/failed = %d/%d, want 1/1", result.Success, result.Failed)
	}
	if len(result.Errors) != 1 || result.Errors[0].ListingID != 1 {
		t.Errorf("errors = %+v", result.Errors)
	}
}
