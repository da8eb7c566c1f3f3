package pricehistory

import (
	"context"
	"fmt"
	"log"
	"time"

	"flip-finder/internal/models"
	"flip-finder/internal/pacing"
	"flip-finder/internal/storage"
)

// MarketSource fetches sold comparables for a product query.
type MarketSource interface {
	FetchMarketPrice(ctx context.Context, query, category string) *models.MarketPrice
}

// Service records observed sale prices and refreshes listing valuations
// from them.
type Service struct {
	store  storage.Store
	market MarketSource
	clock  pacing.Clock
	pace   time.Duration
	logger *log.Logger
}

func NewService(store storage.Store, market MarketSource, clock pacing.Clock, pace time.Duration, logger *log.Logger) *Service {
	if clock == nil {
		clock = pacing.RealClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{store: store, market: market, clock: clock, pace: pace, logger: logger}
}

// FetchAndStore looks up current sold comparables for a product and
// writes one history row per sale, skipping rows whose natural key
// already exists. Returns the market data used, or nil when the lookup
// produced nothing.
func (s *Service) FetchAndStore(ctx context.Context, productName, category string) (*models.MarketPrice, error) {
	mp := s.market.FetchMarketPrice(ctx, productName, category)
	if mp == nil || mp.SalesCount == 0 {
		return nil, nil
	}

	// A failed insert on one sale never stops the remaining rows.
	inserted, skipped, failed := 0, 0, 0
	for _, sale := range mp.Listings {
		soldAt := mp.FetchedAt
		if sale.SoldDate != "" {
			if t, err := parseSoldDate(sale.SoldDate); err == nil {
				soldAt = t
			}
		}
		row := &models.PriceHistory{
			ProductName: productName,
			Category:    category,
			Platform:    mp.Source,
			SoldPrice:   sale.Price + sale.ShippingCost,
			Condition:   sale.Condition,
			SoldAt:      soldAt,
		}
		ok, err := s.store.InsertPriceHistory(ctx, row)
		if err != nil {
			failed++
			s.logger.Printf("price history %q: store sale at $%.2f: %v", productName, row.SoldPrice, err)
			continue
		}
		if ok {
			inserted++
		} else {
			skipped++
		}
	}
	s.logger.Printf("price history %q: %d inserted, %d duplicates skipped, %d failed",
		productName, inserted, skipped, failed)
	return mp, nil
}

// UpdateListingWithMarketValue refreshes one listing's verified market
// value from live comparables. Unknown IDs return storage.ErrNotFound;
// a lookup with no market data is a silent no-op.
func (s *Service) UpdateListingWithMarketValue(ctx context.Context, id uint) error {
	l, err := s.store.GetListing(ctx, id)
	if err != nil {
		return err
	}

	query := l.Title
	mp, err := s.FetchAndStore(ctx, query, l.Category)
	if err != nil {
		return err
	}
	if mp == nil {
		s.logger.Printf("listing %d: no market data for %q, skipping value update", id, query)
		return nil
	}

	discount := 0.0
	if mp.MedianPrice > 0 {
		discount = (mp.MedianPrice - l.AskingPrice) / mp.MedianPrice * 100
	}
	return s.store.UpdateListingMarketValue(ctx, id, mp.MedianPrice, discount)
}

// BatchUpdate refreshes many listings sequentially with a pacing delay
// between lookups. A failure on one ID is recorded and the batch
// continues.
func (s *Service) BatchUpdate(ctx context.Context, ids []uint) models.BatchUpdateResult {
	var result models.BatchUpdateResult
	for i, id := range ids {
		if i > 0 {
			if err := s.clock.Sleep(ctx, s.pace); err != nil {
				for _, rest := range ids[i:] {
					result.Failed++
					result.Errors = append(result.Errors, models.BatchUpdateError{
						ListingID: rest,
						Error:     err.Error(),
					})
				}
				return result
			}
		}
		if err := s.UpdateListingWithMarketValue(ctx, id); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, models.BatchUpdateError{
				ListingID: id,
				Error:     err.Error(),
			})
			continue
		}
		result.Success++
	}
	return result
}

// parseSoldDate handles the date formats sold-listing captions use.
func parseSoldDate(s string) (time.Time, error) {
	for _, layout := range []string{"Jan 2, 2006", "Jan-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized sold date %q", s)
}
