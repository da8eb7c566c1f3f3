package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"flip-finder/internal/market"
	"flip-finder/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("storage: not found")
	// ErrNotImplemented is returned by backends that do not support an
	// operation. Callers can detect it with errors.Is and degrade.
	ErrNotImplemented = errors.New("storage: not implemented")
)

// ListingFilter narrows ListListings.
type ListingFilter struct {
	Platform string
	Category string
	Status   string
	Limit    int
}

// PriceQuery selects price history rows by partial product name and
// optional exact category.
type PriceQuery struct {
	Name     string
	Category string
}

// PriceStats summarizes matching price history. All zero when nothing
// matches.
type PriceStats struct {
	Count  int     `json:"count"`
	Avg    float64 `json:"avg"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Store is the persistence capability the pipeline depends on.
type Store interface {
	UpsertListing(ctx context.Context, l *models.Listing) error
	GetListing(ctx context.Context, id uint) (*models.Listing, error)
	ListListings(ctx context.Context, f ListingFilter) ([]models.Listing, error)
	ListOpportunities(ctx context.Context, limit int) ([]models.Listing, error)
	UpdateListingMarketValue(ctx context.Context, id uint, verifiedValue, trueDiscount float64) error

	// InsertPriceHistory reports true when a row was written, false
	// when the natural key already existed.
	InsertPriceHistory(ctx context.Context, h *models.PriceHistory) (bool, error)
	GetPriceHistory(ctx context.Context, q PriceQuery) ([]models.PriceHistory, PriceStats, error)
}

type gormStore struct {
	db *gorm.DB
}

// New wraps a gorm connection in the Store interface.
func New(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// listingConflict resolves duplicate inserts on the natural key: the
// existing row's analysis columns are refreshed, the key columns and
// created_at are left alone.
var listingConflict = clause.OnConflict{
	Columns: []clause.Column{{Name: "platform"}, {Name: "external_id"}},
	DoUpdates: clause.AssignmentColumns([]string{
		"url", "title", "description", "asking_price", "condition",
		"location", "seller_name", "image_urls", "category", "posted_at",
		"estimated_value", "estimated_low", "estimated_high",
		"profit_potential", "profit_low", "profit_high",
		"value_score", "discount_percent", "resale_difficulty",
		"shippable", "negotiable", "tags", "comparable_urls", "reasoning",
		"verified_market_value", "true_discount_percent", "sellability_score",
		"outreach_message", "is_opportunity", "status", "updated_at",
	}),
}

// UpsertListing inserts or, when (platform, external_id) already exists,
// updates the analysis columns of the existing row.
func (s *gormStore) UpsertListing(ctx context.Context, l *models.Listing) error {
	err := s.db.WithContext(ctx).Clauses(listingConflict).Create(l).Error
	if err != nil {
		return fmt.Errorf("upsert listing %s/%s: %w", l.Platform, l.ExternalID, err)
	}
	return nil
}

func (s *gormStore) GetListing(ctx context.Context, id uint) (*models.Listing, error) {
	var l models.Listing
	err := s.db.WithContext(ctx).First(&l, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("listing %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get listing %d: %w", id, err)
	}
	return &l, nil
}

func (s *gormStore) ListListings(ctx context.Context, f ListingFilter) ([]models.Listing, error) {
	q := s.db.WithContext(ctx).Model(&models.Listing{})
	if f.Platform != "" {
		q = q.Where("platform = ?", f.Platform)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var out []models.Listing
	if err := q.Order("value_score DESC, profit_potential DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	return out, nil
}

func (s *gormStore) ListOpportunities(ctx context.Context, limit int) ([]models.Listing, error) {
	q := s.db.WithContext(ctx).
		Where("is_opportunity = ?", true).
		Order("value_score DESC, profit_potential DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []models.Listing
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list opportunities: %w", err)
	}
	return out, nil
}

func (s *gormStore) UpdateListingMarketValue(ctx context.Context, id uint, verifiedValue, trueDiscount float64) error {
	res := s.db.WithContext(ctx).Model(&models.Listing{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"verified_market_value": verifiedValue,
			"true_discount_percent": trueDiscount,
		})
	if res.Error != nil {
		return fmt.Errorf("update listing %d market value: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("listing %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *gormStore) InsertPriceHistory(ctx context.Context, h *models.PriceHistory) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.PriceHistory{}).
		Where("product_name = ? AND platform = ? AND sold_price = ? AND sold_at = ?",
			h.ProductName, h.Platform, h.SoldPrice, h.SoldAt).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check price history dup: %w", err)
	}
	if count > 0 {
		return false, nil
	}
	if err := s.db.WithContext(ctx).Create(h).Error; err != nil {
		return false, fmt.Errorf("insert price history: %w", err)
	}
	return true, nil
}

func (s *gormStore) GetPriceHistory(ctx context.Context, q PriceQuery) ([]models.PriceHistory, PriceStats, error) {
	db := s.db.WithContext(ctx).Model(&models.PriceHistory{})
	if q.Name != "" {
		db = db.Where("product_name LIKE ?", "%"+q.Name+"%")
	}
	if q.Category != "" {
		db = db.Where("category = ?", q.Category)
	}
	var rows []models.PriceHistory
	if err := db.Order("sold_at DESC").Find(&rows).Error; err != nil {
		return nil, PriceStats{}, fmt.Errorf("get price history: %w", err)
	}
	return rows, ComputeStats(rows), nil
}

// ComputeStats summarizes price history rows; all zero for empty input.
func ComputeStats(rows []models.PriceHistory) PriceStats {
	if len(rows) == 0 {
		return PriceStats{}
	}
	prices := make([]float64, len(rows))
	for i, r := range rows {
		prices[i] = r.SoldPrice
	}
	avg, min, max := market.Stats(prices)
	return PriceStats{
		Count:  len(rows),
		Avg:    avg,
		Median: market.Median(prices),
		Min:    min,
		Max:    max,
	}
}

// NotImplemented is a Store whose every operation fails with
// ErrNotImplemented. It stands in where persistence is intentionally
// absent so misuse surfaces as a typed error instead of a panic.
func NotImplemented() Store {
	return notImplementedStore{}
}

type notImplementedStore struct{}

func (notImplementedStore) UpsertListing(context.Context, *models.Listing) error {
	return ErrNotImplemented
}

func (notImplementedStore) GetListing(context.Context, uint) (*models.Listing, error) {
	return nil, ErrNotImplemented
}

func (notImplementedStore) ListListings(context.Context, ListingFilter) ([]models.Listing, error) {
	return nil, ErrNotImplemented
}

func (notImplementedStore) ListOpportunities(context.Context, int) ([]models.Listing, error) {
	return nil, ErrNotImplemented
}

func (notImplementedStore) UpdateListingMarketValue(context.Context, uint, float64, float64) error {
	return ErrNotImplemented
}

func (notImplementedStore) InsertPriceHistory(context.Context, *models.PriceHistory) (bool, error) {
	return false, ErrNotImplemented
}

func (notImplementedStore) GetPriceHistory(context.Context, PriceQuery) ([]models.PriceHistory, PriceStats, error) {
	return nil, PriceStats{}, ErrNotImplemented
}
