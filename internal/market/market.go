package market

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"flip-finder/internal/models"
)

// QuickCheckDiscountPct is the minimum discount against the market
// median that a listing must show before the expensive analysis stage
// is allowed to run.
const QuickCheckDiscountPct = 40

// ParsePrice extracts a non-negative float from a price string like
// "$1,234.56" or "1234". Garbage parses to 0.
func ParsePrice(s string) float64 {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

// Median returns the median of prices without mutating the input.
// Empty input returns 0; even length averages the central pair.
func Median(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	sorted := make([]float64, len(prices))
	copy(sorted, prices)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// Stats computes avg/min/max over prices. Zero values for empty input.
func Stats(prices []float64) (avg, min, max float64) {
	if len(prices) == 0 {
		return 0, 0, 0
	}
	min, max = prices[0], prices[0]
	var sum float64
	for _, p := range prices {
		sum += p
		if p < min {
			min = p
		}
		if p > max {
			max = p
		}
	}
	return sum / float64(len(prices)), min, max
}

// QuickCheckResult is the outcome of the cheap discount gate.
type QuickCheckResult struct {
	PassesQuickCheck  bool `json:"passes_quick_check"`
	EstimatedDiscount int  `json:"estimated_discount"`
}

// QuickDiscountCheck compares the asking price against the market
// median. A zero median means no usable data and always fails.
func QuickDiscountCheck(askingPrice float64, m *models.MarketPrice) QuickCheckResult {
	if m == nil || m.MedianPrice <= 0 {
		return QuickCheckResult{PassesQuickCheck: false, EstimatedDiscount: 0}
	}
	discount := int(math.Round((m.MedianPrice - askingPrice) / m.MedianPrice * 100))
	return QuickCheckResult{
		PassesQuickCheck:  discount >= QuickCheckDiscountPct,
		EstimatedDiscount: discount,
	}
}

// BuildMarketPrice aggregates comparable sales into a MarketPrice.
// Returns nil when there are no listings, so callers treat "no data"
// and "lookup failed" the same way.
func BuildMarketPrice(source, query string, listings []models.SoldListing) *models.MarketPrice {
	if len(listings) == 0 {
		return nil
	}
	prices := make([]float64, 0, len(listings))
	for _, l := range listings {
		prices = append(prices, l.Price+l.ShippingCost)
	}
	avg, min, max := Stats(prices)
	return &models.MarketPrice{
		Source:      source,
		Listings:    listings,
		MedianPrice: Median(prices),
		LowPrice:    min,
		HighPrice:   max,
		AvgPrice:    avg,
		SalesCount:  len(listings),
		SearchQuery: query,
		FetchedAt:   time.Now(),
	}
}
