package models

import (
	"time"

	"gorm.io/gorm"
)

// Listing status values. Status is always derived from the final
// opportunity decision and is never written independently of it.
const (
	StatusNew         = "NEW"
	StatusOpportunity = "OPPORTUNITY"
)

// Listing is the stored decision record for one analyzed marketplace
// listing. Reprocessing the same external listing upserts on
// (platform, external_id) instead of creating a second row.
type Listing struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Platform    string `json:"platform" gorm:"not null;uniqueIndex:idx_listings_platform_external"`
	ExternalID  string `json:"external_id" gorm:"not null;uniqueIndex:idx_listings_platform_external"`
	URL         string `json:"url"`
	Title       string `json:"title" gorm:"not null"`
	Description string `json:"description" gorm:"type:text"`
	AskingPrice float64 `json:"asking_price"`
	Condition   string  `json:"condition"`
	Location    string  `json:"location"`
	SellerName  string  `json:"seller_name"`
	ImageURLs   string  `json:"image_urls" gorm:"type:text"` // comma-joined
	Category    string  `json:"category" gorm:"index"`
	PostedAt    *time.Time `json:"posted_at"`

	// Heuristic estimation
	EstimatedValue   float64 `json:"estimated_value"`
	EstimatedLow     float64 `json:"estimated_low"`
	EstimatedHigh    float64 `json:"estimated_high"`
	ProfitPotential  float64 `json:"profit_potential"`
	ProfitLow        float64 `json:"profit_low"`
	ProfitHigh       float64 `json:"profit_high"`
	ValueScore       int     `json:"value_score" gorm:"index"`
	DiscountPercent  int     `json:"discount_percent"`
	ResaleDifficulty string  `json:"resale_difficulty"`
	Shippable        bool    `json:"shippable"`
	Negotiable       bool    `json:"negotiable"`
	Tags             string  `json:"tags" gorm:"type:text"`            // comma-joined
	ComparableURLs   string  `json:"comparable_urls" gorm:"type:text"` // comma-joined
	Reasoning        string  `json:"reasoning" gorm:"type:text"`

	// LLM-verified values (zero when the LLM path did not run)
	VerifiedMarketValue float64 `json:"verified_market_value"`
	TrueDiscountPercent float64 `json:"true_discount_percent"`
	SellabilityScore    int     `json:"sellability_score"`

	OutreachMessage string `json:"outreach_message" gorm:"type:text"`
	IsOpportunity   bool   `json:"is_opportunity" gorm:"index"`
	Status          string `json:"status" gorm:"default:'NEW'"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// PriceHistory is one observed comparable sale. The natural key
// (product_name, platform, sold_price, sold_at) deduplicates repeated
// fetches of the same sold listing.
type PriceHistory struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	ProductName string  `json:"product_name" gorm:"not null;uniqueIndex:idx_price_history_natural,length:160"`
	Category    string  `json:"category" gorm:"index"`
	Platform    string  `json:"platform" gorm:"not null;uniqueIndex:idx_price_history_natural"`
	SoldPrice   float64 `json:"sold_price" gorm:"uniqueIndex:idx_price_history_natural"` // sale price + shipping
	Condition   string  `json:"condition"`
	SoldAt      time.Time `json:"sold_at" gorm:"uniqueIndex:idx_price_history_natural"`
	CreatedAt   time.Time `json:"created_at"`
}

// RawListing is the immutable input owned by the scrape source.
type RawListing struct {
	ExternalID  string     `json:"external_id"`
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	AskingPrice float64    `json:"asking_price"`
	Condition   string     `json:"condition,omitempty"`
	Location    string     `json:"location,omitempty"`
	SellerName  string     `json:"seller_name,omitempty"`
	ImageURLs   []string   `json:"image_urls,omitempty"`
	Category    string     `json:"category,omitempty"`
	PostedAt    *time.Time `json:"posted_at,omitempty"`
}

// ResaleDifficulty orders how hard an item is to move. Filters must
// compare by rank, never by label.
type ResaleDifficulty int

const (
	VeryEasy ResaleDifficulty = iota
	Easy
	Moderate
	Hard
	VeryHard
)

var difficultyNames = [...]string{"VERY_EASY", "EASY", "MODERATE", "HARD", "VERY_HARD"}

func (d ResaleDifficulty) String() string {
	if d < VeryEasy || d > VeryHard {
		return "MODERATE"
	}
	return difficultyNames[d]
}

// ParseResaleDifficulty maps a stored label back to its rank, defaulting
// to MODERATE for unknown labels.
func ParseResaleDifficulty(s string) ResaleDifficulty {
	for i, name := range difficultyNames {
		if name == s {
			return ResaleDifficulty(i)
		}
	}
	return Moderate
}

// EstimationResult is the heuristic baseline valuation. It is always
// present once heuristics run.
type EstimationResult struct {
	EstimatedValue   float64          `json:"estimated_value"`
	EstimatedLow     float64          `json:"estimated_low"`
	EstimatedHigh    float64          `json:"estimated_high"`
	ProfitPotential  float64          `json:"profit_potential"`
	ProfitLow        float64          `json:"profit_low"`
	ProfitHigh       float64          `json:"profit_high"`
	ValueScore       int              `json:"value_score"` // clamped 0-100
	DiscountPercent  int              `json:"discount_percent"`
	ResaleDifficulty ResaleDifficulty `json:"resale_difficulty"`
	Shippable        bool             `json:"shippable"`
	Negotiable       bool             `json:"negotiable"`
	Tags             []string         `json:"tags"`
	ComparableURLs   []string         `json:"comparable_urls"`
	Reasoning        string           `json:"reasoning"`
}

// Item condition values shared by the identifier and the marketplace
// normalizers.
const (
	ConditionNew     = "new"
	ConditionLikeNew = "like_new"
	ConditionGood    = "good"
	ConditionFair    = "fair"
	ConditionPoor    = "poor"
)

// ValidConditions lists the allowed condition values in quality order.
var ValidConditions = []string{ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair, ConditionPoor}

// ItemIdentification is the structured product identity from LLM call #1.
// Absent (nil) when the identification stage was skipped or failed.
type ItemIdentification struct {
	Brand              *string `json:"brand"`
	Model              *string `json:"model"`
	Variant            *string `json:"variant"`
	Year               *string `json:"year"`
	Condition          string  `json:"condition"`
	ConditionNotes     string  `json:"condition_notes"`
	SearchQuery        string  `json:"search_query"`
	Category           string  `json:"category"`
	WorthInvestigating bool    `json:"worth_investigating"`
	Reasoning          string  `json:"reasoning"`
}

// SoldListing is one comparable sale observed at the sold-listings source.
type SoldListing struct {
	Title        string  `json:"title"`
	Price        float64 `json:"price"`
	SoldDate     string  `json:"sold_date,omitempty"`
	Condition    string  `json:"condition"`
	URL          string  `json:"url"`
	ShippingCost float64 `json:"shipping_cost"`
}

// MarketPrice aggregates comparable sales for one search query. Cacheable
// by (productName, category).
type MarketPrice struct {
	Source        string        `json:"source"`
	Listings      []SoldListing `json:"listings"`
	MedianPrice   float64       `json:"median_price"`
	LowPrice      float64       `json:"low_price"`
	HighPrice     float64       `json:"high_price"`
	AvgPrice      float64       `json:"avg_price"`
	SalesCount    int           `json:"sales_count"`
	AvgDaysToSell *float64      `json:"avg_days_to_sell,omitempty"`
	SearchQuery   string        `json:"search_query"`
	FetchedAt     time.Time     `json:"fetched_at"`
}

// Demand, risk and confidence levels returned by the sellability analyzer.
const (
	DemandLow      = "low"
	DemandMedium   = "medium"
	DemandHigh     = "high"
	DemandVeryHigh = "very_high"

	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"

	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// SellabilityAnalysis is the output of LLM call #2. MeetsThreshold is the
// single authoritative good-deal signal for the LLM path.
type SellabilityAnalysis struct {
	VerifiedMarketValue   float64       `json:"verified_market_value"`
	TrueDiscountPercent   float64       `json:"true_discount_percent"`
	SellabilityScore      int           `json:"sellability_score"` // clamped 0-100
	DemandLevel           string        `json:"demand_level"`
	ExpectedDaysToSell    int           `json:"expected_days_to_sell"`
	AuthenticityRisk      string        `json:"authenticity_risk"`
	ConditionRisk         string        `json:"condition_risk"`
	RecommendedOfferPrice float64       `json:"recommended_offer_price"`
	RecommendedListPrice  float64       `json:"recommended_list_price"`
	ResaleStrategy        string        `json:"resale_strategy"`
	ResalePlatform        string        `json:"resale_platform"`
	ComparableSales       []SoldListing `json:"comparable_sales,omitempty"`
	Confidence            string        `json:"confidence"`
	Reasoning             string        `json:"reasoning"`
	MeetsThreshold        bool          `json:"meets_threshold"`

	// DefaultedFields names the response fields that fell back to a
	// default during decoding, for observability of degraded answers.
	DefaultedFields []string `json:"defaulted_fields,omitempty"`
}

// AnalyzedListing is a raw listing plus every pipeline stage output that
// ran for it. FormatForStorage flattens it into a Listing row.
type AnalyzedListing struct {
	Raw            RawListing           `json:"raw"`
	Platform       string               `json:"platform"`
	Category       string               `json:"category"`
	Estimate       EstimationResult     `json:"estimate"`
	Identification *ItemIdentification  `json:"identification,omitempty"`
	Market         *MarketPrice         `json:"market,omitempty"`
	Sellability    *SellabilityAnalysis `json:"sellability,omitempty"`
	OutreachMessage string              `json:"outreach_message"`
	IsOpportunity   bool                `json:"is_opportunity"`
}

// ScanSummary aggregates one scan run for notifications and dashboards.
type ScanSummary struct {
	TotalListings        int              `json:"total_listings"`
	TotalOpportunities   int              `json:"total_opportunities"`
	AverageScore         float64          `json:"average_score"`
	TotalPotentialProfit float64          `json:"total_potential_profit"`
	BestOpportunity      *AnalyzedListing `json:"best_opportunity,omitempty"`
	CategoryCounts       map[string]int   `json:"category_counts"`
}

// BatchUpdateError records one failed listing in a batch value refresh.
type BatchUpdateError struct {
	ListingID uint   `json:"listing_id"`
	Error     string `json:"error"`
}

// BatchUpdateResult accumulates per-item outcomes of a batch value
// refresh. A failure on one ID never stops the remaining IDs.
type BatchUpdateResult struct {
	Success int                `json:"success"`
	Failed  int                `json:"failed"`
	Errors  []BatchUpdateError `json:"errors"`
}
