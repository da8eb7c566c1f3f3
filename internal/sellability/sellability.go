package sellability

import (
	"context"
	"fmt"
	"log"
	"strings"

	"flip-finder/internal/models"
	"flip-finder/internal/services/llm"
)

// maxComparables bounds how many sold listings are embedded in the
// prompt and echoed back in the result.
const maxComparables = 5

const systemPrompt = `You are an expert reseller evaluating whether a marketplace listing is worth buying to flip.
A deal meets the threshold when the asking price is at least 50% below verified market value AND the item is likely to resell within 30 days.
Respond with a single JSON object and nothing else. Fields:
verified_market_value (number), true_discount_percent (number),
sellability_score (integer 0-100), demand_level (low|medium|high|very_high),
expected_days_to_sell (integer), authenticity_risk (low|medium|high),
condition_risk (low|medium|high), recommended_offer_price (number),
recommended_list_price (number), resale_strategy (string),
resale_platform (string), confidence (low|medium|high),
reasoning (string), meets_threshold (boolean).`

// Analyzer runs the second LLM stage: scoring how sellable an
// identified, market-priced listing is.
type Analyzer struct {
	provider *llm.Provider
	logger   *log.Logger
}

func NewAnalyzer(provider *llm.Provider, logger *log.Logger) *Analyzer {
	if logger == nil {
		logger = log.Default()
	}
	return &Analyzer{provider: provider, logger: logger}
}

// Analyze returns the sellability verdict, or nil when no credential is
// configured, the call fails, or no JSON can be extracted. Every field
// in a parsed response has an explicit fallback so a sloppy model
// answer still yields a usable result.
func (a *Analyzer) Analyze(ctx context.Context, title string, askingPrice float64, ident *models.ItemIdentification, market *models.MarketPrice) *models.SellabilityAnalysis {
	client := a.provider.Client()
	if client == nil {
		return nil
	}

	text, err := client.Complete(ctx, systemPrompt, buildPrompt(title, askingPrice, ident, market))
	if err != nil {
		a.logger.Printf("sellability %q: %v", title, err)
		return nil
	}
	obj, err := llm.ParseObject(text)
	if err != nil {
		a.logger.Printf("sellability %q: %v", title, err)
		return nil
	}

	var median float64
	if market != nil {
		median = market.MedianPrice
	}

	levels := []string{models.DemandLow, models.DemandMedium, models.DemandHigh, models.DemandVeryHigh}
	risks := []string{models.RiskLow, models.RiskMedium, models.RiskHigh}

	d := llm.NewDecoder(obj)
	result := &models.SellabilityAnalysis{
		VerifiedMarketValue:   d.Float("verified_market_value", median),
		TrueDiscountPercent:   d.Float("true_discount_percent", 0),
		SellabilityScore:      llm.ClampScore(d.Int("sellability_score", 0)),
		DemandLevel:           d.StringEnum("demand_level", levels, models.DemandMedium),
		ExpectedDaysToSell:    d.Int("expected_days_to_sell", 30),
		AuthenticityRisk:      d.StringEnum("authenticity_risk", risks, models.RiskMedium),
		ConditionRisk:         d.StringEnum("condition_risk", risks, models.RiskMedium),
		RecommendedOfferPrice: d.Float("recommended_offer_price", askingPrice),
		RecommendedListPrice:  d.Float("recommended_list_price", median),
		ResaleStrategy:        d.String("resale_strategy", ""),
		ResalePlatform:        d.String("resale_platform", "ebay"),
		Confidence:            d.StringEnum("confidence", []string{models.ConfidenceLow, models.ConfidenceMedium, models.ConfidenceHigh}, models.ConfidenceMedium),
		Reasoning:             d.String("reasoning", ""),
		MeetsThreshold:        d.Bool("meets_threshold"),
	}
	if market != nil {
		n := len(market.Listings)
		if n > maxComparables {
			n = maxComparables
		}
		result.ComparableSales = append([]models.SoldListing(nil), market.Listings[:n]...)
	}
	result.DefaultedFields = d.Defaulted()
	return result
}

func buildPrompt(title string, askingPrice float64, ident *models.ItemIdentification, market *models.MarketPrice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Listing: %s\nAsking price: $%.2f\n", title, askingPrice)

	if ident != nil {
		fmt.Fprintf(&b, "\nIdentified item:\n")
		fmt.Fprintf(&b, "  brand: %s\n", deref(ident.Brand))
		fmt.Fprintf(&b, "  model: %s\n", deref(ident.Model))
		fmt.Fprintf(&b, "  variant: %s\n", deref(ident.Variant))
		fmt.Fprintf(&b, "  year: %s\n", deref(ident.Year))
		fmt.Fprintf(&b, "  condition: %s (%s)\n", ident.Condition, ident.ConditionNotes)
	}

	if market != nil {
		fmt.Fprintf(&b, "\nMarket data (%d sold comparables, median $%.2f, range $%.2f-$%.2f):\n",
			market.SalesCount, market.MedianPrice, market.LowPrice, market.HighPrice)
		n := len(market.Listings)
		if n > maxComparables {
			n = maxComparables
		}
		for _, l := range market.Listings[:n] {
			fmt.Fprintf(&b, "  - %s: $%.2f", l.Title, l.Price+l.ShippingCost)
			if l.SoldDate != "" {
				fmt.Fprintf(&b, " (sold %s)", l.SoldDate)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func deref(s *string) string {
	if s == nil {
		return "unknown"
	}
	return *s
}
