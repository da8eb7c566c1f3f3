package pipeline

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"flip-finder/internal/heuristics"
	"flip-finder/internal/market"
	"flip-finder/internal/models"
)

// OpportunityScoreThreshold is the heuristic-only opportunity bar: when
// the LLM path does not complete, a listing is an opportunity iff its
// heuristic value score reaches this.
const OpportunityScoreThreshold = 70

// ItemIdentifier is LLM stage one. Nil result means the stage was
// skipped or failed; the listing continues on heuristics alone.
type ItemIdentifier interface {
	Identify(ctx context.Context, raw models.RawListing) *models.ItemIdentification
}

// SellabilityAnalyzer is LLM stage two.
type SellabilityAnalyzer interface {
	Analyze(ctx context.Context, title string, askingPrice float64, ident *models.ItemIdentification, market *models.MarketPrice) *models.SellabilityAnalysis
}

// MarketSource fetches sold comparables for a query. Nil means no data.
type MarketSource interface {
	FetchMarketPrice(ctx context.Context, query, category string) *models.MarketPrice
}

// Analyzer runs the per-listing decision funnel.
type Analyzer struct {
	identifier  ItemIdentifier
	sellability SellabilityAnalyzer
	market      MarketSource
	logger      *log.Logger

	// LLMMode gates the expensive stages. Off means heuristics only.
	LLMMode bool
	// Concurrency bounds how many listings are analyzed in parallel.
	Concurrency int
}

func NewAnalyzer(identifier ItemIdentifier, sellability SellabilityAnalyzer, marketSource MarketSource, logger *log.Logger, llmMode bool, concurrency int) *Analyzer {
	if logger == nil {
		logger = log.Default()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Analyzer{
		identifier:  identifier,
		sellability: sellability,
		market:      marketSource,
		logger:      logger,
		LLMMode:     llmMode,
		Concurrency: concurrency,
	}
}

// AnalyzeListing runs the full funnel for one listing. Heuristics always
// run; every later stage can drop out and degrade the result to
// heuristic-only. The function never returns an error: a listing always
// produces a decision record.
func (a *Analyzer) AnalyzeListing(ctx context.Context, platform string, raw models.RawListing) models.AnalyzedListing {
	category := raw.Category
	if category == "" {
		category = heuristics.DetectCategory(raw.Title, raw.Description)
	}
	estimate := heuristics.EstimateValue(raw.Title, raw.Description, raw.AskingPrice, raw.Condition, category)

	out := models.AnalyzedListing{
		Raw:      raw,
		Platform: platform,
		Category: category,
		Estimate: estimate,
	}

	heuristicOnly := func() models.AnalyzedListing {
		out.IsOpportunity = estimate.ValueScore >= OpportunityScoreThreshold
		out.OutreachMessage = BuildOutreachMessage(raw)
		return out
	}

	if !a.LLMMode || a.identifier == nil {
		return heuristicOnly()
	}

	ident := a.identifier.Identify(ctx, raw)
	if ident == nil || !ident.WorthInvestigating {
		return heuristicOnly()
	}
	out.Identification = ident

	var mp *models.MarketPrice
	if a.market != nil {
		mp = a.market.FetchMarketPrice(ctx, ident.SearchQuery, category)
	}
	if mp == nil || mp.SalesCount == 0 {
		return heuristicOnly()
	}
	out.Market = mp

	quick := market.QuickDiscountCheck(raw.AskingPrice, mp)
	if !quick.PassesQuickCheck {
		a.logger.Printf("quick filter: %q at %d%% below median, skipping deep analysis",
			raw.Title, quick.EstimatedDiscount)
		return heuristicOnly()
	}

	var analysis *models.SellabilityAnalysis
	if a.sellability != nil {
		analysis = a.sellability.Analyze(ctx, raw.Title, raw.AskingPrice, ident, mp)
	}
	if analysis == nil {
		return heuristicOnly()
	}
	out.Sellability = analysis
	out.IsOpportunity = analysis.MeetsThreshold
	out.OutreachMessage = BuildOutreachMessage(raw)
	return out
}

// AnalyzeAll fans listings out across a bounded worker pool. Output
// order matches input order; listings never share mutable state.
func (a *Analyzer) AnalyzeAll(ctx context.Context, platform string, raws []models.RawListing) []models.AnalyzedListing {
	results := make([]models.AnalyzedListing, len(raws))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < a.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = a.AnalyzeListing(ctx, platform, raws[idx])
			}
		}()
	}
	for idx := range raws {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()
	return results
}

// BuildOutreachMessage drafts a seller message anchored around 85% of
// the asking price.
func BuildOutreachMessage(raw models.RawListing) string {
	offer := raw.AskingPrice * 0.85
	return fmt.Sprintf(
		"Hi! Is the %s still available? I can pick it up today and pay cash. Would you take $%.0f?",
		raw.Title, offer)
}

// FormatForStorage flattens an analyzed listing into its stored row.
// Status is derived from the opportunity flag and nothing else.
func FormatForStorage(al models.AnalyzedListing) models.Listing {
	l := models.Listing{
		Platform:    al.Platform,
		ExternalID:  al.Raw.ExternalID,
		URL:         al.Raw.URL,
		Title:       al.Raw.Title,
		Description: al.Raw.Description,
		AskingPrice: al.Raw.AskingPrice,
		Condition:   al.Raw.Condition,
		Location:    al.Raw.Location,
		SellerName:  al.Raw.SellerName,
		ImageURLs:   strings.Join(al.Raw.ImageURLs, ","),
		Category:    al.Category,
		PostedAt:    al.Raw.PostedAt,

		EstimatedValue:   al.Estimate.EstimatedValue,
		EstimatedLow:     al.Estimate.EstimatedLow,
		EstimatedHigh:    al.Estimate.EstimatedHigh,
		ProfitPotential:  al.Estimate.ProfitPotential,
		ProfitLow:        al.Estimate.ProfitLow,
		ProfitHigh:       al.Estimate.ProfitHigh,
		ValueScore:       al.Estimate.ValueScore,
		DiscountPercent:  al.Estimate.DiscountPercent,
		ResaleDifficulty: al.Estimate.ResaleDifficulty.String(),
		Shippable:        al.Estimate.Shippable,
		Negotiable:       al.Estimate.Negotiable,
		Tags:             strings.Join(al.Estimate.Tags, ","),
		ComparableURLs:   strings.Join(al.Estimate.ComparableURLs, ","),
		Reasoning:        al.Estimate.Reasoning,

		OutreachMessage: al.OutreachMessage,
		IsOpportunity:   al.IsOpportunity,
	}
	if al.Sellability != nil {
		l.VerifiedMarketValue = al.Sellability.VerifiedMarketValue
		l.TrueDiscountPercent = al.Sellability.TrueDiscountPercent
		l.SellabilityScore = al.Sellability.SellabilityScore
	}
	if al.IsOpportunity {
		l.Status = models.StatusOpportunity
	} else {
		l.Status = models.StatusNew
	}
	return l
}

// SortListings orders analyzed listings best first: value score
// descending, then profit potential descending, then easier resale
// difficulty first.
func SortListings(listings []models.AnalyzedListing) {
	sort.SliceStable(listings, func(i, j int) bool {
		a, b := listings[i], listings[j]
		if a.Estimate.ValueScore != b.Estimate.ValueScore {
			return a.Estimate.ValueScore > b.Estimate.ValueScore
		}
		if a.Estimate.ProfitPotential != b.Estimate.ProfitPotential {
			return a.Estimate.ProfitPotential > b.Estimate.ProfitPotential
		}
		return a.Estimate.ResaleDifficulty < b.Estimate.ResaleDifficulty
	})
}

// Summarize aggregates a scan run. BestOpportunity is the top
// opportunity by the standard sort order, nil when there are none.
func Summarize(listings []models.AnalyzedListing) models.ScanSummary {
	s := models.ScanSummary{
		TotalListings:  len(listings),
		CategoryCounts: make(map[string]int),
	}
	var scoreSum int
	var best *models.AnalyzedListing
	for i := range listings {
		al := &listings[i]
		scoreSum += al.Estimate.ValueScore
		s.CategoryCounts[al.Category]++
		if al.IsOpportunity {
			s.TotalOpportunities++
			s.TotalPotentialProfit += al.Estimate.ProfitPotential
			if best == nil || betterOpportunity(al, best) {
				best = al
			}
		}
	}
	if len(listings) > 0 {
		s.AverageScore = float64(scoreSum) / float64(len(listings))
	}
	s.BestOpportunity = best
	return s
}

func betterOpportunity(a, b *models.AnalyzedListing) bool {
	if a.Estimate.ValueScore != b.Estimate.ValueScore {
		return a.Estimate.ValueScore > b.Estimate.ValueScore
	}
	if a.Estimate.ProfitPotential != b.Estimate.ProfitPotential {
		return a.Estimate.ProfitPotential > b.Estimate.ProfitPotential
	}
	return a.Estimate.ResaleDifficulty < b.Estimate.ResaleDifficulty
}
