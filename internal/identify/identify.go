package identify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"flip-finder/internal/models"
	"flip-finder/internal/pacing"
	"flip-finder/internal/services/llm"
)

// batchSize bounds how many listings are identified before pausing.
const batchSize = 5

const systemPrompt = `You are an expert at identifying resellable products from marketplace listings.
Respond with a single JSON object and nothing else. Fields:
brand (string or null), model (string or null), variant (string or null),
year (string or null), condition (one of: new, like_new, good, fair, poor),
condition_notes (string), search_query (string, what a buyer would type to
find sold comparables), category (string), worth_investigating (boolean,
true only if the item plausibly resells above its asking price),
reasoning (string, one sentence).`

// Identifier runs the first LLM stage: turning listing text into a
// structured product identity.
type Identifier struct {
	provider   *llm.Provider
	clock      pacing.Clock
	logger     *log.Logger
	batchPause time.Duration
}

func NewIdentifier(provider *llm.Provider, clock pacing.Clock, logger *log.Logger, batchPause time.Duration) *Identifier {
	if clock == nil {
		clock = pacing.RealClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Identifier{provider: provider, clock: clock, logger: logger, batchPause: batchPause}
}

// Identify returns the structured identity for one listing, or nil when
// no credential is configured, the call fails, or the response has no
// parseable JSON. It never returns an error: a missing identification
// degrades the caller to the heuristic path.
func (i *Identifier) Identify(ctx context.Context, raw models.RawListing) *models.ItemIdentification {
	client := i.provider.Client()
	if client == nil {
		return nil
	}

	prompt := fmt.Sprintf("Title: %s\nPrice: $%.2f\nCondition: %s\nDescription: %s",
		raw.Title, raw.AskingPrice, raw.Condition, truncate(raw.Description, 1500))

	text, err := client.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		i.logger.Printf("identify %q: %v", raw.Title, err)
		return nil
	}
	obj, err := llm.ParseObject(text)
	if err != nil {
		i.logger.Printf("identify %q: %v", raw.Title, err)
		return nil
	}

	d := llm.NewDecoder(obj)
	ident := &models.ItemIdentification{
		Brand:              d.StringPtr("brand"),
		Model:              d.StringPtr("model"),
		Variant:            d.StringPtr("variant"),
		Year:               d.StringPtr("year"),
		Condition:          d.StringEnum("condition", models.ValidConditions, models.ConditionGood),
		ConditionNotes:     d.String("condition_notes", ""),
		SearchQuery:        d.String("search_query", raw.Title),
		Category:           d.String("category", ""),
		WorthInvestigating: d.Bool("worth_investigating"),
		Reasoning:          d.String("reasoning", ""),
	}
	return ident
}

// IdentifyBatch identifies listings in groups of five with a short
// cancellable pause between groups. A failed item yields a nil slot and
// the batch continues. Results are positionally aligned with the input.
func (i *Identifier) IdentifyBatch(ctx context.Context, raws []models.RawListing) []*models.ItemIdentification {
	results := make([]*models.ItemIdentification, len(raws))
	for start := 0; start < len(raws); start += batchSize {
		if start > 0 {
			if err := i.clock.Sleep(ctx, i.batchPause); err != nil {
				return results
			}
		}
		end := start + batchSize
		if end > len(raws) {
			end = len(raws)
		}
		for j := start; j < end; j++ {
			if ctx.Err() != nil {
				return results
			}
			results[j] = i.Identify(ctx, raws[j])
		}
	}
	return results
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Back up to a rune boundary so a multi-byte character is never
	// split.
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return strings.TrimSpace(s[:n]) + "..."
}
