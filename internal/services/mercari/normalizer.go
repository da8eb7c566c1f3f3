package mercari

import (
	"regexp"
	"strings"

	"flip-finder/internal/models"
)

// Condition patterns in priority order: "like new" must win over "new",
// "very good" over "good". Unmatched descriptions default to good.
var conditionPatterns = []struct {
	re        *regexp.Regexp
	condition string
}{
	{regexp.MustCompile(`\blike new\b`), models.ConditionLikeNew},
	{regexp.MustCompile(`\bbrand new\b`), models.ConditionNew},
	{regexp.MustCompile(`\bnew\b`), models.ConditionNew},
	{regexp.MustCompile(`\bvery good\b`), models.ConditionGood},
	{regexp.MustCompile(`\bgood\b`), models.ConditionGood},
	{regexp.MustCompile(`\bacceptable\b`), models.ConditionFair},
	{regexp.MustCompile(`\bpoor\b|\bhas flaws\b`), models.ConditionPoor},
}

// NormalizeCondition maps Mercari's free-text condition descriptions
// onto the shared condition scale.
func NormalizeCondition(raw string) string {
	s := strings.ToLower(raw)
	for _, p := range conditionPatterns {
		if p.re.MatchString(s) {
			return p.condition
		}
	}
	return models.ConditionGood
}

var knownBrands = []string{
	"Apple", "Samsung", "Sony", "Nintendo", "Microsoft", "Google",
	"Nike", "Adidas", "Lego", "Dyson", "DeWalt", "Milwaukee", "Makita",
	"Canon", "Nikon", "Bose", "JBL", "Fender", "Gibson",
}

// ExtractBrand returns the brand from the explicit field when present,
// then falls back to scanning title and description for known brands.
func ExtractBrand(item Item) string {
	if b := strings.TrimSpace(item.Brand); b != "" {
		return b
	}
	for _, text := range []string{item.Title, item.Description} {
		lower := strings.ToLower(text)
		for _, brand := range knownBrands {
			if strings.Contains(lower, strings.ToLower(brand)) {
				return brand
			}
		}
	}
	return ""
}

// NormalizeListing converts a raw Mercari search item into the shared
// listing shape. Asking price includes shipping so cross-platform
// comparisons stay apples to apples.
func NormalizeListing(item Item) models.RawListing {
	return models.RawListing{
		ExternalID:  item.ID,
		URL:         item.URL,
		Title:       item.Title,
		Description: item.Description,
		AskingPrice: item.Price + item.ShippingCost,
		Condition:   NormalizeCondition(item.Condition),
		SellerName:  item.SellerName,
		ImageURLs:   item.ImageURLs,
		Category:    item.Category,
	}
}
