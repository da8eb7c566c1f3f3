package heuristics

import (
	"fmt"
	"math"
	"net/url"
	"strings"

	"flip-finder/internal/models"
)

// categoryProfile drives the baseline valuation for one category: how a
// typical asking price relates to resale value, how hard the category is
// to move, and whether it ships economically.
type categoryProfile struct {
	name       string
	keywords   []string
	multiplier float64 // resale value as a multiple of asking price
	spread     float64 // half-width of the low/high band, as a fraction
	difficulty models.ResaleDifficulty
	shippable  bool
}

// Profiles are matched in order; the first category whose keyword set
// matches wins.
var categoryProfiles = []categoryProfile{
	{
		name:       "phones",
		keywords:   []string{"iphone", "galaxy s", "pixel ", "smartphone", "android phone"},
		multiplier: 1.55, spread: 0.20, difficulty: models.VeryEasy, shippable: true,
	},
	{
		name:       "gaming",
		keywords:   []string{"playstation", "ps5", "ps4", "xbox", "nintendo", "switch", "gaming pc", "rtx", "graphics card", "gpu"},
		multiplier: 1.60, spread: 0.20, difficulty: models.VeryEasy, shippable: true,
	},
	{
		name:       "electronics",
		keywords:   []string{"macbook", "laptop", "ipad", "tablet", "camera", "lens", "drone", "gopro", "headphones", "airpods", "monitor", "tv ", "television", "speaker", "soundbar"},
		multiplier: 1.50, spread: 0.25, difficulty: models.Easy, shippable: true,
	},
	{
		name:       "tools",
		keywords:   []string{"dewalt", "milwaukee", "makita", "ryobi", "drill", "saw", "tool set", "compressor", "generator", "welder"},
		multiplier: 1.65, spread: 0.20, difficulty: models.Easy, shippable: true,
	},
	{
		name:       "instruments",
		keywords:   []string{"guitar", "fender", "gibson", "bass", "keyboard piano", "synthesizer", "drum kit", "amplifier", "amp "},
		multiplier: 1.55, spread: 0.30, difficulty: models.Moderate, shippable: true,
	},
	{
		name:       "bikes",
		keywords:   []string{"bike", "bicycle", "trek ", "specialized", "cannondale", "mountain bike", "road bike", "ebike", "e-bike"},
		multiplier: 1.45, spread: 0.25, difficulty: models.Moderate, shippable: false,
	},
	{
		name:       "sporting",
		keywords:   []string{"golf", "kayak", "snowboard", "ski ", "skis", "surfboard", "treadmill", "peloton", "weights", "dumbbell"},
		multiplier: 1.40, spread: 0.25, difficulty: models.Moderate, shippable: false,
	},
	{
		name:       "collectibles",
		keywords:   []string{"pokemon", "magic the gathering", "trading card", "funko", "lego", "vintage", "antique", "comic", "vinyl record"},
		multiplier: 1.70, spread: 0.40, difficulty: models.Moderate, shippable: true,
	},
	{
		name:       "jewelry",
		keywords:   []string{"rolex", "omega ", "seiko", "watch", "gold ring", "diamond", "necklace", "bracelet"},
		multiplier: 1.50, spread: 0.35, difficulty: models.Hard, shippable: true,
	},
	{
		name:       "appliances",
		keywords:   []string{"refrigerator", "fridge", "washer", "dryer", "dishwasher", "microwave", "air conditioner", "vacuum", "dyson"},
		multiplier: 1.35, spread: 0.25, difficulty: models.Hard, shippable: false,
	},
	{
		name:       "furniture",
		keywords:   []string{"sofa", "couch", "sectional", "dresser", "desk", "dining table", "bookshelf", "herman miller", "recliner"},
		multiplier: 1.30, spread: 0.30, difficulty: models.VeryHard, shippable: false,
	},
}

// genericProfile is the degradation path for unmatched categories.
var genericProfile = categoryProfile{
	name:       "other",
	multiplier: 1.25, spread: 0.30,
	difficulty: models.Moderate, shippable: false,
}

// feeRate approximates combined marketplace and payment fees when
// estimating net profit.
const feeRate = 0.13

var conditionFactors = map[string]float64{
	models.ConditionNew:     1.00,
	models.ConditionLikeNew: 0.92,
	models.ConditionGood:    0.80,
	models.ConditionFair:    0.62,
	models.ConditionPoor:    0.40,
}

// DetectCategory scans title and description for category keyword sets
// and returns the first category that matches, or "other".
func DetectCategory(title, description string) string {
	text := strings.ToLower(title + " " + description)
	for _, p := range categoryProfiles {
		for _, kw := range p.keywords {
			if strings.Contains(text, kw) {
				return p.name
			}
		}
	}
	return genericProfile.name
}

func profileFor(category string) categoryProfile {
	for _, p := range categoryProfiles {
		if p.name == category {
			return p
		}
	}
	return genericProfile
}

// normalizeCondition maps free-text condition strings onto the shared
// condition scale, defaulting to good.
func normalizeCondition(raw string) string {
	c := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case c == "":
		return models.ConditionGood
	case strings.Contains(c, "like new") || strings.Contains(c, "open box") || strings.Contains(c, "excellent"):
		return models.ConditionLikeNew
	case strings.Contains(c, "new"):
		return models.ConditionNew
	case strings.Contains(c, "fair") || strings.Contains(c, "acceptable") || strings.Contains(c, "used - ok"):
		return models.ConditionFair
	case strings.Contains(c, "poor") || strings.Contains(c, "parts") || strings.Contains(c, "broken") || strings.Contains(c, "damaged"):
		return models.ConditionPoor
	default:
		return models.ConditionGood
	}
}

var negotiableMarkers = []string{"obo", "or best offer", "best offer", "negotiable", "make an offer", "make offer"}

// EstimateValue computes the baseline valuation for a listing from text
// and price alone. It is deterministic, performs no I/O and never panics;
// unknown categories degrade to a generic multiplier.
func EstimateValue(title, description string, askingPrice float64, condition, category string) models.EstimationResult {
	if category == "" {
		category = DetectCategory(title, description)
	}
	p := profileFor(category)
	if askingPrice < 0 {
		askingPrice = 0
	}

	cond := normalizeCondition(condition)
	condFactor := conditionFactors[cond]

	estimated := round2(askingPrice * p.multiplier * condFactor)
	low := round2(estimated * (1 - p.spread))
	high := round2(estimated * (1 + p.spread))

	profit := round2(estimated*(1-feeRate) - askingPrice)
	profitLow := round2(low*(1-feeRate) - askingPrice)
	profitHigh := round2(high*(1-feeRate) - askingPrice)

	discount := 0
	if estimated > 0 {
		discount = int(math.Round((estimated - askingPrice) / estimated * 100))
	}

	// Score: discount does most of the work, easier categories get a
	// small boost so equal discounts rank liquid items first.
	score := int(float64(discount)*1.6) + int(models.VeryHard-p.difficulty)*4
	score = clampScore(score)

	text := strings.ToLower(title + " " + description)
	negotiable := false
	for _, m := range negotiableMarkers {
		if strings.Contains(text, m) {
			negotiable = true
			break
		}
	}

	tags := []string{category, "condition:" + cond}
	if p.shippable {
		tags = append(tags, "shippable")
	}
	if negotiable {
		tags = append(tags, "negotiable")
	}

	comparables := []string{
		"https://www.ebay.com/sch/i.html?_nkw=" + url.QueryEscape(title) + "&LH_Sold=1&LH_Complete=1",
	}

	reasoning := fmt.Sprintf(
		"category=%s condition=%s: asking $%.2f vs estimated resale $%.2f (x%.2f category, x%.2f condition), est. discount %d%%, difficulty %s",
		category, cond, askingPrice, estimated, p.multiplier, condFactor, discount, p.difficulty)

	return models.EstimationResult{
		EstimatedValue:   estimated,
		EstimatedLow:     low,
		EstimatedHigh:    high,
		ProfitPotential:  profit,
		ProfitLow:        profitLow,
		ProfitHigh:       profitHigh,
		ValueScore:       score,
		DiscountPercent:  discount,
		ResaleDifficulty: p.difficulty,
		Shippable:        p.shippable,
		Negotiable:       negotiable,
		Tags:             tags,
		ComparableURLs:   comparables,
		Reasoning:        reasoning,
	}
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
