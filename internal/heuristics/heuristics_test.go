package heuristics

import (
	"reflect"
	"testing"

	"flip-finder/internal/models"
)

func TestDetectCategory(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		description string
		want        string
	}{
		{"iphone", "iPhone 14 Pro 256GB", "", "phones"},
		{"console", "PS5 with two controllers", "", "gaming"},
		{"laptop", "MacBook Pro M2", "barely used", "electronics"},
		{"drill kit", "DeWalt drill and impact driver", "", "tools"},
		{"sofa", "Grey sectional sofa", "pet free home", "furniture"},
		{"keyword in description", "Great deal", "selling my Trek mountain bike", "bikes"},
		{"no match", "Box of miscellaneous stuff", "garage cleanout", "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectCategory(tt.title, tt.description); got != tt.want {
				t.Errorf("DetectCategory = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEstimateValueDeterministic(t *testing.T) {
	a := EstimateValue("iPhone 14 Pro", "great condition", 400, "good", "")
	b := EstimateValue("iPhone 14 Pro", "great condition", 400, "good", "")
	if !reflect.DeepEqual(a, b) {
		t.Error("identical input should yield identical output")
	}
}

func TestEstimateValueScoreClamped(t *testing.T) {
	inputs := []struct {
		title  string
		asking float64
		cond   string
	}{
		{"iPhone 14 Pro", 1, "new"},
		{"iPhone 14 Pro", 100000, "poor"},
		{"random junk", 0, ""},
	}
	for _, in := range inputs {
		r := EstimateValue(in.title, "", in.asking, in.cond, "")
		if r.ValueScore < 0 || r.ValueScore > 100 {
			t.Errorf("score %d out of [0,100] for %+v", r.ValueScore, in)
		}
	}
}

func TestEstimateValueUnknownCategory(t *testing.T) {
	r := EstimateValue("mystery box", "", 100, "good", "nonexistent-category")
	if r.EstimatedValue <= 0 {
		t.Error("unknown category should fall back to the generic multiplier")
	}
	if r.ResaleDifficulty != models.Moderate {
		t.Errorf("generic difficulty = %v, want MODERATE", r.ResaleDifficulty)
	}
}

func TestEstimateValueConditionOrdering(t *testing.T) {
	newVal := EstimateValue("iPhone 14", "", 500, "new", "").EstimatedValue
	goodVal := EstimateValue("iPhone 14", "", 500, "good", "").EstimatedValue
	poorVal := EstimateValue("iPhone 14", "", 500, "poor", "").EstimatedValue
	if !(newVal > goodVal && goodVal > poorVal) {
		t.Errorf("condition ordering broken: new=%v good=%v poor=%v", newVal, goodVal, poorVal)
	}
}

func TestEstimateValueBand(t *testing.T) {
	r := EstimateValue("PS5 console", "", 300, "good", "")
	if !(r.EstimatedLow < r.EstimatedValue && r.EstimatedValue < r.EstimatedHigh) {
		t.Errorf("band not ordered: %v < %v < %v", r.EstimatedLow, r.EstimatedValue, r.EstimatedHigh)
	}
	if !(r.ProfitLow <= r.ProfitPotential && r.ProfitPotential <= r.ProfitHigh) {
		t.Errorf("profit band not ordered: %v <= %v <= %v", r.ProfitLow, r.ProfitPotential, r.ProfitHigh)
	}
}

func TestEstimateValueNegotiable(t *testing.T) {
	r := EstimateValue("Dresser $100 OBO", "", 100, "good", "")
	if !r.Negotiable {
		t.Error("OBO should mark the listing negotiable")
	}
	r = EstimateValue("Dresser firm price", "", 100, "good", "")
	if r.Negotiable {
		t.Error("no negotiation marker should leave Negotiable false")
	}
}

func TestEstimateValueNegativePrice(t *testing.T) {
	r := EstimateValue("free couch", "", -50, "good", "")
	if r.EstimatedValue != 0 {
		t.Errorf("negative asking price should estimate 0, got %v", r.EstimatedValue)
	}
	if r.ValueScore < 0 || r.ValueScore > 100 {
		t.Errorf("score %d out of range", r.ValueScore)
	}
}
