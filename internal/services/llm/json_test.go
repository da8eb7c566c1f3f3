package llm

import (
	"reflect"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, false},
		{"prose wrapped", "Sure, here you go:\n{\"a\":1}\nHope that helps!", `{"a":1}`, false},
		{"code fence", "```json\n{\"a\":1}\n```", `{"a":1}`, false},
		{"nested braces", `prefix {"a":{"b":2}} suffix`, `{"a":{"b":2}}`, false},
		{"no object", "I cannot answer that.", "", true},
		{"reversed braces", "} nothing {", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecoderDefaults(t *testing.T) {
	obj := map[string]any{
		"name":  "widget",
		"score": 85.0,
		"level": "HIGH",
		"flag":  true,
	}
	d := NewDecoder(obj)

	if got := d.String("name", "x"); got != "widget" {
		t.Errorf("String = %q", got)
	}
	if got := d.String("missing", "fallback"); got != "fallback" {
		t.Errorf("String missing = %q", got)
	}
	if got := d.Int("score", 0); got != 85 {
		t.Errorf("Int = %d", got)
	}
	if got := d.Float("absent", 3.5); got != 3.5 {
		t.Errorf("Float absent = %v", got)
	}
	if got := d.StringEnum("level", []string{"low", "medium", "high"}, "medium"); got != "high" {
		t.Errorf("StringEnum = %q", got)
	}
	if !d.Bool("flag") {
		t.Error("Bool true not read")
	}

	defaulted := d.Defaulted()
	want := []string{"missing", "absent"}
	if !reflect.DeepEqual(defaulted, want) {
		t.Errorf("Defaulted = %v, want %v", defaulted, want)
	}
}

func TestDecoderBoolIdentity(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{"true", true, true},
		{"false", false, false},
		{"string true", "true", false},
		{"number one", 1.0, false},
		{"missing", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := map[string]any{}
			if tt.value != nil {
				obj["k"] = tt.value
			}
			if got := NewDecoder(obj).Bool("k"); got != tt.want {
				t.Errorf("Bool(%v) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestDecoderStringPtr(t *testing.T) {
	d := NewDecoder(map[string]any{
		"brand":   "Apple",
		"model":   "",
		"variant": "unknown",
	})
	if got := d.StringPtr("brand"); got == nil || *got != "Apple" {
		t.Errorf("brand = %v", got)
	}
	if got := d.StringPtr("model"); got != nil {
		t.Errorf("empty string should be nil, got %q", *got)
	}
	if got := d.StringPtr("variant"); got != nil {
		t.Errorf("\"unknown\" should be nil, got %q", *got)
	}
	if got := d.StringPtr("year"); got != nil {
		t.Errorf("absent field should be nil, got %q", *got)
	}
	if len(d.Defaulted()) != 0 {
		t.Errorf("optional pointers should not count as defaults: %v", d.Defaulted())
	}
}

func TestClampScore(t *testing.T) {
	tests := []struct{ in, want int }{
		{-5, 0}, {0, 0}, {50, 50}, {100, 100}, {140, 100},
	}
	for _, tt := range tests {
		if got := ClampScore(tt.in); got != tt.want {
			t.Errorf("ClampScore(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
