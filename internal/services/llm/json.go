package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON pulls the JSON object span out of a model response that
// may be wrapped in prose or code fences: everything from the first '{'
// to the last '}'.
func ExtractJSON(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON object in response")
	}
	return text[start : end+1], nil
}

// ParseObject extracts and unmarshals the JSON span into a generic map.
func ParseObject(text string) (map[string]any, error) {
	span, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(span), &obj); err != nil {
		return nil, fmt.Errorf("decode response JSON: %w", err)
	}
	return obj, nil
}

// Decoder reads typed fields from a model response with per-field
// defaults, and records which fields fell back so degraded answers are
// visible downstream.
type Decoder struct {
	obj       map[string]any
	defaulted []string
}

func NewDecoder(obj map[string]any) *Decoder {
	return &Decoder{obj: obj}
}

// Defaulted returns the names of fields that used their fallback value.
func (d *Decoder) Defaulted() []string {
	return d.defaulted
}

func (d *Decoder) fallback(key string) {
	d.defaulted = append(d.defaulted, key)
}

// String returns the field as a trimmed string, or def when absent or
// not a string.
func (d *Decoder) String(key, def string) string {
	if v, ok := d.obj[key].(string); ok {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	d.fallback(key)
	return def
}

// StringPtr returns the field as a *string, or nil when absent/empty.
// Missing optional fields are not recorded as fallbacks.
func (d *Decoder) StringPtr(key string) *string {
	if v, ok := d.obj[key].(string); ok {
		if s := strings.TrimSpace(v); s != "" && !strings.EqualFold(s, "null") && !strings.EqualFold(s, "unknown") {
			return &s
		}
	}
	return nil
}

// StringEnum returns the field when it is one of allowed (case
// insensitive), otherwise def.
func (d *Decoder) StringEnum(key string, allowed []string, def string) string {
	if v, ok := d.obj[key].(string); ok {
		s := strings.ToLower(strings.TrimSpace(v))
		for _, a := range allowed {
			if s == a {
				return s
			}
		}
	}
	d.fallback(key)
	return def
}

// Float returns the field as float64, or def when absent or not numeric.
func (d *Decoder) Float(key string, def float64) float64 {
	switch v := d.obj[key].(type) {
	case float64:
		return v
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	}
	d.fallback(key)
	return def
}

// Int returns the field as an int, or def.
func (d *Decoder) Int(key string, def int) int {
	switch v := d.obj[key].(type) {
	case float64:
		return int(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return int(f)
		}
	}
	d.fallback(key)
	return def
}

// Bool returns true only when the field is the JSON boolean true.
// Strings like "true" and truthy numbers do not count.
func (d *Decoder) Bool(key string) bool {
	v, ok := d.obj[key].(bool)
	if !ok {
		d.fallback(key)
		return false
	}
	return v
}

// ClampScore bounds a score into [0,100].
func ClampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
