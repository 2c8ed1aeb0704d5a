// Package settings holds the numeric knobs a rule-set exposes to the host
// and the sanitizer that keeps host-supplied values inside their bounds.
package settings

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Bounds used when a schema entry leaves min or max unset.
const (
	FallbackMin = 3000
	FallbackMax = 180000
)

// Spec describes one editable (or locked) numeric setting.
type Spec struct {
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Step     *float64 `json:"step,omitempty"`
	Editable bool     `json:"editable"`
}

type Schema map[string]Spec

type Values map[string]float64

// Number is a shorthand for an editable numeric spec.
func Number(label string, low, high, step float64) Spec {
	return Spec{
		Label:    label,
		Type:     "number",
		Min:      lo.ToPtr(low),
		Max:      lo.ToPtr(high),
		Step:     lo.ToPtr(step),
		Editable: true,
	}
}

// Locked is a numeric spec the host can see but not change.
func Locked(label string) Spec {
	return Spec{Label: label, Type: "number"}
}

func (s Spec) bounds() (float64, float64) {
	low, high := float64(FallbackMin), float64(FallbackMax)
	if s.Min != nil {
		low = *s.Min
	}
	if s.Max != nil {
		high = *s.Max
	}
	if low > high {
		low, high = high, low
	}
	return low, high
}

// Clone returns an independent copy of v.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Patch turns v back into the loose shape Sanitize accepts.
func (v Values) Patch() map[string]any {
	return lo.MapValues(v, func(val float64, _ string) any { return val })
}

// Sanitize starts from base and overlays every editable key of proposed
// whose value parses as a finite number, clamped into the spec bounds.
// Unknown keys, locked keys and unparseable values are ignored.
func Sanitize(proposed map[string]any, base Values, schema Schema) Values {
	out := base.Clone()
	for key, raw := range proposed {
		spec, ok := schema[key]
		if !ok || !spec.Editable {
			continue
		}
		n, ok := toNumber(raw)
		if !ok {
			continue
		}
		low, high := spec.bounds()
		out[key] = math.Min(math.Max(n, low), high)
	}
	return out
}

// Defaults returns a copy of defaults with every schema key present.
func Defaults(defaults Values, schema Schema) Values {
	out := defaults.Clone()
	for key, spec := range schema {
		if _, ok := out[key]; !ok {
			low, _ := spec.bounds()
			out[key] = low
		}
	}
	return out
}

func toNumber(raw any) (float64, bool) {
	var n float64
	switch v := raw.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case int32:
		n = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
