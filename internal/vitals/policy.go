package vitals

import (
	"fmt"
	"math"
	"strings"
)

// SentinelHandling selects what happens to a reading that matches a sentinel.
type SentinelHandling string

const (
	// SentinelDrop removes the field before a Reading is built.
	SentinelDrop SentinelHandling = "drop"
	// SentinelOffline keeps the field as a Reading with StatusOffline.
	SentinelOffline SentinelHandling = "offline"
)

// RangeRule classifies numeric readings against inclusive bounds.
type RangeRule struct {
	Min float64
	Max float64
	// Normal is the nominal value. Nil disables the deviation check.
	Normal *float64
	// Tolerance is the allowed fractional deviation from Normal (0.1 = 10%).
	// Zero disables the deviation check.
	Tolerance float64
}

// EnumRule classifies categorical readings against an accepted set.
type EnumRule struct {
	Accepted []string
}

// Rule is the classification rule for one canonical key.
// Exactly one of Range or Enum is expected to be set.
type Rule struct {
	Range *RangeRule
	Enum  *EnumRule
	// Sentinels are reserved raw values meaning "sensor disconnected".
	Sentinels []float64
}

// Options are the strictness settings that deployments disagree on.
type Options struct {
	// OutOfRange is the status for numeric values outside [Min, Max].
	OutOfRange Status
	// UnknownCategory is the status for values outside an enum's accepted set.
	UnknownCategory Status
	// Sentinels selects drop vs offline handling of sentinel values.
	Sentinels SentinelHandling
	// CountWarnings makes warnings count toward SampleView.AlertCount.
	CountWarnings bool
}

// DefaultOptions matches the original bedside deployment.
func DefaultOptions() Options {
	return Options{
		OutOfRange:      StatusWarning,
		UnknownCategory: StatusWarning,
		Sentinels:       SentinelDrop,
		CountWarnings:   true,
	}
}

// Validate checks that the strictness settings hold supported values.
func (o Options) Validate() error {
	if o.OutOfRange != StatusWarning && o.OutOfRange != StatusAlert {
		return fmt.Errorf("out-of-range status must be warning or alert (got %q)", o.OutOfRange)
	}
	if o.UnknownCategory != StatusWarning && o.UnknownCategory != StatusAlert {
		return fmt.Errorf("unknown-category status must be warning or alert (got %q)", o.UnknownCategory)
	}
	if o.Sentinels != SentinelDrop && o.Sentinels != SentinelOffline {
		return fmt.Errorf("sentinel handling must be drop or offline (got %q)", o.Sentinels)
	}
	return nil
}

// DefaultRules are the thresholds of the original bedside deployment.
func DefaultRules() map[CanonicalKey]Rule {
	accel := func() Rule {
		return Rule{Range: &RangeRule{Min: -20000, Max: 20000, Normal: floatPtr(0)}}
	}
	return map[CanonicalKey]Rule{
		KeyTemperature: {
			Range:     &RangeRule{Min: 20, Max: 45, Normal: floatPtr(37)},
			Sentinels: []float64{-127},
		},
		KeyHeartRate: {
			Range:     &RangeRule{Min: 30, Max: 200, Normal: floatPtr(72)},
			Sentinels: []float64{-999},
		},
		KeySpO2: {
			Range:     &RangeRule{Min: 90, Max: 100, Normal: floatPtr(98)},
			Sentinels: []float64{0},
		},
		KeyAirQuality: {
			Enum: &EnumRule{Accepted: []string{"Good", "Fair", "Moderate"}},
		},
		KeyAccelerationX: accel(),
		KeyAccelerationY: accel(),
		KeyAccelerationZ: accel(),
	}
}

// Policy classifies readings. It is immutable after construction.
type Policy struct {
	rules map[CanonicalKey]Rule
	opts  Options
}

// NewPolicy creates a policy from per-key rules and strictness options.
func NewPolicy(rules map[CanonicalKey]Rule, opts Options) (*Policy, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	m := make(map[CanonicalKey]Rule, len(rules))
	for k, r := range rules {
		if r.Range != nil && r.Range.Min > r.Range.Max {
			return nil, fmt.Errorf("rule %s: min %v greater than max %v", k, r.Range.Min, r.Range.Max)
		}
		if r.Range != nil && r.Range.Tolerance < 0 {
			return nil, fmt.Errorf("rule %s: negative tolerance %v", k, r.Range.Tolerance)
		}
		m[k] = r
	}
	return &Policy{rules: m, opts: opts}, nil
}

// Options returns the strictness settings the policy was built with.
func (p *Policy) Options() Options {
	return p.opts
}

// IsSentinel reports whether v is a reserved "disconnected" value for key.
func (p *Policy) IsSentinel(key CanonicalKey, v Value) bool {
	f, ok := v.Float()
	if !ok {
		return false
	}
	for _, s := range p.rules[key].Sentinels {
		if f == s {
			return true
		}
	}
	return false
}

// Classify returns the status of value for key. Unknown keys are normal.
func (p *Policy) Classify(key CanonicalKey, v Value) Status {
	rule, ok := p.rules[key]
	if !ok {
		return StatusNormal
	}
	if p.IsSentinel(key, v) {
		return StatusOffline
	}

	switch v.Kind() {
	case KindNumeric:
		f, _ := v.Float()
		if rule.Range != nil {
			return p.classifyRange(*rule.Range, f)
		}
		if rule.Enum != nil {
			return p.opts.UnknownCategory
		}
		return StatusNormal
	case KindCategorical:
		s, _ := v.Text()
		if rule.Enum != nil {
			for _, a := range rule.Enum.Accepted {
				if strings.EqualFold(a, s) {
					return StatusNormal
				}
			}
			return p.opts.UnknownCategory
		}
		if rule.Range != nil {
			return p.opts.UnknownCategory
		}
		return StatusNormal
	default:
		return StatusOffline
	}
}

func (p *Policy) classifyRange(r RangeRule, f float64) Status {
	if f < r.Min || f > r.Max {
		return p.opts.OutOfRange
	}
	if r.Normal != nil && *r.Normal != 0 && r.Tolerance > 0 {
		if math.Abs(f-*r.Normal) > r.Tolerance*math.Abs(*r.Normal) {
			return StatusWarning
		}
	}
	return StatusNormal
}

// counts reports whether a reading with status s contributes to AlertCount.
func (p *Policy) counts(s Status) bool {
	switch s {
	case StatusAlert:
		return true
	case StatusWarning:
		return p.opts.CountWarnings
	default:
		return false
	}
}

func floatPtr(f float64) *float64 {
	return &f
}
