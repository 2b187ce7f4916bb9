package vitals

import "sort"

// DefaultAliases maps raw field names seen on the feed to canonical keys.
func DefaultAliases() map[string]CanonicalKey {
	return map[string]CanonicalKey{
		"temperature": KeyTemperature,
		"temp":        KeyTemperature,
		"heartRate":   KeyHeartRate,
		"heart_rate":  KeyHeartRate,
		"hr":          KeyHeartRate,
		"spo2":        KeySpO2,
		"SpO2":        KeySpO2,
		"airQuality":  KeyAirQuality,
		"air_quality": KeyAirQuality,
		"ax":          KeyAccelerationX,
		"ay":          KeyAccelerationY,
		"az":          KeyAccelerationZ,
	}
}

// Normalizer turns RawSamples into SampleViews. It holds no mutable state
// and is safe for concurrent use.
type Normalizer struct {
	aliases map[string]CanonicalKey
	policy  *Policy
	units   UnitCatalog
	order   map[CanonicalKey]int
}

// NewNormalizer creates a Normalizer from an alias table, policy and unit catalog.
func NewNormalizer(aliases map[string]CanonicalKey, policy *Policy, units UnitCatalog) *Normalizer {
	m := make(map[string]CanonicalKey, len(aliases))
	for raw, key := range aliases {
		m[raw] = key
	}
	order := make(map[CanonicalKey]int, len(KnownKeys))
	for i, k := range KnownKeys {
		order[k] = i
	}
	return &Normalizer{aliases: m, policy: policy, units: units, order: order}
}

// Policy returns the classification policy in use.
func (n *Normalizer) Policy() *Policy {
	return n.policy
}

// Resolve maps a raw field name to its canonical key.
// Unknown names pass through verbatim.
func (n *Normalizer) Resolve(raw string) CanonicalKey {
	if key, ok := n.aliases[raw]; ok {
		return key
	}
	return CanonicalKey(raw)
}

// Normalize builds a SampleView from raw. A nil or empty sample yields an
// empty view, which callers render as "no data".
func (n *Normalizer) Normalize(raw RawSample) SampleView {
	if len(raw) == 0 {
		return SampleView{}
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	seen := make(map[CanonicalKey]bool, len(names))
	readings := make([]Reading, 0, len(names))
	for _, name := range names {
		key := n.Resolve(name)
		if seen[key] {
			continue
		}

		value := Coerce(raw[name])
		if value.Kind() == KindInvalid {
			continue
		}
		if n.policy.Options().Sentinels == SentinelDrop && n.policy.IsSentinel(key, value) {
			continue
		}

		seen[key] = true
		readings = append(readings, Reading{
			Key:    key,
			Value:  value,
			Status: n.policy.Classify(key, value),
			Unit:   n.units.UnitFor(key),
		})
	}

	sort.SliceStable(readings, func(i, j int) bool {
		return n.less(readings[i].Key, readings[j].Key)
	})

	view := SampleView{Readings: readings}
	for _, r := range readings {
		if n.policy.counts(r.Status) {
			view.AlertCount++
		}
	}
	return view
}

// less orders known keys by KnownKeys position, before any pass-through key.
func (n *Normalizer) less(a, b CanonicalKey) bool {
	ia, aKnown := n.order[a]
	ib, bKnown := n.order[b]
	switch {
	case aKnown && bKnown:
		return ia < ib
	case aKnown:
		return true
	case bKnown:
		return false
	default:
		return a < b
	}
}
