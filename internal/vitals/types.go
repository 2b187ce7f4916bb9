// Package vitals contains the pure normalization and classification logic for
// patient telemetry samples.
// This package has NO external dependencies (no feed, HTTP, OS, or clock).
package vitals

// CanonicalKey identifies a sensor independently of its raw field name.
// Unrecognized raw names pass through unchanged as their own key.
type CanonicalKey string

const (
	KeyTemperature   CanonicalKey = "temperature"
	KeyHeartRate     CanonicalKey = "heart_rate"
	KeySpO2          CanonicalKey = "spo2"
	KeyAirQuality    CanonicalKey = "air_quality"
	KeyAccelerationX CanonicalKey = "acceleration_x"
	KeyAccelerationY CanonicalKey = "acceleration_y"
	KeyAccelerationZ CanonicalKey = "acceleration_z"
)

// KnownKeys lists the recognized sensors in display order.
var KnownKeys = []CanonicalKey{
	KeyTemperature,
	KeyHeartRate,
	KeySpO2,
	KeyAirQuality,
	KeyAccelerationX,
	KeyAccelerationY,
	KeyAccelerationZ,
}

// Status is the classification of a single reading.
type Status string

const (
	StatusNormal  Status = "normal"
	StatusWarning Status = "warning"
	StatusAlert   Status = "alert"
	StatusOffline Status = "offline"
)

// RawSample maps raw sensor field names to raw values as received from the feed.
// Values are numbers, numeric strings, percent strings, or enumerated strings.
type RawSample map[string]any

// Reading is one normalized, classified sensor value.
type Reading struct {
	Key    CanonicalKey
	Value  Value
	Status Status
	Unit   string
}

// SampleView is the normalized form of one RawSample.
// It is a value type and is never mutated after construction.
type SampleView struct {
	// Label is the timestamp label (HH:MM:SS) the sample was recorded under.
	Label string
	// Readings are ordered: known keys in KnownKeys order, then pass-through
	// keys lexicographically.
	Readings []Reading
	// AlertCount is the number of readings that count as alerts under the policy.
	AlertCount int
}

// Empty reports whether the view holds no readings ("no data").
func (v SampleView) Empty() bool {
	return len(v.Readings) == 0
}

// Get returns the reading for key, if present.
func (v SampleView) Get(key CanonicalKey) (Reading, bool) {
	for _, r := range v.Readings {
		if r.Key == key {
			return r, true
		}
	}
	return Reading{}, false
}

// WithLabel returns a copy of the view carrying the given timestamp label.
func (v SampleView) WithLabel(label string) SampleView {
	v.Label = label
	return v
}
