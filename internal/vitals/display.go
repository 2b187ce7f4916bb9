package vitals

import (
	"math"
	"strings"
	"unicode"
)

var displayNames = map[CanonicalKey]string{
	KeyTemperature:   "Temperature",
	KeyHeartRate:     "Heart Rate",
	KeySpO2:          "SpO₂",
	KeyAirQuality:    "Air Quality",
	KeyAccelerationX: "Acceleration X",
	KeyAccelerationY: "Acceleration Y",
	KeyAccelerationZ: "Acceleration Z",
}

// DisplayName returns a human label for key. Unknown keys are title-cased
// with underscores turned into spaces ("body_weight" -> "Body Weight").
func DisplayName(key CanonicalKey) string {
	if name, ok := displayNames[key]; ok {
		return name
	}
	words := strings.Fields(strings.ReplaceAll(string(key), "_", " "))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// Summary holds the headline vitals shown above the sensor cards.
// Nil fields mean the sample had no usable reading for that sensor.
type Summary struct {
	HeartRate   *float64 // whole bpm
	Temperature *float64 // one decimal
	SpO2        *float64 // whole percent
}

// Summarize extracts the headline vitals from a view. Offline readings are skipped.
func Summarize(v SampleView) Summary {
	var s Summary
	if f, ok := usableFloat(v, KeyHeartRate); ok {
		f = math.Round(f)
		s.HeartRate = &f
	}
	if f, ok := usableFloat(v, KeyTemperature); ok {
		f = math.Round(f*10) / 10
		s.Temperature = &f
	}
	if f, ok := usableFloat(v, KeySpO2); ok {
		f = math.Round(f)
		s.SpO2 = &f
	}
	return s
}

// ChartValue picks the value to plot for a sample: the primary metric when
// present and usable, otherwise the first numeric reading. Offline readings
// are never plotted.
func ChartValue(v SampleView, primary CanonicalKey) (float64, bool) {
	if primary != "" {
		if f, ok := usableFloat(v, primary); ok {
			return f, true
		}
	}
	for _, r := range v.Readings {
		if r.Status == StatusOffline {
			continue
		}
		if f, ok := r.Value.Float(); ok {
			return f, true
		}
	}
	return 0, false
}

func usableFloat(v SampleView, key CanonicalKey) (float64, bool) {
	r, ok := v.Get(key)
	if !ok || r.Status == StatusOffline {
		return 0, false
	}
	return r.Value.Float()
}
