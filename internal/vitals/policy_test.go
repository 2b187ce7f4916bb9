package vitals

import "testing"

func mustPolicy(t *testing.T, rules map[CanonicalKey]Rule, opts Options) *Policy {
	t.Helper()
	p, err := NewPolicy(rules, opts)
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}
	return p
}

func TestClassifyRangeBoundsInclusive(t *testing.T) {
	const eps = 0.001
	for _, outOfRange := range []Status{StatusWarning, StatusAlert} {
		opts := DefaultOptions()
		opts.OutOfRange = outOfRange
		p := mustPolicy(t, DefaultRules(), opts)

		cases := []struct {
			value float64
			want  Status
		}{
			{-20000, StatusNormal},
			{20000, StatusNormal},
			{-20000 - eps, outOfRange},
			{20000 + eps, outOfRange},
		}
		for _, c := range cases {
			if got := p.Classify(KeyAccelerationX, Numeric(c.value)); got != c.want {
				t.Errorf("%s policy, acceleration_x=%v: got %s, want %s", outOfRange, c.value, got, c.want)
			}
		}
	}
}

func TestClassifyHeartRateBounds(t *testing.T) {
	p := mustPolicy(t, DefaultRules(), DefaultOptions())
	if got := p.Classify(KeyHeartRate, Numeric(30)); got != StatusNormal {
		t.Errorf("hr=30: got %s, want normal", got)
	}
	if got := p.Classify(KeyHeartRate, Numeric(200)); got != StatusNormal {
		t.Errorf("hr=200: got %s, want normal", got)
	}
	if got := p.Classify(KeyHeartRate, Numeric(29.9)); got != StatusWarning {
		t.Errorf("hr=29.9: got %s, want warning", got)
	}
}

func TestClassifyDeviationTolerance(t *testing.T) {
	rules := map[CanonicalKey]Rule{
		KeyTemperature: {Range: &RangeRule{Min: 20, Max: 45, Normal: floatPtr(37), Tolerance: 0.1}},
	}
	opts := DefaultOptions()
	opts.OutOfRange = StatusAlert
	p := mustPolicy(t, rules, opts)

	if got := p.Classify(KeyTemperature, Numeric(37.5)); got != StatusNormal {
		t.Errorf("37.5: got %s, want normal", got)
	}
	// 10% of 37 is 3.7; 41 deviates by 4.
	if got := p.Classify(KeyTemperature, Numeric(41)); got != StatusWarning {
		t.Errorf("41: got %s, want warning", got)
	}
	if got := p.Classify(KeyTemperature, Numeric(46)); got != StatusAlert {
		t.Errorf("46: got %s, want alert", got)
	}
}

func TestClassifyDeviationSkippedForZeroNormal(t *testing.T) {
	rules := map[CanonicalKey]Rule{
		KeyAccelerationY: {Range: &RangeRule{Min: -10, Max: 10, Normal: floatPtr(0), Tolerance: 0.2}},
	}
	p := mustPolicy(t, rules, DefaultOptions())
	if got := p.Classify(KeyAccelerationY, Numeric(9)); got != StatusNormal {
		t.Errorf("got %s, want normal", got)
	}
}

func TestClassifyEnumStrictness(t *testing.T) {
	for _, unknown := range []Status{StatusWarning, StatusAlert} {
		opts := DefaultOptions()
		opts.UnknownCategory = unknown
		p := mustPolicy(t, DefaultRules(), opts)

		for _, ok := range []string{"Good", "Fair", "Moderate", "good"} {
			if got := p.Classify(KeyAirQuality, Categorical(ok)); got != StatusNormal {
				t.Errorf("%s policy, %q: got %s, want normal", unknown, ok, got)
			}
		}
		if got := p.Classify(KeyAirQuality, Categorical("Poor")); got != unknown {
			t.Errorf("%s policy, Poor: got %s", unknown, got)
		}
		if got := p.Classify(KeyAirQuality, Numeric(3)); got != unknown {
			t.Errorf("%s policy, numeric air quality: got %s", unknown, got)
		}
	}
}

func TestClassifyCategoricalForNumericRule(t *testing.T) {
	p := mustPolicy(t, DefaultRules(), DefaultOptions())
	if got := p.Classify(KeyHeartRate, Categorical("high")); got != StatusWarning {
		t.Errorf("got %s, want warning", got)
	}
}

func TestClassifySentinelOffline(t *testing.T) {
	p := mustPolicy(t, DefaultRules(), DefaultOptions())
	if got := p.Classify(KeyHeartRate, Numeric(-999)); got != StatusOffline {
		t.Errorf("hr -999: got %s, want offline", got)
	}
	if got := p.Classify(KeySpO2, Numeric(0)); got != StatusOffline {
		t.Errorf("spo2 0: got %s, want offline", got)
	}
	if got := p.Classify(KeyTemperature, Numeric(-127)); got != StatusOffline {
		t.Errorf("temperature -127: got %s, want offline", got)
	}
}

func TestClassifyUnknownKeyFailsOpen(t *testing.T) {
	p := mustPolicy(t, DefaultRules(), DefaultOptions())
	if got := p.Classify("respiration", Numeric(-5000)); got != StatusNormal {
		t.Errorf("got %s, want normal", got)
	}
	if got := p.Classify("mood", Categorical("grumpy")); got != StatusNormal {
		t.Errorf("got %s, want normal", got)
	}
}

func TestNewPolicyRejectsBadConfig(t *testing.T) {
	opts := DefaultOptions()
	opts.OutOfRange = StatusOffline
	if _, err := NewPolicy(DefaultRules(), opts); err == nil {
		t.Error("expected error for offline out-of-range status")
	}

	opts = DefaultOptions()
	opts.Sentinels = "ignore"
	if _, err := NewPolicy(DefaultRules(), opts); err == nil {
		t.Error("expected error for unknown sentinel handling")
	}

	rules := map[CanonicalKey]Rule{KeyHeartRate: {Range: &RangeRule{Min: 200, Max: 30}}}
	if _, err := NewPolicy(rules, DefaultOptions()); err == nil {
		t.Error("expected error for min > max")
	}
}

func TestUnitCatalog(t *testing.T) {
	c := NewUnitCatalog(DefaultUnits(), "units")
	if got := c.UnitFor(KeyTemperature); got != "°C" {
		t.Errorf("temperature: got %q", got)
	}
	if got := c.UnitFor(KeyAirQuality); got != "" {
		t.Errorf("air_quality: got %q, want empty", got)
	}
	if got := c.UnitFor("steps"); got != "units" {
		t.Errorf("unknown: got %q, want fallback", got)
	}
}
