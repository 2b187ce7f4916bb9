package vitals

// UnitCatalog maps canonical keys to display units.
type UnitCatalog struct {
	units    map[CanonicalKey]string
	fallback string
}

// DefaultUnits are the units of the recognized sensors.
func DefaultUnits() map[CanonicalKey]string {
	return map[CanonicalKey]string{
		KeyTemperature:   "°C",
		KeyHeartRate:     "bpm",
		KeySpO2:          "%",
		KeyAirQuality:    "",
		KeyAccelerationX: "m/s²",
		KeyAccelerationY: "m/s²",
		KeyAccelerationZ: "m/s²",
	}
}

// NewUnitCatalog creates a catalog. fallback is returned for unknown keys
// and may be empty.
func NewUnitCatalog(units map[CanonicalKey]string, fallback string) UnitCatalog {
	m := make(map[CanonicalKey]string, len(units))
	for k, u := range units {
		m[k] = u
	}
	return UnitCatalog{units: m, fallback: fallback}
}

// UnitFor returns the unit for key, or the fallback for unknown keys.
func (c UnitCatalog) UnitFor(key CanonicalKey) string {
	if u, ok := c.units[key]; ok {
		return u
	}
	return c.fallback
}
