package models

// Measurement is the latest irradiance reading stored for a location.
// Irradiance quantities are scaled x100 and stored as unsigned integers;
// LastUpdated is the observation time in Unix seconds. An update replaces
// the whole value, fields are never merged.
type Measurement struct {
	DNI         uint64 `json:"dni" db:"dni"`
	GHI         uint64 `json:"ghi" db:"ghi"`
	LatTilt     uint64 `json:"lat_tilt" db:"lat_tilt"`
	LastUpdated uint64 `json:"last_updated" db:"last_updated"`
}

// Age returns whole seconds elapsed between the measurement's timestamp and
// now. A timestamp ahead of now yields zero instead of wrapping the unsigned
// subtraction.
func (m Measurement) Age(now uint64) uint64 {
	if m.LastUpdated > now {
		return 0
	}
	return now - m.LastUpdated
}

// IsFresh reports whether the measurement is at most maxAgeSeconds old.
func (m Measurement) IsFresh(now, maxAgeSeconds uint64) bool {
	return m.Age(now) <= maxAgeSeconds
}

// IsSuitable reports whether direct normal irradiance meets the threshold.
func (m Measurement) IsSuitable(minDNI uint64) bool {
	return m.DNI >= minDNI
}

// DNIDecimal returns the direct normal irradiance in W/m².
func (m Measurement) DNIDecimal() float64 {
	return float64(m.DNI) / HundredthsPerUnit
}

// GHIDecimal returns the global horizontal irradiance in W/m².
func (m Measurement) GHIDecimal() float64 {
	return float64(m.GHI) / HundredthsPerUnit
}

// LatTiltDecimal returns the latitude-tilt irradiance in W/m².
func (m Measurement) LatTiltDecimal() float64 {
	return float64(m.LatTilt) / HundredthsPerUnit
}
