package models

// UpdateMeasurementRequest is the write payload for one location. Values
// arrive pre-encoded: microdegree coordinates and hundredths irradiance.
// The store never decodes them; encoding is the submitting agent's job.
type UpdateMeasurementRequest struct {
	Latitude   uint64 `json:"latitude"`
	Longitude  uint64 `json:"longitude"`
	DNI        uint64 `json:"dni"`
	GHI        uint64 `json:"ghi"`
	LatTilt    uint64 `json:"lat_tilt"`
	ObservedAt uint64 `json:"observed_at"`
}

// Key returns the location addressed by the request
func (r UpdateMeasurementRequest) Key() LocationKey {
	return LocationKey{Latitude: r.Latitude, Longitude: r.Longitude}
}

// Measurement returns the value carried by the request
func (r UpdateMeasurementRequest) Measurement() Measurement {
	return Measurement{
		DNI:         r.DNI,
		GHI:         r.GHI,
		LatTilt:     r.LatTilt,
		LastUpdated: r.ObservedAt,
	}
}
