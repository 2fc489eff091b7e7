package models

import "fmt"

// Coordinate encoding constants. Signed decimal degrees are shifted into a
// non-negative range before scaling so both components fit in unsigned
// integers.
const (
	MicrodegreesPerDegree  = 1_000_000
	LatitudeOffsetDegrees  = 90
	LongitudeOffsetDegrees = 180
)

// LocationKey identifies a measurement site by its encoded coordinates.
// Latitude carries a +90 degree shift, longitude a +180 degree shift, both
// scaled to microdegrees and truncated. Keys match on exact integer equality
// only; there is no proximity or rounding semantics.
type LocationKey struct {
	Latitude  uint64 `json:"latitude" db:"latitude"`
	Longitude uint64 `json:"longitude" db:"longitude"`
}

// EncodeLocation builds a LocationKey from signed decimal degrees by applying
// the offset shift, scaling to microdegrees and truncating the remainder.
func EncodeLocation(latDegrees, lonDegrees float64) (LocationKey, error) {
	if latDegrees < -90 || latDegrees > 90 {
		return LocationKey{}, &ValidationError{
			Field:   "latitude",
			Value:   fmt.Sprintf("%f", latDegrees),
			Message: "latitude out of range [-90, 90]",
		}
	}

	if lonDegrees < -180 || lonDegrees > 180 {
		return LocationKey{}, &ValidationError{
			Field:   "longitude",
			Value:   fmt.Sprintf("%f", lonDegrees),
			Message: "longitude out of range [-180, 180]",
		}
	}

	return LocationKey{
		Latitude:  uint64((latDegrees + LatitudeOffsetDegrees) * MicrodegreesPerDegree),
		Longitude: uint64((lonDegrees + LongitudeOffsetDegrees) * MicrodegreesPerDegree),
	}, nil
}

// LatitudeDegrees returns the signed decimal latitude the key encodes.
func (k LocationKey) LatitudeDegrees() float64 {
	return float64(k.Latitude)/MicrodegreesPerDegree - LatitudeOffsetDegrees
}

// LongitudeDegrees returns the signed decimal longitude the key encodes.
func (k LocationKey) LongitudeDegrees() float64 {
	return float64(k.Longitude)/MicrodegreesPerDegree - LongitudeOffsetDegrees
}

func (k LocationKey) String() string {
	return fmt.Sprintf("(%d,%d)", k.Latitude, k.Longitude)
}
