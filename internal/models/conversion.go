package models

// HundredthsPerUnit is the scaling factor applied to irradiance quantities
// before integer storage.
const HundredthsPerUnit = 100

// MicrodegreesToDegrees converts a raw microdegree count to whole degrees.
// The fractional part is truncated by the integer division.
func MicrodegreesToDegrees(v uint64) uint64 {
	return v / MicrodegreesPerDegree
}

// HundredthsToDecimal converts a x100 scaled quantity to whole units.
// The fractional part is truncated by the integer division.
func HundredthsToDecimal(v uint64) uint64 {
	return v / HundredthsPerUnit
}
