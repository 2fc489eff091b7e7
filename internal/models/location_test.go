package models

import (
	"math"
	"testing"
)

// TestEncodeLocation tests the shift-and-scale coordinate encoding
func TestEncodeLocation(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lon     float64
		wantErr bool
		want    LocationKey
	}{
		{
			name: "positive coordinates",
			lat:  12.5,
			lon:  77.25,
			want: LocationKey{Latitude: 102500000, Longitude: 257250000},
		},
		{
			name: "negative coordinates",
			lat:  -33.5,
			lon:  -70.75,
			want: LocationKey{Latitude: 56500000, Longitude: 109250000},
		},
		{
			name: "equator and prime meridian",
			lat:  0,
			lon:  0,
			want: LocationKey{Latitude: 90000000, Longitude: 180000000},
		},
		{
			name: "lower boundary",
			lat:  -90,
			lon:  -180,
			want: LocationKey{Latitude: 0, Longitude: 0},
		},
		{
			name: "upper boundary",
			lat:  90,
			lon:  180,
			want: LocationKey{Latitude: 180000000, Longitude: 360000000},
		},
		{
			name:    "latitude out of range",
			lat:     90.5,
			lon:     0,
			wantErr: true,
		},
		{
			name:    "longitude out of range",
			lat:     0,
			lon:     -180.5,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := EncodeLocation(tt.lat, tt.lon)

			if (err != nil) != tt.wantErr {
				t.Errorf("EncodeLocation() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if tt.wantErr {
				return
			}

			if key != tt.want {
				t.Errorf("EncodeLocation() = %v, want %v", key, tt.want)
			}
		})
	}
}

// TestLocationKey_RoundTrip tests that decoding recovers the encoded degrees
// to within one microdegree
func TestLocationKey_RoundTrip(t *testing.T) {
	coords := []struct {
		lat float64
		lon float64
	}{
		{12.9716, 77.5946},
		{-33.8688, 151.2093},
		{64.1466, -21.9426},
		{0.0001, -0.0001},
	}

	for _, c := range coords {
		key, err := EncodeLocation(c.lat, c.lon)
		if err != nil {
			t.Fatalf("EncodeLocation(%v, %v) error = %v", c.lat, c.lon, err)
		}

		if got := key.LatitudeDegrees(); math.Abs(got-c.lat) > 1e-6 {
			t.Errorf("LatitudeDegrees() = %v, want %v within 1e-6", got, c.lat)
		}

		if got := key.LongitudeDegrees(); math.Abs(got-c.lon) > 1e-6 {
			t.Errorf("LongitudeDegrees() = %v, want %v within 1e-6", got, c.lon)
		}
	}
}

// TestLocationKey_Equality tests that keys behave as exact-match map keys
func TestLocationKey_Equality(t *testing.T) {
	a := LocationKey{Latitude: 102971600, Longitude: 257594600}
	b := LocationKey{Latitude: 102971600, Longitude: 257594600}
	c := LocationKey{Latitude: 102971601, Longitude: 257594600}

	if a != b {
		t.Error("identical keys should compare equal")
	}

	if a == c {
		t.Error("keys differing by one microdegree should not compare equal")
	}

	m := map[LocationKey]int{a: 1}
	if m[b] != 1 {
		t.Error("equal key should address the same map entry")
	}
	if _, ok := m[c]; ok {
		t.Error("different key should not address the same map entry")
	}
}

func TestLocationKey_String(t *testing.T) {
	key := LocationKey{Latitude: 12971600, Longitude: 77594600}

	if got := key.String(); got != "(12971600,77594600)" {
		t.Errorf("String() = %v, want %v", got, "(12971600,77594600)")
	}
}
