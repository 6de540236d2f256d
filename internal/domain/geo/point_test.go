package geo

import (
	"math"
	"testing"
)

func TestValidateRanges(t *testing.T) {
	cases := []struct {
		name    string
		p       Point
		wantErr error
	}{
		{"valid lima", Point{-12.0464, -77.0428}, nil},
		{"valid zero", Point{0, 0}, nil},
		{"valid poles", Point{90, 180}, nil},
		{"lat too high", Point{90.001, 0}, ErrInvalidLatitude},
		{"lat too low", Point{-91, 0}, ErrInvalidLatitude},
		{"lng too high", Point{0, 180.5}, ErrInvalidLongitude},
		{"lng too low", Point{0, -181}, ErrInvalidLongitude},
		{"lat NaN", Point{math.NaN(), 0}, ErrInvalidLatitude},
		{"lng NaN", Point{0, math.NaN()}, ErrInvalidLongitude},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.p.Validate(); err != tc.wantErr {
				t.Errorf("Validate(%v) = %v, want %v", tc.p, err, tc.wantErr)
			}
		})
	}
}

func TestDistanceKm(t *testing.T) {
	// Plaza de Armas to Miraflores, Lima: roughly 8.5 km.
	a := Point{-12.0464, -77.0428}
	b := Point{-12.1211, -77.0297}
	d := DistanceKm(a, b)
	if d < 8.0 || d > 9.0 {
		t.Errorf("DistanceKm = %.2f, want roughly 8.5", d)
	}

	if got := DistanceKm(a, a); got != 0 {
		t.Errorf("distance to self = %v, want 0", got)
	}

	if ab, ba := DistanceKm(a, b), DistanceKm(b, a); math.Abs(ab-ba) > 1e-9 {
		t.Errorf("distance not symmetric: %v vs %v", ab, ba)
	}
}

func TestDistanceKmShortRange(t *testing.T) {
	// Roughly 111 meters per 0.001 degrees of latitude.
	a := Point{-12.0464, -77.0428}
	b := Point{-12.0474, -77.0428}
	d := DistanceKm(a, b)
	if d < 0.10 || d > 0.12 {
		t.Errorf("DistanceKm = %.4f, want about 0.111", d)
	}
}
