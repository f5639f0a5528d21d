package geo_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"poi_reconciler/internal/geo"
)

func TestDistanceKm_Symmetric(t *testing.T) {
	a := geo.Point{Lat: 40.7229, Lon: -74.0030}
	b := geo.Point{Lat: 40.6892, Lon: -74.0445}

	assert.Equal(t, geo.DistanceKm(a, b), geo.DistanceKm(b, a))
	assert.Zero(t, geo.DistanceKm(a, a))
	assert.Zero(t, geo.DistanceKm(b, b))
}

func TestDistanceKm_KnownPairs(t *testing.T) {
	cases := []struct {
		name string
		a, b geo.Point
		want float64
		tol  float64
	}{
		// one degree of latitude on a 6371 km sphere
		{"one degree lat", geo.Point{Lat: 0, Lon: 0}, geo.Point{Lat: 1, Lon: 0}, 111.195, 0.001},
		{"antipodes", geo.Point{Lat: 0, Lon: 0}, geo.Point{Lat: 0, Lon: 180}, 20015.087, 0.001},
		{"met to moma", geo.Point{Lat: 40.7794, Lon: -73.9632}, geo.Point{Lat: 40.7614, Lon: -73.9776}, 2.340, 0.001},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, geo.DistanceKm(tc.a, tc.b), tc.tol)
		})
	}
}

func TestDistanceKm_OutOfRangeIsNotAnError(t *testing.T) {
	d := geo.DistanceKm(geo.Point{Lat: 95, Lon: 200}, geo.Point{Lat: -91, Lon: -400})
	assert.False(t, math.IsNaN(d))
	assert.GreaterOrEqual(t, d, 0.0)
}
