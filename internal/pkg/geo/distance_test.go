package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineSymmetry(t *testing.T) {
	algiers := &Point{Latitude: 36.7538, Longitude: 3.0588}
	paris := &Point{Latitude: 48.8566, Longitude: 2.3522}

	assert.InDelta(t, Haversine(algiers, paris), Haversine(paris, algiers), 1e-9)
}

func TestHaversineIdentity(t *testing.T) {
	p := &Point{Latitude: 36.7538, Longitude: 3.0588}
	assert.Zero(t, Haversine(p, p))
}

func TestHaversineKnownDistances(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Point
		wantKm   float64
		tolerance float64
	}{
		{
			name:      "Algiers to Paris",
			a:         Point{Latitude: 36.7538, Longitude: 3.0588},
			b:         Point{Latitude: 48.8566, Longitude: 2.3522},
			wantKm:    1345,
			tolerance: 20,
		},
		{
			name:      "short hop inside Algiers",
			a:         Point{Latitude: 36.7538, Longitude: 3.0588},
			b:         Point{Latitude: 36.76, Longitude: 3.06},
			wantKm:    0.7,
			tolerance: 0.5,
		},
		{
			name:      "Algiers to New York",
			a:         Point{Latitude: 36.7538, Longitude: 3.0588},
			b:         Point{Latitude: 40.7128, Longitude: -74.0060},
			wantKm:    6300,
			tolerance: 150,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.wantKm, Haversine(&tt.a, &tt.b), tt.tolerance)
		})
	}
}

func TestHaversineMissingCoordinates(t *testing.T) {
	p := &Point{Latitude: 36.7538, Longitude: 3.0588}

	assert.Zero(t, Haversine(nil, p))
	assert.Zero(t, Haversine(p, nil))
	assert.Zero(t, Haversine(nil, nil))
}
