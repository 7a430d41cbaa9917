package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance_ParisToLondon(t *testing.T) {
	paris := Point{Lat: 48.8566, Lon: 2.3522}
	london := Point{Lat: 51.5074, Lon: -0.1278}

	d := Distance(paris, london)

	assert.InDelta(t, 343_500, d, 1_500)
}

func TestDistance_LongitudeShrinksWithLatitude(t *testing.T) {
	atEquator := Distance(Point{Lat: 0, Lon: 0}, Point{Lat: 0, Lon: 1})
	atSixty := Distance(Point{Lat: 60, Lon: 0}, Point{Lat: 60, Lon: 1})

	assert.InDelta(t, atEquator/2, atSixty, 500)
}

func TestDistance_SamePointIsZero(t *testing.T) {
	p := Point{Lat: 45, Lon: 7}
	assert.Zero(t, Distance(p, p))
}

func TestBox_Contains(t *testing.T) {
	b := Box{North: 50, South: 40, East: 10, West: -10}

	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"center", Point{Lat: 45, Lon: 0}, true},
		{"north edge", Point{Lat: 50, Lon: 0}, true},
		{"west edge", Point{Lat: 45, Lon: -10}, true},
		{"too far north", Point{Lat: 50.01, Lon: 0}, false},
		{"too far east", Point{Lat: 45, Lon: 10.5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.Contains(tt.p))
		})
	}
}
