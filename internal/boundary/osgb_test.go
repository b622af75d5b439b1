package boundary

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOSGB36ToWGS84_Landmarks(t *testing.T) {
	cases := []struct {
		name     string
		easting  float64
		northing float64
		wantLon  float64
		wantLat  float64
	}{
		{"Trafalgar Square", 530040, 180380, -0.1281, 51.5081},
		{"Royal Observatory Greenwich", 538890, 177320, -0.0014, 51.4769},
	}
	for _, tc := range cases {
		lon, lat := OSGB36ToWGS84(tc.easting, tc.northing)
		assert.InDelta(t, tc.wantLon, lon, 0.002, "%s longitude", tc.name)
		assert.InDelta(t, tc.wantLat, lat, 0.002, "%s latitude", tc.name)
	}
}

func TestOSGB36ToWGS84_Monotonic(t *testing.T) {
	lonWest, latSouth := OSGB36ToWGS84(520000, 170000)
	lonEast, _ := OSGB36ToWGS84(545000, 170000)
	_, latNorth := OSGB36ToWGS84(520000, 195000)

	assert.Greater(t, lonEast, lonWest)
	assert.Greater(t, latNorth, latSouth)
}

func TestOSGB36ToWGS84_LondonRange(t *testing.T) {
	// Corners of a box covering Greater London.
	for _, e := range []float64{503000, 561000} {
		for _, n := range []float64{155000, 201000} {
			lon, lat := OSGB36ToWGS84(e, n)
			assert.Greater(t, lon, -0.7)
			assert.Less(t, lon, 0.4)
			assert.Greater(t, lat, 51.2)
			assert.Less(t, lat, 51.8)
		}
	}
}
