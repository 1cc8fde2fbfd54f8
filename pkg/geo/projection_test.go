package geo_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/ridenav/rideengine/pkg/datastructure"
	"github.com/ridenav/rideengine/pkg/geo"

	"github.com/stretchr/testify/assert"
)

func TestNearestPointOnPolyline(t *testing.T) {
	// straight west-east line at lat -7.5560
	line := []datastructure.Coordinate{
		{Lat: -7.5560, Lon: 110.8300},
		{Lat: -7.5560, Lon: 110.8310},
		{Lat: -7.5560, Lon: 110.8320},
	}

	t.Run("interior projection lands on the segment", func(t *testing.T) {
		p := datastructure.NewCoordinate(-7.5565, 110.8305)

		projection, err := geo.NearestPointOnPolyline(p, line)

		assert.Nil(t, err)
		assert.Equal(t, 0, projection.SegmentIndex)
		assert.InDelta(t, -7.5560, projection.Point.Lat, 1e-6)
		assert.InDelta(t, 110.8305, projection.Point.Lon, 1e-6)
		// 0.0005 degree of latitude is about 55.6 meter
		assert.InDelta(t, 55.6, projection.Distance, 0.5)
	})

	t.Run("before the first vertex clamps to it", func(t *testing.T) {
		p := datastructure.NewCoordinate(-7.5560, 110.8290)

		projection, err := geo.NearestPointOnPolyline(p, line)

		assert.Nil(t, err)
		assert.Equal(t, 0, projection.SegmentIndex)
		assert.InDelta(t, 110.8300, projection.Point.Lon, 1e-6)
	})

	t.Run("after the last vertex clamps to it", func(t *testing.T) {
		p := datastructure.NewCoordinate(-7.5560, 110.8330)

		projection, err := geo.NearestPointOnPolyline(p, line)

		assert.Nil(t, err)
		assert.Equal(t, 1, projection.SegmentIndex)
		assert.InDelta(t, 110.8320, projection.Point.Lon, 1e-6)
	})

	t.Run("point on the line projects onto itself", func(t *testing.T) {
		p := datastructure.NewCoordinate(-7.5560, 110.8315)

		projection, err := geo.NearestPointOnPolyline(p, line)

		assert.Nil(t, err)
		assert.InDelta(t, 0, projection.Distance, 0.01)
		assert.Equal(t, 1, projection.SegmentIndex)
	})

	t.Run("degenerate polyline", func(t *testing.T) {
		p := datastructure.NewCoordinate(-7.5560, 110.8315)

		_, err := geo.NearestPointOnPolyline(p, line[:1])

		assert.ErrorIs(t, err, geo.ErrPolylineTooShort)
	})

	t.Run("zero length segment does not divide by zero", func(t *testing.T) {
		degenerate := []datastructure.Coordinate{
			{Lat: -7.5560, Lon: 110.8300},
			{Lat: -7.5560, Lon: 110.8300},
			{Lat: -7.5560, Lon: 110.8310},
		}
		p := datastructure.NewCoordinate(-7.5561, 110.8305)

		projection, err := geo.NearestPointOnPolyline(p, degenerate)

		assert.Nil(t, err)
		assert.InDelta(t, 110.8305, projection.Point.Lon, 1e-6)
	})
}

// TestNearestPointOnPolylineAgainstDenseSampling pins the tangent-plane
// projection against a brute-force reference: each segment is sampled densely
// and the smallest haversine distance to any sample must agree with the
// projection result.
func TestNearestPointOnPolylineAgainstDenseSampling(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	// wiggly ~1km track
	line := make([]datastructure.Coordinate, 20)
	lat, lon := -7.5560, 110.8300
	for i := range line {
		line[i] = datastructure.NewCoordinate(lat, lon)
		lat += (rng.Float64() - 0.5) * 0.0008
		lon += 0.0005
	}

	const samplesPerSegment = 1000

	for q := 0; q < 30; q++ {
		p := datastructure.NewCoordinate(
			-7.5560+(rng.Float64()-0.5)*0.004,
			110.8300+rng.Float64()*0.0095,
		)

		projection, err := geo.NearestPointOnPolyline(p, line)
		assert.Nil(t, err)

		bruteMin := math.MaxFloat64
		for i := 0; i < len(line)-1; i++ {
			for s := 0; s <= samplesPerSegment; s++ {
				frac := float64(s) / samplesPerSegment
				sampleLat := line[i].Lat + frac*(line[i+1].Lat-line[i].Lat)
				sampleLon := line[i].Lon + frac*(line[i+1].Lon-line[i].Lon)
				dist := geo.CalculateHaversineDistance(p.Lat, p.Lon, sampleLat, sampleLon)
				if dist < bruteMin {
					bruteMin = dist
				}
			}
		}

		assert.InDelta(t, bruteMin, projection.Distance, 0.5)
		// the returned point really lies at the reported distance
		assert.InDelta(t, projection.Distance,
			geo.CalculateHaversineDistance(p.Lat, p.Lon, projection.Point.Lat, projection.Point.Lon),
			0.5)
	}
}

func TestNearestPointOnPolylineWithinRadius(t *testing.T) {
	line := []datastructure.Coordinate{
		{Lat: -7.5560, Lon: 110.8300},
		{Lat: -7.5560, Lon: 110.8320},
	}

	t.Run("inside radius", func(t *testing.T) {
		p := datastructure.NewCoordinate(-7.5562, 110.8310) // ~22m off the line

		snapped, ok := geo.NearestPointOnPolylineWithinRadius(p, line, 35)

		assert.True(t, ok)
		assert.InDelta(t, -7.5560, snapped.Lat, 1e-6)
	})

	t.Run("outside radius", func(t *testing.T) {
		p := datastructure.NewCoordinate(-7.5570, 110.8310) // ~111m off the line

		_, ok := geo.NearestPointOnPolylineWithinRadius(p, line, 35)

		assert.False(t, ok)
	})
}
