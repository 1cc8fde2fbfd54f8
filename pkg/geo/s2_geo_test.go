package geo_test

import (
	"testing"

	"github.com/ridenav/rideengine/pkg/datastructure"
	"github.com/ridenav/rideengine/pkg/geo"

	"github.com/stretchr/testify/assert"
)

func TestProjectPointToLineCoord(t *testing.T) {
	// west-east segment at lat -7.5560
	a := datastructure.NewCoordinate(-7.5560, 110.8300)
	b := datastructure.NewCoordinate(-7.5560, 110.8320)

	t.Run("off-line point lands on the segment", func(t *testing.T) {
		projected := geo.ProjectPointToLineCoord(a, b, datastructure.NewCoordinate(-7.5565, 110.8310))

		assert.InDelta(t, -7.5560, projected.Lat, 1e-5)
		assert.InDelta(t, 110.8310, projected.Lon, 1e-5)
	})

	t.Run("point on the segment projects onto itself", func(t *testing.T) {
		p := datastructure.NewCoordinate(-7.5560, 110.8305)

		projected := geo.ProjectPointToLineCoord(a, b, p)

		assert.InDelta(t, p.Lat, projected.Lat, 1e-7)
		assert.InDelta(t, p.Lon, projected.Lon, 1e-7)
	})
}

func TestPointPositionBetweenLinePoints(t *testing.T) {
	line := []datastructure.Coordinate{
		{Lat: -7.5560, Lon: 110.8300},
		{Lat: -7.5560, Lon: 110.8310},
		{Lat: -7.5560, Lon: 110.8320},
	}

	t.Run("point on the first segment", func(t *testing.T) {
		assert.Equal(t, 1, geo.PointPositionBetweenLinePoints(-7.5560, 110.8305, line))
	})

	t.Run("point on the second segment", func(t *testing.T) {
		assert.Equal(t, 2, geo.PointPositionBetweenLinePoints(-7.5560, 110.8315, line))
	})
}
