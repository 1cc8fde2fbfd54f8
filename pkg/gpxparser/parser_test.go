package gpxparser_test

import (
	"strings"
	"testing"

	"github.com/ridenav/rideengine/pkg/datastructure"
	"github.com/ridenav/rideengine/pkg/gpxparser"

	"github.com/stretchr/testify/assert"
)

const touringGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test">
  <wpt lat="-7.5560" lon="110.8300"><name>start</name></wpt>
  <wpt lat="-7.5600" lon="110.8400"><name>_waypoint_stop</name><desc>fuel</desc></wpt>
  <wpt lat="-7.5620" lon="110.8440"><name>warung soto pak min</name></wpt>
  <wpt lat="-7.5650" lon="110.8500"><name>finish</name></wpt>
  <trk>
    <trkseg>
      <trkpt lat="-7.5560" lon="110.8300"></trkpt>
      <trkpt lat="-7.5580" lon="110.8350"></trkpt>
      <trkpt lat="-7.5600" lon="110.8400"></trkpt>
    </trkseg>
    <trkseg>
      <trkpt lat="-7.5620" lon="110.8450"></trkpt>
      <trkpt lat="-7.5650" lon="110.8500"></trkpt>
    </trkseg>
  </trk>
</gpx>`

func TestParseReader(t *testing.T) {
	t.Run("full touring file", func(t *testing.T) {
		route, err := gpxparser.ParseReader(strings.NewReader(touringGPX))

		assert.Nil(t, err)
		// both segments flattened in order
		assert.Equal(t, 5, len(route.TrackPoints))
		assert.Equal(t, -7.5560, route.TrackPoints[0].Lat)
		assert.Equal(t, -7.5650, route.TrackPoints[4].Lat)

		assert.NotNil(t, route.StartPoint)
		assert.Equal(t, "start", route.StartPoint.Name)
		assert.NotNil(t, route.EndPoint)
		assert.Equal(t, "finish", route.EndPoint.Name)

		assert.Equal(t, 1, len(route.Stops))
		assert.Equal(t, "_waypoint_stop", route.Stops[0].Name)

		// the poi waypoint is excluded from the model
		assert.Equal(t, 3, len(route.Waypoints))
	})

	t.Run("track only falls back to first and last point", func(t *testing.T) {
		trackOnly := `<gpx><trk><trkseg>
			<trkpt lat="-7.10" lon="110.10"></trkpt>
			<trkpt lat="-7.20" lon="110.20"></trkpt>
			<trkpt lat="-7.30" lon="110.30"></trkpt>
		</trkseg></trk></gpx>`

		route, err := gpxparser.ParseReader(strings.NewReader(trackOnly))

		assert.Nil(t, err)
		assert.Equal(t, -7.10, route.StartPoint.Lat)
		assert.Equal(t, -7.30, route.EndPoint.Lat)
		assert.Empty(t, route.Stops)
	})

	t.Run("malformed point is skipped not fatal", func(t *testing.T) {
		withBadPoint := `<gpx><trk><trkseg>
			<trkpt lat="-7.10" lon="110.10"></trkpt>
			<trkpt lat="not-a-number" lon="110.20"></trkpt>
			<trkpt lat="-7.30" lon="110.30"></trkpt>
		</trkseg></trk></gpx>`

		route, err := gpxparser.ParseReader(strings.NewReader(withBadPoint))

		assert.Nil(t, err)
		assert.Equal(t, 2, len(route.TrackPoints))
	})

	t.Run("broken xml returns ParseError", func(t *testing.T) {
		_, err := gpxparser.ParseReader(strings.NewReader("<gpx><trk>"))

		assert.NotNil(t, err)
		var parseErr *gpxparser.ParseError
		assert.ErrorAs(t, err, &parseErr)
	})

	t.Run("empty file returns ParseError", func(t *testing.T) {
		_, err := gpxparser.ParseReader(strings.NewReader(""))

		assert.NotNil(t, err)
	})
}

func TestBuildRoute(t *testing.T) {
	t.Run("first start and end waypoint win", func(t *testing.T) {
		waypoints := []datastructure.RoutePoint{
			datastructure.NewRoutePoint(-7.1, 110.1, "start", "", ""),
			datastructure.NewRoutePoint(-7.2, 110.2, "start", "", ""),
			datastructure.NewRoutePoint(-7.3, 110.3, "end", "", ""),
			datastructure.NewRoutePoint(-7.4, 110.4, "finish", "", ""),
		}

		route := gpxparser.BuildRoute(nil, waypoints)

		assert.Equal(t, -7.1, route.StartPoint.Lat)
		assert.Equal(t, -7.3, route.EndPoint.Lat)
	})

	t.Run("stops keep encounter order", func(t *testing.T) {
		waypoints := []datastructure.RoutePoint{
			datastructure.NewRoutePoint(-7.2, 110.2, "_waypoint_stop_b", "", ""),
			datastructure.NewRoutePoint(-7.1, 110.1, "_waypoint_stop_a", "", ""),
		}

		route := gpxparser.BuildRoute(nil, waypoints)

		assert.Equal(t, 2, len(route.Stops))
		assert.Equal(t, "_waypoint_stop_b", route.Stops[0].Name)
		assert.Equal(t, "_waypoint_stop_a", route.Stops[1].Name)
	})

	t.Run("no points at all", func(t *testing.T) {
		route := gpxparser.BuildRoute(nil, nil)

		assert.Nil(t, route.StartPoint)
		assert.Nil(t, route.EndPoint)
		assert.Empty(t, route.TrackPoints)
	})
}
