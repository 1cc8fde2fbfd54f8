package gpxparser

import (
	"encoding/xml"
	"io"
	"strconv"

	"github.com/ridenav/rideengine/pkg/datastructure"
)

// ParseError reports an unparseable route file. A ParseError means no part of
// the file was loaded.
type ParseError struct {
	err error
}

func (e *ParseError) Error() string {
	return "invalid route file: " + e.err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.err
}

// lat/lon attributes are decoded as strings so one point with a malformed
// coordinate is skipped instead of failing the whole file.
type gpxPoint struct {
	Lat  string `xml:"lat,attr"`
	Lon  string `xml:"lon,attr"`
	Name string `xml:"name"`
	Type string `xml:"type"`
	Desc string `xml:"desc"`
}

type gpxSegment struct {
	Points []gpxPoint `xml:"trkpt"`
}

type gpxTrack struct {
	Segments []gpxSegment `xml:"trkseg"`
}

type gpxFile struct {
	XMLName   xml.Name   `xml:"gpx"`
	Waypoints []gpxPoint `xml:"wpt"`
	Tracks    []gpxTrack `xml:"trk"`
}

// ParseReader parses a gpx stream into a Route. Waypoints are classified by
// name (see ClassifyWaypointName); unclassified waypoints are dropped.
func ParseReader(r io.Reader) (datastructure.Route, error) {
	decoder := xml.NewDecoder(r)

	var file gpxFile
	if err := decoder.Decode(&file); err != nil {
		return datastructure.Route{}, &ParseError{err: err}
	}

	trackPoints := make([]datastructure.RoutePoint, 0)
	for _, track := range file.Tracks {
		for _, segment := range track.Segments {
			for _, point := range segment.Points {
				rp, ok := toRoutePoint(point)
				if !ok {
					continue
				}
				trackPoints = append(trackPoints, rp)
			}
		}
	}

	waypoints := make([]datastructure.RoutePoint, 0)
	for _, point := range file.Waypoints {
		rp, ok := toRoutePoint(point)
		if !ok {
			continue
		}
		waypoints = append(waypoints, rp)
	}

	return BuildRoute(trackPoints, waypoints), nil
}

func toRoutePoint(p gpxPoint) (datastructure.RoutePoint, bool) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return datastructure.RoutePoint{}, false
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return datastructure.RoutePoint{}, false
	}
	return datastructure.NewRoutePoint(lat, lon, p.Name, p.Type, p.Desc), true
}

// BuildRoute aggregates classified waypoints into a Route. The first start
// and end waypoint win; stops keep encounter order. Without a start/end
// waypoint the first/last track point is used.
func BuildRoute(trackPoints, waypoints []datastructure.RoutePoint) datastructure.Route {
	route := datastructure.Route{
		TrackPoints: trackPoints,
		Stops:       make([]datastructure.RoutePoint, 0),
	}

	kept := make([]datastructure.RoutePoint, 0, len(waypoints))
	for i := range waypoints {
		wp := waypoints[i]
		switch ClassifyWaypointName(wp.Name) {
		case RoleStart:
			kept = append(kept, wp)
			if route.StartPoint == nil {
				route.StartPoint = &wp
			}
		case RoleEnd:
			kept = append(kept, wp)
			if route.EndPoint == nil {
				route.EndPoint = &wp
			}
		case RoleStop:
			kept = append(kept, wp)
			route.Stops = append(route.Stops, wp)
		}
	}
	route.Waypoints = kept

	if len(trackPoints) > 0 {
		if route.StartPoint == nil {
			route.StartPoint = &trackPoints[0]
		}
		if route.EndPoint == nil {
			route.EndPoint = &trackPoints[len(trackPoints)-1]
		}
	}

	return route
}
