package datastructure

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func NewCoordinate(lat, lon float64) Coordinate {
	return Coordinate{
		Lat: lat,
		Lon: lon,
	}
}

func NewCoordinates(lat, lon []float64) []Coordinate {
	coords := make([]Coordinate, len(lat))
	for i := range lat {
		coords[i] = NewCoordinate(lat[i], lon[i])
	}
	return coords
}

// RoutePoint is a Coordinate parsed from a gpx file, with the optional
// child elements of a <trkpt>/<wpt>.
type RoutePoint struct {
	Coordinate
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
	Desc string `json:"desc,omitempty"`
}

func NewRoutePoint(lat, lon float64, name, pointType, desc string) RoutePoint {
	return RoutePoint{
		Coordinate: NewCoordinate(lat, lon),
		Name:       name,
		Type:       pointType,
		Desc:       desc,
	}
}

// Route is the immutable result of parsing one route file. StartPoint and
// EndPoint fall back to the first/last track point when the file carries no
// start/end waypoint and the track is non-empty.
type Route struct {
	TrackPoints []RoutePoint `json:"track_points"`
	Waypoints   []RoutePoint `json:"waypoints"`
	StartPoint  *RoutePoint  `json:"start_point,omitempty"`
	EndPoint    *RoutePoint  `json:"end_point,omitempty"`
	Stops       []RoutePoint `json:"stops"`
}

func (r *Route) TrackCoordinates() []Coordinate {
	coords := make([]Coordinate, len(r.TrackPoints))
	for i := range r.TrackPoints {
		coords[i] = r.TrackPoints[i].Coordinate
	}
	return coords
}

// MatchedRoute holds the road-aligned version of a recorded trace. SnappedPoints
// always has the same cardinality as the trace it was derived from.
type MatchedRoute struct {
	SnappedPoints []Coordinate  `json:"snapped_points"`
	Instructions  []Instruction `json:"instructions"`
}
