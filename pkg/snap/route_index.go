package snap

import (
	"math"

	"github.com/ridenav/rideengine/pkg/datastructure"
	"github.com/ridenav/rideengine/pkg/geo"

	"github.com/dhconnelly/rtreego"
	"github.com/uber/h3-go/v4"
)

const (
	// res 9 hexagons have an inradius of roughly 150 meter, comfortably above
	// every snap/trigger radius this index is queried with. A k=1 grid disk
	// around the query cell is therefore a sound coarse reject.
	cellResolution = 9

	// routes shorter than this are scanned linearly, the index buys nothing
	indexMinSegments = 32

	// meter per degree of latitude with the 6371000 m earth radius
	metersPerDegree = 111194.93
)

type segmentItem struct {
	rect  rtreego.Rect
	index int
}

func (s *segmentItem) Bounds() *rtreego.Rect {
	return &s.rect
}

// RouteIndex answers nearest-point-on-route queries for one loaded route.
// Long polylines are indexed twice: an h3 cell set for cheap coarse rejects
// and an r-tree over segment bounding boxes for candidate narrowing. The
// exact projection always comes from geo.NearestPointOnPolyline, so indexed
// and linear lookups return identical results.
type RouteIndex struct {
	line  []datastructure.Coordinate
	tree  *rtreego.Rtree
	cells map[h3.Cell]struct{}
}

func NewRouteIndex(line []datastructure.Coordinate) (*RouteIndex, error) {
	if len(line) < 2 {
		return nil, geo.ErrPolylineTooShort
	}

	ri := &RouteIndex{line: line}
	if len(line)-1 < indexMinSegments {
		return ri, nil
	}

	ri.tree = rtreego.NewTree(2, 25, 50)
	ri.cells = make(map[h3.Cell]struct{})

	for i := 0; i < len(line)-1; i++ {
		ri.tree.Insert(newSegmentItem(line[i], line[i+1], i))
		ri.addSegmentCells(line[i], line[i+1])
	}

	return ri, nil
}

func newSegmentItem(a, b datastructure.Coordinate, index int) *segmentItem {
	// tiny padding keeps axis-aligned segments from producing zero-area rects
	const pad = 1e-6
	latMin := math.Min(a.Lat, b.Lat) - pad
	latMax := math.Max(a.Lat, b.Lat) + pad
	lonMin := math.Min(a.Lon, b.Lon) - pad
	lonMax := math.Max(a.Lon, b.Lon) + pad

	rect, _ := rtreego.NewRectFromPoints(
		rtreego.Point{latMin, lonMin},
		rtreego.Point{latMax, lonMax},
	)
	return &segmentItem{rect: *rect, index: index}
}

// cellSampleMeters is the sampling step along a segment when registering its
// cells. Every segment point ends up within half a step of a sample, so with
// res 9 cells a k=1 disk around the query cell always reaches a registered
// cell for query points inside the snap radius.
const cellSampleMeters = 100.0

// addSegmentCells registers the res 9 cells along the segment, so sparse
// tracks with long segments still gate correctly.
func (ri *RouteIndex) addSegmentCells(a, b datastructure.Coordinate) {
	length := geo.CalculateHaversineDistance(a.Lat, a.Lon, b.Lat, b.Lon)
	steps := int(length/cellSampleMeters) + 1

	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		lat := a.Lat + t*(b.Lat-a.Lat)
		lon := a.Lon + t*(b.Lon-a.Lon)
		cell := h3.LatLngToCell(h3.NewLatLng(lat, lon), cellResolution)
		ri.cells[cell] = struct{}{}
	}
}

// NearestWithinRadius returns the nearest point on the route when it lies
// within maxMeters of p.
func (ri *RouteIndex) NearestWithinRadius(p datastructure.Coordinate,
	maxMeters float64) (geo.PolylineProjection, bool) {
	if ri.tree == nil {
		projection, err := geo.NearestPointOnPolyline(p, ri.line)
		if err != nil || projection.Distance > maxMeters {
			return geo.PolylineProjection{}, false
		}
		return projection, true
	}

	if !ri.nearRouteCells(p) {
		return geo.PolylineProjection{}, false
	}

	best := geo.PolylineProjection{Distance: math.MaxFloat64}
	for _, candidate := range ri.candidateSegments(p, maxMeters) {
		projection, err := geo.NearestPointOnPolyline(p, ri.line[candidate:candidate+2])
		if err != nil {
			continue
		}
		if projection.Distance < best.Distance {
			best = projection
			best.SegmentIndex = candidate
		}
	}

	if best.Distance > maxMeters {
		return geo.PolylineProjection{}, false
	}
	return best, true
}

func (ri *RouteIndex) nearRouteCells(p datastructure.Coordinate) bool {
	cell := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lon), cellResolution)
	for _, nearby := range h3.GridDisk(cell, 1) {
		if _, ok := ri.cells[nearby]; ok {
			return true
		}
	}
	return false
}

func (ri *RouteIndex) candidateSegments(p datastructure.Coordinate, maxMeters float64) []int {
	deltaLat := maxMeters / metersPerDegree
	deltaLon := deltaLat
	if cosLat := math.Cos(p.Lat * math.Pi / 180.0); cosLat > 0.01 {
		deltaLon = deltaLat / cosLat
	}

	searchRect, err := rtreego.NewRectFromPoints(
		rtreego.Point{p.Lat - deltaLat, p.Lon - deltaLon},
		rtreego.Point{p.Lat + deltaLat, p.Lon + deltaLon},
	)
	if err != nil {
		return nil
	}

	spatials := ri.tree.SearchIntersect(searchRect)
	candidates := make([]int, 0, len(spatials))
	for _, spatial := range spatials {
		candidates = append(candidates, spatial.(*segmentItem).index)
	}
	return candidates
}
