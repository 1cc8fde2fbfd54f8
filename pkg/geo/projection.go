package geo

import (
	"errors"
	"math"

	"github.com/ridenav/rideengine/pkg/datastructure"
)

var ErrPolylineTooShort = errors.New("polyline must have at least 2 points")

// PolylineProjection is the nearest point on a polyline for some query point.
type PolylineProjection struct {
	Point        datastructure.Coordinate
	Distance     float64 // meter, query point -> Point
	SegmentIndex int     // index of the segment start point in the polyline
}

// NearestPointOnPolyline projects the query point onto every segment of the
// polyline and returns the global minimum. The polyline is mapped onto a local
// equirectangular tangent plane centered at the query latitude, which is
// accurate for route-sized areas.
func NearestPointOnPolyline(p datastructure.Coordinate, polyline []datastructure.Coordinate) (PolylineProjection, error) {
	if len(polyline) < 2 {
		return PolylineProjection{}, ErrPolylineTooShort
	}

	cosLat := math.Cos(degreeToRadians(p.Lat))

	px := degreeToRadians(p.Lon) * cosLat * earthRadiusM
	py := degreeToRadians(p.Lat) * earthRadiusM

	best := PolylineProjection{Distance: math.MaxFloat64}

	prevX := degreeToRadians(polyline[0].Lon) * cosLat * earthRadiusM
	prevY := degreeToRadians(polyline[0].Lat) * earthRadiusM

	for i := 1; i < len(polyline); i++ {
		curX := degreeToRadians(polyline[i].Lon) * cosLat * earthRadiusM
		curY := degreeToRadians(polyline[i].Lat) * earthRadiusM

		dx := curX - prevX
		dy := curY - prevY

		t := 0.0
		if segLenSq := dx*dx + dy*dy; segLenSq > 0 {
			t = ((px-prevX)*dx + (py-prevY)*dy) / segLenSq
			t = math.Max(0, math.Min(1, t))
		}

		closestX := prevX + t*dx
		closestY := prevY + t*dy

		dist := math.Hypot(px-closestX, py-closestY)
		if dist < best.Distance {
			best = PolylineProjection{
				Point: datastructure.NewCoordinate(
					radiansToDegree(closestY/earthRadiusM),
					radiansToDegree(closestX/(earthRadiusM*cosLat)),
				),
				Distance:     dist,
				SegmentIndex: i - 1,
			}
		}

		prevX, prevY = curX, curY
	}

	return best, nil
}

// NearestPointOnPolylineWithinRadius is NearestPointOnPolyline bounded by a
// maximum distance. The second return value reports whether the nearest point
// lies within maxMeters.
func NearestPointOnPolylineWithinRadius(p datastructure.Coordinate, polyline []datastructure.Coordinate,
	maxMeters float64) (datastructure.Coordinate, bool) {
	projection, err := NearestPointOnPolyline(p, polyline)
	if err != nil || projection.Distance > maxMeters {
		return datastructure.Coordinate{}, false
	}
	return projection.Point, true
}
