package geo

import (
	"math"

	"github.com/ridenav/rideengine/pkg/datastructure"

	"github.com/golang/geo/s2"
)

// ProjectPointToLineCoord projects snap onto the great-circle segment between
// the two line points.
func ProjectPointToLineCoord(linePointOne, linePointTwo, snap datastructure.Coordinate) datastructure.Coordinate {
	oneS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(linePointOne.Lat, linePointOne.Lon))
	twoS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(linePointTwo.Lat, linePointTwo.Lon))
	snapS2 := s2.PointFromLatLng(s2.LatLngFromDegrees(snap.Lat, snap.Lon))
	projection := s2.Project(snapS2, oneS2, twoS2)
	projectLatLng := s2.LatLngFromPoint(projection)
	return datastructure.NewCoordinate(projectLatLng.Lat.Degrees(), projectLatLng.Lng.Degrees())
}

const (
	tolerancePointInLine = 1e-3
)

// PointPositionBetweenLinePoints returns the index of the line point that ends
// the segment the (already projected) point lies on. lat,lon must be on or
// very near the line.
func PointPositionBetweenLinePoints(lat, lon float64, linePoints []datastructure.Coordinate) int {
	minDiff := math.MaxFloat64
	var pos int
	for i := 0; i < len(linePoints)-1; i++ {

		currQueryDist := s2.LatLngFromDegrees(lat, lon).Distance(s2.LatLngFromDegrees(linePoints[i].Lat, linePoints[i].Lon)).Radians()
		nextQueryDist := s2.LatLngFromDegrees(lat, lon).Distance(s2.LatLngFromDegrees(linePoints[i+1].Lat, linePoints[i+1].Lon)).Radians()

		currNextDist := s2.LatLngFromDegrees(linePoints[i].Lat, linePoints[i].Lon).Distance(s2.LatLngFromDegrees(linePoints[i+1].Lat, linePoints[i+1].Lon)).Radians()

		diff := math.Abs(currQueryDist + nextQueryDist - currNextDist)
		if diff < tolerancePointInLine && diff < minDiff {
			minDiff = diff
			pos = i + 1
		}
	}
	return pos
}
