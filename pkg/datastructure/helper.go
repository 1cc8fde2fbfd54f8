package datastructure

import (
	"github.com/twpayne/go-polyline"
)

// RenderPath encodes a path as a google encoded polyline string, for clients
// that draw the route geometry.
func RenderPath(path []Coordinate) string {
	s := ""
	coords := make([][]float64, 0)
	for _, p := range path {
		pT := p
		coords = append(coords, []float64{pT.Lat, pT.Lon})
	}
	s = string(polyline.EncodeCoords(coords))
	return s
}
