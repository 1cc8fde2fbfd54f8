package concurrent

import (
	"github.com/ridenav/rideengine/pkg/datastructure"
)

// MatchChunkParam is one bounded window of a gps trace, tagged with its origin
// index so concurrently matched chunks can be reassembled in order.
type MatchChunkParam struct {
	Index  int
	Points []datastructure.Coordinate
}

func NewMatchChunkParam(index int, points []datastructure.Coordinate) MatchChunkParam {
	return MatchChunkParam{
		Index:  index,
		Points: points,
	}
}

type JobI interface {
	MatchChunkParam
}

type JobFunc[T JobI, G any] func(job T) G
