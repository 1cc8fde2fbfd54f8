package tracking

import (
	"time"

	"github.com/ridenav/rideengine/pkg/datastructure"
)

type Mode int

const (
	ModeCasual Mode = iota
	ModeNavigating
)

func (m Mode) String() string {
	if m == ModeNavigating {
		return "navigating"
	}
	return "casual"
}

// Session is the mutable state of one tracking session. It is reset wholesale
// when tracking stops or a new route is loaded, never partially reused across
// routes.
type Session struct {
	Mode       Mode
	AutoFollow bool

	HasPosition bool
	RawPosition datastructure.Coordinate // last smoothed live position
	Position    datastructure.Coordinate // position handed to the renderer
	Bearing     float64
	OnRoute     bool // Position is route snapped
	Segment     int  // route segment index of the snapped position

	HasRouteLine    bool
	RouteLine       [2]datastructure.Coordinate // live position -> route start
	routeLineAt     time.Time
	routeLineOrigin datastructure.Coordinate
}
