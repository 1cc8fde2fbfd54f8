package tracking

import (
	"sync"
	"time"

	"github.com/ridenav/rideengine/pkg/datastructure"
	"github.com/ridenav/rideengine/pkg/geo"
	"github.com/ridenav/rideengine/pkg/location"
)

// Snapper answers bounded nearest-point-on-route queries.
type Snapper interface {
	NearestWithinRadius(p datastructure.Coordinate, maxMeters float64) (geo.PolylineProjection, bool)
}

type Config struct {
	NavigationTriggerMeters float64       // casual -> navigating when this close to the route
	DisplaySnapMeters       float64       // displayed position glues to the route within this
	NavigationZoom          float64       // camera zoom while auto-following
	RouteLineInterval       time.Duration // min time between route-to-start recomputes
	RouteLineMoveMeters     float64       // min movement between route-to-start recomputes
}

func DefaultConfig() Config {
	return Config{
		NavigationTriggerMeters: 50,
		DisplaySnapMeters:       35,
		NavigationZoom:          16,
		RouteLineInterval:       15 * time.Second,
		RouteLineMoveMeters:     50,
	}
}

// DisplayState is what the renderer needs after a position update or command.
type DisplayState struct {
	Position   datastructure.Coordinate
	Bearing    float64
	Mode       Mode
	AutoFollow bool
	Recenter   bool    // re-center the camera now
	Zoom       float64 // only meaningful when Recenter
}

// Controller is the casual/navigating state machine. Position updates arrive
// strictly sequentially from the fix pipeline; the mutex only guards against
// the async map-matching commit.
type Controller struct {
	cfg Config
	now func() time.Time

	mu         sync.Mutex
	generation uint64
	route      *datastructure.Route
	matched    *datastructure.MatchedRoute
	snapper    Snapper
	tracking   bool
	session    Session
}

func NewController(cfg Config) *Controller {
	return &Controller{
		cfg: cfg,
		now: time.Now,
	}
}

// SetRoute replaces the loaded route, discards all derived state and returns
// the new generation. Async enrichment results must present this generation
// to CommitMatchedRoute.
func (c *Controller) SetRoute(route *datastructure.Route, snapper Snapper) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.route = route
	c.matched = nil
	c.snapper = snapper
	c.session = Session{}
	return c.generation
}

func (c *Controller) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// CommitMatchedRoute stores an enrichment result unless the route it was
// computed for has been replaced meanwhile.
func (c *Controller) CommitMatchedRoute(generation uint64, matched datastructure.MatchedRoute) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		return false
	}
	c.matched = &matched
	return true
}

func (c *Controller) MatchedRoute() *datastructure.MatchedRoute {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.matched
}

func (c *Controller) Route() *datastructure.Route {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.route
}

func (c *Controller) StartTracking() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracking = true
}

// StopTracking discards the whole session. The loaded route survives; the
// navigation mode does not.
func (c *Controller) StopTracking() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracking = false
	c.session = Session{}
}

func (c *Controller) IsTracking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracking
}

// OnPosition consumes one accepted pipeline update and returns the resulting
// display state.
func (c *Controller) OnPosition(u location.Update) DisplayState {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.tracking {
		return c.displayStateLocked(false)
	}

	s := &c.session
	s.HasPosition = true
	s.RawPosition = u.Position
	s.Bearing = u.Bearing

	if s.Mode == ModeCasual && c.route != nil && c.nearRouteLocked(u.Position) {
		s.Mode = ModeNavigating
		s.AutoFollow = true
	}

	s.Position = u.Position
	s.OnRoute = false
	if s.Mode == ModeNavigating && c.snapper != nil {
		if projection, ok := c.snapper.NearestWithinRadius(u.Position, c.cfg.DisplaySnapMeters); ok {
			s.Position = projection.Point
			s.OnRoute = true
			s.Segment = projection.SegmentIndex
		}
	}

	c.updateRouteLineLocked(u.Position)

	// auto-follow re-centers on every update; casual mode leaves the camera alone
	recenter := s.Mode == ModeNavigating && s.AutoFollow
	return c.displayStateLocked(recenter)
}

// nearRouteLocked is the navigation trigger: within the trigger radius of the
// start point or of the nearest point on the route polyline.
func (c *Controller) nearRouteLocked(p datastructure.Coordinate) bool {
	if start := c.route.StartPoint; start != nil {
		dist := geo.CalculateHaversineDistance(p.Lat, p.Lon, start.Lat, start.Lon)
		if dist <= c.cfg.NavigationTriggerMeters {
			return true
		}
	}
	if c.snapper != nil {
		if _, ok := c.snapper.NearestWithinRadius(p, c.cfg.NavigationTriggerMeters); ok {
			return true
		}
	}
	return false
}

// updateRouteLineLocked maintains the straight helper line from the live
// position to the route start. Recomputes are rate limited to once per
// RouteLineInterval unless the rider moved RouteLineMoveMeters.
func (c *Controller) updateRouteLineLocked(p datastructure.Coordinate) {
	if c.route == nil || c.route.StartPoint == nil {
		c.session.HasRouteLine = false
		return
	}

	s := &c.session
	if s.HasRouteLine {
		elapsed := c.now().Sub(s.routeLineAt)
		moved := geo.CalculateHaversineDistance(p.Lat, p.Lon,
			s.routeLineOrigin.Lat, s.routeLineOrigin.Lon)
		if elapsed < c.cfg.RouteLineInterval && moved < c.cfg.RouteLineMoveMeters {
			return
		}
	}

	s.HasRouteLine = true
	s.RouteLine = [2]datastructure.Coordinate{p, c.route.StartPoint.Coordinate}
	s.routeLineAt = c.now()
	s.routeLineOrigin = p
}

// ExitNavigation drops back to casual mode. This is the only way out of
// navigation besides stopping tracking.
func (c *Controller) ExitNavigation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.Mode = ModeCasual
	c.session.AutoFollow = false
	c.session.OnRoute = false
}

// UserGesture records a user-initiated pan/zoom, which suspends auto-follow
// while navigating.
func (c *Controller) UserGesture() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.Mode == ModeNavigating {
		c.session.AutoFollow = false
	}
}

// Recenter restores auto-follow and requests an immediate re-center on the
// current display position.
func (c *Controller) Recenter() DisplayState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.Mode == ModeNavigating {
		c.session.AutoFollow = true
	}
	return c.displayStateLocked(c.session.HasPosition)
}

// State returns the current display state without a camera command.
func (c *Controller) State() DisplayState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.displayStateLocked(false)
}

// Session returns a copy of the session for inspection.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Controller) displayStateLocked(recenter bool) DisplayState {
	state := DisplayState{
		Position:   c.session.Position,
		Bearing:    c.session.Bearing,
		Mode:       c.session.Mode,
		AutoFollow: c.session.AutoFollow,
		Recenter:   recenter,
	}
	if recenter {
		state.Zoom = c.cfg.NavigationZoom
	}
	return state
}
