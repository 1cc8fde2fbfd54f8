package service

import (
	"bytes"
	"context"
	"log"
	"sync"

	"github.com/ridenav/rideengine/pkg/datastructure"
	"github.com/ridenav/rideengine/pkg/geo"
	"github.com/ridenav/rideengine/pkg/gpxparser"
	"github.com/ridenav/rideengine/pkg/kv"
	"github.com/ridenav/rideengine/pkg/location"
	"github.com/ridenav/rideengine/pkg/matching"
	"github.com/ridenav/rideengine/pkg/server"
	"github.com/ridenav/rideengine/pkg/snap"
	"github.com/ridenav/rideengine/pkg/tracking"
)

type MapMatcher interface {
	Match(ctx context.Context, trace []datastructure.Coordinate,
		progress matching.ProgressFunc) (datastructure.MatchedRoute, error)
}

type MatchCache interface {
	Put(key, profile string, matched datastructure.MatchedRoute) error
	Get(key string) (datastructure.MatchedRoute, bool, error)
}

// NavigationService owns the single tracking session: the loaded route, the
// fix pipeline and the mode controller. Map matching and caching are optional
// enrichment; when they fail the raw parsed route keeps working.
type NavigationService struct {
	matcher    MapMatcher
	cache      MatchCache
	controller *tracking.Controller
	pipeline   *location.Pipeline
	profile    string

	// fixes must be processed strictly in arrival order
	mu sync.Mutex
}

func NewNavigationService(matcher MapMatcher, cache MatchCache,
	controller *tracking.Controller, pipeline *location.Pipeline, profile string) *NavigationService {
	return &NavigationService{
		matcher:    matcher,
		cache:      cache,
		controller: controller,
		pipeline:   pipeline,
		profile:    profile,
	}
}

// LoadRoute parses a route file, makes it the active route and kicks off
// asynchronous map-matching enrichment. Only a parse failure is returned to
// the caller; enrichment failures merely leave the route unenriched.
func (s *NavigationService) LoadRoute(fileBytes []byte) (datastructure.Route, error) {
	route, err := gpxparser.ParseReader(bytes.NewReader(fileBytes))
	if err != nil {
		return datastructure.Route{}, server.WrapErrorf(err, server.ErrBadParamInput,
			"route file could not be parsed")
	}

	trace := route.TrackCoordinates()

	var snapper tracking.Snapper
	if index, err := snap.NewRouteIndex(trace); err == nil {
		snapper = index
	}

	s.mu.Lock()
	generation := s.controller.SetRoute(&route, snapper)
	s.pipeline.Reset()
	s.mu.Unlock()

	if len(trace) >= 2 {
		go s.enrichRoute(generation, kv.RouteFileKey(fileBytes), trace)
	}

	return route, nil
}

// enrichRoute resolves the matched route for one route generation, from cache
// when possible. A result for a replaced route is dropped by the generation
// guard inside CommitMatchedRoute.
func (s *NavigationService) enrichRoute(generation uint64, key string,
	trace []datastructure.Coordinate) {
	if matched, ok, err := s.cache.Get(key); err == nil && ok {
		s.controller.CommitMatchedRoute(generation, matched)
		return
	} else if err != nil {
		log.Printf("snap cache read failed for %s: %v", key, err)
	}

	matched, err := s.matcher.Match(context.Background(), trace, func(done, total int) {
		log.Printf("map matching %s: %d/%d chunks", key, done, total)
	})
	if err != nil {
		log.Printf("map matching failed for %s: %v", key, err)
		return
	}

	if err := s.cache.Put(key, s.profile, matched); err != nil {
		log.Printf("snap cache write failed for %s: %v", key, err)
	}

	s.controller.CommitMatchedRoute(generation, matched)
}

// StartTracking enables tracking and bootstraps the position from the cached
// last-known fixes so something shows before the first live update.
func (s *NavigationService) StartTracking(lastKnown []location.Fix) tracking.DisplayState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pipeline.Reset()
	s.controller.StartTracking()

	if update, ok := s.pipeline.Bootstrap(lastKnown); ok {
		return s.controller.OnPosition(update)
	}
	return s.controller.State()
}

func (s *NavigationService) StopTracking() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.controller.StopTracking()
	s.pipeline.Reset()
}

// PushFix runs one raw fix through the pipeline. Rejected fixes change
// nothing and report accepted=false.
func (s *NavigationService) PushFix(fix location.Fix) (tracking.DisplayState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	update, ok := s.pipeline.Update(fix)
	if !ok {
		return s.controller.State(), false
	}
	return s.controller.OnPosition(update), true
}

func (s *NavigationService) ExitNavigation() tracking.DisplayState {
	s.controller.ExitNavigation()
	return s.controller.State()
}

func (s *NavigationService) Recenter() tracking.DisplayState {
	return s.controller.Recenter()
}

func (s *NavigationService) UserGesture() tracking.DisplayState {
	s.controller.UserGesture()
	return s.controller.State()
}

// State is the full reactive view the renderer consumes.
type State struct {
	Route          *datastructure.Route
	Matched        *datastructure.MatchedRoute
	Tracking       bool
	Display        tracking.DisplayState
	Session        tracking.Session
	MatchedSegment int // segment of the matched geometry the display position is on, -1 without one
}

func (s *NavigationService) State() State {
	state := State{
		Route:          s.controller.Route(),
		Matched:        s.controller.MatchedRoute(),
		Tracking:       s.controller.IsTracking(),
		Display:        s.controller.State(),
		Session:        s.controller.Session(),
		MatchedSegment: -1,
	}

	// the display position sits on the raw route polyline, which can deviate
	// slightly from the matched geometry. Project it onto the nearest matched
	// segment first so the segment lookup sees an on-line point.
	if state.Matched != nil && state.Session.OnRoute && len(state.Matched.SnappedPoints) >= 2 {
		snapped := state.Matched.SnappedPoints
		if projection, err := geo.NearestPointOnPolyline(state.Display.Position, snapped); err == nil {
			i := projection.SegmentIndex
			refined := geo.ProjectPointToLineCoord(snapped[i], snapped[i+1], state.Display.Position)
			state.MatchedSegment = geo.PointPositionBetweenLinePoints(refined.Lat, refined.Lon, snapped)
		}
	}

	return state
}
