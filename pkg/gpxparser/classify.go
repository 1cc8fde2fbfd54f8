package gpxparser

import (
	"strings"
	"unicode"
)

type WaypointRole int

const (
	// RoleNone excludes the waypoint from the route model entirely.
	RoleNone WaypointRole = iota
	RoleStart
	RoleEnd
	RoleStop
)

// waypointMarker is the reserved name prefix a route creator uses to mark a
// waypoint as part of the navigation model.
const waypointMarker = "_waypoint_"

// ClassifyWaypointName derives a waypoint role from its raw name. Names that
// neither match start/end exactly nor carry the reserved marker prefix are
// excluded: plain POI waypoints must not become navigation stops.
func ClassifyWaypointName(name string) WaypointRole {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return RoleNone
	}

	switch name {
	case "start":
		return RoleStart
	case "end", "finish":
		return RoleEnd
	}

	if !strings.HasPrefix(name, waypointMarker) {
		return RoleNone
	}

	rest := name[len(waypointMarker):]
	token := rest
	if idx := strings.IndexFunc(rest, func(r rune) bool {
		return r == '_' || unicode.IsSpace(r)
	}); idx >= 0 {
		token = rest[:idx]
	}

	switch token {
	case "start":
		return RoleStart
	case "end", "finish":
		return RoleEnd
	default:
		// includes "stop" and every unknown marker token
		return RoleStop
	}
}
