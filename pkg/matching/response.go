package matching

// wire types of the map-matching service response. tracepoints entries are
// null when the service could not match that input point.
type matchResponse struct {
	Code        string          `json:"code"`
	Tracepoints []*tracepoint   `json:"tracepoints"`
	Matchings   []matchGeometry `json:"matchings"`
}

type tracepoint struct {
	Location [2]float64 `json:"location"` // [lon, lat]
}

type matchGeometry struct {
	Legs []matchLeg `json:"legs"`
}

type matchLeg struct {
	Steps []matchStep `json:"steps"`
}

type matchStep struct {
	Distance float64       `json:"distance"`
	Duration float64       `json:"duration"`
	Maneuver matchManeuver `json:"maneuver"`
}

type matchManeuver struct {
	Instruction string     `json:"instruction"`
	Type        string     `json:"type"`
	Modifier    string     `json:"modifier"`
	Location    [2]float64 `json:"location"` // [lon, lat]
}
