package datastructure

// Instruction is one turn-by-turn maneuver step extracted from a
// map-matching response.
type Instruction struct {
	Text     string     `json:"text"`
	Maneuver string     `json:"maneuver"`
	Modifier string     `json:"modifier,omitempty"`
	Distance float64    `json:"distance"` // meter
	Duration float64    `json:"duration"` // second
	Point    Coordinate `json:"point"`
}

func NewInstruction(text, maneuver, modifier string, distance, duration float64,
	point Coordinate) Instruction {
	return Instruction{
		Text:     text,
		Maneuver: maneuver,
		Modifier: modifier,
		Distance: distance,
		Duration: duration,
		Point:    point,
	}
}
