package guidance

import (
	"fmt"
	"strings"

	"github.com/ridenav/rideengine/pkg/datastructure"
)

const (
	UNKNOWN            = -9999
	U_TURN             = -8
	TURN_SHARP_LEFT    = -3
	TURN_LEFT          = -2
	TURN_SLIGHT_LEFT   = -1
	CONTINUE_ON_STREET = 0
	TURN_SLIGHT_RIGHT  = 1
	TURN_RIGHT         = 2
	TURN_SHARP_RIGHT   = 3
	FINISH             = 4
	USE_ROUNDABOUT     = 6
	START              = 101
)

// TurnSign maps a map-matching maneuver type + modifier onto the turn sign a
// renderer picks its arrow icon from.
func TurnSign(maneuverType, modifier string) int {
	switch maneuverType {
	case "depart":
		return START
	case "arrive":
		return FINISH
	case "roundabout", "rotary":
		return USE_ROUNDABOUT
	}

	switch modifier {
	case "uturn":
		return U_TURN
	case "sharp left":
		return TURN_SHARP_LEFT
	case "left":
		return TURN_LEFT
	case "slight left":
		return TURN_SLIGHT_LEFT
	case "straight":
		return CONTINUE_ON_STREET
	case "slight right":
		return TURN_SLIGHT_RIGHT
	case "right":
		return TURN_RIGHT
	case "sharp right":
		return TURN_SHARP_RIGHT
	}

	if maneuverType == "continue" || maneuverType == "new name" {
		return CONTINUE_ON_STREET
	}
	return UNKNOWN
}

// DescribeInstruction returns the service-provided text when present, else a
// description built from the maneuver fields.
func DescribeInstruction(ins datastructure.Instruction) string {
	if strings.TrimSpace(ins.Text) != "" {
		return ins.Text
	}

	switch TurnSign(ins.Maneuver, ins.Modifier) {
	case START:
		return "Depart"
	case FINISH:
		return "Arrive at destination"
	case USE_ROUNDABOUT:
		return "Take the roundabout"
	case U_TURN:
		return "Make a U-turn"
	case TURN_SHARP_LEFT:
		return "Turn sharp left"
	case TURN_LEFT:
		return "Turn left"
	case TURN_SLIGHT_LEFT:
		return "Turn slight left"
	case CONTINUE_ON_STREET:
		return "Continue"
	case TURN_SLIGHT_RIGHT:
		return "Turn slight right"
	case TURN_RIGHT:
		return "Turn right"
	case TURN_SHARP_RIGHT:
		return "Turn sharp right"
	}

	if ins.Modifier != "" {
		return fmt.Sprintf("%s %s", capitalize(ins.Maneuver), ins.Modifier)
	}
	return capitalize(ins.Maneuver)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
