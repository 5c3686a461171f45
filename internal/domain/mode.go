package domain

import "fmt"

// Mode is where the application keeps its content.
type Mode string

// Modes.
const (
	ModeNormal     Mode = "normal"
	ModeStandalone Mode = "standalone"
)

// ParseMode validates s as a Mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeNormal, ModeStandalone:
		return m, nil
	default:
		return "", fmt.Errorf("unknown mode %q (must be normal or standalone)", s)
	}
}

// Direction is the way a migration moves content.
type Direction string

// Directions.
const (
	ToStandalone Direction = "to-standalone"
	ToNormal     Direction = "to-normal"
)

// ParseDirection validates s as a Direction.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case ToStandalone, ToNormal:
		return d, nil
	default:
		return "", fmt.Errorf("unknown direction %q (must be to-standalone or to-normal)", s)
	}
}

// SourceMode is the mode the application must be in to migrate in d.
func (d Direction) SourceMode() Mode {
	if d == ToNormal {
		return ModeStandalone
	}
	return ModeNormal
}

// TargetMode is the mode the content lives in after migrating in d.
func (d Direction) TargetMode() Mode {
	if d == ToNormal {
		return ModeNormal
	}
	return ModeStandalone
}
