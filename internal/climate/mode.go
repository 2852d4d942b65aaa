package climate

import (
	"fmt"
	"strings"
)

// Mode is the HVAC operating mode commanded to a device.
type Mode uint8

const (
	ModeOff Mode = iota
	ModeHeat
	ModeCool
)

func (m Mode) String() string {
	switch m {
	case ModeHeat:
		return "heat"
	case ModeCool:
		return "cool"
	default:
		return "off"
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMode accepts the lowercase names used by Home Assistant (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "":
		return ModeOff, nil
	case "heat":
		return ModeHeat, nil
	case "cool":
		return ModeCool, nil
	default:
		return ModeOff, fmt.Errorf("unknown hvac mode %q", s)
	}
}
