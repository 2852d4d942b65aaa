package service

import "time"

// LogFilter supports history filtering by time range, type and controller.
type LogFilter struct {
	From         time.Time // inclusive; zero means no lower bound
	To           time.Time // inclusive; zero means no upper bound
	Type         string    // "", "TARGET_CHANGE", "PRESET_CHANGE", "MODE_CHANGE", "COMMAND", "ERROR"
	ControllerID string    // "" means all controllers
}
