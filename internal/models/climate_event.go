package models

import "time"

// Event types recorded in the climate event log.
const (
	EventTargetChange = "TARGET_CHANGE"
	EventPresetChange = "PRESET_CHANGE"
	EventModeChange   = "MODE_CHANGE"
	EventCommand      = "COMMAND"
	EventError        = "ERROR"
)

// ClimateEvent is a single log entry.
type ClimateEvent struct {
	EventID      string    `json:"event_id"`
	ControllerID string    `json:"controller_id"`
	OccurredAt   time.Time `json:"occurred_at"`
	Type         string    `json:"type"`        // TARGET_CHANGE | PRESET_CHANGE | MODE_CHANGE | COMMAND | ERROR
	Description  string    `json:"description"` // human-readable
	Metadata     any       `json:"metadata,omitempty"`
}
