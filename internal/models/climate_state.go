package models

import "time"

// ClimateState is the snapshot of one controller exposed over HTTP/WS and persisted
// so preset and target survive a restart.
type ClimateState struct {
	ControllerID      string    `json:"controller_id"`
	Name              string    `json:"name"`
	PresetMode        string    `json:"preset_mode"`
	PresetModes       []string  `json:"preset_modes,omitempty"`
	TargetTempC       *float64  `json:"target_temp_c"`            // nil = control disabled
	CurrentTempC      *float64  `json:"current_temp_c"`           // last good indoor reading
	OutdoorTempC      *float64  `json:"outdoor_temp_c,omitempty"` // last good outdoor reading
	LastMode          string    `json:"last_mode"`                // off | heat | cool
	PrimaryDevice     string    `json:"primary_device"`
	PrimaryMode       string    `json:"primary_mode,omitempty"` // empty until first command
	PrimarySetpoint   *float64  `json:"primary_setpoint_c,omitempty"`
	SecondaryDevice   string    `json:"secondary_device,omitempty"`
	SecondaryMode     string    `json:"secondary_mode,omitempty"`
	SecondarySetpoint *float64  `json:"secondary_setpoint_c,omitempty"`
	LastSwitchAt      time.Time `json:"last_switch_at,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}
