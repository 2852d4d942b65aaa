package climate

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// ModeSyncInput is the data a mode sync template is executed against.
type ModeSyncInput struct {
	Indoor  float64
	Outdoor *float64
	Target  float64
	Preset  string
	Now     time.Time
}

// modeSync locks the direction of an evaluation to whatever the template renders.
type modeSync struct {
	tmpl *template.Template
}

func newModeSync(text string) (*modeSync, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	tmpl, err := template.New("mode_sync").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: parse: %v", ErrTemplate, err)
	}
	return &modeSync{tmpl: tmpl}, nil
}

// Evaluate returns ModeHeat or ModeCool with ok=true when the template renders
// "heat" or "cool". Any other output means no override.
func (s *modeSync) Evaluate(in ModeSyncInput) (Mode, bool, error) {
	if s == nil {
		return ModeOff, false, nil
	}
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, in); err != nil {
		return ModeOff, false, fmt.Errorf("%w: execute: %v", ErrTemplate, err)
	}
	switch strings.ToLower(strings.TrimSpace(buf.String())) {
	case "heat":
		return ModeHeat, true, nil
	case "cool":
		return ModeCool, true, nil
	default:
		return ModeOff, false, nil
	}
}
