package climate

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Presets maps a preset name to its setpoint. A nil value means the preset is
// not defined for that mode.
type Presets map[string]*float64

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// PresetNone is the preset that disables control in the default tables.
const PresetNone = "none"

// DefaultHeatingPresets returns a fresh copy of the default heating table.
func DefaultHeatingPresets() Presets {
	return Presets{
		PresetNone: nil,
		"eco":      Float(15),
		"away":     Float(15),
		"sleep":    Float(15),
		"comfort":  Float(20),
		"boost":    Float(24),
		"home":     Float(18),
		"activity": Float(18),
	}
}

// DefaultCoolingPresets returns a fresh copy of the default cooling table.
func DefaultCoolingPresets() Presets {
	return Presets{
		PresetNone: nil,
		"eco":      nil,
		"away":     nil,
		"sleep":    nil,
		"comfort":  Float(24),
		"boost":    Float(22),
		"home":     Float(26),
		"activity": Float(26),
	}
}

// ParsePresetsJSON decodes a table written as a JSON object, e.g. {"eco": 15, "none": null}.
func ParsePresetsJSON(s string) (Presets, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Presets{}, nil
	}
	var p Presets
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return nil, fmt.Errorf("parse preset table: %w", err)
	}
	return p, nil
}

// Clone returns a copy that shares no pointers with p.
func (p Presets) Clone() Presets {
	out := make(Presets, len(p))
	for name, v := range p {
		if v == nil {
			out[name] = nil
			continue
		}
		out[name] = Float(*v)
	}
	return out
}

// PresetTables holds the heating and cooling preset tables of one controller.
type PresetTables struct {
	Heating Presets
	Cooling Presets
}

// lookup finds name in p, exactly or else ignoring case, and returns the
// configured spelling.
func (p Presets) lookup(name string) (string, *float64, bool) {
	if v, ok := p[name]; ok {
		return name, v, true
	}
	for key, v := range p {
		if strings.EqualFold(key, name) {
			return key, v, true
		}
	}
	return "", nil, false
}

// Canonical returns the configured spelling of preset name. Names match
// case-insensitively; the heating table's spelling wins.
func (t PresetTables) Canonical(name string) (string, bool) {
	if key, _, ok := t.Heating.lookup(name); ok {
		return key, true
	}
	if key, _, ok := t.Cooling.lookup(name); ok {
		return key, true
	}
	return "", false
}

// Has reports whether name is present in either table, ignoring case.
func (t PresetTables) Has(name string) bool {
	_, ok := t.Canonical(name)
	return ok
}

// Names returns the sorted union of preset names. Names differing only in case
// are listed once, with the heating table's spelling.
func (t PresetTables) Names() []string {
	seen := make(map[string]struct{}, len(t.Heating)+len(t.Cooling))
	names := make([]string, 0, len(t.Heating)+len(t.Cooling))
	for _, table := range []Presets{t.Heating, t.Cooling} {
		keys := make([]string, 0, len(table))
		for name := range table {
			keys = append(keys, name)
		}
		sort.Strings(keys)
		for _, name := range keys {
			folded := strings.ToLower(name)
			if _, dup := seen[folded]; dup {
				continue
			}
			seen[folded] = struct{}{}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Resolve picks the target for preset name. When both tables define a value the
// heating value is used below the midpoint of the two and the cooling value at or
// above it; with no indoor reading the heating value wins. A nil result disables
// control.
func (t PresetTables) Resolve(name string, current *float64) (*float64, error) {
	_, heat, inHeat := t.Heating.lookup(name)
	_, cool, inCool := t.Cooling.lookup(name)
	if !inHeat && !inCool {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}

	switch {
	case heat == nil && cool == nil:
		return nil, nil
	case heat == nil:
		return Float(*cool), nil
	case cool == nil:
		return Float(*heat), nil
	}

	if current == nil {
		return Float(*heat), nil
	}
	midpoint := (*heat + *cool) / 2
	if *current < midpoint {
		return Float(*heat), nil
	}
	return Float(*cool), nil
}
