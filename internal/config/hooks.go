package config

import (
	"fmt"
	"reflect"
	"strconv"

	"smart_climate/internal/climate"

	"github.com/go-viper/mapstructure/v2"
)

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		presetsHook(),
	)
}

var presetsType = reflect.TypeOf(climate.Presets{})

// presetsHook decodes a preset table from a YAML map or from a JSON string,
// the latter being how tables arrive through environment variables.
func presetsHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != presetsType {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return climate.ParsePresetsJSON(v)
		case map[string]interface{}:
			out := make(climate.Presets, len(v))
			for name, raw := range v {
				f, err := toFloatPtr(raw)
				if err != nil {
					return nil, fmt.Errorf("preset %q: %w", name, err)
				}
				out[name] = f
			}
			return out, nil
		case map[interface{}]interface{}:
			out := make(climate.Presets, len(v))
			for k, raw := range v {
				name := fmt.Sprint(k)
				f, err := toFloatPtr(raw)
				if err != nil {
					return nil, fmt.Errorf("preset %q: %w", name, err)
				}
				out[name] = f
			}
			return out, nil
		}
		return data, nil
	}
}

func toFloatPtr(raw interface{}) (*float64, error) {
	switch n := raw.(type) {
	case nil:
		return nil, nil
	case float64:
		return climate.Float(n), nil
	case float32:
		return climate.Float(float64(n)), nil
	case int:
		return climate.Float(float64(n)), nil
	case int64:
		return climate.Float(float64(n)), nil
	case uint64:
		return climate.Float(float64(n)), nil
	case string:
		if n == "" || n == "null" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", n)
		}
		return climate.Float(f), nil
	}
	return nil, fmt.Errorf("unsupported value %T", raw)
}
