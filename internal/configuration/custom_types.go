package configuration

import (
	"fmt"
	"reflect"

	"github.com/Boom-Hacker/nbfc-linux/internal/ec"
	"github.com/go-viper/mapstructure/v2"
)

// fanTargetHookFunc decodes a persisted TargetFanSpeeds element (a bare
// float, -1 meaning Auto) into a FanTarget.
func fanTargetHookFunc() mapstructure.DecodeHookFuncType {
	fanTargetType := reflect.TypeOf(FanTarget{})

	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if t != fanTargetType {
			return data, nil
		}

		v, err := toFloat64(data)
		if err != nil {
			return nil, fmt.Errorf("TargetFanSpeeds entry: %w", err)
		}
		if v < 0 {
			return FanTarget{Auto: true}, nil
		}
		return FanTarget{Percent: v}, nil
	}
}

// embeddedControllerTypeHookFunc decodes a persisted EmbeddedControllerType
// string, accepting the legacy aliases alongside the canonical spellings.
func embeddedControllerTypeHookFunc() mapstructure.DecodeHookFuncType {
	ecType := reflect.TypeOf(ec.EmbeddedControllerType(""))

	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if t != ecType {
			return data, nil
		}
		s, ok := data.(string)
		if !ok {
			return data, nil
		}
		return ec.ParseEmbeddedControllerType(s)
	}
}

func toFloat64(data interface{}) (float64, error) {
	switch v := data.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", data)
	}
}

// decodeHooks is the composed set of hooks applied when the service
// config's EmbeddedControllerType and TargetFanSpeeds are decoded via
// mapstructure.
func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		fanTargetHookFunc(),
		embeddedControllerTypeHookFunc(),
	)
}
