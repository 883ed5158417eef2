package configuration

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Boom-Hacker/nbfc-linux/internal/ec"
	"github.com/Boom-Hacker/nbfc-linux/internal/util"
	"github.com/go-viper/mapstructure/v2"
)

// FanTarget is the decoded form of one TargetFanSpeeds entry: either Auto,
// or a Fixed percentage. The persisted sentinel (-1 for Auto) lives only at
// the JSON boundary.
type FanTarget struct {
	Auto    bool
	Percent float64
}

// ToSentinel encodes a FanTarget back into the persisted float (-1 for
// Auto).
func (t FanTarget) ToSentinel() float64 {
	if t.Auto {
		return -1
	}
	return t.Percent
}

// FanTemperatureSourceConfig binds one fan, by index, to a named
// aggregation algorithm over a set of hwmon sensor labels.
type FanTemperatureSourceConfig struct {
	FanIndex                 int                      `json:"FanIndex"`
	TemperatureAlgorithmType TemperatureAlgorithmType `json:"TemperatureAlgorithmType"`
	Sensors                  []string                 `json:"Sensors"`
}

// ServiceConfig is the mutable, host-specific runtime state: which model is
// selected, which EC backend to use, and the fans' last-known modes.
type ServiceConfig struct {
	SelectedConfigId       string
	EmbeddedControllerType Optional[ec.EmbeddedControllerType]
	TargetFanSpeeds        Optional[[]FanTarget]
	FanTemperatureSources  Optional[[]FanTemperatureSourceConfig]
}

// serviceConfigWire is the on-disk shape of ServiceConfig: sentinel values
// instead of Optional[T], and the canonical (never legacy) spelling of
// EmbeddedControllerType.
type serviceConfigWire struct {
	SelectedConfigId       string                       `json:"SelectedConfigId"`
	EmbeddedControllerType string                       `json:"EmbeddedControllerType,omitempty"`
	TargetFanSpeeds        []float64                    `json:"TargetFanSpeeds,omitempty"`
	FanTemperatureSources  []FanTemperatureSourceConfig `json:"FanTemperatureSources,omitempty"`
}

// LoadServiceConfig reads and decodes a service config file, accepting
// legacy EmbeddedControllerType aliases.
func LoadServiceConfig(path string) (*ServiceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service config %s: %w", path, err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse service config %s: %w", path, err)
	}

	cfg := &ServiceConfig{}

	if v, ok := raw["SelectedConfigId"]; ok {
		if s, ok := v.(string); ok {
			cfg.SelectedConfigId = s
		}
	}
	if v, ok := raw["EmbeddedControllerType"]; ok {
		decoded, err := decodeOptionalField[ec.EmbeddedControllerType](v)
		if err != nil {
			return nil, fmt.Errorf("service config %s: EmbeddedControllerType: %w", path, err)
		}
		cfg.EmbeddedControllerType = Optional[ec.EmbeddedControllerType]{Value: decoded, Present: true}
	}
	if v, ok := raw["TargetFanSpeeds"]; ok {
		decoded, err := decodeTargetFanSpeeds(v)
		if err != nil {
			return nil, fmt.Errorf("service config %s: TargetFanSpeeds: %w", path, err)
		}
		cfg.TargetFanSpeeds = Optional[[]FanTarget]{Value: decoded, Present: true}
	}
	if v, ok := raw["FanTemperatureSources"]; ok {
		var sources []FanTemperatureSourceConfig
		if err := mapstructure.Decode(v, &sources); err != nil {
			return nil, fmt.Errorf("service config %s: FanTemperatureSources: %w", path, err)
		}
		for i, s := range sources {
			if !util.ContainsString(validTemperatureAlgorithms, string(s.TemperatureAlgorithmType)) {
				return nil, fmt.Errorf("service config %s: FanTemperatureSources[%d]: unknown TemperatureAlgorithmType %q", path, i, s.TemperatureAlgorithmType)
			}
		}
		cfg.FanTemperatureSources = Optional[[]FanTemperatureSourceConfig]{Value: sources, Present: true}
	}

	return cfg, nil
}

var validTemperatureAlgorithms = []string{
	string(TemperatureAlgorithmAverage),
	string(TemperatureAlgorithmMin),
	string(TemperatureAlgorithmMax),
}

// decodeOptionalField decodes a single scalar value through a hook-equipped
// decoder by routing it through a one-field holder struct.
func decodeOptionalField[T any](raw interface{}) (T, error) {
	var holder struct{ V T }
	var zero T
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     &holder,
		DecodeHook: decodeHooks(),
	})
	if err != nil {
		return zero, fmt.Errorf("build decoder: %w", err)
	}
	if err := decoder.Decode(map[string]interface{}{"V": raw}); err != nil {
		return zero, err
	}
	return holder.V, nil
}

func decodeTargetFanSpeeds(raw interface{}) ([]FanTarget, error) {
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected an array")
	}
	targets := make([]FanTarget, len(items))
	for i, item := range items {
		decoded, err := decodeOptionalField[FanTarget](item)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		targets[i] = decoded
	}
	return targets, nil
}

// WriteServiceConfig atomically rewrites path with cfg's canonical JSON
// encoding: sentinel TargetFanSpeeds, canonical EmbeddedControllerType
// spelling, and omitted optional fields that were never set.
func WriteServiceConfig(path string, cfg *ServiceConfig) error {
	wire := serviceConfigWire{SelectedConfigId: cfg.SelectedConfigId}

	if cfg.EmbeddedControllerType.Present || cfg.EmbeddedControllerType.RuntimeOverride {
		wire.EmbeddedControllerType = string(cfg.EmbeddedControllerType.Get(ec.TypeUnset))
	}
	if cfg.TargetFanSpeeds.Present || cfg.TargetFanSpeeds.RuntimeOverride {
		targets := cfg.TargetFanSpeeds.Get(nil)
		sentinels := make([]float64, len(targets))
		for i, t := range targets {
			sentinels[i] = t.ToSentinel()
		}
		wire.TargetFanSpeeds = sentinels
	}
	if cfg.FanTemperatureSources.Present || cfg.FanTemperatureSources.RuntimeOverride {
		wire.FanTemperatureSources = cfg.FanTemperatureSources.Get(nil)
	}

	data, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return fmt.Errorf("encode service config: %w", err)
	}
	if err := util.WriteBytesAtomic(path, data); err != nil {
		return fmt.Errorf("write service config %s: %w", path, err)
	}
	return nil
}
