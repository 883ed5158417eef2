package configuration

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/Boom-Hacker/nbfc-linux/internal/ui"
	"golang.org/x/exp/slices"
)

var validWriteModes = []RegisterWriteMode{RegisterWriteModeSet, RegisterWriteModeAnd, RegisterWriteModeOr}

var validWriteOccasions = []RegisterWriteOccasion{RegisterWriteOccasionOnInitialization, RegisterWriteOccasionOnWriteFanSpeed}

// LoadModelConfig reads, decodes, and validates a model config file.
func LoadModelConfig(path string) (*ModelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model config %s: %w", path, err)
	}

	var cfg ModelConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse model config %s: %w", path, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate model config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate normalizes defaulted fields and checks a ModelConfig against the
// invariants the original source enforces. Warnings are logged, not
// returned; only hard violations produce an error.
func Validate(c *ModelConfig) error {
	for i := range c.RegisterWriteConfigurations {
		r := &c.RegisterWriteConfigurations[i]
		if !r.ResetRequired {
			r.ResetValue = 0
		}
		if !slices.Contains(validWriteModes, r.WriteMode) {
			return fmt.Errorf("RegisterWriteConfigurations[%d]: unknown WriteMode %q", i, r.WriteMode)
		}
		if r.ResetRequired && !slices.Contains(validWriteModes, r.ResetWriteMode) {
			return fmt.Errorf("RegisterWriteConfigurations[%d]: unknown ResetWriteMode %q", i, r.ResetWriteMode)
		}
		if !slices.Contains(validWriteOccasions, r.WriteOccasion) {
			return fmt.Errorf("RegisterWriteConfigurations[%d]: unknown WriteOccasion %q", i, r.WriteOccasion)
		}
	}

	for i := range c.FanConfigurations {
		f := &c.FanConfigurations[i]

		if f.FanDisplayName == "" {
			f.FanDisplayName = fmt.Sprintf("Fan #%d", i)
		}
		if !f.ResetRequired {
			f.FanSpeedResetValue = 0
		}

		if f.MinSpeedValue == f.MaxSpeedValue {
			return fmt.Errorf("FanConfigurations[%d]: MinSpeedValue and MaxSpeedValue cannot be the same", i)
		}
		if f.IndependentReadMinMaxValues && f.MinSpeedValueRead == f.MaxSpeedValueRead {
			return fmt.Errorf("FanConfigurations[%d]: MinSpeedValueRead and MaxSpeedValueRead cannot be the same", i)
		}

		if len(f.TemperatureThresholds) == 0 {
			f.TemperatureThresholds = defaultThresholdsFor(c.LegacyTemperatureThresholdsBehaviour)
		}
		sort.SliceStable(f.TemperatureThresholds, func(a, b int) bool {
			return f.TemperatureThresholds[a].UpThreshold < f.TemperatureThresholds[b].UpThreshold
		})

		hasZero, hasHundred := false, false
		seenUp := map[int]bool{}
		for j, th := range f.TemperatureThresholds {
			hasZero = hasZero || th.FanSpeed == 0
			hasHundred = hasHundred || th.FanSpeed == 100

			if th.UpThreshold < th.DownThreshold {
				return fmt.Errorf("FanConfigurations[%d].TemperatureThresholds[%d]: UpThreshold cannot be less than DownThreshold", i, j)
			}
			if th.UpThreshold > c.CriticalTemperature {
				ui.Warning("FanConfigurations[%d].TemperatureThresholds[%d]: UpThreshold cannot be greater than CriticalTemperature", i, j)
			}
			if seenUp[th.UpThreshold] {
				return fmt.Errorf("FanConfigurations[%d].TemperatureThresholds[%d]: duplicate UpThreshold", i, j)
			}
			seenUp[th.UpThreshold] = true
		}

		if !hasZero {
			ui.Warning("FanConfigurations[%d]: no threshold with FanSpeed == 0 found", i)
		}
		if !hasHundred {
			ui.Warning("FanConfigurations[%d]: no threshold with FanSpeed == 100 found", i)
		}
	}

	return nil
}
