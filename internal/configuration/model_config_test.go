package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeModelConfigFile(t *testing.T, dir, content string) string {
	path := filepath.Join(dir, "model.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidateDefaultsFanDisplayNameAndResetValues(t *testing.T) {
	// GIVEN
	cfg := &ModelConfig{
		CriticalTemperature: 100,
		FanConfigurations: []FanConfiguration{
			{MinSpeedValue: 0, MaxSpeedValue: 255, ResetRequired: false, FanSpeedResetValue: 77},
		},
	}

	// WHEN
	err := Validate(cfg)

	// THEN
	require.NoError(t, err)
	assert.Equal(t, "Fan #0", cfg.FanConfigurations[0].FanDisplayName)
	assert.Equal(t, 0, cfg.FanConfigurations[0].FanSpeedResetValue)
}

func TestValidateSubstitutesLegacyDefaultThresholds(t *testing.T) {
	// GIVEN: S5 - empty TemperatureThresholds + legacy behaviour
	cfg := &ModelConfig{
		CriticalTemperature:                  100,
		LegacyTemperatureThresholdsBehaviour: true,
		FanConfigurations: []FanConfiguration{
			{MinSpeedValue: 0, MaxSpeedValue: 255},
		},
	}

	// WHEN
	err := Validate(cfg)

	// THEN
	require.NoError(t, err)
	assert.Equal(t, DefaultLegacyTemperatureThresholds, cfg.FanConfigurations[0].TemperatureThresholds)
}

func TestValidateSubstitutesNormalDefaultThresholds(t *testing.T) {
	// GIVEN
	cfg := &ModelConfig{
		CriticalTemperature: 100,
		FanConfigurations: []FanConfiguration{
			{MinSpeedValue: 0, MaxSpeedValue: 255},
		},
	}

	// WHEN
	err := Validate(cfg)

	// THEN
	require.NoError(t, err)
	assert.Equal(t, DefaultTemperatureThresholds, cfg.FanConfigurations[0].TemperatureThresholds)
}

func TestValidateRejectsEqualMinMaxSpeedValue(t *testing.T) {
	// GIVEN
	cfg := &ModelConfig{
		CriticalTemperature: 100,
		FanConfigurations: []FanConfiguration{
			{MinSpeedValue: 10, MaxSpeedValue: 10},
		},
	}

	// WHEN
	err := Validate(cfg)

	// THEN
	assert.ErrorContains(t, err, "cannot be the same")
}

func TestValidateRejectsUpThresholdLessThanDownThreshold(t *testing.T) {
	// GIVEN
	cfg := &ModelConfig{
		CriticalTemperature: 100,
		FanConfigurations: []FanConfiguration{
			{
				MinSpeedValue: 0, MaxSpeedValue: 255,
				TemperatureThresholds: []TemperatureThreshold{
					{UpThreshold: 10, DownThreshold: 20, FanSpeed: 0},
				},
			},
		},
	}

	// WHEN
	err := Validate(cfg)

	// THEN
	assert.ErrorContains(t, err, "UpThreshold cannot be less than DownThreshold")
}

func TestValidateRejectsDuplicateUpThreshold(t *testing.T) {
	// GIVEN
	cfg := &ModelConfig{
		CriticalTemperature: 100,
		FanConfigurations: []FanConfiguration{
			{
				MinSpeedValue: 0, MaxSpeedValue: 255,
				TemperatureThresholds: []TemperatureThreshold{
					{UpThreshold: 50, DownThreshold: 0, FanSpeed: 0},
					{UpThreshold: 50, DownThreshold: 40, FanSpeed: 100},
				},
			},
		},
	}

	// WHEN
	err := Validate(cfg)

	// THEN
	assert.ErrorContains(t, err, "duplicate UpThreshold")
}

func TestValidateToleratesUpThresholdAboveCriticalAsWarningOnly(t *testing.T) {
	// GIVEN: UpThreshold (95) exceeds CriticalTemperature (90), which is a
	// warning in the original source, not a hard failure.
	cfg := &ModelConfig{
		CriticalTemperature: 90,
		FanConfigurations: []FanConfiguration{
			{
				MinSpeedValue: 0, MaxSpeedValue: 255,
				TemperatureThresholds: []TemperatureThreshold{
					{UpThreshold: 0, DownThreshold: 0, FanSpeed: 0},
					{UpThreshold: 95, DownThreshold: 80, FanSpeed: 100},
				},
			},
		},
	}

	// WHEN
	err := Validate(cfg)

	// THEN
	assert.NoError(t, err)
}

func TestLoadModelConfigParsesAndValidates(t *testing.T) {
	// GIVEN
	dir := t.TempDir()
	path := writeModelConfigFile(t, dir, `{
		"NotebookModel": "Test Laptop",
		"Author": "tester",
		"EcPollInterval": 3000,
		"CriticalTemperature": 90,
		"ReadWriteWords": false,
		"FanConfigurations": [
			{
				"FanDisplayName": "CPU Fan",
				"ReadRegister": 16,
				"WriteRegister": 17,
				"MinSpeedValue": 0,
				"MaxSpeedValue": 255,
				"TemperatureThresholds": [
					{"UpThreshold": 0, "DownThreshold": 0, "FanSpeed": 0},
					{"UpThreshold": 60, "DownThreshold": 50, "FanSpeed": 100}
				]
			}
		]
	}`)

	// WHEN
	cfg, err := LoadModelConfig(path)

	// THEN
	require.NoError(t, err)
	assert.Equal(t, "Test Laptop", cfg.NotebookModel)
	require.Len(t, cfg.FanConfigurations, 1)
	assert.Equal(t, "CPU Fan", cfg.FanConfigurations[0].FanDisplayName)
}
