package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Boom-Hacker/nbfc-linux/internal/ec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeServiceConfigFile(t *testing.T, dir string, content string) string {
	path := filepath.Join(dir, "nbfc_service.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadServiceConfigDecodesSentinelsAndAliases(t *testing.T) {
	// GIVEN
	dir := t.TempDir()
	path := writeServiceConfigFile(t, dir, `{
		"SelectedConfigId": "Model X",
		"EmbeddedControllerType": "ec_sys_linux",
		"TargetFanSpeeds": [50, -1],
		"FanTemperatureSources": [
			{"FanIndex": 0, "TemperatureAlgorithmType": "Average", "Sensors": ["coretemp/Package id 0"]}
		]
	}`)

	// WHEN
	cfg, err := LoadServiceConfig(path)

	// THEN
	require.NoError(t, err)
	assert.Equal(t, "Model X", cfg.SelectedConfigId)
	assert.True(t, cfg.EmbeddedControllerType.Present)
	assert.Equal(t, ec.TypeECSysLinux, cfg.EmbeddedControllerType.Get(ec.TypeUnset))
	require.True(t, cfg.TargetFanSpeeds.Present)
	require.Len(t, cfg.TargetFanSpeeds.Value, 2)
	assert.Equal(t, FanTarget{Percent: 50}, cfg.TargetFanSpeeds.Value[0])
	assert.Equal(t, FanTarget{Auto: true}, cfg.TargetFanSpeeds.Value[1])
	require.Len(t, cfg.FanTemperatureSources.Value, 1)
	assert.Equal(t, 0, cfg.FanTemperatureSources.Value[0].FanIndex)
}

func TestServiceConfigRoundTrip(t *testing.T) {
	// GIVEN
	dir := t.TempDir()
	path := writeServiceConfigFile(t, dir, `{
		"SelectedConfigId": "Model X",
		"EmbeddedControllerType": "acpi_ec",
		"TargetFanSpeeds": [30, -1, 100]
	}`)
	first, err := LoadServiceConfig(path)
	require.NoError(t, err)

	// WHEN
	require.NoError(t, WriteServiceConfig(path, first))
	second, err := LoadServiceConfig(path)
	require.NoError(t, err)

	// THEN: structurally identical after a round trip
	assert.Equal(t, first.SelectedConfigId, second.SelectedConfigId)
	assert.Equal(t, first.EmbeddedControllerType.Get(ec.TypeUnset), second.EmbeddedControllerType.Get(ec.TypeUnset))
	assert.Equal(t, first.TargetFanSpeeds.Value, second.TargetFanSpeeds.Value)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"acpi_ec"`)
	assert.NotContains(t, string(data), "ec_sys_linux")
}

func TestTargetFanSpeedsOmittedWhenAbsent(t *testing.T) {
	// GIVEN
	dir := t.TempDir()
	path := writeServiceConfigFile(t, dir, `{"SelectedConfigId": "Model X"}`)
	cfg, err := LoadServiceConfig(path)
	require.NoError(t, err)

	// WHEN
	require.NoError(t, WriteServiceConfig(path, cfg))

	// THEN
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "TargetFanSpeeds")
}
