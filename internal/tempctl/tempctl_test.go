package tempctl

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/Boom-Hacker/nbfc-linux/internal/configuration"
	"github.com/Boom-Hacker/nbfc-linux/internal/fan"
	"github.com/Boom-Hacker/nbfc-linux/internal/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeInput(t *testing.T, dir, name string, milliCelsius int) sensor.Sensor {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strconv.Itoa(milliCelsius)), 0o644))
	return sensor.Sensor{Label: name, InputFile: path}
}

func newTestFan(t *testing.T) *fan.Fan {
	cfg := &configuration.FanConfiguration{
		FanDisplayName: "Fan #1",
		MinSpeedValue:  0,
		MaxSpeedValue:  255,
		TemperatureThresholds: []configuration.TemperatureThreshold{
			{UpThreshold: 0, DownThreshold: 0, FanSpeed: 0},
			{UpThreshold: 60, DownThreshold: 50, FanSpeed: 100},
		},
	}
	f, err := fan.Init(cfg, 90, false)
	require.NoError(t, err)
	return f
}

func TestTickAveragesAndFeedsTheFan(t *testing.T) {
	// GIVEN
	dir := t.TempDir()
	a := writeInput(t, dir, "temp1_input", 40000)
	b := writeInput(t, dir, "temp2_input", 60000)
	f := newTestFan(t)
	c := New(f, configuration.TemperatureAlgorithmAverage, []sensor.Sensor{a, b}, time.Second)

	// WHEN
	err := c.Tick(time.Unix(0, 0))

	// THEN
	require.NoError(t, err)
	assert.Equal(t, 50.0, c.Temperature)
	assert.Equal(t, 50.0, f.Temperature())
}

func TestTickIgnoresFailedSensorsUnlessAllFail(t *testing.T) {
	// GIVEN
	dir := t.TempDir()
	good := writeInput(t, dir, "temp1_input", 70000)
	missing := sensor.Sensor{Label: "missing", InputFile: filepath.Join(dir, "does_not_exist")}
	f := newTestFan(t)
	c := New(f, configuration.TemperatureAlgorithmMax, []sensor.Sensor{good, missing}, time.Second)

	// WHEN
	err := c.Tick(time.Unix(0, 0))

	// THEN
	require.NoError(t, err)
	assert.Equal(t, 70.0, c.Temperature)
}

func TestTickErrorsWhenEverySensorFails(t *testing.T) {
	// GIVEN
	missing := sensor.Sensor{Label: "missing", InputFile: "/nonexistent/path"}
	f := newTestFan(t)
	c := New(f, configuration.TemperatureAlgorithmAverage, []sensor.Sensor{missing}, time.Second)

	// WHEN
	err := c.Tick(time.Unix(0, 0))

	// THEN
	assert.Error(t, err)
}

func TestSetByConfigBindsByIndexAndDefaultsUnbound(t *testing.T) {
	// GIVEN
	dir := t.TempDir()
	s1 := writeInput(t, dir, "temp1_input", 50000)
	allSensors := []sensor.Sensor{s1}
	fans := []*fan.Fan{newTestFan(t), newTestFan(t)}
	sources := []configuration.FanTemperatureSourceConfig{
		{FanIndex: 0, TemperatureAlgorithmType: configuration.TemperatureAlgorithmMax, Sensors: []string{"temp1_input"}},
	}

	// WHEN
	ctls, err := SetByConfig(fans, sources, allSensors, time.Second)

	// THEN
	require.NoError(t, err)
	require.Len(t, ctls, 2)
	assert.Equal(t, configuration.TemperatureAlgorithmMax, ctls[0].Algorithm)
	assert.Equal(t, configuration.TemperatureAlgorithmAverage, ctls[1].Algorithm)
	assert.Equal(t, allSensors, ctls[1].Sensors)
}

func TestTickSmoothsOverRollingWindowBeforeFilter(t *testing.T) {
	// GIVEN a fan with a EMA time constant much shorter than the tick
	// interval, so the filter tracks its input almost exactly and what we're
	// observing is the rolling window's effect on that input.
	dir := t.TempDir()
	path := filepath.Join(dir, "temp1_input")
	require.NoError(t, os.WriteFile(path, []byte("40000"), 0o644))
	s := sensor.Sensor{Label: "temp1_input", InputFile: path}
	f := newTestFan(t)
	c := New(f, configuration.TemperatureAlgorithmAverage, []sensor.Sensor{s}, time.Millisecond)

	require.NoError(t, c.Tick(time.Unix(0, 0)))
	assert.Equal(t, 40.0, c.Temperature)

	// WHEN a single spike is read on the next tick
	require.NoError(t, os.WriteFile(path, []byte("80000"), 0o644))
	require.NoError(t, c.Tick(time.Unix(1, 0)))

	// THEN the value fed to the filter is the rolling window's average of
	// the two points (60), not the raw spike (80).
	assert.InDelta(t, 60.0, c.Temperature, 0.01)
}

func TestSetByConfigErrorsOnUnknownSensorLabel(t *testing.T) {
	// GIVEN
	fans := []*fan.Fan{newTestFan(t)}
	sources := []configuration.FanTemperatureSourceConfig{
		{FanIndex: 0, Sensors: []string{"nonexistent"}},
	}

	// WHEN
	_, err := SetByConfig(fans, sources, nil, time.Second)

	// THEN
	assert.Error(t, err)
}
