package fan

import (
	"testing"

	"github.com/Boom-Hacker/nbfc-linux/internal/configuration"
	"github.com/Boom-Hacker/nbfc-linux/internal/ec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plainConfig() *configuration.FanConfiguration {
	return &configuration.FanConfiguration{
		FanDisplayName: "Fan 0",
		ReadRegister:   0x10,
		WriteRegister:  0x11,
		MinSpeedValue:  0,
		MaxSpeedValue:  255,
		TemperatureThresholds: []configuration.TemperatureThreshold{
			{UpThreshold: 0, DownThreshold: 0, FanSpeed: 0},
			{UpThreshold: 60, DownThreshold: 50, FanSpeed: 100},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	f, err := Init(plainConfig(), 90, false)
	require.NoError(t, err)

	for _, percent := range []float64{0, 25, 50, 75, 100} {
		raw := f.encode(percent)
		got := f.decode(raw)
		assert.InDelta(t, percent, got, 1.0, "percent=%v raw=%v", percent, raw)
	}
}

func TestFixedModeOverridesAutoTarget(t *testing.T) {
	f, err := Init(plainConfig(), 90, false)
	require.NoError(t, err)

	f.SetFixedSpeed(77)
	f.SetTemperature(65) // would be 100% in Auto mode

	assert.Equal(t, 77.0, f.TargetSpeed())
	assert.False(t, f.IsAutoMode())
}

func TestCriticalTemperatureForcesFullSpeedAndRestoresMode(t *testing.T) {
	f, err := Init(plainConfig(), 90, false)
	require.NoError(t, err)
	f.SetFixedSpeed(20)

	f.SetTemperature(95)
	assert.True(t, f.IsCritical())
	assert.Equal(t, 100.0, f.TargetSpeed())

	f.SetTemperature(70)
	assert.False(t, f.IsCritical())
	assert.False(t, f.IsAutoMode())
	assert.Equal(t, 20.0, f.TargetSpeed())
}

func TestPercentageOverrideBypassesInterpolation(t *testing.T) {
	cfg := plainConfig()
	cfg.FanSpeedPercentageOverrides = []configuration.FanSpeedPercentageOverride{
		{FanSpeedPercentage: 50, FanSpeedValue: 200, TargetOperation: configuration.OverrideTargetOperationReadWrite},
	}
	f, err := Init(cfg, 90, false)
	require.NoError(t, err)

	assert.Equal(t, uint16(200), f.encode(50))
	assert.Equal(t, 50.0, f.decode(200))
}

func TestECFlushWritesPendingValueThenClearsIt(t *testing.T) {
	f, err := Init(plainConfig(), 90, false)
	require.NoError(t, err)
	backend := ec.NewDummy()
	require.NoError(t, backend.Open())

	f.SetFixedSpeed(100)
	f.SetTemperature(30)
	require.NoError(t, f.ECFlush(backend))

	v, err := backend.ReadByte(0x11)
	require.NoError(t, err)
	assert.Equal(t, byte(255), v)

	require.NoError(t, f.ECFlush(backend))
}

func TestInitRejectsEqualMinMaxSpeedValue(t *testing.T) {
	cfg := plainConfig()
	cfg.MaxSpeedValue = cfg.MinSpeedValue
	_, err := Init(cfg, 90, false)
	assert.Error(t, err)
}
