// Package fan implements the per-fan state machine: speed encoding,
// threshold/critical arbitration, and buffered register writes.
package fan

import (
	"fmt"
	"math"

	"github.com/Boom-Hacker/nbfc-linux/internal/configuration"
	"github.com/Boom-Hacker/nbfc-linux/internal/ec"
	"github.com/Boom-Hacker/nbfc-linux/internal/threshold"
)

// Mode is the fan's current control mode.
type Mode int

const (
	ModeAuto Mode = iota
	ModeFixed
	ModeCritical
)

// Fan is the runtime state of one physical fan, tied to its
// configuration.FanConfiguration by index alignment with ModelConfig.FanConfigurations.
type Fan struct {
	config *configuration.FanConfiguration

	criticalTemperature int
	readWriteWords      bool

	mode           Mode
	preCriticalMode Mode
	requestedSpeed float64
	targetSpeed    float64
	currentSpeed   float64
	isCritical     bool
	lastTemperature float64

	pendingWrite    uint16
	hasPendingWrite bool

	thresholds *threshold.Manager
}

// Init creates a Fan bound to config, starting in Auto mode at 0% with no
// pending write.
func Init(config *configuration.FanConfiguration, criticalTemperature int, readWriteWords bool) (*Fan, error) {
	if config.MinSpeedValue == config.MaxSpeedValue {
		return nil, fmt.Errorf("fan %q: MinSpeedValue and MaxSpeedValue cannot be the same", config.FanDisplayName)
	}
	if config.IndependentReadMinMaxValues && config.MinSpeedValueRead == config.MaxSpeedValueRead {
		return nil, fmt.Errorf("fan %q: MinSpeedValueRead and MaxSpeedValueRead cannot be the same", config.FanDisplayName)
	}

	f := &Fan{
		config:              config,
		criticalTemperature: criticalTemperature,
		readWriteWords:      readWriteWords,
		mode:                ModeAuto,
		requestedSpeed:       0,
		thresholds:           threshold.NewManager(config.TemperatureThresholds),
	}
	return f, nil
}

// DisplayName returns the fan's configured display name.
func (f *Fan) DisplayName() string { return f.config.FanDisplayName }

// EffectiveMode returns the fan's current high-level mode, excluding the transient
// Critical override (use IsCritical for that).
func (f *Fan) EffectiveMode() Mode {
	if f.mode == ModeCritical {
		return f.preCriticalMode
	}
	return f.mode
}

// IsAutoMode reports whether the fan is (or was, before a critical
// override) in Auto mode.
func (f *Fan) IsAutoMode() bool { return f.EffectiveMode() == ModeAuto }

// IsCritical reports whether the fan is currently forced to 100% due to
// CriticalTemperature being exceeded.
func (f *Fan) IsCritical() bool { return f.isCritical }

func (f *Fan) CurrentSpeed() float64   { return f.currentSpeed }
func (f *Fan) TargetSpeed() float64    { return f.targetSpeed }
func (f *Fan) RequestedSpeed() float64 { return f.requestedSpeed }
func (f *Fan) SpeedSteps() int         { return len(f.config.TemperatureThresholds) }
func (f *Fan) Temperature() float64    { return f.lastTemperature }

// SetAutoSpeed switches the fan to Auto mode; its target speed is
// recomputed on the next SetTemperature call.
func (f *Fan) SetAutoSpeed() {
	f.mode = ModeAuto
}

// SetFixedSpeed switches the fan to Fixed mode at the given percentage,
// clamped to [0, 100].
func (f *Fan) SetFixedSpeed(percent float64) {
	f.mode = ModeFixed
	f.requestedSpeed = clamp(percent, 0, 100)
}

// SetTemperature records the latest aggregated temperature, arbitrates
// Auto/Fixed/Critical, and buffers the resulting raw register write.
func (f *Fan) SetTemperature(t float64) {
	f.lastTemperature = t

	wasCritical := f.isCritical
	f.isCritical = t >= float64(f.criticalTemperature)

	if f.isCritical {
		if !wasCritical {
			f.preCriticalMode = f.mode
			f.mode = ModeCritical
		}
		f.targetSpeed = 100
	} else {
		if wasCritical {
			f.mode = f.preCriticalMode
		}
		switch f.mode {
		case ModeAuto:
			f.targetSpeed = f.thresholds.Next(t)
		default:
			f.targetSpeed = f.requestedSpeed
		}
	}

	raw := f.encode(f.targetSpeed)
	f.pendingWrite = raw
	f.hasPendingWrite = true
}

// ECFlush writes the pending raw register value (if any) to the EC
// backend, as a 16-bit word at WriteRegister/WriteRegister+1 when
// ReadWriteWords is set, otherwise as a single byte.
func (f *Fan) ECFlush(backend ec.Backend) error {
	if !f.hasPendingWrite {
		return nil
	}
	if f.readWriteWords {
		if err := backend.WriteWord(f.config.WriteRegister, f.pendingWrite); err != nil {
			return fmt.Errorf("ECFlush fan %q: %w", f.config.FanDisplayName, err)
		}
	} else {
		if err := backend.WriteByte(f.config.WriteRegister, byte(f.pendingWrite)); err != nil {
			return fmt.Errorf("ECFlush fan %q: %w", f.config.FanDisplayName, err)
		}
	}
	f.hasPendingWrite = false
	return nil
}

// UpdateCurrentSpeed reads the fan's current raw register value and
// decodes it into a percentage using the read-side min/max.
func (f *Fan) UpdateCurrentSpeed(backend ec.Backend) error {
	var raw uint16
	var err error
	if f.readWriteWords {
		raw, err = backend.ReadWord(f.config.ReadRegister)
	} else {
		var b byte
		b, err = backend.ReadByte(f.config.ReadRegister)
		raw = uint16(b)
	}
	if err != nil {
		return fmt.Errorf("UpdateCurrentSpeed fan %q: %w", f.config.FanDisplayName, err)
	}
	f.currentSpeed = f.decode(raw)
	return nil
}

// ECReset writes FanSpeedResetValue if ResetRequired.
func (f *Fan) ECReset(backend ec.Backend) error {
	if !f.config.ResetRequired {
		return nil
	}
	raw := uint16(f.config.FanSpeedResetValue)
	if f.readWriteWords {
		return backend.WriteWord(f.config.WriteRegister, raw)
	}
	return backend.WriteByte(f.config.WriteRegister, byte(raw))
}

// encode converts a target percentage into a raw register value, honoring
// FanSpeedPercentageOverrides before falling back to linear interpolation
// over the write-side min/max.
func (f *Fan) encode(percent float64) uint16 {
	rounded := int(math.Round(percent))
	for _, o := range f.config.FanSpeedPercentageOverrides {
		if o.FanSpeedPercentage == rounded &&
			(o.TargetOperation == configuration.OverrideTargetOperationWrite || o.TargetOperation == configuration.OverrideTargetOperationReadWrite) {
			return uint16(o.FanSpeedValue)
		}
	}

	min, max := f.config.WriteMinMax()
	raw := float64(min) + math.Round((percent/100.0)*float64(max-min))
	lo, hi := minMax(min, max)
	return uint16(clampInt(int(raw), lo, hi))
}

// decode converts a raw register value into a percentage, honoring
// FanSpeedPercentageOverrides before falling back to the linear inverse
// over the read-side min/max.
func (f *Fan) decode(raw uint16) float64 {
	for _, o := range f.config.FanSpeedPercentageOverrides {
		if o.FanSpeedValue == int(raw) &&
			(o.TargetOperation == configuration.OverrideTargetOperationRead || o.TargetOperation == configuration.OverrideTargetOperationReadWrite) {
			return float64(o.FanSpeedPercentage)
		}
	}

	min, max := f.config.ReadMinMax()
	if max == min {
		return 0
	}
	percent := (float64(int(raw)-min) / float64(max-min)) * 100.0
	return clamp(percent, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minMax(a, b int) (int, int) {
	if a < b {
		return a, b
	}
	return b, a
}
