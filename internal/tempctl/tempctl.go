// Package tempctl binds a fan to the set of hwmon sensors that feed it,
// aggregating, filtering, and forwarding the result to its state machine on
// every tick.
package tempctl

import (
	"fmt"
	"time"

	"github.com/Boom-Hacker/nbfc-linux/internal/configuration"
	"github.com/Boom-Hacker/nbfc-linux/internal/fan"
	"github.com/Boom-Hacker/nbfc-linux/internal/filter"
	"github.com/Boom-Hacker/nbfc-linux/internal/sensor"
	"github.com/Boom-Hacker/nbfc-linux/internal/ui"
	"github.com/Boom-Hacker/nbfc-linux/internal/util"
	"github.com/asecurityteam/rolling"
)

// rawWindowSize is how many raw aggregated readings the rolling window
// keeps before reducing to an average, denoising individual sensor spikes
// before they ever reach the EMA filter.
const rawWindowSize = 5

// FanTempCtl aggregates one fan's configured sensors, smooths the result,
// and drives the fan's state machine from it.
type FanTempCtl struct {
	Fan         *fan.Fan
	Algorithm   configuration.TemperatureAlgorithmType
	Sensors     []sensor.Sensor
	Temperature float64

	window *rolling.PointPolicy
	filled int
	filter *filter.EMA
}

// New creates a FanTempCtl over sensors, aggregated with algorithm and
// smoothed with time constant tau.
func New(f *fan.Fan, algorithm configuration.TemperatureAlgorithmType, sensors []sensor.Sensor, tau time.Duration) *FanTempCtl {
	return &FanTempCtl{
		Fan:       f,
		Algorithm: algorithm,
		Sensors:   sensors,
		window:    util.CreateRollingWindow(rawWindowSize),
		filter:    filter.New(tau),
	}
}

// Seed warm-starts the temperature filter from a previously persisted
// value, avoiding a cold snap-to-first-reading after a restart.
func (c *FanTempCtl) Seed(value float64, at time.Time) {
	c.filter.Seed(value, at)
	c.Temperature = value
}

// Tick reads every configured sensor, aggregates and filters the result,
// and calls Fan.SetTemperature. A sensor read failure is a warning unless
// every sensor for this fan fails, in which case Tick returns an error.
func (c *FanTempCtl) Tick(now time.Time) error {
	var readings []float64
	for _, s := range c.Sensors {
		v, err := sensor.ReadCelsius(s)
		if err != nil {
			ui.Warning("sensor %q: %s", s.Label, err)
			continue
		}
		readings = append(readings, v)
	}
	if len(readings) == 0 {
		return fmt.Errorf("fan %q: all configured sensors failed to read", c.Fan.DisplayName())
	}

	aggregated := aggregate(c.Algorithm, readings)
	c.window.Append(aggregated)
	if c.filled < rawWindowSize {
		c.filled++
	}
	// Slots not yet written hold zero, so rescale the window mean to the
	// slots that actually hold readings.
	smoothed := util.GetWindowAvg(c.window) * rawWindowSize / float64(c.filled)
	c.Temperature = c.filter.Sample(now, smoothed)
	c.Fan.SetTemperature(c.Temperature)
	return nil
}

func aggregate(algo configuration.TemperatureAlgorithmType, values []float64) float64 {
	switch algo {
	case configuration.TemperatureAlgorithmMin:
		return util.Min(values)
	case configuration.TemperatureAlgorithmMax:
		return util.Max(values)
	default:
		return util.Avg(values)
	}
}

// SetByConfig binds one FanTempCtl per fan: fans named by a
// FanTemperatureSourceConfig use its algorithm and sensor set, unbound fans
// default to averaging every known hwmon sensor.
func SetByConfig(fans []*fan.Fan, sources []configuration.FanTemperatureSourceConfig, allSensors []sensor.Sensor, tau time.Duration) ([]*FanTempCtl, error) {
	bound := make(map[int]configuration.FanTemperatureSourceConfig, len(sources))
	for _, s := range sources {
		bound[s.FanIndex] = s
	}

	ctls := make([]*FanTempCtl, len(fans))
	for i, f := range fans {
		if src, ok := bound[i]; ok {
			sensors, err := resolveSensors(src.Sensors, allSensors)
			if err != nil {
				return nil, fmt.Errorf("fan %d temperature source: %w", i, err)
			}
			ctls[i] = New(f, src.TemperatureAlgorithmType, sensors, tau)
			continue
		}
		ctls[i] = New(f, configuration.TemperatureAlgorithmAverage, allSensors, tau)
	}
	return ctls, nil
}

func resolveSensors(labels []string, all []sensor.Sensor) ([]sensor.Sensor, error) {
	byLabel := make(map[string]sensor.Sensor, len(all))
	for _, s := range all {
		byLabel[s.Label] = s
	}
	result := make([]sensor.Sensor, 0, len(labels))
	for _, label := range labels {
		s, ok := byLabel[label]
		if !ok {
			return nil, fmt.Errorf("no sensor labeled %q", label)
		}
		result = append(result, s)
	}
	return result, nil
}
