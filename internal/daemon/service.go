// Package daemon ties together configuration, EC access, and the
// per-fan temperature controllers into the staged-init/poll-loop service
// core, mirroring the original service.c state machine.
package daemon

import (
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/Boom-Hacker/nbfc-linux/internal/configuration"
	"github.com/Boom-Hacker/nbfc-linux/internal/ec"
	"github.com/Boom-Hacker/nbfc-linux/internal/fan"
	"github.com/Boom-Hacker/nbfc-linux/internal/persistence"
	"github.com/Boom-Hacker/nbfc-linux/internal/sensor"
	"github.com/Boom-Hacker/nbfc-linux/internal/tempctl"
	"github.com/Boom-Hacker/nbfc-linux/internal/ui"
)

// stage numbers mirror the original source's Initialized_N enum.
const (
	stageNone = iota
	stageServiceConfig
	stageModelConfig
	stageFans
	stageEmbeddedController
	stageSensors
	stageTemperatureFilter
)

// maxConsecutiveFailures is the number of consecutive Tick failures the
// loop tolerates before the caller is expected to exit the process.
const maxConsecutiveFailures = 100

// reinitDriftPercent is how far a fan's current speed may diverge from its
// target before the next tick is treated as a re-init.
const reinitDriftPercent = 15.0

// Options configures service construction.
type Options struct {
	ServiceConfigPath string
	ModelConfigPath   string
	ReadOnly          bool
	Debug             bool
	// ForcedECType overrides auto-detection and the service config's
	// EmbeddedControllerType, if non-empty.
	ForcedECType ec.EmbeddedControllerType
	// SensorEnumerator overrides hwmon discovery; defaults to
	// sensor.Enumerate. Tests inject a fake sysfs tree here.
	SensorEnumerator func() ([]sensor.Sensor, error)
	// PersistencePath, if non-empty, warm-starts each fan's EMA filter from
	// its last recorded temperature and saves it back on Cleanup.
	PersistencePath string
	// OnTick, if set, is called with a status snapshot after every
	// successful Tick, still under the service lock. Used to feed metrics.
	OnTick func(Status)
	// OnRegisterWriteError, if set, is called for every failed
	// register write encountered during Tick. Used to feed metrics.
	OnRegisterWriteError func(error)
}

// Service is the running daemon: the selected configuration, the open EC
// backend, and the per-fan controllers, guarded by a single mutex so a
// poll tick and a control-server command never interleave.
type Service struct {
	opts Options

	mu sync.Mutex

	serviceConfig *configuration.ServiceConfig
	modelConfig   *configuration.ModelConfig
	fans          []*fan.Fan
	controllers   []*tempctl.FanTempCtl
	backend       ec.Backend
	store         *persistence.Store

	stage    int
	failures int
}

// New creates an unstarted Service; call Init to run it through its stages.
func New(opts Options) *Service {
	if opts.SensorEnumerator == nil {
		opts.SensorEnumerator = sensor.Enumerate
	}
	return &Service{opts: opts}
}

// ReadOnly reports whether the service was started in read-only mode.
func (s *Service) ReadOnly() bool { return s.opts.ReadOnly }

// FanCount returns the number of configured fans.
func (s *Service) FanCount() int { return len(s.fans) }

// Fan returns the i'th fan, or nil if out of range.
func (s *Service) Fan(i int) *fan.Fan {
	if i < 0 || i >= len(s.fans) {
		return nil
	}
	return s.fans[i]
}

// ModelConfig returns the loaded model configuration.
func (s *Service) ModelConfig() *configuration.ModelConfig { return s.modelConfig }

// Lock/Unlock expose the service mutex to the control server so a command
// handler can run under the same single-tick atomicity contract as Tick.
func (s *Service) Lock()   { s.mu.Lock() }
func (s *Service) Unlock() { s.mu.Unlock() }

// FanStatus is one fan's snapshot as reported by the status command.
type FanStatus struct {
	Name           string
	Temperature    float64
	AutoMode       bool
	Critical       bool
	CurrentSpeed   float64
	TargetSpeed    float64
	RequestedSpeed float64
	SpeedSteps     int
}

// Status is the full status-command snapshot.
type Status struct {
	PID              int
	SelectedConfigId string
	ReadOnly         bool
	Fans             []FanStatus
}

// Status builds a point-in-time snapshot. Callers hold Lock/Unlock around
// this so it never observes a Tick or SetFanSpeed call half-applied.
func (s *Service) Status() Status {
	fans := make([]FanStatus, len(s.fans))
	for i, f := range s.fans {
		temp := 0.0
		if i < len(s.controllers) && s.controllers[i] != nil {
			temp = s.controllers[i].Temperature
		}
		fans[i] = FanStatus{
			Name:           f.DisplayName(),
			Temperature:    temp,
			AutoMode:       f.IsAutoMode(),
			Critical:       f.IsCritical(),
			CurrentSpeed:   f.CurrentSpeed(),
			TargetSpeed:    f.TargetSpeed(),
			RequestedSpeed: f.RequestedSpeed(),
			SpeedSteps:     f.SpeedSteps(),
		}
	}
	return Status{
		PID:              os.Getpid(),
		SelectedConfigId: s.serviceConfig.SelectedConfigId,
		ReadOnly:         s.opts.ReadOnly,
		Fans:             fans,
	}
}

// SetFanSpeed applies a speed (or Auto, when auto is true) to fanIndex, or
// to every fan when fanIndex is -1. It flushes the change to the EC unless
// the service is read-only, persists the new targets, and assumes the
// caller already holds Lock.
func (s *Service) SetFanSpeed(fanIndex int, auto bool, percent float64) error {
	if fanIndex < -1 || fanIndex >= len(s.fans) {
		return fmt.Errorf("fan index %d out of range", fanIndex)
	}

	apply := func(f *fan.Fan) error {
		if auto {
			f.SetAutoSpeed()
		} else {
			f.SetFixedSpeed(percent)
		}
		if !s.opts.ReadOnly {
			return f.ECFlush(s.backend)
		}
		return nil
	}

	if fanIndex == -1 {
		for _, f := range s.fans {
			if err := apply(f); err != nil {
				return err
			}
		}
	} else if err := apply(s.fans[fanIndex]); err != nil {
		return err
	}

	return s.WriteTargetFanSpeedsToConfig()
}

// Init runs the staged bring-up: load configs, allocate fans, open the EC
// backend, apply init register writes, enumerate sensors, and bind
// temperature controllers. On any failure it rolls back everything already
// brought up and returns the error.
func (s *Service) Init() error {
	if err := s.initServiceConfig(); err != nil {
		s.Cleanup()
		return err
	}
	if err := s.initModelConfig(); err != nil {
		s.Cleanup()
		return err
	}
	if err := s.initFans(); err != nil {
		s.Cleanup()
		return err
	}
	if err := s.initEmbeddedController(); err != nil {
		s.Cleanup()
		return err
	}
	if err := s.initSensors(); err != nil {
		s.Cleanup()
		return err
	}
	if err := s.initTemperatureControllers(); err != nil {
		s.Cleanup()
		return err
	}
	return nil
}

func (s *Service) initServiceConfig() error {
	cfg, err := configuration.LoadServiceConfig(s.opts.ServiceConfigPath)
	if err != nil {
		return fmt.Errorf("init stage ServiceConfig: %w", err)
	}
	s.serviceConfig = cfg
	s.stage = stageServiceConfig
	return nil
}

func (s *Service) initModelConfig() error {
	cfg, err := configuration.LoadModelConfig(s.opts.ModelConfigPath)
	if err != nil {
		return fmt.Errorf("init stage ModelConfig: %w", err)
	}
	s.modelConfig = cfg
	s.stage = stageModelConfig
	return nil
}

func (s *Service) initFans() error {
	targets := s.serviceConfig.TargetFanSpeeds.Get(nil)
	fans := make([]*fan.Fan, len(s.modelConfig.FanConfigurations))
	for i := range s.modelConfig.FanConfigurations {
		f, err := fan.Init(&s.modelConfig.FanConfigurations[i], s.modelConfig.CriticalTemperature, s.modelConfig.ReadWriteWords)
		if err != nil {
			return fmt.Errorf("init stage Fans: %w", err)
		}
		if i < len(targets) {
			if targets[i].Auto {
				f.SetAutoSpeed()
			} else {
				f.SetFixedSpeed(targets[i].Percent)
			}
		}
		fans[i] = f
	}
	s.fans = fans
	s.stage = stageFans
	return nil
}

func (s *Service) initEmbeddedController() error {
	backend, err := s.selectBackend()
	if err != nil {
		return fmt.Errorf("init stage EmbeddedController: %w", err)
	}
	if err := backend.Open(); err != nil {
		return fmt.Errorf("init stage EmbeddedController: open: %w", err)
	}
	if s.opts.Debug {
		backend = ec.NewDebug(backend)
	}
	s.backend = backend

	if !s.opts.ReadOnly {
		if err := ApplyAll(s.backend, s.modelConfig.RegisterWriteConfigurations, true); err != nil {
			return fmt.Errorf("init stage EmbeddedController: initial register writes: %w", err)
		}
	}

	s.stage = stageEmbeddedController
	return nil
}

func (s *Service) selectBackend() (ec.Backend, error) {
	if s.opts.ForcedECType != "" {
		return ec.New(s.opts.ForcedECType)
	}
	if t := s.serviceConfig.EmbeddedControllerType.Get(ec.TypeUnset); t != ec.TypeUnset {
		return ec.New(t)
	}
	return ec.FindWorking()
}

func (s *Service) initSensors() error {
	if _, err := s.opts.SensorEnumerator(); err != nil {
		return fmt.Errorf("init stage Sensors: %w", err)
	}
	s.stage = stageSensors
	return nil
}

func (s *Service) initTemperatureControllers() error {
	allSensors, err := s.opts.SensorEnumerator()
	if err != nil {
		return fmt.Errorf("init stage TemperatureFilter: %w", err)
	}
	sources := s.serviceConfig.FanTemperatureSources.Get(nil)
	tau := time.Duration(s.modelConfig.EcPollInterval) * time.Millisecond

	controllers, err := tempctl.SetByConfig(s.fans, sources, allSensors, tau)
	if err != nil {
		return fmt.Errorf("init stage TemperatureFilter: %w", err)
	}
	s.controllers = controllers

	if s.opts.PersistencePath != "" {
		store, err := persistence.Open(s.opts.PersistencePath)
		if err != nil {
			return fmt.Errorf("init stage TemperatureFilter: %w", err)
		}
		s.store = store
		now := time.Now()
		for i, c := range s.controllers {
			if v, ok, err := store.LoadEMA(i); err == nil && ok {
				c.Seed(v, now)
			}
		}
	}

	s.stage = stageTemperatureFilter
	return nil
}

// Tick runs one iteration of the poll loop: refresh current speeds,
// detect drift, re-apply register writes if needed, recompute and flush
// target speeds. It holds the service lock for its whole body, so ticks
// never interleave with each other or with control-server commands.
func (s *Service) Tick(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reinitRequired := false
	for _, f := range s.fans {
		if err := f.UpdateCurrentSpeed(s.backend); err != nil {
			return err
		}
		if math.Abs(f.CurrentSpeed()-f.TargetSpeed()) > reinitDriftPercent {
			reinitRequired = true
			ui.Debug("re_init_required = true")
		}
	}

	if !s.opts.ReadOnly {
		if err := ApplyAll(s.backend, s.modelConfig.RegisterWriteConfigurations, reinitRequired); err != nil {
			if s.opts.OnRegisterWriteError != nil {
				s.opts.OnRegisterWriteError(err)
			}
			return err
		}
	}

	for _, c := range s.controllers {
		if err := c.Tick(now); err != nil {
			return err
		}
		if !s.opts.ReadOnly {
			if err := c.Fan.ECFlush(s.backend); err != nil {
				return err
			}
		}
	}

	if s.opts.OnTick != nil {
		s.opts.OnTick(s.Status())
	}

	return nil
}

// Run drives Tick on the model's poll interval until stop is closed,
// applying the 10ms-retry/100-failure exit policy described in the loop
// spec. It returns a non-nil error once failures reach the limit.
func (s *Service) Run(stop <-chan struct{}) error {
	interval := time.Duration(s.modelConfig.EcPollInterval) * time.Millisecond
	for {
		select {
		case <-stop:
			return nil
		default:
		}

		if err := s.Tick(time.Now()); err != nil {
			s.failures++
			ui.Error("loop tick failed (%d/%d): %s", s.failures, maxConsecutiveFailures, err)
			if s.failures >= maxConsecutiveFailures {
				return fmt.Errorf("exiting after %d consecutive loop failures: %w", s.failures, err)
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}
		s.failures = 0
		time.Sleep(interval)
	}
}

// WriteTargetFanSpeedsToConfig mirrors each fan's runtime mode into
// ServiceConfig.TargetFanSpeeds (-1 for Auto, its requested percentage for
// Fixed) and persists the file.
func (s *Service) WriteTargetFanSpeedsToConfig() error {
	targets := make([]configuration.FanTarget, len(s.fans))
	for i, f := range s.fans {
		if f.IsAutoMode() {
			targets[i] = configuration.FanTarget{Auto: true}
		} else {
			targets[i] = configuration.FanTarget{Percent: f.RequestedSpeed()}
		}
	}
	s.serviceConfig.TargetFanSpeeds = configuration.Optional[[]configuration.FanTarget]{Value: targets, Present: true}
	return configuration.WriteServiceConfig(s.opts.ServiceConfigPath, s.serviceConfig)
}

// Cleanup tears down whatever stages succeeded, in reverse order, and
// resets the stage counter to None.
func (s *Service) Cleanup() {
	switch {
	case s.stage >= stageTemperatureFilter:
		if s.store != nil {
			for i, c := range s.controllers {
				if err := s.store.SaveEMA(i, c.Temperature); err != nil {
					ui.Warning("persist EMA for fan %d: %s", i, err)
				}
			}
			_ = s.store.Close()
			s.store = nil
		}
		s.controllers = nil
		fallthrough
	case s.stage >= stageSensors:
		fallthrough
	case s.stage >= stageEmbeddedController:
		if s.backend != nil {
			if !s.opts.ReadOnly {
				s.resetEC()
			}
			_ = s.backend.Close()
			s.backend = nil
		}
		fallthrough
	case s.stage >= stageFans:
		s.fans = nil
		fallthrough
	case s.stage >= stageModelConfig:
		s.modelConfig = nil
		fallthrough
	case s.stage >= stageServiceConfig:
		s.serviceConfig = nil
	}
	s.stage = stageNone
}

// resetEC applies every reset-required register write and every fan's
// ECReset, retrying up to three times and keeping only the last error (the
// original source's ResetEC retry policy).
func (s *Service) resetEC() {
	var lastErr error
	for tries := 3; tries > 0; tries-- {
		if err := ResetAllRegisters(s.backend, s.modelConfig.RegisterWriteConfigurations); err != nil {
			lastErr = err
		}
		for _, f := range s.fans {
			if err := f.ECReset(s.backend); err != nil {
				lastErr = err
			}
		}
	}
	if lastErr != nil {
		ui.Warning("ResetEC: %s", lastErr)
	}
}
