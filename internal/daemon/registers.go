package daemon

import (
	"fmt"

	"github.com/Boom-Hacker/nbfc-linux/internal/configuration"
	"github.com/Boom-Hacker/nbfc-linux/internal/ec"
)

// ApplyRegisterWriteConfig applies value to register through backend
// according to mode: Set writes it outright, And/Or first read the
// register's current contents and combine.
func ApplyRegisterWriteConfig(backend ec.Backend, register int, value byte, mode configuration.RegisterWriteMode) error {
	if mode != configuration.RegisterWriteModeSet {
		current, err := backend.ReadByte(register)
		if err != nil {
			return fmt.Errorf("read register %#x: %w", register, err)
		}
		switch mode {
		case configuration.RegisterWriteModeAnd:
			value &= current
		case configuration.RegisterWriteModeOr:
			value |= current
		}
	}
	if err := backend.WriteByte(register, value); err != nil {
		return fmt.Errorf("write register %#x: %w", register, err)
	}
	return nil
}

// ApplyAll applies every RegisterWriteConfig in configs that either always
// fires (initializing) or is scoped to OnWriteFanSpeed.
func ApplyAll(backend ec.Backend, configs []configuration.RegisterWriteConfig, initializing bool) error {
	for i, cfg := range configs {
		if initializing || cfg.WriteOccasion == configuration.RegisterWriteOccasionOnWriteFanSpeed {
			if err := ApplyRegisterWriteConfig(backend, cfg.Register, byte(cfg.Value), cfg.WriteMode); err != nil {
				return fmt.Errorf("RegisterWriteConfigurations[%d]: %w", i, err)
			}
		}
	}
	return nil
}

// ResetAllRegisters applies every RegisterWriteConfig with ResetRequired set,
// using its ResetValue/ResetWriteMode. Individual failures are warnings: the
// loop continues over every config and returns the last error seen, if any.
func ResetAllRegisters(backend ec.Backend, configs []configuration.RegisterWriteConfig) error {
	var last error
	for _, cfg := range configs {
		if !cfg.ResetRequired {
			continue
		}
		if err := ApplyRegisterWriteConfig(backend, cfg.Register, byte(cfg.ResetValue), cfg.ResetWriteMode); err != nil {
			last = err
		}
	}
	return last
}
