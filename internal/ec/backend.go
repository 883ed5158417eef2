// Package ec implements the Embedded Controller register I/O backends and
// the auto-detection routine that picks a working one.
package ec

import (
	"fmt"
	"strings"
	"time"

	"github.com/Boom-Hacker/nbfc-linux/internal/util"
	cmap "github.com/orcaman/concurrent-map/v2"
)

// EmbeddedControllerType identifies a concrete Backend implementation, as
// persisted in the service config and accepted as a CLI override.
type EmbeddedControllerType string

const (
	TypeECSysLinux     EmbeddedControllerType = "ec_sys"
	TypeECSysLinuxACPI EmbeddedControllerType = "acpi_ec"
	TypeECLinux        EmbeddedControllerType = "dev_port"
	TypeECDummy        EmbeddedControllerType = "dummy"
	TypeUnset          EmbeddedControllerType = ""
)

// legacyAliases maps older, pre-rename strings to their canonical
// EmbeddedControllerType, accepted on read but never written back.
var legacyAliases = map[string]EmbeddedControllerType{
	"ec_sys_linux": TypeECSysLinux,
	"ec_acpi":      TypeECSysLinuxACPI,
	"ec_linux":     TypeECLinux,
}

// ParseEmbeddedControllerType converts a config string to its canonical
// EmbeddedControllerType, accepting both the canonical and legacy spellings.
func ParseEmbeddedControllerType(s string) (EmbeddedControllerType, error) {
	switch EmbeddedControllerType(s) {
	case TypeECSysLinux, TypeECSysLinuxACPI, TypeECLinux, TypeECDummy:
		return EmbeddedControllerType(s), nil
	}
	if t, ok := legacyAliases[s]; ok {
		return t, nil
	}
	return TypeUnset, fmt.Errorf("invalid EmbeddedControllerType: %q", s)
}

// Backend is the capability set every Embedded Controller I/O implementation
// provides: open/close lifecycle plus byte/word register access.
type Backend interface {
	Type() EmbeddedControllerType
	Open() error
	Close() error
	ReadByte(register int) (byte, error)
	WriteByte(register int, value byte) error
	ReadWord(register int) (uint16, error)
	WriteWord(register int, value uint16) error
}

// readWordLE / writeWordLE implement the little-endian two-byte word
// fallback shared by backends without native word I/O.
func readWordLE(b Backend, register int) (uint16, error) {
	lo, err := b.ReadByte(register)
	if err != nil {
		return 0, err
	}
	hi, err := b.ReadByte(register + 1)
	if err != nil {
		return 0, err
	}
	return uint16(lo) | uint16(hi)<<8, nil
}

func writeWordLE(b Backend, register int, value uint16) error {
	if err := b.WriteByte(register, byte(value&0xFF)); err != nil {
		return err
	}
	return b.WriteByte(register+1, byte(value>>8))
}

// probeTimeout bounds how long EC_FindWorking waits for a backend's probe
// read before moving on to the next candidate.
const probeTimeout = 500 * time.Millisecond

// probeRegister is the EC register read by the probe, used only to verify
// a backend actually answers.
const probeRegister = 0x00

// ErrNoWorkingBackend is returned by FindWorking when no candidate backend
// could be opened and probed successfully.
type ErrNoWorkingBackend struct {
	Attempts map[EmbeddedControllerType]error
}

func (e *ErrNoWorkingBackend) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "no working EmbeddedControllerType found among %d candidates", len(e.Attempts))
	for _, t := range util.SortedKeys(e.Attempts) {
		fmt.Fprintf(&b, "; %s: %s", t, e.Attempts[t])
	}
	return b.String()
}

// candidateOrder is the fixed probing order used by FindWorking.
var candidateOrder = []EmbeddedControllerType{
	TypeECSysLinux,
	TypeECSysLinuxACPI,
	TypeECLinux,
}

// lastAttempts caches the outcome of the most recent FindWorking probe per
// candidate in a concurrency-safe map, so LastAttempts can be called
// without taking the daemon's service lock.
var lastAttempts = cmap.New[error]()

// LastAttempts returns the outcome (nil on success) of the most recent
// probe of each candidate EmbeddedControllerType, or an empty map if
// FindWorking has never run.
func LastAttempts() map[EmbeddedControllerType]error {
	result := make(map[EmbeddedControllerType]error, lastAttempts.Count())
	for t, err := range lastAttempts.Items() {
		result[EmbeddedControllerType(t)] = err
	}
	return result
}

// FindWorking tries backends in a fixed order and returns the first whose
// Open succeeds and whose probe read of probeRegister returns within
// probeTimeout. It never returns ECDummy; the dummy backend is only used
// when it is selected explicitly.
func FindWorking() (Backend, error) {
	attempts := map[EmbeddedControllerType]error{}
	for _, t := range candidateOrder {
		b, err := New(t)
		if err != nil {
			attempts[t] = err
			lastAttempts.Set(string(t), err)
			continue
		}
		if err := probe(b); err != nil {
			attempts[t] = err
			lastAttempts.Set(string(t), err)
			continue
		}
		lastAttempts.Set(string(t), nil)
		return b, nil
	}
	return nil, &ErrNoWorkingBackend{Attempts: attempts}
}

func probe(b Backend) error {
	if err := b.Open(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		_, err := b.ReadByte(probeRegister)
		done <- err
	}()
	select {
	case err := <-done:
		if err != nil {
			_ = b.Close()
			return err
		}
		return nil
	case <-time.After(probeTimeout):
		_ = b.Close()
		return fmt.Errorf("probe timed out after %s", probeTimeout)
	}
}

// New constructs the Backend for a given, already-resolved
// EmbeddedControllerType.
func New(t EmbeddedControllerType) (Backend, error) {
	switch t {
	case TypeECSysLinux:
		return NewSysLinux(), nil
	case TypeECSysLinuxACPI:
		return NewSysLinuxACPI(), nil
	case TypeECLinux:
		return NewLinux(), nil
	case TypeECDummy:
		return NewDummy(), nil
	default:
		return nil, fmt.Errorf("unknown EmbeddedControllerType: %q", t)
	}
}
