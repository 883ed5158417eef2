// Package threshold implements the hysteretic threshold curve: given a
// temperature and the previously selected step, decide whether to advance,
// retreat, or hold.
package threshold

import "github.com/Boom-Hacker/nbfc-linux/internal/configuration"

// Manager walks a sorted-by-UpThreshold table with hysteresis.
type Manager struct {
	table []configuration.TemperatureThreshold
	prev  int

	// belowDownLast records whether the previous reading was already below
	// the current step's DownThreshold. Retreating requires two readings
	// in a row below that line, not just one, so a single noisy sample
	// dipping into the band can't drop the fan speed on its own.
	belowDownLast bool
}

// NewManager builds a Manager over table, which is assumed sorted ascending
// by UpThreshold (ModelConfig validation sorts it). The initial
// selected step is the lowest.
func NewManager(table []configuration.TemperatureThreshold) *Manager {
	return &Manager{table: table, prev: 0}
}

// Next returns the FanSpeed for temperature t, advancing, retreating, or
// holding the currently selected step according to the up/down thresholds.
func (m *Manager) Next(t float64) float64 {
	if len(m.table) == 0 {
		return 0
	}

	// Advance is immediate: a reading at or above the current step's own
	// UpThreshold jumps up, possibly several steps in one call.
	before := m.prev
	for m.prev+1 < len(m.table) && t >= m.advanceThreshold(m.prev) {
		m.prev++
	}

	// Retreat only fires once the reading has been below the current
	// step's DownThreshold on two consecutive calls.
	if m.prev == before && m.belowDownLast {
		m.prev = m.retreatTarget(t)
	}

	m.belowDownLast = t < float64(m.table[m.prev].DownThreshold)
	return float64(m.table[m.prev].FanSpeed)
}

// advanceThreshold is the temperature at which step i is left for the next
// one up. A synthetic floor step (UpThreshold 0, used by the legacy
// default curve) never triggers on its own reading; the real transition
// out of it is governed by the next step's UpThreshold instead.
func (m *Manager) advanceThreshold(i int) float64 {
	up := float64(m.table[i].UpThreshold)
	if up == 0 && i+1 < len(m.table) {
		return float64(m.table[i+1].UpThreshold)
	}
	return up
}

// retreatTarget is the highest step whose own UpThreshold still holds
// against t, or 0 if none does.
func (m *Manager) retreatTarget(t float64) int {
	for i := m.prev; i >= 0; i-- {
		if float64(m.table[i].UpThreshold) <= t {
			return i
		}
	}
	return 0
}

// Reset returns the manager to its initial (lowest) step.
func (m *Manager) Reset() {
	m.prev = 0
	m.belowDownLast = false
}
