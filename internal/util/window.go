package util

import "github.com/asecurityteam/rolling"

// CreateRollingWindow creates a fixed-size rolling window of raw sample
// points, used to smooth noisy sensor reads before they reach the
// exponential moving-average filter.
func CreateRollingWindow(size int) *rolling.PointPolicy {
	return rolling.NewPointPolicy(rolling.NewWindow(size))
}

// GetWindowAvg reduces the window to the arithmetic mean of its points.
func GetWindowAvg(window *rolling.PointPolicy) float64 {
	return window.Reduce(rolling.Avg)
}

// GetWindowMax reduces the window to its largest point.
func GetWindowMax(window *rolling.PointPolicy) float64 {
	return window.Reduce(rolling.Max)
}

// GetWindowMin reduces the window to its smallest point.
func GetWindowMin(window *rolling.PointPolicy) float64 {
	return window.Reduce(rolling.Min)
}
