// Package sensor enumerates Linux hwmon temperature inputs and reads them
// in degrees Celsius.
package sensor

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Boom-Hacker/nbfc-linux/internal/util"
	cmap "github.com/orcaman/concurrent-map/v2"
)

// Sensor is one hwmon temperature input, identified by its device label
// (the label used in FanTemperatureSources.Sensors).
type Sensor struct {
	Label      string
	DevicePath string
	InputFile  string
}

var tempInputRegex = regexp.MustCompile(`^temp(\d+)_input$`)

const hwmonRoot = "/sys/class/hwmon"

// registry caches every sensor found by Enumerate, keyed by label, so
// Lookup and ReadByLabel can find a sensor without walking the directory
// again; it is safe for concurrent use.
var registry = cmap.New[Sensor]()

// Enumerate walks /sys/class/hwmon/hwmon*/ and returns every tempN_input
// file found, labeled by the owning chip's "name" plus the input's own
// "label" file (falling back to "tempN" when no label file exists).
func Enumerate() ([]Sensor, error) {
	return enumerateUnder(hwmonRoot)
}

func enumerateUnder(root string) ([]Sensor, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", root, err)
	}

	var sensors []Sensor
	for _, entry := range entries {
		devicePath := filepath.Join(root, entry.Name())
		chipName := readTrimmed(filepath.Join(devicePath, "name"))

		inputs, err := os.ReadDir(devicePath)
		if err != nil {
			continue
		}
		for _, input := range inputs {
			m := tempInputRegex.FindStringSubmatch(input.Name())
			if m == nil {
				continue
			}
			label := readTrimmed(filepath.Join(devicePath, "temp"+m[1]+"_label"))
			if label == "" {
				label = chipName + "/temp" + m[1]
			} else {
				label = chipName + "/" + label
			}
			s := Sensor{
				Label:      label,
				DevicePath: devicePath,
				InputFile:  filepath.Join(devicePath, input.Name()),
			}
			sensors = append(sensors, s)
			registry.Set(s.Label, s)
		}
	}
	return sensors, nil
}

func readTrimmed(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Lookup returns the cached Sensor for a given label, as populated by the
// last Enumerate call.
func Lookup(label string) (Sensor, bool) {
	return registry.Get(label)
}

// ReadCelsius reads one hwmon tempN_input file, which reports
// millidegrees Celsius, and returns the value divided by 1000, in degrees
// Celsius (fractions kept).
func ReadCelsius(s Sensor) (float64, error) {
	milli, err := util.ReadIntFromFile(s.InputFile)
	if err != nil {
		return 0, fmt.Errorf("read sensor %q: %w", s.Label, err)
	}
	return float64(milli) / 1000.0, nil
}

// ReadByLabel reads a sensor by label for callers that don't hold a Sensor
// handle: it looks the label up in the registry and runs Enumerate only
// when the label is not cached yet.
func ReadByLabel(label string) (float64, error) {
	s, ok := Lookup(label)
	if !ok {
		if _, err := Enumerate(); err != nil {
			return 0, err
		}
		s, ok = Lookup(label)
		if !ok {
			return 0, fmt.Errorf("no sensor labeled %q found", label)
		}
	}
	return ReadCelsius(s)
}
