package util

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
)

// ReadIntFromFile reads a single integer value from a sysfs-style file,
// trimming surrounding whitespace.
func ReadIntFromFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return -1, err
	}
	text := strings.TrimSpace(string(data))
	if len(text) == 0 {
		return -1, fmt.Errorf("file is empty: %s", path)
	}
	return strconv.Atoi(text)
}

// WriteBytesAtomic atomically replaces the contents of path, avoiding a
// torn file if the process is interrupted mid-write.
func WriteBytesAtomic(path string, data []byte) error {
	return atomic.WriteFile(path, strings.NewReader(string(data)))
}
