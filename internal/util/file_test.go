package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadIntFromFile(t *testing.T) {
	// GIVEN
	dir := t.TempDir()
	path := filepath.Join(dir, "temp1_input")
	assert.NoError(t, os.WriteFile(path, []byte("45000\n"), 0o644))

	// WHEN
	value, err := ReadIntFromFile(path)

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, 45000, value)
}

func TestReadIntFromFile_Empty(t *testing.T) {
	// GIVEN
	dir := t.TempDir()
	path := filepath.Join(dir, "empty")
	assert.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	// WHEN
	_, err := ReadIntFromFile(path)

	// THEN
	assert.Error(t, err)
}

func TestWriteBytesAtomic(t *testing.T) {
	// GIVEN
	dir := t.TempDir()
	path := filepath.Join(dir, "service.json")

	// WHEN
	err := WriteBytesAtomic(path, []byte(`{"a":1}`))

	// THEN
	assert.NoError(t, err)
	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))
}
