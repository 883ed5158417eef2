package persistence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveThenLoadReturnsPersistedValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nbfc.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.SaveEMA(2, 47.5))

	v, ok, err := s.LoadEMA(2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 47.5, v)
}

func TestLoadUnknownFanReturnsNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nbfc.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, ok, err := s.LoadEMA(9)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValuesSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nbfc.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveEMA(0, 33.0))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	v, ok, err := s2.LoadEMA(0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 33.0, v)
}
