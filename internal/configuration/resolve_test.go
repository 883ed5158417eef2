package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveServiceConfigPathPrefersExplicitFlag(t *testing.T) {
	got := ResolveServiceConfigPath("/some/explicit.json", "nbfc.json", "/etc/nbfc/nbfc.json")
	assert.Equal(t, "/some/explicit.json", got)
}

func TestResolveServiceConfigPathFindsFileInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nbfc.json"), []byte("{}"), 0o644))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(cwd) }()

	got := ResolveServiceConfigPath("", "nbfc.json", "/etc/nbfc/nbfc.json")
	assert.Equal(t, "nbfc.json", got)
}

func TestResolveServiceConfigPathFallsBackToEtcDefault(t *testing.T) {
	got := ResolveServiceConfigPath("", "does-not-exist-anywhere.json", "/etc/nbfc/does-not-exist-anywhere.json")
	assert.Equal(t, "/etc/nbfc/does-not-exist-anywhere.json", got)
}
