package configuration

import (
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
)

// ResolveServiceConfigPath returns the path the daemon should load its
// service config from. An explicit flag value always wins; otherwise the
// current directory, the invoking user's home directory, and /etc/nbfc/ are
// searched in that order for name, falling back to the /etc/nbfc/ location
// if none of them has it (mirroring the teacher's InitConfig search order).
func ResolveServiceConfigPath(flagValue, name, etcDefault string) string {
	if flagValue != "" {
		return flagValue
	}

	candidates := []string{"."}
	if home, err := homedir.Dir(); err == nil {
		candidates = append(candidates, home)
	}
	candidates = append(candidates, filepath.Dir(etcDefault))

	for _, dir := range candidates {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return etcDefault
}
