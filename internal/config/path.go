package config

import (
	"os"
	"path/filepath"
)

const appDirName = "zkhook"

// DefaultDataDir picks where the filter store lives when no data dir is
// configured. $XDG_DATA_HOME wins, then the first existing platform data
// root, then ~/.zkhook. Without a home directory it is ./data.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "./data"
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName)
	}
	roots := []struct{ probe, dir string }{
		{"/var/lib", "/var/lib"},
		{filepath.Join(home, "Library"), filepath.Join(home, "Library", "Application Support")},
		{filepath.Join(home, "AppData"), filepath.Join(home, "AppData", "Local")},
	}
	for _, r := range roots {
		if isDir(r.probe) {
			return filepath.Join(r.dir, appDirName)
		}
	}
	return filepath.Join(home, "."+appDirName)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
