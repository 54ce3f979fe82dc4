package profiledir

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.chatvault.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".chatvault")
}

// ProfilesDir returns the directory holding all profile directories.
func ProfilesDir(baseDir string) string {
	return filepath.Join(baseDir, "profiles")
}

// Dir returns the directory of one profile.
func Dir(baseDir, profileID string) string {
	return filepath.Join(ProfilesDir(baseDir), profileID)
}

// StorePath returns the cache database path of one profile.
func StorePath(baseDir, profileID string) string {
	return filepath.Join(Dir(baseDir, profileID), "cache.db")
}

// VersionPath returns the directory-version stamp file of one profile.
func VersionPath(baseDir, profileID string) string {
	return filepath.Join(Dir(baseDir, profileID), "version")
}

// LogDir returns the log directory.
func LogDir(baseDir string) string {
	return filepath.Join(baseDir, "logs")
}

// LogPath returns the log file path.
func LogPath(baseDir string) string {
	return filepath.Join(LogDir(baseDir), "chatvault.log")
}

// ConfigPath returns the global config file path.
func ConfigPath(baseDir string) string {
	return filepath.Join(baseDir, "config.toml")
}

// EnsureDir creates the directory tree of one profile with proper
// permissions.
func EnsureDir(baseDir, profileID string) error {
	dirs := []string{
		Dir(baseDir, profileID),
		LogDir(baseDir),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}

// ListProfiles returns the ids of all profiles that have a directory
// under baseDir.
func ListProfiles(baseDir string) ([]string, error) {
	entries, err := os.ReadDir(ProfilesDir(baseDir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}
