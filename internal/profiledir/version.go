package profiledir

import (
	"os"
	"strconv"
	"strings"
)

// ReadDirVersion returns the integer stamp of a profile directory, or 0
// if the stamp file does not exist. The stamp belongs to the surrounding
// application, which uses it to detect directory format upgrades; the
// cache itself never interprets it.
func ReadDirVersion(baseDir, profileID string) (int, error) {
	data, err := os.ReadFile(VersionPath(baseDir, profileID))
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	version, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, err
	}
	return version, nil
}

// WriteDirVersion stamps a profile directory with the given version.
func WriteDirVersion(baseDir, profileID string, version int) error {
	return os.WriteFile(VersionPath(baseDir, profileID),
		[]byte(strconv.Itoa(version)+"\n"), 0600)
}
