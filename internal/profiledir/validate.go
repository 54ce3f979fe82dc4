package profiledir

import (
	"fmt"
	"regexp"
	"strings"
)

var idRegexp = regexp.MustCompile(`^[A-Za-z0-9._@-]{1,128}$`)

// ValidateProfileID checks that id is safe to use as a directory name.
// Ids consisting only of dots are rejected: "." and ".." resolve to the
// profiles dir and its parent, escaping the profile's own directory.
func ValidateProfileID(id string) error {
	if !idRegexp.MatchString(id) {
		return fmt.Errorf("invalid profile id %q: must match ^[A-Za-z0-9._@-]{1,128}$", id)
	}
	if strings.Trim(id, ".") == "" {
		return fmt.Errorf("invalid profile id %q: must contain more than dots", id)
	}
	return nil
}
