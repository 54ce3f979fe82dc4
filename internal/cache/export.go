package cache

import (
	"fmt"

	"chatvault/internal/export"
)

// Export writes the full cached history of every registered profile as
// per-(chat, year) text files under outDir. It runs directly against the
// profile stores, bypassing the request queue, but holds the storage lock
// so it never interleaves with executing requests.
func (c *Cache) Export(outDir string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, entry := range c.profiles {
		if err := export.WriteProfile(entry.store, id, outDir, c.logger); err != nil {
			return fmt.Errorf("export profile %q: %w", id, err)
		}
	}
	return nil
}
