package indexer

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// IndexVersion is the schema version of everything stored in the cache
// directory. Bump it on any incompatible change to a store.
const IndexVersion = 1

const versionFileName = "index_version"

// CheckAndMigrateCache empties cacheDir unless it was written by the current
// IndexVersion. It reports whether the cache was reset and must be rebuilt.
func CheckAndMigrateCache(cacheDir string) (bool, error) {
	versionFile := filepath.Join(cacheDir, versionFileName)

	data, err := os.ReadFile(versionFile)
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to read version file: %w", err)
	}

	if err == nil {
		stored, parseErr := strconv.Atoi(strings.TrimSpace(string(data)))
		if parseErr == nil && stored == IndexVersion {
			return false, nil
		}
	}

	if err := resetCacheDir(cacheDir); err != nil {
		return false, fmt.Errorf("failed to clear cache: %w", err)
	}
	if err := os.WriteFile(versionFile, []byte(strconv.Itoa(IndexVersion)), 0o644); err != nil {
		return false, fmt.Errorf("failed to write version: %w", err)
	}
	return true, nil
}

// resetCacheDir leaves cacheDir existing and empty
func resetCacheDir(cacheDir string) error {
	entries, err := os.ReadDir(cacheDir)
	if os.IsNotExist(err) {
		return os.MkdirAll(cacheDir, 0o755)
	}
	if err != nil {
		return err
	}

	for _, entry := range entries {
		path := filepath.Join(cacheDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}
	return nil
}
