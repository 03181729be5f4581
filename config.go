package main

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

var slugReplacer = strings.NewReplacer("/", "_", "\\", "_", ":", "_")

// getProjectConfigFolder returns the cache folder of projectRoot below the
// user config dir, creating it when missing
func getProjectConfigFolder(projectRoot string) (string, error) {
	configDir, err := getUserConfigDir()
	if err != nil {
		return "", err
	}

	dir := filepath.Join(configDir, "noolang-lsp", slugReplacer.Replace(projectRoot))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	return dir, nil
}

func getUserConfigDir() (string, error) {
	if configDir, err := os.UserConfigDir(); err == nil {
		return configDir, nil
	}

	usr, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("failed to get current user: %w", err)
	}
	return filepath.Join(usr.HomeDir, ".config"), nil
}
