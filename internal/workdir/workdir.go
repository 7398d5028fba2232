// Package workdir locates docucast's per-user directory, which holds saved
// episodes and the client log.
package workdir

import (
	"fmt"
	"os"
	"path/filepath"
)

// Root returns the base directory, expanded at runtime to:
//
//	$HOME/Documents/Docucast
func Root() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, "Documents", "Docucast"), nil
}

// FilePath returns the full path for a file in the base directory.
func FilePath(filename string) (string, error) {
	root, err := Root()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, filename), nil
}

// Prep ensures that the base directory exists and returns it.
func Prep() (string, error) {
	root, err := Root()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("failed to create working directory %s: %w", root, err)
	}

	return root, nil
}
