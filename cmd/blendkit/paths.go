package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// resolveOutDir returns the output directory, creating it. An empty flag
// means ./out.
func resolveOutDir(flag string) (string, error) {
	dir := strings.TrimSpace(flag)
	if dir == "" {
		dir = filepath.Join(".", "out")
	}
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// inputName is the base name of a blend file path, used to name exports.
func inputName(path string) (string, error) {
	base := filepath.Base(filepath.Clean(path))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("invalid input path: %q", path)
	}
	return base, nil
}

func requireInput(args []string) (string, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "", fmt.Errorf("a .blend file argument is required")
	}
	return args[0], nil
}
