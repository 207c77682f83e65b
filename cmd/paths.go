package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	consts "github.com/khanhnv2901/gh-recon/internal/shared/constants"
)

const appDirName = "gh-recon"

// getCacheDir returns the per-user cache directory for repository checkouts,
// following the XDG Base Directory layout on Linux/Unix.
func getCacheDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		baseDir = os.Getenv("LOCALAPPDATA")
		if baseDir == "" {
			return "", fmt.Errorf("could not determine Windows cache directory")
		}
		baseDir = filepath.Join(baseDir, appDirName, "cache")

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, "Library", "Caches", appDirName)

	default:
		// $XDG_CACHE_HOME/gh-recon > ~/.cache/gh-recon
		if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
			baseDir = filepath.Join(xdg, appDirName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("could not determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".cache", appDirName)
		}
	}

	if err := os.MkdirAll(baseDir, consts.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}
	return baseDir, nil
}

// defaultCloneDir is where an organisation's checkouts go when --clone-dir is
// not given.
func defaultCloneDir(org string) (string, error) {
	cacheDir, err := getCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "repos_"+org), nil
}
