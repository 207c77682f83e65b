package cmd

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipUnlessXDG(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG layout applies to Linux/Unix only")
	}
}

func TestGetCacheDirHonoursXDG(t *testing.T) {
	skipUnlessXDG(t)
	base := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", base)

	dir, err := getCacheDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "gh-recon"), dir)
	assert.DirExists(t, dir)
}

func TestGetCacheDirFallsBackToHome(t *testing.T) {
	skipUnlessXDG(t)
	home := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("HOME", home)

	dir, err := getCacheDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".cache", "gh-recon"), dir)
}

func TestDefaultCloneDir(t *testing.T) {
	skipUnlessXDG(t)
	base := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", base)

	dir, err := defaultCloneDir("acme")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "gh-recon", "repos_acme"), dir)
}
