package cmd

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionString(t *testing.T) {
	original := Version
	Version = "1.2.3"
	t.Cleanup(func() { Version = original })

	assert.Equal(t, "gh-recon version 1.2.3\n", versionString(false))

	verbose := versionString(true)
	assert.Contains(t, verbose, "Version:    1.2.3")
	assert.Contains(t, verbose, "Go Version: "+runtime.Version())
	assert.Contains(t, verbose, runtime.GOOS+"/"+runtime.GOARCH)
}
