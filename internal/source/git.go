package source

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// DefaultCloneTimeout bounds one shallow clone.
const DefaultCloneTimeout = 10 * time.Minute

var credentialInURL = regexp.MustCompile(`https://[^/@\s]+@`)

// GitCloner shells out to the git binary.
type GitCloner struct {
	Binary  string
	Timeout time.Duration
}

// NewGitCloner returns a cloner using git from PATH.
func NewGitCloner() *GitCloner {
	return &GitCloner{Binary: "git", Timeout: DefaultCloneTimeout}
}

// Clone runs a depth-1 clone with prompting disabled.
func (c *GitCloner) Clone(ctx context.Context, cloneURL, dest string) error {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultCloneTimeout
	}
	cloneCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(cloneCtx, c.Binary, "clone", "--depth", "1", "--quiet", cloneURL, dest)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := credentialInURL.ReplaceAllString(strings.TrimSpace(stderr.String()), "https://[REDACTED]@")
		return fmt.Errorf("git clone: %w: %s", err, msg)
	}
	return nil
}
