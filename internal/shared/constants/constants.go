package constants

import (
	"io/fs"
	"time"
)

const (
	// DefaultDirPerm is the default permission used when creating directories.
	DefaultDirPerm fs.FileMode = 0o755
	// DefaultFilePerm is the default permission used when creating files.
	DefaultFilePerm fs.FileMode = 0o644
)

const (
	// DefaultWorkers bounds the number of in-flight verification checks.
	DefaultWorkers = 30
	// DefaultPackageTimeout is the per-check timeout for registry lookups.
	DefaultPackageTimeout = 6 * time.Second
	// DefaultURLTimeout is the per-check timeout for URL liveness checks.
	DefaultURLTimeout = 5 * time.Second
	// DefaultHostRate caps checks per second against one registrable domain.
	DefaultHostRate = 20
	// DefaultMaxFileBytes skips files larger than this during a repository walk.
	DefaultMaxFileBytes = 5 << 20
	// CheckBodyLimitBytes caps how much of a check response body is drained.
	CheckBodyLimitBytes = 64 << 10
	// UserAgent is sent with every outbound request.
	UserAgent = "gh-recon"
)
