package errors

import "errors"

// Pipeline error taxonomy.
var (
	// ErrFileRead marks a file that could not be read during a repository walk.
	// The file is skipped and the walk continues.
	ErrFileRead = errors.New("file read failed")

	// ErrManifestParse marks a structured manifest that could not be parsed.
	// The manifest contributes no packages; sibling files are unaffected.
	ErrManifestParse = errors.New("manifest parse failed")

	// ErrAcquisition marks a failure to enumerate repositories. It is the only
	// condition that aborts a run, and it happens before any scanning.
	ErrAcquisition = errors.New("repository acquisition failed")

	// ErrRepositoryPrepare marks a single repository that could not be made
	// available locally (clone failure). The repository is skipped.
	ErrRepositoryPrepare = errors.New("repository prepare failed")

	// ErrInterrupted is returned after a cancelled run has flushed its partial report.
	ErrInterrupted = errors.New("run interrupted")

	// Validation errors
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnknownEcosystem = errors.New("unknown ecosystem")
)
