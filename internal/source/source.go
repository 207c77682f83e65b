// Package source enumerates repositories and makes each one available as a
// local directory for scanning.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	apperrors "github.com/khanhnv2901/gh-recon/internal/shared/errors"
)

// Repository is one scan unit.
type Repository struct {
	Name     string
	CloneURL string
	// Path is the local checkout; empty until prepared for remote sources.
	Path string
}

// Source lists repositories and prepares them locally.
type Source interface {
	// Name labels the run's report file.
	Name() string
	// List enumerates repositories. A failure here aborts the run.
	List(ctx context.Context) ([]Repository, error)
	// Prepare returns the local path of repo. A failure skips that repository.
	Prepare(ctx context.Context, repo Repository) (string, error)
}

// FolderSource treats every immediate subdirectory of Root as a repository.
type FolderSource struct {
	Root string
}

// NewFolderSource validates root.
func NewFolderSource(root string) (*FolderSource, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %v", apperrors.ErrInvalidInput, root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", apperrors.ErrInvalidInput, abs)
	}
	return &FolderSource{Root: abs}, nil
}

func (s *FolderSource) Name() string {
	return filepath.Base(s.Root)
}

// List returns subdirectories in lexical order.
func (s *FolderSource) List(ctx context.Context) ([]Repository, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", apperrors.ErrAcquisition, s.Root, err)
	}
	var repos []Repository
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		repos = append(repos, Repository{Name: e.Name(), Path: filepath.Join(s.Root, e.Name())})
	}
	sort.Slice(repos, func(i, j int) bool { return repos[i].Name < repos[j].Name })
	return repos, nil
}

func (s *FolderSource) Prepare(_ context.Context, repo Repository) (string, error) {
	return repo.Path, nil
}
