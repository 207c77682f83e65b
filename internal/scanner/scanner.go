// Package scanner walks one local repository tree and reduces it to a single
// immutable Finding.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/khanhnv2901/gh-recon/internal/domain/finding"
	"github.com/khanhnv2901/gh-recon/internal/extract"
	"github.com/khanhnv2901/gh-recon/internal/filter"
	"github.com/khanhnv2901/gh-recon/internal/metrics"
	consts "github.com/khanhnv2901/gh-recon/internal/shared/constants"
	apperrors "github.com/khanhnv2901/gh-recon/internal/shared/errors"
)

// DefaultSkipDirs are never descended into.
var DefaultSkipDirs = []string{".git", "node_modules"}

// FileError reports a file that could not be read.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() []error {
	return []error{apperrors.ErrFileRead, e.Err}
}

// Report summarises one walk.
type Report struct {
	Root         string
	FilesScanned int
	// Errors holds *FileError and *extract.ManifestError values, in walk order.
	Errors []error
}

// Config wires a Scanner.
type Config struct {
	Filter       *filter.Filter
	Extractor    *extract.Extractor
	Logger       *zap.SugaredLogger
	Metrics      *metrics.Metrics
	SkipDirs     []string
	MaxFileBytes int64
}

// Scanner is stateless between calls and may scan several trees concurrently.
type Scanner struct {
	filter       *filter.Filter
	extractor    *extract.Extractor
	logger       *zap.SugaredLogger
	metrics      *metrics.Metrics
	skipDirs     map[string]struct{}
	maxFileBytes int64
}

// New builds a Scanner, filling unset fields with defaults.
func New(cfg Config) *Scanner {
	s := &Scanner{
		filter:       cfg.Filter,
		extractor:    cfg.Extractor,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		skipDirs:     make(map[string]struct{}),
		maxFileBytes: cfg.MaxFileBytes,
	}
	if s.filter == nil {
		s.filter = filter.Default()
	}
	if s.extractor == nil {
		s.extractor = extract.New(extract.Options{})
	}
	if s.logger == nil {
		s.logger = zap.NewNop().Sugar()
	}
	if s.maxFileBytes <= 0 {
		s.maxFileBytes = consts.DefaultMaxFileBytes
	}
	skip := cfg.SkipDirs
	if len(skip) == 0 {
		skip = DefaultSkipDirs
	}
	for _, d := range skip {
		s.skipDirs[d] = struct{}{}
	}
	return s
}

// Scan walks root once and returns the admissible URLs and package names it
// contains. Unreadable files and broken manifests are recorded in the report
// and skipped. When ctx is cancelled the walk stops between files and the
// partial finding is returned with ctx.Err().
func (s *Scanner) Scan(ctx context.Context, root string) (finding.Finding, Report, error) {
	b := finding.NewBuilder()
	report := Report{Root: root}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			s.record(&report, &FileError{Path: path, Err: err}, "read")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if _, skip := s.skipDirs[d.Name()]; skip && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !s.extractor.Eligible(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			s.record(&report, &FileError{Path: path, Err: err}, "read")
			return nil
		}
		if info.Size() > s.maxFileBytes {
			s.logger.Debugw("skipping oversized file", "path", path, "bytes", info.Size())
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			s.record(&report, &FileError{Path: path, Err: err}, "read")
			return nil
		}
		report.FilesScanned++
		s.metrics.FileScanned()

		candidates, err := s.extractor.Extract(path, content)
		if err != nil {
			s.record(&report, err, "manifest")
		}
		s.fold(b, candidates)
		return nil
	})

	var err error
	switch {
	case walkErr == nil:
	case errors.Is(walkErr, context.Canceled), errors.Is(walkErr, context.DeadlineExceeded):
		err = walkErr
	default:
		err = &FileError{Path: root, Err: walkErr}
	}
	return b.Build(), report, err
}

func (s *Scanner) fold(b *finding.Builder, c extract.Candidates) {
	for _, raw := range c.URLs {
		if !s.filter.AdmissibleURL(raw) {
			continue
		}
		normalized, err := filter.NormalizeURL(raw)
		if err != nil {
			continue
		}
		b.AddURL(normalized)
	}
	for _, ref := range c.Packages {
		if s.filter.AdmissiblePackageName(ref.Ecosystem, ref.Name) {
			b.AddPackage(ref.Ecosystem, ref.Name)
		}
	}
}

func (s *Scanner) record(report *Report, err error, kind string) {
	report.Errors = append(report.Errors, err)
	s.metrics.ScanError(kind)
	s.logger.Warnw("skipping file", "kind", kind, "error", err)
}
