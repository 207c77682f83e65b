// Package recon coordinates one reconnaissance run: acquire repositories,
// scan each into a Finding, fold findings into the run accumulator, verify
// the union and hand the outcome to the reporter.
package recon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khanhnv2901/gh-recon/internal/domain/finding"
	"github.com/khanhnv2901/gh-recon/internal/metrics"
	"github.com/khanhnv2901/gh-recon/internal/report"
	"github.com/khanhnv2901/gh-recon/internal/scanner"
	apperrors "github.com/khanhnv2901/gh-recon/internal/shared/errors"
	"github.com/khanhnv2901/gh-recon/internal/source"
	"github.com/khanhnv2901/gh-recon/internal/verifier"
)

// Scanner reduces one local tree to a Finding.
type Scanner interface {
	Scan(ctx context.Context, root string) (finding.Finding, scanner.Report, error)
}

// Verifier classifies subjects. Implementations memoise per subject.
type Verifier interface {
	Verify(ctx context.Context, f finding.Finding) verifier.Outcome
	VerifyPackages(ctx context.Context, refs []finding.PackageRef) verifier.Outcome
	Pending(f finding.Finding) int
	// Known returns memoised classifications for f without checking.
	Known(f finding.Finding) verifier.Outcome
}

// Hooks receive progress events. All are optional.
type Hooks struct {
	// RepositoryStarted fires before a repository is prepared; index is 1-based.
	RepositoryStarted func(index, total int, repo source.Repository)
	// Hijackable fires for each PotentiallyHijackable package found by instant alerts.
	Hijackable func(verifier.Result)
	// VerificationStarted fires once with the number of subjects left to check.
	VerificationStarted func(pending int)
}

// Config wires a Pipeline.
type Config struct {
	Source   source.Source
	Scanner  Scanner
	Verifier Verifier
	Reporter report.Reporter
	Logger   *zap.SugaredLogger
	Metrics  *metrics.Metrics
	Hooks    Hooks
	// Checkpoint rewrites the report after every merged repository.
	Checkpoint bool
	// InstantAlerts verifies the new packages of each repository right after
	// its merge.
	InstantAlerts bool
	// RunID defaults to a random UUID.
	RunID string
	Now   func() time.Time
}

// Pipeline runs the stages in order. One Pipeline serves one run.
type Pipeline struct {
	cfg Config
}

// Summary describes a finished or interrupted run.
type Summary struct {
	RunID        string
	Repositories int
	Merged       int
	Skipped      int
	URLs         int
	Packages     int
	Live         int
	Dead         int
	Hijackable   []verifier.Result
	ReportPath   string
	Partial      bool
}

// NewPipeline validates cfg.
func NewPipeline(cfg Config) (*Pipeline, error) {
	switch {
	case cfg.Source == nil:
		return nil, fmt.Errorf("%w: source is required", apperrors.ErrInvalidInput)
	case cfg.Scanner == nil:
		return nil, fmt.Errorf("%w: scanner is required", apperrors.ErrInvalidInput)
	case cfg.Verifier == nil:
		return nil, fmt.Errorf("%w: verifier is required", apperrors.ErrInvalidInput)
	case cfg.Reporter == nil:
		return nil, fmt.Errorf("%w: reporter is required", apperrors.ErrInvalidInput)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Pipeline{cfg: cfg}, nil
}

// RunID identifies this run in logs and in the report header.
func (p *Pipeline) RunID() string {
	return p.cfg.RunID
}

// Run executes the whole pipeline. Only acquisition failures abort before
// scanning. When ctx is cancelled the run stops scanning and checking, flushes
// everything merged so far as a partial report and returns an error wrapping
// ErrInterrupted.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	log := p.cfg.Logger.With("run_id", p.cfg.RunID)
	summary := Summary{RunID: p.cfg.RunID, ReportPath: p.cfg.Reporter.Path()}

	repos, err := p.cfg.Source.List(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return summary, fmt.Errorf("%w: %v", apperrors.ErrInterrupted, err)
		}
		return summary, err
	}
	summary.Repositories = len(repos)
	log.Infow("repositories listed", "source", p.cfg.Source.Name(), "count", len(repos))

	acc := finding.NewAccumulator()
	var alerted []verifier.Result

	for i, repo := range repos {
		if ctx.Err() != nil {
			break
		}
		if p.cfg.Hooks.RepositoryStarted != nil {
			p.cfg.Hooks.RepositoryStarted(i+1, len(repos), repo)
		}

		f, ok := p.scanRepository(ctx, log, repo)
		if !ok {
			if ctx.Err() == nil {
				summary.Skipped++
			}
			continue
		}

		delta := acc.Merge(f)
		p.cfg.Metrics.RepositoryMerged()
		log.Debugw("repository merged", "repo", repo.Name, "new_urls", len(delta.URLs), "new_packages", len(delta.Packages))

		if p.cfg.InstantAlerts && len(delta.Packages) > 0 {
			out := p.cfg.Verifier.VerifyPackages(ctx, delta.Packages)
			for _, r := range out.Hijackable() {
				alerted = append(alerted, r)
				if p.cfg.Hooks.Hijackable != nil {
					p.cfg.Hooks.Hijackable(r)
				}
			}
		}
		if p.cfg.Checkpoint {
			known := p.cfg.Verifier.Known(acc.Snapshot())
			if err := p.cfg.Reporter.Write(report.Checkpoint(p.cfg.RunID, p.cfg.Now(), known)); err != nil {
				log.Warnw("checkpoint write failed", "error", err)
			}
		}
	}
	summary.Merged = acc.Merged()

	snapshot := acc.Snapshot()
	summary.URLs = snapshot.URLCount()
	summary.Packages = snapshot.PackageCount()

	if ctx.Err() == nil && p.cfg.Hooks.VerificationStarted != nil {
		p.cfg.Hooks.VerificationStarted(p.cfg.Verifier.Pending(snapshot))
	}
	// A cancelled ctx still returns memoised results and lists the rest as unverified.
	outcome := p.cfg.Verifier.Verify(ctx, snapshot)
	interrupted := ctx.Err() != nil

	doc := report.FromOutcome(p.cfg.RunID, p.cfg.Now(), outcome, interrupted)
	summary.Partial = doc.Partial
	summary.Live = len(outcome.Live())
	summary.Dead = len(outcome.Dead())
	summary.Hijackable = outcome.Hijackable()

	if err := p.cfg.Reporter.Write(doc); err != nil {
		return summary, fmt.Errorf("write report: %w", err)
	}
	log.Infow("report written",
		"path", p.cfg.Reporter.Path(),
		"partial", doc.Partial,
		"merged", summary.Merged,
		"urls", summary.URLs,
		"packages", summary.Packages,
		"hijackable", len(summary.Hijackable),
		"instant_alerts", len(alerted))

	if interrupted {
		return summary, fmt.Errorf("%w after %d of %d repositories", apperrors.ErrInterrupted, summary.Merged, summary.Repositories)
	}
	return summary, nil
}

// scanRepository prepares and scans one repository. ok is false when the
// repository contributes nothing: it could not be prepared, its tree could not
// be walked, or the run was cancelled mid-scan.
func (p *Pipeline) scanRepository(ctx context.Context, log *zap.SugaredLogger, repo source.Repository) (finding.Finding, bool) {
	path, err := p.cfg.Source.Prepare(ctx, repo)
	if err != nil {
		if ctx.Err() == nil {
			log.Warnw("skipping repository", "repo", repo.Name, "error", err)
		}
		return finding.Finding{}, false
	}

	f, rep, err := p.cfg.Scanner.Scan(ctx, path)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.Infow("scan interrupted", "repo", repo.Name, "files_scanned", rep.FilesScanned)
		return finding.Finding{}, false
	default:
		log.Warnw("skipping repository", "repo", repo.Name, "error", err)
		return finding.Finding{}, false
	}

	log.Debugw("repository scanned",
		"repo", repo.Name,
		"files", rep.FilesScanned,
		"file_errors", len(rep.Errors),
		"urls", f.URLCount(),
		"packages", f.PackageCount())
	return f, true
}
