// Package verifier classifies aggregated subjects over the network. URLs are
// checked for liveness; package names are looked up in their ecosystem's
// public registry, and a missing registry entry marks the name as
// potentially hijackable.
//
// Every check has its own timeout and always terminates in a classification,
// so one slow or failing subject never blocks the others. Results are
// memoised per subject for the lifetime of a Verifier.
package verifier

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/khanhnv2901/gh-recon/internal/domain/finding"
	"github.com/khanhnv2901/gh-recon/internal/filter"
	"github.com/khanhnv2901/gh-recon/internal/metrics"
	consts "github.com/khanhnv2901/gh-recon/internal/shared/constants"
)

// Config wires a Verifier. Zero values take defaults.
type Config struct {
	Workers        int
	PackageTimeout time.Duration
	URLTimeout     time.Duration
	// Rate is a global cap in checks per second; 0 means unlimited.
	Rate float64
	// HostRate caps checks per second against one registrable domain; 0 means unlimited.
	HostRate   float64
	Registries Registries
	Client     *http.Client
	Filter     *filter.Filter
	Logger     *zap.SugaredLogger
	Metrics    *metrics.Metrics
	// OnResult is called from the collector for every fresh classification.
	OnResult func(Result)
}

// Verifier runs checks on a bounded worker pool.
type Verifier struct {
	workers        int
	packageTimeout time.Duration
	urlTimeout     time.Duration
	registries     Registries
	client         *http.Client
	filter         *filter.Filter
	logger         *zap.SugaredLogger
	metrics        *metrics.Metrics
	onResult       func(Result)
	limiter        *limiter

	mu   sync.Mutex
	memo map[string]Result
}

// New builds a Verifier.
func New(cfg Config) *Verifier {
	v := &Verifier{
		workers:        cfg.Workers,
		packageTimeout: cfg.PackageTimeout,
		urlTimeout:     cfg.URLTimeout,
		registries:     cfg.Registries,
		client:         cfg.Client,
		filter:         cfg.Filter,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
		onResult:       cfg.OnResult,
		limiter:        newLimiter(cfg.Rate, cfg.HostRate),
		memo:           make(map[string]Result),
	}
	if v.workers <= 0 {
		v.workers = consts.DefaultWorkers
	}
	if v.packageTimeout <= 0 {
		v.packageTimeout = consts.DefaultPackageTimeout
	}
	if v.urlTimeout <= 0 {
		v.urlTimeout = consts.DefaultURLTimeout
	}
	if v.registries == nil {
		v.registries = DefaultRegistries()
	}
	if v.client == nil {
		v.client = &http.Client{}
	}
	if v.filter == nil {
		v.filter = filter.Default()
	}
	if v.logger == nil {
		v.logger = zap.NewNop().Sugar()
	}
	return v
}

type task struct {
	url string
	pkg finding.PackageRef
}

func (t task) isPackage() bool { return t.url == "" }

func (t task) key() string {
	if t.isPackage() {
		return packageKey(t.pkg)
	}
	return urlKey(t.url)
}

// Verify classifies every URL and package of f. When ctx is cancelled no new
// checks start, in-flight checks are abandoned, and the subjects left
// unclassified are returned in Outcome.Unverified.
func (v *Verifier) Verify(ctx context.Context, f finding.Finding) Outcome {
	return v.run(ctx, subjectTasks(f))
}

// VerifyPackages classifies only the given packages.
func (v *Verifier) VerifyPackages(ctx context.Context, refs []finding.PackageRef) Outcome {
	tasks := make([]task, 0, len(refs))
	for _, ref := range refs {
		tasks = append(tasks, task{pkg: ref})
	}
	return v.run(ctx, tasks)
}

// Pending counts the subjects of f that have not been classified yet.
func (v *Verifier) Pending(f finding.Finding) int {
	v.mu.Lock()
	defer v.mu.Unlock()

	n := 0
	for _, u := range f.URLs() {
		if _, ok := v.memo[urlKey(u)]; !ok {
			n++
		}
	}
	for _, ref := range f.PackageRefs() {
		if !v.filter.AdmissiblePackageName(ref.Ecosystem, ref.Name) {
			continue
		}
		if _, ok := v.memo[packageKey(ref)]; !ok {
			n++
		}
	}
	return n
}

// Known reports what is already classified for f without checking anything.
// Subjects not yet checked are listed in Outcome.Unverified.
func (v *Verifier) Known(f finding.Finding) Outcome {
	out, pending := v.split(subjectTasks(f))
	out.Unverified = unverified(pending, nil)
	return out
}

func subjectTasks(f finding.Finding) []task {
	tasks := make([]task, 0, f.URLCount()+f.PackageCount())
	for _, u := range f.URLs() {
		tasks = append(tasks, task{url: u})
	}
	for _, ref := range f.PackageRefs() {
		tasks = append(tasks, task{pkg: ref})
	}
	return tasks
}

// split discards inadmissible names and duplicates, serves memoised results
// and returns the tasks that still need a check.
func (v *Verifier) split(tasks []task) (Outcome, []task) {
	var (
		out     Outcome
		pending []task
		seen    = make(map[string]struct{}, len(tasks))
	)

	for _, t := range tasks {
		// Names are re-validated; anything the filter rejects is discarded.
		if t.isPackage() && !v.filter.AdmissiblePackageName(t.pkg.Ecosystem, t.pkg.Name) {
			continue
		}
		if _, dup := seen[t.key()]; dup {
			continue
		}
		seen[t.key()] = struct{}{}

		if r, ok := v.cached(t.key()); ok {
			out.add(r)
			continue
		}
		pending = append(pending, t)
	}
	return out, pending
}

func unverified(pending []task, classified func(string) bool) finding.Finding {
	b := finding.NewBuilder()
	for _, t := range pending {
		if classified != nil && classified(t.key()) {
			continue
		}
		if t.isPackage() {
			b.AddPackage(t.pkg.Ecosystem, t.pkg.Name)
		} else {
			b.AddURL(t.url)
		}
	}
	return b.Build()
}

func (v *Verifier) run(ctx context.Context, tasks []task) Outcome {
	out, pending := v.split(tasks)

	taskCh := make(chan task)
	resultCh := make(chan Result)

	workers := v.workers
	if workers > len(pending) {
		workers = len(pending)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range taskCh {
				r, ok := v.check(ctx, t)
				if !ok {
					continue
				}
				resultCh <- r
			}
		}()
	}

	go func() {
		defer close(taskCh)
		for _, t := range pending {
			select {
			case taskCh <- t:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for r := range resultCh {
		v.store(r)
		out.add(r)
		v.metrics.ObserveCheck(r.Subject(), string(r.Kind), r.Duration)
		if v.onResult != nil {
			v.onResult(r)
		}
	}

	out.Unverified = unverified(pending, func(key string) bool {
		_, ok := v.cached(key)
		return ok
	})
	if !out.Complete() {
		v.logger.Warnw("verification interrupted",
			"unverified_urls", out.Unverified.URLCount(),
			"unverified_packages", out.Unverified.PackageCount())
	}
	return out
}

func (o *Outcome) add(r Result) {
	if r.IsPackage() {
		o.Packages = append(o.Packages, r)
		return
	}
	o.URLs = append(o.URLs, r)
}

func (v *Verifier) cached(key string) (Result, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	r, ok := v.memo[key]
	return r, ok
}

func (v *Verifier) store(r Result) {
	v.mu.Lock()
	v.memo[r.key()] = r
	v.mu.Unlock()
}

// check returns ok=false when the run was cancelled before the check could
// finish; such checks are dropped rather than classified.
func (v *Verifier) check(ctx context.Context, t task) (Result, bool) {
	if ctx.Err() != nil {
		return Result{}, false
	}

	var r Result
	if t.isPackage() {
		r = v.checkPackage(ctx, t.pkg)
	} else {
		r = v.checkURL(ctx, t.url)
	}
	if ctx.Err() != nil {
		return Result{}, false
	}
	return r, true
}

// checkPackage walks Unknown -> Checking -> terminal.
func (v *Verifier) checkPackage(ctx context.Context, ref finding.PackageRef) Result {
	r := Result{Package: ref, CheckedAt: time.Now().UTC()}

	target, err := v.registries.URL(ref)
	if err != nil {
		r.Kind = KindRequestFailed
		r.Err = err.Error()
		return r
	}
	r.RegistryURL = target

	status, err := v.get(ctx, target, v.packageTimeout)
	r.Duration = time.Since(r.CheckedAt)
	switch {
	case err != nil:
		r.Kind = KindRequestFailed
		r.Err = err.Error()
	case status == http.StatusOK:
		r.Kind = KindExists
	case status == http.StatusNotFound:
		r.Kind = KindPotentiallyHijackable
	default:
		r.Kind = KindError
	}
	r.StatusCode = status

	if r.Kind == KindPotentiallyHijackable {
		v.logger.Infow("registry has no such package", "ecosystem", ref.Ecosystem, "name", ref.Name, "registry_url", target)
	}
	return r
}

func (v *Verifier) checkURL(ctx context.Context, target string) Result {
	r := Result{URL: target, CheckedAt: time.Now().UTC()}

	status, err := v.get(ctx, target, v.urlTimeout)
	r.Duration = time.Since(r.CheckedAt)
	r.StatusCode = status
	if err == nil && status < http.StatusBadRequest {
		r.Kind = KindLive
	} else {
		r.Kind = KindDead
		if err != nil {
			r.Err = err.Error()
		}
	}
	return r
}

func (v *Verifier) get(ctx context.Context, target string, timeout time.Duration) (int, error) {
	if err := v.limiter.Wait(ctx, target); err != nil {
		return 0, err
	}

	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, target, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", consts.UserAgent)

	resp, err := v.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, consts.CheckBodyLimitBytes))

	return resp.StatusCode, nil
}
