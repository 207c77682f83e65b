package finding

import "sync"

// Delta lists the subjects a merge added to the accumulator for the first time.
type Delta struct {
	URLs     []string
	Packages []PackageRef
}

// IsEmpty reports whether the merge added nothing new.
func (d Delta) IsEmpty() bool {
	return len(d.URLs) == 0 && len(d.Packages) == 0
}

// Accumulator is the run-wide union of all findings. It only grows, and it is
// only mutated through Merge.
type Accumulator struct {
	mu    sync.RWMutex
	state Finding
	repos int
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{state: Empty()}
}

// Merge folds one repository finding into the accumulator. Safe for
// concurrent callers; merge order does not affect the resulting state.
func (a *Accumulator) Merge(f Finding) Delta {
	a.mu.Lock()
	defer a.mu.Unlock()

	var delta Delta
	for _, u := range f.URLs() {
		if !a.state.HasURL(u) {
			delta.URLs = append(delta.URLs, u)
		}
	}
	for _, ref := range f.PackageRefs() {
		if !a.state.HasPackage(ref) {
			delta.Packages = append(delta.Packages, ref)
		}
	}

	// Union never mutates its operands, so snapshots handed out earlier stay valid.
	a.state = Union(a.state, f)
	a.repos++
	return delta
}

// Snapshot returns the accumulated union as an immutable finding.
func (a *Accumulator) Snapshot() Finding {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Merged is the number of findings merged so far.
func (a *Accumulator) Merged() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.repos
}
