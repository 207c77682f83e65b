package verifier

import (
	"sort"
	"strconv"
	"time"

	"github.com/khanhnv2901/gh-recon/internal/domain/finding"
)

// Kind is the terminal classification of one check.
type Kind string

const (
	KindExists                Kind = "Exists"
	KindPotentiallyHijackable Kind = "PotentiallyHijackable"
	KindError                 Kind = "Error"
	KindRequestFailed         Kind = "RequestFailed"
	KindLive                  Kind = "Live"
	KindDead                  Kind = "Dead"
)

// Result is the outcome of checking one URL or one package.
type Result struct {
	// URL is set for liveness checks.
	URL string
	// Package is set for registry checks.
	Package     finding.PackageRef
	Kind        Kind
	StatusCode  int
	RegistryURL string
	CheckedAt   time.Time
	Duration    time.Duration
	Err         string
}

// IsPackage reports whether r came from a registry check.
func (r Result) IsPackage() bool {
	return r.URL == ""
}

// Subject is the metrics label of the checked subject: "url" or the ecosystem.
func (r Result) Subject() string {
	if r.IsPackage() {
		return r.Package.Ecosystem.String()
	}
	return "url"
}

// Status renders a package classification the way reports print it.
func (r Result) Status() string {
	switch r.Kind {
	case KindError:
		return "Error " + strconv.Itoa(r.StatusCode)
	case KindRequestFailed:
		return "Request Failed"
	default:
		return string(r.Kind)
	}
}

// OK is true for Exists and Live; used for progress accounting.
func (r Result) OK() bool {
	return r.Kind == KindExists || r.Kind == KindLive
}

func (r Result) key() string {
	if r.IsPackage() {
		return packageKey(r.Package)
	}
	return urlKey(r.URL)
}

func urlKey(u string) string { return "url:" + u }
func packageKey(ref finding.PackageRef) string { return "pkg:" + ref.String() }

// Outcome groups the results of one verification call.
type Outcome struct {
	URLs     []Result
	Packages []Result
	// Unverified holds subjects that were admissible but never classified
	// because the run was cancelled.
	Unverified finding.Finding
}

// Complete reports whether every admissible subject was classified.
func (o Outcome) Complete() bool {
	return o.Unverified.IsEmpty()
}

// Live returns URLs classified Live, sorted.
func (o Outcome) Live() []string {
	return o.urlsOfKind(KindLive)
}

// Dead returns URLs classified Dead, sorted.
func (o Outcome) Dead() []string {
	return o.urlsOfKind(KindDead)
}

func (o Outcome) urlsOfKind(k Kind) []string {
	var out []string
	for _, r := range o.URLs {
		if r.Kind == k {
			out = append(out, r.URL)
		}
	}
	sort.Strings(out)
	return out
}

// PackageResults returns the results of one ecosystem sorted by name.
func (o Outcome) PackageResults(eco finding.Ecosystem) []Result {
	var out []Result
	for _, r := range o.Packages {
		if r.Package.Ecosystem == eco {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Package.Name < out[j].Package.Name })
	return out
}

// Hijackable returns every PotentiallyHijackable package across ecosystems.
func (o Outcome) Hijackable() []Result {
	var out []Result
	for _, eco := range finding.Ecosystems() {
		for _, r := range o.PackageResults(eco) {
			if r.Kind == KindPotentiallyHijackable {
				out = append(out, r)
			}
		}
	}
	return out
}
