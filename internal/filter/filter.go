// Package filter classifies raw URLs and raw package names as admissible or
// noise. Both predicates are total, side-effect free and safe for concurrent
// use; a Filter is immutable after New.
package filter

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/khanhnv2901/gh-recon/internal/domain/finding"
)

var (
	templateMarker = regexp.MustCompile(`\{\{.*?\}\}`)
	// scheme://host.tld[:port]/? with nothing after it: placeholder or truncated URLs.
	bareRoot        = regexp.MustCompile(`(?i)^https?://[^/:]+\.\w{1,6}(:\d*)?/*$`)
	punctuationOnly = regexp.MustCompile(`^[-_.]+$`)
	constantLike    = regexp.MustCompile(`^[A-Z0-9_]{3,}$`)
)

// Filter holds compiled rules.
type Filter struct {
	deniedHosts    map[string]struct{}
	deniedPrefixes []string
	falsePositives map[string]struct{}
	sourceHosts    map[string]struct{}
	ephemeral      map[string]struct{}
	namePattern    *regexp.Regexp
}

// New compiles rules into a Filter.
func New(rules Rules) (*Filter, error) {
	pattern := rules.PackageNamePattern
	if pattern == "" {
		pattern = DefaultPackageNamePattern
	}
	namePattern, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile package name pattern: %w", err)
	}

	f := &Filter{
		deniedHosts:    make(map[string]struct{}),
		falsePositives: make(map[string]struct{}),
		sourceHosts:    make(map[string]struct{}),
		ephemeral:      make(map[string]struct{}),
		namePattern:    namePattern,
	}

	for _, entry := range rules.DeniedDomains {
		entry = NormalizeHostname(strings.TrimSpace(entry))
		switch {
		case entry == "":
		case strings.Contains(entry, "/"):
			f.deniedPrefixes = append(f.deniedPrefixes, entry)
		default:
			f.deniedHosts[entry] = struct{}{}
		}
	}
	for _, name := range rules.FalsePositivePackages {
		f.falsePositives[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}
	for _, host := range rules.SourceHosts {
		f.sourceHosts[NormalizeHostname(host)] = struct{}{}
	}
	for _, seg := range rules.EphemeralSegments {
		f.ephemeral[strings.ToLower(strings.Trim(seg, "/ "))] = struct{}{}
	}

	return f, nil
}

var (
	defaultOnce   sync.Once
	defaultFilter *Filter
)

// Default returns the filter built from DefaultRules.
func Default() *Filter {
	defaultOnce.Do(func() {
		f, err := New(DefaultRules())
		if err != nil {
			panic(fmt.Sprintf("filter: built-in rules do not compile: %v", err))
		}
		defaultFilter = f
	})
	return defaultFilter
}

// IsAdmissibleURL applies the default rules to a raw URL.
func IsAdmissibleURL(raw string) bool {
	return Default().AdmissibleURL(raw)
}

// IsAdmissiblePackageName applies the default rules to a raw package name.
func IsAdmissiblePackageName(eco finding.Ecosystem, name string) bool {
	return Default().AdmissiblePackageName(eco, name)
}

// NormalizeHostname lower-cases a hostname and strips a leading "www.".
func NormalizeHostname(host string) string {
	host = strings.ToLower(host)
	host = strings.TrimSuffix(host, ".")
	return strings.TrimPrefix(host, "www.")
}

// AdmissibleURL reports whether raw is worth keeping. Any parse failure
// yields false.
func (f *Filter) AdmissibleURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	host := NormalizeHostname(u.Hostname())
	if host == "" {
		return false
	}
	if _, denied := f.deniedHosts[host]; denied {
		return false
	}
	if len(f.deniedPrefixes) > 0 {
		hostPath := host + strings.ToLower(u.Path)
		for _, prefix := range f.deniedPrefixes {
			if strings.HasPrefix(hostPath, prefix) {
				return false
			}
		}
	}

	if templateMarker.MatchString(raw) || strings.ContainsAny(raw, "{}") {
		return false
	}
	if bareRoot.MatchString(raw) {
		return false
	}

	if _, ok := f.sourceHosts[host]; ok && f.isEphemeralView(u.Path) {
		return false
	}

	return true
}

// isEphemeralView matches /<owner>/<repo>/<segment>/... where segment names a
// pull request, issue, commit, diff, release or workflow view. Profiles and
// repository roots pass.
func (f *Filter) isEphemeralView(path string) bool {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(segs) < 3 {
		return false
	}
	_, ok := f.ephemeral[strings.ToLower(segs[2])]
	return ok
}

// AdmissiblePackageName reports whether name is a plausible package
// identifier for eco. The false-positive set is matched case-insensitively.
func (f *Filter) AdmissiblePackageName(eco finding.Ecosystem, name string) bool {
	if !eco.Valid() {
		return false
	}
	if len(strings.TrimSpace(name)) < 2 {
		return false
	}
	if _, fp := f.falsePositives[strings.ToLower(name)]; fp {
		return false
	}
	if isDigits(name) || punctuationOnly.MatchString(name) || constantLike.MatchString(name) {
		return false
	}
	return f.namePattern.MatchString(name)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
