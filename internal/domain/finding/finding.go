package finding

import "sort"

// Finding is the set of admissible URLs and package names extracted from one
// repository, or the union of several. A Finding is immutable once built:
// accessors hand out sorted copies and Union always allocates a new value.
type Finding struct {
	urls     map[string]struct{}
	packages map[Ecosystem]map[string]struct{}
}

// Empty returns a Finding with no URLs and no packages.
func Empty() Finding {
	return Finding{
		urls:     map[string]struct{}{},
		packages: map[Ecosystem]map[string]struct{}{},
	}
}

// URLs returns the normalized URLs in lexical order.
func (f Finding) URLs() []string {
	return sortedKeys(f.urls)
}

// Packages returns the package names declared for one ecosystem in lexical order.
func (f Finding) Packages(eco Ecosystem) []string {
	return sortedKeys(f.packages[eco])
}

// PackageRefs returns every package across ecosystems, ecosystems in report order.
func (f Finding) PackageRefs() []PackageRef {
	var refs []PackageRef
	for _, eco := range ecosystemOrder {
		for _, name := range f.Packages(eco) {
			refs = append(refs, PackageRef{Ecosystem: eco, Name: name})
		}
	}
	return refs
}

// HasURL reports whether the normalized URL is part of the finding.
func (f Finding) HasURL(u string) bool {
	_, ok := f.urls[u]
	return ok
}

// HasPackage reports whether the package is part of the finding.
func (f Finding) HasPackage(ref PackageRef) bool {
	_, ok := f.packages[ref.Ecosystem][ref.Name]
	return ok
}

// URLCount is the number of distinct URLs.
func (f Finding) URLCount() int {
	return len(f.urls)
}

// PackageCount is the number of distinct packages across ecosystems.
func (f Finding) PackageCount() int {
	total := 0
	for _, names := range f.packages {
		total += len(names)
	}
	return total
}

// IsEmpty reports whether the finding holds nothing.
func (f Finding) IsEmpty() bool {
	return f.URLCount() == 0 && f.PackageCount() == 0
}

// Equal reports set equality.
func (f Finding) Equal(other Finding) bool {
	if len(f.urls) != len(other.urls) || f.PackageCount() != other.PackageCount() {
		return false
	}
	for u := range f.urls {
		if _, ok := other.urls[u]; !ok {
			return false
		}
	}
	for eco, names := range f.packages {
		for name := range names {
			if _, ok := other.packages[eco][name]; !ok {
				return false
			}
		}
	}
	return true
}

// Union merges two findings: set union of URLs and per-ecosystem union of
// package names. It is commutative, associative and idempotent, and neither
// operand is modified.
func Union(a, b Finding) Finding {
	out := Empty()
	for _, src := range []Finding{a, b} {
		for u := range src.urls {
			out.urls[u] = struct{}{}
		}
		for eco, names := range src.packages {
			if len(names) == 0 {
				continue
			}
			dst := out.packages[eco]
			if dst == nil {
				dst = make(map[string]struct{}, len(names))
				out.packages[eco] = dst
			}
			for name := range names {
				dst[name] = struct{}{}
			}
		}
	}
	return out
}

// Builder collects URLs and packages for one repository scan.
// It is not safe for concurrent use.
type Builder struct {
	f Finding
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{f: Empty()}
}

// AddURL records a normalized URL.
func (b *Builder) AddURL(u string) {
	if u == "" {
		return
	}
	b.f.urls[u] = struct{}{}
}

// AddPackage records a package name under an ecosystem.
func (b *Builder) AddPackage(eco Ecosystem, name string) {
	if name == "" {
		return
	}
	names := b.f.packages[eco]
	if names == nil {
		names = map[string]struct{}{}
		b.f.packages[eco] = names
	}
	names[name] = struct{}{}
}

// Build returns the finding and resets the builder, so later Add calls
// cannot reach the returned value.
func (b *Builder) Build() Finding {
	out := b.f
	b.f = Empty()
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
