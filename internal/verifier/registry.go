package verifier

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/khanhnv2901/gh-recon/internal/domain/finding"
)

// NamePlaceholder is substituted with the escaped package name.
const NamePlaceholder = "{name}"

// Registries maps an ecosystem to its lookup URL template.
type Registries map[finding.Ecosystem]string

// DefaultRegistries returns the public registry endpoints.
func DefaultRegistries() Registries {
	return Registries{
		finding.EcosystemNPM:  "https://registry.npmjs.org/{name}",
		finding.EcosystemPyPI: "https://pypi.org/pypi/{name}/json",
		finding.EcosystemGem:  "https://rubygems.org/gems/{name}",
		finding.EcosystemGo:   "https://pkg.go.dev/{name}",
	}
}

// WithOverrides returns a copy of r with templates replaced by overrides,
// keyed by ecosystem name or alias.
func (r Registries) WithOverrides(overrides map[string]string) (Registries, error) {
	out := make(Registries, len(r))
	for eco, tmpl := range r {
		out[eco] = tmpl
	}
	for name, tmpl := range overrides {
		eco, err := finding.ParseEcosystem(name)
		if err != nil {
			return nil, err
		}
		if !strings.Contains(tmpl, NamePlaceholder) {
			return nil, fmt.Errorf("registry template for %s lacks %s: %q", eco, NamePlaceholder, tmpl)
		}
		out[eco] = tmpl
	}
	return out, nil
}

// URL renders the lookup URL for ref. Path segments of the name are escaped
// individually so module paths keep their slashes.
func (r Registries) URL(ref finding.PackageRef) (string, error) {
	tmpl, ok := r[ref.Ecosystem]
	if !ok {
		return "", fmt.Errorf("no registry for ecosystem %q", ref.Ecosystem)
	}
	segs := strings.Split(ref.Name, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.ReplaceAll(tmpl, NamePlaceholder, strings.Join(segs, "/")), nil
}
