package filter

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// DefaultPackageNamePattern is the character class shared by every ecosystem.
const DefaultPackageNamePattern = `^[a-zA-Z0-9_.\-]+$`

// Rules is the loadable configuration behind the validity filters.
type Rules struct {
	// DeniedDomains holds hostnames, or host+path prefixes when an entry contains "/".
	DeniedDomains         []string `yaml:"denied_domains"`
	FalsePositivePackages []string `yaml:"false_positive_packages"`
	// SourceHosts are source-hosting domains whose ephemeral views are rejected.
	SourceHosts       []string `yaml:"source_hosts"`
	EphemeralSegments []string `yaml:"ephemeral_segments"`
	// PackageNamePattern overrides DefaultPackageNamePattern when set.
	PackageNamePattern string `yaml:"package_name_pattern,omitempty"`
	// ReplaceDefaults makes a rules file replace the built-in lists instead of extending them.
	ReplaceDefaults bool `yaml:"replace_defaults,omitempty"`
}

// DefaultRules returns a copy of the built-in rules.
func DefaultRules() Rules {
	var r Rules
	if err := yaml.Unmarshal(defaultRulesYAML, &r); err != nil {
		panic(fmt.Sprintf("filter: built-in rules are invalid: %v", err))
	}
	return r
}

// ParseRules decodes a YAML rules document.
func ParseRules(data []byte) (Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rules{}, fmt.Errorf("decode rules: %w", err)
	}
	return r, nil
}

// LoadRules reads a rules file and combines it with the built-in rules.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules file: %w", err)
	}
	custom, err := ParseRules(data)
	if err != nil {
		return Rules{}, fmt.Errorf("%s: %w", path, err)
	}
	if custom.ReplaceDefaults {
		return custom, nil
	}
	return DefaultRules().Extend(custom), nil
}

// Extend returns r with other's lists appended. A pattern set in other wins.
func (r Rules) Extend(other Rules) Rules {
	out := Rules{
		DeniedDomains:         appendCopy(r.DeniedDomains, other.DeniedDomains),
		FalsePositivePackages: appendCopy(r.FalsePositivePackages, other.FalsePositivePackages),
		SourceHosts:           appendCopy(r.SourceHosts, other.SourceHosts),
		EphemeralSegments:     appendCopy(r.EphemeralSegments, other.EphemeralSegments),
		PackageNamePattern:    r.PackageNamePattern,
	}
	if other.PackageNamePattern != "" {
		out.PackageNamePattern = other.PackageNamePattern
	}
	return out
}

func appendCopy(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
