package extract

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/modfile"

	"github.com/khanhnv2901/gh-recon/internal/domain/finding"
	apperrors "github.com/khanhnv2901/gh-recon/internal/shared/errors"
)

// ManifestError reports a manifest that could not be parsed.
type ManifestError struct {
	Path string
	Err  error
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("parse manifest %s: %v", e.Path, e.Err)
}

func (e *ManifestError) Unwrap() []error {
	return []error{apperrors.ErrManifestParse, e.Err}
}

type manifestParser func(content []byte) ([]finding.PackageRef, error)

var (
	// name==1.0, name>=1, name~=2, name[extra]; version and marker suffixes dropped.
	requirementName = regexp.MustCompile(`^\s*([A-Za-z0-9][A-Za-z0-9._\-]*)`)
	gemDeclaration  = regexp.MustCompile(`^\s*gem\s+["']([a-zA-Z0-9_\-.]+)["']`)
)

func refs(eco finding.Ecosystem, names []string) []finding.PackageRef {
	out := make([]finding.PackageRef, 0, len(names))
	for _, name := range names {
		out = append(out, finding.PackageRef{Ecosystem: eco, Name: name})
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func packageJSONParser(includeDev bool) manifestParser {
	return func(content []byte) ([]finding.PackageRef, error) {
		var manifest struct {
			Dependencies    map[string]json.RawMessage `json:"dependencies"`
			DevDependencies map[string]json.RawMessage `json:"devDependencies"`
		}
		if err := json.Unmarshal(content, &manifest); err != nil {
			return nil, err
		}
		names := sortedKeys(manifest.Dependencies)
		if includeDev {
			names = append(names, sortedKeys(manifest.DevDependencies)...)
		}
		return refs(finding.EcosystemNPM, names), nil
	}
}

// lineScanner reads content line by line. A single line may be as long as
// the whole file.
func lineScanner(content []byte) *bufio.Scanner {
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(nil, max(len(content)+1, bufio.MaxScanTokenSize))
	return sc
}

func parseRequirements(content []byte) ([]finding.PackageRef, error) {
	var names []string
	sc := lineScanner(content)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		// -r other.txt, -e ., --index-url ...
		if line == "" || strings.HasPrefix(line, "-") {
			continue
		}
		m := requirementName.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		// https://host/pkg.zip, git+https://host/repo#egg=name
		if rest := line[len(m[0]):]; strings.HasPrefix(rest, "://") || strings.HasPrefix(rest, "+") {
			continue
		}
		names = append(names, m[1])
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return refs(finding.EcosystemPyPI, names), nil
}

func parsePipfile(content []byte) ([]finding.PackageRef, error) {
	var pipfile struct {
		Packages    map[string]any `toml:"packages"`
		DevPackages map[string]any `toml:"dev-packages"`
	}
	if err := toml.Unmarshal(content, &pipfile); err != nil {
		return nil, err
	}
	names := append(sortedKeys(pipfile.Packages), sortedKeys(pipfile.DevPackages)...)
	return refs(finding.EcosystemPyPI, names), nil
}

func parseGemfile(content []byte) ([]finding.PackageRef, error) {
	var names []string
	sc := lineScanner(content)
	for sc.Scan() {
		if m := gemDeclaration.FindStringSubmatch(sc.Text()); m != nil {
			names = append(names, m[1])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return refs(finding.EcosystemGem, names), nil
}

func parseGoMod(content []byte) ([]finding.PackageRef, error) {
	f, err := modfile.ParseLax("go.mod", content, nil)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(f.Require))
	for _, req := range f.Require {
		names = append(names, req.Mod.Path)
	}
	return refs(finding.EcosystemGo, names), nil
}
