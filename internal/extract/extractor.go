// Package extract turns one file's content into raw candidates: URLs found in
// text, markdown links and HTML anchors, and package names declared in
// well-known dependency manifests.
//
// The extractor never decides admissibility. Callers run every candidate
// through the validity filters before keeping it.
package extract

import (
	"path/filepath"
	"strings"

	"github.com/khanhnv2901/gh-recon/internal/domain/finding"
)

// DefaultExtensions is the scanning allowlist: documentation, source,
// structured config, markup, shell and plain text.
var DefaultExtensions = []string{
	".md",
	".py",
	".js",
	".yml",
	".yaml",
	".json",
	".rb",
	".go",
	".ts",
	".sh",
	".txt",
	".html",
	".htm",
	".css",
	".env",
	".ini",
	".cfg",
}

// Manifest file names, matched against the exact base name.
const (
	ManifestPackageJSON  = "package.json"
	ManifestRequirements = "requirements.txt"
	ManifestPipfile      = "Pipfile"
	ManifestGemfile      = "Gemfile"
	ManifestGoMod        = "go.mod"
)

// Candidates are the raw, unfiltered results for one file.
type Candidates struct {
	URLs     []string
	Packages []finding.PackageRef
}

// Options tunes an Extractor.
type Options struct {
	// Extensions overrides DefaultExtensions when non-empty.
	Extensions []string
	// IncludeDevDependencies also reads package.json devDependencies.
	IncludeDevDependencies bool
}

// Extractor is safe for concurrent use.
type Extractor struct {
	extensions map[string]struct{}
	manifests  map[string]manifestParser
}

// New builds an Extractor.
func New(opts Options) *Extractor {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	e := &Extractor{
		extensions: make(map[string]struct{}, len(exts)),
	}
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		e.extensions[ext] = struct{}{}
	}
	e.manifests = map[string]manifestParser{
		ManifestPackageJSON:  packageJSONParser(opts.IncludeDevDependencies),
		ManifestRequirements: parseRequirements,
		ManifestPipfile:      parsePipfile,
		ManifestGemfile:      parseGemfile,
		ManifestGoMod:        parseGoMod,
	}
	return e
}

// Eligible reports whether the file at path should be opened at all. Known
// manifests are eligible even when their extension is not allowlisted.
func (e *Extractor) Eligible(path string) bool {
	base := filepath.Base(path)
	if _, ok := e.manifests[base]; ok {
		return true
	}
	_, ok := e.extensions[strings.ToLower(filepath.Ext(base))]
	return ok
}

// IsManifest reports whether path names a known dependency manifest.
func (e *Extractor) IsManifest(path string) bool {
	_, ok := e.manifests[filepath.Base(path)]
	return ok
}

// Extract returns the raw URL and package candidates of one file. A manifest
// that fails to parse yields a *ManifestError and no packages; URL
// candidates of the same file are still returned.
func (e *Extractor) Extract(path string, content []byte) (Candidates, error) {
	text := string(content)
	var out Candidates

	out.URLs = scanURLs(text)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md":
		out.URLs = append(out.URLs, scanMarkdownLinks(text)...)
	case ".html", ".htm":
		out.URLs = append(out.URLs, scanAnchors(text)...)
	}

	parse, ok := e.manifests[filepath.Base(path)]
	if !ok {
		return out, nil
	}
	pkgs, err := parse(content)
	if err != nil {
		return out, &ManifestError{Path: path, Err: err}
	}
	out.Packages = pkgs
	return out, nil
}
