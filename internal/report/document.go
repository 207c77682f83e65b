// Package report renders verification outcomes into the run's text artifact
// and persists it.
package report

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/khanhnv2901/gh-recon/internal/domain/finding"
	"github.com/khanhnv2901/gh-recon/internal/verifier"
)

// PackageLine is one "<name> -> <registry-url> [<status>]" entry.
type PackageLine struct {
	Name        string
	RegistryURL string
	Status      string
}

// Document is the full content of one report write.
type Document struct {
	RunID       string
	GeneratedAt time.Time
	Partial     bool
	Live        []string
	Broken      []string
	Packages    map[finding.Ecosystem][]PackageLine
	// Unverified lists subjects known to the run but not yet classified.
	Unverified finding.Finding
}

// Checkpoint describes the run between repositories: subjects already
// classified (by instant alerts) are listed with their status, the rest as
// unverified. A checkpoint is always partial.
func Checkpoint(runID string, at time.Time, known verifier.Outcome) Document {
	doc := FromOutcome(runID, at, known, true)
	doc.Partial = true
	return doc
}

// FromOutcome describes a finished or interrupted verification. The document
// is partial when the run was cancelled or some subjects went unverified.
func FromOutcome(runID string, at time.Time, out verifier.Outcome, interrupted bool) Document {
	doc := Document{
		RunID:       runID,
		GeneratedAt: at,
		Partial:     interrupted || !out.Complete(),
		Live:        out.Live(),
		Broken:      out.Dead(),
		Packages:    make(map[finding.Ecosystem][]PackageLine),
		Unverified:  out.Unverified,
	}
	for _, eco := range finding.Ecosystems() {
		for _, r := range out.PackageResults(eco) {
			doc.Packages[eco] = append(doc.Packages[eco], PackageLine{
				Name:        r.Package.Name,
				RegistryURL: r.RegistryURL,
				Status:      r.Status(),
			})
		}
	}
	return doc
}

func (d Document) state() string {
	if d.Partial {
		return "partial"
	}
	return "complete"
}

// Render writes the text format. Lines within a section are sorted.
func (d Document) Render(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "# gh-recon run=%s generated=%s state=%s\n",
		d.RunID, d.GeneratedAt.UTC().Format(time.RFC3339), d.state())

	writeSection(bw, "Live URLs", sorted(d.Live))
	writeSection(bw, "Broken URLs", sorted(d.Broken))

	for _, eco := range finding.Ecosystems() {
		pkgs := append([]PackageLine(nil), d.Packages[eco]...)
		sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })
		lines := make([]string, 0, len(pkgs))
		for _, p := range pkgs {
			lines = append(lines, fmt.Sprintf("%s -> %s [%s]", p.Name, p.RegistryURL, p.Status))
		}
		writeSection(bw, eco.Title()+" Packages", lines)
	}

	if urls := d.Unverified.URLs(); len(urls) > 0 {
		writeSection(bw, "Unverified URLs", urls)
	}
	for _, eco := range finding.Ecosystems() {
		if names := d.Unverified.Packages(eco); len(names) > 0 {
			writeSection(bw, "Unverified "+eco.Title()+" Packages", names)
		}
	}

	return bw.Flush()
}

func writeSection(w io.Writer, title string, lines []string) {
	fmt.Fprintf(w, "==== %s ====\n", title)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	fmt.Fprintln(w)
}

func sorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
