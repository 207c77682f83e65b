package report

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanhnv2901/gh-recon/internal/domain/finding"
	"github.com/khanhnv2901/gh-recon/internal/verifier"
)

var generated = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func sampleOutcome() verifier.Outcome {
	npm := func(name string) finding.PackageRef {
		return finding.PackageRef{Ecosystem: finding.EcosystemNPM, Name: name}
	}
	return verifier.Outcome{
		URLs: []verifier.Result{
			{URL: "https://b.acme.io/x", Kind: verifier.KindLive},
			{URL: "https://a.acme.io/x", Kind: verifier.KindLive},
			{URL: "https://gone.acme.io/x", Kind: verifier.KindDead},
		},
		Packages: []verifier.Result{
			{Package: npm("zeta"), RegistryURL: "https://registry.npmjs.org/zeta", Kind: verifier.KindExists},
			{Package: npm("alpha"), RegistryURL: "https://registry.npmjs.org/alpha", Kind: verifier.KindPotentiallyHijackable},
			{
				Package:     finding.PackageRef{Ecosystem: finding.EcosystemPyPI, Name: "flask"},
				RegistryURL: "https://pypi.org/pypi/flask/json",
				Kind:        verifier.KindError,
				StatusCode:  503,
			},
		},
	}
}

func TestRender_CompleteDocument(t *testing.T) {
	doc := FromOutcome("run-1", generated, sampleOutcome(), false)

	var buf bytes.Buffer
	require.NoError(t, doc.Render(&buf))

	want := `# gh-recon run=run-1 generated=2026-03-04T05:06:07Z state=complete
==== Live URLs ====
https://a.acme.io/x
https://b.acme.io/x

==== Broken URLs ====
https://gone.acme.io/x

==== NPM Packages ====
alpha -> https://registry.npmjs.org/alpha [PotentiallyHijackable]
zeta -> https://registry.npmjs.org/zeta [Exists]

==== PYPI Packages ====
flask -> https://pypi.org/pypi/flask/json [Error 503]

==== GEM Packages ====

==== GO Packages ====

`
	assert.Equal(t, want, buf.String())
}

func TestRender_PartialListsUnverified(t *testing.T) {
	b := finding.NewBuilder()
	b.AddURL("https://later.acme.io/x")
	b.AddPackage(finding.EcosystemGem, "rails")

	out := sampleOutcome()
	out.Unverified = b.Build()
	doc := FromOutcome("run-2", generated, out, false)
	assert.True(t, doc.Partial)

	var buf bytes.Buffer
	require.NoError(t, doc.Render(&buf))
	text := buf.String()

	assert.True(t, strings.HasPrefix(text, "# gh-recon run=run-2 generated=2026-03-04T05:06:07Z state=partial\n"))
	assert.Contains(t, text, "==== Unverified URLs ====\nhttps://later.acme.io/x\n")
	assert.Contains(t, text, "==== Unverified GEM Packages ====\nrails\n")
	assert.NotContains(t, text, "Unverified NPM")
	assert.Less(t, strings.Index(text, "==== GO Packages ===="), strings.Index(text, "==== Unverified URLs ===="))
}

func TestCheckpoint(t *testing.T) {
	b := finding.NewBuilder()
	b.AddURL("https://acme.io/docs")
	b.AddPackage(finding.EcosystemNPM, "left-pad")

	known := verifier.Outcome{
		Packages: []verifier.Result{{
			Package:     finding.PackageRef{Ecosystem: finding.EcosystemNPM, Name: "acme-ui"},
			Kind:        verifier.KindPotentiallyHijackable,
			RegistryURL: "https://registry.npmjs.org/acme-ui",
		}},
		Unverified: b.Build(),
	}
	doc := Checkpoint("run-3", generated, known)

	var buf bytes.Buffer
	require.NoError(t, doc.Render(&buf))
	text := buf.String()

	assert.Contains(t, text, "state=partial")
	assert.Contains(t, text, "==== Live URLs ====\n\n")
	assert.Contains(t, text, "==== NPM Packages ====\nacme-ui -> https://registry.npmjs.org/acme-ui [PotentiallyHijackable]\n")
	assert.Contains(t, text, "==== Unverified NPM Packages ====\nleft-pad\n")
	assert.Contains(t, text, "==== Unverified URLs ====\nhttps://acme.io/docs\n")
}

func TestFileReporter_AtomicWriteAndChecksum(t *testing.T) {
	dir := t.TempDir()
	r, err := NewFileReporter(dir, "acme")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "acme_recon.txt"), r.Path())

	require.NoError(t, r.Write(Checkpoint("run", generated, verifier.Outcome{})))
	_, err = os.Stat(r.Path() + ".sha256")
	assert.True(t, os.IsNotExist(err), "partial writes carry no checksum")

	require.NoError(t, r.Write(FromOutcome("run", generated, sampleOutcome(), false)))

	content, err := os.ReadFile(r.Path())
	require.NoError(t, err)
	assert.Contains(t, string(content), "state=complete")

	sum := sha256.Sum256(content)
	companion, err := os.ReadFile(r.Path() + ".sha256")
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(sum[:])+"  acme_recon.txt\n", string(companion))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files left behind")

	require.NoError(t, r.Write(Checkpoint("run", generated, verifier.Outcome{})))
	_, err = os.Stat(r.Path() + ".sha256")
	assert.True(t, os.IsNotExist(err), "stale checksum removed")
}

func TestNewFileReporter_RejectsEscapingName(t *testing.T) {
	_, err := NewFileReporter(t.TempDir(), "../outside")
	assert.Error(t, err)
}
