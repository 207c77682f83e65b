package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/khanhnv2901/gh-recon/internal/domain/finding"
	"github.com/khanhnv2901/gh-recon/internal/extract"
	"github.com/khanhnv2901/gh-recon/internal/metrics"
	apperrors "github.com/khanhnv2901/gh-recon/internal/shared/errors"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func newScanner(t *testing.T, cfg Config) *Scanner {
	cfg.Logger = zaptest.NewLogger(t).Sugar()
	return New(cfg)
}

func TestScan_CollectsAdmissibleSubjects(t *testing.T) {
	root := writeTree(t, map[string]string{
		"README.md":        "Docs: [guide](https://docs.acme.io/guide) and https://www.Example.com/x and https://github.com/acme/tool/pull/3",
		"package.json":     `{"dependencies": {"left-pad": "1.3.0", "json": "1.0"}}`,
		"requirements.txt": "flask==2.0.1\n",
		"web/index.html":   `<a href="https://WWW.acme.io/about#team">about</a>`,
		"logo.png":         "https://ignored.acme.io/binary",
	})

	f, report, err := newScanner(t, Config{}).Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://acme.io/about", "https://docs.acme.io/guide"}, f.URLs())
	assert.Equal(t, []string{"left-pad"}, f.Packages(finding.EcosystemNPM))
	assert.Equal(t, []string{"flask"}, f.Packages(finding.EcosystemPyPI))
	assert.Equal(t, 4, report.FilesScanned)
	assert.Empty(t, report.Errors)
}

func TestScan_SkipsVendoredAndGitDirs(t *testing.T) {
	root := writeTree(t, map[string]string{
		".git/config":                   "url = https://git.acme.io/internal/repo",
		"node_modules/lib/README.md":    "https://vendored.acme.io/docs",
		"node_modules/lib/package.json": `{"dependencies": {"deep-dep": "1"}}`,
		"src/app.js":                    "fetch('https://api.acme.io/v1/items')",
	})

	f, _, err := newScanner(t, Config{}).Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://api.acme.io/v1/items"}, f.URLs())
	assert.Equal(t, 0, f.PackageCount())
}

func TestScan_SkipsOversizedFiles(t *testing.T) {
	root := writeTree(t, map[string]string{
		"big.txt":   "https://big.acme.io/file " + strings.Repeat("x", 200),
		"small.txt": "https://small.acme.io/file",
	})

	f, report, err := newScanner(t, Config{MaxFileBytes: 100}).Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://small.acme.io/file"}, f.URLs())
	assert.Equal(t, 1, report.FilesScanned)
}

func TestScan_BrokenManifestDoesNotAffectSiblings(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a/package.json":     `{"dependencies": {`,
		"b/package.json":     `{"dependencies": {"left-pad": "1"}}`,
		"b/requirements.txt": "flask==2.0.1\n",
	})
	m := metrics.New()

	f, report, err := newScanner(t, Config{Metrics: m}).Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"left-pad"}, f.Packages(finding.EcosystemNPM))
	assert.Equal(t, []string{"flask"}, f.Packages(finding.EcosystemPyPI))
	require.Len(t, report.Errors, 1)

	var merr *extract.ManifestError
	assert.True(t, errors.As(report.Errors[0], &merr))
	assert.True(t, errors.Is(report.Errors[0], apperrors.ErrManifestParse))
}

func TestScan_UnreadableFileIsSkipped(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for this user")
	}
	root := writeTree(t, map[string]string{
		"locked.md": "https://locked.acme.io/page",
		"open.md":   "https://open.acme.io/page",
	})
	require.NoError(t, os.Chmod(filepath.Join(root, "locked.md"), 0o000))

	f, report, err := newScanner(t, Config{}).Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://open.acme.io/page"}, f.URLs())
	require.Len(t, report.Errors, 1)
	assert.True(t, errors.Is(report.Errors[0], apperrors.ErrFileRead))
}

func TestScan_CancelledContext(t *testing.T) {
	root := writeTree(t, map[string]string{"a.md": "https://a.acme.io/x"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f, _, err := newScanner(t, Config{}).Scan(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, f.IsEmpty())
}

func TestScan_MissingRoot(t *testing.T) {
	_, _, err := newScanner(t, Config{}).Scan(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrFileRead))
}

func TestScan_DeterministicAcrossRuns(t *testing.T) {
	root := writeTree(t, map[string]string{
		"one.md":  "https://one.acme.io/a https://two.acme.io/b",
		"two.md":  "https://two.acme.io/b https://three.acme.io/c",
		"Gemfile": "gem 'rails'\ngem \"pg\"\n",
		"go.mod":  "module x\n\nrequire example.org/lib v1.0.0\n",
	})
	s := newScanner(t, Config{})

	first, _, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	second, _, err := s.Scan(context.Background(), root)
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.Equal(t, []string{"pg", "rails"}, first.Packages(finding.EcosystemGem))
	assert.Empty(t, first.Packages(finding.EcosystemGo), "module paths contain '/' and fail the default name pattern")
}
