package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/khanhnv2901/gh-recon/internal/shared/errors"
)

func TestValidateTarget(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ScanRuntimeConfig
		wantErr bool
	}{
		{name: "org", cfg: ScanRuntimeConfig{Org: "acme"}},
		{name: "folder", cfg: ScanRuntimeConfig{Folder: "./repos"}},
		{name: "neither", cfg: ScanRuntimeConfig{}, wantErr: true},
		{name: "both", cfg: ScanRuntimeConfig{Org: "acme", Folder: "./repos"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTarget(tt.cfg)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var selErr *TargetSelectionError
			assert.ErrorAs(t, err, &selErr)
		})
	}
}

func TestRunName(t *testing.T) {
	folder := filepath.Join(t.TempDir(), "checkouts")
	tests := []struct {
		name    string
		cfg     ScanRuntimeConfig
		want    string
		wantErr bool
	}{
		{name: "explicit", cfg: ScanRuntimeConfig{RunName: "weekly", Org: "acme"}, want: "weekly"},
		{name: "org", cfg: ScanRuntimeConfig{Org: "acme"}, want: "acme"},
		{name: "folder base", cfg: ScanRuntimeConfig{Folder: folder}, want: "checkouts"},
		{name: "traversal", cfg: ScanRuntimeConfig{RunName: "../escape"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := runName(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildFilterWithRulesFile(t *testing.T) {
	rules := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte("denied_domains:\n  - internal.acme.io\n"), 0o644))

	f, err := buildFilter(ScanRuntimeConfig{RulesFile: rules})
	require.NoError(t, err)
	assert.False(t, f.AdmissibleURL("https://internal.acme.io/wiki/page"), "custom denied domain")
	assert.False(t, f.AdmissibleURL("https://example.com/docs"), "built-in denylist still applies")

	_, err = buildFilter(ScanRuntimeConfig{RulesFile: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err, "missing rules file")
}

type scanFixture struct {
	root       string
	resultsDir string
	srv        *httptest.Server
	cfg        *CLIConfig
}

// newScanFixture builds two repositories and a registry that only knows
// left-pad. The rules file replaces the built-in denylist so the loopback
// test server's URLs survive filtering.
func newScanFixture(t *testing.T) *scanFixture {
	t.Helper()
	original := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = original })

	fx := &scanFixture{root: t.TempDir(), resultsDir: t.TempDir()}
	fx.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/npm/left-pad", "/site/docs":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(fx.srv.Close)

	files := map[string]string{
		"alpha/package.json": `{"dependencies": {"left-pad": "1.3.0", "acme-internal-ui": "0.1.0"}}`,
		"beta/README.md":     "Docs: " + fx.srv.URL + "/site/docs and " + fx.srv.URL + "/site/gone",
	}
	for name, content := range files {
		path := filepath.Join(fx.root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	rules := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rules, []byte("replace_defaults: true\ndenied_domains:\n  - example.com\n"), 0o644))

	fx.cfg = newCLIConfig()
	fx.cfg.Scan.Folder = fx.root
	fx.cfg.Scan.RunName = "acme"
	fx.cfg.Scan.RulesFile = rules
	fx.cfg.Verify.Workers = 4
	fx.cfg.Verify.HostRate = 0
	fx.cfg.Verify.Registries = map[string]string{"npm": fx.srv.URL + "/npm/{name}"}
	return fx
}

func TestExecuteScan_FolderRun(t *testing.T) {
	fx := newScanFixture(t)
	fx.cfg.Scan.InstantAlerts = true
	fx.cfg.Scan.TelemetryEnabled = true

	var out bytes.Buffer
	require.NoError(t, executeScan(context.Background(), &out, fx.cfg, fx.resultsDir))

	reportPath := filepath.Join(fx.resultsDir, "acme_recon.txt")
	text := out.String()
	for _, want := range []string{
		"[1/2] Scanning: alpha",
		"[2/2] Scanning: beta",
		"[!] POTENTIALLY HIJACKABLE: npm:acme-internal-ui -> " + fx.srv.URL + "/npm/acme-internal-ui",
		"==== FINAL SUMMARY ====",
		"Repos scanned: 2/2",
		"Total URLs found: 2 (live 1, broken 1)",
		"Total packages found: 2",
		"Total Hijackable Packages: 1",
		"Output saved to: " + reportPath,
	} {
		assert.Contains(t, text, want)
	}

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "acme-internal-ui -> "+fx.srv.URL+"/npm/acme-internal-ui [PotentiallyHijackable]")
	assert.FileExists(t, reportPath+".sha256")
	assert.FileExists(t, filepath.Join(fx.resultsDir, "telemetry.jsonl"))
}

func TestExecuteScan_ProgressLine(t *testing.T) {
	fx := newScanFixture(t)
	fx.cfg.Scan.ProgressEnabled = true

	var out bytes.Buffer
	require.NoError(t, executeScan(context.Background(), &out, fx.cfg, fx.resultsDir))
	assert.Contains(t, out.String(), "[verify] 4/4 verified (100%) ok=2 failed=2")
}

func TestExecuteScan_SilentSuppressesPerRepoLines(t *testing.T) {
	fx := newScanFixture(t)
	fx.cfg.Scan.Silent = true

	var out bytes.Buffer
	require.NoError(t, executeScan(context.Background(), &out, fx.cfg, fx.resultsDir))
	assert.NotContains(t, out.String(), "Scanning:")
	assert.Contains(t, out.String(), "FINAL SUMMARY", "silent run still prints the summary")
}

func TestExecuteScan_CancelledRunWritesPartialReport(t *testing.T) {
	fx := newScanFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := executeScan(ctx, &out, fx.cfg, fx.resultsDir)
	require.ErrorIs(t, err, apperrors.ErrInterrupted)
	assert.Contains(t, out.String(), "Run cancelled. Partial results written to")

	data, err := os.ReadFile(filepath.Join(fx.resultsDir, "acme_recon.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "state=partial")
}

func TestExecuteScan_BadRegistryOverride(t *testing.T) {
	fx := newScanFixture(t)
	fx.cfg.Verify.Registries = map[string]string{"npm": "https://npm.internal/missing-placeholder"}

	err := executeScan(context.Background(), &bytes.Buffer{}, fx.cfg, fx.resultsDir)
	assert.Error(t, err, "template without placeholder")
}
