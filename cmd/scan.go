package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/gh-recon/internal/application/recon"
	"github.com/khanhnv2901/gh-recon/internal/extract"
	"github.com/khanhnv2901/gh-recon/internal/filter"
	"github.com/khanhnv2901/gh-recon/internal/metrics"
	"github.com/khanhnv2901/gh-recon/internal/report"
	"github.com/khanhnv2901/gh-recon/internal/scanner"
	apperrors "github.com/khanhnv2901/gh-recon/internal/shared/errors"
	"github.com/khanhnv2901/gh-recon/internal/source"
	"github.com/khanhnv2901/gh-recon/internal/verifier"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan an organisation or a folder of repositories",
	Long: `Scan lists the repositories of a GitHub organisation (or the subdirectories of
a local folder), extracts URLs and declared dependencies from each, and verifies
them. Package names missing from their public registry are flagged as
potentially hijackable.

Press Ctrl+C to stop early: everything gathered so far is written as a partial
report.`,
	Example: `  gh-recon scan --org acme
  gh-recon scan --folder ./checkouts --instant
  GH_TOKEN=... gh-recon scan -o acme --workers 50 --metrics-addr :9108`,
	RunE: runScan,
}

func init() {
	f := scanCmd.Flags()
	f.StringVarP(&cliConfig.Scan.Org, "org", "o", "", "GitHub organisation to scan")
	f.StringVarP(&cliConfig.Scan.Folder, "folder", "f", "", "Local folder whose subdirectories are repositories")
	f.StringVar(&cliConfig.Scan.RunName, "name", "", "Report name (default: organisation or folder name)")
	f.StringVar(&cliConfig.Scan.CloneDir, "clone-dir", "", "Directory for repository checkouts (default: user cache dir)")
	f.StringVar(&cliConfig.Scan.RulesFile, "rules", "", "YAML file extending the built-in filter rules")
	f.Int64Var(&cliConfig.Scan.MaxFileBytes, "max-file-bytes", cliConfig.Scan.MaxFileBytes, "Skip files larger than this many bytes")
	f.BoolVar(&cliConfig.Scan.IncludeDevDependencies, "include-dev", false, "Also read devDependencies from package.json")
	f.BoolVarP(&cliConfig.Scan.Silent, "silent", "s", false, "Only print the final summary")
	f.BoolVar(&cliConfig.Scan.InstantAlerts, "instant", false, "Verify new packages after each repository and alert immediately")
	f.BoolVar(&cliConfig.Scan.Checkpoint, "checkpoint", cliConfig.Scan.Checkpoint, "Rewrite the report after every repository")
	f.BoolVar(&cliConfig.Scan.ProgressEnabled, "progress", false, "Show a progress line during verification")
	f.BoolVar(&cliConfig.Scan.TelemetryEnabled, "telemetry", false, "Append run metrics to <results_dir>/telemetry.jsonl")
	f.StringVar(&cliConfig.Scan.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9108)")

	f.IntVar(&cliConfig.Verify.Workers, "workers", cliConfig.Verify.Workers, "Concurrent verification checks")
	f.IntVar(&cliConfig.Verify.PackageTimeoutSecs, "package-timeout", cliConfig.Verify.PackageTimeoutSecs, "Registry lookup timeout in seconds")
	f.IntVar(&cliConfig.Verify.URLTimeoutSecs, "url-timeout", cliConfig.Verify.URLTimeoutSecs, "URL liveness timeout in seconds")
	f.IntVar(&cliConfig.Verify.RateLimit, "rate-limit", cliConfig.Verify.RateLimit, "Global checks per second (0 = unlimited)")
	f.IntVar(&cliConfig.Verify.HostRate, "host-rate", cliConfig.Verify.HostRate, "Checks per second against one domain (0 = unlimited)")

	scanCmd.MarkFlagsMutuallyExclusive("org", "folder")
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := validateTarget(cliConfig.Scan); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(cmd.ErrOrStderr(), "\n%s Received %s, finalizing partial results...\n", colorWarn("!"), sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return executeScan(ctx, cmd.OutOrStdout(), cliConfig, resultsDir)
}

func validateTarget(cfg ScanRuntimeConfig) error {
	if (cfg.Org == "") == (cfg.Folder == "") {
		return &TargetSelectionError{Org: cfg.Org, Folder: cfg.Folder}
	}
	return nil
}

// runName picks the report name: --name, else the organisation, else the
// folder's base name.
func runName(cfg ScanRuntimeConfig) (string, error) {
	name := cfg.RunName
	switch {
	case name != "":
	case cfg.Org != "":
		name = cfg.Org
	default:
		abs, err := filepath.Abs(cfg.Folder)
		if err != nil {
			return "", fmt.Errorf("resolve folder: %w", err)
		}
		name = filepath.Base(abs)
	}
	if err := validateRunName(name); err != nil {
		return "", err
	}
	return name, nil
}

func buildFilter(cfg ScanRuntimeConfig) (*filter.Filter, error) {
	rules := filter.DefaultRules()
	if cfg.RulesFile != "" {
		var err error
		if rules, err = filter.LoadRules(cfg.RulesFile); err != nil {
			return nil, err
		}
	}
	return filter.New(rules)
}

func buildSource(cfg ScanRuntimeConfig) (source.Source, error) {
	if cfg.Folder != "" {
		return source.NewFolderSource(cfg.Folder)
	}
	cloneDir := cfg.CloneDir
	if cloneDir == "" {
		var err error
		if cloneDir, err = defaultCloneDir(cfg.Org); err != nil {
			return nil, err
		}
	}
	return source.NewGitHubSource(source.GitHubConfig{
		Org:      cfg.Org,
		Token:    os.Getenv("GH_TOKEN"),
		BaseURL:  cfg.GitHubAPI,
		CloneDir: cloneDir,
		Logger:   logger,
	})
}

func executeScan(ctx context.Context, out io.Writer, cfg *CLIConfig, resultsDir string) error {
	scanCfg := cfg.Scan
	started := time.Now()

	name, err := runName(scanCfg)
	if err != nil {
		return err
	}
	flt, err := buildFilter(scanCfg)
	if err != nil {
		return fmt.Errorf("load filter rules: %w", err)
	}
	registries, err := verifier.DefaultRegistries().WithOverrides(cfg.Verify.Registries)
	if err != nil {
		return fmt.Errorf("registries: %w", err)
	}
	src, err := buildSource(scanCfg)
	if err != nil {
		return err
	}
	reporter, err := report.NewFileReporter(resultsDir, name)
	if err != nil {
		return err
	}

	m := metrics.New()
	if scanCfg.MetricsAddr != "" {
		go func() {
			if err := m.Serve(ctx, scanCfg.MetricsAddr); err != nil {
				logger.Warnw("metrics server stopped", "addr", scanCfg.MetricsAddr, "error", err)
			}
		}()
	}

	var progress atomic.Pointer[progressPrinter]
	v := verifier.New(verifier.Config{
		Workers:        cfg.Verify.Workers,
		PackageTimeout: time.Duration(cfg.Verify.PackageTimeoutSecs) * time.Second,
		URLTimeout:     time.Duration(cfg.Verify.URLTimeoutSecs) * time.Second,
		Rate:           float64(cfg.Verify.RateLimit),
		HostRate:       float64(cfg.Verify.HostRate),
		Registries:     registries,
		Filter:         flt,
		Logger:         logger,
		Metrics:        m,
		OnResult: func(r verifier.Result) {
			if p := progress.Load(); p != nil {
				p.Increment(r.OK(), r.Duration)
			}
		},
	})

	sc := scanner.New(scanner.Config{
		Filter: flt,
		Extractor: extract.New(extract.Options{
			Extensions:             scanCfg.Extensions,
			IncludeDevDependencies: scanCfg.IncludeDevDependencies,
		}),
		Logger:       logger,
		Metrics:      m,
		SkipDirs:     scanCfg.SkipDirs,
		MaxFileBytes: scanCfg.MaxFileBytes,
	})

	pipeline, err := recon.NewPipeline(recon.Config{
		Source:        src,
		Scanner:       sc,
		Verifier:      v,
		Reporter:      reporter,
		Logger:        logger,
		Metrics:       m,
		Checkpoint:    scanCfg.Checkpoint,
		InstantAlerts: scanCfg.InstantAlerts,
		Hooks: recon.Hooks{
			RepositoryStarted: func(i, total int, repo source.Repository) {
				if !scanCfg.Silent {
					fmt.Fprintf(out, "[%d/%d] Scanning: %s\n", i, total, repo.Name)
				}
			},
			Hijackable: func(r verifier.Result) {
				fmt.Fprintf(out, "%s %s -> %s\n", colorAlert("[!] POTENTIALLY HIJACKABLE:"), r.Package, r.RegistryURL)
			},
			VerificationStarted: func(pending int) {
				if !scanCfg.Silent {
					fmt.Fprintf(out, "%s verifying %d subject(s)\n", colorInfo("->"), pending)
				}
				if scanCfg.ProgressEnabled && pending > 0 {
					p := newProgressPrinter(out, pending, "verify")
					p.Start()
					progress.Store(p)
				}
			},
		},
	})
	if err != nil {
		return err
	}

	summary, runErr := pipeline.Run(ctx)
	if p := progress.Load(); p != nil {
		p.Stop()
	}

	interrupted := errors.Is(runErr, apperrors.ErrInterrupted)
	if runErr != nil && !interrupted {
		return runErr
	}

	printSummary(out, summary)

	if scanCfg.TelemetryEnabled {
		target := scanCfg.Org
		if target == "" {
			target = scanCfg.Folder
		}
		if err := recordTelemetry(resultsDir, "scan", target, summary, time.Since(started)); err != nil {
			logger.Warnw("telemetry write failed", "error", err)
		}
	}

	if interrupted {
		if summary.Partial {
			fmt.Fprintf(out, "\n%s Run cancelled. Partial results written to %s\n", colorWarn("!"), summary.ReportPath)
		} else {
			fmt.Fprintf(out, "\n%s Run cancelled before any repository was listed.\n", colorWarn("!"))
		}
		return runErr
	}
	return nil
}

func printSummary(out io.Writer, s recon.Summary) {
	fmt.Fprintf(out, "\n%s\n", colorInfo("==== FINAL SUMMARY ===="))
	fmt.Fprintf(out, "Repos scanned: %d/%d\n", s.Merged, s.Repositories)
	if s.Skipped > 0 {
		fmt.Fprintf(out, "Repos skipped: %s\n", colorWarn(s.Skipped))
	}
	fmt.Fprintf(out, "Total URLs found: %d (live %d, broken %d)\n", s.URLs, s.Live, s.Dead)
	fmt.Fprintf(out, "Total packages found: %d\n", s.Packages)

	count := fmt.Sprint(len(s.Hijackable))
	if len(s.Hijackable) > 0 {
		count = colorAlert(count)
	} else {
		count = colorSuccess(count)
	}
	fmt.Fprintf(out, "Total Hijackable Packages: %s\n", count)
	for _, r := range s.Hijackable {
		fmt.Fprintf(out, "  %s -> %s [%s]\n", r.Package, r.RegistryURL, formatKindWithColor(r))
	}
	fmt.Fprintf(out, "Output saved to: %s\n", s.ReportPath)
}
