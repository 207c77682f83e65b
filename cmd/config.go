package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	consts "github.com/khanhnv2901/gh-recon/internal/shared/constants"
)

const (
	defaultPackageTimeoutSecs = int(consts.DefaultPackageTimeout / time.Second)
	defaultURLTimeoutSecs     = int(consts.DefaultURLTimeout / time.Second)
)

// CLIConfig captures runtime configuration shared across commands.
type CLIConfig struct {
	Scan   ScanRuntimeConfig
	Verify VerifyRuntimeConfig
}

// ScanRuntimeConfig consolidates flag-driven settings for the scan command.
type ScanRuntimeConfig struct {
	Org                    string
	Folder                 string
	RunName                string
	CloneDir               string
	GitHubAPI              string
	RulesFile              string
	Extensions             []string
	SkipDirs               []string
	MaxFileBytes           int64
	IncludeDevDependencies bool
	Silent                 bool
	InstantAlerts          bool
	Checkpoint             bool
	ProgressEnabled        bool
	TelemetryEnabled       bool
	MetricsAddr            string
}

// VerifyRuntimeConfig groups verifier options.
type VerifyRuntimeConfig struct {
	Workers            int
	PackageTimeoutSecs int
	URLTimeoutSecs     int
	RateLimit          int
	HostRate           int
	// Registries overrides registry URL templates, keyed by ecosystem.
	Registries map[string]string
}

var cliConfig = newCLIConfig()

func newCLIConfig() *CLIConfig {
	return &CLIConfig{
		Scan: ScanRuntimeConfig{
			MaxFileBytes: consts.DefaultMaxFileBytes,
			Checkpoint:   true,
		},
		Verify: VerifyRuntimeConfig{
			Workers:            consts.DefaultWorkers,
			PackageTimeoutSecs: defaultPackageTimeoutSecs,
			URLTimeoutSecs:     defaultURLTimeoutSecs,
			RateLimit:          0,
			HostRate:           consts.DefaultHostRate,
		},
	}
}

// applyConfigDefaults merges config file values into the runtime config when
// the user did not explicitly set the corresponding flag.
func applyConfigDefaults(cmd *cobra.Command) {
	flags := scanCmd.Flags()

	if viper.IsSet("verify.workers") {
		applyIntDefault(flags, "workers", viper.GetInt("verify.workers"), func(v int) {
			cliConfig.Verify.Workers = v
		})
	}
	if viper.IsSet("verify.package_timeout_secs") {
		applyIntDefault(flags, "package-timeout", viper.GetInt("verify.package_timeout_secs"), func(v int) {
			cliConfig.Verify.PackageTimeoutSecs = v
		})
	}
	if viper.IsSet("verify.url_timeout_secs") {
		applyIntDefault(flags, "url-timeout", viper.GetInt("verify.url_timeout_secs"), func(v int) {
			cliConfig.Verify.URLTimeoutSecs = v
		})
	}
	if viper.IsSet("verify.rate_limit") {
		applyIntDefault(flags, "rate-limit", viper.GetInt("verify.rate_limit"), func(v int) {
			cliConfig.Verify.RateLimit = v
		})
	}
	if viper.IsSet("verify.host_rate") {
		applyIntDefault(flags, "host-rate", viper.GetInt("verify.host_rate"), func(v int) {
			cliConfig.Verify.HostRate = v
		})
	}
	if viper.IsSet("registries") {
		cliConfig.Verify.Registries = viper.GetStringMapString("registries")
	}

	if viper.IsSet("scan.clone_dir") {
		applyStringDefault(flags, "clone-dir", viper.GetString("scan.clone_dir"), func(v string) {
			cliConfig.Scan.CloneDir = v
		})
	}
	if viper.IsSet("scan.rules_file") {
		applyStringDefault(flags, "rules", viper.GetString("scan.rules_file"), func(v string) {
			cliConfig.Scan.RulesFile = v
		})
	}
	if viper.IsSet("scan.extensions") {
		cliConfig.Scan.Extensions = viper.GetStringSlice("scan.extensions")
	}
	if viper.IsSet("scan.skip_dirs") {
		cliConfig.Scan.SkipDirs = viper.GetStringSlice("scan.skip_dirs")
	}
	if viper.IsSet("scan.max_file_bytes") {
		cliConfig.Scan.MaxFileBytes = viper.GetInt64("scan.max_file_bytes")
	}
	if viper.IsSet("scan.include_dev_dependencies") {
		applyBoolDefault(flags, "include-dev", viper.GetBool("scan.include_dev_dependencies"), func(v bool) {
			cliConfig.Scan.IncludeDevDependencies = v
		})
	}
	if viper.IsSet("scan.checkpoint") {
		applyBoolDefault(flags, "checkpoint", viper.GetBool("scan.checkpoint"), func(v bool) {
			cliConfig.Scan.Checkpoint = v
		})
	}
	if viper.IsSet("scan.progress") {
		applyBoolDefault(flags, "progress", viper.GetBool("scan.progress"), func(v bool) {
			cliConfig.Scan.ProgressEnabled = v
		})
	}
	if viper.IsSet("defaults.telemetry") {
		applyBoolDefault(flags, "telemetry", viper.GetBool("defaults.telemetry"), func(v bool) {
			cliConfig.Scan.TelemetryEnabled = v
		})
	}
	if viper.IsSet("github.api_url") {
		cliConfig.Scan.GitHubAPI = viper.GetString("github.api_url")
	}
}

func applyIntDefault(flags *pflag.FlagSet, name string, value int, setter func(int)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyBoolDefault(flags *pflag.FlagSet, name string, value bool, setter func(bool)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyStringDefault(flags *pflag.FlagSet, name, value string, setter func(string)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}
