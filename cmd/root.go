package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	consts "github.com/khanhnv2901/gh-recon/internal/shared/constants"
)

var cfgFile string
var logger = zap.NewNop().Sugar()
var resultsDir string

var rootCmd = &cobra.Command{
	Use:   "gh-recon",
	Short: "Find hijackable dependencies and dead links across an organisation's repositories",
	Long: `gh-recon scans every repository of a GitHub organisation (or a local folder of
checkouts) for URLs and declared package dependencies, then checks each URL for
liveness and each package name against its public registry. Package names that
no registry knows are reported as potentially hijackable.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; GH_TOKEN usually lives there
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}

		// init config
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			viper.AddConfigPath("$HOME")
			viper.SetConfigName(".gh-recon")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("GHRECON")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viper.AutomaticEnv()

		if err := viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if cfgFile != "" || !errors.As(err, &notFound) {
				return fmt.Errorf("read config: %w", err)
			}
		}

		resultsDir = viper.GetString("results_dir")
		if resultsDir == "" {
			resultsDir = "./results"
		}
		if err := os.MkdirAll(resultsDir, consts.DefaultDirPerm); err != nil {
			return fmt.Errorf("failed to create results directory: %s", err.Error())
		}
		if abs, err := filepath.Abs(resultsDir); err == nil {
			resultsDir = abs
		}

		silent := false
		if f := cmd.Flags().Lookup("silent"); f != nil {
			silent = f.Value.String() == "true"
		}
		l, err := newLogger(silent)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = l.Sugar()

		applyConfigDefaults(cmd)

		logger.Debugw("configuration loaded", "config", viper.ConfigFileUsed(), "results_dir", resultsDir)
		return nil
	},
}

func newLogger(silent bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if silent {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, colorError(err.Error()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gh-recon.yaml)")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(versionCmd)
}
