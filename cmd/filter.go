package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/gh-recon/internal/domain/finding"
	"github.com/khanhnv2901/gh-recon/internal/filter"
)

var filterRulesFile string

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Check candidates against the validity filters",
	Long:  "Run URLs or package names through the same filters the scanner applies, without any network access.",
}

var filterURLCmd = &cobra.Command{
	Use:   "url <url>...",
	Short: "Report whether each URL is admissible",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := buildFilter(ScanRuntimeConfig{RulesFile: filterRulesFile})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, raw := range args {
			ok := f.AdmissibleURL(raw)
			shown := raw
			if ok {
				if normalized, err := filter.NormalizeURL(raw); err == nil {
					shown = normalized
				}
			}
			printVerdict(out, ok, shown)
		}
		return nil
	},
}

var filterPackageCmd = &cobra.Command{
	Use:   "package <name>...",
	Short: "Report whether each package name is admissible for an ecosystem",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("ecosystem")
		eco, err := finding.ParseEcosystem(raw)
		if err != nil {
			return err
		}
		f, err := buildFilter(ScanRuntimeConfig{RulesFile: filterRulesFile})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, name := range args {
			printVerdict(out, f.AdmissiblePackageName(eco, name), finding.PackageRef{Ecosystem: eco, Name: name}.String())
		}
		return nil
	},
}

func printVerdict(out io.Writer, ok bool, subject string) {
	if ok {
		fmt.Fprintf(out, "%s %s\n", colorSuccess("admissible"), subject)
		return
	}
	fmt.Fprintf(out, "%s   %s\n", colorError("rejected"), subject)
}

func init() {
	filterCmd.PersistentFlags().StringVar(&filterRulesFile, "rules", "", "YAML file extending the built-in filter rules")
	filterPackageCmd.Flags().StringP("ecosystem", "e", "npm", "Ecosystem: npm, pypi, gem or go")

	filterCmd.AddCommand(filterURLCmd)
	filterCmd.AddCommand(filterPackageCmd)
}
