package main

import (
	"fmt"
	"os"

	"github.com/gophpeek/mlxhub/internal/config"
	"github.com/spf13/cobra"
)

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate configuration file",
	Long:  `Validate the hub configuration file and report any errors or warnings.`,
	Run:   runCheckConfig,
}

var checkConfigStrict bool

func init() {
	checkConfigCmd.Flags().BoolVar(&checkConfigStrict, "strict", false, "Fail on warnings, not just errors")
}

func runCheckConfig(cmd *cobra.Command, args []string) {
	cfgPath := getConfigPath()

	cfg, err := config.LoadWithEnvExpansion(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration load failed: %v\n", err)
		os.Exit(1)
	}

	result, err := cfg.ValidateComprehensive()
	if err != nil {
		fmt.Print(config.FormatValidationReport(result))
		os.Exit(1)
	}

	if result.TotalIssues() > 0 {
		fmt.Print(config.FormatValidationReport(result))
	}

	fmt.Printf("\nconfiguration summary:\n")
	fmt.Printf("  path: %s\n", cfgPath)
	fmt.Printf("  models: %d\n", len(cfg.Models))
	fmt.Printf("  groups: %d\n", len(cfg.Groups))
	fmt.Printf("  log level: %s\n", cfg.LogLevel)

	if result.TotalIssues() == 0 {
		fmt.Println("\nconfiguration ready for use")
	} else if checkConfigStrict && result.HasWarnings() {
		fmt.Println("\nvalidation failed in strict mode (warnings present)")
		os.Exit(1)
	} else {
		fmt.Println("\nconfiguration is valid but has warnings/suggestions")
	}
}
