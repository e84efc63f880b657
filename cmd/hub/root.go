package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

var (
	cfgFile string
	apiAddr string
	apiAuth string
)

var rootCmd = &cobra.Command{
	Use:   "hub",
	Short: "Local model-server hub daemon",
	Long: `hub manages a fixed catalog of OpenAI-compatible inference server
subprocesses: it health-gates startup, enforces per-group capacity limits,
reconciles against reloaded configuration, and auto-unloads idle
just-in-time models.

Examples:
  hub serve                     # start the daemon
  hub status                    # query running state
  hub reload                    # reconcile against the config file on disk
  hub start qwen-7b             # start one model
  hub stop-all                  # stop every model`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		serveCmd.Run(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "http://127.0.0.1:8080", "Hub control plane base URL, used by all commands except serve")
	rootCmd.PersistentFlags().StringVar(&apiAuth, "auth", "", "Bearer token for the control plane (defaults to HUB_API_AUTH env var)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(checkConfigCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(reloadCmd)
	rootCmd.AddCommand(shutdownCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(unloadCmd)
	rootCmd.AddCommand(stopAllCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(watchCmd)
}

// getConfigPath determines the configuration file path with priority order:
// explicit flag, environment variable, then a short list of conventional
// locations (teacher's cmd/phpeek-pm/check_config.go getConfigPath, adapted
// to the Hub's own env var and default paths).
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if envPath := os.Getenv("HUB_CONFIG"); envPath != "" {
		return envPath
	}

	defaultPaths := []string{
		os.ExpandEnv("$HOME/.hub/config.yaml"),
		"/etc/hub/config.yaml",
		"hub.yaml",
	}
	for _, path := range defaultPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return "hub.yaml"
}

func resolveAuth() string {
	if apiAuth != "" {
		return apiAuth
	}
	return os.Getenv("HUB_API_AUTH")
}
