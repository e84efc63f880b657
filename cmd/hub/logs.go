package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs <model>",
	Short: "Show recent supervisor log lines for a model",
	Long: `Show recent stdout/stderr lines captured from a model's supervisor process.

Examples:
  hub logs llama-7b
  hub logs llama-7b --tail=500`,
	Args: cobra.ExactArgs(1),
	Run:  runLogs,
}

var logsTail int

func init() {
	logsCmd.Flags().IntVar(&logsTail, "tail", 200, "number of lines to show")
}

func runLogs(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	entries, err := newClient().Logs(ctx, args[0], logsTail)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logs request failed: %v\n", err)
		os.Exit(1)
	}

	for _, e := range entries {
		fmt.Printf("%s [%s] %s\n", e.Timestamp.Format(time.RFC3339), e.Stream, e.Message)
	}
}
