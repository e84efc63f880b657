package main

import (
	"fmt"
	"os"

	"github.com/gophpeek/mlxhub/internal/tui"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive status dashboard",
	Run: func(cmd *cobra.Command, args []string) {
		if err := tui.Run(newClient()); err != nil {
			fmt.Fprintf(os.Stderr, "tui exited with error: %v\n", err)
			os.Exit(1)
		}
	},
}
