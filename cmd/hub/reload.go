package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reconcile the running catalog against the config file on disk",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := newClient().Reload(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("reload complete")
	},
}

var shutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Request a graceful shutdown of the running hub daemon",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := newClient().Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "shutdown request failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("shutdown requested")
	},
}
