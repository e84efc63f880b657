package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var watchInterval float64

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the control plane and re-render status on an interval",
	Run:   runWatch,
}

func init() {
	watchCmd.Flags().Float64Var(&watchInterval, "interval", 5.0, "Polling interval in seconds")
}

func runWatch(cmd *cobra.Command, args []string) {
	client := newClient()
	interval := time.Duration(watchInterval * float64(time.Second))

	fmt.Println("Watching hub status (Ctrl+C to exit)...")
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		status, err := client.Status(ctx)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "status request failed: %v\n", err)
		} else {
			renderStatus(os.Stdout, status)
			fmt.Println()
		}
		time.Sleep(interval)
	}
}
