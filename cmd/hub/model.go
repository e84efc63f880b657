package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// modelActionTimeout is generous enough to cover a cold model start plus
// its health-check grace period (spec §6.4 tunables).
const modelActionTimeout = 5 * time.Minute

var startCmd = &cobra.Command{
	Use:   "start <model>",
	Short: "Start a model",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runModelAction(args[0], "start", newClient().StartModel)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop <model>",
	Short: "Stop a model",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runModelAction(args[0], "stop", newClient().StopModel)
	},
}

var loadCmd = &cobra.Command{
	Use:   "load <model>",
	Short: "Load a just-in-time model",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runModelAction(args[0], "load", newClient().LoadModel)
	},
}

var unloadCmd = &cobra.Command{
	Use:   "unload <model>",
	Short: "Unload a just-in-time model",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runModelAction(args[0], "unload", newClient().UnloadModel)
	},
}

var stopAllCmd = &cobra.Command{
	Use:   "stop-all",
	Short: "Stop every model in the catalog",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), modelActionTimeout)
		defer cancel()

		if err := newClient().StopAllModels(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "stop-all failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("all models stopped")
	},
}

func runModelAction(name, action string, fn func(context.Context, string) error) {
	ctx, cancel := context.WithTimeout(context.Background(), modelActionTimeout)
	defer cancel()

	if err := fn(ctx, name); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s failed: %v\n", action, name, err)
		os.Exit(1)
	}
	fmt.Printf("%s: %s\n", action, name)
}
