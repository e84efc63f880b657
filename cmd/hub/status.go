package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/gophpeek/mlxhub/internal/hub"
	"github.com/gophpeek/mlxhub/internal/hubclient"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current state of every model in the catalog",
	Run:   runStatus,
}

func newClient() *hubclient.Client {
	return hubclient.New(apiAddr, resolveAuth(), "")
}

func runStatus(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status, err := newClient().Status(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "status request failed: %v\n", err)
		os.Exit(1)
	}

	renderStatus(os.Stdout, status)
}

// renderStatus writes the tabular models/groups view shared by "hub status"
// and "hub watch".
func renderStatus(out io.Writer, status *hub.Status) {
	w := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATUS\tPID\tGROUP\tUPTIME\tLAST ERROR")
	for _, m := range status.Models {
		uptime := ""
		if m.UptimeSeconds > 0 {
			uptime = time.Duration(m.UptimeSeconds * float64(time.Second)).Truncate(time.Second).String()
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n", m.Name, m.Status, m.PID, m.Group, uptime, m.LastError)
	}
	w.Flush()

	if len(status.Groups) > 0 {
		fmt.Fprintln(out)
		gw := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
		fmt.Fprintln(gw, "GROUP\tRUNNING\tTOTAL\tMAX_LOADED")
		for _, g := range status.Groups {
			maxLoaded := "-"
			if g.MaxLoaded != nil {
				maxLoaded = fmt.Sprintf("%d", *g.MaxLoaded)
			}
			fmt.Fprintf(gw, "%s\t%d\t%d\t%s\n", g.Name, g.Running, g.Total, maxLoaded)
		}
		gw.Flush()
	}
}
