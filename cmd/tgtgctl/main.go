// Command tgtgctl drives a running tgtgd watcher over its REST API and
// maintains the repository's scanning workflow document.
package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// rootFlags are shared by every subcommand that talks to the daemon.
type rootFlags struct {
	addr    string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:          "tgtgctl",
		Short:        "Control a running tgtgd watcher",
		Long:         "tgtgctl talks to the REST API of a running tgtgd instance:\nlogin, tracked listings, manual refreshes, and watcher status.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.addr, "addr", defaultAddr(), "address of the tgtgd API")
	root.PersistentFlags().DurationVar(&flags.timeout, "timeout", 10*time.Second, "timeout per API request")

	root.AddCommand(
		newStatusCmd(flags),
		newLoginCmd(flags),
		newLogoutCmd(flags),
		newItemsCmd(flags),
		newTrackCmd(flags),
		newUntrackCmd(flags),
		newMuteCmd(flags),
		newUnmuteCmd(flags),
		newRefreshCmd(flags),
		newPanelCmd(flags),
		newWorkflowCmd(),
	)

	return root
}

// defaultAddr resolves the daemon address from the environment, rewriting a
// bind-all address to loopback since the CLI connects from the same host.
func defaultAddr() string {
	raw := os.Getenv("TGTG_LISTEN_ADDR")
	if raw == "" {
		return "127.0.0.1:8080"
	}

	host, port, err := net.SplitHostPort(raw)
	if err != nil {
		return "127.0.0.1:8080"
	}
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}

	return net.JoinHostPort(host, port)
}
