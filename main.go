package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	c := &cli{}
	err := newRootCmd(c).ExecuteContext(ctx)
	c.close(context.Background())
	if err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. The shell builds a fresh tree per line
// so flag values never leak between invocations.
func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:          "casestack",
		Short:        "CaseStack API client - fetch and update carriers, customers and shipments",
		Version:      version,
		SilenceUsage: true,
	}

	root.AddCommand(
		c.getCmd(),
		c.customFieldsCmd(),
		c.shipmentCmd(),
		statusesCmd(),
		c.sandboxCmd(),
		c.shellCmd(),
	)
	return root
}
