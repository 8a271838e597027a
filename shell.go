package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

const shellPrompt = "casestack> "

func (c *cli) shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Run commands interactively against a single client session",
		Long: `Starts an interactive prompt. Every line is run as a casestack command
sharing one client, so credentials and request metrics persist across lines.

Builtins:
  stats   print request counters recorded so far
  exit    leave the shell`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.load(cmd.Context())
			if err != nil {
				return err
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          shellPrompt,
				HistoryFile:     historyFile(),
				AutoComplete:    shellCompleter(),
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return fmt.Errorf("starting shell: %w", err)
			}
			defer rl.Close()

			a.logger.Debug("Shell started")
			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					if line == "" {
						return nil
					}
					continue
				}
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}

				quit, err := c.execLine(cmd.Context(), line, rl.Stdout(), rl.Stderr())
				if err != nil {
					fmt.Fprintln(rl.Stderr(), "Error:", err)
				}
				if quit {
					return nil
				}
				if cmd.Context().Err() != nil {
					return nil
				}
			}
		},
	}
}

// execLine runs one shell line. It reports quit when the line asks to leave.
func (c *cli) execLine(ctx context.Context, line string, out, errOut io.Writer) (bool, error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return false, nil
	}

	switch args[0] {
	case "exit", "quit":
		return true, nil
	case "stats":
		return false, c.printStats(ctx, out)
	case "shell":
		return false, errors.New("already in a shell")
	}

	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)
	root.SilenceErrors = true
	return false, root.ExecuteContext(ctx)
}

func (c *cli) printStats(ctx context.Context, out io.Writer) error {
	a, err := c.load(ctx)
	if err != nil {
		return err
	}

	families, err := a.registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}

	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}

			switch {
			case m.GetCounter() != nil:
				lines = append(lines, fmt.Sprintf("%s %g", name, m.GetCounter().GetValue()))
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				lines = append(lines, fmt.Sprintf("%s count=%d sum=%.3fs", name, h.GetSampleCount(), h.GetSampleSum()))
			}
		}
	}

	if len(lines) == 0 {
		_, err := fmt.Fprintln(out, "no requests yet")
		return err
	}
	sort.Strings(lines)
	for _, l := range lines {
		if _, err := fmt.Fprintln(out, l); err != nil {
			return err
		}
	}
	return nil
}

func shellCompleter() *readline.PrefixCompleter {
	kinds := func() []readline.PrefixCompleterInterface {
		return []readline.PrefixCompleterInterface{
			readline.PcItem("carrier"),
			readline.PcItem("customer"),
			readline.PcItem("shipment"),
			readline.PcItem("address"),
		}
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("get", kinds()...),
		readline.PcItem("customfields",
			readline.PcItem("carrier"),
			readline.PcItem("customer"),
		),
		readline.PcItem("shipment",
			readline.PcItem("status"),
			readline.PcItem("lock"),
		),
		readline.PcItem("statuses"),
		readline.PcItem("stats"),
		readline.PcItem("exit"),
	)
}

func historyFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "casestack_history")
}
