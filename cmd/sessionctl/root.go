package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/AgentOS/sessiond/internal/client"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/report"
)

const defaultServer = "http://localhost:8000"

// cli holds the persistent flags shared by every command.
type cli struct {
	server  string
	timeout time.Duration
	json    bool
	out     io.Writer
}

func (c *cli) client() *client.Client {
	opts := client.DefaultOptions()
	opts.Timeout = c.timeout
	return client.New(c.server, opts)
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	server := os.Getenv("SESSIOND_URL")
	if server == "" {
		server = defaultServer
	}

	root := &cobra.Command{
		Use:           "sessionctl",
		Short:         "Manage sessiond desktop sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&c.server, "server", "s", server, "sessiond base URL")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 30*time.Second, "per-request timeout")
	root.PersistentFlags().BoolVar(&c.json, "json", false, "print raw JSON")

	root.AddCommand(
		c.listCmd(),
		c.deleteCmd(),
		c.inspectCmd(),
		c.vfsCmd(),
		c.treeCmd(),
		c.processesCmd(),
		c.processCmd(),
		c.exportCmd(),
		c.importCmd(),
		c.captureCmd(),
		c.restoreCmd(),
		c.windowsCmd(),
		c.convertCmd(),
		c.watchCmd(),
	)
	return root
}

func (c *cli) printJSON(v interface{}) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, string(data))
	return err
}

func (c *cli) table(header string, rows func(w io.Writer)) error {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	rows(tw)
	return tw.Flush()
}

// printReport writes one line per pass with its status counts.
func (c *cli) printReport(rep *report.Report) {
	if rep == nil {
		return
	}
	passes := []struct {
		name string
		list []report.Outcome
	}{
		{"vfs", rep.VFS},
		{"processes", rep.Processes},
		{"settings", rep.Settings},
	}
	for _, p := range passes {
		tally := report.Tally(p.list)
		statuses := make([]string, 0, len(tally))
		for s := range tally {
			statuses = append(statuses, string(s))
		}
		sort.Strings(statuses)

		fmt.Fprintf(c.out, "%-10s %d", p.name, len(p.list))
		for _, s := range statuses {
			fmt.Fprintf(c.out, "  %s=%d", s, tally[report.Status(s)])
		}
		fmt.Fprintln(c.out)

		for _, o := range p.list {
			if o.Status == report.StatusFailed || o.Status == report.StatusLossy {
				fmt.Fprintf(c.out, "  %s %s: %s\n", o.Status, o.Path, o.Reason)
			}
		}
	}
}
