package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/AgentOS/sessiond/internal/api/ws"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/client"
	"github.com/GriffinCanCode/AgentOS/sessiond/internal/domain/manifest"
)

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sessions, err := c.client().List(cmd.Context())
			if err != nil {
				return err
			}
			if c.json {
				return c.printJSON(sessions)
			}
			return c.table("ID\tCAPTURED\tWINDOWS\tFILES", func(w io.Writer) {
				for _, s := range sessions {
					fmt.Fprintf(w, "%s\t%s\t%v\t%v\n", s.ID, humanize.Time(s.Timestamp),
						metaOr(s.Metadata, "windowCount"), metaOr(s.Metadata, "fileCount"))
				}
			})
		},
	}
}

func metaOr(meta map[string]interface{}, key string) interface{} {
	if v, ok := meta[key]; ok {
		return v
	}
	return "-"
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.client().Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(c.out, "deleted", args[0])
			return nil
		},
	}
}

func (c *cli) inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Summarize the active session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			o, err := c.client().Inspect(cmd.Context())
			if err != nil {
				return err
			}
			if c.json {
				return c.printJSON(o)
			}
			fmt.Fprintf(c.out, "version:   %s\n", o.Version)
			fmt.Fprintf(c.out, "captured:  %s (%s)\n", o.Timestamp.Format("2006-01-02 15:04:05"), humanize.Time(o.Timestamp))
			fmt.Fprintf(c.out, "files:     %d\n", o.FileCount)
			fmt.Fprintf(c.out, "processes: %d\n", o.ProcessCount)
			for i, p := range o.Processes {
				fmt.Fprintf(c.out, "  [%d] %s %q\n", i, p.Type, p.WindowState.Title)
			}
			return nil
		},
	}
}

func (c *cli) vfsCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "vfs",
		Short: "List files in the active session, or show one with --path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api := c.client()
			if path != "" {
				node, err := api.VFSNode(cmd.Context(), path)
				if err != nil {
					return err
				}
				if c.json {
					return c.printJSON(node)
				}
				if node.Content != nil {
					_, err = io.WriteString(c.out, *node.Content)
					return err
				}
				fmt.Fprintf(c.out, "%s (%s, %s)\n", node.Path, node.Type(), humanize.IBytes(uint64(node.Size)))
				return nil
			}

			entries, err := api.VFS(cmd.Context())
			if err != nil {
				return err
			}
			if c.json {
				return c.printJSON(entries)
			}
			return c.table("PATH\tTYPE\tSIZE\tMIME", func(w io.Writer) {
				for _, e := range entries {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Path, e.Type, humanize.IBytes(uint64(e.Size)), e.Mime)
				}
			})
		},
	}
	cmd.Flags().StringVarP(&path, "path", "p", "", "show a single node with its content")
	return cmd
}

func (c *cli) treeCmd() *cobra.Command {
	var root string
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the active session's files as a nested tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tree, err := c.client().VFSTree(cmd.Context(), root)
			if err != nil {
				return err
			}
			return c.printJSON(tree)
		},
	}
	cmd.Flags().StringVarP(&root, "root", "r", "", "strip this prefix before nesting")
	return cmd
}

func (c *cli) processesCmd() *cobra.Command {
	var appType string
	cmd := &cobra.Command{
		Use:   "processes",
		Short: "List processes in the active session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api := c.client()
			if appType != "" {
				procs, err := api.ProcessesOfType(cmd.Context(), appType)
				if err != nil {
					return err
				}
				return c.printJSON(procs)
			}

			procs, err := api.Processes(cmd.Context())
			if err != nil {
				return err
			}
			if c.json {
				return c.printJSON(procs)
			}
			return c.table("#\tTYPE\tTITLE\tSTATE", func(w io.Writer) {
				for i, p := range procs {
					state := "-"
					if p.HasAppState {
						state = "yes"
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i, p.Type, p.Title, state)
				}
			})
		},
	}
	cmd.Flags().StringVarP(&appType, "type", "t", "", "only processes of this app type, with full state")
	return cmd
}

func (c *cli) processCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "process <index>",
		Short: "Show one process with its window and app state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("index must be an integer: %q", args[0])
			}
			p, err := c.client().Process(cmd.Context(), index)
			if err != nil {
				return err
			}
			return c.printJSON(p)
		},
	}
}

func (c *cli) exportCmd() *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Download a stored session and make it active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := manifest.ParseFormat(format)
			if err != nil {
				return err
			}
			data, err := c.client().ExportRaw(cmd.Context(), args[0], f)
			if err != nil {
				return err
			}
			return c.write(out, data)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "json, yaml or toml")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to file instead of stdout")
	return cmd
}

func (c *cli) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Upload a JSON session manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := readManifest(args[0])
			if err != nil {
				return err
			}
			id, err := c.client().Import(cmd.Context(), m)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, id)
			return nil
		},
	}
}

func (c *cli) captureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "capture",
		Short: "Snapshot the live desktop into a new session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := c.client().Capture(cmd.Context())
			if err != nil {
				return err
			}
			if c.json {
				return c.printJSON(res)
			}
			fmt.Fprintln(c.out, "captured", res.SessionID)
			c.printReport(res.Report)
			return nil
		},
	}
}

func (c *cli) restoreCmd() *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "Recreate a stored session on the live desktop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.client().Restore(cmd.Context(), args[0], replace)
			if err != nil {
				var apiErr *client.APIError
				if errors.As(err, &apiErr) && apiErr.Report != nil {
					c.printReport(apiErr.Report)
				}
				return err
			}
			if c.json {
				return c.printJSON(res)
			}
			fmt.Fprintln(c.out, "restored", res.SessionID)
			c.printReport(res.Report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "close open windows first")
	return cmd
}

func (c *cli) windowsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "windows",
		Short: "List live windows on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			views, stats, err := c.client().Windows(cmd.Context())
			if err != nil {
				return err
			}
			if c.json {
				return c.printJSON(map[string]interface{}{"windows": views, "stats": stats})
			}
			return c.table("ID\tTYPE\tTITLE\tZ\tFLAGS", func(w io.Writer) {
				for _, v := range views {
					flags := ""
					if v.Focused {
						flags += "F"
					}
					if v.Maximized {
						flags += "M"
					}
					if v.Minimized {
						flags += "m"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", v.ID, v.AppType, v.Title, v.ZIndex, flags)
				}
			})
		},
	}
}

func (c *cli) convertCmd() *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Validate a JSON manifest and render it in another format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := manifest.ParseFormat(format)
			if err != nil {
				return err
			}
			m, err := readManifest(args[0])
			if err != nil {
				return err
			}
			data, err := manifest.EncodeAs(m, f)
			if err != nil {
				return err
			}
			return c.write(out, data)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "json, yaml or toml")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to file instead of stdout")
	return cmd
}

func (c *cli) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream session events until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := c.client().Watch(cmd.Context(), func(ev ws.Event) error {
				if c.json {
					return c.printJSON(ev)
				}
				fmt.Fprintf(c.out, "%s %-18s %s\n", ev.Timestamp.Format("15:04:05"), ev.Type, ev.SessionID)
				return nil
			})
			if errors.Is(err, cmd.Context().Err()) {
				return nil
			}
			return err
		},
	}
}

func readManifest(path string) (*manifest.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := manifest.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func (c *cli) write(path string, data []byte) error {
	if path == "" {
		_, err := c.out.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "wrote %s (%s)\n", path, humanize.IBytes(uint64(len(data))))
	return nil
}
