package cmd

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/erasmus-without-paper/ewp-registry-service-sub003/internal/reportstore"
)

func newReportsCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Inspect stored reports",
		Long: `Lists, shows and deletes the reports kept in the reports directory
(reports.dir in the config, or --dir).`,
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "reports directory, overrides the config")

	openStore := func() (*reportstore.Store, error) {
		if dir == "" {
			cfg, err := loadSettings(false)
			if err != nil {
				return nil, err
			}
			dir = cfg.Reports.Dir
		}
		if dir == "" {
			return nil, fmt.Errorf("no reports directory configured, set reports.dir or pass --dir")
		}
		return reportstore.New(dir), nil
	}

	var api string
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored reports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			entries, err := store.List(api)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No reports found")
				return nil
			}
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{"ID", "API", "VERSION", "URL", "STARTED", "WORST"})
			for _, e := range entries {
				worst := e.Worst.String()
				if e.Aborted {
					worst += " (aborted)"
				}
				t.AppendRow(table.Row{e.ID, e.API, e.Version, e.URL, e.StartedAt.Local().Format(time.DateTime), worst})
			}
			t.Render()
			return nil
		},
	}
	list.Flags().StringVar(&api, "api", "", "only list reports of this API")

	var output outputFlags
	show := &cobra.Command{
		Use:   "show ID",
		Short: "Print a stored report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter, err := output.formatter()
			if err != nil {
				return err
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			rep, err := store.Load(args[0])
			if err != nil {
				return err
			}
			return formatter.FormatReport(cmd.OutOrStdout(), rep)
		},
	}
	output.register(show)

	del := &cobra.Command{
		Use:   "delete ID...",
		Short: "Delete stored reports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			for _, id := range args {
				if err := store.Delete(id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			}
			return nil
		},
	}

	cmd.AddCommand(list, show, del)
	return cmd
}
