package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"probedash/internal/api"
	"probedash/internal/chart"
	"probedash/internal/metrics"
	"probedash/internal/store"
)

func newChartsCmd(a *app) *cobra.Command {
	opts := &reportOptions{}
	var outDir string
	cmd := &cobra.Command{
		Use:   "charts",
		Short: "Render every dashboard chart as PNG",
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir == "" {
				return errors.New("--out is required")
			}
			render, err := a.chartRenderer(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}

			for _, name := range chart.Names() {
				path := filepath.Join(outDir, name+".png")
				err := writeFile(path, func(f *os.File) error { return render(f, name) })
				if errors.Is(err, chart.ErrNoData) {
					_ = os.Remove(path)
					a.logger.WithField("chart", name).Info("no data, chart skipped")
					continue
				}
				if err != nil {
					return fmt.Errorf("render %s: %w", name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "output directory")
	cmd.Flags().StringVar(&opts.host, "host", "", "restrict the daily series to one host")
	cmd.Flags().StringVar(&opts.at, "at", "", "evaluate the windows as of this time (default now)")
	cmd.Flags().StringVar(&opts.csvPath, "csv", "", "aggregate a CSV export instead of the snapshot")
	return cmd
}

// chartRenderer draws charts locally, or fetches them from the server when
// --remote is set. A chart with nothing to draw yields chart.ErrNoData.
func (a *app) chartRenderer(ctx context.Context, opts *reportOptions) (func(w io.Writer, name string) error, error) {
	if a.remote != "" {
		if opts.at != "" || opts.csvPath != "" {
			return nil, errors.New("--at and --csv cannot be combined with --remote")
		}
		client := a.client()
		return func(w io.Writer, name string) error {
			err := client.Chart(ctx, name, opts.host, w)
			if api.IsNotFound(err) {
				return chart.ErrNoData
			}
			return err
		}, nil
	}

	d, err := a.loadDashboard(ctx, opts)
	if err != nil {
		return nil, err
	}
	return func(w io.Writer, name string) error { return chart.Render(w, name, d) }, nil
}

func newExportCmd(a *app) *cobra.Command {
	export := &cobra.Command{
		Use:   "export",
		Short: "Export recorded probe attempts",
	}

	var (
		out        string
		from       string
		to         string
		host       string
		appendMode bool
	)
	csvCmd := &cobra.Command{
		Use:   "csv",
		Short: "Write probe attempts to a CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return errors.New("--out is required")
			}
			if err := a.localOnly("export csv"); err != nil {
				return err
			}
			ctx := cmd.Context()
			q := api.ResultsQuery{From: from, To: to, Host: host}
			filter, err := q.Filter(a.loc)
			if err != nil {
				return err
			}

			snap, err := a.openSnapshot(ctx)
			if err != nil {
				return err
			}
			defer snap.Close()

			records, err := snap.Probes(ctx, filter)
			if err != nil {
				return err
			}
			if appendMode {
				err = metrics.AppendCSV(out, records)
			} else {
				err = writeFile(out, func(f *os.File) error { return metrics.WriteCSV(f, records) })
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d rows to %s\n", len(records), out)
			return nil
		},
	}
	csvCmd.Flags().StringVar(&out, "out", "", "output file")
	csvCmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	csvCmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD")
	csvCmd.Flags().StringVar(&host, "host", "", "only this host")
	csvCmd.Flags().BoolVar(&appendMode, "append", false, "append to an existing export")

	export.AddCommand(csvCmd)
	return export
}

func newTargetsCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "targets",
		Short: "Merge the hosts seen in the snapshot into the targets registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return errors.New("--out is required")
			}
			if err := a.localOnly("targets"); err != nil {
				return err
			}
			ctx := cmd.Context()

			targets, err := store.LoadTargets(a.cfg.TargetsPath)
			if err != nil {
				return err
			}
			snap, err := a.openSnapshot(ctx)
			if err != nil {
				return err
			}
			defer snap.Close()

			seen, err := snap.Hosts(ctx)
			if err != nil {
				return err
			}
			targets.Merge(seen)
			if err := store.SaveTargets(out, targets); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d targets to %s\n", len(targets.Targets), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output YAML file")
	return cmd
}

// localOnly rejects --remote for commands that need the snapshot file.
func (a *app) localOnly(command string) error {
	if a.remote != "" {
		return fmt.Errorf("%s reads the snapshot directly and cannot be combined with --remote", command)
	}
	return nil
}

func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
