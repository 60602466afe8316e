package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"probedash/internal/api"
	"probedash/internal/dashboard"
	"probedash/internal/model"
	"probedash/internal/store"
	"probedash/internal/trace"
)

func newResultsCmd(a *app) *cobra.Command {
	q := api.ResultsQuery{}
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Page through recorded probe attempts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if q.Size <= 0 {
				q.Size = a.cfg.PageSize
			}

			var resp api.ResultsResponse
			if a.remote != "" {
				var err error
				if resp, err = a.client().Results(ctx, q); err != nil {
					return err
				}
			} else {
				filter, err := q.Filter(a.loc)
				if err != nil {
					return err
				}
				snap, err := a.openSnapshot(ctx)
				if err != nil {
					return err
				}
				defer snap.Close()

				page, err := snap.Page(ctx, filter, q.Page, q.Size)
				if err != nil {
					return err
				}
				resp = api.ResultsResponse{
					Rows:  api.NewResultRows(page.Records, a.cfg.ProbeCount),
					Page:  page.Page,
					Size:  page.Size,
					Total: page.Total,
					Pages: page.Pages,
				}
			}

			out := cmd.OutOrStdout()
			printRows(out, resp.Rows)
			fmt.Fprintf(out, "page %d/%d (%d results)\n", resp.Page, max(resp.Pages, 1), resp.Total)
			return nil
		},
	}
	cmd.Flags().IntVar(&q.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&q.Size, "size", 0, "rows per page (default from config)")
	cmd.Flags().StringVar(&q.From, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&q.To, "to", "", "last day, YYYY-MM-DD")
	cmd.Flags().StringVar(&q.Host, "host", "", "only this host")
	return cmd
}

func newLatestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Show the newest attempt of every host",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var resp api.LatestResponse
			if a.remote != "" {
				var err error
				if resp, err = a.client().Latest(ctx); err != nil {
					return err
				}
			} else {
				snap, err := a.openSnapshot(ctx)
				if err != nil {
					return err
				}
				defer snap.Close()

				records, err := snap.Latest(ctx)
				if err != nil {
					return err
				}
				resp.Rows = api.NewResultRows(records, a.cfg.ProbeCount)
				for _, r := range records {
					if r.Timestamp.After(resp.LastUpdate) {
						resp.LastUpdate = r.Timestamp
					}
				}
			}

			out := cmd.OutOrStdout()
			printRows(out, resp.Rows)
			if !resp.LastUpdate.IsZero() {
				fmt.Fprintf(out, "last update %s\n", resp.LastUpdate.Format(model.TimeLayout))
			}
			return nil
		},
	}
}

func newTracesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "traces",
		Short: "Show the newest traceroute of every target",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var runs []model.TraceRun
			if a.remote != "" {
				resp, err := a.client().Traces(ctx)
				if err != nil {
					return err
				}
				runs = resp.Traces
			} else {
				snap, err := a.openSnapshot(ctx)
				if err != nil {
					return err
				}
				defer snap.Close()

				raw, err := snap.LatestTraces(ctx)
				if err != nil {
					return err
				}
				reader := a.openGeo()
				defer reader.Close()

				runs = trace.Enrich(raw, locatorOf(reader), dashboard.PendingLocations...)
			}

			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no traceroute results")
				return nil
			}
			printTraces(cmd.OutOrStdout(), runs)
			return nil
		},
	}
}

func newHostsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "hosts",
		Short: "List probed hosts and configured targets without data",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var hosts []model.Target
			if a.remote != "" {
				resp, err := a.client().Hosts(ctx)
				if err != nil {
					return err
				}
				hosts = resp.Hosts
			} else {
				snap, err := a.openSnapshot(ctx)
				if err != nil {
					return err
				}
				defer snap.Close()

				if hosts, err = snap.Hosts(ctx); err != nil {
					return err
				}
			}

			printHosts(cmd.OutOrStdout(), hosts, a.loadTargets())
			return nil
		},
	}
}

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the snapshot (or the remote server) is readable",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if a.remote != "" {
				resp, err := a.client().Health(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "status=%s snapshot=%s\n", resp.Status, resp.Snapshot)
				return nil
			}

			snap, err := a.openSnapshot(ctx)
			if err != nil {
				return err
			}
			defer snap.Close()

			from, to, ok, err := snap.DateRange(ctx)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(out, "status=ok snapshot=%s (empty)\n", a.cfg.SnapshotPath)
				return nil
			}
			fmt.Fprintf(out, "status=ok snapshot=%s from=%s to=%s\n",
				a.cfg.SnapshotPath, from.Format(model.TimeLayout), to.Format(model.TimeLayout))
			return nil
		},
	}
}

// printHosts lists hosts with data, then configured targets that have none.
func printHosts(w io.Writer, hosts []model.Target, targets *store.Targets) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "HOST\tREGION\tDATA")
	seen := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		seen[h.Host] = struct{}{}
		fmt.Fprintf(tw, "%s\t%s\tyes\n", h.Host, targets.Region(h.Host, h.Region))
	}
	for _, host := range targets.Hosts() {
		if _, ok := seen[host]; ok {
			continue
		}
		seen[host] = struct{}{}
		fmt.Fprintf(tw, "%s\t%s\tno\n", host, targets.Region(host, ""))
	}
	tw.Flush()
}

func printRows(w io.Writer, rows []api.ResultRow) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tHOST\tREGION\tOK\tAVG\tMIN\tMAX\tLOSS\tERROR")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\t%s\t%s\t%.0f%%\t%s\n",
			timeText(r.Timestamp), r.Host, r.Region, r.Succeeded,
			msText(r.AvgLatencyMs), msText(r.MinLatencyMs), msText(r.MaxLatencyMs),
			r.LossRate, r.Error)
	}
	tw.Flush()
}

func timeText(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Format(model.TimeLayout)
}

func msText(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}
