package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"scribe/internal/api"
	"scribe/internal/config"
	"scribe/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and maintain the job queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueStatsCommand(ctx))
	queueCmd.AddCommand(newQueuePruneCommand(ctx))
	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List live jobs in submission order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatusFlags(statusFlags)
			if err != nil {
				return err
			}
			return ctx.withQueue(cmd.Context(), func(_ *config.Config, backend queue.Backend) error {
				jobs, err := api.NewQueueService(backend).List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if jsonOutput {
					if jobs == nil {
						jobs = []api.JobSummary{}
					}
					return writeJSON(cmd, api.JobListResponse{Jobs: jobs})
				}
				out := cmd.OutOrStdout()
				if len(jobs) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					detail := job.Progress
					if job.Error != "" {
						detail = job.Error
					}
					rows = append(rows, []string{
						job.JobID,
						statusLabel(out, job.Status),
						job.Worker,
						job.SubmittedAt,
						detail,
					})
				}
				fmt.Fprintln(out, renderTable([]string{"Job ID", "Status", "Worker", "Submitted", "Detail"}, rows, nil))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (queued, processing, completed, failed)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print jobs as JSON")
	return cmd
}

func newQueueStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Count live jobs per status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(cmd.Context(), func(_ *config.Config, backend queue.Backend) error {
				stats, err := api.NewQueueService(backend).Stats(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, stats)
				}
				rows := make([][]string, 0, len(stats)+1)
				total := 0
				for _, status := range queue.AllStatuses() {
					n := stats[string(status)]
					total += n
					rows = append(rows, []string{string(status), strconv.Itoa(n)})
				}
				rows = append(rows, []string{"total", strconv.Itoa(total)})
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Status", "Jobs"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print counts as JSON")
	return cmd
}

func newQueuePruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete job records past their retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(cmd.Context(), func(cfg *config.Config, backend queue.Backend) error {
				n, err := api.NewQueueService(backend).Prune(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d expired job(s) (retention %s)\n", n, cfg.RetentionWindow())
				return nil
			})
		},
	}
}

func parseStatusFlags(values []string) ([]queue.Status, error) {
	var statuses []queue.Status
	for _, value := range values {
		if strings.TrimSpace(value) == "" {
			continue
		}
		status, ok := queue.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("invalid status %q (want queued, processing, completed or failed)", value)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
