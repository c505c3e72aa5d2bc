package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"scribe/internal/api"
	"scribe/internal/config"
	"scribe/internal/language"
	"scribe/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the state and transcript of one job",
		Args:  exactArgsWithUsage(1, "scribe status <job-id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(cmd.Context(), func(_ *config.Config, backend queue.Backend) error {
				resp, found, err := api.NewQueueService(backend).Describe(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					if err := writeJSON(cmd, resp); err != nil {
						return err
					}
				} else {
					printJob(cmd, resp)
				}
				if !found {
					return fmt.Errorf("job %s not found", args[0])
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the job as JSON")
	return cmd
}

func printJob(cmd *cobra.Command, job api.JobResponse) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job ID:   %s\n", job.JobID)
	fmt.Fprintf(out, "Status:   %s\n", statusLabel(out, job.Status))
	if job.Progress != "" {
		fmt.Fprintf(out, "Progress: %s\n", job.Progress)
	}
	if job.Error != "" {
		fmt.Fprintf(out, "Error:    %s\n", job.Error)
	}
	if job.Text == nil {
		return
	}
	if job.Language != "" {
		label := language.DisplayName(job.Language)
		if job.LanguageProbability != nil {
			label += " (" + strconv.FormatFloat(*job.LanguageProbability*100, 'f', 1, 64) + "%)"
		}
		fmt.Fprintf(out, "Language: %s\n", label)
	}
	if job.Duration != nil {
		fmt.Fprintf(out, "Duration: %.1fs\n", *job.Duration)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, *job.Text)
}
