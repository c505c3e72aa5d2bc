package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"scribe/internal/api"
	"scribe/internal/config"
	"scribe/internal/queue"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Copy an audio file into the upload directory and queue it",
		Args:  exactArgsWithUsage(1, "scribe submit <file>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			return ctx.withQueue(cmd.Context(), func(cfg *config.Config, backend queue.Backend) error {
				ingestor := api.NewIngestor(cfg, backend, cliLogger(cfg))
				job, err := ingestor.SubmitFile(cmd.Context(), source)
				if err != nil {
					return err
				}
				resp := api.SubmitResponse{JobID: job.Handle, Status: string(job.Status)}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Queued %s\n", filepath.Base(source))
				fmt.Fprintf(out, "Job ID: %s\n", resp.JobID)
				fmt.Fprintf(out, "Check progress with `scribe status %s`\n", resp.JobID)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the job acknowledgement as JSON")
	return cmd
}
