package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:   "scribe",
		Short: "Asynchronous audio transcription service",
		Long: `scribe accepts audio uploads, queues them, and transcribes them with
faster-whisper in a pool of workers. Run "scribe daemon" to serve the HTTP
gateway; the other commands work against the queue directly.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(
		newDaemonCommand(ctx),
		newSubmitCommand(ctx),
		newStatusCommand(ctx),
		newQueueCommand(ctx),
		newDepsCommand(ctx),
		newConfigCommand(ctx),
	)
	return rootCmd
}
