package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scribe/internal/api"
	"scribe/internal/preflight"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var checkEngine bool

	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Check ffmpeg, ffprobe and the Python interpreter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := api.FromDependencies(preflight.CheckSystemDeps(cmd.Context(), cfg))
			if checkEngine {
				engine := preflight.CheckEngine(cmd.Context(), cfg)
				statuses = append(statuses, api.DependencyStatus{
					Name:        engine.Name,
					Command:     cfg.Engine.PythonBinary,
					Description: "Speech recognition model runtime",
					Available:   engine.Passed,
					Detail:      engine.Detail,
				})
			}

			missing := 0
			for _, s := range statuses {
				if !s.Available && !s.Optional {
					missing++
				}
			}

			if jsonOutput {
				if err := writeJSON(cmd, statuses); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(statuses))
				for _, s := range statuses {
					rows = append(rows, []string{s.Name, s.Command, yesNo(s.Available), yesNo(s.Optional), s.Detail})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Dependency", "Command", "Available", "Optional", "Detail"}, rows, nil))
			}
			if missing > 0 {
				return fmt.Errorf("%d required dependency(ies) missing", missing)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	cmd.Flags().BoolVar(&checkEngine, "engine", false, "Also verify faster-whisper imports in the configured interpreter")
	return cmd
}
