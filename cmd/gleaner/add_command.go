package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gleaner/internal/fetcher"
	"gleaner/internal/queue"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var platformFlag string
	var maxAttempts int

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Enqueue a content fetch job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			platform, ok := fetcher.ParsePlatform(platformFlag)
			if !ok {
				return fmt.Errorf("unknown platform %q (known: %v)", platformFlag, fetcher.AllPlatforms())
			}
			return ctx.withStore(func(store *queue.Store) error {
				job, err := store.Enqueue(cmd.Context(), args[0], platform, maxAttempts)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Enqueued job %d (%s, max %d attempts)\n",
					job.ID, job.Platform, job.MaxAttempts)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&platformFlag, "platform", "p", string(fetcher.PlatformGeneric), "Source platform of the URL")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "Retry budget for this job (0 uses the configured default)")
	return cmd
}
