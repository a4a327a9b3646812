package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"gleaner/internal/queue"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show full details for one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q", args[0])
			}
			return ctx.withStore(func(store *queue.Store) error {
				job, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if asJSON {
					encoder := json.NewEncoder(cmd.OutOrStdout())
					encoder.SetIndent("", "  ")
					return encoder.Encode(job)
				}
				printJob(cmd, job)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the job as JSON")
	return cmd
}

func printJob(cmd *cobra.Command, job *queue.Job) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job %d\n", job.ID)
	fmt.Fprintf(out, "  URL:        %s\n", job.TargetURL)
	fmt.Fprintf(out, "  Platform:   %s\n", job.Platform)
	fmt.Fprintf(out, "  Status:     %s\n", job.Status)
	fmt.Fprintf(out, "  Attempts:   %d/%d\n", job.Attempts, job.MaxAttempts)
	fmt.Fprintf(out, "  Created:    %s\n", job.CreatedAt.Format(time.RFC3339))
	if job.NotBefore != nil {
		fmt.Fprintf(out, "  Not before: %s\n", job.NotBefore.Format(time.RFC3339))
	}
	if job.StartedAt != nil {
		fmt.Fprintf(out, "  Started:    %s\n", job.StartedAt.Format(time.RFC3339))
	}
	if job.CompletedAt != nil {
		fmt.Fprintf(out, "  Completed:  %s\n", job.CompletedAt.Format(time.RFC3339))
	}
	if job.LastError != nil {
		fmt.Fprintf(out, "  Last error: %s: %s\n", job.LastError.Code, job.LastError.Message)
	}
	if job.Result != nil {
		if job.Result.Media != nil {
			fmt.Fprintf(out, "  Media:      %s %s\n", job.Result.Media.Type, job.Result.Media.URL)
			if job.Result.Media.LocalPath != "" {
				fmt.Fprintf(out, "  Local copy: %s\n", job.Result.Media.LocalPath)
			}
		}
		if job.Result.Content.Text != "" {
			fmt.Fprintf(out, "  Text:       %s\n", truncate(job.Result.Content.Text, 100))
		}
		if job.Result.Metadata.Author != "" {
			fmt.Fprintf(out, "  Author:     %s\n", job.Result.Metadata.Author)
		}
	}
}
