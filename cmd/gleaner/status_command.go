package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gleaner/internal/api"
	"gleaner/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			// Ask the running daemon first; fall back to reading the queue
			// database directly when it is not up.
			if status, err := fetchDaemonStatus(cmd.Context(), cfg.Paths.APIBind, cfg.Paths.APIToken); err == nil {
				printDaemonStatus(cmd, status)
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Daemon: not running")
			return ctx.withStore(func(store *queue.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				printQueueCounts(cmd, map[string]int{
					"pending":    stats.Pending,
					"processing": stats.Processing,
					"retry":      stats.Retry,
					"completed":  stats.Completed,
					"failed":     stats.Failed,
				})
				return nil
			})
		},
	}
}

func fetchDaemonStatus(ctx context.Context, bind, token string) (*api.DaemonStatus, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, fmt.Errorf("api bind address not configured")
	}

	reqCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, "http://"+bind+"/api/status", nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("daemon status returned %d", resp.StatusCode)
	}

	var status api.DaemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}
	return &status, nil
}

func printDaemonStatus(cmd *cobra.Command, status *api.DaemonStatus) {
	out := cmd.OutOrStdout()
	if status.Running {
		fmt.Fprintf(out, "Daemon: running (pid %d, %d workers)\n", status.PID, status.Workers)
	} else {
		fmt.Fprintln(out, "Daemon: stopped")
	}
	if status.LastError != "" {
		fmt.Fprintf(out, "Last error: %s\n", status.LastError)
	}
	printQueueCounts(cmd, status.QueueStats)
}

func printQueueCounts(cmd *cobra.Command, counts map[string]int) {
	rows := make([][]string, 0, len(counts))
	for _, status := range queue.AllStatuses() {
		if count, ok := counts[string(status)]; ok {
			rows = append(rows, []string{string(status), strconv.Itoa(count)})
		}
	}
	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
		return
	}
	table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
	fmt.Fprintln(cmd.OutOrStdout(), table)
}
