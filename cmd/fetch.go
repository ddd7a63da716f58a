package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/naka-gawa/colorclick/internal/domain"
	"github.com/spf13/cobra"
)

// snapshotOutput is the JSON document printed for a snapshot.
type snapshotOutput struct {
	Dispatched *bool           `json:"dispatched,omitempty"`
	Stats      *domain.Stats   `json:"stats,omitempty"`
	Summary    *domain.Summary `json:"summary,omitempty"`
}

func newSnapshotOutput(stats domain.Stats, ok bool) snapshotOutput {
	if !ok {
		return snapshotOutput{}
	}
	summary := stats.Summarize()
	return snapshotOutput{Stats: &stats, Summary: &summary}
}

func printJSON(v any) {
	// Marshal the results into a pretty-printed JSON string.
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal results to JSON: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(jsonData))
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetches the current game stats once and outputs them as JSON",
	Long:  `Issues a single stats request for the player, waits for it to complete, and prints the snapshot and a summary in JSON format.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		timeout, _ := cmd.Flags().GetDuration("timeout")
		fetcher, _ := mustSetup(ctx, cmd)

		fetcher.AsyncFetch()
		waitCtx, cancel := context.WithTimeout(ctx, timeout)
		err := fetcher.Idle(waitCtx)
		cancel()
		stats, ok := fetcher.MostRecentFetched()
		fetcher.Close()

		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: stats request did not complete: %v\n", err)
			os.Exit(1)
		}
		if !ok {
			fmt.Fprintln(os.Stderr, "Error: no stats received (use --verbose for details).")
			os.Exit(1)
		}
		printJSON(newSnapshotOutput(stats, ok))
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().Duration("timeout", 30*time.Second, "How long to wait for the stats request")
}
