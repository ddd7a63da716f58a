package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/naka-gawa/colorclick/internal/usecase"
	"github.com/spf13/cobra"
)

var clickCmd = &cobra.Command{
	Use:   "click",
	Short: fmt.Sprintf("Sends %d clicks for the player's team and fetches the result", usecase.ClickBurst),
	Long: `Fires a burst of click requests at the server without waiting for them, then
issues one tracked click request and prints whether it was dispatched together
with the resulting snapshot in JSON format.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		timeout, _ := cmd.Flags().GetDuration("timeout")
		fetcher, _ := mustSetup(ctx, cmd)

		dispatched := fetcher.AsyncTryClickAndFetch()
		waitCtx, cancel := context.WithTimeout(ctx, timeout)
		err := fetcher.Idle(waitCtx)
		cancel()
		stats, ok := fetcher.MostRecentFetched()
		fetcher.Close()

		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: click request did not complete: %v\n", err)
			os.Exit(1)
		}
		out := newSnapshotOutput(stats, ok)
		out.Dispatched = &dispatched
		printJSON(out)
	},
}

func init() {
	rootCmd.AddCommand(clickCmd)
	clickCmd.Flags().Duration("timeout", 30*time.Second, "How long to wait for the tracked click request")
}
