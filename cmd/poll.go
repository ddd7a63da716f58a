package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/naka-gawa/colorclick/internal/domain"
	"github.com/naka-gawa/colorclick/internal/usecase"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// minPrintTick keeps the printer ticker valid for very short intervals.
const minPrintTick = time.Millisecond

type pollOptions struct {
	Interval time.Duration
	Count    int
	Click    bool
}

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Periodically fetches game stats and prints each new snapshot",
	Long: `Fetches stats on a fixed interval until interrupted (or --count rounds have run)
and prints every snapshot that differs from the previous one. With --click each
round sends a click burst before fetching.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		var opts pollOptions
		opts.Interval, _ = cmd.Flags().GetDuration("interval")
		opts.Count, _ = cmd.Flags().GetInt("count")
		opts.Click, _ = cmd.Flags().GetBool("click")
		if opts.Interval <= 0 {
			fmt.Fprintln(os.Stderr, "Error: --interval must be positive.")
			os.Exit(1)
		}

		fetcher, logger := mustSetup(ctx, cmd)
		err := runPoll(ctx, fetcher, opts, func(stats domain.Stats) {
			printJSON(newSnapshotOutput(stats, true))
		})
		if err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "Polling stopped: %v\n", err)
			os.Exit(1)
		}
		logger.Println("Polling finished.")
	},
}

// runPoll runs the fetch rounds and the printer together. The fetcher is
// closed before runPoll returns, so pending reports are flushed on every path.
func runPoll(ctx context.Context, fetcher *usecase.StatsFetcher, opts pollOptions, emit func(domain.Stats)) error {
	defer fetcher.Close()

	finished := make(chan struct{})
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		defer close(finished)
		return runRounds(egCtx, fetcher, opts)
	})

	eg.Go(func() error {
		return printChanges(egCtx, fetcher, printTick(opts.Interval), finished, emit)
	})

	return eg.Wait()
}

func printTick(interval time.Duration) time.Duration {
	if tick := interval / 2; tick >= minPrintTick {
		return tick
	}
	return minPrintTick
}

// runRounds triggers one fetch per tick. A count of zero means no limit.
func runRounds(ctx context.Context, fetcher *usecase.StatsFetcher, opts pollOptions) error {
	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for round := 0; opts.Count == 0 || round < opts.Count; round++ {
		if opts.Click {
			fetcher.AsyncTryClickAndFetch()
		} else {
			fetcher.AsyncFetch()
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return fetcher.Idle(ctx)
}

// printChanges emits the latest snapshot whenever it changes.
func printChanges(ctx context.Context, fetcher *usecase.StatsFetcher, tick time.Duration, finished <-chan struct{}, emit func(domain.Stats)) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	var last *domain.Stats
	emitChanged := func() {
		stats, ok := fetcher.MostRecentFetched()
		if !ok || (last != nil && *last == stats) {
			return
		}
		last = &stats
		emit(stats)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-finished:
			emitChanged()
			return nil
		case <-ticker.C:
			emitChanged()
		}
	}
}

func init() {
	rootCmd.AddCommand(pollCmd)
	pollCmd.Flags().Duration("interval", 2*time.Second, "Time between stats requests")
	pollCmd.Flags().Int("count", 0, "Number of rounds to run (0 means until interrupted)")
	pollCmd.Flags().Bool("click", false, "Send a click burst every round")
}
