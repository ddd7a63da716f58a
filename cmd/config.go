package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/naka-gawa/colorclick/internal/gateway"
	"github.com/naka-gawa/colorclick/internal/leaderboard"
	"github.com/naka-gawa/colorclick/internal/usecase"
	"github.com/spf13/cobra"
)

// config holds everything a command needs to build a StatsFetcher.
type config struct {
	Server           string
	Player           gateway.Player
	LeaderboardURL   string
	LeaderboardToken string
	Verbose          bool
}

// loadConfig reads flags and the environment. Variables from a .env file in
// the working directory are applied first, without overriding the real environment.
func loadConfig(cmd *cobra.Command) (config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	flags := cmd.Flags()
	verbose, _ := flags.GetBool("verbose")
	server, _ := flags.GetString("server")
	name, _ := flags.GetString("name")
	client, _ := flags.GetString("client")
	machine, _ := flags.GetString("machine")

	if server == "" {
		server = os.Getenv("COLORCLICK_SERVER")
	}
	if server == "" {
		server = DefaultServer
	}
	if machine == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "unknown"
		}
		machine = host
	}
	if name == "" {
		return config{}, fmt.Errorf("player name must not be empty")
	}

	return config{
		Server:           server,
		Player:           gateway.Player{Name: name, Client: client, Machine: machine},
		LeaderboardURL:   os.Getenv("LEADERBOARD_URL"),
		LeaderboardToken: os.Getenv("LEADERBOARD_TOKEN"),
		Verbose:          verbose,
	}, nil
}

func newLogger(verbose bool) *log.Logger {
	logger := log.New(io.Discard, "", log.LstdFlags) // Default: discard all logs.
	if verbose {
		logger.SetOutput(os.Stderr) // If verbose, log to standard error.
	}
	return logger
}

// newFetcher wires the gateway, reporter and fetcher together.
func newFetcher(ctx context.Context, cfg config, logger *log.Logger) (*usecase.StatsFetcher, error) {
	api, err := gateway.NewServerGateway(cfg.Server, cfg.Player, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create game server gateway: %w", err)
	}
	reporter, err := leaderboard.NewHTTPReporter(cfg.LeaderboardURL, cfg.LeaderboardToken, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create leaderboard reporter: %w", err)
	}
	return usecase.NewStatsFetcher(ctx, api, reporter, logger), nil
}

// mustSetup loads the configuration and builds a fetcher, exiting on failure.
func mustSetup(ctx context.Context, cmd *cobra.Command) (*usecase.StatsFetcher, *log.Logger) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.Verbose)
	fetcher, err := newFetcher(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return fetcher, logger
}
