// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// DefaultServer is the public demo game server.
const DefaultServer = "http://kotlin-demo.kotlinconf.com:8080"

var rootCmd = &cobra.Command{
	Use:   "colorclick",
	Short: "A CLI client for the color click demo game server.",
	Long: `colorclick polls the color click demo server for game stats, sends
clicks for the local player's team, and reports the player's contribution
to a leaderboard service when LEADERBOARD_URL and LEADERBOARD_TOKEN are set.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	addGlobalFlags(rootCmd)
}

// addGlobalFlags registers the flags shared by every command on c.
func addGlobalFlags(c *cobra.Command) {
	// Add a persistent flag for verbose output, available to all commands.
	c.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	c.PersistentFlags().StringP("server", "s", "", "Game server base URL (default $COLORCLICK_SERVER or "+DefaultServer+")")
	c.PersistentFlags().StringP("name", "n", "go_user", "Player name sent with stats requests")
	c.PersistentFlags().String("client", "go", "Client platform sent with stats requests")
	c.PersistentFlags().String("machine", "", "Device string sent with stats requests (default: hostname)")
}
