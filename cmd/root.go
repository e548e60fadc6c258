package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the inboxcal application
var rootCmd = &cobra.Command{
	Use:   "inboxcal",
	Short: "Turns scheduling emails into Google Calendar events",
	Long: `inboxcal scans your unread Gmail inbox for messages that ask for a new
appointment, extracts the event details with a language model, and creates
the event in Google Calendar with the sender invited as attendee.

It can run as:
  - A one-shot scan over the current unread inbox (default)
  - A long-running watcher that polls on an interval`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "inboxcal version %s\n" .Version}}`)

	// If no subcommand is provided, run a one-shot poll by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "poll")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newPollCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newVersionCmd())
}
