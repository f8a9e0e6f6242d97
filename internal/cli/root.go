// Package cli implements the assistant-bot command line.
package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/unifiedui/assistant-bot/internal/cli.version=1.2.3"
	version = "0.4.0"
	logo    = "\n" +
		"     _    _ _               _\n" +
		"    / \\  | | |__   ___ _ __| |_\n" +
		"   / _ \\ | | '_ \\ / _ \\ '__| __|\n" +
		"  / ___ \\| | |_) |  __/ |  | |_\n" +
		" /_/   \\_\\_|_.__/ \\___|_|   \\__|\n"
)

var rootCmd = &cobra.Command{
	Use:           "assistant-bot",
	Short:         "Albert - chat assistant for Matrix rooms",
	Long:          color.CyanString(logo) + "\nA Matrix bot relaying conversations to the Albert answer service.",
	SilenceUsage:  true,
	SilenceErrors: false,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(notifyCmd)
	rootCmd.AddCommand(featuresCmd)
	rootCmd.AddCommand(keygenCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("assistant-bot %s\n", version)
	},
}
