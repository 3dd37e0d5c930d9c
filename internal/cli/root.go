package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/cognos-ai/cognos/internal/cli.version=1.2.3"
	version = "0.4.0"
	logo    = "\n" +
		"   ____                            \n" +
		"  / ___|___   __ _ _ __   ___  ___ \n" +
		" | |   / _ \\ / _` | '_ \\ / _ \\/ __|\n" +
		" | |__| (_) | (_| | | | | (_) \\__ \\\n" +
		"  \\____\\___/ \\__, |_| |_|\\___/|___/\n" +
		"             |___/                 \n"
)

var rootCmd = &cobra.Command{
	Use:   "cognos",
	Short: "Cognos - Autonomous Task Agent",
	Long:  color.CyanString(logo) + "\nAn iterative plan-arbitrate-execute agent loop written in Go.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func printHeader(title string) {
	fmt.Println(color.CyanString(logo))
	fmt.Println(color.New(color.Bold).Sprint(title))
	fmt.Println()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(gatewayCmd)
	rootCmd.AddCommand(toolsCmd)
}
