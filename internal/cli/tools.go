package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List registered tools",
	Run: func(cmd *cobra.Command, args []string) {
		rt, err := buildRuntime()
		if err != nil {
			fmt.Printf("Startup error: %v\n", err)
			os.Exit(1)
		}
		defer rt.close()

		for _, spec := range rt.registry.Specs() {
			fmt.Printf("%s  %s\n", color.GreenString("%-18s", spec.Name), spec.Description)
		}
	},
}
