package cmd

import (
	"github.com/spf13/cobra"
	"github.com/vivekchamoli/legion2go/internal/ui"
)

const version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of legion2go",
	Run: func(cmd *cobra.Command, args []string) {
		ui.Printfln("%s", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
