package cmd

import (
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// showConfigCmd represents the show-config command
var showConfigCmd = &cobra.Command{
	Use:   "show-config",
	Short: "Show current configuration",
	Run: func(cmd *cobra.Command, args []string) {
		store, ok := openStore()
		if !ok {
			return
		}
		target, ok := requireTarget(store)
		if !ok {
			return
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Setting", "Value"})
		table.Append([]string{"Project ID", target.Project})
		table.Append([]string{"Zone", target.Zone})
		table.Append([]string{"TPU Name", target.Name})
		table.Render()
	},
}

func init() {
	rootCmd.AddCommand(showConfigCmd)
}
