package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// historyDisplayLimit bounds how many recent entries the table shows.
const historyDisplayLimit = 15

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show command execution history",
	Run: func(cmd *cobra.Command, args []string) {
		store, ok := openStore()
		if !ok {
			return
		}

		history, err := store.History()
		if err != nil {
			fmt.Fprintln(os.Stderr, errText("Error: %v", err))
			return
		}
		if len(history) == 0 {
			fmt.Println("No command history found.")
			return
		}

		if len(history) > historyDisplayLimit {
			history = history[len(history)-historyDisplayLimit:]
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Timestamp", "Command", "Status", "Output (truncated)"})
		for _, entry := range history {
			table.Append([]string{entry.Timestamp, entry.Command, entry.Status, entry.Output})
		}
		table.Render()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
