package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/erfanzar/eopod/pkg/state"
)

// errorDisplayCap bounds the error text shown per row.
const errorDisplayCap = 200

// errorsCmd represents the errors command
var errorsCmd = &cobra.Command{
	Use:   "errors",
	Short: "Show recent command execution errors",
	Run: func(cmd *cobra.Command, args []string) {
		store, ok := openStore()
		if !ok {
			return
		}

		errorLog, err := store.Errors()
		if err != nil {
			fmt.Fprintln(os.Stderr, errText("Error: %v", err))
			return
		}
		if len(errorLog) == 0 {
			fmt.Println("No error log found.")
			return
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Timestamp", "Command", "Error"})
		for _, entry := range errorLog {
			message := state.Truncate(entry.Error, errorDisplayCap)
			table.Append([]string{entry.Timestamp, entry.Command, message})
		}
		table.Render()
	},
}

func init() {
	rootCmd.AddCommand(errorsCmd)
}
