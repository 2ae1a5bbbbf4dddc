package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/erfanzar/eopod/pkg/tpu"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show TPU status and information",
	Run: func(cmd *cobra.Command, args []string) {
		store, ok := openStore()
		if !ok {
			return
		}
		target, ok := requireTarget(store)
		if !ok {
			return
		}

		mgr := tpu.NewManager(target, tpu.NewGcloudRunner())
		st, err := mgr.Status(context.Background())
		if err != nil {
			fmt.Println(errText("%v", err))
			return
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Property", "Value"})
		table.Append([]string{"Name", st.Name})
		table.Append([]string{"State", st.State})
		table.Append([]string{"Type", st.AcceleratorType})
		table.Append([]string{"Network", st.Network})
		table.Append([]string{"API Version", st.APIVersion})
		table.Append([]string{"Workers", fmt.Sprintf("%d", st.WorkerCount())})
		table.Render()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
