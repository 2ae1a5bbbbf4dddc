package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/erfanzar/eopod/pkg/tpu"
)

// ipsCmd represents the ips command
var ipsCmd = &cobra.Command{
	Use:   "ips",
	Short: "List internal and external IPs of all TPU workers",
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
		if len(st.NetworkEndpoints) == 0 {
			fmt.Println(warnText("No network endpoints reported for %s.", target.Name))
			return
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Worker", "Internal IP", "External IP"})
		for i, endpoint := range st.NetworkEndpoints {
			table.Append([]string{
				fmt.Sprintf("%d", i),
				endpoint.IPAddress,
				endpoint.AccessConfig.ExternalIP,
			})
		}
		table.Render()
	},
}

func init() {
	rootCmd.AddCommand(ipsCmd)
}
