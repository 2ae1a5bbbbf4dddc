package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/erfanzar/eopod/pkg/tpu"
)

var (
	openPortsList    []int
	openPortsNetwork string
)

// openPortsCmd represents the open-ports command. Unlike the rest of the
// CLI it exits nonzero when any sub-rule fails, so scripts can gate on it.
var openPortsCmd = &cobra.Command{
	Use:   "open-ports",
	Short: "Open firewall ports for distributed TPU workloads",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, ok := openStore()
		if !ok {
			return nil
		}
		target, ok := requireTarget(store)
		if !ok {
			return nil
		}

		runner := tpu.NewGcloudRunner()
		failed := 0
		for _, port := range openPortsList {
			ruleName := fmt.Sprintf("eopod-allow-%d", port)
			res, err := runner.Invoke(context.Background(),
				"compute", "firewall-rules", "create", ruleName,
				fmt.Sprintf("--allow=tcp:%d", port),
				fmt.Sprintf("--network=%s", openPortsNetwork),
				fmt.Sprintf("--project=%s", target.Project),
				"--direction=INGRESS",
			)
			switch {
			case err != nil:
				fmt.Println(errText("Failed to create rule %s: %v", ruleName, err))
				failed++
			case !res.Success():
				fmt.Println(errText("Failed to create rule %s: %s", ruleName, res.Stderr))
				failed++
			default:
				fmt.Println(okText("Opened port %d (rule %s).", port, ruleName))
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d firewall rule(s) failed", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(openPortsCmd)

	openPortsCmd.Flags().IntSliceVar(&openPortsList, "ports", []int{8470, 8471, 29500}, "Ports to open")
	openPortsCmd.Flags().StringVar(&openPortsNetwork, "network", "default", "VPC network for the rules")
}
