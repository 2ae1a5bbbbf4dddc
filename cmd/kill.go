package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/erfanzar/eopod/pkg/tpu"
)

var killWorker string

// killCmd represents the kill command
var killCmd = &cobra.Command{
	Use:   "kill PID...",
	Short: "Kill background processes by PID",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store, ok := openStore()
		if !ok {
			return
		}
		target, ok := requireTarget(store)
		if !ok {
			return
		}

		runner := tpu.NewGcloudRunner()
		for _, pid := range args {
			res, err := runner.Execute(context.Background(), target, tpu.Request{
				Command: fmt.Sprintf("sudo kill -9 %s", tpu.Quote(pid)),
				Worker:  killWorker,
			})
			switch {
			case err != nil:
				fmt.Println(errText("Failed to kill %s: %v", pid, err))
				_ = store.RecordError(fmt.Sprintf("kill %s", pid), err.Error())
			case !res.Success():
				fmt.Println(errText("Failed to kill %s: %s", pid, res.Stderr))
				_ = store.RecordError(fmt.Sprintf("kill %s", pid), res.Stderr)
			default:
				fmt.Println(okText("Killed process %s on worker(s) %s.", pid, killWorker))
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(killCmd)

	killCmd.Flags().StringVar(&killWorker, "worker", "all", `Specific worker index or "all"`)
}
