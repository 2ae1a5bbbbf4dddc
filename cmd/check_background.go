package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/erfanzar/eopod/pkg/tpu"
)

var (
	checkBackgroundWorker string
	checkBackgroundPID    string
)

// checkBackgroundCmd represents the check-background command
var checkBackgroundCmd = &cobra.Command{
	Use:   "check-background",
	Short: "Check on background commands started with 'run --background'",
	Run: func(cmd *cobra.Command, args []string) {
		store, ok := openStore()
		if !ok {
			return
		}
		target, ok := requireTarget(store)
		if !ok {
			return
		}

		command := "ps aux | grep nohup | grep -v grep"
		if checkBackgroundPID != "" {
			command = fmt.Sprintf("ps -p %s -o pid,etime,cmd", tpu.Quote(checkBackgroundPID))
		}

		res, err := tpu.NewGcloudRunner().Execute(context.Background(), target, tpu.Request{
			Command: command,
			Worker:  checkBackgroundWorker,
		})
		if err != nil {
			fmt.Println(errText("%v", err))
			return
		}
		if !res.Success() || res.Stdout == "" {
			fmt.Println(warnText("No background processes found on worker(s) %s.", checkBackgroundWorker))
			return
		}
		fmt.Println(res.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(checkBackgroundCmd)

	checkBackgroundCmd.Flags().StringVar(&checkBackgroundWorker, "worker", "all", `Specific worker index or "all"`)
	checkBackgroundCmd.Flags().StringVar(&checkBackgroundPID, "pid", "", "Check one process ID instead of listing")
}
