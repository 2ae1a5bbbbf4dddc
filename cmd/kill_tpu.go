package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	eoerrors "github.com/erfanzar/eopod/errors"
	"github.com/erfanzar/eopod/pkg/tpu"
)

var (
	killTPUWorker int
	killTPUForce  bool
	killTPUPIDs   []string
)

// killTPUCmd represents the kill-tpu command
var killTPUCmd = &cobra.Command{
	Use:   "kill-tpu",
	Short: "Find and kill processes holding the TPU, then clean up",
	Long: `Scans every worker (or one with --worker) for processes holding the
accelerator device, asks for confirmation unless --force is given, kills
them (SIGKILL with --force, SIGTERM otherwise), runs the driver cleanup
sequence, and reports the TPU state afterwards.`,
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
		opts := tpu.KillOptions{
			Worker: killTPUWorker,
			PIDs:   killTPUPIDs,
			Force:  killTPUForce,
		}

		report, err := mgr.ScanAndKill(context.Background(), opts, confirmKill)
		if err != nil {
			// The whole flow degrades to one reported error.
			err = eoerrors.WithOp(err, "kill-tpu")
			fmt.Println(errText("kill-tpu failed: %v", err))
			_ = store.RecordError("kill-tpu", err.Error())
			store.Logger().Printf("kill-tpu failed: %v", err)
			return
		}

		if len(report.Procs) == 0 {
			fmt.Println(okText("No TPU processes found."))
			return
		}
		if report.Aborted {
			fmt.Println(warnText("Aborted."))
			return
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Worker", "PID", "Result"})
		for _, kr := range report.Results {
			result := "killed"
			if !kr.Success {
				result = fmt.Sprintf("failed: %s", kr.Stderr)
			}
			table.Append([]string{fmt.Sprintf("%d", kr.Worker), kr.PID, result})
		}
		table.Render()

		fmt.Printf("TPU state: %s\n", report.State)
		store.Logger().Printf("kill-tpu: killed %d process(es), state %s", len(report.Results), report.State)
	},
}

// confirmKill shows the discovered processes and asks for a yes/no answer.
func confirmKill(procs tpu.WorkerProcesses) bool {
	workers := make([]int, 0, len(procs))
	for worker := range procs {
		workers = append(workers, worker)
	}
	sort.Ints(workers)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Worker", "PIDs"})
	for _, worker := range workers {
		table.Append([]string{fmt.Sprintf("%d", worker), strings.Join(procs[worker], ", ")})
	}
	table.Render()

	fmt.Print("Kill these processes? [y/N]: ")
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func init() {
	rootCmd.AddCommand(killTPUCmd)

	killTPUCmd.Flags().IntVar(&killTPUWorker, "worker", -1, "Restrict to one worker index (default: all workers)")
	killTPUCmd.Flags().BoolVar(&killTPUForce, "force", false, "Skip confirmation and use SIGKILL")
	killTPUCmd.Flags().StringSliceVar(&killTPUPIDs, "pid", nil, "Only kill these PIDs")
}
