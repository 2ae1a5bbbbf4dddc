package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/erfanzar/eopod/pkg/retry"
	"github.com/erfanzar/eopod/pkg/tpu"
)

var (
	runWorker      string
	runRetry       int
	runDelay       int
	runTimeout     int
	runNoStream    bool
	runBackground  bool
	runInteractive bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run COMMAND",
	Short: "Run a command on the TPU VM with retries",
	Long: `Runs a shell command on the configured TPU VM. Output streams to the
terminal by default; use --no-stream to capture it instead. Failed attempts
are retried with a fixed delay and logged to the error log.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store, ok := openStore()
		if !ok {
			return
		}
		target, ok := requireTarget(store)
		if !ok {
			return
		}

		worker, err := tpu.ParseWorker(runWorker)
		if err != nil {
			fmt.Println(errText("%v", err))
			return
		}

		command := args[0]

		if runInteractive {
			fmt.Println(warnText("Interactive mode is experimental."))
			store.Logger().Printf("run: interactive session on worker %s (command %q ignored)", worker, command)
			if err := tpu.NewGcloudRunner().Interactive(context.Background(), target, worker); err != nil {
				fmt.Println(errText("%v", err))
			}
			return
		}

		req := tpu.Request{
			Command:    command,
			Worker:     worker,
			Stream:     !runNoStream && !runBackground,
			Background: runBackground,
		}
		policy := retry.Policy{
			MaxAttempts: runRetry,
			Delay:       time.Duration(runDelay) * time.Second,
			Timeout:     time.Duration(runTimeout) * time.Second,
		}

		orch := retry.New(tpu.NewGcloudRunner(), store)

		// A spinner would garble streamed output, so only show one on the
		// captured path.
		var spin *spinner.Spinner
		if !req.Stream {
			spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
			spin.Start()
			defer spin.Stop()
		}
		orch.OnAttempt = func(attempt int) {
			if spin != nil {
				spin.Suffix = fmt.Sprintf(" Executing command: %s (Attempt %d)", command, attempt)
			}
		}

		store.Logger().Printf("run: %s (worker=%s retry=%d)", command, worker, runRetry)
		outcome := orch.Run(context.Background(), target, req, policy)
		if spin != nil {
			spin.Stop()
		}
		store.Logger().Printf("run: %s -> %s after %d attempt(s)", command, outcome.Status, outcome.Attempts)

		if outcome.Status != retry.Succeeded {
			fmt.Println(errText("%s", retry.Describe(outcome, policy)))
			return
		}

		if runBackground {
			fmt.Println(okText("Command '%s' started in the background on worker(s) %s (PID %s).",
				command, worker, outcome.Result.Stdout))
			fmt.Printf("Output and errors redirected to %s_%s_output.log and %s_%s_error.log\n",
				target.Name, worker, target.Name, worker)
			return
		}

		fmt.Println(okText("Command completed successfully!"))
		if runNoStream && outcome.Result.Stdout != "" {
			fmt.Println("\nOutput:")
			fmt.Print(outcome.Result.Stdout)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	defaults := retry.DefaultPolicy()
	runCmd.Flags().StringVar(&runWorker, "worker", tpu.WorkerAll, `Specific worker index or "all"`)
	runCmd.Flags().IntVar(&runRetry, "retry", defaults.MaxAttempts, "Number of attempts for failed commands")
	runCmd.Flags().IntVar(&runDelay, "delay", int(defaults.Delay/time.Second), "Delay between retries in seconds")
	runCmd.Flags().IntVar(&runTimeout, "timeout", int(defaults.Timeout/time.Second), "Per-attempt timeout in seconds (0 disables)")
	runCmd.Flags().BoolVar(&runNoStream, "no-stream", false, "Capture output instead of streaming it")
	runCmd.Flags().BoolVar(&runBackground, "background", false, "Run the command detached via nohup and report its PID")
	runCmd.Flags().BoolVar(&runInteractive, "interactive", false, "Open an interactive ssh session instead of running the command")
}
