// Package cmd implements the eopod command-line surface.
package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/erfanzar/eopod/pkg/state"
	"github.com/erfanzar/eopod/pkg/tpu"
)

var (
	errText  = color.New(color.FgRed).SprintfFunc()
	okText   = color.New(color.FgGreen).SprintfFunc()
	warnText = color.New(color.FgYellow).SprintfFunc()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "eopod",
	Short: "EOpod - Enhanced TPU Command Runner",
	Long: `EOpod wraps the gcloud CLI to run commands on Cloud TPU VMs with
retry logic, background-job tracking, history and error logging, and basic
cluster automation (process cleanup, IP discovery, firewall rules).`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore opens the state directory, reporting failure to the user.
// Handled errors never produce a nonzero exit.
func openStore() (*state.Store, bool) {
	store, err := state.Open()
	if err != nil {
		fmt.Fprintln(os.Stderr, errText("Error: %v", err))
		return nil, false
	}
	return store, true
}

// requireTarget loads the configured target, reporting the recoverable
// not-configured condition to the user.
func requireTarget(store *state.Store) (tpu.Target, bool) {
	target, err := store.Credentials()
	if err != nil {
		fmt.Println(errText("Please configure EOpod first using 'eopod configure'"))
		return tpu.Target{}, false
	}
	return target, true
}
