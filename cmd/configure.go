package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/erfanzar/eopod/pkg/tpu"
)

var (
	configureProjectID string
	configureZone      string
	configureTPUName   string
)

// configureCmd represents the configure command
var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Configure EOpod with your Google Cloud details",
	Run: func(cmd *cobra.Command, args []string) {
		store, ok := openStore()
		if !ok {
			return
		}

		target := tpu.Target{
			Project: configureProjectID,
			Zone:    configureZone,
			Name:    configureTPUName,
		}
		if err := store.SaveCredentials(target); err != nil {
			fmt.Fprintln(os.Stderr, errText("Error: %v", err))
			return
		}

		fmt.Println(okText("Configuration saved successfully!"))
	},
}

func init() {
	rootCmd.AddCommand(configureCmd)

	configureCmd.Flags().StringVar(&configureProjectID, "project-id", "", "Google Cloud Project ID (required)")
	configureCmd.Flags().StringVar(&configureZone, "zone", "", "Google Cloud Zone (required)")
	configureCmd.Flags().StringVar(&configureTPUName, "tpu-name", "", "TPU Name (required)")

	for _, flag := range []string{"project-id", "zone", "tpu-name"} {
		if err := configureCmd.MarkFlagRequired(flag); err != nil {
			fmt.Fprintf(os.Stderr, "Error marking flag %q as required: %v\n", flag, err)
			os.Exit(1)
		}
	}
}
