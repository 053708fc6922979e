package cmd

import (
	"github.com/spf13/cobra"
)

var cmdReset = &cobra.Command{
	Use:   "reset",
	Short: "Power cycle the DPU",
	Run: func(cmd *cobra.Command, _ []string) {
		e := setup(cmd.Context())

		if err := e.controller().Reset(cmd.Context()); err != nil {
			fatalOnError(e.app.Logger, err)
		}

		e.logger.Info("device reset issued")
	},
}

func init() {
	rootCmd.AddCommand(cmdReset)
}
