package cmd

import (
	"fmt"

	"github.com/metal-toolbox/dpuctl/internal/model"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var cmdUtils = &cobra.Command{
	Use:   "utils",
	Short: "Vendor tool helpers for the DPU host",
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

var cmdUtilsCxFwup = &cobra.Command{
	Use:   "cx-fwup",
	Short: "Update the ConnectX NIC firmware through mlxfwmanager",
	Run: func(cmd *cobra.Command, _ []string) {
		e := setup(cmd.Context())

		ctx, cancel := e.cancelOnSignal(cmd.Context())
		defer cancel()

		result, err := e.runner.Run(ctx, "mlxfwmanager", "--online", "-u", "-y")
		if err != nil {
			fatalOnError(e.app.Logger, err)
		}

		if !result.Ok() {
			fatalOnError(e.app.Logger, model.NewExitError(result.ExitCode, errors.Wrap(model.ErrFlashFailure, result.Stderr)))
		}

		fmt.Println(result.Stdout)
	},
}

func init() {
	cmdUtils.AddCommand(cmdUtilsCxFwup)

	rootCmd.AddCommand(cmdUtils)
}
