package cmd

import (
	"fmt"

	"github.com/metal-toolbox/dpuctl/internal/model"
	"github.com/spf13/cobra"
)

type firmwareFlags struct {
	version    string
	repository string
	checksum   string
}

var (
	firmwareFlagSet = &firmwareFlags{}
)

var cmdFirmware = &cobra.Command{
	Use:   "firmware",
	Short: "Query, update or reset the DPU firmware",
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

var cmdFirmwareVersion = &cobra.Command{
	Use:   "version",
	Short: "Print the installed firmware bundle version",
	Run: func(cmd *cobra.Command, _ []string) {
		e := setup(cmd.Context())

		result, err := e.controller().FirmwareVersion(cmd.Context())
		if err != nil {
			fatalOnError(e.app.Logger, err)
		}

		fmt.Println(result.Stdout)
	},
}

var cmdFirmwareUp = &cobra.Command{
	Use:   "up",
	Short: "Flash a firmware bundle onto the DPU",
	Run: func(cmd *cobra.Command, _ []string) {
		e := setup(cmd.Context())

		ctx, cancel := e.cancelOnSignal(cmd.Context())
		defer cancel()

		if err := e.controller().FirmwareUp(ctx, firmwareTarget(e)); err != nil {
			fatalOnError(e.app.Logger, err)
		}

		e.logger.Info("firmware update complete")
	},
}

var cmdFirmwareReset = &cobra.Command{
	Use:   "reset",
	Short: "Reset firmware - reflashes the installed bundle on bluefield, factory resets on ipu",
	Run: func(cmd *cobra.Command, _ []string) {
		e := setup(cmd.Context())

		ctx, cancel := e.cancelOnSignal(cmd.Context())
		defer cancel()

		if err := e.controller().FirmwareReset(ctx, firmwareTarget(e)); err != nil {
			fatalOnError(e.app.Logger, err)
		}

		e.logger.Info("firmware reset complete")
	},
}

// firmwareTarget builds the flash target from CLI flags, unset flags fall
// back to configured values inside the controller.
func firmwareTarget(e *env) model.FirmwareTarget {
	return model.FirmwareTarget{
		Version:    firmwareFlagSet.version,
		Repository: firmwareFlagSet.repository,
		Checksum:   firmwareFlagSet.checksum,
		Identity:   e.identity,
	}
}

func init() {
	cmdFirmware.PersistentFlags().StringVar(&firmwareFlagSet.version, "version", "", "firmware bundle version to flash, the installed version is queried when not set")
	cmdFirmware.PersistentFlags().StringVar(&firmwareFlagSet.repository, "repository", "", "artifact repository URL overriding the configured firmware mirror")
	cmdFirmware.PersistentFlags().StringVar(&firmwareFlagSet.checksum, "checksum", "", "SHA256 checksum for the downloaded firmware artifact")

	cmdFirmware.AddCommand(cmdFirmwareVersion)
	cmdFirmware.AddCommand(cmdFirmwareUp)
	cmdFirmware.AddCommand(cmdFirmwareReset)

	rootCmd.AddCommand(cmdFirmware)
}
