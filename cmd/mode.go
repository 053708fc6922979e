package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

type modeFlags struct {
	set      string
	nextBoot bool
}

var (
	modeFlagSet = &modeFlags{}
)

var cmdMode = &cobra.Command{
	Use:   "mode",
	Short: "Get or set the bluefield operational mode - 'dpu' or 'nic'",
	Run: func(cmd *cobra.Command, _ []string) {
		e := setup(cmd.Context())

		result, err := e.bluefield().Mode(cmd.Context(), modeFlagSet.set, modeFlagSet.nextBoot)
		if err != nil {
			fatalOnError(e.app.Logger, err)
		}

		if modeFlagSet.set != "" {
			e.logger.Info("mode set, power cycle the device to apply")

			return
		}

		fmt.Println(result.Stdout)
	},
}

func init() {
	cmdMode.PersistentFlags().StringVar(&modeFlagSet.set, "set", "", "mode to configure - 'dpu' or 'nic', prints the current mode when not set")
	cmdMode.PersistentFlags().BoolVarP(&modeFlagSet.nextBoot, "next-boot", "", false, "query the mode taking effect on the next boot instead of the running one")

	rootCmd.AddCommand(cmdMode)
}
