package cmd

import (
	"github.com/metal-toolbox/dpuctl/internal/console"
	"github.com/spf13/cobra"
)

var consoleTarget string

var cmdConsole = &cobra.Command{
	Use:   "console",
	Short: "Open an interactive serial console session on the DPU",
	Run: func(cmd *cobra.Command, _ []string) {
		e := setup(cmd.Context())

		ctx, cancel := e.cancelOnSignal(cmd.Context())
		defer cancel()

		session, err := e.consoles.Open(e.identity, console.Target(consoleTarget))
		if err != nil {
			fatalOnError(e.app.Logger, err)
		}
		defer session.Close()

		if err := session.Interactive(ctx); err != nil {
			fatalOnError(e.app.Logger, err)
		}
	},
}

func init() {
	cmdConsole.PersistentFlags().StringVar(&consoleTarget, "target", "", "console endpoint on multi-console devices - 'imc' or 'acc' (ipu family only)")

	rootCmd.AddCommand(cmdConsole)
}
