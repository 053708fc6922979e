package cmd

import (
	"log"

	"github.com/spf13/cobra"
)

var bfbFile string

var cmdBFB = &cobra.Command{
	Use:   "bfb",
	Short: "Push a BFB image to the bluefield over the rshim boot interface",
	Run: func(cmd *cobra.Command, _ []string) {
		e := setup(cmd.Context())

		ctx, cancel := e.cancelOnSignal(cmd.Context())
		defer cancel()

		if err := e.bluefield().PushBFB(ctx, bfbFile); err != nil {
			fatalOnError(e.app.Logger, err)
		}

		e.logger.Info("BFB image pushed")
	},
}

func init() {
	cmdBFB.PersistentFlags().StringVar(&bfbFile, "file", "", "BFB image to push, a local path or an http(s) URL")

	if err := cmdBFB.MarkPersistentFlagRequired("file"); err != nil {
		log.Fatal(err)
	}

	rootCmd.AddCommand(cmdBFB)
}
