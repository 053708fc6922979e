package cmd

import (
	"fmt"

	"github.com/metal-toolbox/dpuctl/internal/device"
	"github.com/spf13/cobra"
)

var cmdList = &cobra.Command{
	Use:   "list",
	Short: "List DPU devices present in the host PCI enumeration",
	Run: func(cmd *cobra.Command, _ []string) {
		e := setup(cmd.Context())

		result, err := device.NewResolver(e.runner, e.app.Config.MgmtAddress, e.logger).Probe(cmd.Context())
		if err != nil {
			fatalOnError(e.app.Logger, err)
		}

		fmt.Printf("family: %s\n%s", e.identity.Kind, result.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(cmdList)
}
