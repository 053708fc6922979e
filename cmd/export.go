package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/metal-toolbox/dpuctl/internal/pxeboot"
	"github.com/spf13/cobra"

	"github.com/emicklei/dot"
)

type exportFlags struct {
	mermaid bool
	json    bool
}

var (
	exportFlagSet = &exportFlags{}
)

var cmdExportStatemachine = &cobra.Command{
	Use:   "export-statemachine [--json|--mermaid]",
	Short: "Export the PXE boot statemachine in mermaid or JSON format",
	Run: func(_ *cobra.Command, _ []string) {
		exportStatemachine()
	},
}

func exportStatemachine() {
	if exportFlagSet.json {
		j, err := pxeboot.DescribeAsJSON()
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(string(j))
		os.Exit(0)
	}

	fmt.Println(dot.MermaidGraph(pxeboot.Graph(), dot.MermaidTopDown))
}

func init() {
	cmdExportStatemachine.PersistentFlags().BoolVarP(&exportFlagSet.mermaid, "mermaid", "", true, "export statemachine in mermaid format")
	cmdExportStatemachine.PersistentFlags().BoolVarP(&exportFlagSet.json, "json", "", false, "export statemachine in the JSON format")

	rootCmd.AddCommand(cmdExportStatemachine)
}
