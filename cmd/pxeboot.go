package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/metal-toolbox/dpuctl/internal/model"
	"github.com/metal-toolbox/dpuctl/internal/pxeboot"
	"github.com/spf13/cobra"
)

type pxebootFlags struct {
	bfb         string
	grub        string
	verifyKey   string
	waitConsole bool
	bootTimeout time.Duration
}

var (
	pxebootFlagSet = &pxebootFlags{}
)

var cmdPxeboot = &cobra.Command{
	Use:   "pxeboot",
	Short: "Boot the bluefield over PXE through its boot menu",
	Run: func(cmd *cobra.Command, _ []string) {
		runPxeboot(cmd.Context())
	},
}

func runPxeboot(ctx context.Context) {
	e := setup(ctx)

	// the bluefield boot menu is the only one dpuctl can navigate
	if e.identity.Kind != model.DeviceKindBlueField {
		e.app.Logger.Fatal("pxeboot supported on the bluefield family only, resolved family: " + string(e.identity.Kind))
	}

	ctx, cancel := e.cancelOnSignal(ctx)
	defer cancel()

	if pxebootFlagSet.bootTimeout > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, pxebootFlagSet.bootTimeout)
		defer timeoutCancel()
	}

	boot := model.NewBootSession(e.identity, pxebootFlagSet.bfb, pxebootFlagSet.grub)
	boot.VerifyKey = pxebootFlagSet.verifyKey
	boot.Interactive = pxebootFlagSet.waitConsole

	networkState, err := pxeboot.New(e.runner, e.consoles, e.logger).Run(ctx, boot)
	if err != nil {
		fatalOnError(e.app.Logger, err)
	}

	if networkState != "" {
		fmt.Println(networkState)
	}
}

func init() {
	cmdPxeboot.PersistentFlags().StringVar(&pxebootFlagSet.bfb, "bfb", "", "BFB boot image to inject as PXE boot media")
	cmdPxeboot.PersistentFlags().StringVar(&pxebootFlagSet.grub, "grub", "", "auxiliary grub loader injected alongside the BFB")
	cmdPxeboot.PersistentFlags().StringVar(&pxebootFlagSet.verifyKey, "verify-key", "", "root password used to log in over the console and verify network state after boot")
	cmdPxeboot.PersistentFlags().BoolVarP(&pxebootFlagSet.waitConsole, "wait-console", "", false, "hand the console over interactively after triggering the boot")
	cmdPxeboot.PersistentFlags().DurationVar(&pxebootFlagSet.bootTimeout, "boot-timeout", 0, "abort the boot attempt after this duration, e.g. 20m, no timeout when unset")

	if err := cmdPxeboot.MarkPersistentFlagRequired("bfb"); err != nil {
		log.Fatal(err)
	}

	rootCmd.AddCommand(cmdPxeboot)
}
