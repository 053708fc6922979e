package cmd

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/metal-toolbox/dpuctl/internal/app"
	"github.com/metal-toolbox/dpuctl/internal/console"
	"github.com/metal-toolbox/dpuctl/internal/device"
	"github.com/metal-toolbox/dpuctl/internal/firmware"
	"github.com/metal-toolbox/dpuctl/internal/model"
	"github.com/metal-toolbox/dpuctl/internal/runner"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dpuctl",
	Short: "dpuctl manages the lifecycle of DPU accelerator cards",
}

// persistent flags
var (
	cfgFile   string
	dpuFamily string
	dryrun    bool
	debug     bool
	trace     bool
)

// Execute runs the dpuctl command tree.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "configuration file")
	rootCmd.PersistentFlags().StringVar(&dpuFamily, "dpu", "", "DPU family - 'bluefield' or 'ipu', probed from the host when not set")
	rootCmd.PersistentFlags().BoolVarP(&dryrun, "dry-run", "", false, "record commands instead of executing them")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "set logging level to debug")
	rootCmd.PersistentFlags().BoolVarP(&trace, "trace", "t", false, "set logging level to trace")
}

func logLevel() int {
	switch {
	case trace:
		return model.LogLevelTrace
	case debug:
		return model.LogLevelDebug
	default:
		return model.LogLevelInfo
	}
}

// env wires the toolchain shared by every subcommand.
type env struct {
	app      *app.App
	logger   *logrus.Entry
	runner   *runner.Exec
	consoles *console.Provider
	identity model.DeviceIdentity
}

// setup loads configuration and resolves the device identity, the identity
// gates every other operation, an unresolved identity aborts the run.
func setup(ctx context.Context) *env {
	dpuctl, err := app.New(cfgFile, logLevel())
	if err != nil {
		log.Fatal(err)
	}

	logger := logrus.NewEntry(dpuctl.Logger)

	r := runner.New(dryrun, logger)

	identity, err := device.NewResolver(r, dpuctl.Config.MgmtAddress, logger).Resolve(ctx, dpuFamily)
	if err != nil {
		fatalOnError(dpuctl.Logger, err)
	}

	consoles := console.NewProvider(dpuctl.ConsoleEndpoints(), dpuctl.Config.SerialBaud, r, logger)

	return &env{
		app:      dpuctl,
		logger:   logger,
		runner:   r,
		consoles: consoles,
		identity: identity,
	}
}

func (e *env) controller() firmware.Controller {
	c, err := firmware.New(e.identity, e.app.FirmwareOptions(dryrun), e.runner, e.consoles, e.logger)
	if err != nil {
		fatalOnError(e.app.Logger, err)
	}

	return c
}

// bluefield returns the BlueField controller, terminating when the resolved
// family does not support the invoked operation.
func (e *env) bluefield() *firmware.BlueField {
	bf, ok := e.controller().(*firmware.BlueField)
	if !ok {
		e.app.Logger.Fatal("operation supported on the bluefield family only, resolved family: " + string(e.identity.Kind))
	}

	return bf
}

// cancelOnSignal cancels the context when a termination signal arrives, so
// blocking console waits unwind and release the serial line.
func (e *env) cancelOnSignal(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		<-e.app.TermCh
		e.logger.Info("got TERM signal, exiting...")
		cancel()
	}()

	return ctx, cancel
}

// fatalOnError logs the error and exits with the originating failure's exit
// code where one is carried.
func fatalOnError(logger *logrus.Logger, err error) {
	if err == nil {
		return
	}

	logger.Error(err)

	var ec model.ExitCoder
	if errors.As(err, &ec) && ec.ExitCode() > 0 {
		os.Exit(ec.ExitCode())
	}

	os.Exit(1)
}
