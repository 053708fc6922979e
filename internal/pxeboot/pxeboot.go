package pxeboot

import (
	"context"
	"strings"

	sw "github.com/filanov/stateswitch"
	"github.com/metal-toolbox/dpuctl/internal/console"
	"github.com/metal-toolbox/dpuctl/internal/model"
	"github.com/metal-toolbox/dpuctl/internal/runner"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// bootMenuPrompt is printed by the UEFI firmware when the boot menu is up.
	bootMenuPrompt = "Boot Option Menu"

	// pxeSelectKeys navigates the boot menu to the PXE entry.
	pxeSelectKeys = "\x1b[B\x1b[B\r"

	loginPrompt    = "login:"
	passwordPrompt = "Password:"
	shellPrompt    = "# "

	// netQuery is the single network state query run after a keyed boot.
	netQuery = "ip -br addr show\n"

	// netQueryMarker appears in the query output once the stack is up.
	netQueryMarker = "lo "
)

// Orchestrator drives a PXE boot attempt through its strictly ordered
// stages. A failed attempt is not retried, re-invocation restarts from
// scratch with a fresh BootSession.
type Orchestrator struct {
	runner   runner.Runner
	consoles console.Opener
	logger   *logrus.Entry
}

// New returns a PXE boot orchestrator.
func New(r runner.Runner, consoles console.Opener, logger *logrus.Entry) *Orchestrator {
	return &Orchestrator{runner: r, consoles: consoles, logger: logger}
}

// handlerContext carries the working attributes of one attempt into the
// transition handlers.
type handlerContext struct {
	ctx      context.Context
	boot     *model.BootSession
	runner   runner.Runner
	consoles console.Opener
	logger   *logrus.Entry

	// session is set by the openConsole stage and released by Run.
	session console.Console

	// networkState holds the captured output of the keyed verification
	// query.
	networkState string
}

// Run executes one PXE boot attempt, returning the network state captured
// by the keyed verification stage, empty without a key.
//
// Stages are strictly ordered and none skippable. Any stage failure moves
// the attempt to the failed state and surfaces the originating diagnostic.
// Without a verification key the final stage blocks indefinitely on the
// console. There is no built-in timeout, impose one through ctx when needed.
func (o *Orchestrator) Run(ctx context.Context, boot *model.BootSession) (string, error) {
	if !boot.Identity.Resolved() {
		return "", errors.Wrap(model.ErrMissingDeviceType, "pxeboot requires a resolved device family")
	}

	h := &handler{}

	hctx := &handlerContext{
		ctx:      ctx,
		boot:     boot,
		runner:   o.runner,
		consoles: o.consoles,
		logger:   o.logger.WithFields(logrus.Fields{"bootSession": boot.ID.String()}),
	}

	defer func() {
		if hctx.session != nil {
			_ = hctx.session.Close()
		}
	}()

	m := newStateMachine(h)

	a := &attempt{state: stateInit}

	for _, transitionType := range transitionOrder {
		if err := m.Run(transitionType, a, hctx); err != nil {
			if ferr := m.Run(transitionTypeFailed, a, hctx); ferr != nil {
				o.logger.WithFields(logrus.Fields{"err": ferr.Error()}).Warn("failed state transition error")
			}

			return "", wrapBootStage(transitionType, err)
		}

		hctx.logger.WithFields(logrus.Fields{"state": string(a.State())}).Debug("boot stage complete")
	}

	return hctx.networkState, nil
}

func wrapBootStage(transitionType sw.TransitionType, err error) error {
	wrapped := errors.Wrap(model.ErrBootStage, string(transitionType)+": "+err.Error())

	var ec model.ExitCoder
	if errors.As(err, &ec) {
		return model.NewExitError(ec.ExitCode(), wrapped)
	}

	return wrapped
}

type handler struct{}

func asHandlerContext(args sw.TransitionArgs) (*handlerContext, error) {
	hctx, ok := args.(*handlerContext)
	if !ok {
		return nil, errInvalidTransitionArgs
	}

	return hctx, nil
}

// injectMedia writes the boot media reference and auxiliary bootloader URI
// into the device boot configuration. This side effect on the device is not
// reversible here.
func (h *handler) injectMedia(_ sw.StateSwitch, args sw.TransitionArgs) error {
	hctx, err := asHandlerContext(args)
	if err != nil {
		return err
	}

	result, err := hctx.runner.Run(
		hctx.ctx,
		"bfcfg",
		"--pxe",
		"--bfb", hctx.boot.BFB,
		"--aux-loader", hctx.boot.Grub,
	)
	if err != nil {
		return err
	}

	if !result.Ok() {
		return model.NewExitError(result.ExitCode, errors.New(result.Stderr))
	}

	return nil
}

// triggerBoot resets the DPU through the rshim misc interface.
func (h *handler) triggerBoot(_ sw.StateSwitch, args sw.TransitionArgs) error {
	hctx, err := asHandlerContext(args)
	if err != nil {
		return err
	}

	result, err := hctx.runner.Run(hctx.ctx, "sh", "-c", "echo SW_RESET 1 > /dev/rshim0/misc")
	if err != nil {
		return err
	}

	if !result.Ok() {
		return model.NewExitError(result.ExitCode, errors.New(result.Stderr))
	}

	return nil
}

func (h *handler) openConsole(_ sw.StateSwitch, args sw.TransitionArgs) error {
	hctx, err := asHandlerContext(args)
	if err != nil {
		return err
	}

	session, err := hctx.consoles.Open(hctx.boot.Identity, console.TargetDefault)
	if err != nil {
		return err
	}

	hctx.session = session

	return nil
}

// navigateMenu drives the boot menu, either by selecting the PXE entry
// itself or by handing the console to the operator's terminal and blocking
// until it is closed.
func (h *handler) navigateMenu(_ sw.StateSwitch, args sw.TransitionArgs) error {
	hctx, err := asHandlerContext(args)
	if err != nil {
		return err
	}

	if hctx.boot.Interactive {
		hctx.logger.Info("handing console to the terminal program")

		return hctx.session.Interactive(hctx.ctx)
	}

	if _, err := hctx.session.WaitFor(hctx.ctx, bootMenuPrompt); err != nil {
		return err
	}

	return hctx.session.Send(pxeSelectKeys)
}

// verify finishes the attempt. With a verification key it waits for boot
// completion, logs in over the console and runs a single network state
// query. Without one it blocks on the console indefinitely, echoing output,
// matching the operator workflow.
func (h *handler) verify(_ sw.StateSwitch, args sw.TransitionArgs) error {
	hctx, err := asHandlerContext(args)
	if err != nil {
		return err
	}

	if hctx.boot.Interactive {
		// the operator already drove the boot to completion
		return nil
	}

	if hctx.boot.VerifyKey == "" {
		hctx.logger.Info("no verification key, blocking on console indefinitely")

		for {
			out, err := hctx.session.WaitFor(hctx.ctx, "\n")
			if err != nil {
				return err
			}

			hctx.logger.Info(strings.TrimRight(out, "\r\n"))
		}
	}

	if _, err := hctx.session.WaitFor(hctx.ctx, loginPrompt); err != nil {
		return err
	}

	if err := hctx.session.Send("root\n"); err != nil {
		return err
	}

	if _, err := hctx.session.WaitFor(hctx.ctx, passwordPrompt); err != nil {
		return err
	}

	if err := hctx.session.Send(hctx.boot.VerifyKey + "\n"); err != nil {
		return err
	}

	if _, err := hctx.session.WaitFor(hctx.ctx, shellPrompt); err != nil {
		return err
	}

	if err := hctx.session.Send(netQuery); err != nil {
		return err
	}

	out, err := hctx.session.WaitFor(hctx.ctx, netQueryMarker)
	if err != nil {
		return err
	}

	hctx.networkState = out
	hctx.logger.WithFields(logrus.Fields{"networkState": strings.TrimSpace(out)}).Info("boot verified")

	return nil
}
