package firmware

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/metal-toolbox/dpuctl/internal/console"
	"github.com/metal-toolbox/dpuctl/internal/fallback"
	"github.com/metal-toolbox/dpuctl/internal/model"
	"github.com/metal-toolbox/dpuctl/internal/runner"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// bfReleaseFile holds the installed bundle version on the DPU OS.
	bfReleaseFile = "/etc/mlnx-release"

	// bfReleaseMarker appears in every BlueField bundle version string.
	bfReleaseMarker = "bf-bundle"

	// mlxconfig knob selecting DPU vs NIC operation.
	cpuModelKnob = "INTERNAL_CPU_MODEL"
)

var (
	errModeSelector = errors.New("invalid mode selector")
	errModeCommand  = errors.New("mlxconfig command failed")
	errBFBPush      = errors.New("bfb push failed")
	errVersionQuery = errors.New("firmware version query failed")
)

// BlueField drives the fast-path capable family over its management address,
// with the serial console as the fallback channel.
type BlueField struct {
	identity model.DeviceIdentity
	opts     Options
	runner   runner.Runner
	consoles console.Opener
	logger   *logrus.Entry
}

// NewBlueField returns the BlueField firmware lifecycle controller.
func NewBlueField(identity model.DeviceIdentity, opts Options, r runner.Runner, consoles console.Opener, logger *logrus.Entry) *BlueField {
	return &BlueField{
		identity: identity,
		opts:     opts,
		runner:   r,
		consoles: consoles,
		logger:   logger,
	}
}

// mgmt issues a single command over the management channel.
func (b *BlueField) mgmt(ctx context.Context, remote string) (model.CommandResult, error) {
	return b.runner.Run(
		ctx,
		"ssh",
		"-o", "ConnectTimeout=10",
		"-o", "StrictHostKeyChecking=no",
		"root@"+b.identity.MgmtAddress,
		remote,
	)
}

// Reset reboots the DPU, over the management channel when reachable, through
// the console otherwise.
func (b *BlueField) Reset(ctx context.Context) error {
	fast := func(ctx context.Context) (model.CommandResult, error) {
		return b.mgmt(ctx, "reboot")
	}

	slow := func(ctx context.Context) (model.CommandResult, error) {
		return b.consoleCommand(ctx, "reboot\n", "")
	}

	_, err := fallback.Do(ctx, b.logger, fast, slow)

	return err
}

// FirmwareVersion queries the installed bundle version, retrying over the
// console when the management channel fails. Only this read-only probe is
// dual-pathed, write operations are single shot.
func (b *BlueField) FirmwareVersion(ctx context.Context) (model.CommandResult, error) {
	fast := func(ctx context.Context) (model.CommandResult, error) {
		return b.mgmt(ctx, "cat "+bfReleaseFile)
	}

	slow := func(ctx context.Context) (model.CommandResult, error) {
		return b.consoleCommand(ctx, "cat "+bfReleaseFile+"\n", bfReleaseMarker)
	}

	return fallback.Do(ctx, b.logger, fast, slow)
}

// consoleCommand opens the console, sends the command and optionally waits
// for a marker in the output. The session is released on every return path.
func (b *BlueField) consoleCommand(ctx context.Context, keys, waitMarker string) (model.CommandResult, error) {
	c, err := b.consoles.Open(b.identity, console.TargetDefault)
	if err != nil {
		return model.CommandResult{}, err
	}

	defer c.Close()

	// a leading newline wakes the console and gets a fresh prompt
	if err := c.Send("\n"); err != nil {
		return model.CommandResult{}, err
	}

	if err := c.Send(keys); err != nil {
		return model.CommandResult{}, err
	}

	if waitMarker == "" {
		return model.CommandResult{ExitCode: 0}, nil
	}

	out, err := c.WaitFor(ctx, waitMarker)
	if err != nil {
		return model.CommandResult{}, err
	}

	return model.CommandResult{ExitCode: 0, Stdout: out}, nil
}

// Version returns the installed bundle version string.
func (b *BlueField) Version(ctx context.Context) (string, error) {
	result, err := b.FirmwareVersion(ctx)
	if err != nil {
		return "", err
	}

	version := parseRelease(result.Stdout)
	if version == "" {
		return "", errors.Wrap(errVersionQuery, "no version in query output: "+result.Stdout)
	}

	return version, nil
}

// parseRelease extracts the bundle version from command output, console
// output carries echoed keystrokes and prompts around it.
func parseRelease(out string) string {
	var firstNonEmpty string

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, "cat ") {
			continue
		}

		if strings.Contains(line, bfReleaseMarker) {
			return line
		}

		if firstNonEmpty == "" {
			firstNonEmpty = line
		}
	}

	return firstNonEmpty
}

// FirmwareUp flashes the given bundle version pulled from the artifact
// mirror.
//
// With no version requested the currently installed version is queried over
// the dual path and flashed again. Flashing is idempotent, reflashing the
// installed version succeeds. A nonzero exit from the flashing tool is fatal
// and never retried, a partially applied flash must not be compounded.
func (b *BlueField) FirmwareUp(ctx context.Context, target model.FirmwareTarget) error {
	version := target.Version
	if version == "" {
		current, err := b.Version(ctx)
		if err != nil {
			return err
		}

		b.logger.WithFields(logrus.Fields{"version": current}).Info("no version requested, reflashing installed version")
		version = current
	}

	repository := target.Repository
	if repository == "" {
		repository = b.opts.Mirror
	}

	artifactURL := fmt.Sprintf("%s/%s.bfb", strings.TrimRight(repository, "/"), version)

	path, err := b.fetch(ctx, artifactURL, target.Checksum)
	if err != nil {
		return err
	}

	result, err := b.runner.Run(ctx, "bfb-install", "--bfb", path, "--rshim", "rshim0")
	if err != nil {
		return errors.Wrap(model.ErrFlashFailure, err.Error())
	}

	if !result.Ok() {
		return model.NewExitError(result.ExitCode, errors.Wrap(model.ErrFlashFailure, result.Stderr))
	}

	b.logger.WithFields(logrus.Fields{"version": version}).Info("firmware flashed")

	return nil
}

// FirmwareReset reflashes whatever version is currently installed rather
// than restoring factory defaults, recovering from partial or corrupt
// firmware states without moving the device to another version.
func (b *BlueField) FirmwareReset(ctx context.Context, target model.FirmwareTarget) error {
	target.Version = ""

	return b.FirmwareUp(ctx, target)
}

// fetch downloads the artifact to a temp file and validates its checksum.
// In dry-run mode the URL is passed through untouched, nothing is fetched.
func (b *BlueField) fetch(ctx context.Context, artifactURL, checksum string) (string, error) {
	if b.opts.DryRun {
		return artifactURL, nil
	}

	dst := filepath.Join(os.TempDir(), filepath.Base(artifactURL))

	if err := download(ctx, artifactURL, dst); err != nil {
		return "", errors.Wrap(ErrDownload, err.Error())
	}

	if err := checksumValidateSHA256(dst, checksum); err != nil {
		return "", err
	}

	return dst, nil
}

// Mode runs the mode sub-operation, the get and set forms are mutually
// exclusive, a set selector means the get is never performed.
func (b *BlueField) Mode(ctx context.Context, set string, nextBoot bool) (model.CommandResult, error) {
	if set != "" {
		mode, ok := model.ParseMode(set)
		if !ok {
			return model.CommandResult{}, errors.Wrap(errModeSelector, set)
		}

		return b.SetMode(ctx, mode)
	}

	return b.GetMode(ctx, nextBoot)
}

// GetMode queries the operating mode, nextBoot includes the value taking
// effect on the next boot.
func (b *BlueField) GetMode(ctx context.Context, nextBoot bool) (model.CommandResult, error) {
	args := []string{"-d", b.opts.MSTDevice}
	if nextBoot {
		args = append(args, "-e")
	}

	args = append(args, "q", cpuModelKnob)

	result, err := b.runner.Run(ctx, "mlxconfig", args...)
	if err != nil {
		return result, errors.Wrap(errModeCommand, err.Error())
	}

	if !result.Ok() {
		return result, model.NewExitError(result.ExitCode, errors.Wrap(errModeCommand, result.Stderr))
	}

	return result, nil
}

// SetMode switches the device between DPU and NIC operation, applied on the
// next boot. Single shot, a failure is fatal to the operation.
func (b *BlueField) SetMode(ctx context.Context, mode model.Mode) (model.CommandResult, error) {
	value := cpuModelKnob + "=EMBEDDED_CPU(1)"
	if mode == model.ModeNIC {
		value = cpuModelKnob + "=SEPARATED_HOST(0)"
	}

	result, err := b.runner.Run(ctx, "mlxconfig", "-d", b.opts.MSTDevice, "-y", "set", value)
	if err != nil {
		return result, errors.Wrap(errModeCommand, err.Error())
	}

	if !result.Ok() {
		return result, model.NewExitError(result.ExitCode, errors.Wrap(errModeCommand, result.Stderr))
	}

	return result, nil
}

// PushBFB streams a BlueField boot file into the rshim boot device.
func (b *BlueField) PushBFB(ctx context.Context, ref string) error {
	path := ref

	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		fetched, err := b.fetch(ctx, ref, "")
		if err != nil {
			return err
		}

		path = fetched
	}

	result, err := b.runner.Run(ctx, "dd", "if="+path, "of="+b.opts.RshimBoot, "bs=4M")
	if err != nil {
		return errors.Wrap(errBFBPush, err.Error())
	}

	if !result.Ok() {
		return model.NewExitError(result.ExitCode, errors.Wrap(errBFBPush, result.Stderr))
	}

	return nil
}
