package firmware

import (
	"context"
	"strings"

	"github.com/metal-toolbox/dpuctl/internal/model"
	"github.com/metal-toolbox/dpuctl/internal/runner"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ipuTool is the vendor command wrapper all IPU firmware operations go
// through.
const ipuTool = "ipu-update"

var errIPUCommand = errors.New("ipu-update command failed")

// IPU drives the serial-only-by-default family through its vendor command
// wrapper.
type IPU struct {
	identity model.DeviceIdentity
	opts     Options
	runner   runner.Runner
	logger   *logrus.Entry
}

// NewIPU returns the IPU firmware lifecycle controller.
func NewIPU(identity model.DeviceIdentity, opts Options, r runner.Runner, logger *logrus.Entry) *IPU {
	return &IPU{
		identity: identity,
		opts:     opts,
		runner:   r,
		logger:   logger,
	}
}

// Reset reboots the device through the vendor wrapper.
func (i *IPU) Reset(ctx context.Context) error {
	result, err := i.runner.Run(ctx, ipuTool, "--reset")
	if err != nil {
		return errors.Wrap(errIPUCommand, err.Error())
	}

	if !result.Ok() {
		return model.NewExitError(result.ExitCode, errors.Wrap(errIPUCommand, result.Stderr))
	}

	return nil
}

// FirmwareVersion queries the installed firmware version.
func (i *IPU) FirmwareVersion(ctx context.Context) (model.CommandResult, error) {
	result, err := i.runner.Run(ctx, ipuTool, "--query-version")
	if err != nil {
		return result, errors.Wrap(errIPUCommand, err.Error())
	}

	if !result.Ok() {
		return result, model.NewExitError(result.ExitCode, errors.Wrap(errIPUCommand, result.Stderr))
	}

	return result, nil
}

// FirmwareUp flashes an explicitly selected version.
//
// The version must be in the configured allow-list, unknown versions are
// rejected before any command reaches the device rather than discovered as a
// runtime failure. A nonzero exit from the wrapper is fatal, never retried.
func (i *IPU) FirmwareUp(ctx context.Context, target model.FirmwareTarget) error {
	if target.Version == "" {
		return errors.Wrap(model.ErrUnsupportedVersion, "the IPU family requires an explicit firmware version")
	}

	if !i.versionAllowed(target.Version) {
		return errors.Wrap(
			model.ErrUnsupportedVersion,
			target.Version+" not in allow-list ["+strings.Join(i.opts.AllowedVersions, ", ")+"]",
		)
	}

	result, err := i.runner.Run(ctx, ipuTool, "--update", "--version", target.Version)
	if err != nil {
		return errors.Wrap(model.ErrFlashFailure, err.Error())
	}

	if !result.Ok() {
		return model.NewExitError(result.ExitCode, errors.Wrap(model.ErrFlashFailure, result.Stderr))
	}

	i.logger.WithFields(logrus.Fields{"version": target.Version}).Info("firmware flashed")

	return nil
}

// FirmwareReset restores the factory firmware.
func (i *IPU) FirmwareReset(ctx context.Context, _ model.FirmwareTarget) error {
	result, err := i.runner.Run(ctx, ipuTool, "--factory-reset")
	if err != nil {
		return errors.Wrap(model.ErrFlashFailure, err.Error())
	}

	if !result.Ok() {
		return model.NewExitError(result.ExitCode, errors.Wrap(model.ErrFlashFailure, result.Stderr))
	}

	return nil
}

func (i *IPU) versionAllowed(version string) bool {
	for _, allowed := range i.opts.AllowedVersions {
		if version == allowed {
			return true
		}
	}

	return false
}
