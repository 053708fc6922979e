package firmware

import (
	"context"

	"github.com/metal-toolbox/dpuctl/internal/console"
	"github.com/metal-toolbox/dpuctl/internal/model"
	"github.com/metal-toolbox/dpuctl/internal/runner"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Controller sequences firmware lifecycle operations for one device family.
//
// The two families are never interchangeable, the implementation is selected
// once from the resolved DeviceIdentity and passed through the call chain.
type Controller interface {
	// Reset reboots the device.
	Reset(ctx context.Context) error

	// FirmwareVersion returns the installed firmware version.
	FirmwareVersion(ctx context.Context) (model.CommandResult, error)

	// FirmwareUp flashes the requested firmware version.
	FirmwareUp(ctx context.Context, target model.FirmwareTarget) error

	// FirmwareReset applies the family's firmware reset semantics, the two
	// families differ here, see the implementations.
	FirmwareReset(ctx context.Context, target model.FirmwareTarget) error
}

// Options carries controller configuration from the app config.
type Options struct {
	// Mirror is the firmware artifact repository URL.
	Mirror string

	// AllowedVersions is the IPU firmware version allow-list.
	AllowedVersions []string

	// MSTDevice is the mst device node used for BlueField mode changes.
	MSTDevice string

	// RshimBoot is the rshim boot device bfb streams are pushed into.
	RshimBoot string

	// DryRun skips artifact downloads alongside the runner's dry-run mode.
	DryRun bool
}

// New returns the firmware lifecycle controller for the resolved family.
func New(identity model.DeviceIdentity, opts Options, r runner.Runner, consoles console.Opener, logger *logrus.Entry) (Controller, error) {
	switch identity.Kind {
	case model.DeviceKindBlueField:
		return NewBlueField(identity, opts, r, consoles, logger), nil
	case model.DeviceKindIPU:
		return NewIPU(identity, opts, r, logger), nil
	}

	return nil, errors.Wrap(model.ErrMissingDeviceType, "no firmware controller for family: "+string(identity.Kind))
}
