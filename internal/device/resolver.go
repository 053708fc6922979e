package device

import (
	"context"
	"strings"

	"github.com/metal-toolbox/dpuctl/internal/model"
	"github.com/metal-toolbox/dpuctl/internal/runner"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// pciSignatures maps a PCI enumeration substring to the DPU family it
// identifies.
var pciSignatures = map[string]model.DeviceKind{
	"BlueField":                         model.DeviceKindBlueField,
	"Infrastructure Data Path Function": model.DeviceKindIPU,
}

// Resolver determines which DPU family is present in the host.
type Resolver struct {
	runner      runner.Runner
	mgmtAddress string
	logger      *logrus.Entry
}

// NewResolver returns a device family resolver.
//
// mgmtAddress is carried into the resolved identity for families with a
// management channel.
func NewResolver(r runner.Runner, mgmtAddress string, logger *logrus.Entry) *Resolver {
	return &Resolver{runner: r, mgmtAddress: mgmtAddress, logger: logger}
}

// Resolve returns the device identity for this run.
//
// An explicit selector is trusted, normalized case insensitively. Without
// one the host PCI enumeration is probed. An unresolved identity aborts the
// whole run, there is no default family.
func (r *Resolver) Resolve(ctx context.Context, explicit string) (model.DeviceIdentity, error) {
	if explicit != "" {
		kind, ok := model.ParseDeviceKind(explicit)
		if !ok {
			return model.DeviceIdentity{}, errors.Wrap(model.ErrUndetectable, "unknown device family selector: "+explicit)
		}

		return r.identity(kind), nil
	}

	kind, err := r.probe(ctx)
	if err != nil {
		return model.DeviceIdentity{}, err
	}

	return r.identity(kind), nil
}

// Probe runs the host PCI enumeration and returns its raw output, this backs
// the list subcommand.
func (r *Resolver) Probe(ctx context.Context) (model.CommandResult, error) {
	return r.runner.Run(ctx, "lspci", "-d", "::0200", "-mm")
}

func (r *Resolver) probe(ctx context.Context) (model.DeviceKind, error) {
	result, err := r.Probe(ctx)
	if err != nil {
		return "", errors.Wrap(model.ErrUndetectable, err.Error())
	}

	if !result.Ok() {
		return "", errors.Wrap(model.ErrUndetectable, result.Stderr)
	}

	for signature, kind := range pciSignatures {
		if strings.Contains(result.Stdout, signature) {
			r.logger.WithFields(logrus.Fields{"family": kind}).Debug("device family probed")

			return kind, nil
		}
	}

	return "", errors.Wrap(model.ErrUndetectable, "no supported DPU found in PCI enumeration")
}

func (r *Resolver) identity(kind model.DeviceKind) model.DeviceIdentity {
	identity := model.DeviceIdentity{Kind: kind}

	if kind == model.DeviceKindBlueField {
		identity.MgmtAddress = r.mgmtAddress
	}

	return identity
}
