package model

import (
	"strings"

	"github.com/google/uuid"
)

const (
	AppName = "dpuctl"

	LogLevelInfo  = 0
	LogLevelDebug = 1
	LogLevelTrace = 2
)

// DeviceKind identifies the DPU family installed in the host.
type DeviceKind string

const (
	// DeviceKindBlueField is the fast-path capable family, reachable over a
	// management address, with a serial console as fallback.
	DeviceKindBlueField DeviceKind = "bluefield"

	// DeviceKindIPU is driven through its vendor command wrapper and the
	// serial console by default.
	DeviceKindIPU DeviceKind = "ipu"
)

// DeviceKinds returns the supported DPU families.
func DeviceKinds() []DeviceKind { return []DeviceKind{DeviceKindBlueField, DeviceKindIPU} }

// ParseDeviceKind normalizes a family selector, case insensitive.
func ParseDeviceKind(s string) (DeviceKind, bool) {
	for _, kind := range DeviceKinds() {
		if strings.EqualFold(s, string(kind)) {
			return kind, true
		}
	}

	return "", false
}

// DeviceIdentity holds the resolved attributes of the DPU addressed in this run.
//
// The identity is resolved once at startup and not mutated after, every
// controller receives it as a value.
type DeviceIdentity struct {
	// Kind is the DPU family.
	Kind DeviceKind

	// Index distinguishes multiple cards of the same family, zero based.
	Index int

	// MgmtAddress is the management channel address, where the family has one.
	MgmtAddress string
}

// Resolved indicates the identity carries a known device family.
func (i DeviceIdentity) Resolved() bool { return i.Kind != "" }

// CommandResult is the outcome of a single external command invocation.
//
// A nonzero ExitCode is not an error at this layer, callers interpret it.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Ok indicates the command exited zero.
func (r CommandResult) Ok() bool { return r.ExitCode == 0 }

// FirmwareTarget describes one firmware operation request.
type FirmwareTarget struct {
	// Version requested, empty means the currently installed version.
	Version string

	// Repository is the firmware artifact mirror URL.
	Repository string

	// Checksum is an optional sha256 checksum for the artifact.
	Checksum string

	Identity DeviceIdentity
}

// Mode is the BlueField operating mode selector.
type Mode string

const (
	ModeDPU Mode = "dpu"
	ModeNIC Mode = "nic"
)

// ParseMode normalizes an operating mode selector, case insensitive.
func ParseMode(s string) (Mode, bool) {
	for _, m := range []Mode{ModeDPU, ModeNIC} {
		if strings.EqualFold(s, string(m)) {
			return m, true
		}
	}

	return "", false
}

// BootSession holds the attributes of a single PXE boot attempt.
//
// A BootSession is created per attempt and discarded when the attempt ends,
// no state is carried across attempts.
type BootSession struct {
	// ID identifies this attempt in logs.
	ID uuid.UUID

	// BFB is the boot media reference, a URI or local path.
	BFB string

	// Grub is the auxiliary boot loader URI injected alongside the boot media.
	Grub string

	// VerifyKey, when set, switches the orchestrator to keyed wait, it logs
	// in over the console after boot and runs a single network state query.
	// Empty means wait indefinitely on the console.
	VerifyKey string

	// Interactive hands the console over to the operator's terminal program
	// and blocks until it is closed.
	Interactive bool

	Identity DeviceIdentity
}

// NewBootSession returns a BootSession for one PXE attempt.
func NewBootSession(identity DeviceIdentity, bfb, grub string) *BootSession {
	return &BootSession{
		ID:       uuid.New(),
		BFB:      bfb,
		Grub:     grub,
		Identity: identity,
	}
}
