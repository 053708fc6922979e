package console

import (
	"context"

	"github.com/metal-toolbox/dpuctl/internal/model"
)

// Target selects a sub-endpoint on devices exposing more than one console.
type Target string

const (
	// TargetDefault is the device's primary console.
	TargetDefault Target = ""

	// TargetIMC is the management controller console on the IPU family.
	TargetIMC Target = "imc"

	// TargetACC is the accelerator complex console on the IPU family.
	TargetACC Target = "acc"
)

// Console is an open, exclusive serial session to a device endpoint.
type Console interface {
	// Send writes literal keystrokes to the console.
	Send(s string) error

	// WaitFor blocks until the console output contains the pattern,
	// returning the output read up to and including the match.
	WaitFor(ctx context.Context, pattern string) (string, error)

	// Interactive hands the console to the operator's terminal program and
	// blocks until it exits.
	Interactive(ctx context.Context) error

	// Close releases the session and the endpoint's exclusive lock. It is
	// safe to call on every exit path, repeated calls are no-ops.
	Close() error
}

// Opener opens console sessions.
type Opener interface {
	Open(identity model.DeviceIdentity, target Target) (Console, error)
}
