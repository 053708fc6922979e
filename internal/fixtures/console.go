package fixtures

import (
	"context"
	"strings"
	"sync"

	"github.com/metal-toolbox/dpuctl/internal/console"
	"github.com/metal-toolbox/dpuctl/internal/model"
	"github.com/pkg/errors"
)

// Console is a scripted fake console session.
type Console struct {
	mu sync.Mutex

	// WaitOutput maps a WaitFor pattern to the output returned for it,
	// patterns not scripted return an error.
	WaitOutput map[string]string

	// Sent records keystrokes written to the console.
	Sent []string

	// WaitCalls records the patterns waited for, in order.
	WaitCalls []string

	InteractiveCalls int
	Closed           bool
}

func (c *Console) Send(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Closed {
		return errors.New("send on closed console")
	}

	c.Sent = append(c.Sent, s)

	return nil
}

func (c *Console) WaitFor(_ context.Context, pattern string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.WaitCalls = append(c.WaitCalls, pattern)

	out, ok := c.WaitOutput[pattern]
	if !ok {
		return "", errors.New("pattern never seen: " + pattern)
	}

	return out, nil
}

func (c *Console) Interactive(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.InteractiveCalls++

	return nil
}

func (c *Console) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Closed = true

	return nil
}

// SentMatching returns the recorded keystrokes containing the substring.
func (c *Console) SentMatching(substr string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var matched []string

	for _, s := range c.Sent {
		if strings.Contains(s, substr) {
			matched = append(matched, s)
		}
	}

	return matched
}

// ConsoleOpener is a fake console.Opener handing out a scripted console.
type ConsoleOpener struct {
	mu sync.Mutex

	Console *Console
	OpenErr error

	// Opens records the identities and targets opened.
	Opens []console.Target
}

func (o *ConsoleOpener) Open(identity model.DeviceIdentity, target console.Target) (console.Console, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !identity.Resolved() {
		return nil, errors.Wrap(model.ErrMissingDeviceType, "console open requires a resolved device family")
	}

	if o.OpenErr != nil {
		return nil, o.OpenErr
	}

	o.Opens = append(o.Opens, target)

	return o.Console, nil
}
