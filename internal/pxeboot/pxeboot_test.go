package pxeboot

import (
	"context"
	"testing"

	"github.com/metal-toolbox/dpuctl/internal/fixtures"
	"github.com/metal-toolbox/dpuctl/internal/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.Level = logrus.ErrorLevel

	return logrus.NewEntry(logger)
}

func bootSession() *model.BootSession {
	boot := model.NewBootSession(
		fixtures.Identity(model.DeviceKindBlueField),
		"https://mirror.example.com/bfb/ubuntu-22.04.bfb",
		"http://mirror.example.com/grub/grubaa64.efi",
	)

	return boot
}

// bootedConsole scripts a console that reaches the boot menu and, after the
// keyed login, reports its network state.
func bootedConsole() *fixtures.Console {
	return &fixtures.Console{
		WaitOutput: map[string]string{
			bootMenuPrompt: "UEFI firmware\r\nBoot Option Menu\r\n",
			loginPrompt:    "Ubuntu 22.04 LTS localhost ttyAMA0\r\nlocalhost login:",
			passwordPrompt: "Password:",
			shellPrompt:    "Last login\r\nroot@localhost:~# ",
			netQueryMarker: "lo UNKNOWN 127.0.0.1/8\r\noob_net0 UP 192.168.100.2/30\r\n",
		},
	}
}

func TestRunKeyedVerification(t *testing.T) {
	r := &fixtures.Runner{}
	fakeConsole := bootedConsole()
	opener := &fixtures.ConsoleOpener{Console: fakeConsole}

	boot := bootSession()
	boot.VerifyKey = "abc"

	o := New(r, opener, testLogger())

	// terminates after the verification query instead of blocking
	netState, err := o.Run(context.Background(), boot)
	require.NoError(t, err)

	assert.Contains(t, netState, "oob_net0 UP")

	// exactly one network state query went over the console
	assert.Len(t, fakeConsole.SentMatching("ip -br addr"), 1)

	// the session is released at attempt end
	assert.True(t, fakeConsole.Closed)
}

func TestRunStageOrdering(t *testing.T) {
	r := &fixtures.Runner{}
	opener := &fixtures.ConsoleOpener{Console: bootedConsole()}

	boot := bootSession()
	boot.VerifyKey = "abc"

	o := New(r, opener, testLogger())

	_, err := o.Run(context.Background(), boot)
	require.NoError(t, err)

	// media injection precedes the boot trigger
	require.Len(t, r.Calls, 2)
	assert.Contains(t, r.Calls[0], "bfcfg")
	assert.Contains(t, r.Calls[0], boot.BFB)
	assert.Contains(t, r.Calls[0], boot.Grub)
	assert.Contains(t, r.Calls[1], "SW_RESET")
}

func TestRunInteractiveHandsOffConsole(t *testing.T) {
	r := &fixtures.Runner{}
	fakeConsole := bootedConsole()
	opener := &fixtures.ConsoleOpener{Console: fakeConsole}

	boot := bootSession()
	boot.Interactive = true

	o := New(r, opener, testLogger())

	_, err := o.Run(context.Background(), boot)
	require.NoError(t, err)

	assert.Equal(t, 1, fakeConsole.InteractiveCalls)

	// the orchestrator never navigates the menu itself
	assert.Empty(t, fakeConsole.SentMatching("\x1b"))
}

func TestRunMediaInjectionFailureAbortsAttempt(t *testing.T) {
	r := &fixtures.Runner{
		Scripted: []fixtures.Scripted{
			{Match: "bfcfg", Result: model.CommandResult{ExitCode: 4, Stderr: "rshim not present"}},
		},
	}

	opener := &fixtures.ConsoleOpener{Console: bootedConsole()}

	o := New(r, opener, testLogger())

	_, err := o.Run(context.Background(), bootSession())
	require.Error(t, err)

	assert.True(t, errors.Is(err, model.ErrBootStage))
	assert.Contains(t, err.Error(), "rshim not present")

	var ec model.ExitCoder
	require.True(t, errors.As(err, &ec))
	assert.Equal(t, 4, ec.ExitCode())

	// no later stage ran
	require.Len(t, r.Calls, 1)
	assert.Empty(t, opener.Opens)
}

func TestRunConsoleContentionFailsAttempt(t *testing.T) {
	r := &fixtures.Runner{}
	opener := &fixtures.ConsoleOpener{OpenErr: errors.Wrap(model.ErrConsoleBusy, "/dev/rshim0/console")}

	o := New(r, opener, testLogger())

	_, err := o.Run(context.Background(), bootSession())
	require.Error(t, err)

	assert.True(t, errors.Is(err, model.ErrBootStage))
	assert.Contains(t, err.Error(), "console session already open")
}

func TestRunRequiresResolvedIdentity(t *testing.T) {
	o := New(&fixtures.Runner{}, &fixtures.ConsoleOpener{}, testLogger())

	boot := bootSession()
	boot.Identity = model.DeviceIdentity{}

	_, err := o.Run(context.Background(), boot)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrMissingDeviceType))
}

func TestDescribeAsJSON(t *testing.T) {
	j, err := DescribeAsJSON()
	require.NoError(t, err)
	assert.Contains(t, string(j), string(stateMediaInjected))
}

func TestGraph(t *testing.T) {
	g := Graph()
	assert.Contains(t, g.String(), string(stateConsoleOpen))
}
