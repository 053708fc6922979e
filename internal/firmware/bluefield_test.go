package firmware

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

const installedBundle = "bf-bundle-2.7.0-33_24.04_ubuntu-22.04"

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.Level = logrus.ErrorLevel

	return logrus.NewEntry(logger)
}

func testOptions() Options {
	return Options{
		Mirror:    "https://mirror.example.com/bluefield",
		MSTDevice: "/dev/mst/mt41686_pciconf0",
		RshimBoot: "/dev/rshim0/boot",
		DryRun:    true,
	}
}

func newTestBlueField(r *fixtures.Runner, opener *fixtures.ConsoleOpener) *BlueField {
	return NewBlueField(fixtures.Identity(model.DeviceKindBlueField), testOptions(), r, opener, testLogger())
}

func TestFirmwareUpNoVersionQueriesThenFlashes(t *testing.T) {
	r := &fixtures.Runner{
		Scripted: []fixtures.Scripted{
			{Match: "cat /etc/mlnx-release", Result: model.CommandResult{ExitCode: 0, Stdout: installedBundle + "\n"}},
		},
	}

	b := newTestBlueField(r, &fixtures.ConsoleOpener{})

	err := b.FirmwareUp(context.Background(), model.FirmwareTarget{})
	require.NoError(t, err)

	flashes := r.CallsMatching("bfb-install")
	require.Len(t, flashes, 1)

	// the version passed to the flash step equals the queried version
	assert.Contains(t, flashes[0], installedBundle)
}

func TestFirmwareUpIdempotent(t *testing.T) {
	r := &fixtures.Runner{}

	b := newTestBlueField(r, &fixtures.ConsoleOpener{})

	target := model.FirmwareTarget{Version: installedBundle}

	require.NoError(t, b.FirmwareUp(context.Background(), target))
	require.NoError(t, b.FirmwareUp(context.Background(), target))

	flashes := r.CallsMatching("bfb-install")
	require.Len(t, flashes, 2)
	assert.Equal(t, flashes[0], flashes[1])
}

func TestFirmwareUpFlashFailureIsFatal(t *testing.T) {
	r := &fixtures.Runner{
		Scripted: []fixtures.Scripted{
			{Match: "bfb-install", Result: model.CommandResult{ExitCode: 5, Stderr: "flash verify failed"}},
		},
	}

	b := newTestBlueField(r, &fixtures.ConsoleOpener{})

	err := b.FirmwareUp(context.Background(), model.FirmwareTarget{Version: installedBundle})
	require.Error(t, err)

	assert.True(t, errors.Is(err, model.ErrFlashFailure))
	assert.Contains(t, err.Error(), "flash verify failed")

	var ec model.ExitCoder
	require.True(t, errors.As(err, &ec))
	assert.Equal(t, 5, ec.ExitCode())

	// single shot, the flash is never reissued
	assert.Len(t, r.CallsMatching("bfb-install"), 1)
}

func TestFirmwareResetReflashesInstalledVersion(t *testing.T) {
	r := &fixtures.Runner{
		Scripted: []fixtures.Scripted{
			{Match: "cat /etc/mlnx-release", Result: model.CommandResult{ExitCode: 0, Stdout: installedBundle + "\n"}},
		},
	}

	b := newTestBlueField(r, &fixtures.ConsoleOpener{})

	// an explicit version on the target is ignored, reset means reflash
	// what is installed
	err := b.FirmwareReset(context.Background(), model.FirmwareTarget{Version: "bf-bundle-9.9.9"})
	require.NoError(t, err)

	flashes := r.CallsMatching("bfb-install")
	require.Len(t, flashes, 1)
	assert.Contains(t, flashes[0], installedBundle)
	assert.NotContains(t, flashes[0], "9.9.9")
}

func TestFirmwareVersionFallsBackToConsole(t *testing.T) {
	r := &fixtures.Runner{
		Scripted: []fixtures.Scripted{
			{Match: "ssh", Result: model.CommandResult{ExitCode: 255, Stderr: "ssh: connect refused"}},
		},
	}

	fakeConsole := &fixtures.Console{
		WaitOutput: map[string]string{
			bfReleaseMarker: "cat /etc/mlnx-release\r\n" + installedBundle + "\r\n# ",
		},
	}

	opener := &fixtures.ConsoleOpener{Console: fakeConsole}

	b := newTestBlueField(r, opener)

	version, err := b.Version(context.Background())
	require.NoError(t, err)

	assert.Equal(t, installedBundle, version)
	assert.Len(t, opener.Opens, 1)

	// the session is released on the way out
	assert.True(t, fakeConsole.Closed)
}

func TestFirmwareVersionBothPathsFail(t *testing.T) {
	r := &fixtures.Runner{
		Scripted: []fixtures.Scripted{
			{Match: "ssh", Result: model.CommandResult{ExitCode: 255, Stderr: "ssh: connect refused"}},
		},
	}

	opener := &fixtures.ConsoleOpener{OpenErr: errors.Wrap(model.ErrConsoleBusy, "/dev/rshim0/console")}

	b := newTestBlueField(r, opener)

	_, err := b.FirmwareVersion(context.Background())
	require.Error(t, err)

	assert.Contains(t, err.Error(), "ssh: connect refused")
	assert.Contains(t, err.Error(), "console session already open")

	var ec model.ExitCoder
	require.True(t, errors.As(err, &ec))
	assert.Equal(t, 255, ec.ExitCode())
}

func TestModeDispatch(t *testing.T) {
	t.Run("no selector dispatches to get with next boot", func(t *testing.T) {
		r := &fixtures.Runner{}

		b := newTestBlueField(r, &fixtures.ConsoleOpener{})

		_, err := b.Mode(context.Background(), "", true)
		require.NoError(t, err)

		queries := r.CallsMatching("mlxconfig")
		require.Len(t, queries, 1)
		assert.Contains(t, queries[0], "-e")
		assert.Contains(t, queries[0], " q ")
		assert.NotContains(t, queries[0], "set")
	})

	t.Run("selector dispatches to set, get never runs", func(t *testing.T) {
		r := &fixtures.Runner{}

		b := newTestBlueField(r, &fixtures.ConsoleOpener{})

		_, err := b.Mode(context.Background(), "nic", false)
		require.NoError(t, err)

		queries := r.CallsMatching("mlxconfig")
		require.Len(t, queries, 1)
		assert.Contains(t, queries[0], "set")
		assert.Contains(t, queries[0], "SEPARATED_HOST(0)")
	})

	t.Run("invalid selector rejected without device contact", func(t *testing.T) {
		r := &fixtures.Runner{}

		b := newTestBlueField(r, &fixtures.ConsoleOpener{})

		_, err := b.Mode(context.Background(), "octeon", false)
		require.Error(t, err)
		assert.Zero(t, r.CallCount())
	})
}

func TestParseRelease(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want string
	}{
		{"plain", installedBundle + "\n", installedBundle},
		{"console echo and prompt", "cat /etc/mlnx-release\r\n" + installedBundle + "\r\n# ", installedBundle},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseRelease(tt.out))
		})
	}
}
