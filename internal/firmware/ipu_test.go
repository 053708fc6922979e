package firmware

import (
	"context"
	"testing"

	"github.com/metal-toolbox/dpuctl/internal/fixtures"
	"github.com/metal-toolbox/dpuctl/internal/model"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestIPU(r *fixtures.Runner) *IPU {
	opts := testOptions()
	opts.AllowedVersions = []string{"1.4.0", "1.6.2", "1.8.0"}

	return NewIPU(fixtures.Identity(model.DeviceKindIPU), opts, r, testLogger())
}

func TestIPUFirmwareUpUnsupportedVersion(t *testing.T) {
	r := &fixtures.Runner{}

	i := newTestIPU(r)

	err := i.FirmwareUp(context.Background(), model.FirmwareTarget{Version: "2.0.0"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrUnsupportedVersion))

	// rejected before any command reaches the device
	assert.Zero(t, r.CallCount())
}

func TestIPUFirmwareUpMissingVersion(t *testing.T) {
	r := &fixtures.Runner{}

	i := newTestIPU(r)

	err := i.FirmwareUp(context.Background(), model.FirmwareTarget{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrUnsupportedVersion))
	assert.Zero(t, r.CallCount())
}

func TestIPUFirmwareUpAllowedVersion(t *testing.T) {
	r := &fixtures.Runner{}

	i := newTestIPU(r)

	err := i.FirmwareUp(context.Background(), model.FirmwareTarget{Version: "1.6.2"})
	require.NoError(t, err)

	calls := r.CallsMatching("ipu-update --update")
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0], "--version 1.6.2")
}

func TestIPUFirmwareUpFlashFailure(t *testing.T) {
	r := &fixtures.Runner{
		Scripted: []fixtures.Scripted{
			{Match: "--update", Result: model.CommandResult{ExitCode: 2, Stderr: "nvm write error"}},
		},
	}

	i := newTestIPU(r)

	err := i.FirmwareUp(context.Background(), model.FirmwareTarget{Version: "1.8.0"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrFlashFailure))

	var ec model.ExitCoder
	require.True(t, errors.As(err, &ec))
	assert.Equal(t, 2, ec.ExitCode())
}

func TestIPUFirmwareResetIsFactoryReset(t *testing.T) {
	r := &fixtures.Runner{}

	i := newTestIPU(r)

	require.NoError(t, i.FirmwareReset(context.Background(), model.FirmwareTarget{}))

	assert.Len(t, r.CallsMatching("--factory-reset"), 1)
}

func TestIPUFirmwareVersion(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mr := fixtures.NewMockRunner(ctrl)
	mr.EXPECT().
		Run(gomock.Any(), ipuTool, "--query-version").
		Times(1).
		Return(model.CommandResult{ExitCode: 0, Stdout: "1.6.2\n"}, nil)

	opts := testOptions()
	opts.AllowedVersions = []string{"1.6.2"}

	i := NewIPU(fixtures.Identity(model.DeviceKindIPU), opts, mr, testLogger())

	result, err := i.FirmwareVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.6.2\n", result.Stdout)
}
