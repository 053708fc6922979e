package console

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/metal-toolbox/dpuctl/internal/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
	"go.uber.org/goleak"
)

// fakePort scripts serial reads and records writes.
type fakePort struct {
	mu     sync.Mutex
	reads  [][]byte
	writes []string
	closed bool
}

func (f *fakePort) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, io.EOF
	}

	if len(f.reads) == 0 {
		// emulate a read timeout with nothing on the wire
		return 0, nil
	}

	chunk := f.reads[0]
	f.reads = f.reads[1:]

	return copy(p, chunk), nil
}

func (f *fakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return 0, io.EOF
	}

	f.writes = append(f.writes, string(p))

	return len(p), nil
}

func (f *fakePort) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true

	return nil
}

func (f *fakePort) SetMode(_ *serial.Mode) error                         { return nil }
func (f *fakePort) Drain() error                                         { return nil }
func (f *fakePort) ResetInputBuffer() error                              { return nil }
func (f *fakePort) ResetOutputBuffer() error                             { return nil }
func (f *fakePort) SetDTR(_ bool) error                                  { return nil }
func (f *fakePort) SetRTS(_ bool) error                                  { return nil }
func (f *fakePort) GetModemStatusBits() (*serial.ModemStatusBits, error) { return nil, nil }
func (f *fakePort) SetReadTimeout(_ time.Duration) error                 { return nil }
func (f *fakePort) Break(_ time.Duration) error                          { return nil }

func testProvider(port *fakePort) *Provider {
	logger := logrus.New()
	logger.Level = logrus.ErrorLevel

	p := NewProvider(
		Endpoints{BlueField: "/dev/rshim0/console", IPUIMC: "/dev/ttyUSB2", IPUACC: "/dev/ttyUSB0"},
		115200,
		nil,
		logrus.NewEntry(logger),
	)

	p.open = func(_ string, _ *serial.Mode) (serial.Port, error) {
		return port, nil
	}

	return p
}

func bluefieldIdentity() model.DeviceIdentity {
	return model.DeviceIdentity{Kind: model.DeviceKindBlueField, MgmtAddress: "192.168.100.2"}
}

func TestOpenRequiresResolvedIdentity(t *testing.T) {
	p := testProvider(&fakePort{})

	_, err := p.Open(model.DeviceIdentity{}, TargetDefault)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrMissingDeviceType))
}

func TestOpenContention(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := testProvider(&fakePort{})

	first, err := p.Open(bluefieldIdentity(), TargetDefault)
	require.NoError(t, err)

	defer first.Close()

	// second acquisition on the same endpoint fails fast, it does not queue
	_, err = p.Open(bluefieldIdentity(), TargetDefault)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrConsoleBusy))

	// the first session remains usable
	assert.NoError(t, first.Send("\n"))
}

func TestCloseReleasesEndpoint(t *testing.T) {
	p := testProvider(&fakePort{})

	s, err := p.Open(bluefieldIdentity(), TargetDefault)
	require.NoError(t, err)

	require.NoError(t, s.Close())

	// close is idempotent
	require.NoError(t, s.Close())

	// endpoint is free for a new session
	s2, err := p.Open(bluefieldIdentity(), TargetDefault)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestIPUTargetSelectsEndpoint(t *testing.T) {
	fake := &fakePort{}

	p := testProvider(fake)

	var opened string

	p.open = func(name string, _ *serial.Mode) (serial.Port, error) {
		opened = name
		return fake, nil
	}

	identity := model.DeviceIdentity{Kind: model.DeviceKindIPU}

	s, err := p.Open(identity, TargetACC)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "/dev/ttyUSB0", opened)
}

func TestWaitFor(t *testing.T) {
	fake := &fakePort{reads: [][]byte{
		[]byte("UEFI firmware starting\n"),
		[]byte("Boot Option Menu\n"),
	}}

	p := testProvider(fake)

	s, err := p.Open(bluefieldIdentity(), TargetDefault)
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := s.WaitFor(ctx, "Boot Option Menu")
	require.NoError(t, err)
	assert.Contains(t, out, "UEFI firmware starting")
	assert.Contains(t, out, "Boot Option Menu")
}

func TestWaitForContextCancel(t *testing.T) {
	p := testProvider(&fakePort{})

	s, err := p.Open(bluefieldIdentity(), TargetDefault)
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = s.WaitFor(ctx, "never printed")
	require.Error(t, err)
}
