package console

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jpillora/backoff"
	"github.com/metal-toolbox/dpuctl/internal/model"
	"github.com/metal-toolbox/dpuctl/internal/runner"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

var (
	errEndpoint     = errors.New("no console endpoint for device")
	errSessionOpen  = errors.New("console session error")
	errPatternWait  = errors.New("error waiting for console pattern")
	readTimeout     = 500 * time.Millisecond
	terminalProgram = "minicom"
)

// The serial line is exclusive hardware, at most one session per endpoint may
// be open at a time. A second acquisition attempt fails fast instead of
// queueing so two components never fight over one UART.
var (
	sessionsMu sync.Mutex
	sessions   = map[string]uuid.UUID{}
)

func acquire(endpoint string, id uuid.UUID) error {
	sessionsMu.Lock()
	defer sessionsMu.Unlock()

	if holder, exists := sessions[endpoint]; exists {
		return errors.Wrap(model.ErrConsoleBusy, endpoint+" held by session "+holder.String())
	}

	sessions[endpoint] = id

	return nil
}

func release(endpoint string, id uuid.UUID) {
	sessionsMu.Lock()
	defer sessionsMu.Unlock()

	if holder, exists := sessions[endpoint]; exists && holder == id {
		delete(sessions, endpoint)
	}
}

// Endpoints holds the console device paths per family and sub-target.
type Endpoints struct {
	BlueField string
	IPUIMC    string
	IPUACC    string
}

// Provider opens exclusive serial sessions to device console endpoints.
type Provider struct {
	endpoints Endpoints
	baud      int
	runner    runner.Runner
	logger    *logrus.Entry

	// open is swapped in tests to avoid touching real serial hardware.
	open func(name string, mode *serial.Mode) (serial.Port, error)
}

// NewProvider returns a console session provider.
func NewProvider(endpoints Endpoints, baud int, r runner.Runner, logger *logrus.Entry) *Provider {
	return &Provider{
		endpoints: endpoints,
		baud:      baud,
		runner:    r,
		logger:    logger,
		open:      serial.Open,
	}
}

// Open acquires the endpoint's exclusive lock and opens the serial port.
//
// Console access is meaningless without knowing which family's console
// protocol to speak, an unresolved identity is rejected up front.
func (p *Provider) Open(identity model.DeviceIdentity, target Target) (Console, error) {
	if !identity.Resolved() {
		return nil, errors.Wrap(model.ErrMissingDeviceType, "console open requires a resolved device family")
	}

	endpoint, err := p.endpoint(identity, target)
	if err != nil {
		return nil, err
	}

	id := uuid.New()

	if err := acquire(endpoint, id); err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: p.baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := p.open(endpoint, mode)
	if err != nil {
		release(endpoint, id)

		return nil, errors.Wrap(errSessionOpen, err.Error())
	}

	if err := port.SetReadTimeout(readTimeout); err != nil {
		_ = port.Close()
		release(endpoint, id)

		return nil, errors.Wrap(errSessionOpen, err.Error())
	}

	p.logger.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"session":  id.String(),
	}).Debug("console session open")

	return &session{
		id:       id,
		endpoint: endpoint,
		baud:     p.baud,
		port:     port,
		runner:   p.runner,
		logger:   p.logger,
	}, nil
}

func (p *Provider) endpoint(identity model.DeviceIdentity, target Target) (string, error) {
	switch identity.Kind {
	case model.DeviceKindBlueField:
		return p.endpoints.BlueField, nil
	case model.DeviceKindIPU:
		switch target {
		case TargetACC:
			return p.endpoints.IPUACC, nil
		case TargetIMC, TargetDefault:
			return p.endpoints.IPUIMC, nil
		}
	}

	return "", errors.Wrap(errEndpoint, string(identity.Kind)+"/"+string(target))
}

type session struct {
	id       uuid.UUID
	endpoint string
	baud     int
	runner   runner.Runner
	logger   *logrus.Entry

	mu     sync.Mutex
	port   serial.Port
	closed bool
}

func (s *session) Send(keys string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.port == nil {
		return errors.Wrap(errSessionOpen, "session closed")
	}

	_, err := s.port.Write([]byte(keys))

	return err
}

func (s *session) WaitFor(ctx context.Context, pattern string) (string, error) {
	s.mu.Lock()
	port := s.port
	closed := s.closed
	s.mu.Unlock()

	if closed || port == nil {
		return "", errors.Wrap(errSessionOpen, "session closed")
	}

	b := &backoff.Backoff{Min: 100 * time.Millisecond, Max: 2 * time.Second, Jitter: true}

	var seen strings.Builder

	buf := make([]byte, 4096)

	for {
		if err := ctx.Err(); err != nil {
			return seen.String(), errors.Wrap(errPatternWait, err.Error())
		}

		n, err := port.Read(buf)
		if err != nil {
			return seen.String(), errors.Wrap(errPatternWait, err.Error())
		}

		if n == 0 {
			// read timeout with nothing on the wire
			time.Sleep(b.Duration())

			continue
		}

		b.Reset()
		seen.Write(buf[:n])

		if strings.Contains(seen.String(), pattern) {
			return seen.String(), nil
		}
	}
}

// Interactive releases the port and hands the endpoint to the terminal
// program, blocking until the operator closes it. The endpoint's exclusive
// lock stays held for the duration.
func (s *session) Interactive(ctx context.Context) error {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()

		return errors.Wrap(errSessionOpen, "session closed")
	}

	if s.port != nil {
		_ = s.port.Close()
		s.port = nil
	}

	s.mu.Unlock()

	result, err := s.runner.RunInteractive(ctx, terminalProgram, "-D", s.endpoint, "-b", strconv.Itoa(s.baud))
	if err != nil {
		return errors.Wrap(errSessionOpen, err.Error())
	}

	if !result.Ok() {
		return model.NewExitError(result.ExitCode, errors.Wrap(errSessionOpen, terminalProgram+" exited nonzero"))
	}

	return nil
}

func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	var err error
	if s.port != nil {
		err = s.port.Close()
		s.port = nil
	}

	release(s.endpoint, s.id)

	s.logger.WithFields(logrus.Fields{
		"endpoint": s.endpoint,
		"session":  s.id.String(),
	}).Debug("console session released")

	return err
}
