package modem

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"i4.energy/across/cellmon/at"
)

// maxLineLength bounds a single line of modem output.
const maxLineLength = 64 * 1024

// Modem is a cellular modem driven by AT commands. A single event loop owns
// the transport; every command written and every line read is reported to
// the configured Sink as an at.Packet, so the modem doubles as a live trace
// source.
type Modem struct {
	transport Transport
	// scanner is shared by init and Loop, which never run concurrently.
	scanner *bufio.Scanner
	config  Config
	logger  *slog.Logger

	closed      atomic.Bool
	loopRunning atomic.Bool

	urcChan  chan string
	commands chan *commandRequest

	loopCtx    context.Context
	loopCancel context.CancelFunc
}

type commandRequest struct {
	cmd string
	// command is the mnemonic of cmd, used to tell its information
	// response apart from a URC with the same prefix.
	command  string
	respChan chan commandResponse
	ctx      context.Context
}

type commandResponse struct {
	response string
	err      error
}

// PollConfig defines the polling of a condition such as SIM readiness.
type PollConfig struct {
	Interval   time.Duration
	Timeout    time.Duration
	MaxRetries int
}

// exchange collects the output of one command.
type exchange struct {
	command string
	lines   []string
}

// lineRole is what a line of modem output means for the current exchange.
type lineRole int

const (
	roleData lineRole = iota
	roleFinal
	roleURC
	roleOrphan
	roleEcho
)

// role classifies line against the exchange in progress, which may be nil.
func (e *exchange) role(line string) lineRole {
	switch at.Classify(line) {
	case at.TypeFinal, at.TypePrompt:
		if e == nil {
			return roleOrphan
		}
		return roleFinal
	case at.TypeURC:
		if e != nil && e.command != "" && at.LineCommand(line) == e.command {
			return roleData
		}
		return roleURC
	default:
		if at.IsEcho(line) {
			return roleEcho
		}
		if e == nil {
			return roleOrphan
		}
		return roleData
	}
}

// result joins the collected lines. A final line other than OK or the
// prompt turns into an ErrCommandFailed error.
func (e *exchange) result(final string) (string, error) {
	e.lines = append(e.lines, final)
	response := strings.Join(e.lines, "\n")
	if final == at.OK || final == at.Prompt {
		return response, nil
	}
	return response, fmt.Errorf("%w: %s", ErrCommandFailed, final)
}

// wireText renders the collected lines the way they crossed the wire.
func (e *exchange) wireText() string {
	return strings.Join(e.lines, at.CRLF) + at.CRLF
}

func newExchange(cmd string) *exchange {
	events := at.Decode(at.NewPacket(cmd, time.Time{}), "")
	if len(events) == 0 {
		return &exchange{}
	}
	return &exchange{command: events[0].Command}
}

// New dials the modem and runs the initialization sequence. Loop must be
// started before Exec can be used.
func New(ctx context.Context, config Config) (*Modem, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	config.setDefaults()

	transport, err := config.dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}
	if transport == nil {
		return nil, ErrNotInitialized
	}

	scanner := bufio.NewScanner(transport)
	scanner.Buffer(make([]byte, 0, 4096), maxLineLength)
	scanner.Split(at.Splitter)

	m := &Modem{
		transport: transport,
		scanner:   scanner,
		config:    config,
		logger:    config.logger.With("component", "modem"),
		urcChan:   make(chan string, 100),
		commands:  make(chan *commandRequest),
	}
	m.loopCtx, m.loopCancel = context.WithCancel(context.Background())

	initCtx, cancel := context.WithTimeout(ctx, config.initTimeout)
	defer cancel()

	if err := m.init(initCtx); err != nil {
		m.loopCancel()
		transport.Close()
		return nil, fmt.Errorf("initialize modem: %w", err)
	}
	return m, nil
}

// emit reports text to the sink.
func (m *Modem) emit(text string) {
	if m.config.sink == nil {
		return
	}
	m.config.sink(at.NewPacket(text, m.config.now()))
}

// write sends one command line and reports it.
func (m *Modem) write(cmd string) error {
	cmd = strings.TrimSpace(cmd)
	m.logger.Debug("TX", "command", cmd)
	if _, err := m.transport.Write([]byte(cmd + "\r")); err != nil {
		return fmt.Errorf("write command %q: %w", cmd, err)
	}
	m.emit(cmd)
	return nil
}

func scanError(err error) error {
	if errors.Is(err, bufio.ErrTooLong) {
		return ErrLineTooLong
	}
	return err
}

// readResult is one step of the reader goroutine: a line, or the error
// that ended reading.
type readResult struct {
	line string
	err  error
}

// Loop is the event loop owning all transport I/O. It executes commands
// submitted by Exec one at a time, dispatches URCs to the URC channel and
// reports every packet to the sink. It runs until ctx is cancelled, the
// modem is closed or reading fails, and must be called once.
func (m *Modem) Loop(ctx context.Context) error {
	if !m.loopRunning.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer m.loopRunning.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(m.loopCtx, cancel)
	defer stop()

	reads := make(chan readResult, 10)
	go func() {
		for m.scanner.Scan() {
			line := m.scanner.Text()
			if line == "" {
				continue
			}
			select {
			case reads <- readResult{line: line}:
			case <-ctx.Done():
				return
			}
		}
		err := m.scanner.Err()
		if err == nil {
			err = io.EOF
		}
		select {
		case reads <- readResult{err: err}:
		case <-ctx.Done():
		}
	}()

	var (
		current *commandRequest
		ex      *exchange
	)
	finish := func(resp commandResponse) {
		current.respChan <- resp
		current, ex = nil, nil
	}

	for {
		// Commands are accepted only while no exchange is in progress.
		var (
			commands <-chan *commandRequest
			cmdDone  <-chan struct{}
		)
		if current == nil {
			commands = m.commands
		} else {
			cmdDone = current.ctx.Done()
		}

		select {
		case <-ctx.Done():
			if current != nil {
				finish(commandResponse{err: ctx.Err()})
			}
			return ctx.Err()

		case req := <-commands:
			if err := m.write(req.cmd); err != nil {
				req.respChan <- commandResponse{err: err}
				continue
			}
			current, ex = req, newExchange(req.cmd)

		case <-cmdDone:
			m.logger.Warn("Command timed out", "command", current.cmd)
			finish(commandResponse{err: fmt.Errorf("command timeout: %w", current.ctx.Err())})

		case r := <-reads:
			if r.err != nil {
				if current != nil {
					finish(commandResponse{err: fmt.Errorf("read error: %w", r.err)})
				}
				if errors.Is(r.err, io.EOF) {
					return io.EOF
				}
				return fmt.Errorf("scanner error: %w", scanError(r.err))
			}

			m.logger.Debug("RX", "line", r.line)
			switch ex.role(r.line) {
			case roleData:
				ex.lines = append(ex.lines, r.line)
			case roleFinal:
				response, err := ex.result(r.line)
				m.emit(ex.wireText())
				finish(commandResponse{response: response, err: err})
			case roleURC:
				m.emit(r.line)
				select {
				case m.urcChan <- r.line:
				default:
					m.logger.Warn("URC channel full, dropping", "urc", r.line)
				}
			case roleOrphan:
				m.emit(r.line)
			}
		}
	}
}

// URC returns the channel receiving unsolicited result codes. URCs are
// dropped when it is not drained.
func (m *Modem) URC() <-chan string {
	return m.urcChan
}

// Close stops the loop and closes the transport.
func (m *Modem) Close() error {
	if m.closed.Swap(true) {
		return ErrAlreadyClosed
	}
	if m.loopCancel != nil {
		m.loopCancel()
	}
	if m.transport != nil {
		return m.transport.Close()
	}
	return nil
}

// init brings the modem into a known state: responsive, echo off, numeric
// CME errors, SIM unlocked when a PIN is configured.
func (m *Modem) init(ctx context.Context) error {
	if err := m.expectOkDirect(ctx, at.CmdAt); err != nil {
		return fmt.Errorf("modem not responding: %w", err)
	}
	if err := m.expectOkDirect(ctx, at.CmdEchoOff); err != nil {
		return fmt.Errorf("could not disable echo: %w", err)
	}
	if err := m.expectOkDirect(ctx, at.CmdVerboseErrors); err != nil {
		return fmt.Errorf("could not enable error codes: %w", err)
	}

	simStatus, err := m.execDirect(ctx, at.CmdSimStatus)
	switch {
	case err != nil:
		// The SIM is not reachable in some functional modes.
		m.logger.Warn("SIM status unavailable", "error", err)

	case strings.Contains(simStatus, at.SimReady):

	case strings.Contains(simStatus, at.SimPin):
		if m.config.simPIN == "" {
			return ErrSIMPinRequired
		}
		if err := m.expectOkDirect(ctx, fmt.Sprintf(`AT+CPIN="%s"`, m.config.simPIN)); err != nil {
			return fmt.Errorf("enter SIM PIN: %w", err)
		}
		if err := m.waitForSIMReady(ctx, PollConfig{}); err != nil {
			return err
		}

	default:
		m.logger.Warn("Unexpected SIM state", "response", simStatus)
	}
	return nil
}

// Exec sends cmd and waits for its final result code. The returned text
// holds the information response and the final line joined by "\n". A
// final line other than OK yields an error wrapping ErrCommandFailed along
// with the text. Loop must be running.
func (m *Modem) Exec(ctx context.Context, cmd string) (string, error) {
	if m.closed.Load() {
		return "", ErrAlreadyClosed
	}
	if m.transport == nil {
		return "", ErrNotInitialized
	}

	if _, ok := ctx.Deadline(); !ok && m.config.atTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.atTimeout)
		defer cancel()
	}

	req := &commandRequest{
		cmd:      cmd,
		respChan: make(chan commandResponse, 1),
		ctx:      ctx,
	}

	select {
	case m.commands <- req:
	case <-ctx.Done():
		return "", fmt.Errorf("command cancelled before sending: %w", ctx.Err())
	}

	select {
	case resp := <-req.respChan:
		return resp.response, resp.err
	case <-ctx.Done():
		return "", fmt.Errorf("command timeout: %w", ctx.Err())
	}
}

// execDirect runs one command on the transport without the loop. It is
// only used during initialization.
func (m *Modem) execDirect(ctx context.Context, cmd string) (string, error) {
	if m.closed.Load() {
		return "", ErrAlreadyClosed
	}
	if m.transport == nil {
		return "", ErrNotInitialized
	}

	if _, ok := ctx.Deadline(); !ok && m.config.atTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.atTimeout)
		defer cancel()
	}

	if err := m.write(cmd); err != nil {
		return "", err
	}

	ex := newExchange(cmd)
	for {
		select {
		case <-ctx.Done():
			return strings.Join(ex.lines, "\n"), ctx.Err()
		default:
		}
		if !m.scanner.Scan() {
			if err := m.scanner.Err(); err != nil {
				return strings.Join(ex.lines, "\n"), fmt.Errorf("read error: %w", scanError(err))
			}
			return strings.Join(ex.lines, "\n"), io.EOF
		}

		line := m.scanner.Text()
		if line == "" {
			continue
		}
		m.logger.Debug("RX", "line", line)

		switch ex.role(line) {
		case roleData:
			ex.lines = append(ex.lines, line)
		case roleFinal:
			response, err := ex.result(line)
			m.emit(ex.wireText())
			return response, err
		case roleURC:
			m.emit(line)
		}
	}
}

// expectOkDirect runs cmd during initialization and requires OK.
func (m *Modem) expectOkDirect(ctx context.Context, cmd string) error {
	resp, err := m.execDirect(ctx, cmd)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(resp, at.OK) {
		return fmt.Errorf("unexpected response: %q", resp)
	}
	return nil
}

// waitForSIMReady polls the SIM status after a PIN was entered until the
// card reports READY.
func (m *Modem) waitForSIMReady(ctx context.Context, config PollConfig) error {
	var (
		pollInterval = config.Interval
		timeout      = config.Timeout
		maxRetries   = config.MaxRetries
	)

	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = int(timeout / pollInterval)
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	retries := 0

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("SIM not ready: %w", ctx.Err())
		case <-ticker.C:
			retries++
			if retries > maxRetries {
				return fmt.Errorf("SIM not ready after %d retries", maxRetries)
			}
			resp, err := m.execDirect(ctx, at.CmdSimStatus)
			if err != nil {
				if errors.Is(err, ErrAlreadyClosed) || errors.Is(err, ErrNotInitialized) {
					return fmt.Errorf("SIM status check failed: %w", err)
				}
				continue
			}
			if strings.Contains(resp, at.SimReady) {
				return nil
			}
		}
	}
}
