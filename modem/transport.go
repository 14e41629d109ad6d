package modem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ziutek/telnet"
	"go.bug.st/serial"
)

//go:generate go tool mockgen -destination=mock_transport.go -package=modem . Transport,Dialer

// Transport represents an established, bidirectional byte stream to a
// cellular modem.
//
// A Transport is assumed to be already connected and ready for use. Typical
// implementations are serial ports, TCP connections to a serial server and
// in-memory fakes used for testing.
type Transport interface {
	io.ReadWriteCloser
}

// Dialer opens a Transport to a cellular modem.
//
// It is used during modem construction only. Once a Transport is obtained
// the Dialer is no longer needed.
type Dialer interface {
	// Dial creates and returns a connected Transport. It may block and
	// should respect cancellation of ctx.
	Dial(ctx context.Context) (Transport, error)
}

// DefaultBaudRate is the UART speed of nRF91 series modems.
const DefaultBaudRate = 115200

// SerialDialer opens a modem attached to a local serial port.
type SerialDialer struct {
	PortName string
	// Mode defaults to DefaultBaudRate, 8N1.
	Mode *serial.Mode
}

// Dial opens the serial port.
func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if d.PortName == "" {
		return nil, errors.New("modem: serial port name is required")
	}
	if ctx == nil {
		return nil, errors.New("modem: context is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		mode = &serial.Mode{
			BaudRate: DefaultBaudRate,
			Parity:   serial.NoParity,
			DataBits: 8,
			StopBits: serial.OneStopBit,
		}
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("modem: open %s: %w", d.PortName, err)
	}
	return port, nil
}

// TelnetDialer connects to a modem exposed over the network, for example
// by ser2net.
type TelnetDialer struct {
	Addr    string
	Timeout time.Duration
}

// Dial connects to Addr. The connection attempt is bounded by Timeout and
// by the deadline of ctx, whichever is earlier.
func (d TelnetDialer) Dial(ctx context.Context) (Transport, error) {
	if d.Addr == "" {
		return nil, errors.New("modem: telnet address is required")
	}
	if ctx == nil {
		return nil, errors.New("modem: context is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}

	conn, err := telnet.DialTimeout("tcp", d.Addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("modem: dial %s: %w", d.Addr, err)
	}
	return conn, nil
}
