package modem_test

import (
	"io"
	"strings"
	"sync"

	gomock "go.uber.org/mock/gomock"
	"i4.energy/across/cellmon/modem"
)

type MockSequenceBuilder struct {
	transport *modem.MockTransport
	calls     []any
}

func NewMockSequence(transport *modem.MockTransport) *MockSequenceBuilder {
	return &MockSequenceBuilder{
		transport: transport,
		calls:     []any{},
	}
}

// Exchange expects cmd to be written and answers it with resp.
func (b *MockSequenceBuilder) Exchange(cmd, resp string) *MockSequenceBuilder {
	wire := cmd + "\r"
	b.calls = append(b.calls,
		b.transport.EXPECT().Write([]byte(wire)).Return(len(wire), nil),
		b.transport.EXPECT().Read(gomock.Any()).DoAndReturn(func(p []byte) (int, error) {
			return copy(p, resp), nil
		}),
	)
	return b
}

func (b *MockSequenceBuilder) AT() *MockSequenceBuilder {
	return b.Exchange("AT", "AT\r\nOK\r\n")
}

func (b *MockSequenceBuilder) EchoOff() *MockSequenceBuilder {
	return b.Exchange("ATE0", "ATE0\r\nOK\r\n")
}

func (b *MockSequenceBuilder) VerboseErrors() *MockSequenceBuilder {
	return b.Exchange("AT+CMEE=1", "OK\r\n")
}

func (b *MockSequenceBuilder) SimPinRequired() *MockSequenceBuilder {
	return b.Exchange("AT+CPIN?", "+CPIN: SIM PIN\r\nOK\r\n")
}

func (b *MockSequenceBuilder) SimReady() *MockSequenceBuilder {
	return b.Exchange("AT+CPIN?", "+CPIN: READY\r\nOK\r\n")
}

func (b *MockSequenceBuilder) SimUnavailable() *MockSequenceBuilder {
	return b.Exchange("AT+CPIN?", "+CME ERROR: 10\r\n")
}

func (b *MockSequenceBuilder) Build() []any {
	return b.calls
}

func initMockCalls(transport *modem.MockTransport) []any {
	return NewMockSequence(transport).
		AT().
		EchoOff().
		VerboseErrors().
		SimReady().
		Build()
}

// scriptTransport answers each written command from a script, and lets
// tests inject unsolicited output. Reads block until data is available,
// like a serial port.
type scriptTransport struct {
	mu      sync.Mutex
	script  map[string]string
	written []string
	reads   chan []byte
	closed  bool
	// rest of the chunk a short Read left over; only touched by the reader.
	rest []byte
}

func newScriptTransport(script map[string]string) *scriptTransport {
	if script == nil {
		script = map[string]string{}
	}
	script["AT"] = "OK\r\n"
	script["ATE0"] = "ATE0\r\nOK\r\n"
	script["AT+CMEE=1"] = "OK\r\n"
	if _, ok := script["AT+CPIN?"]; !ok {
		script["AT+CPIN?"] = "+CPIN: READY\r\nOK\r\n"
	}
	return &scriptTransport{script: script, reads: make(chan []byte, 16)}
}

func (t *scriptTransport) Write(p []byte) (int, error) {
	cmd := strings.TrimSpace(string(p))
	t.mu.Lock()
	defer t.mu.Unlock()
	t.written = append(t.written, cmd)
	if resp, ok := t.script[cmd]; ok && !t.closed {
		t.reads <- []byte(resp)
	}
	return len(p), nil
}

func (t *scriptTransport) Read(p []byte) (int, error) {
	if len(t.rest) == 0 {
		data, ok := <-t.reads
		if !ok {
			return 0, io.EOF
		}
		t.rest = data
	}
	n := copy(p, t.rest)
	t.rest = t.rest[n:]
	return n, nil
}

func (t *scriptTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.reads)
	}
	return nil
}

// Send queues unsolicited device output.
func (t *scriptTransport) Send(data string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.reads <- []byte(data)
	}
}

func (t *scriptTransport) Written() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.written...)
}
