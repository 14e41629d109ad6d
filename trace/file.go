package trace

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"i4.energy/across/cellmon/at"
)

// ReadFile loads the trace at path. An empty codec name selects the codec
// by file extension.
func ReadFile(path, codec string) ([]at.Packet, error) {
	c, err := CodecFor(codec, path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("trace: %w", err)
	}
	defer f.Close()
	return c.Decode(f)
}

// WriteFile stores packets at path, replacing any existing file.
func WriteFile(path, codec string, packets []at.Packet) error {
	c, err := CodecFor(codec, path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("trace: %w", err)
	}
	if err := c.Encode(f, packets); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Recorder appends packets to a JSON Lines file as they arrive. Its Record
// method fits modem.Sink. It is safe for concurrent use.
type Recorder struct {
	logger *slog.Logger

	mu     sync.Mutex
	file   *os.File
	enc    *json.Encoder
	count  int
	failed bool
}

// NewRecorder opens path for appending, creating it if needed.
func NewRecorder(path string, logger *slog.Logger) (*Recorder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("trace: open recorder: %w", err)
	}
	return &Recorder{logger: logger, file: f, enc: json.NewEncoder(f)}, nil
}

// Record appends p. Write errors are logged once and further packets are
// discarded.
func (r *Recorder) Record(p at.Packet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failed || r.file == nil {
		return
	}
	if err := r.enc.Encode(toRecord(p)); err != nil {
		r.failed = true
		r.logger.Error("Recording stopped", "file", r.file.Name(), "error", err)
		return
	}
	r.count++
}

// Count returns the number of packets recorded.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Close closes the file. Packets recorded afterwards are discarded.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
