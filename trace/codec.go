// Package trace stores and loads packet traces.
//
// Two encodings are supported. JSON Lines holds one packet object per line
// and can be appended to while capturing. YAML holds a list of the same
// objects and is meant for hand-written fixtures.
package trace

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"i4.energy/across/cellmon/at"
)

// ErrUnknownCodec is returned for a codec name or file extension that no
// codec handles.
var ErrUnknownCodec = errors.New("trace: unknown codec")

// maxRecordSize bounds one JSON Lines record.
const maxRecordSize = 1024 * 1024

// encodingBase64 marks records whose data is base64 encoded.
const encodingBase64 = "base64"

// record is the stored form of an at.Packet. AT text is stored as is;
// packets of other formats, or with bytes that are not valid UTF-8, are
// stored base64 encoded.
type record struct {
	Format    string    `json:"format" yaml:"format"`
	Encoding  string    `json:"encoding,omitempty" yaml:"encoding,omitempty"`
	Data      string    `json:"data" yaml:"data"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

func toRecord(p at.Packet) record {
	rec := record{Format: p.Format, Timestamp: p.Timestamp}
	if strings.EqualFold(p.Format, at.FormatAT) && utf8.Valid(p.Data) {
		rec.Data = string(p.Data)
		return rec
	}
	rec.Encoding = encodingBase64
	rec.Data = base64.StdEncoding.EncodeToString(p.Data)
	return rec
}

func (r record) packet() (at.Packet, error) {
	p := at.Packet{Format: r.Format, Timestamp: r.Timestamp}
	if p.Format == "" {
		p.Format = at.FormatAT
	}
	switch r.Encoding {
	case "":
		p.Data = []byte(r.Data)
	case encodingBase64:
		data, err := base64.StdEncoding.DecodeString(r.Data)
		if err != nil {
			return at.Packet{}, fmt.Errorf("decode data: %w", err)
		}
		p.Data = data
	default:
		return at.Packet{}, fmt.Errorf("unknown data encoding %q", r.Encoding)
	}
	return p, nil
}

// Codec encodes and decodes a whole trace.
type Codec interface {
	Name() string
	Encode(w io.Writer, packets []at.Packet) error
	Decode(r io.Reader) ([]at.Packet, error)
}

// JSONLines is the JSON Lines codec.
type JSONLines struct{}

func (JSONLines) Name() string { return "jsonl" }

func (JSONLines) Encode(w io.Writer, packets []at.Packet) error {
	enc := json.NewEncoder(w)
	for _, p := range packets {
		if err := enc.Encode(toRecord(p)); err != nil {
			return fmt.Errorf("trace: encode packet: %w", err)
		}
	}
	return nil
}

func (JSONLines) Decode(r io.Reader) ([]at.Packet, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)

	var packets []at.Packet
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("trace: line %d: %w", n, err)
		}
		p, err := rec.packet()
		if err != nil {
			return nil, fmt.Errorf("trace: line %d: %w", n, err)
		}
		packets = append(packets, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("trace: read: %w", err)
	}
	return packets, nil
}

// YAML is the YAML list codec.
type YAML struct{}

func (YAML) Name() string { return "yaml" }

func (YAML) Encode(w io.Writer, packets []at.Packet) error {
	records := make([]record, 0, len(packets))
	for _, p := range packets {
		records = append(records, toRecord(p))
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("trace: encode: %w", err)
	}
	return enc.Close()
}

func (YAML) Decode(r io.Reader) ([]at.Packet, error) {
	var records []record
	if err := yaml.NewDecoder(r).Decode(&records); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("trace: decode: %w", err)
	}
	packets := make([]at.Packet, 0, len(records))
	for i, rec := range records {
		p, err := rec.packet()
		if err != nil {
			return nil, fmt.Errorf("trace: record %d: %w", i+1, err)
		}
		packets = append(packets, p)
	}
	return packets, nil
}

// NewCodec returns the codec called name ("jsonl", "json", "yaml", "yml").
func NewCodec(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "jsonl", "json", "ndjson":
		return JSONLines{}, nil
	case "yaml", "yml":
		return YAML{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// CodecFor picks a codec by name, or by the extension of path when name is
// empty.
func CodecFor(name, path string) (Codec, error) {
	if name == "" {
		name = filepath.Ext(path)
	}
	return NewCodec(name)
}
