package trace_test

import (
	"bytes"
	"errors"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"i4.energy/across/cellmon/at"
	"i4.energy/across/cellmon/trace"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func samplePackets() []at.Packet {
	return []at.Packet{
		at.NewPacket("AT+CFUN?", epoch),
		at.NewPacket("+CFUN: 1\r\nOK\r\n", epoch.Add(time.Second)),
		at.NewPacket(`+CEREG: 5,"4E20","0052F001",7`, epoch.Add(2*time.Second)),
		{Format: "modem_trace", Data: []byte{0x7e, 0x01, 0xff, 0x00, 0xc3}, Timestamp: epoch.Add(3 * time.Second)},
		{Format: at.FormatAT, Data: []byte("%XMONITOR: \xff"), Timestamp: epoch.Add(4 * time.Second)},
	}
}

func samePackets(t *testing.T, got, want []at.Packet) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d packets, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Format != want[i].Format || !bytes.Equal(got[i].Data, want[i].Data) || !got[i].Timestamp.Equal(want[i].Timestamp) {
			t.Errorf("packet %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestCodecs(t *testing.T) {
	for _, codec := range []trace.Codec{trace.JSONLines{}, trace.YAML{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			var buf bytes.Buffer
			if err := codec.Encode(&buf, samplePackets()); err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			got, err := codec.Decode(&buf)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			samePackets(t, got, samplePackets())
		})
	}
}

func TestJSONLinesDecode(t *testing.T) {
	t.Run("hand written trace", func(t *testing.T) {
		input := `{"data":"AT%XCBAND","timestamp":"2024-03-01T12:00:00Z"}

{"format":"at","data":"%XCBAND: 20\r\nOK\r\n","timestamp":"2024-03-01T12:00:01Z"}
`
		got, err := trace.JSONLines{}.Decode(strings.NewReader(input))
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d packets, want 2", len(got))
		}
		if got[0].Format != at.FormatAT {
			t.Errorf("missing format decoded as %q, want %q", got[0].Format, at.FormatAT)
		}
		if string(got[1].Data) != "%XCBAND: 20\r\nOK\r\n" {
			t.Errorf("data = %q", got[1].Data)
		}
	})

	t.Run("malformed line", func(t *testing.T) {
		_, err := trace.JSONLines{}.Decode(strings.NewReader("{\"data\":\"AT\"}\nnot json\n"))
		if err == nil || !strings.Contains(err.Error(), "line 2") {
			t.Errorf("Decode() error = %v, want a line 2 error", err)
		}
	})
}

func TestNonTextDataIsBase64Encoded(t *testing.T) {
	var buf bytes.Buffer
	if err := (trace.JSONLines{}).Encode(&buf, samplePackets()); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5", len(lines))
	}
	if strings.Contains(lines[1], "base64") {
		t.Errorf("AT text was encoded: %s", lines[1])
	}
	for _, line := range lines[3:] {
		if !strings.Contains(line, `"encoding":"base64"`) {
			t.Errorf("binary data stored as text: %s", line)
		}
	}

	bad := `{"format":"modem_trace","encoding":"base64","data":"not base64!","timestamp":"2024-03-01T12:00:00Z"}`
	if _, err := (trace.JSONLines{}).Decode(strings.NewReader(bad)); err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Errorf("Decode() error = %v, want a line 1 error", err)
	}
}

func TestYAMLDecodeEmpty(t *testing.T) {
	got, err := trace.YAML{}.Decode(strings.NewReader(""))
	if err != nil || len(got) != 0 {
		t.Errorf("Decode(\"\") = %v, %v", got, err)
	}
}

func TestNewCodec(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"jsonl", "", "jsonl"},
		{"JSON", "", "jsonl"},
		{"yml", "", "yaml"},
		{"", "capture.jsonl", "jsonl"},
		{"", "fixtures/boot.yaml", "yaml"},
		{"yaml", "capture.jsonl", "yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name+tt.path, func(t *testing.T) {
			c, err := trace.CodecFor(tt.name, tt.path)
			if err != nil {
				t.Fatalf("CodecFor() error = %v", err)
			}
			if c.Name() != tt.want {
				t.Errorf("CodecFor(%q, %q) = %s, want %s", tt.name, tt.path, c.Name(), tt.want)
			}
		})
	}

	if _, err := trace.CodecFor("", "capture.pcap"); !errors.Is(err, trace.ErrUnknownCodec) {
		t.Errorf("CodecFor(pcap) error = %v, want ErrUnknownCodec", err)
	}
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"trace.jsonl", "trace.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := trace.WriteFile(path, "", samplePackets()); err != nil {
				t.Fatalf("WriteFile() error = %v", err)
			}
			got, err := trace.ReadFile(path, "")
			if err != nil {
				t.Fatalf("ReadFile() error = %v", err)
			}
			samePackets(t, got, samplePackets())
		})
	}

	if _, err := trace.ReadFile(filepath.Join(dir, "missing.jsonl"), ""); err == nil {
		t.Error("ReadFile() of a missing file succeeded")
	}
}

func TestRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.jsonl")
	logger := slog.New(slog.DiscardHandler)

	rec, err := trace.NewRecorder(path, logger)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	packets := samplePackets()
	for _, p := range packets[:2] {
		rec.Record(p)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	rec.Record(packets[2])

	// A second recorder appends to the same file.
	rec, err = trace.NewRecorder(path, logger)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	rec.Record(packets[3])
	if rec.Count() != 1 {
		t.Errorf("Count() = %d, want 1", rec.Count())
	}
	rec.Close()

	got, err := trace.ReadFile(path, "")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	samePackets(t, got, slices.Concat(packets[:2], packets[3:4]))
}
