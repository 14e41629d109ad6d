package at

import (
	"strings"
	"time"
)

// FormatAT is the trace format of textual AT traffic. Packets with any
// other format are ignored by Decode.
const FormatAT = "AT"

// Packet is one observed protocol event: a request written by the host or
// text read from the device.
type Packet struct {
	Format    string
	Data      []byte
	Timestamp time.Time
}

// NewPacket returns an AT packet carrying text.
func NewPacket(text string, ts time.Time) Packet {
	return Packet{Format: FormatAT, Data: []byte(text), Timestamp: ts}
}

// Classified is a packet after classification.
type Classified struct {
	// Command is the normalized mnemonic, e.g. "+CFUN" or "%XMONITOR".
	Command  string
	Kind     Kind
	Operator Operator
	// Payload holds the parameters with echo, status and the "+CMD:"
	// prefix removed. Data lines are joined with "\n".
	Payload string
	Status  Status
	// ErrorCode is the numeric or textual code of a CME/CMS error.
	ErrorCode string
}

var unescaper = strings.NewReplacer(`\"`, `"`, `\r`, "\r", `\n`, "\n")

// unescape resolves the escaped quoting some capture paths apply to text.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	return unescaper.Replace(s)
}

// NormalizeCommand upper-cases a mnemonic and collapses the "+%" prefix
// variant to "%".
func NormalizeCommand(cmd string) string {
	cmd = strings.ToUpper(strings.TrimSpace(cmd))
	if strings.HasPrefix(cmd, "+%") {
		cmd = cmd[1:]
	}
	return cmd
}

// splitLines splits text on any line terminator and drops blank lines.
func splitLines(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool { return r == '\r' || r == '\n' })
	lines := raw[:0]
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// IsEcho reports whether line is a command written by the host.
func IsEcho(line string) bool {
	return hasPrefixFold(strings.TrimSpace(line), "AT")
}

// ParseStatus returns the final result code carried by line, if any.
func ParseStatus(line string) (Status, string, bool) {
	line = strings.TrimSpace(line)
	switch {
	case line == OK:
		return StatusOK, "", true
	case line == ERROR:
		return StatusError, "", true
	case strings.HasPrefix(line, CmeError):
		return StatusCMEError, strings.TrimSpace(line[len(CmeError):]), true
	case strings.HasPrefix(line, CmsError):
		return StatusCMSError, strings.TrimSpace(line[len(CmsError):]), true
	case Classify(line) == TypeFinal:
		return StatusError, line, true
	}
	return StatusNone, "", false
}

// Decode classifies an AT packet. awaiting is the mnemonic of the request
// still waiting for its answer, or "" when none is outstanding.
//
// One packet may carry several protocol events: an echoed request
// followed by its response, or notifications captured in the same chunk
// as a response. They are returned in the order they must be applied.
// Lines carrying the prefix of another command than the awaited one are
// split off as notifications. A nil result means there is nothing to
// dispatch.
func Decode(p Packet, awaiting string) []Classified {
	if !strings.EqualFold(p.Format, FormatAT) {
		return nil
	}
	lines := splitLines(unescape(string(p.Data)))
	awaiting = NormalizeCommand(awaiting)

	var out []Classified
	start := 0
	for i, line := range lines {
		if IsEcho(line) {
			out = append(out, decodeDeviceText(lines[start:i], awaiting, nil)...)
			start = i + 1
			if c, ok := decodeRequest(line); ok {
				out = append(out, c)
				awaiting = c.Command
			}
			continue
		}
		if status, code, ok := ParseStatus(line); ok {
			final := &Classified{Status: status, ErrorCode: code}
			out = append(out, decodeDeviceText(lines[start:i], awaiting, final)...)
			start = i + 1
			awaiting = ""
		}
	}
	return append(out, decodeDeviceText(lines[start:], awaiting, nil)...)
}

func decodeRequest(line string) (Classified, bool) {
	body := strings.TrimSpace(line[2:])
	// Some capture paths repeat the prefix ("AT AT+CFUN?").
	for hasPrefixFold(body, "AT") && (len(body) == 2 || strings.ContainsRune("+%# ", rune(body[2]))) {
		body = strings.TrimSpace(body[2:])
	}
	if body == "" {
		return Classified{}, false
	}

	c := Classified{Kind: KindRequest, Operator: OperatorSet}
	i := strings.IndexAny(body, "=?")
	if i < 0 {
		c.Command = NormalizeCommand(body)
		return c, c.Command != ""
	}
	c.Command = NormalizeCommand(body[:i])
	switch rest := body[i:]; {
	case strings.HasPrefix(rest, "=?"):
		c.Operator = OperatorTest
	case rest[0] == '?':
		c.Operator = OperatorRead
	default:
		c.Operator = OperatorSetWithValue
		c.Payload = strings.TrimSpace(rest[1:])
	}
	return c, c.Command != ""
}

// decodeDeviceText classifies a run of device lines up to, but excluding,
// the final result code, which is passed as final when one ended the run.
// Lines of the awaited command and unprefixed lines form the response;
// with nothing awaited, unprefixed lines continue the notification before
// them.
func decodeDeviceText(lines []string, awaiting string, final *Classified) []Classified {
	var (
		notifications []Classified
		response      []string
		run           = -1
	)
	for _, l := range lines {
		cmd, rest, prefixed := cutCommandPrefix(l)
		switch {
		case prefixed && cmd == awaiting:
			response = append(response, rest)
			run = -1
		case prefixed && run >= 0 && notifications[run].Command == cmd:
			notifications[run].Payload += "\n" + rest
		case prefixed:
			notifications = append(notifications, Classified{Command: cmd, Kind: KindNotification, Payload: rest})
			run = len(notifications) - 1
		case awaiting != "":
			response = append(response, l)
			run = -1
		case run >= 0:
			notifications[run].Payload += "\n" + l
		}
	}

	if awaiting == "" {
		if final != nil && len(notifications) > 0 {
			last := &notifications[len(notifications)-1]
			last.Status, last.ErrorCode = final.Status, final.ErrorCode
		}
		return notifications
	}
	if final == nil && len(response) == 0 {
		return notifications
	}
	c := Classified{Command: awaiting, Kind: KindResponse, Payload: strings.Join(response, "\n")}
	if final != nil {
		c.Status, c.ErrorCode = final.Status, final.ErrorCode
	}
	return append(notifications, c)
}
