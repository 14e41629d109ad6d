// Package at implements the textual side of the AT command protocol as it
// appears in modem traces: line splitting, line classification, packet
// classification and parameter tokenizing.
package at

import "fmt"

const (
	// Terminal Control
	CRLF   = "\r\n"
	Prompt = "> "

	// Response Codes
	OK         = "OK"
	ERROR      = "ERROR"
	NoCarrier  = "NO CARRIER"
	NoDialtone = "NO DIALTONE"
	Busy       = "BUSY"
	NoAnswer   = "NO ANSWER"
	CmeError   = "+CME ERROR:"
	CmsError   = "+CMS ERROR:"

	// URCs (Unsolicited Result Codes)
	UrcNewMsg              = "+CMTI:"
	UrcMessageReport       = "+CDSI:"
	UrcSignalStrength      = "+CSQ:"
	UrcCall                = "RING"
	UrcRegistration        = "+CEREG:"
	UrcSignalingConnection = "+CSCON:"
	UrcExtSignalQuality    = "%CESQ:"
	UrcNetworkTime         = "%XTIME:"
	UrcModemEvent          = "%MDMEV:"
	UrcPacketDomainEvent   = "+CGEV:"
	UrcPeriodicTAU         = "%XT3412:"

	// Commands issued during modem initialization
	CmdAt            = "AT"
	CmdEchoOff       = "ATE0"
	CmdVerboseErrors = "AT+CMEE=1"
	CmdSimStatus     = "AT+CPIN?"

	SimReady = "READY"
	SimPin   = "SIM PIN"
)

type ResponseType int

const (
	TypeFinal  ResponseType = iota // OK, ERROR
	TypeURC                        // Asynchronous notifications
	TypeData                       // Intermediate command output (+CSQ: ...)
	TypePrompt                     // Text input prompt
)

// Kind tells who originated a packet and why.
type Kind int

const (
	// KindRequest is a command sent by the host.
	KindRequest Kind = iota
	// KindResponse is device output answering the outstanding request.
	KindResponse
	// KindNotification is device output that no request asked for.
	KindNotification
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	case KindNotification:
		return "notification"
	default:
		return "unknown"
	}
}

// Operator is the syntactic form of a request.
type Operator int

const (
	// OperatorNone marks packets that are not requests.
	OperatorNone Operator = iota
	// OperatorSet is a bare command, e.g. AT%XCBAND.
	OperatorSet
	// OperatorSetWithValue carries parameters, e.g. AT+CFUN=1.
	OperatorSetWithValue
	// OperatorRead queries the current value, e.g. AT+CFUN?.
	OperatorRead
	// OperatorTest queries the supported values, e.g. AT%XCBAND=?.
	OperatorTest
)

func (o Operator) String() string {
	switch o {
	case OperatorSet:
		return "set"
	case OperatorSetWithValue:
		return "set-with-value"
	case OperatorRead:
		return "read"
	case OperatorTest:
		return "test"
	default:
		return "none"
	}
}

// Status is the final result code terminating a response.
type Status int

const (
	// StatusNone means no final result code has been seen yet.
	StatusNone Status = iota
	StatusOK
	StatusError
	StatusCMEError
	StatusCMSError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return OK
	case StatusError:
		return ERROR
	case StatusCMEError:
		return "CME ERROR"
	case StatusCMSError:
		return "CMS ERROR"
	default:
		return ""
	}
}

// MarshalText renders an operator by name in JSON state dumps.
func (o Operator) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Operator) UnmarshalText(text []byte) error {
	for _, op := range []Operator{OperatorNone, OperatorSet, OperatorSetWithValue, OperatorRead, OperatorTest} {
		if op.String() == string(text) {
			*o = op
			return nil
		}
	}
	return fmt.Errorf("at: unknown operator %q", text)
}
