package at

import (
	"bufio"
	"bytes"
	"strings"
)

// Splitter is used for tokenizing AT command modem output. It uses
// the signature of bufio.SplitFunc so it can be directly used with bufio.Scanner.
//
// It splits the input by CRLF line endings and also
// recognizes the input prompt ("> ").
//
// Command echoes are returned as ordinary lines; Decode recognizes them
// as requests when they start with "AT".
//
// The atEOF parameter indicates whether any more data will be available.
// When true, any remaining data is returned as the final token.
func Splitter(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	// 1. Match input prompt
	if bytes.HasPrefix(data, []byte(Prompt)) {
		return len(Prompt), data[0:len(Prompt)], nil
	}

	// 2. Match standard line ending with CRLF
	if i := bytes.Index(data, []byte(CRLF)); i >= 0 {
		return i + len(CRLF), data[0:i], nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = Splitter

var urcPrefixes = []string{
	UrcNewMsg,
	UrcMessageReport,
	UrcRegistration,
	UrcSignalingConnection,
	UrcExtSignalQuality,
	UrcNetworkTime,
	UrcModemEvent,
	UrcPacketDomainEvent,
	UrcPeriodicTAU,
}

// Classify identifies the nature of the modem output
func Classify(line string) ResponseType {
	if line == Prompt {
		return TypePrompt
	}

	// Direct matches for final results
	switch line {
	case OK, ERROR, NoCarrier, NoDialtone, Busy, NoAnswer:
		return TypeFinal
	case UrcCall:
		return TypeURC
	}

	// Prefix matches
	switch {
	case strings.HasPrefix(line, CmeError), strings.HasPrefix(line, CmsError):
		return TypeFinal
	}
	for _, prefix := range urcPrefixes {
		if strings.HasPrefix(line, prefix) {
			return TypeURC
		}
	}
	return TypeData
}

// LineCommand returns the normalized mnemonic a device line is prefixed
// with ("+CEREG" for "+CEREG: 5,1"), or "" when the line has no such prefix.
func LineCommand(line string) string {
	cmd, _, ok := cutCommandPrefix(line)
	if !ok {
		return ""
	}
	return cmd
}

// cutCommandPrefix splits "+CMD: rest" into its normalized mnemonic and
// the remaining text.
func cutCommandPrefix(line string) (cmd, rest string, ok bool) {
	line = strings.TrimSpace(line)
	if len(line) < 2 || !isCommandSigil(line[0]) {
		return "", "", false
	}
	i := 1
	for i < len(line) && isMnemonicByte(line[i]) {
		i++
	}
	if i == 1 || i >= len(line) || line[i] != ':' {
		return "", "", false
	}
	return NormalizeCommand(line[:i]), strings.TrimSpace(line[i+1:]), true
}

func isCommandSigil(b byte) bool {
	return b == '+' || b == '%' || b == '#'
}

func isMnemonicByte(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9') || b == '%' || b == '_'
}
