package at

import (
	"math"
	"strconv"
	"strings"
)

// Parameters splits a response or notification body into its parameters.
//
// Escaped quotes and line terminators are resolved first. A leading
// command echo, status lines and the "+CMD:" (or bare ":") prefix are
// dropped, the remaining lines are joined with commas and split on commas
// outside quoted segments. Quotes are stripped and empty parameters are
// kept, so ",," yields "". Bodies holding only a fragment of a response
// return whatever trailing parameters are present.
func Parameters(body string) []string {
	lines := splitLines(unescape(body))
	if len(lines) > 0 && IsEcho(lines[0]) {
		lines = lines[1:]
	}

	kept := make([]string, 0, len(lines))
	for _, l := range lines {
		if _, _, ok := ParseStatus(l); ok {
			continue
		}
		if _, rest, ok := cutCommandPrefix(l); ok {
			l = rest
		} else if strings.HasPrefix(l, ":") {
			l = l[1:]
		}
		kept = append(kept, l)
	}
	if len(kept) == 0 {
		return nil
	}
	return splitQuoted(strings.Join(kept, ","))
}

func splitQuoted(s string) []string {
	var (
		params  []string
		start   int
		inQuote bool
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuote = !inQuote
		case ',':
			if !inQuote {
				params = append(params, unquote(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(params, unquote(s[start:]))
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return strings.Trim(s, `"`)
}

// NumberList parses a plain comma separated list of numbers such as
// "1,2,3". Entries that are not plain numbers, including quoted ones,
// become NaN.
func NumberList(s string) []float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	fields := strings.Split(s, ",")
	out := make([]float64, len(fields))
	for i, f := range fields {
		out[i] = parseFloat(f)
	}
	return out
}

// Numbers converts parameters to numbers, mapping any non-numeric
// parameter to NaN.
func Numbers(params []string) []float64 {
	out := make([]float64, len(params))
	for i, p := range params {
		out[i] = parseFloat(p)
	}
	return out
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// Number parses an integer parameter.
func Number(param string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(param))
	if err != nil {
		return 0, false
	}
	return n, true
}

// HasNaN reports whether any value failed to parse.
func HasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
