package viewmodel

import (
	"slices"

	"i4.energy/across/cellmon/at"
)

func ptr[T any](v T) *T {
	return &v
}

// param returns the i-th parameter, if present.
func param(params []string, i int) (string, bool) {
	if i < 0 || i >= len(params) {
		return "", false
	}
	return params[i], true
}

// textParam returns the i-th parameter, or nil when it is absent.
func textParam(params []string, i int) *string {
	if p, ok := param(params, i); ok {
		return &p
	}
	return nil
}

// intParam returns the i-th parameter as a number, or nil when it is
// absent or not numeric.
func intParam(params []string, i int) *int {
	p, ok := param(params, i)
	if !ok {
		return nil
	}
	if n, ok := at.Number(p); ok {
		return &n
	}
	return nil
}

// enumParam is intParam restricted to the allowed codes.
func enumParam(params []string, i int, allowed ...int) *int {
	n := intParam(params, i)
	if n == nil || !slices.Contains(allowed, *n) {
		return nil
	}
	return n
}

// rangeParam is intParam restricted to lo..hi inclusive.
func rangeParam(params []string, i, lo, hi int) *int {
	n := intParam(params, i)
	if n == nil || *n < lo || *n > hi {
		return nil
	}
	return n
}

func rsrpDecibel(rsrp *int) *float64 {
	if rsrp == nil {
		return nil
	}
	return ptr(float64(*rsrp - 140))
}

func rsrqDecibel(rsrq *int) *float64 {
	if rsrq == nil {
		return nil
	}
	return ptr(float64(*rsrq)/2 - 19.5)
}

func snrDecibel(snr *int) *float64 {
	if snr == nil {
		return nil
	}
	return ptr(float64(*snr - 24))
}

// succeeded reports whether a response completed with OK.
func succeeded(c at.Classified) bool {
	return c.Status == at.StatusOK
}
