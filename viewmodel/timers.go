package viewmodel

import (
	"strconv"
	"time"
)

// TimerKind selects the unit table used to decode a GPRS timer.
type TimerKind int

const (
	// ActiveTimer is T3324 (GPRS Timer 2).
	ActiveTimer TimerKind = iota
	// PeriodicTAU is the legacy T3412 (GPRS Timer).
	PeriodicTAU
	// PeriodicTAUExtended is T3412 extended (GPRS Timer 3).
	PeriodicTAUExtended
)

const deactivated = 0b111

var timerUnits = map[TimerKind]map[int64]time.Duration{
	ActiveTimer: {
		0b000: 2 * time.Second,
		0b001: time.Minute,
		0b010: 6 * time.Minute,
	},
	PeriodicTAU: {
		0b000: 2 * time.Second,
		0b001: time.Minute,
		0b010: 6 * time.Minute,
	},
	PeriodicTAUExtended: {
		0b000: 10 * time.Minute,
		0b001: time.Hour,
		0b010: 10 * time.Hour,
		0b011: 2 * time.Second,
		0b100: 30 * time.Second,
		0b101: time.Minute,
		0b110: 320 * time.Hour,
	},
}

// DecodeTimer decodes an eight character GPRS timer bit string. The three
// leading bits select the unit, the remaining five hold the value. It
// returns nil for anything that is not such a bit string.
func DecodeTimer(bits string, kind TimerKind) *Timer {
	if len(bits) != 8 {
		return nil
	}
	raw, err := strconv.ParseInt(bits, 2, 16)
	if err != nil || bits[0] == '+' || bits[0] == '-' {
		return nil
	}

	unit, value := raw>>5, raw&0b11111
	if unit == deactivated {
		return &Timer{Bits: bits}
	}
	step, ok := timerUnits[kind][unit]
	if !ok {
		// Other values are interpreted as multiples of 1 minute.
		step = time.Minute
	}
	return &Timer{Bits: bits, Activated: true, Duration: time.Duration(value) * step}
}

// psmValues builds PSM values from timer bit strings. Empty strings leave
// the corresponding timer unknown.
func psmValues(activeTime, periodicTAU, periodicTAUExt string) *PSMValues {
	v := &PSMValues{
		T3324:         DecodeTimer(activeTime, ActiveTimer),
		T3412:         DecodeTimer(periodicTAU, PeriodicTAU),
		T3412Extended: DecodeTimer(periodicTAUExt, PeriodicTAUExtended),
	}
	v.State = PSMOff
	if active(v.T3324) && (active(v.T3412) || active(v.T3412Extended)) {
		v.State = PSMOn
	}
	return v
}

func active(t *Timer) bool {
	return t != nil && t.Activated
}

// withGranted returns the PSM record of s with the granted values replaced.
func (s State) withGranted(v *PSMValues) *PowerSavingMode {
	psm := PowerSavingMode{}
	if s.PowerSavingMode != nil {
		psm = *s.PowerSavingMode
	}
	psm.Granted = v
	return &psm
}

// withRequested returns the PSM record of s with the requested values
// replaced.
func (s State) withRequested(v *PSMValues) *PowerSavingMode {
	psm := PowerSavingMode{}
	if s.PowerSavingMode != nil {
		psm = *s.PowerSavingMode
	}
	psm.Requested = v
	return &psm
}
