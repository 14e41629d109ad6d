package viewmodel

import (
	"time"

	"i4.energy/across/cellmon/at"
)

// periodicTAUProcessor tracks %XT3412. A set request subscribes to
// (1) or unsubscribes from (0) notifications reporting the time left
// until the next periodic tracking area update, in milliseconds.
func periodicTAUProcessor() Processor {
	const cmd = "%XT3412"
	return Processor{
		Command:       cmd,
		Documentation: docBase + "nw_service/xt3412.html",
		InitialState: func() State {
			return State{NotifyPeriodicTAU: ptr(false)}
		},
		OnRequest: func(c at.Classified, s State) State {
			return State{Requests: s.withRequest(cmd, Request{Operator: c.Operator, Payload: c.Payload})}
		},
		OnResponse: func(c at.Classified, s State) State {
			r, ok := s.request(cmd)
			if !ok {
				return State{}
			}
			patch := State{Requests: s.withoutRequest(cmd)}
			if !succeeded(c) || r.Operator != at.OperatorSetWithValue {
				return patch
			}
			if n := enumParam(at.Parameters(r.Payload), 0, 0, 1); n != nil {
				patch.NotifyPeriodicTAU = ptr(*n == 1)
			}
			return patch
		},
		OnNotification: func(c at.Classified, _ State) State {
			ms := intParam(at.Parameters(c.Payload), 0)
			if ms == nil || *ms < 0 {
				return State{}
			}
			return State{PeriodicTAURemaining: ptr(time.Duration(*ms) * time.Millisecond)}
		},
	}
}
