package viewmodel

import (
	"strings"

	"i4.energy/across/cellmon/at"
)

// bandProcessor tracks %XCBAND. A test request lists the supported bands,
// any other request reports the current one.
func bandProcessor() Processor {
	const cmd = "%XCBAND"
	return Processor{
		Command:       cmd,
		Documentation: docBase + "nw_service/xcband.html",
		OnRequest: func(c at.Classified, s State) State {
			return State{Requests: s.withRequest(cmd, Request{Operator: c.Operator})}
		},
		OnResponse: func(c at.Classified, s State) State {
			r, ok := s.request(cmd)
			if !ok {
				return State{}
			}
			patch := State{Requests: s.withoutRequest(cmd)}
			if !succeeded(c) {
				return patch
			}

			if r.Operator == at.OperatorTest {
				list := strings.Trim(strings.TrimSpace(c.Payload), "()")
				bands := at.NumberList(list)
				if len(bands) == 0 || at.HasNaN(bands) {
					return patch
				}
				patch.AvailableBands = make([]int, len(bands))
				for i, b := range bands {
					patch.AvailableBands[i] = int(b)
				}
				return patch
			}

			patch.CurrentBand = intParam(at.Parameters(c.Payload), 0)
			return patch
		},
	}
}
