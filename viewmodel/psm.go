package viewmodel

import "i4.energy/across/cellmon/at"

// psmProcessor tracks the PSM parameters requested with +CPSMS:
//
//	<mode>,<periodic_RAU>,<GPRS_READY_timer>,<periodic_TAU>,<active_time>
//
// Set requests only take effect once the modem accepts them.
func psmProcessor() Processor {
	const cmd = "+CPSMS"
	return Processor{
		Command:       cmd,
		Documentation: docBase + "nw_service/cpsms.html",
		OnRequest: func(c at.Classified, s State) State {
			return State{Requests: s.withRequest(cmd, Request{Operator: c.Operator, Payload: c.Payload})}
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

			var params []string
			switch r.Operator {
			case at.OperatorSetWithValue:
				params = at.Parameters(r.Payload)
			case at.OperatorRead:
				params = at.Parameters(c.Payload)
				if len(params) == 0 {
					return patch
				}
			default:
				return patch
			}
			patch.PowerSavingMode = s.withRequested(requestedPSM(params))
			return patch
		},
	}
}

func requestedPSM(params []string) *PSMValues {
	if mode, _ := param(params, 0); mode != "1" {
		// Mode 0, or no parameters at all, disables PSM.
		return &PSMValues{State: PSMOff}
	}
	periodicTAU, _ := param(params, 3)
	activeTime, _ := param(params, 4)
	return psmValues(activeTime, "", periodicTAU)
}
