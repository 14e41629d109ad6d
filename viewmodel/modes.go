package viewmodel

import "i4.energy/across/cellmon/at"

// Functional modes accepted from +CFUN.
var functionalModes = []int{0, 1, 2, 4, 20, 21, 30, 31, 40, 41, 44}

func functionalModeProcessor() Processor {
	const cmd = "+CFUN"
	return Processor{
		Command:       cmd,
		Documentation: docBase + "mob_termination_ctrl_status/cfun.html",
		OnRequest: func(c at.Classified, s State) State {
			if c.Operator == at.OperatorRead {
				return State{Requests: s.withRequest(cmd, Request{Operator: c.Operator})}
			}
			if _, ok := s.request(cmd); ok {
				return State{Requests: s.withoutRequest(cmd)}
			}
			return State{}
		},
		// Responses only carry the mode when they answer a read.
		OnResponse: func(c at.Classified, s State) State {
			r, ok := s.request(cmd)
			if !ok {
				return State{}
			}
			patch := State{Requests: s.withoutRequest(cmd)}
			if r.Operator != at.OperatorRead || !succeeded(c) {
				return patch
			}
			params := at.Parameters(c.Payload)
			patch.FunctionalMode = enumParam(params, len(params)-1, functionalModes...)
			return patch
		},
	}
}

// enumProcessor stores the first parameter of a successful response when
// it is one of the allowed codes.
func enumProcessor(cmd, doc string, set func(*State, *int), allowed ...int) Processor {
	return Processor{
		Command:       cmd,
		Documentation: docBase + doc,
		OnResponse: func(c at.Classified, _ State) State {
			var patch State
			if !succeeded(c) {
				return patch
			}
			if v := enumParam(at.Parameters(c.Payload), 0, allowed...); v != nil {
				set(&patch, v)
			}
			return patch
		},
	}
}

func modeOfOperationProcessor() Processor {
	return enumProcessor("+CEMODE", "nw_service/cemode.html",
		func(s *State, v *int) { s.ModeOfOperation = v }, 0, 1, 2, 3)
}

func dataProfileProcessor() Processor {
	return enumProcessor("%XDATAPRFL", "nw_service/xdataprfl.html",
		func(s *State, v *int) { s.DataProfile = v }, 0, 1, 2, 3, 4)
}

func activityStatusProcessor() Processor {
	return enumProcessor("+CPAS", "mob_termination_ctrl_status/cpas.html",
		func(s *State, v *int) { s.ActivityStatus = v }, 0, 1, 2, 3, 4, 5)
}
