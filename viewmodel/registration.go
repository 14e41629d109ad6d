package viewmodel

import "i4.energy/across/cellmon/at"

// registrationProcessor decodes +CEREG. Notifications carry
//
//	<stat>[,<tac>,<ci>,<AcT>[,<cause_type>,<reject_cause>[,<active_time>,<periodic_tau_ext>]]]
//
// and read responses prefix the same list with the notification level <n>.
func registrationProcessor() Processor {
	const cmd = "+CEREG"
	return Processor{
		Command:       cmd,
		Documentation: docBase + "nw_service/cereg.html",
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
			params := at.Parameters(c.Payload)
			if r.Operator == at.OperatorRead && len(params) > 0 {
				params = params[1:]
			}
			registration(params, s, &patch)
			return patch
		},
		OnNotification: func(c at.Classified, s State) State {
			var patch State
			registration(at.Parameters(c.Payload), s, &patch)
			return patch
		},
	}
}

func registration(params []string, s State, patch *State) {
	if len(params) == 0 {
		return
	}
	patch.RegStatus = enumParam(params, 0, regStatuses...)
	if tac, ok := param(params, 1); ok && tac != "" {
		patch.TAC = &tac
	}
	if ci, ok := param(params, 2); ok && ci != "" {
		patch.CellID = &ci
	}
	patch.AcTState = enumParam(params, 3, accessTechnologies...)

	active, _ := param(params, 6)
	periodicExt, _ := param(params, 7)
	if active != "" || periodicExt != "" {
		patch.PowerSavingMode = s.withGranted(psmValues(active, "", periodicExt))
	}
}
