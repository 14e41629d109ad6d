package viewmodel

import "i4.energy/across/cellmon/at"

// signalingProcessor tracks +CSCON: whether connection status notifications
// are enabled and the RRC state they report.
func signalingProcessor() Processor {
	const cmd = "+CSCON"
	return Processor{
		Command:       cmd,
		Documentation: docBase + "packet_domain/cscon.html",
		OnRequest: func(c at.Classified, s State) State {
			r := Request{Operator: c.Operator}
			if c.Operator == at.OperatorSetWithValue {
				r.Payload = c.Payload
			}
			return State{Requests: s.withRequest(cmd, r)}
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

			switch r.Operator {
			case at.OperatorSetWithValue:
				patch.SignalingConnectionStatusNotifications = rangeParam(at.Parameters(r.Payload), 0, 0, 4)
			case at.OperatorRead:
				params := at.Parameters(c.Payload)
				patch.SignalingConnectionStatusNotifications = rangeParam(params, 0, 0, 4)
				patch.RRCState = enumParam(params, 1, 0, 1)
			}
			return patch
		},
		OnNotification: func(c at.Classified, _ State) State {
			return State{RRCState: enumParam(at.Parameters(c.Payload), 0, 0, 1)}
		},
	}
}
