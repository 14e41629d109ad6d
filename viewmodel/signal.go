package viewmodel

import "i4.energy/across/cellmon/at"

// Raw index ranges. Codes above them (255 for RSRP and RSRQ, 127 for
// SNR) mean not known or not detectable.
const (
	maxRSRP = 97
	maxRSRQ = 34
	maxSNR  = 49
)

// extSignalQualityProcessor tracks %CESQ: whether signal quality
// notifications are enabled and the values they report.
func extSignalQualityProcessor() Processor {
	const cmd = "%CESQ"
	return Processor{
		Command:       cmd,
		Documentation: docBase + "nw_service/cesq_proprietary.html",
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

			var n *int
			switch r.Operator {
			case at.OperatorSetWithValue:
				n = enumParam(at.Parameters(r.Payload), 0, 0, 1)
			case at.OperatorRead:
				n = enumParam(at.Parameters(c.Payload), 0, 0, 1)
			}
			if n != nil {
				patch.NotifySignalQuality = ptr(*n == 1)
			}
			return patch
		},
		OnNotification: func(c at.Classified, s State) State {
			params := at.Parameters(c.Payload)
			if len(params) < 4 {
				return State{}
			}
			q := s.signalQuality()
			if rsrp := rangeParam(params, 0, 0, maxRSRP); rsrp != nil {
				q.RSRP, q.RSRPDecibel = rsrp, rsrpDecibel(rsrp)
			}
			if idx := rangeParam(params, 1, 0, 4); idx != nil {
				q.RSRPThresholdIndex = idx
			}
			if rsrq := rangeParam(params, 2, 0, maxRSRQ); rsrq != nil {
				q.RSRQ, q.RSRQDecibel = rsrq, rsrqDecibel(rsrq)
			}
			if idx := rangeParam(params, 3, 0, 4); idx != nil {
				q.RSRQThresholdIndex = idx
			}
			return State{SignalQuality: &q}
		},
	}
}

// signalQualityProcessor decodes the +CESQ response
// <rxlev>,<ber>,<rscp>,<ecno>,<rsrq>,<rsrp>.
func signalQualityProcessor() Processor {
	return Processor{
		Command:       "+CESQ",
		Documentation: docBase + "nw_service/cesq.html",
		OnResponse: func(c at.Classified, s State) State {
			if !succeeded(c) {
				return State{}
			}
			params := at.Parameters(c.Payload)
			if len(params) != 6 {
				return State{}
			}
			q := s.signalQuality()
			if rsrq := rangeParam(params, 4, 0, maxRSRQ); rsrq != nil {
				q.RSRQ, q.RSRQDecibel = rsrq, rsrqDecibel(rsrq)
			}
			if rsrp := rangeParam(params, 5, 0, maxRSRP); rsrp != nil {
				q.RSRP, q.RSRPDecibel = rsrp, rsrpDecibel(rsrp)
			}
			return State{SignalQuality: &q}
		},
	}
}
