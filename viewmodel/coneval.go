package viewmodel

import "i4.energy/across/cellmon/at"

// Connection evaluation result codes. Anything but ConevalSuccess means
// the remaining parameters are absent.
const (
	ConevalSuccess = 0
	ConevalUnknown = 7
)

func conevalProcessor() Processor {
	return Processor{
		Command:       "%CONEVAL",
		Documentation: docBase + "mob_termination_ctrl_status/coneval.html",
		OnResponse: func(c at.Classified, s State) State {
			if !succeeded(c) {
				return State{}
			}
			params := at.Parameters(c.Payload)
			result := rangeParam(params, 0, ConevalSuccess, ConevalUnknown)
			if result == nil {
				return State{}
			}
			patch := State{
				ConevalResult:           result,
				NetworkStatusLastUpdate: ptr("coneval"),
			}
			if *result != ConevalSuccess {
				return patch
			}

			q := s.signalQuality()
			if rsrp := rangeParam(params, 3, 0, maxRSRP); rsrp != nil {
				q.RSRP, q.RSRPDecibel = rsrp, rsrpDecibel(rsrp)
			}
			if rsrq := rangeParam(params, 4, 0, maxRSRQ); rsrq != nil {
				q.RSRQ, q.RSRQDecibel = rsrq, rsrqDecibel(rsrq)
			}
			if snr := rangeParam(params, 5, 0, maxSNR); snr != nil {
				q.SNR, q.SNRDecibel = snr, snrDecibel(snr)
			}

			patch.RRCState = enumParam(params, 1, 0, 1)
			patch.ConevalEnergyEstimate = enumParam(params, 2, 5, 6, 7, 8, 9)
			patch.SignalQuality = &q
			patch.CellID = textParam(params, 6)
			patch.PLMN = textParam(params, 7)
			patch.PhysicalCellID = intParam(params, 8)
			patch.EARFCN = intParam(params, 9)
			patch.Band = intParam(params, 10)
			patch.TAUTriggered = enumParam(params, 11, 0, 1, 255)
			patch.ConevalCoverageEnhancementLevel = enumParam(params, 12, 0, 1, 2, 3, 255)
			patch.ConevalTXPower = intParam(params, 13)
			patch.ConevalTXRepetitions = intParam(params, 14)
			patch.ConevalRXRepetitions = intParam(params, 15)
			patch.ConevalDLPathLoss = intParam(params, 16)
			return patch
		},
	}
}
