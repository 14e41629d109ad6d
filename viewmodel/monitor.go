package viewmodel

import "i4.energy/across/cellmon/at"

// Registration states shared by +CEREG and %XMONITOR.
var regStatuses = []int{0, 1, 2, 3, 4, 5, 8, 90}

// Access technologies: LTE-M and NB-IoT.
var accessTechnologies = []int{7, 9}

// signalQuality returns a copy of the signal quality record of s.
func (s State) signalQuality() SignalQuality {
	if s.SignalQuality == nil {
		return SignalQuality{}
	}
	return *s.SignalQuality
}

// monitorProcessor decodes %XMONITOR. Modem firmware 1.0 and 1.1 report
// 15 parameters ending in the periodic TAU timer; 1.2 and later insert the
// extended periodic TAU timer before it.
func monitorProcessor() Processor {
	return Processor{
		Command:       "%XMONITOR",
		Documentation: docBase + "nw_service/xmonitor.html",
		InitialState: func() State {
			return State{RegStatus: ptr(0)}
		},
		OnResponse: func(c at.Classified, s State) State {
			if !succeeded(c) {
				return State{}
			}
			params := at.Parameters(c.Payload)

			var psm *PSMValues
			switch len(params) {
			case 15:
				psm = psmValues(params[13], params[14], "")
			case 16:
				psm = psmValues(params[13], params[15], params[14])
			default:
				return State{}
			}

			q := s.signalQuality()
			if rsrp := rangeParam(params, 10, 0, maxRSRP); rsrp != nil {
				q.RSRP, q.RSRPDecibel = rsrp, rsrpDecibel(rsrp)
			}
			if snr := rangeParam(params, 11, 0, maxSNR); snr != nil {
				q.SNR, q.SNRDecibel = snr, snrDecibel(snr)
			}

			return State{
				RegStatus:           enumParam(params, 0, regStatuses...),
				OperatorFullName:    textParam(params, 1),
				OperatorShortName:   textParam(params, 2),
				PLMN:                textParam(params, 3),
				TAC:                 textParam(params, 4),
				AcTState:            enumParam(params, 5, accessTechnologies...),
				Band:                intParam(params, 6),
				CellID:              textParam(params, 7),
				PhysicalCellID:      intParam(params, 8),
				EARFCN:              intParam(params, 9),
				SignalQuality:       &q,
				NWProvidedEDRXValue: textParam(params, 12),
				PowerSavingMode:     s.withGranted(psm),
			}
		},
	}
}
