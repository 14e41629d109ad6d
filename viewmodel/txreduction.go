package viewmodel

import (
	"strings"

	"i4.energy/across/cellmon/at"
)

// System modes of %XEMPR.
const (
	systemModeLTEM  = 0
	systemModeNBIoT = 1
)

// txReductionProcessor tracks %XEMPR, the maximum output power reduction
// per system mode. A set request and each read response line carry
//
//	<system_mode>,<k>,<band0>,<pr0>,...,<bandk-1>,<prk-1>
//
// or, for all bands at once, <system_mode>,0,<pr>. Reductions come in
// steps of 0.5 dB.
func txReductionProcessor() Processor {
	const cmd = "%XEMPR"
	return Processor{
		Command:       cmd,
		Documentation: docBase + "mob_termination_ctrl_status/xempr.html",
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

			var lines []string
			switch r.Operator {
			case at.OperatorSetWithValue:
				lines = []string{r.Payload}
			case at.OperatorRead:
				lines = strings.Split(c.Payload, "\n")
			}
			for _, line := range lines {
				mode, reductions, ok := txReductions(at.Parameters(line))
				if !ok {
					continue
				}
				switch mode {
				case systemModeLTEM:
					patch.LTEMTXReduction = reductions
				case systemModeNBIoT:
					patch.NBIoTTXReduction = reductions
				}
			}
			return patch
		},
	}
}

func txReductions(params []string) (int, []TXReduction, bool) {
	mode := enumParam(params, 0, systemModeLTEM, systemModeNBIoT)
	k := intParam(params, 1)
	if mode == nil || k == nil || *k < 0 {
		return 0, nil, false
	}

	if *k == 0 {
		pr := intParam(params, 2)
		if pr == nil || *pr < 0 || len(params) != 3 {
			return 0, nil, false
		}
		return *mode, []TXReduction{reduction(0, *pr)}, true
	}

	if len(params) != 2*(*k+1) {
		return 0, nil, false
	}
	reductions := make([]TXReduction, 0, *k)
	for i := 2; i < len(params); i += 2 {
		band, pr := intParam(params, i), intParam(params, i+1)
		if band == nil || *band <= 0 || pr == nil || *pr < 0 {
			return 0, nil, false
		}
		reductions = append(reductions, reduction(*band, *pr))
	}
	return *mode, reductions, true
}

func reduction(band, pr int) TXReduction {
	return TXReduction{Band: band, Reduction: pr, Decibel: float64(pr) / 2}
}
