package viewmodel

import "i4.energy/across/cellmon/at"

func pinStatusProcessor() Processor {
	return textProcessor("+CPIN", "security/cpin.html", lastParam, func(s *State, v string) { s.PINCodeStatus = &v })
}

func pinRetriesProcessor() Processor {
	return Processor{
		Command:       "+CPINR",
		Documentation: docBase + "security/cpinr.html",
		OnResponse: func(c at.Classified, s State) State {
			if !succeeded(c) {
				return State{}
			}
			params := at.Parameters(c.Payload)
			if len(params) != 2 {
				return State{}
			}
			retries := intParam(params, 1)
			if retries == nil {
				return State{}
			}

			var r PINRetries
			if s.PINRetries != nil {
				r = *s.PINRetries
			}
			switch params[0] {
			case "SIM PIN":
				r.SIMPIN = retries
			case "SIM PIN2":
				r.SIMPIN2 = retries
			case "SIM PUK":
				r.SIMPUK = retries
			case "SIM PUK2":
				r.SIMPUK2 = retries
			default:
				return State{}
			}
			return State{PINRetries: &r}
		},
	}
}
