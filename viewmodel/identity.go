package viewmodel

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"i4.energy/across/cellmon/at"
)

const docBase = "https://infocenter.nordicsemi.com/topic/ref_at_commands/REF/at_commands/"

// lastParam returns the last parameter of a successful response.
func lastParam(c at.Classified) (string, bool) {
	if !succeeded(c) {
		return "", false
	}
	params := at.Parameters(c.Payload)
	if len(params) == 0 || params[len(params)-1] == "" {
		return "", false
	}
	return params[len(params)-1], true
}

// text returns the payload of a successful response as a single line.
func text(c at.Classified) (string, bool) {
	if !succeeded(c) {
		return "", false
	}
	t := strings.TrimSpace(strings.ReplaceAll(c.Payload, "\n", " "))
	return t, t != ""
}

// textProcessor stores the result of pick into the field chosen by set.
func textProcessor(cmd, doc string, pick func(at.Classified) (string, bool), set func(*State, string)) Processor {
	return Processor{
		Command:       cmd,
		Documentation: docBase + doc,
		OnResponse: func(c at.Classified, _ State) State {
			var patch State
			if v, ok := pick(c); ok {
				set(&patch, v)
			}
			return patch
		},
	}
}

func imeiProcessor() Processor {
	return textProcessor("+CGSN", "general/cgsn.html", lastParam, func(s *State, v string) { s.IMEI = &v })
}

func manufacturerProcessor() Processor {
	return textProcessor("+CGMI", "general/cgmi.html", text, func(s *State, v string) { s.Manufacturer = &v })
}

var firmwareVersion = regexp.MustCompile(`_(\d+\.\d+\.\d+)`)

func revisionProcessor() Processor {
	return textProcessor("+CGMR", "general/cgmr.html", text, func(s *State, v string) {
		s.RevisionID = &v
		if m := firmwareVersion.FindStringSubmatch(v); m != nil {
			s.FirmwareVersion = &m[1]
		}
	})
}

func hardwareVersionProcessor() Processor {
	return textProcessor("%HWVERSION", "general/hwversion.html", lastParam, func(s *State, v string) { s.HardwareVersion = &v })
}

func modemUUIDProcessor() Processor {
	return textProcessor("%XMODEMUUID", "general/modemuuid.html", lastParam, func(s *State, v string) {
		if id, err := uuid.Parse(v); err == nil {
			s.ModemUUID = ptr(id.String())
		}
	})
}

func imsiProcessor() Processor {
	return textProcessor("+CIMI", "access_uicc/cimi.html", text, func(s *State, v string) { s.IMSI = &v })
}

func iccidProcessor() Processor {
	return textProcessor("%XICCID", "access_uicc/xiccid.html", lastParam, func(s *State, v string) { s.ICCID = &v })
}
