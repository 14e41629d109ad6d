package modem

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Macros are named command sequences for nRF91 modems that populate the
// decoded state.
var Macros = map[string][]string{
	"recommended":  recommended,
	"dashboard":    dashboard,
	"ltem-report":  ltemReport,
	"nbiot-report": nbiotReport,
	"full-report":  slices.Concat(ltemReport, nbiotReport),
}

var recommended = []string{
	"AT+CFUN=1",
	"AT+CGSN=1",
	"AT+CGMI",
	"AT+CGMM",
	"AT+CGMR",
	"AT+CEMODE?",
	"AT%XCBAND=?",
	"AT+CMEE?",
	"AT+CNEC?",
	"AT+CGEREP?",
	"AT+CIND=1,1,1",
	"AT+CEREG=5",
	"AT+CEREG?",
	"AT+COPS=3,2",
	"AT+COPS?",
	"AT%XCBAND",
	"AT+CGDCONT?",
	"AT+CGACT?",
	"AT%CESQ=1",
	"AT+CESQ",
	"AT%XSIM=1",
	"AT%XSIM?",
	"AT+CPIN?",
	`AT+CPINR="SIM PIN"`,
	"AT+CIMI",
	"AT+CNEC=24",
	"AT+CMEE=1",
	"AT+CEER",
	"AT%MDMEV=1",
	"AT+CGEREP=1",
	"AT%XTIME=1",
	"AT+CSCON=1",
	"AT%XPOFWARN=1,30",
	"AT%XVBATLVL=1",
	"AT%XMONITOR",
	"AT%CONEVAL",
	"AT%XCONNSTAT=1",
	"AT%XCONNSTAT?",
	"AT%HWVERSION",
	"AT%XMODEMUUID",
	"AT%XDATAPRFL?",
	"AT%XSYSTEMMODE?",
}

// dashboard fills every dashboard field once. +COPS=? is slow and stays
// last.
var dashboard = []string{
	"AT+CGMI",
	"AT+CGMR",
	"AT+CGSN",
	"AT%XMODEMUUID",
	"AT%XDATAPRFL?",
	"AT+CEREG?",
	"AT+CFUN?",
	"AT%CESQ=1",
	"AT%CESQ?",
	"AT+CSCON=1",
	"AT+CSCON?",
	"AT+CPAS",
	"AT+CEDRXRDP",
	"AT%XTIME=1",
	"AT%CONEVAL",
	"AT%XCBAND?",
	"AT%XCBAND",
	"AT%HWVERSION",
	"AT%XSYSTEMMODE?",
	"AT%XEMPR?",
	"AT+COPS?",
	"AT+COPS=?",
}

var (
	analysisSetup = []string{
		"AT+CFUN=4",
		"AT+CPSMS=",
		"AT+CGMR",
		"AT+CNEC=24",
		"AT+CGEREP=1",
		"AT%MDMEV=1",
		"AT+CEREG=5",
		"AT%XSIM=1",
		"AT+CSCON=1",
		"AT%REL14FEAT=0,1,0,0,0",
	}
	simCardSetup = []string{
		"AT+CFUN=41",
		"AT+CNUM",
		"AT+CIMI",
		"AT%XICCID",
		"AT+CPIN?",
	}
	startupModem = []string{
		"AT%XSYSTEMMODE=1,0,0,0",
		"AT+CFUN=1",
		"AT%CONEVAL",
		"AT%XMONITOR",
		"AT+CGDCONT?",
		"AT%NBRGRSRP",
	}
	setupNBIoT = []string{
		"AT+CFUN=4",
		"AT%RAI=0",
		"AT%XSYSTEMMODE=0,1,0,0",
		"AT+CFUN=1",
		"AT%CONEVAL",
		"AT%XMONITOR",
		"AT+CGDCONT?",
		"AT%NBRGRSRP",
	}
	checkRAI = []string{"AT%RAI=1"}
	// T3412 and T3324, then eDRX.
	checkPSM = []string{
		`AT+CPSMS=1,"","","11000001","01011111"`,
		`AT+CEDRXS=2,4,"0000","0000"`,
	}
	availableOperators = []string{"AT%COPS=?"}
)

var (
	ltemReport  = slices.Concat(analysisSetup, simCardSetup, startupModem, checkRAI, checkPSM, availableOperators)
	nbiotReport = slices.Concat(setupNBIoT, checkRAI, checkPSM, availableOperators)
)

// MacroNames returns the names of Macros in sorted order.
func MacroNames() []string {
	return slices.Sorted(maps.Keys(Macros))
}

// RunMacro executes the named macro with RunCommands.
func (m *Modem) RunMacro(ctx context.Context, name string) error {
	cmds, ok := Macros[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMacro, name)
	}
	return m.RunCommands(ctx, cmds)
}

// RunCommands executes cmds in order. A command ending in an error result
// code does not stop the sequence; those failures are joined into the
// returned error. Any other failure aborts.
func (m *Modem) RunCommands(ctx context.Context, cmds []string) error {
	var failed []error
	for _, cmd := range cmds {
		if _, err := m.Exec(ctx, cmd); err != nil {
			if !errors.Is(err, ErrCommandFailed) {
				return errors.Join(append(failed, fmt.Errorf("%s: %w", cmd, err))...)
			}
			m.logger.Info("Command failed", "command", cmd, "error", err)
			failed = append(failed, fmt.Errorf("%s: %w", cmd, err))
		}
	}
	return errors.Join(failed...)
}
