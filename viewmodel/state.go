package viewmodel

import (
	"maps"
	"reflect"
	"time"

	"i4.energy/across/cellmon/at"
)

// State is the view model accumulated from a trace. A nil field is
// unknown. The same type doubles as a patch, where nil means untouched.
//
// Values reachable from a State are never modified after the State has
// been returned; every patch allocates its own.
type State struct {
	IMEI            *string `json:"imei,omitempty"`
	Manufacturer    *string `json:"manufacturer,omitempty"`
	RevisionID      *string `json:"revisionId,omitempty"`
	FirmwareVersion *string `json:"firmwareVersion,omitempty"`
	HardwareVersion *string `json:"hardwareVersion,omitempty"`
	ModemUUID       *string `json:"modemUuid,omitempty"`
	CurrentBand     *int    `json:"currentBand,omitempty"`
	AvailableBands  []int   `json:"availableBands,omitempty"`
	DataProfile     *int    `json:"dataProfile,omitempty"`
	ModeOfOperation *int    `json:"modeOfOperation,omitempty"`
	FunctionalMode  *int    `json:"functionalMode,omitempty"`
	ActivityStatus  *int    `json:"activityStatus,omitempty"`

	LTEMTXReduction  []TXReduction `json:"ltemTxReduction,omitempty"`
	NBIoTTXReduction []TXReduction `json:"nbiotTxReduction,omitempty"`

	IMSI          *string     `json:"imsi,omitempty"`
	ICCID         *string     `json:"iccid,omitempty"`
	PINCodeStatus *string     `json:"pinCodeStatus,omitempty"`
	PINRetries    *PINRetries `json:"pinRetries,omitempty"`

	RegStatus                              *int             `json:"regStatus,omitempty"`
	OperatorFullName                       *string          `json:"operatorFullName,omitempty"`
	OperatorShortName                      *string          `json:"operatorShortName,omitempty"`
	PLMN                                   *string          `json:"plmn,omitempty"`
	TAC                                    *string          `json:"tac,omitempty"`
	AcTState                               *int             `json:"acTState,omitempty"`
	Band                                   *int             `json:"band,omitempty"`
	CellID                                 *string          `json:"cellId,omitempty"`
	PhysicalCellID                         *int             `json:"physicalCellId,omitempty"`
	EARFCN                                 *int             `json:"earfcn,omitempty"`
	NWProvidedEDRXValue                    *string          `json:"nwProvidedEdrxValue,omitempty"`
	SignalQuality                          *SignalQuality   `json:"signalQuality,omitempty"`
	NotifySignalQuality                    *bool            `json:"notifySignalQuality,omitempty"`
	RRCState                               *int             `json:"rrcState,omitempty"`
	SignalingConnectionStatusNotifications *int             `json:"signalingConnectionStatusNotifications,omitempty"`
	PowerSavingMode                        *PowerSavingMode `json:"powerSavingMode,omitempty"`
	NotifyPeriodicTAU                      *bool            `json:"notifyPeriodicTau,omitempty"`
	PeriodicTAURemaining                   *time.Duration   `json:"periodicTauRemaining,omitempty"`

	ConevalResult                   *int    `json:"conevalResult,omitempty"`
	ConevalEnergyEstimate           *int    `json:"conevalEnergyEstimate,omitempty"`
	TAUTriggered                    *int    `json:"tauTriggered,omitempty"`
	ConevalCoverageEnhancementLevel *int    `json:"conevalCoverageEnhancementLevel,omitempty"`
	ConevalTXPower                  *int    `json:"conevalTxPower,omitempty"`
	ConevalTXRepetitions            *int    `json:"conevalTxRepetitions,omitempty"`
	ConevalRXRepetitions            *int    `json:"conevalRxRepetitions,omitempty"`
	ConevalDLPathLoss               *int    `json:"conevalDlPathLoss,omitempty"`
	NetworkStatusLastUpdate         *string `json:"networkStatusLastUpdate,omitempty"`

	// Requests holds what processors remember about the last request of
	// their command, keyed by mnemonic. Processors replace the whole map.
	Requests map[string]Request `json:"requests,omitempty"`
	// Pending is the request still waiting for its final result code. It
	// is maintained by the Decoder, never by processors.
	Pending *PendingRequest `json:"pending,omitempty"`
}

// Request is the part of a request a processor needs to interpret the
// response that follows it.
type Request struct {
	Operator at.Operator `json:"operator"`
	Payload  string      `json:"payload,omitempty"`
}

// PendingRequest is an outstanding request and the response lines
// received for it so far.
type PendingRequest struct {
	Command  string      `json:"command"`
	Operator at.Operator `json:"operator"`
	Payload  string      `json:"payload,omitempty"`
	Lines    []string    `json:"lines,omitempty"`
}

// PINRetries holds the remaining attempts per SIM code.
type PINRetries struct {
	SIMPIN  *int `json:"SIM_PIN,omitempty"`
	SIMPIN2 *int `json:"SIM_PIN2,omitempty"`
	SIMPUK  *int `json:"SIM_PUK,omitempty"`
	SIMPUK2 *int `json:"SIM_PUK2,omitempty"`
}

// SignalQuality holds raw signal indices and their values in dB.
type SignalQuality struct {
	RSRP               *int     `json:"rsrp,omitempty"`
	RSRPThresholdIndex *int     `json:"rsrpThresholdIndex,omitempty"`
	RSRPDecibel        *float64 `json:"rsrpDecibel,omitempty"`
	RSRQ               *int     `json:"rsrq,omitempty"`
	RSRQThresholdIndex *int     `json:"rsrqThresholdIndex,omitempty"`
	RSRQDecibel        *float64 `json:"rsrqDecibel,omitempty"`
	SNR                *int     `json:"snr,omitempty"`
	SNRDecibel         *float64 `json:"snrDecibel,omitempty"`
}

// TXReduction is a maximum output power reduction. Band 0 stands for all
// bands.
type TXReduction struct {
	Band      int     `json:"band"`
	Reduction int     `json:"reduction"`
	Decibel   float64 `json:"decibel"`
}

// PowerSavingMode holds the PSM parameters asked for by the host and the
// ones granted by the network.
type PowerSavingMode struct {
	Requested *PSMValues `json:"requested,omitempty"`
	Granted   *PSMValues `json:"granted,omitempty"`
}

// PSM states.
const (
	PSMOn  = "on"
	PSMOff = "off"
)

// PSMValues is one set of PSM timers.
type PSMValues struct {
	State         string `json:"state"`
	T3324         *Timer `json:"T3324,omitempty"`
	T3412         *Timer `json:"T3412,omitempty"`
	T3412Extended *Timer `json:"T3412Extended,omitempty"`
}

// Timer is a decoded 3GPP TS 24.008 GPRS timer.
type Timer struct {
	Bits      string        `json:"bits"`
	Activated bool          `json:"activated"`
	Duration  time.Duration `json:"duration"`
}

// Merge returns state with every non-nil field of patch applied.
// Nested records are replaced as a whole, so processors merge them
// against the current state before returning them. Pending is left
// alone.
func Merge(state, patch State) State {
	override(&state.IMEI, patch.IMEI)
	override(&state.Manufacturer, patch.Manufacturer)
	override(&state.RevisionID, patch.RevisionID)
	override(&state.FirmwareVersion, patch.FirmwareVersion)
	override(&state.HardwareVersion, patch.HardwareVersion)
	override(&state.ModemUUID, patch.ModemUUID)
	override(&state.CurrentBand, patch.CurrentBand)
	if patch.AvailableBands != nil {
		state.AvailableBands = patch.AvailableBands
	}
	override(&state.DataProfile, patch.DataProfile)
	override(&state.ModeOfOperation, patch.ModeOfOperation)
	override(&state.FunctionalMode, patch.FunctionalMode)
	override(&state.ActivityStatus, patch.ActivityStatus)
	if patch.LTEMTXReduction != nil {
		state.LTEMTXReduction = patch.LTEMTXReduction
	}
	if patch.NBIoTTXReduction != nil {
		state.NBIoTTXReduction = patch.NBIoTTXReduction
	}

	override(&state.IMSI, patch.IMSI)
	override(&state.ICCID, patch.ICCID)
	override(&state.PINCodeStatus, patch.PINCodeStatus)
	override(&state.PINRetries, patch.PINRetries)

	override(&state.RegStatus, patch.RegStatus)
	override(&state.OperatorFullName, patch.OperatorFullName)
	override(&state.OperatorShortName, patch.OperatorShortName)
	override(&state.PLMN, patch.PLMN)
	override(&state.TAC, patch.TAC)
	override(&state.AcTState, patch.AcTState)
	override(&state.Band, patch.Band)
	override(&state.CellID, patch.CellID)
	override(&state.PhysicalCellID, patch.PhysicalCellID)
	override(&state.EARFCN, patch.EARFCN)
	override(&state.NWProvidedEDRXValue, patch.NWProvidedEDRXValue)
	override(&state.SignalQuality, patch.SignalQuality)
	override(&state.NotifySignalQuality, patch.NotifySignalQuality)
	override(&state.RRCState, patch.RRCState)
	override(&state.SignalingConnectionStatusNotifications, patch.SignalingConnectionStatusNotifications)
	override(&state.PowerSavingMode, patch.PowerSavingMode)
	override(&state.NotifyPeriodicTAU, patch.NotifyPeriodicTAU)
	override(&state.PeriodicTAURemaining, patch.PeriodicTAURemaining)

	override(&state.ConevalResult, patch.ConevalResult)
	override(&state.ConevalEnergyEstimate, patch.ConevalEnergyEstimate)
	override(&state.TAUTriggered, patch.TAUTriggered)
	override(&state.ConevalCoverageEnhancementLevel, patch.ConevalCoverageEnhancementLevel)
	override(&state.ConevalTXPower, patch.ConevalTXPower)
	override(&state.ConevalTXRepetitions, patch.ConevalTXRepetitions)
	override(&state.ConevalRXRepetitions, patch.ConevalRXRepetitions)
	override(&state.ConevalDLPathLoss, patch.ConevalDLPathLoss)
	override(&state.NetworkStatusLastUpdate, patch.NetworkStatusLastUpdate)

	if patch.Requests != nil {
		state.Requests = patch.Requests
	}
	return state
}

func override[T any](dst **T, src *T) {
	if src != nil {
		*dst = src
	}
}

// IsEmpty reports whether a patch touches nothing.
func (s State) IsEmpty() bool {
	return reflect.DeepEqual(s, State{})
}

// request returns what was remembered about the last request for cmd.
func (s State) request(cmd string) (Request, bool) {
	r, ok := s.Requests[cmd]
	return r, ok
}

// withRequest returns a copy of the request map with cmd set to r.
func (s State) withRequest(cmd string, r Request) map[string]Request {
	m := make(map[string]Request, len(s.Requests)+1)
	maps.Copy(m, s.Requests)
	m[cmd] = r
	return m
}

// withoutRequest returns a copy of the request map without cmd.
func (s State) withoutRequest(cmd string) map[string]Request {
	m := make(map[string]Request, len(s.Requests))
	for k, v := range s.Requests {
		if k != cmd {
			m[k] = v
		}
	}
	return m
}
