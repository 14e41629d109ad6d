package viewmodel_test

import (
	"reflect"
	"testing"
	"time"

	"i4.energy/across/cellmon/viewmodel"
)

func TestIdentity(t *testing.T) {
	s := replay(t,
		"AT+CGSN=1", "+CGSN: \"352656106647673\"\r\nOK\r\n",
		"AT+CGMI", "Nordic Semiconductor ASA\r\nOK\r\n",
		"AT+CGMR", "mfw_nrf9160_1.3.2\r\nOK\r\n",
		"AT%HWVERSION", "%HWVERSION: nRF9160 SICA B0A\r\nOK\r\n",
		"AT%XMODEMUUID", "%XMODEMUUID: 25C95751-EFA4-40D4-8B4A-1DCAAB81FAC9\r\nOK\r\n",
		"AT+CIMI", "204080813630037\r\nOK\r\n",
		"AT%XICCID", "%XICCID: 8901234567012345678F\r\nOK\r\n",
		"AT+CPIN?", "+CPIN: READY\r\nOK\r\n",
	)

	stringValue(t, "IMEI", s.IMEI, "352656106647673")
	stringValue(t, "Manufacturer", s.Manufacturer, "Nordic Semiconductor ASA")
	stringValue(t, "RevisionID", s.RevisionID, "mfw_nrf9160_1.3.2")
	stringValue(t, "FirmwareVersion", s.FirmwareVersion, "1.3.2")
	stringValue(t, "HardwareVersion", s.HardwareVersion, "nRF9160 SICA B0A")
	stringValue(t, "ModemUUID", s.ModemUUID, "25c95751-efa4-40d4-8b4a-1dcaab81fac9")
	stringValue(t, "IMSI", s.IMSI, "204080813630037")
	stringValue(t, "ICCID", s.ICCID, "8901234567012345678F")
	stringValue(t, "PINCodeStatus", s.PINCodeStatus, "READY")
}

func TestIdentityIgnoresFailures(t *testing.T) {
	s := replay(t,
		"AT+CGSN", "+CME ERROR: 10\r\n",
		"AT%XMODEMUUID", "%XMODEMUUID: not-a-uuid\r\nOK\r\n",
		"AT+CGMR", "custom_build\r\nOK\r\n",
	)
	if s.IMEI != nil {
		t.Errorf("IMEI = %q, want nil", *s.IMEI)
	}
	if s.ModemUUID != nil {
		t.Errorf("ModemUUID = %q, want nil", *s.ModemUUID)
	}
	stringValue(t, "RevisionID", s.RevisionID, "custom_build")
	if s.FirmwareVersion != nil {
		t.Errorf("FirmwareVersion = %q, want nil", *s.FirmwareVersion)
	}
}

func TestPINRetriesAreMergedPerCode(t *testing.T) {
	s := replay(t,
		"AT+CPINR=\"SIM PIN\"", "+CPINR: \"SIM PIN\",3", "OK",
		"AT+CPINR=\"SIM PUK\"", "+CPINR: \"SIM PUK\",10\r\nOK\r\n",
		"AT+CPINR=\"SIM PIN2\"", "+CPINR: \"SIM PIN2\",x\r\nOK\r\n",
	)
	if s.PINRetries == nil {
		t.Fatal("PINRetries = nil")
	}
	intValue(t, "SIMPIN", s.PINRetries.SIMPIN, 3)
	intValue(t, "SIMPUK", s.PINRetries.SIMPUK, 10)
	if s.PINRetries.SIMPIN2 != nil {
		t.Errorf("SIMPIN2 = %d, want nil", *s.PINRetries.SIMPIN2)
	}
}

func TestConnectionEvaluation(t *testing.T) {
	s := replay(t,
		"AT+%CONEVAL",
		"%CONEVAL: 0,1,5,8,2,14,\"011B0780\",\"26201\",7,1575,3,1,1,23,16,32,130\r\nOK\r\n",
	)

	intValue(t, "ConevalResult", s.ConevalResult, 0)
	stringValue(t, "NetworkStatusLastUpdate", s.NetworkStatusLastUpdate, "coneval")
	intValue(t, "RRCState", s.RRCState, 1)
	intValue(t, "ConevalEnergyEstimate", s.ConevalEnergyEstimate, 5)
	stringValue(t, "CellID", s.CellID, "011B0780")
	stringValue(t, "PLMN", s.PLMN, "26201")
	intValue(t, "PhysicalCellID", s.PhysicalCellID, 7)
	intValue(t, "EARFCN", s.EARFCN, 1575)
	intValue(t, "Band", s.Band, 3)
	intValue(t, "TAUTriggered", s.TAUTriggered, 1)
	intValue(t, "ConevalCoverageEnhancementLevel", s.ConevalCoverageEnhancementLevel, 1)
	intValue(t, "ConevalTXPower", s.ConevalTXPower, 23)
	intValue(t, "ConevalTXRepetitions", s.ConevalTXRepetitions, 16)
	intValue(t, "ConevalRXRepetitions", s.ConevalRXRepetitions, 32)
	intValue(t, "ConevalDLPathLoss", s.ConevalDLPathLoss, 130)

	q := s.SignalQuality
	if q == nil {
		t.Fatal("SignalQuality = nil")
	}
	intValue(t, "RSRP", q.RSRP, 8)
	floatValue(t, "RSRPDecibel", q.RSRPDecibel, -132)
	intValue(t, "RSRQ", q.RSRQ, 2)
	floatValue(t, "RSRQDecibel", q.RSRQDecibel, -18.5)
	intValue(t, "SNR", q.SNR, 14)
	floatValue(t, "SNRDecibel", q.SNRDecibel, -10)
}

func TestConnectionEvaluationZeroIndicesAreDecoded(t *testing.T) {
	s := replay(t, "AT%CONEVAL", "%CONEVAL: 0,0,9,0,0,0,\"011B0780\",\"26201\",7,1575,3,0,0,0,1,1,0\r\nOK\r\n")
	if s.SignalQuality == nil {
		t.Fatal("SignalQuality = nil")
	}
	floatValue(t, "RSRPDecibel", s.SignalQuality.RSRPDecibel, -140)
	floatValue(t, "RSRQDecibel", s.SignalQuality.RSRQDecibel, -19.5)
	floatValue(t, "SNRDecibel", s.SignalQuality.SNRDecibel, -24)
}

func TestUnknownRadioCodesHaveNoDecibels(t *testing.T) {
	tests := []struct {
		name    string
		packets []string
	}{
		{
			name: "XMONITOR",
			packets: []string{
				"AT%XMONITOR",
				"%XMONITOR: 1,\"Telia N@\",\"Telia N@\",\"24202\",\"0901\",7,20,\"02024720\",428,6300,255,127,\"\",\"00000110\",\"00001010\",\"01001001\"\r\nOK\r\n",
			},
		},
		{
			name: "CONEVAL",
			packets: []string{
				"AT%CONEVAL",
				"%CONEVAL: 0,1,5,255,255,127,\"011B0780\",\"26201\",7,1575,3,1,1,23,16,32,130\r\nOK\r\n",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := replay(t, tt.packets...)
			q := s.SignalQuality
			if q == nil {
				t.Fatal("SignalQuality = nil")
			}
			if q.RSRP != nil || q.RSRPDecibel != nil {
				t.Errorf("RSRP = %v, %v, want unknown", q.RSRP, q.RSRPDecibel)
			}
			if q.RSRQ != nil || q.RSRQDecibel != nil {
				t.Errorf("RSRQ = %v, %v, want unknown", q.RSRQ, q.RSRQDecibel)
			}
			if q.SNR != nil || q.SNRDecibel != nil {
				t.Errorf("SNR = %v, %v, want unknown", q.SNR, q.SNRDecibel)
			}
		})
	}
}

func TestConnectionEvaluationFailure(t *testing.T) {
	s := replay(t,
		"AT%XMONITOR",
		"%XMONITOR: 5,\"Telia N@\",\"Telia N@\",\"24202\",\"0901\",7,20,\"02024720\",428,6300,53,22,\"\",\"00000110\",\"01001001\"\r\nOK\r\n",
		"AT%CONEVAL", "%CONEVAL: 1\r\nOK\r\n",
	)
	intValue(t, "ConevalResult", s.ConevalResult, 1)
	stringValue(t, "NetworkStatusLastUpdate", s.NetworkStatusLastUpdate, "coneval")
	intValue(t, "Band", s.Band, 20)
	if s.RRCState != nil {
		t.Errorf("RRCState = %d, want nil", *s.RRCState)
	}
}

func TestSignalingConnection(t *testing.T) {
	tests := []struct {
		name          string
		texts         []string
		notifications *int
		rrc           *int
	}{
		{name: "Set", texts: []string{"AT+CSCON=1", "OK\r\n"}, notifications: ptr(1)},
		{name: "Set rejected", texts: []string{"AT+CSCON=9", "ERROR\r\n"}},
		{name: "Read", texts: []string{"AT+CSCON?", "+CSCON: 1,0\r\nOK\r\n"}, notifications: ptr(1), rrc: ptr(0)},
		{name: "Notification", texts: []string{"+CSCON: 1"}, rrc: ptr(1)},
		{name: "Notification with invalid mode", texts: []string{"+CSCON: 7"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := replay(t, tt.texts...)
			if !reflect.DeepEqual(s.SignalingConnectionStatusNotifications, tt.notifications) {
				t.Errorf("SignalingConnectionStatusNotifications = %v, want %v", deref(s.SignalingConnectionStatusNotifications), deref(tt.notifications))
			}
			if !reflect.DeepEqual(s.RRCState, tt.rrc) {
				t.Errorf("RRCState = %v, want %v", deref(s.RRCState), deref(tt.rrc))
			}
		})
	}
}

func TestExtendedSignalQuality(t *testing.T) {
	s := replay(t,
		"AT%CESQ=1", "OK\r\n",
		"%CESQ: 54,2,11,1",
	)
	if s.NotifySignalQuality == nil || !*s.NotifySignalQuality {
		t.Errorf("NotifySignalQuality = %v, want true", s.NotifySignalQuality)
	}
	q := s.SignalQuality
	if q == nil {
		t.Fatal("SignalQuality = nil")
	}
	intValue(t, "RSRP", q.RSRP, 54)
	floatValue(t, "RSRPDecibel", q.RSRPDecibel, -86)
	intValue(t, "RSRPThresholdIndex", q.RSRPThresholdIndex, 2)
	intValue(t, "RSRQ", q.RSRQ, 11)
	floatValue(t, "RSRQDecibel", q.RSRQDecibel, -14)
	intValue(t, "RSRQThresholdIndex", q.RSRQThresholdIndex, 1)

	s = newDecoder(t).Step(s, packets("%CESQ: 255,255,255,255")[0])
	intValue(t, "RSRP after unknown", s.SignalQuality.RSRP, 54)
	intValue(t, "RSRQ after unknown", s.SignalQuality.RSRQ, 11)
}

func TestExtendedSignalQualityDisabled(t *testing.T) {
	s := replay(t, "AT%CESQ=0", "OK\r\n")
	if s.NotifySignalQuality == nil || *s.NotifySignalQuality {
		t.Errorf("NotifySignalQuality = %v, want false", s.NotifySignalQuality)
	}
}

func TestSignalQualityKeepsSiblingFields(t *testing.T) {
	s := replay(t,
		"+%CESQ: 54,2,11,1",
		"AT+CESQ", "+CESQ: 99,99,255,255,31,62\r\nOK\r\n",
	)
	q := s.SignalQuality
	if q == nil {
		t.Fatal("SignalQuality = nil")
	}
	intValue(t, "RSRP", q.RSRP, 62)
	floatValue(t, "RSRPDecibel", q.RSRPDecibel, -78)
	intValue(t, "RSRQ", q.RSRQ, 31)
	floatValue(t, "RSRQDecibel", q.RSRQDecibel, -4)
	intValue(t, "RSRPThresholdIndex", q.RSRPThresholdIndex, 2)
	intValue(t, "RSRQThresholdIndex", q.RSRQThresholdIndex, 1)
}

func TestRegistration(t *testing.T) {
	t.Run("Notification", func(t *testing.T) {
		s := replay(t, "+CEREG: 5,\"0901\",\"02024720\",7,,,\"00000110\",\"00101000\"")
		intValue(t, "RegStatus", s.RegStatus, 5)
		stringValue(t, "TAC", s.TAC, "0901")
		stringValue(t, "CellID", s.CellID, "02024720")
		intValue(t, "AcTState", s.AcTState, 7)

		if s.PowerSavingMode == nil || s.PowerSavingMode.Granted == nil {
			t.Fatal("PowerSavingMode.Granted = nil")
		}
		want := &viewmodel.PSMValues{
			State:         viewmodel.PSMOn,
			T3324:         &viewmodel.Timer{Bits: "00000110", Activated: true, Duration: 12 * time.Second},
			T3412Extended: &viewmodel.Timer{Bits: "00101000", Activated: true, Duration: 8 * time.Hour},
		}
		if !reflect.DeepEqual(s.PowerSavingMode.Granted, want) {
			t.Errorf("Granted = %+v, want %+v", s.PowerSavingMode.Granted, want)
		}
	})

	t.Run("Read response", func(t *testing.T) {
		s := replay(t, "AT+CEREG?", "+CEREG: 5,1,\"0901\",\"02024720\",9\r\nOK\r\n")
		intValue(t, "RegStatus", s.RegStatus, 1)
		intValue(t, "AcTState", s.AcTState, 9)
		if s.PowerSavingMode != nil {
			t.Errorf("PowerSavingMode = %+v, want nil", s.PowerSavingMode)
		}
	})

	t.Run("Status outside allow-list", func(t *testing.T) {
		s := replay(t, "+CEREG: 6")
		intValue(t, "RegStatus", s.RegStatus, 0)
	})
}

func TestRequestedPSM(t *testing.T) {
	s := replay(t, "AT+CPSMS=1,,,\"00000110\",\"00100001\"", "OK\r\n")
	if s.PowerSavingMode == nil {
		t.Fatal("PowerSavingMode = nil")
	}
	want := &viewmodel.PSMValues{
		State:         viewmodel.PSMOn,
		T3324:         &viewmodel.Timer{Bits: "00100001", Activated: true, Duration: time.Minute},
		T3412Extended: &viewmodel.Timer{Bits: "00000110", Activated: true, Duration: time.Hour},
	}
	if !reflect.DeepEqual(s.PowerSavingMode.Requested, want) {
		t.Errorf("Requested = %+v, want %+v", s.PowerSavingMode.Requested, want)
	}

	s = newDecoder(t).Step(s, packets("AT+CPSMS=")[0])
	s = newDecoder(t).Step(s, packets("OK")[0])
	if s.PowerSavingMode.Requested.State != viewmodel.PSMOff {
		t.Errorf("State = %q after disabling, want off", s.PowerSavingMode.Requested.State)
	}
}

func TestRequestedPSMKeepsGranted(t *testing.T) {
	s := replay(t,
		"+CEREG: 1,\"0901\",\"02024720\",7,,,\"00000110\",\"00101000\"",
		"AT+CPSMS=0", "OK\r\n",
	)
	if s.PowerSavingMode == nil || s.PowerSavingMode.Granted == nil {
		t.Fatal("Granted was dropped")
	}
	if s.PowerSavingMode.Requested == nil || s.PowerSavingMode.Requested.State != viewmodel.PSMOff {
		t.Errorf("Requested = %+v, want off", s.PowerSavingMode.Requested)
	}
}

func TestModes(t *testing.T) {
	s := replay(t,
		"AT+CEMODE?", "+CEMODE: 2\r\nOK\r\n",
		"AT%XDATAPRFL?", "%XDATAPRFL: 4\r\nOK\r\n",
		"AT+CPAS", "+CPAS: 0\r\nOK\r\n",
	)
	intValue(t, "ModeOfOperation", s.ModeOfOperation, 2)
	intValue(t, "DataProfile", s.DataProfile, 4)
	intValue(t, "ActivityStatus", s.ActivityStatus, 0)

	s = replay(t, "AT+CEMODE?", "+CEMODE: 9\r\nOK\r\n")
	if s.ModeOfOperation != nil {
		t.Errorf("ModeOfOperation = %d, want nil", *s.ModeOfOperation)
	}
}

func ptr(n int) *int {
	return &n
}

func deref(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func TestTXReduction(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		ltem  []viewmodel.TXReduction
		nbiot []viewmodel.TXReduction
	}{
		{
			name:  "Set for all bands",
			texts: []string{"AT%XEMPR=1,0,2", "OK\r\n"},
			nbiot: []viewmodel.TXReduction{{Band: 0, Reduction: 2, Decibel: 1}},
		},
		{
			name:  "Set per band",
			texts: []string{"AT%XEMPR=0,2,3,1,20,3", "OK\r\n"},
			ltem: []viewmodel.TXReduction{
				{Band: 3, Reduction: 1, Decibel: 0.5},
				{Band: 20, Reduction: 3, Decibel: 1.5},
			},
		},
		{
			name:  "Read both system modes",
			texts: []string{"AT%XEMPR?", "%XEMPR: 0,1,13,4\r\n%XEMPR: 1,0,1\r\nOK\r\n"},
			ltem:  []viewmodel.TXReduction{{Band: 13, Reduction: 4, Decibel: 2}},
			nbiot: []viewmodel.TXReduction{{Band: 0, Reduction: 1, Decibel: 0.5}},
		},
		{
			name:  "Band count mismatch",
			texts: []string{"AT%XEMPR=0,2,3,1", "OK\r\n"},
		},
		{
			name:  "Rejected",
			texts: []string{"AT%XEMPR=0,0,1", "ERROR\r\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := replay(t, tt.texts...)
			if !reflect.DeepEqual(s.LTEMTXReduction, tt.ltem) {
				t.Errorf("LTEMTXReduction = %+v, want %+v", s.LTEMTXReduction, tt.ltem)
			}
			if !reflect.DeepEqual(s.NBIoTTXReduction, tt.nbiot) {
				t.Errorf("NBIoTTXReduction = %+v, want %+v", s.NBIoTTXReduction, tt.nbiot)
			}
		})
	}
}

func TestPeriodicTAU(t *testing.T) {
	s := replay(t, "AT%XT3412=1,2000,30000", "OK\r\n", "%XT3412: 1800000")
	if s.NotifyPeriodicTAU == nil || !*s.NotifyPeriodicTAU {
		t.Errorf("NotifyPeriodicTAU = %v, want true", s.NotifyPeriodicTAU)
	}
	if s.PeriodicTAURemaining == nil || *s.PeriodicTAURemaining != 30*time.Minute {
		t.Errorf("PeriodicTAURemaining = %v, want 30m", s.PeriodicTAURemaining)
	}

	s = newDecoder(t).Replay(packets("AT%XT3412=0", "OK\r\n"))
	if s.NotifyPeriodicTAU == nil || *s.NotifyPeriodicTAU {
		t.Errorf("NotifyPeriodicTAU = %v, want false", s.NotifyPeriodicTAU)
	}
}
