package viewmodel

// Builtin returns the processors for every command decoded out of the box.
func Builtin() []Processor {
	return []Processor{
		imeiProcessor(),
		manufacturerProcessor(),
		revisionProcessor(),
		hardwareVersionProcessor(),
		modemUUIDProcessor(),
		imsiProcessor(),
		iccidProcessor(),
		pinStatusProcessor(),
		pinRetriesProcessor(),
		functionalModeProcessor(),
		bandProcessor(),
		monitorProcessor(),
		conevalProcessor(),
		signalingProcessor(),
		extSignalQualityProcessor(),
		signalQualityProcessor(),
		registrationProcessor(),
		psmProcessor(),
		modeOfOperationProcessor(),
		dataProfileProcessor(),
		activityStatusProcessor(),
		txReductionProcessor(),
		periodicTAUProcessor(),
	}
}

// NewDefaultRegistry returns a registry holding the Builtin processors.
func NewDefaultRegistry() (*Registry, error) {
	return NewRegistry(Builtin()...)
}
