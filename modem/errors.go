package modem

import "errors"

var (
	// ErrNoDialer is returned when a Modem is constructed without a Dialer.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNotInitialized is returned when an operation is attempted on a Modem
	// whose transport was never established.
	ErrNotInitialized = errors.New("modem not initialized")

	// ErrAlreadyClosed is returned by operations on a closed Modem.
	ErrAlreadyClosed = errors.New("modem already closed")

	// ErrLoopRunning is returned when Loop is started a second time.
	ErrLoopRunning = errors.New("loop already running")

	// ErrSIMPinRequired is returned when the SIM card asks for a PIN and
	// none was configured.
	ErrSIMPinRequired = errors.New("SIM PIN required")

	// ErrLineTooLong is returned when a modem output line exceeds the
	// scanner buffer. It usually means binary data or a framing error.
	ErrLineTooLong = errors.New("response line too long")

	// ErrCommandFailed wraps the final result code of a command that did
	// not end in OK.
	ErrCommandFailed = errors.New("command failed")

	// ErrUnknownMacro is returned by RunMacro for a name not in Macros.
	ErrUnknownMacro = errors.New("unknown macro")
)
