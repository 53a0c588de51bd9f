package commander

import "errors"

// Usage errors, surfaced synchronously to callers that misuse the API.
var (
	// ErrCommanderAlreadyRunning is returned by Run/RunAuto when the
	// Commander instance already has a loop running.
	ErrCommanderAlreadyRunning = errors.New("commander: already running")

	// ErrCommanderNotRunning is returned by submissions made against a
	// Commander whose loop has not been started (or has already exited).
	ErrCommanderNotRunning = errors.New("commander: not running")

	// ErrTaskTerminated is returned when an operation targets a node that
	// has already been terminated.
	ErrTaskTerminated = errors.New("commander: task node terminated")

	// ErrInvalidCallbackEvent is returned by AddCallbackFunctions when
	// called with an event name the registry does not recognize.
	ErrInvalidCallbackEvent = errors.New("commander: invalid callback event")

	// ErrHandlerNotReusable is returned when a HandlerCoroutine that is
	// not marked reusable is restarted after reaching a terminal state.
	ErrHandlerNotReusable = errors.New("commander: handler is not reusable")
)
