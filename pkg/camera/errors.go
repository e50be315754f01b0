package camera

import "errors"

var (
	ErrUnsupportedFormat  = errors.New("unsupported format")
	ErrAlreadyRunning     = errors.New("preview already running")
	ErrDeviceUnavailable  = errors.New("no device node available")
	ErrInitFailed         = errors.New("device init failed")
	ErrStreamFailed       = errors.New("stream start failed")
	ErrCaptureFailed      = errors.New("still capture failed")
	ErrTaskSpawn          = errors.New("background task spawn failed")
	ErrUnsupportedCommand = errors.New("unsupported command")
	ErrUnknownCamera      = errors.New("unknown camera id")

	// ErrSessionState marks an out-of-order session transition. Hitting it
	// is a bug in the caller, not a device condition.
	ErrSessionState = errors.New("invalid session state")
)
