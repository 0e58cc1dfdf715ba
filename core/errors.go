package voice

import "errors"

var (
	// ErrMicrophoneUnavailable is returned when capture cannot start
	// because the device is missing, busy or permission was refused.
	// Activation is aborted; no session is opened without capture.
	ErrMicrophoneUnavailable = errors.New("microphone unavailable")

	// ErrAlreadyActive is returned when Activate is called while a
	// session is connecting or active.
	ErrAlreadyActive = errors.New("voice session already active")

	// ErrNotActive is returned by operations that need a live session.
	ErrNotActive = errors.New("voice session not active")
)
