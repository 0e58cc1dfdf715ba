// Package speechtotext defines the options shared by streaming
// transcription backends. The session bridge uses a backend as its
// capture-side transcriber when the live session is configured without
// input transcription.
package speechtotext

import "github.com/fuxstixx/fuxstixx-core/core/audio"

type TranscriptionOptions struct {
	// TranscriptionCallback receives one full utterance when the
	// speaker is detected to have finished.
	TranscriptionCallback func(transcript string)
	// InterimTranscriptionCallback receives unstable partial
	// transcripts while the speaker is still talking.
	InterimTranscriptionCallback func(transcript string)

	SpeechStartedCallback func()
	SpeechEndedCallback   func()

	EncodingInfo audio.EncodingInfo
}

type TranscriptionOption func(*TranscriptionOptions)

func WithTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.TranscriptionCallback = callback
	}
}

func WithInterimTranscriptionCallback(callback func(transcript string)) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.InterimTranscriptionCallback = callback
	}
}

func WithSpeechStartedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechStartedCallback = callback
	}
}

func WithSpeechEndedCallback(callback func()) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.SpeechEndedCallback = callback
	}
}

func WithEncodingInfo(encodingInfo audio.EncodingInfo) TranscriptionOption {
	return func(o *TranscriptionOptions) {
		o.EncodingInfo = encodingInfo
	}
}
