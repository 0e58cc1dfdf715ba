// Package realtime defines the contract between the session bridge
// and the live bidirectional streaming connection that carries audio,
// transcripts and tool calls.
package realtime

import (
	"context"

	"github.com/fuxstixx/fuxstixx-core/core/events"
)

// ToolDeclaration describes one operation the peer may invoke.
// Parameters holds a prototype struct that transports reflect into a
// parameter schema during session setup.
type ToolDeclaration struct {
	Name        string
	Description string
	Parameters  any
}

// SessionConfig carries the setup payload for a new live session.
type SessionConfig struct {
	Model             string
	SystemInstruction string
	Tools             []ToolDeclaration

	// InputTranscription asks the peer to transcribe user audio
	// in-session. When disabled the caller is expected to provide its
	// own capture-side transcription.
	InputTranscription bool
	// OutputTranscription asks the peer to transcribe its own speech.
	OutputTranscription bool
}

// Callbacks receive everything the connection delivers. OnEvent fires
// in arrival order from a single reader; the bridge relies on that
// ordering for playback and transcript reconciliation.
type Callbacks struct {
	OnEvent func(event events.Event)
	OnError func(err error)
	OnClose func()
}

// Session is one open connection. All methods are safe for concurrent
// use; writes are serialized by the implementation.
type Session interface {
	// SendAudio forwards one encoded capture frame to the peer.
	SendAudio(mediaData, mimeType string) error

	// SendText submits a typed user message into the session.
	SendText(text string) error

	// SendToolResponse answers a tool call; the peer blocks its turn
	// until the response with the matching id arrives.
	SendToolResponse(id, name, result string) error

	// Close tears the connection down. Safe to call more than once.
	Close() error
}

// Connector opens live sessions. The production implementation lives
// in realtime/gemini; tests inject fakes.
type Connector interface {
	Connect(ctx context.Context, config SessionConfig, callbacks Callbacks) (Session, error)
}
