package voice

import (
	"time"

	"github.com/fuxstixx/fuxstixx-core/core/realtime"
)

type bridgeOptions struct {
	model             string
	systemInstruction string

	connector     realtime.Connector
	captureClient CaptureClient
	clock         Clock
	output        PlaybackOutput
	transcriber   LocalTranscriber

	tools []Tool

	onStateChanged        func(state State)
	onConversationUpdated func(entries []ConversationEntry)
	onError               func(err error)
}

type BridgeOption func(*bridgeOptions)

// WithConnector sets the live-session transport.
func WithConnector(connector realtime.Connector) BridgeOption {
	return func(o *bridgeOptions) {
		o.connector = connector
	}
}

// WithCaptureClient sets the microphone device backend.
func WithCaptureClient(client CaptureClient) BridgeOption {
	return func(o *bridgeOptions) {
		o.captureClient = client
	}
}

// WithPlaybackOutput sets the audio output backend the scheduler plays
// through.
func WithPlaybackOutput(clock Clock, output PlaybackOutput) BridgeOption {
	return func(o *bridgeOptions) {
		o.clock = clock
		o.output = output
	}
}

// WithModel selects the remote model for the live session.
func WithModel(model string) BridgeOption {
	return func(o *bridgeOptions) {
		o.model = model
	}
}

// WithSystemInstruction sets the session's system prompt.
func WithSystemInstruction(instruction string) BridgeOption {
	return func(o *bridgeOptions) {
		o.systemInstruction = instruction
	}
}

// WithTool registers a collaborator-backed operation the peer may
// invoke.
func WithTool(tool Tool) BridgeOption {
	return func(o *bridgeOptions) {
		o.tools = append(o.tools, tool)
	}
}

// WithLocalTranscription enables capture-side user transcription for
// sessions configured without input transcription.
func WithLocalTranscription(transcriber LocalTranscriber) BridgeOption {
	return func(o *bridgeOptions) {
		o.transcriber = transcriber
	}
}

// WithStateCallback reports bridge state transitions; mid-session
// failures surface here as a transition back to Idle rather than a
// blocking notice.
func WithStateCallback(callback func(state State)) BridgeOption {
	return func(o *bridgeOptions) {
		o.onStateChanged = callback
	}
}

// WithConversationCallback delivers a fresh snapshot whenever the
// conversation log changes.
func WithConversationCallback(callback func(entries []ConversationEntry)) BridgeOption {
	return func(o *bridgeOptions) {
		o.onConversationUpdated = callback
	}
}

// WithErrorCallback reports activation and mid-session errors to the
// user-facing layer.
func WithErrorCallback(callback func(err error)) BridgeOption {
	return func(o *bridgeOptions) {
		o.onError = callback
	}
}

// monotonicClock is the default audio clock: time since bridge
// construction.
type monotonicClock struct {
	epoch time.Time
}

func newMonotonicClock() *monotonicClock {
	return &monotonicClock{epoch: time.Now()}
}

func (c *monotonicClock) Now() time.Duration {
	return time.Since(c.epoch)
}
