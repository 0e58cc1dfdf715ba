package voice

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fuxstixx/fuxstixx-core/core/audio"
	"github.com/fuxstixx/fuxstixx-core/core/events"
	"github.com/fuxstixx/fuxstixx-core/core/realtime"
	"go.opentelemetry.io/otel/codes"
)

// State is the session bridge lifecycle state.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateActive     State = "active"
	StateClosing    State = "closing"
)

// LocalTranscriber produces user transcript fragments from capture
// audio when the live session is configured without input
// transcription.
type LocalTranscriber interface {
	Start(ctx context.Context, encodingInfo audio.EncodingInfo, onTranscript func(text string)) error
	SendAudio(pcm []byte) error
	Close(ctx context.Context) error
}

// Bridge owns one realtime voice session end to end: it acquires the
// microphone, opens the streaming connection, routes every inbound
// event to playback, transcript reconciliation or tool dispatch, and
// tears everything down again.
//
// There are no ambient singletons: the connection, devices and clock
// are injected at construction and scoped to the bridge instance.
type Bridge struct {
	mu sync.Mutex

	state   State
	session realtime.Session

	opts bridgeOptions

	capture    *capturePipeline
	scheduler  *playbackScheduler
	reconciler *transcriptReconciler
	log        *conversationLog
	tools      *toolRegistry

	baseContext context.Context
}

func NewBridge(opts ...BridgeOption) *Bridge {
	options := bridgeOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.clock == nil {
		options.clock = newMonotonicClock()
	}
	if options.output == nil {
		options.output = unavailableOutput{}
	}

	b := &Bridge{
		state:       StateIdle,
		opts:        options,
		log:         newConversationLog(),
		tools:       newToolRegistry(options.tools...),
		baseContext: context.Background(),
	}
	b.scheduler = newPlaybackScheduler(options.clock, options.output)
	b.reconciler = newTranscriptReconciler(b.log)
	b.capture = newCapturePipeline(options.captureClient, b.forwardFrame)
	if options.transcriber != nil {
		b.capture.rawTap = func(pcm []byte) {
			if err := options.transcriber.SendAudio(pcm); err != nil {
				log.Printf("Failed to forward audio to local transcriber: %v", err)
			}
		}
	}

	return b
}

// Activate acquires the microphone and opens the live session.
// Microphone acquisition comes first: if it fails, the bridge stays
// Idle and no connection is attempted. If the connection fails after
// the microphone was acquired, the microphone is released again.
func (b *Bridge) Activate(ctx context.Context) error {
	// Tool dispatch and teardown outlive this call, so they get a
	// context detached from the caller's cancellation and from the
	// activation span below.
	sessionCtx := context.WithoutCancel(ctx)
	ctx, span := tracer.Start(ctx, "activate voice session")
	defer span.End()

	b.mu.Lock()
	if b.state != StateIdle {
		b.mu.Unlock()
		return ErrAlreadyActive
	}
	b.state = StateConnecting
	b.mu.Unlock()
	b.notifyState(StateConnecting)

	fail := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.reportError(err)
		b.mu.Lock()
		b.state = StateIdle
		b.mu.Unlock()
		b.notifyState(StateIdle)
		return err
	}

	if b.opts.connector == nil {
		return fail(errors.New("no session connector configured"))
	}

	if err := b.capture.Start(ctx); err != nil {
		return fail(err)
	}

	config := realtime.SessionConfig{
		Model:               b.opts.model,
		SystemInstruction:   b.opts.systemInstruction,
		Tools:               b.toolDeclarations(),
		InputTranscription:  b.opts.transcriber == nil,
		OutputTranscription: true,
	}
	session, err := b.opts.connector.Connect(ctx, config, realtime.Callbacks{
		OnEvent: b.Handle,
		OnError: b.onSessionError,
		OnClose: b.onSessionClosed,
	})
	if err != nil {
		if stopErr := b.capture.Stop(); stopErr != nil {
			log.Printf("Failed to release microphone after connect failure: %v", stopErr)
		}
		return fail(fmt.Errorf("failed to open live session: %w", err))
	}

	if b.opts.transcriber != nil {
		if err := b.opts.transcriber.Start(ctx, b.capture.EncodingInfo(), func(text string) {
			b.Handle(events.NewTranscriptFragment(events.SpeakerUser, text))
		}); err != nil {
			logger.Warn("local transcription unavailable, user turns will not flush", "error", err)
		}
	}

	b.mu.Lock()
	b.session = session
	b.state = StateActive
	b.baseContext = sessionCtx
	b.mu.Unlock()
	b.notifyState(StateActive)

	return nil
}

// Deactivate tears the session down. Resource release (microphone,
// scheduled playback, accumulated transcripts) is unconditional;
// closing the connection itself is best-effort and its failure is the
// only error this can return.
func (b *Bridge) Deactivate() error {
	b.mu.Lock()
	if b.state == StateIdle || b.state == StateClosing {
		b.mu.Unlock()
		return nil
	}
	b.state = StateClosing
	session := b.session
	b.session = nil
	closeCtx := b.baseContext
	b.mu.Unlock()
	b.notifyState(StateClosing)

	if err := b.capture.Stop(); err != nil {
		log.Printf("Failed to stop capture during teardown: %v", err)
	}
	b.scheduler.Interrupt()
	b.reconciler.OnInterrupt()
	b.notifyConversation()

	var errs error
	if b.opts.transcriber != nil {
		if err := b.opts.transcriber.Close(closeCtx); err != nil {
			errs = errors.Join(errs, fmt.Errorf("failed to close local transcriber: %w", err))
		}
	}
	if session != nil {
		if err := session.Close(); err != nil {
			errs = errors.Join(errs, fmt.Errorf("failed to close live session: %w", err))
		}
	}

	b.mu.Lock()
	b.state = StateIdle
	b.mu.Unlock()
	b.notifyState(StateIdle)

	return errs
}

// Handle is the single inbound entry point: every message the session
// delivers arrives here as one typed event, in arrival order.
func (b *Bridge) Handle(event events.Event) {
	switch typedEvent := event.(type) {
	case events.AudioChunk:
		b.handleAudioChunk(typedEvent)
	case events.Interrupted:
		b.scheduler.Interrupt()
		b.reconciler.OnInterrupt()
		b.notifyConversation()
	case events.TranscriptFragment:
		b.reconciler.OnFragment(typedEvent.Speaker, typedEvent.Text)
		b.notifyConversation()
	case events.TurnComplete:
		b.reconciler.OnTurnComplete()
		b.notifyConversation()
	case events.ToolCallRequested:
		b.handleToolCall(typedEvent)
	default:
		log.Printf("Ignoring unknown session event kind %q", event.Kind())
	}
}

func (b *Bridge) handleAudioChunk(chunk events.AudioChunk) {
	pcm, err := audio.DecodeBase64(chunk.Data)
	if err != nil {
		// A failed chunk is dropped; playback continues with the next.
		log.Printf("Dropping audio chunk: %v", err)
		return
	}
	samples, err := audio.Decode(pcm)
	if err != nil {
		log.Printf("Dropping audio chunk: %v", err)
		return
	}

	sampleRate := chunk.SampleRate
	if sampleRate == 0 {
		sampleRate = audio.PlaybackSampleRate
	}
	encodingInfo := audio.EncodingInfo{SampleRate: sampleRate, Format: audio.EncodingLinear16}
	if err := b.scheduler.SchedulePlayback(samples, encodingInfo); err != nil {
		b.reportError(fmt.Errorf("playback scheduling failed: %w", err))
	}
}

// handleToolCall dispatches synchronously and always sends exactly one
// response for the request id before the peer can proceed.
func (b *Bridge) handleToolCall(request events.ToolCallRequested) {
	b.mu.Lock()
	ctx := b.baseContext
	b.mu.Unlock()

	response := b.tools.Dispatch(ctx, request)

	b.mu.Lock()
	session := b.session
	b.mu.Unlock()
	if session == nil {
		return
	}

	if err := session.SendToolResponse(response.ID, response.Name, response.Result); err != nil {
		log.Printf("Failed to send tool response %q: %v", response.ID, err)
	}
}

// SendText submits a typed user message into the active session and
// records it in the conversation log.
func (b *Bridge) SendText(text string) error {
	b.mu.Lock()
	session := b.session
	active := b.state == StateActive
	b.mu.Unlock()

	if !active || session == nil {
		return ErrNotActive
	}

	if err := session.SendText(text); err != nil {
		return fmt.Errorf("failed to send text message: %w", err)
	}
	b.log.AppendUser(text)
	b.notifyConversation()
	return nil
}

// forwardFrame routes encoded capture frames to the session while it
// is active; frames produced during teardown are dropped.
func (b *Bridge) forwardFrame(frame outboundFrame) {
	b.mu.Lock()
	session := b.session
	active := b.state == StateActive
	b.mu.Unlock()

	if !active || session == nil {
		return
	}

	if err := session.SendAudio(frame.MediaData, frame.MimeType); err != nil {
		log.Printf("Failed to forward capture frame: %v", err)
	}
}

// onSessionError handles a mid-session connection failure: full
// teardown, reported upward as a status change. No automatic
// reconnect is attempted.
func (b *Bridge) onSessionError(err error) {
	b.reportError(fmt.Errorf("live session error: %w", err))
	if deactivateErr := b.Deactivate(); deactivateErr != nil {
		log.Printf("Teardown after session error was incomplete: %v", deactivateErr)
	}
}

func (b *Bridge) onSessionClosed() {
	if err := b.Deactivate(); err != nil {
		log.Printf("Teardown after session close was incomplete: %v", err)
	}
}

// State returns the current lifecycle state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

// Conversation returns a point-in-time snapshot of the chat log.
func (b *Bridge) Conversation() []ConversationEntry {
	return b.log.Snapshot()
}

// RegisterTool adds a collaborator-backed operation after
// construction. Takes effect on the next activation.
func (b *Bridge) RegisterTool(tool Tool) {
	b.tools.Register(tool)
}

func (b *Bridge) toolDeclarations() []realtime.ToolDeclaration {
	tools := b.tools.Declarations()
	declarations := make([]realtime.ToolDeclaration, 0, len(tools))
	for _, tool := range tools {
		declarations = append(declarations, realtime.ToolDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.Parameters,
		})
	}
	return declarations
}

func (b *Bridge) notifyState(state State) {
	if b.opts.onStateChanged != nil {
		b.opts.onStateChanged(state)
	}
}

func (b *Bridge) notifyConversation() {
	if b.opts.onConversationUpdated != nil {
		b.opts.onConversationUpdated(b.log.Snapshot())
	}
}

func (b *Bridge) reportError(err error) {
	logger.Error("voice session error", "error", err)
	if b.opts.onError != nil {
		b.opts.onError(err)
	}
}

// unavailableOutput is the default playback output when no device is
// configured: scheduling fails loudly instead of dropping audio.
type unavailableOutput struct{}

func (unavailableOutput) Schedule([]float32, audio.EncodingInfo, time.Duration, func()) (PlaybackHandle, error) {
	return nil, errors.New("audio output device unavailable")
}

func (unavailableOutput) Clear() {}
