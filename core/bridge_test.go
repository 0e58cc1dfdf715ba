package voice

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fuxstixx/fuxstixx-core/core/audio"
	"github.com/fuxstixx/fuxstixx-core/core/events"
	"github.com/fuxstixx/fuxstixx-core/core/realtime"
)

type sentFrame struct {
	mediaData string
	mimeType  string
}

type fakeSession struct {
	mu sync.Mutex

	frames        []sentFrame
	texts         []string
	toolResponses []ToolCallResponse
	closed        int
	sendAudioErr  error
}

func (s *fakeSession) SendAudio(mediaData, mimeType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sendAudioErr != nil {
		return s.sendAudioErr
	}
	s.frames = append(s.frames, sentFrame{mediaData: mediaData, mimeType: mimeType})
	return nil
}

func (s *fakeSession) SendText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.texts = append(s.texts, text)
	return nil
}

func (s *fakeSession) SendToolResponse(id, name, result string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.toolResponses = append(s.toolResponses, ToolCallResponse{ID: id, Name: name, Result: result})
	return nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed++
	return nil
}

func (s *fakeSession) sentFrames() []sentFrame {
	s.mu.Lock()
	defer s.mu.Unlock()

	frames := make([]sentFrame, len(s.frames))
	copy(frames, s.frames)
	return frames
}

type fakeConnector struct {
	session    *fakeSession
	callbacks  realtime.Callbacks
	config     realtime.SessionConfig
	connectErr error
	connects   int
}

func (c *fakeConnector) Connect(_ context.Context, config realtime.SessionConfig, callbacks realtime.Callbacks) (realtime.Session, error) {
	c.connects++
	if c.connectErr != nil {
		return nil, c.connectErr
	}

	c.config = config
	c.callbacks = callbacks
	if c.session == nil {
		c.session = &fakeSession{}
	}
	return c.session, nil
}

func newTestBridge(t *testing.T, opts ...BridgeOption) (*Bridge, *fakeConnector, *fakeCaptureClient, *fakeOutput) {
	t.Helper()

	connector := &fakeConnector{}
	captureClient := &fakeCaptureClient{}
	output := &fakeOutput{}
	baseOpts := []BridgeOption{
		WithConnector(connector),
		WithCaptureClient(captureClient),
		WithPlaybackOutput(&fakeClock{}, output),
	}
	bridge := NewBridge(append(baseOpts, opts...)...)
	return bridge, connector, captureClient, output
}

func TestActivateTransitionsIdleToActive(t *testing.T) {
	var states []State
	bridge, _, captureClient, _ := newTestBridge(t, WithStateCallback(func(state State) {
		states = append(states, state)
	}))

	if bridge.State() != StateIdle {
		t.Fatalf("expected bridge to start idle, got %s", bridge.State())
	}
	if err := bridge.Activate(context.Background()); err != nil {
		t.Fatalf("expected activation to succeed, got %v", err)
	}

	if bridge.State() != StateActive {
		t.Fatalf("expected active state, got %s", bridge.State())
	}
	if captureClient.started != 1 {
		t.Fatalf("expected microphone acquired once, got %d", captureClient.started)
	}
	if len(states) != 2 || states[0] != StateConnecting || states[1] != StateActive {
		t.Fatalf("expected Connecting then Active, got %v", states)
	}
}

func TestActivateTwiceIsRejected(t *testing.T) {
	bridge, _, _, _ := newTestBridge(t)

	if err := bridge.Activate(context.Background()); err != nil {
		t.Fatalf("expected first activation to succeed, got %v", err)
	}
	if err := bridge.Activate(context.Background()); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}
}

func TestActivateMicrophoneFailureStaysIdleWithoutConnecting(t *testing.T) {
	bridge, connector, captureClient, _ := newTestBridge(t)
	captureClient.startErr = errors.New("permission denied")

	err := bridge.Activate(context.Background())
	if !errors.Is(err, ErrMicrophoneUnavailable) {
		t.Fatalf("expected ErrMicrophoneUnavailable, got %v", err)
	}
	if bridge.State() != StateIdle {
		t.Fatalf("expected bridge to stay idle, got %s", bridge.State())
	}
	if connector.connects != 0 {
		t.Fatalf("expected no connection attempt without a microphone, got %d", connector.connects)
	}
}

func TestActivateConnectFailureReleasesMicrophone(t *testing.T) {
	bridge, connector, captureClient, _ := newTestBridge(t)
	connector.connectErr = errors.New("handshake refused")

	if err := bridge.Activate(context.Background()); err == nil {
		t.Fatal("expected activation to fail when the connection cannot open")
	}
	if bridge.State() != StateIdle {
		t.Fatalf("expected bridge back in idle, got %s", bridge.State())
	}
	if captureClient.stopped != 1 {
		t.Fatalf("expected microphone released after connect failure, got %d stops", captureClient.stopped)
	}
}

func TestCaptureFramesAreForwardedWhileActive(t *testing.T) {
	bridge, connector, captureClient, _ := newTestBridge(t)

	if err := bridge.Activate(context.Background()); err != nil {
		t.Fatalf("expected activation to succeed, got %v", err)
	}

	// One full frame of 4096 zero samples.
	captureClient.onAudio(make([]byte, 8192))

	frames := connector.session.sentFrames()
	if len(frames) != 1 {
		t.Fatalf("expected one forwarded frame, got %d", len(frames))
	}
	if frames[0].mimeType != "audio/pcm;rate=16000" {
		t.Fatalf("unexpected mime type %q", frames[0].mimeType)
	}
	pcm, err := audio.DecodeBase64(frames[0].mediaData)
	if err != nil {
		t.Fatalf("expected forwarded payload to decode, got %v", err)
	}
	if len(pcm) != 8192 {
		t.Fatalf("expected 8192 bytes on the wire, got %d", len(pcm))
	}
	samples, err := audio.Decode(pcm)
	if err != nil {
		t.Fatalf("expected pcm to decode, got %v", err)
	}
	if len(samples) != 4096 {
		t.Fatalf("expected round trip to 4096 samples, got %d", len(samples))
	}
	for i, sample := range samples {
		if sample != 0 {
			t.Fatalf("expected zero samples, sample %d was %f", i, sample)
		}
	}
}

func TestInboundAudioChunksAreScheduledInArrivalOrder(t *testing.T) {
	bridge, _, _, output := newTestBridge(t)

	if err := bridge.Activate(context.Background()); err != nil {
		t.Fatalf("expected activation to succeed, got %v", err)
	}

	// Two chunks of one second each at 24kHz.
	chunk := audio.EncodeBase64(make([]byte, 48000))
	bridge.Handle(events.NewAudioChunk(chunk, 24000))
	bridge.Handle(events.NewAudioChunk(chunk, 24000))

	if len(output.scheduled) != 2 {
		t.Fatalf("expected 2 scheduled buffers, got %d", len(output.scheduled))
	}
	if output.scheduled[0].at != 0 {
		t.Fatalf("expected first chunk at 0, got %v", output.scheduled[0].at)
	}
	if output.scheduled[1].at.Seconds() != 1 {
		t.Fatalf("expected second chunk to start back-to-back at 1s, got %v", output.scheduled[1].at)
	}
}

func TestMalformedAudioChunkIsDroppedAndPlaybackContinues(t *testing.T) {
	bridge, _, _, output := newTestBridge(t)

	if err := bridge.Activate(context.Background()); err != nil {
		t.Fatalf("expected activation to succeed, got %v", err)
	}

	bridge.Handle(events.NewAudioChunk("not base64!!!", 24000))
	bridge.Handle(events.NewAudioChunk(audio.EncodeBase64(make([]byte, 480)), 24000))

	if len(output.scheduled) != 1 {
		t.Fatalf("expected the bad chunk dropped and the next one scheduled, got %d", len(output.scheduled))
	}
}

func TestInterruptedEventClearsPlaybackAndDiscardsModelTurn(t *testing.T) {
	bridge, _, _, output := newTestBridge(t)

	if err := bridge.Activate(context.Background()); err != nil {
		t.Fatalf("expected activation to succeed, got %v", err)
	}

	bridge.Handle(events.NewAudioChunk(audio.EncodeBase64(make([]byte, 48000)), 24000))
	bridge.Handle(events.NewTranscriptFragment(events.SpeakerUser, "stop"))
	bridge.Handle(events.NewTranscriptFragment(events.SpeakerModel, "as I was say"))
	bridge.Handle(events.NewInterrupted())

	if bridge.scheduler.ActiveCount() != 0 {
		t.Fatalf("expected active playback cleared, got %d", bridge.scheduler.ActiveCount())
	}
	if !output.scheduled[0].handle.stopped {
		t.Fatal("expected playing buffer stopped on barge-in")
	}

	// The interrupted turn never flushes, even on a later turn-complete.
	bridge.Handle(events.NewTurnComplete())
	if entries := bridge.Conversation(); len(entries) != 0 {
		t.Fatalf("expected no finalized entries after interrupt, got %d", len(entries))
	}
}

func TestTurnCompleteFlushesConversationEntries(t *testing.T) {
	var updates int
	bridge, _, _, _ := newTestBridge(t, WithConversationCallback(func([]ConversationEntry) {
		updates++
	}))

	if err := bridge.Activate(context.Background()); err != nil {
		t.Fatalf("expected activation to succeed, got %v", err)
	}

	bridge.Handle(events.NewTranscriptFragment(events.SpeakerUser, "hi"))
	bridge.Handle(events.NewTranscriptFragment(events.SpeakerModel, "hello"))
	bridge.Handle(events.NewTurnComplete())

	entries := bridge.Conversation()
	if len(entries) != 2 {
		t.Fatalf("expected a finalized pair, got %d entries", len(entries))
	}
	if entries[0].Text != "hi" || entries[1].Text != "hello" {
		t.Fatalf("unexpected entry texts %q / %q", entries[0].Text, entries[1].Text)
	}
	if updates == 0 {
		t.Fatal("expected conversation callback to fire")
	}
}

func TestToolCallAlwaysAnswersWithMatchingID(t *testing.T) {
	bridge, connector, _, _ := newTestBridge(t, WithTool(Tool{
		Name: "terminal_op",
		Handler: func(context.Context, map[string]any) (string, error) {
			return "command relayed", nil
		},
	}))

	if err := bridge.Activate(context.Background()); err != nil {
		t.Fatalf("expected activation to succeed, got %v", err)
	}

	bridge.Handle(events.NewToolCallRequested("abc", "terminal_op", map[string]any{"command": "ls"}))
	bridge.Handle(events.NewToolCallRequested("def", "unknown_op", nil))

	responses := connector.session.toolResponses
	if len(responses) != 2 {
		t.Fatalf("expected 2 tool responses, got %d", len(responses))
	}
	if responses[0].ID != "abc" || responses[0].Result != "command relayed" {
		t.Fatalf("unexpected first response %+v", responses[0])
	}
	if responses[1].ID != "def" || responses[1].Result != fallbackToolResponse {
		t.Fatalf("expected fallback acknowledgement for unknown op, got %+v", responses[1])
	}
}

func TestDeactivateReleasesEverything(t *testing.T) {
	bridge, connector, captureClient, _ := newTestBridge(t)

	if err := bridge.Activate(context.Background()); err != nil {
		t.Fatalf("expected activation to succeed, got %v", err)
	}
	bridge.Handle(events.NewAudioChunk(audio.EncodeBase64(make([]byte, 48000)), 24000))

	if err := bridge.Deactivate(); err != nil {
		t.Fatalf("expected deactivation to succeed, got %v", err)
	}

	if bridge.State() != StateIdle {
		t.Fatalf("expected idle after deactivation, got %s", bridge.State())
	}
	if captureClient.stopped != 1 {
		t.Fatalf("expected microphone released, got %d stops", captureClient.stopped)
	}
	if connector.session.closed != 1 {
		t.Fatalf("expected session closed once, got %d", connector.session.closed)
	}
	if bridge.scheduler.ActiveCount() != 0 {
		t.Fatalf("expected playback cleared, got %d active", bridge.scheduler.ActiveCount())
	}

	// Deactivate is idempotent.
	if err := bridge.Deactivate(); err != nil {
		t.Fatalf("expected repeated deactivation to be a no-op, got %v", err)
	}
}

func TestSessionErrorForcesTeardownAndDiscardsTranscripts(t *testing.T) {
	var reported []error
	bridge, connector, captureClient, _ := newTestBridge(t, WithErrorCallback(func(err error) {
		reported = append(reported, err)
	}))

	if err := bridge.Activate(context.Background()); err != nil {
		t.Fatalf("expected activation to succeed, got %v", err)
	}
	bridge.Handle(events.NewTranscriptFragment(events.SpeakerUser, "half a"))
	bridge.Handle(events.NewTranscriptFragment(events.SpeakerModel, "thought"))

	connector.callbacks.OnError(errors.New("connection dropped"))

	if bridge.State() != StateIdle {
		t.Fatalf("expected idle after connection error, got %s", bridge.State())
	}
	if captureClient.stopped != 1 {
		t.Fatalf("expected microphone released, got %d stops", captureClient.stopped)
	}
	if len(reported) == 0 {
		t.Fatal("expected the error to be reported upward")
	}
	if entries := bridge.Conversation(); len(entries) != 0 {
		t.Fatalf("expected partial transcripts discarded, not flushed; got %d entries", len(entries))
	}
}

func TestSendTextRequiresActiveSession(t *testing.T) {
	bridge, _, _, _ := newTestBridge(t)

	if err := bridge.SendText("hello"); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
}

func TestSendTextForwardsAndLogsMessage(t *testing.T) {
	bridge, connector, _, _ := newTestBridge(t)

	if err := bridge.Activate(context.Background()); err != nil {
		t.Fatalf("expected activation to succeed, got %v", err)
	}
	if err := bridge.SendText("what's our altitude"); err != nil {
		t.Fatalf("expected send to succeed, got %v", err)
	}

	if len(connector.session.texts) != 1 || connector.session.texts[0] != "what's our altitude" {
		t.Fatalf("unexpected forwarded texts %v", connector.session.texts)
	}
	entries := bridge.Conversation()
	if len(entries) != 1 || entries[0].Speaker != events.SpeakerUser {
		t.Fatalf("expected one user entry in the log, got %v", entries)
	}
}

func TestSessionSetupDeclaresRegisteredTools(t *testing.T) {
	bridge, connector, _, _ := newTestBridge(t, WithTool(Tool{Name: "vector_drone_op"}))
	bridge.RegisterTool(Tool{Name: "terminal_op"})

	if err := bridge.Activate(context.Background()); err != nil {
		t.Fatalf("expected activation to succeed, got %v", err)
	}

	if len(connector.config.Tools) != 2 {
		t.Fatalf("expected 2 declared tools, got %d", len(connector.config.Tools))
	}
	if connector.config.Tools[0].Name != "vector_drone_op" || connector.config.Tools[1].Name != "terminal_op" {
		t.Fatalf("unexpected declarations %v", connector.config.Tools)
	}
}

func TestActivationFailureIsReportedThroughErrorCallback(t *testing.T) {
	var reported []error
	bridge, _, captureClient, _ := newTestBridge(t, WithErrorCallback(func(err error) {
		reported = append(reported, err)
	}))
	captureClient.startErr = errors.New("permission denied")

	if err := bridge.Activate(context.Background()); !errors.Is(err, ErrMicrophoneUnavailable) {
		t.Fatalf("expected ErrMicrophoneUnavailable, got %v", err)
	}

	if len(reported) != 1 {
		t.Fatalf("expected the activation failure reported once, got %d", len(reported))
	}
	if !errors.Is(reported[0], ErrMicrophoneUnavailable) {
		t.Fatalf("expected the reported error to carry the cause, got %v", reported[0])
	}
}

func TestConnectFailureIsReportedThroughErrorCallback(t *testing.T) {
	var reported []error
	bridge, connector, _, _ := newTestBridge(t, WithErrorCallback(func(err error) {
		reported = append(reported, err)
	}))
	connector.connectErr = errors.New("handshake refused")

	if err := bridge.Activate(context.Background()); err == nil {
		t.Fatal("expected activation to fail")
	}
	if len(reported) != 1 {
		t.Fatalf("expected the connect failure reported once, got %d", len(reported))
	}
}

func TestToolCallsOutliveTheActivationContext(t *testing.T) {
	handlerCtxErr := make(chan error, 1)
	bridge, connector, _, _ := newTestBridge(t, WithTool(Tool{
		Name: "terminal_op",
		Handler: func(ctx context.Context, _ map[string]any) (string, error) {
			handlerCtxErr <- ctx.Err()
			return "ok", nil
		},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	if err := bridge.Activate(ctx); err != nil {
		t.Fatalf("expected activation to succeed, got %v", err)
	}
	cancel()

	bridge.Handle(events.NewToolCallRequested("abc", "terminal_op", nil))

	if err := <-handlerCtxErr; err != nil {
		t.Fatalf("expected the dispatch context to outlive activation, got %v", err)
	}
	if len(connector.session.toolResponses) != 1 {
		t.Fatalf("expected one tool response, got %d", len(connector.session.toolResponses))
	}
}

type fakeTranscriber struct {
	started  int
	closed   int
	startErr error

	encoding     audio.EncodingInfo
	onTranscript func(text string)
	received     [][]byte
}

func (f *fakeTranscriber) Start(_ context.Context, encodingInfo audio.EncodingInfo, onTranscript func(text string)) error {
	if f.startErr != nil {
		return f.startErr
	}

	f.started++
	f.encoding = encodingInfo
	f.onTranscript = onTranscript
	return nil
}

func (f *fakeTranscriber) SendAudio(pcm []byte) error {
	f.received = append(f.received, pcm)
	return nil
}

func (f *fakeTranscriber) Close(context.Context) error {
	f.closed++
	return nil
}

func TestLocalTranscriberLifecycle(t *testing.T) {
	transcriber := &fakeTranscriber{}
	bridge, connector, captureClient, _ := newTestBridge(t, WithLocalTranscription(transcriber))

	if err := bridge.Activate(context.Background()); err != nil {
		t.Fatalf("expected activation to succeed, got %v", err)
	}
	if transcriber.started != 1 {
		t.Fatalf("expected transcriber started once, got %d", transcriber.started)
	}
	if transcriber.encoding.SampleRate != 16000 {
		t.Fatalf("expected the capture encoding, got %d", transcriber.encoding.SampleRate)
	}
	if connector.config.InputTranscription {
		t.Fatal("expected in-session input transcription disabled with a local transcriber")
	}

	// Capture frames are tee'd to the transcriber before encoding.
	captureClient.onAudio(make([]byte, 8192))
	if len(transcriber.received) != 1 || len(transcriber.received[0]) != 8192 {
		t.Fatalf("expected one raw frame forwarded, got %v frames", len(transcriber.received))
	}

	// Its transcripts flow in as user fragments and flush the turn.
	transcriber.onTranscript("open the pod bay doors")
	bridge.Handle(events.NewTranscriptFragment(events.SpeakerModel, "no"))
	bridge.Handle(events.NewTurnComplete())
	entries := bridge.Conversation()
	if len(entries) != 2 || entries[0].Text != "open the pod bay doors" {
		t.Fatalf("unexpected conversation entries %v", entries)
	}

	if err := bridge.Deactivate(); err != nil {
		t.Fatalf("expected deactivation to succeed, got %v", err)
	}
	if transcriber.closed != 1 {
		t.Fatalf("expected transcriber closed once, got %d", transcriber.closed)
	}
}

func TestLocalTranscriberStartFailureDoesNotBlockActivation(t *testing.T) {
	transcriber := &fakeTranscriber{startErr: errors.New("stt service unreachable")}
	bridge, _, _, _ := newTestBridge(t, WithLocalTranscription(transcriber))

	if err := bridge.Activate(context.Background()); err != nil {
		t.Fatalf("expected activation to proceed without transcription, got %v", err)
	}
	if bridge.State() != StateActive {
		t.Fatalf("expected active state, got %s", bridge.State())
	}
}

func TestSchedulingFailureIsReportedNotSwallowed(t *testing.T) {
	var reported []error
	connector := &fakeConnector{}
	bridge := NewBridge(
		WithConnector(connector),
		WithCaptureClient(&fakeCaptureClient{}),
		WithErrorCallback(func(err error) { reported = append(reported, err) }),
	)

	if err := bridge.Activate(context.Background()); err != nil {
		t.Fatalf("expected activation to succeed, got %v", err)
	}

	// No playback output configured: scheduling must fail loudly.
	bridge.Handle(events.NewAudioChunk(audio.EncodeBase64(make([]byte, 480)), 24000))

	if len(reported) != 1 {
		t.Fatalf("expected one reported scheduling failure, got %d", len(reported))
	}
}
