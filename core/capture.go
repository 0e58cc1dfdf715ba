package voice

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/fuxstixx/fuxstixx-core/core/audio"
)

// captureFrameSamples is the fixed outbound frame size: each capture
// tick forwards 4096 samples (8192 bytes of 16-bit PCM) at 16kHz.
const captureFrameSamples = 4096

// CaptureClient is the microphone device contract. Implementations
// live in core/audio/miniaudio and core/audio/portaudio; tests inject
// fakes.
type CaptureClient interface {
	// StartCapture acquires the device and streams raw PCM into
	// onAudio until StopCapture. A refused or missing device fails
	// here, before any audio flows.
	StartCapture(ctx context.Context, onAudio func(pcm []byte)) error

	// StopCapture releases the underlying device tracks. It is the
	// only path that releases the hardware resource.
	StopCapture() error

	EncodingInfo() audio.EncodingInfo
}

// outboundFrame is one encoded capture frame ready for the session.
type outboundFrame struct {
	MediaData string
	MimeType  string
}

// capturePipeline chunks the live microphone stream into fixed-size
// frames, encodes each one for transport and forwards it to the
// session bridge.
type capturePipeline struct {
	mu sync.Mutex

	client   CaptureClient
	leftover []byte

	capturing atomic.Bool

	// onFrame receives each transport-ready frame.
	onFrame func(frame outboundFrame)
	// rawTap optionally receives the same PCM before encoding, for
	// capture-side transcription.
	rawTap func(pcm []byte)
}

func newCapturePipeline(client CaptureClient, onFrame func(frame outboundFrame)) *capturePipeline {
	if onFrame == nil {
		onFrame = func(outboundFrame) {}
	}

	return &capturePipeline{client: client, onFrame: onFrame}
}

// Start acquires the microphone. Failure is a hard stop for session
// activation: the caller must not open a connection without capture.
func (p *capturePipeline) Start(ctx context.Context) error {
	if p.client == nil {
		return ErrMicrophoneUnavailable
	}
	if !p.capturing.CompareAndSwap(false, true) {
		return nil
	}

	if err := p.client.StartCapture(ctx, p.onAudio); err != nil {
		p.capturing.Store(false)
		return fmt.Errorf("%w: %v", ErrMicrophoneUnavailable, err)
	}

	return nil
}

// Stop releases the device unconditionally, even when teardown was
// triggered by an error elsewhere. Buffered leftovers are dropped.
func (p *capturePipeline) Stop() error {
	if p.client == nil || !p.capturing.CompareAndSwap(true, false) {
		return nil
	}

	p.mu.Lock()
	p.leftover = nil
	p.mu.Unlock()

	if err := p.client.StopCapture(); err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}
	return nil
}

func (p *capturePipeline) IsCapturing() bool {
	return p.capturing.Load()
}

func (p *capturePipeline) EncodingInfo() audio.EncodingInfo {
	if p.client == nil {
		return audio.GetDefaultEncodingInfo()
	}

	return p.client.EncodingInfo()
}

// onAudio accumulates device callbacks into full frames. The device
// delivers arbitrary chunk sizes; frames always leave at exactly
// captureFrameSamples samples.
func (p *capturePipeline) onAudio(pcm []byte) {
	if !p.capturing.Load() {
		return
	}

	encodingInfo := p.EncodingInfo()
	frameBytes := captureFrameSamples * encodingInfo.Format.ByteSize()

	p.mu.Lock()
	p.leftover = append(p.leftover, pcm...)
	var frames [][]byte
	for len(p.leftover) >= frameBytes {
		frame := make([]byte, frameBytes)
		copy(frame, p.leftover[:frameBytes])
		p.leftover = p.leftover[frameBytes:]
		frames = append(frames, frame)
	}
	p.mu.Unlock()

	for _, frame := range frames {
		if p.rawTap != nil {
			p.rawTap(frame)
		}
		p.onFrame(outboundFrame{
			MediaData: audio.EncodeBase64(frame),
			MimeType:  encodingInfo.MimeType(),
		})
	}
}
