package voice

import (
	"context"
	"errors"
	"testing"

	"github.com/fuxstixx/fuxstixx-core/core/audio"
)

type fakeCaptureClient struct {
	onAudio   func(pcm []byte)
	startErr  error
	started   int
	stopped   int
	encoding  audio.EncodingInfo
}

func (c *fakeCaptureClient) StartCapture(_ context.Context, onAudio func(pcm []byte)) error {
	if c.startErr != nil {
		return c.startErr
	}

	c.started++
	c.onAudio = onAudio
	return nil
}

func (c *fakeCaptureClient) StopCapture() error {
	c.stopped++
	return nil
}

func (c *fakeCaptureClient) EncodingInfo() audio.EncodingInfo {
	if c.encoding.IsZero() {
		return audio.GetDefaultEncodingInfo()
	}
	return c.encoding
}

func TestCaptureForwardsFixedSizeEncodedFrames(t *testing.T) {
	client := &fakeCaptureClient{}
	var frames []outboundFrame
	pipeline := newCapturePipeline(client, func(frame outboundFrame) { frames = append(frames, frame) })

	if err := pipeline.Start(context.Background()); err != nil {
		t.Fatalf("expected capture to start, got %v", err)
	}

	// One frame of 4096 zero samples arrives split across two device
	// callbacks.
	client.onAudio(make([]byte, 5000))
	if len(frames) != 0 {
		t.Fatalf("expected no frame before 8192 bytes accumulated, got %d", len(frames))
	}
	client.onAudio(make([]byte, 3192))

	if len(frames) != 1 {
		t.Fatalf("expected exactly one frame, got %d", len(frames))
	}
	if frames[0].MimeType != "audio/pcm;rate=16000" {
		t.Fatalf("unexpected mime type %q", frames[0].MimeType)
	}

	pcm, err := audio.DecodeBase64(frames[0].MediaData)
	if err != nil {
		t.Fatalf("expected frame payload to decode, got %v", err)
	}
	if len(pcm) != 8192 {
		t.Fatalf("expected 8192 bytes per frame, got %d", len(pcm))
	}
	samples, err := audio.Decode(pcm)
	if err != nil {
		t.Fatalf("expected pcm to decode, got %v", err)
	}
	if len(samples) != 4096 {
		t.Fatalf("expected 4096 samples per frame, got %d", len(samples))
	}
	for i, sample := range samples {
		if sample != 0 {
			t.Fatalf("expected silence, sample %d was %f", i, sample)
		}
	}
}

func TestCaptureEmitsMultipleFramesFromOneCallback(t *testing.T) {
	client := &fakeCaptureClient{}
	var frames []outboundFrame
	pipeline := newCapturePipeline(client, func(frame outboundFrame) { frames = append(frames, frame) })

	if err := pipeline.Start(context.Background()); err != nil {
		t.Fatalf("expected capture to start, got %v", err)
	}
	client.onAudio(make([]byte, 8192*2+10))

	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
}

func TestCaptureStartFailurePropagatesAsMicrophoneUnavailable(t *testing.T) {
	client := &fakeCaptureClient{startErr: errors.New("permission denied")}
	pipeline := newCapturePipeline(client, nil)

	err := pipeline.Start(context.Background())
	if !errors.Is(err, ErrMicrophoneUnavailable) {
		t.Fatalf("expected ErrMicrophoneUnavailable, got %v", err)
	}
	if pipeline.IsCapturing() {
		t.Fatal("expected pipeline to stay idle after a failed start")
	}
}

func TestCaptureWithoutDeviceFailsActivation(t *testing.T) {
	pipeline := newCapturePipeline(nil, nil)

	if err := pipeline.Start(context.Background()); !errors.Is(err, ErrMicrophoneUnavailable) {
		t.Fatalf("expected ErrMicrophoneUnavailable, got %v", err)
	}
}

func TestCaptureStopReleasesDeviceAndDropsLeftovers(t *testing.T) {
	client := &fakeCaptureClient{}
	var frames []outboundFrame
	pipeline := newCapturePipeline(client, func(frame outboundFrame) { frames = append(frames, frame) })

	if err := pipeline.Start(context.Background()); err != nil {
		t.Fatalf("expected capture to start, got %v", err)
	}
	client.onAudio(make([]byte, 100))

	if err := pipeline.Stop(); err != nil {
		t.Fatalf("expected stop to succeed, got %v", err)
	}
	if client.stopped != 1 {
		t.Fatalf("expected device released once, got %d", client.stopped)
	}

	// Audio arriving after stop is ignored.
	client.onAudio(make([]byte, 8192))
	if len(frames) != 0 {
		t.Fatalf("expected no frames after stop, got %d", len(frames))
	}

	// Stop is idempotent.
	if err := pipeline.Stop(); err != nil {
		t.Fatalf("expected repeated stop to be a no-op, got %v", err)
	}
	if client.stopped != 1 {
		t.Fatalf("expected no second release, got %d", client.stopped)
	}
}
