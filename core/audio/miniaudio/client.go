//go:build cgo

// Package miniaudio provides the default capture and playback device
// backends for the session bridge.
package miniaudio

import (
	"context"
	"fmt"
	"time"

	voice "github.com/fuxstixx/fuxstixx-core/core"
	"github.com/fuxstixx/fuxstixx-core/core/audio"
	"github.com/gen2brain/malgo"
)

type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
	playbackOutput
	captureClient

	epoch time.Time
}

func NewClient() (*Client, error) {
	audioCtx, err := malgo.InitContext(
		nil,
		malgo.ContextConfig{},
		func(message string) {},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	client := Client{
		audioContext: audioCtx,
		epoch:        time.Now(),
	}

	if err := client.playbackOutput.Init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}
	if err := client.playbackOutput.Start(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to start playback device: %w", err)
	}

	if err := client.captureClient.Init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize capture device: %w", err)
	}

	return &client, nil
}

func (c *Client) StartCapture(_ context.Context, onAudio func(pcm []byte)) error {
	return c.captureClient.Start(onAudio)
}

func (c *Client) StopCapture() error {
	return c.captureClient.Stop()
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}

// Now reports time since the client was opened, making the client the
// playback clock its own output is scheduled against.
func (c *Client) Now() time.Duration {
	return time.Since(c.epoch)
}

func (c *Client) Close() {
	_ = c.captureClient.Uninit()
	_ = c.playbackOutput.Uninit()
	_ = c.audioContext.Uninit()
	c.audioContext.Free()
}

var (
	_ voice.CaptureClient  = (*Client)(nil)
	_ voice.PlaybackOutput = (*Client)(nil)
	_ voice.Clock          = (*Client)(nil)
)
