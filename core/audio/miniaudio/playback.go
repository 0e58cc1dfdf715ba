//go:build cgo

package miniaudio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	voice "github.com/fuxstixx/fuxstixx-core/core"
	"github.com/fuxstixx/fuxstixx-core/core/audio"
	"github.com/gen2brain/malgo"
)

// playbackOutput feeds scheduled buffers to the playback device. The
// scheduler hands buffers over in playback order, so the device drains
// a simple segment queue; a gap between buffers comes out as silence
// because the data callback zero-fills when the queue is empty.
type playbackOutput struct {
	audioContext *malgo.AllocatedContext
	device       *malgo.Device
	config       malgo.DeviceConfig

	segments []*playbackSegment
	consumed int

	mu      sync.Mutex
	audioMu sync.Mutex
}

type playbackSegment struct {
	data       []byte
	onComplete func()

	// cancelled is written from the scheduler's goroutine and read on
	// the device thread.
	cancelled atomic.Bool
}

// Stop cancels the segment: its remaining bytes are skipped and its
// completion callback never fires.
func (s *playbackSegment) Stop() {
	s.cancelled.Store(true)
}

func (c *playbackOutput) Init(audioContext *malgo.AllocatedContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sampleRate := uint32(audio.PlaybackSampleRate)
	channels := 1
	format := malgo.FormatS16
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	c.config = malgo.DefaultDeviceConfig(malgo.Playback)
	c.config.SampleRate = sampleRate
	c.config.Playback.Format = format
	c.config.Playback.Channels = uint32(channels)
	c.config.Alsa.NoMMap = 1
	c.config.PeriodSizeInFrames = sampleRate / 10 // ~100ms of audio
	c.config.Periods = 4

	c.audioContext = audioContext

	var err error
	if c.device, err = malgo.InitDevice(
		c.audioContext.Context,
		c.config,
		malgo.DeviceCallbacks{Data: c.processAudio(bytesPerFrame)},
	); err != nil {
		return err
	}

	return nil
}

func (c *playbackOutput) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	if err := c.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	return nil
}

// Schedule queues one buffer behind everything already queued. The
// start time is implied by queue order; onComplete fires once the
// device has consumed the buffer.
func (c *playbackOutput) Schedule(samples []float32, encodingInfo audio.EncodingInfo, _ time.Duration, onComplete func()) (voice.PlaybackHandle, error) {
	c.mu.Lock()
	device := c.device
	c.mu.Unlock()
	if device == nil {
		return nil, fmt.Errorf("device not initialized")
	} else if !device.IsStarted() {
		return nil, fmt.Errorf("device not started")
	}
	if encodingInfo.SampleRate != audio.PlaybackSampleRate {
		return nil, fmt.Errorf("unsupported playback sample rate %d", encodingInfo.SampleRate)
	}

	segment := &playbackSegment{data: audio.Encode(samples), onComplete: onComplete}

	c.audioMu.Lock()
	defer c.audioMu.Unlock()
	c.segments = append(c.segments, segment)
	return segment, nil
}

// Clear drops everything queued without firing completions.
func (c *playbackOutput) Clear() {
	c.audioMu.Lock()
	defer c.audioMu.Unlock()

	c.segments = nil
	c.consumed = 0
}

func (c *playbackOutput) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	if err := c.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop playback device: %w", err)
	}

	c.Clear()
	return nil
}

func (c *playbackOutput) Uninit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}

	c.device.Uninit()
	c.device = nil

	return nil
}

func (c *playbackOutput) processAudio(bytesPerFrame int) malgo.DataProc {
	return func(pOutput, _ []byte, frameCount uint32) {
		need := int(frameCount) * bytesPerFrame
		filled := 0
		var completed []func()

		c.audioMu.Lock()
		for filled < need && len(c.segments) > 0 {
			segment := c.segments[0]
			if segment.cancelled.Load() {
				c.segments = c.segments[1:]
				c.consumed = 0
				continue
			}

			remaining := segment.data[c.consumed:]
			n := copy(pOutput[filled:need], remaining)
			filled += n
			c.consumed += n

			if c.consumed == len(segment.data) {
				if segment.onComplete != nil {
					completed = append(completed, segment.onComplete)
				}
				c.segments = c.segments[1:]
				c.consumed = 0
			}
		}
		c.audioMu.Unlock()

		// Completions run off the device thread.
		if len(completed) > 0 {
			go func() {
				for _, callback := range completed {
					callback()
				}
			}()
		}
	}
}
