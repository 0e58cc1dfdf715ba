package voice

import (
	"fmt"
	"sync"
	"time"

	"github.com/fuxstixx/fuxstixx-core/core/audio"
	"github.com/google/uuid"
)

// Clock is the shared audio clock playback is scheduled against.
// Implementations must be monotonic.
type Clock interface {
	Now() time.Duration
}

// PlaybackHandle is an opaque reference to one scheduled buffer that
// is still producing sound.
type PlaybackHandle interface {
	// Stop silences the buffer immediately. Stopping an already
	// finished handle is a no-op.
	Stop()
}

// PlaybackOutput turns decoded samples into audible output. The real
// implementation is backed by an output device; tests inject a fake.
type PlaybackOutput interface {
	// Schedule queues samples to begin playing at the given clock
	// time. onComplete fires once the buffer finishes naturally; it
	// must not fire after Stop.
	Schedule(samples []float32, encodingInfo audio.EncodingInfo, at time.Duration, onComplete func()) (PlaybackHandle, error)

	// Clear drops anything still buffered on the device.
	Clear()
}

// playbackScheduler lines decoded buffers up back-to-back on the audio
// clock. Gaplessness comes purely from the cursor arithmetic: each
// buffer starts where the previous one ends, never earlier than now.
type playbackScheduler struct {
	mu sync.Mutex

	clock  Clock
	output PlaybackOutput

	// cursor is the next available start time. Monotonically
	// non-decreasing while a turn is in progress; reset only by
	// Interrupt or session teardown.
	cursor time.Duration
	active map[string]PlaybackHandle
}

func newPlaybackScheduler(clock Clock, output PlaybackOutput) *playbackScheduler {
	return &playbackScheduler{
		clock:  clock,
		output: output,
		active: map[string]PlaybackHandle{},
	}
}

// SchedulePlayback queues one decoded buffer for gapless playback and
// advances the cursor past it. Scheduling failures are returned to the
// caller instead of dropping audio silently.
func (s *playbackScheduler) SchedulePlayback(samples []float32, encodingInfo audio.EncodingInfo) error {
	if len(samples) == 0 {
		return nil
	}
	if encodingInfo.SampleRate <= 0 {
		return fmt.Errorf("cannot schedule playback: invalid sample rate %d", encodingInfo.SampleRate)
	}

	duration := time.Duration(float64(len(samples)) / float64(encodingInfo.SampleRate) * float64(time.Second))

	s.mu.Lock()
	defer s.mu.Unlock()

	startTime := max(s.cursor, s.clock.Now())
	id := uuid.NewString()

	handle, err := s.output.Schedule(samples, encodingInfo, startTime, func() { s.release(id) })
	if err != nil {
		return fmt.Errorf("failed to schedule playback: %w", err)
	}

	s.active[id] = handle
	s.cursor = startTime + duration
	return nil
}

// release drops a handle after its buffer finished naturally.
func (s *playbackScheduler) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.active, id)
}

// Interrupt stops every playing buffer, clears the active set and
// rewinds the cursor to idle. Safe to call with nothing playing.
func (s *playbackScheduler) Interrupt() {
	s.mu.Lock()
	handles := make([]PlaybackHandle, 0, len(s.active))
	for _, handle := range s.active {
		handles = append(handles, handle)
	}
	s.active = map[string]PlaybackHandle{}
	s.cursor = 0
	s.mu.Unlock()

	for _, handle := range handles {
		handle.Stop()
	}
	s.output.Clear()
}

// ActiveCount reports how many scheduled buffers are still playing.
func (s *playbackScheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.active)
}

// Cursor returns the next available start time.
func (s *playbackScheduler) Cursor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cursor
}
