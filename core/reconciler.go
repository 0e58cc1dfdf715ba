package voice

import (
	"strings"
	"sync"

	"github.com/fuxstixx/fuxstixx-core/core/events"
)

// transcriptReconciler merges interleaved streamed partial transcripts
// into finalized conversation entries at turn boundaries.
//
// Both accumulators are scoped to the current spoken turn: flushed on
// turn-complete, discarded wholesale on interruption.
type transcriptReconciler struct {
	mu sync.Mutex

	userBuffer  strings.Builder
	modelBuffer strings.Builder

	log *conversationLog
}

func newTranscriptReconciler(log *conversationLog) *transcriptReconciler {
	return &transcriptReconciler{log: log}
}

// OnFragment appends a streamed partial to the speaker's accumulator.
// Model fragments also keep the provisional live entry current so the
// UI shows in-progress speech.
func (r *transcriptReconciler) OnFragment(speaker events.Speaker, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch speaker {
	case events.SpeakerUser:
		r.userBuffer.WriteString(text)
	case events.SpeakerModel:
		r.modelBuffer.WriteString(text)
		r.log.UpsertLive(r.modelBuffer.String())
	}
}

// OnTurnComplete flushes both accumulators into a finalized entry pair.
//
// Turns are only finalized once the user side has spoken: a
// turn-complete with an empty user accumulator is a no-op, so
// model-only utterances never produce finalized entries.
func (r *transcriptReconciler) OnTurnComplete() {
	r.mu.Lock()
	defer r.mu.Unlock()

	userText := r.userBuffer.String()
	if strings.TrimSpace(userText) == "" {
		return
	}

	r.log.AppendFinal(userText, r.modelBuffer.String())
	r.userBuffer.Reset()
	r.modelBuffer.Reset()
}

// OnInterrupt discards the in-progress turn without emitting entries.
// The provisional live entry is retracted as well so the log never
// shows speech that was cancelled mid-stream.
func (r *transcriptReconciler) OnInterrupt() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.userBuffer.Reset()
	r.modelBuffer.Reset()
	r.log.RetractLive()
}

// pending reports the accumulator contents, for tests and the status
// line.
func (r *transcriptReconciler) pending() (userText, modelText string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.userBuffer.String(), r.modelBuffer.String()
}
