package voice

import (
	"sync"
	"time"

	"github.com/fuxstixx/fuxstixx-core/core/events"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

// ConversationEntry is one exchange side in the chat log. Finalized
// entries are immutable once appended; at most one provisional entry
// tagged Live exists while the model is still speaking, and it is
// replaced (not duplicated) when the turn flushes.
type ConversationEntry struct {
	ID        string
	Speaker   events.Speaker
	Text      string
	Live      bool
	Timestamp time.Time
}

// conversationLog owns the ordered entry list the surrounding chat UI
// renders. It does not persist anything; entries are handed off via
// Snapshot and the bridge's update callback.
type conversationLog struct {
	mu sync.Mutex

	entries     []ConversationEntry
	liveEntryID string
}

func newConversationLog() *conversationLog {
	return &conversationLog{}
}

// UpsertLive creates or updates the provisional entry for the model's
// in-progress speech so the UI reflects it before the turn completes.
func (l *conversationLog) UpsertLive(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.liveEntryID != "" {
		for i := range l.entries {
			if l.entries[i].ID == l.liveEntryID {
				l.entries[i].Text = text
				return
			}
		}
	}

	entry := ConversationEntry{
		ID:        uuid.NewString(),
		Speaker:   events.SpeakerModel,
		Text:      text,
		Live:      true,
		Timestamp: time.Now(),
	}
	l.liveEntryID = entry.ID
	l.entries = append(l.entries, entry)
}

// AppendFinal replaces the provisional entry with the finalized
// user/model pair in one step.
func (l *conversationLog) AppendFinal(userText, modelText string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.removeLiveLocked()
	now := time.Now()
	l.entries = append(l.entries,
		ConversationEntry{ID: uuid.NewString(), Speaker: events.SpeakerUser, Text: userText, Timestamp: now},
		ConversationEntry{ID: uuid.NewString(), Speaker: events.SpeakerModel, Text: modelText, Timestamp: now},
	)
}

// AppendUser records a typed (non-voice) user message.
func (l *conversationLog) AppendUser(text string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, ConversationEntry{
		ID:        uuid.NewString(),
		Speaker:   events.SpeakerUser,
		Text:      text,
		Timestamp: time.Now(),
	})
}

// RetractLive drops the provisional entry without finalizing it.
func (l *conversationLog) RetractLive() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.removeLiveLocked()
}

func (l *conversationLog) removeLiveLocked() {
	if l.liveEntryID == "" {
		return
	}

	for i := range l.entries {
		if l.entries[i].ID == l.liveEntryID {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			break
		}
	}
	l.liveEntryID = ""
}

// Snapshot returns a point-in-time copy of the log.
func (l *conversationLog) Snapshot() []ConversationEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var entries []ConversationEntry
	copier.Copy(&entries, l.entries)
	return entries
}
