package events

// Speaker tags which side of the conversation a transcript fragment
// belongs to.
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerModel Speaker = "model"
)

const (
	// KindTranscriptFragment identifies a streamed partial transcript
	// for either speaker.
	KindTranscriptFragment Kind = "session.transcript_fragment"
	// KindTurnComplete identifies the end of one user/model exchange.
	KindTurnComplete Kind = "session.turn_complete"
)

// TranscriptFragment is an append-only piece of a speaker's in-progress
// utterance. Fragments for the two speakers interleave freely within a
// turn.
type TranscriptFragment struct {
	Base
	Speaker Speaker
	Text    string
}

// NewTranscriptFragment creates a transcript fragment event.
func NewTranscriptFragment(speaker Speaker, text string) TranscriptFragment {
	return TranscriptFragment{Base: NewBase(KindTranscriptFragment), Speaker: speaker, Text: text}
}

// TurnComplete marks the boundary of the current spoken turn.
type TurnComplete struct {
	Base
}

// NewTurnComplete creates a turn boundary event.
func NewTurnComplete() TurnComplete {
	return TurnComplete{Base: NewBase(KindTurnComplete)}
}
