package events

const (
	// KindAudioChunk identifies synthesized model speech arriving from
	// the session.
	KindAudioChunk Kind = "session.audio_chunk"
	// KindInterrupted identifies the peer signalling barge-in: the user
	// started speaking while model audio was still playing.
	KindInterrupted Kind = "session.interrupted"
)

// AudioChunk carries one decoded-transport (still PCM-encoded) audio
// payload from the model's spoken response.
type AudioChunk struct {
	Base
	// Data is base64-framed 16-bit little-endian PCM as delivered on
	// the wire.
	Data string
	// SampleRate is the declared rate of the payload; 24000 in the
	// reference configuration.
	SampleRate int
}

// NewAudioChunk creates an inbound audio chunk event.
func NewAudioChunk(data string, sampleRate int) AudioChunk {
	return AudioChunk{Base: NewBase(KindAudioChunk), Data: data, SampleRate: sampleRate}
}

// Interrupted marks a barge-in signal from the peer.
type Interrupted struct {
	Base
}

// NewInterrupted creates an interruption event.
func NewInterrupted() Interrupted {
	return Interrupted{Base: NewBase(KindInterrupted)}
}
