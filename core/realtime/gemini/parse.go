package gemini

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/fuxstixx/fuxstixx-core/core/audio"
	"github.com/fuxstixx/fuxstixx-core/core/events"
)

func parseSetupConfirmation(msg []byte) (bool, error) {
	var parsed serverMessage
	if err := json.Unmarshal(msg, &parsed); err != nil {
		return false, fmt.Errorf("failed to parse setup confirmation: %w", err)
	}
	return parsed.SetupComplete != nil, nil
}

// parseServerMessage translates one wire message into the typed events
// the bridge consumes. A single message can carry several of them
// (audio parts, transcription and turn completion arrive together);
// they are emitted in wire order: audio first, then transcriptions,
// then interruption or turn completion.
func parseServerMessage(msg []byte) ([]events.Event, error) {
	var parsed serverMessage
	if err := json.Unmarshal(msg, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal server message: %w", err)
	}

	var out []events.Event

	if serverContent := parsed.ServerContent; serverContent != nil {
		if serverContent.ModelTurn != nil {
			for _, part := range serverContent.ModelTurn.Parts {
				if part.InlineData == nil || part.InlineData.Data == "" {
					continue
				}
				out = append(out, events.NewAudioChunk(
					part.InlineData.Data,
					sampleRateFromMimeType(part.InlineData.MimeType),
				))
			}
		}
		if serverContent.InputTranscription != nil && serverContent.InputTranscription.Text != "" {
			out = append(out, events.NewTranscriptFragment(events.SpeakerUser, serverContent.InputTranscription.Text))
		}
		if serverContent.OutputTranscription != nil && serverContent.OutputTranscription.Text != "" {
			out = append(out, events.NewTranscriptFragment(events.SpeakerModel, serverContent.OutputTranscription.Text))
		}
		if serverContent.Interrupted {
			out = append(out, events.NewInterrupted())
		}
		if serverContent.TurnComplete {
			out = append(out, events.NewTurnComplete())
		}
	}

	if toolCall := parsed.ToolCall; toolCall != nil {
		for _, call := range toolCall.FunctionCalls {
			out = append(out, events.NewToolCallRequested(call.ID, call.Name, call.Args))
		}
	}

	return out, nil
}

// sampleRateFromMimeType extracts the rate from a media type such as
// "audio/pcm;rate=24000". Chunks without a parseable rate fall back to
// the playback default.
func sampleRateFromMimeType(mimeType string) int {
	for _, param := range strings.Split(mimeType, ";") {
		param = strings.TrimSpace(param)
		if value, found := strings.CutPrefix(param, "rate="); found {
			if rate, err := strconv.Atoi(value); err == nil && rate > 0 {
				return rate
			}
		}
	}
	return audio.PlaybackSampleRate
}
