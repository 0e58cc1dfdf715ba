// Package events defines the typed inbound session event contract.
//
// Event kinds all live in the session.* namespace:
//
//   - AudioChunk (session.audio_chunk): base64-framed PCM of model
//     speech, scheduled for gapless playback.
//   - Interrupted (session.interrupted): barge-in; playback is stopped
//     and the in-progress model transcript is discarded.
//   - TranscriptFragment (session.transcript_fragment): append-only
//     partial transcript piece, tagged with the speaker.
//   - TurnComplete (session.turn_complete): boundary of one
//     user-utterance/model-response exchange.
//   - ToolCallRequested (session.tool_call_requested): request to
//     invoke a named external capability; answered with exactly one
//     response carrying the same id.
package events
