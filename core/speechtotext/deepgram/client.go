// Package deepgram streams capture audio to the hosted transcription
// service and reports finished utterances back to the session bridge.
package deepgram

import (
	"context"
	"sync"
	"time"

	"github.com/fuxstixx/fuxstixx-core/core/audio"
	"github.com/fuxstixx/fuxstixx-core/core/speechtotext"
	"github.com/gorilla/websocket"
)

// TranscriptionClient is a streaming transcription session. One client
// carries at most one stream at a time.
type TranscriptionClient struct {
	connMu sync.Mutex
	conn   *websocket.Conn

	lastMsgTs time.Time

	accumulatedTranscript string
	unendedSegment        bool
}

func NewTranscriptionClient() *TranscriptionClient {
	return &TranscriptionClient{lastMsgTs: time.Now()}
}

// Start opens the stream and routes finished utterances to
// onTranscript. It satisfies the bridge's local transcriber contract.
func (s *TranscriptionClient) Start(ctx context.Context, encodingInfo audio.EncodingInfo, onTranscript func(text string)) error {
	return s.Transcribe(ctx,
		speechtotext.WithEncodingInfo(encodingInfo),
		speechtotext.WithTranscriptionCallback(onTranscript),
	)
}

// Close flushes the remote buffer and tears the stream down.
func (s *TranscriptionClient) Close(_ context.Context) error {
	if err := s.StopStream(); err != nil {
		return err
	}

	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn != nil {
		conn := s.conn
		s.conn = nil
		return conn.Close()
	}
	return nil
}
