package gemini

import (
	"fmt"
	"log"
	"sync"

	"github.com/fuxstixx/fuxstixx-core/core/realtime"
	"github.com/gorilla/websocket"
)

type session struct {
	connMu sync.Mutex
	conn   *websocket.Conn
	closed bool

	callbacks realtime.Callbacks
}

var _ realtime.Session = (*session)(nil)

func (s *session) writeJSON(msg clientMessage) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.closed {
		return fmt.Errorf("session is closed")
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write to gemini session: %w", err)
	}
	return nil
}

func (s *session) SendAudio(mediaData, mimeType string) error {
	return s.writeJSON(clientMessage{RealtimeInput: &realtimeInputPayload{
		MediaChunks: []mediaChunk{{MimeType: mimeType, Data: mediaData}},
	}})
}

func (s *session) SendText(text string) error {
	return s.writeJSON(clientMessage{ClientContent: &clientContentPayload{
		Turns:        []content{{Role: "user", Parts: []part{{Text: text}}}},
		TurnComplete: true,
	}})
}

func (s *session) SendToolResponse(id, name, result string) error {
	return s.writeJSON(clientMessage{ToolResponse: &toolResponsePayload{
		FunctionResponses: []functionResponse{{
			ID:       id,
			Name:     name,
			Response: map[string]any{"result": result},
		}},
	}})
}

func (s *session) Close() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")); err != nil {
		log.Println("Failed to send close message to gemini session", "error", err)
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close gemini session: %w", err)
	}
	return nil
}

// readAndProcessMessages is the single reader. Events are delivered
// synchronously so arrival order is preserved end to end.
func (s *session) readAndProcessMessages() {
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			s.connMu.Lock()
			wasClosed := s.closed
			s.closed = true
			s.connMu.Unlock()
			s.conn.Close()

			if wasClosed || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				if s.callbacks.OnClose != nil {
					s.callbacks.OnClose()
				}
				return
			}
			if s.callbacks.OnError != nil {
				s.callbacks.OnError(fmt.Errorf("failed to read gemini websocket message: %w", err))
			}
			return
		}

		parsed, err := parseServerMessage(msg)
		if err != nil {
			log.Println("Failed to parse gemini message", "error", err)
			continue
		}
		if s.callbacks.OnEvent != nil {
			for _, event := range parsed {
				s.callbacks.OnEvent(event)
			}
		}
	}
}
