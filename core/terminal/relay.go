// Package terminal is the terminal-relay collaborator behind the
// terminal_op tool: commands the live session produces are echoed to
// an external terminal view over a websocket.
package terminal

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	voice "github.com/fuxstixx/fuxstixx-core/core"
	"github.com/gorilla/websocket"
)

// Relay forwards command strings to the terminal view. The connection
// is opened lazily on the first command and re-opened after a failed
// write.
type Relay struct {
	endpoint string

	connMu sync.Mutex
	conn   *websocket.Conn
}

func NewRelay(endpoint string) *Relay {
	return &Relay{endpoint: endpoint}
}

type commandMessage struct {
	Command string `json:"command"`
}

// Relay echoes one command to the terminal view and returns the
// acknowledgement the session reads back.
func (r *Relay) Relay(ctx context.Context, command string) (string, error) {
	r.connMu.Lock()
	defer r.connMu.Unlock()

	if r.conn == nil {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, r.endpoint, http.Header{})
		if err != nil {
			return "", fmt.Errorf("failed to reach terminal view: %w", err)
		}
		r.conn = conn
	}

	if err := r.conn.WriteJSON(commandMessage{Command: command}); err != nil {
		// Drop the connection so the next command redials.
		r.conn.Close()
		r.conn = nil
		return "", fmt.Errorf("failed to relay command: %w", err)
	}

	return fmt.Sprintf("relayed %q to the terminal", command), nil
}

func (r *Relay) Close() error {
	r.connMu.Lock()
	defer r.connMu.Unlock()

	if r.conn == nil {
		return nil
	}
	conn := r.conn
	r.conn = nil

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return conn.Close()
}

// ToolParams is the parameter prototype reflected into the terminal_op
// declaration during session setup.
type ToolParams struct {
	Command string `json:"command" jsonschema:"description=Shell command to echo to the terminal view"`
}

// Tool exposes the relay as the terminal_op operation.
func (r *Relay) Tool() voice.Tool {
	return voice.Tool{
		Name:        "terminal_op",
		Description: "Echo a command to the external terminal view.",
		Parameters:  &ToolParams{},
		Handler: func(ctx context.Context, arguments map[string]any) (string, error) {
			command, _ := arguments["command"].(string)
			if command == "" {
				return "", fmt.Errorf("terminal_op requires a command")
			}
			return r.Relay(ctx, command)
		},
	}
}
