package terminal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{}

func newFakeTerminalView(t *testing.T) (string, chan string) {
	t.Helper()

	commands := make(chan string, 16)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("failed to upgrade connection: %v", err)
			return
		}
		defer conn.Close()

		for {
			var msg commandMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			commands <- msg.Command
		}
	}))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http"), commands
}

func expectCommand(t *testing.T, commands chan string, expected string) {
	t.Helper()

	select {
	case command := <-commands:
		if command != expected {
			t.Fatalf("expected command %q, got %q", expected, command)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for command %q", expected)
	}
}

func TestRelayEchoesCommandsAndAcknowledges(t *testing.T) {
	endpoint, commands := newFakeTerminalView(t)
	relay := NewRelay(endpoint)
	t.Cleanup(func() { relay.Close() })

	ack, err := relay.Relay(context.Background(), "ls -la")
	if err != nil {
		t.Fatalf("expected relay to succeed, got %v", err)
	}
	if !strings.Contains(ack, "ls -la") {
		t.Fatalf("expected the acknowledgement to name the command, got %q", ack)
	}
	expectCommand(t, commands, "ls -la")

	// The connection is reused for subsequent commands.
	if _, err := relay.Relay(context.Background(), "uptime"); err != nil {
		t.Fatalf("expected second relay to succeed, got %v", err)
	}
	expectCommand(t, commands, "uptime")
}

func TestRelayFailsWhenViewIsUnreachable(t *testing.T) {
	relay := NewRelay("ws://127.0.0.1:1/terminal")

	if _, err := relay.Relay(context.Background(), "ls"); err == nil {
		t.Fatal("expected relay to an unreachable view to fail")
	}
}

func TestRelayRedialsAfterClose(t *testing.T) {
	endpoint, commands := newFakeTerminalView(t)
	relay := NewRelay(endpoint)
	t.Cleanup(func() { relay.Close() })

	if _, err := relay.Relay(context.Background(), "first"); err != nil {
		t.Fatalf("expected relay to succeed, got %v", err)
	}
	expectCommand(t, commands, "first")

	if err := relay.Close(); err != nil {
		t.Fatalf("expected close to succeed, got %v", err)
	}

	if _, err := relay.Relay(context.Background(), "second"); err != nil {
		t.Fatalf("expected relay to redial after close, got %v", err)
	}
	expectCommand(t, commands, "second")
}

func TestToolRequiresCommand(t *testing.T) {
	endpoint, commands := newFakeTerminalView(t)
	relay := NewRelay(endpoint)
	t.Cleanup(func() { relay.Close() })
	tool := relay.Tool()

	if tool.Name != "terminal_op" {
		t.Fatalf("unexpected tool name %q", tool.Name)
	}

	if _, err := tool.Handler(context.Background(), map[string]any{}); err == nil {
		t.Fatal("expected a missing command to be rejected")
	}

	ack, err := tool.Handler(context.Background(), map[string]any{"command": "whoami"})
	if err != nil {
		t.Fatalf("expected handler to succeed, got %v", err)
	}
	if ack == "" {
		t.Fatal("expected a non-empty acknowledgement")
	}
	expectCommand(t, commands, "whoami")
}
