package voice

import (
	"context"
	"errors"
	"testing"

	"github.com/fuxstixx/fuxstixx-core/core/events"
)

func TestDispatchCorrelatesResponseWithRequestID(t *testing.T) {
	registry := newToolRegistry(Tool{
		Name: "terminal_op",
		Handler: func(_ context.Context, arguments map[string]any) (string, error) {
			return "echoed", nil
		},
	})

	response := registry.Dispatch(context.Background(), events.NewToolCallRequested("abc", "terminal_op", nil))

	if response.ID != "abc" {
		t.Fatalf("expected response id %q, got %q", "abc", response.ID)
	}
	if response.Result != "echoed" {
		t.Fatalf("expected collaborator result, got %q", response.Result)
	}
}

func TestDispatchUnknownOperationFallsBackToAcknowledgement(t *testing.T) {
	registry := newToolRegistry()

	response := registry.Dispatch(context.Background(), events.NewToolCallRequested("abc", "warp_drive_op", nil))

	if response.ID != "abc" {
		t.Fatalf("expected response id %q, got %q", "abc", response.ID)
	}
	if response.Result != fallbackToolResponse {
		t.Fatalf("expected fallback acknowledgement, got %q", response.Result)
	}
}

func TestDispatchCollaboratorFailureStillProducesResponse(t *testing.T) {
	registry := newToolRegistry(Tool{
		Name: "vector_drone_op",
		Handler: func(context.Context, map[string]any) (string, error) {
			return "", errors.New("drone offline")
		},
	})

	response := registry.Dispatch(context.Background(), events.NewToolCallRequested("xyz", "vector_drone_op", nil))

	if response.ID != "xyz" {
		t.Fatalf("expected response id %q, got %q", "xyz", response.ID)
	}
	if response.Result != "error: drone offline" {
		t.Fatalf("expected error-indicating result, got %q", response.Result)
	}
}

func TestDispatchPassesArgumentsThrough(t *testing.T) {
	var seen map[string]any
	registry := newToolRegistry(Tool{
		Name: "vector_drone_op",
		Handler: func(_ context.Context, arguments map[string]any) (string, error) {
			seen = arguments
			return "ok", nil
		},
	})

	registry.Dispatch(context.Background(), events.NewToolCallRequested("id1", "vector_drone_op", map[string]any{"action": "say", "text": "hi"}))

	if seen["action"] != "say" || seen["text"] != "hi" {
		t.Fatalf("expected arguments forwarded, got %v", seen)
	}
}

func TestDeclarationsReturnRegisteredTools(t *testing.T) {
	registry := newToolRegistry(Tool{Name: "terminal_op"})
	registry.Register(Tool{Name: "vector_drone_op"})

	declarations := registry.Declarations()
	if len(declarations) != 2 {
		t.Fatalf("expected 2 declarations, got %d", len(declarations))
	}
	if declarations[0].Name != "terminal_op" || declarations[1].Name != "vector_drone_op" {
		t.Fatalf("unexpected declaration order: %v", declarations)
	}
}
