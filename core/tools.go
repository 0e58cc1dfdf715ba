package voice

import (
	"context"
	"fmt"
	"sync"

	"github.com/fuxstixx/fuxstixx-core/core/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// fallbackToolResponse is returned for operation names no collaborator
// claims; the peer's turn continues instead of failing.
const fallbackToolResponse = "acknowledged"

// ToolCallResponse answers one ToolCallRequested event. Exactly one
// response is produced per request id, whatever happens during
// dispatch.
type ToolCallResponse struct {
	ID     string
	Name   string
	Result string
}

// ToolHandler executes one named operation on behalf of the peer.
type ToolHandler func(ctx context.Context, arguments map[string]any) (string, error)

// Tool couples an operation the session may invoke with the
// collaborator that serves it. Parameters holds a prototype struct the
// transport reflects into a schema for the session setup declaration.
type Tool struct {
	Name        string
	Description string
	Parameters  any
	Handler     ToolHandler
}

// toolRegistry dispatches tool-call requests to registered
// collaborators.
type toolRegistry struct {
	mu    sync.RWMutex
	tools []Tool
}

func newToolRegistry(tools ...Tool) *toolRegistry {
	return &toolRegistry{tools: tools}
}

func (r *toolRegistry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tools = append(r.tools, tool)
}

// Declarations returns the registered tools for session setup.
func (r *toolRegistry) Declarations() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	declarations := make([]Tool, len(r.tools))
	copy(declarations, r.tools)
	return declarations
}

// Dispatch routes one request to its collaborator and always produces
// a response carrying the request id. Collaborator failures become an
// error-text result; unknown operations get the generic
// acknowledgement so the peer's turn is never left hanging.
func (r *toolRegistry) Dispatch(ctx context.Context, request events.ToolCallRequested) ToolCallResponse {
	ctx, span := tracer.Start(ctx, "dispatch tool call")
	defer span.End()
	span.SetAttributes(
		attribute.String("tool.name", request.Name),
		attribute.String("tool.call_id", request.ID),
	)

	r.mu.RLock()
	var handler ToolHandler
	for _, tool := range r.tools {
		if tool.Name == request.Name {
			handler = tool.Handler
			break
		}
	}
	r.mu.RUnlock()

	if handler == nil {
		return ToolCallResponse{ID: request.ID, Name: request.Name, Result: fallbackToolResponse}
	}

	result, err := handler(ctx, request.Arguments)
	if err != nil {
		wrappedErr := fmt.Errorf("failed to execute tool %q: %w", request.Name, err)
		span.RecordError(wrappedErr)
		span.SetStatus(codes.Error, wrappedErr.Error())
		return ToolCallResponse{ID: request.ID, Name: request.Name, Result: fmt.Sprintf("error: %v", err)}
	}

	return ToolCallResponse{ID: request.ID, Name: request.Name, Result: result}
}
