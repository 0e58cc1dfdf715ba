package events

const (
	// KindToolCallRequested identifies the peer asking for a named
	// external capability; the peer blocks its turn until a response
	// with the same id is returned.
	KindToolCallRequested Kind = "session.tool_call_requested"
)

// ToolCallRequested carries one function-call request from the peer.
type ToolCallRequested struct {
	Base
	ID        string
	Name      string
	Arguments map[string]any
}

// NewToolCallRequested creates a tool call request event.
func NewToolCallRequested(id, name string, arguments map[string]any) ToolCallRequested {
	return ToolCallRequested{Base: NewBase(KindToolCallRequested), ID: id, Name: name, Arguments: arguments}
}
