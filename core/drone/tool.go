package drone

import (
	"context"
	"fmt"

	voice "github.com/fuxstixx/fuxstixx-core/core"
)

// ToolParams is the parameter prototype reflected into the
// vector_drone_op declaration during session setup.
type ToolParams struct {
	Action string `json:"action" jsonschema:"enum=roam_start,enum=roam_stop,enum=status,enum=say,description=Drone operation to perform"`
	Text   string `json:"text,omitempty" jsonschema:"description=Text to speak when action is say"`
}

// Tool exposes the client as the vector_drone_op operation.
func (c *Client) Tool() voice.Tool {
	return voice.Tool{
		Name:        "vector_drone_op",
		Description: "Control the companion drone: start or stop roaming, read its status, or make it speak.",
		Parameters:  &ToolParams{},
		Handler:     c.handle,
	}
}

func (c *Client) handle(ctx context.Context, arguments map[string]any) (string, error) {
	action, _ := arguments["action"].(string)

	switch action {
	case "roam_start":
		if err := c.SetRoaming(ctx, true); err != nil {
			return "", err
		}
		return "roaming started", nil

	case "roam_stop":
		if err := c.SetRoaming(ctx, false); err != nil {
			return "", err
		}
		return "roaming stopped", nil

	case "status":
		return c.Status(ctx)

	case "say":
		text, _ := arguments["text"].(string)
		if text == "" {
			return "", fmt.Errorf("say requires text")
		}
		if err := c.Say(ctx, text); err != nil {
			return "", err
		}
		return fmt.Sprintf("said %q", text), nil

	default:
		return "", fmt.Errorf("unknown drone action %q", action)
	}
}
