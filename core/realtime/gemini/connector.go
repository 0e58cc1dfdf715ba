// Package gemini implements the realtime session contract over the
// bidirectional generate-content websocket API.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"github.com/fuxstixx/fuxstixx-core/core/realtime"
	"github.com/gorilla/websocket"
	"github.com/invopop/jsonschema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
	defaultModel    = "models/gemini-2.0-flash-live-001"
)

// Connector dials live sessions against the generative language
// websocket endpoint. The zero value is not usable; construct with
// NewConnector.
type Connector struct {
	endpoint string
	apiKey   string
}

type ConnectorOption func(*Connector)

// WithEndpoint overrides the websocket endpoint. Used by tests to
// point the connector at a local server.
func WithEndpoint(endpoint string) ConnectorOption {
	return func(c *Connector) {
		c.endpoint = endpoint
	}
}

// WithAPIKey overrides the key read from the GEMINI_API_KEY
// environment variable.
func WithAPIKey(apiKey string) ConnectorOption {
	return func(c *Connector) {
		c.apiKey = apiKey
	}
}

func NewConnector(opts ...ConnectorOption) *Connector {
	connector := &Connector{endpoint: defaultEndpoint}
	for _, opt := range opts {
		opt(connector)
	}
	if connector.apiKey == "" {
		connector.apiKey = os.Getenv("GEMINI_API_KEY")
	}
	return connector
}

// Connect opens the websocket, sends the setup message and blocks
// until the peer confirms it. The returned session's read loop then
// delivers every inbound message through callbacks.OnEvent in arrival
// order.
func (c *Connector) Connect(ctx context.Context, config realtime.SessionConfig, callbacks realtime.Callbacks) (realtime.Session, error) {
	ctx, span := tracer.Start(ctx, "connect live session")
	defer span.End()

	if c.apiKey == "" {
		return nil, fmt.Errorf("gemini api key not found")
	}

	endpointURL, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	queryParams := endpointURL.Query()
	queryParams.Set("key", c.apiKey)
	endpointURL.RawQuery = queryParams.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpointURL.String(), http.Header{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to open socket connection to gemini: %w", err)
	}

	s := &session{conn: conn, callbacks: callbacks}

	model := config.Model
	if model == "" {
		model = defaultModel
	}
	span.SetAttributes(attribute.String("model", model))

	if err := s.writeJSON(clientMessage{Setup: setupMessage(model, config)}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send session setup: %w", err)
	}

	// The first server message must confirm the setup before any
	// audio is exchanged.
	_, msg, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read setup confirmation: %w", err)
	}
	confirmed, err := parseSetupConfirmation(msg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	if !confirmed {
		conn.Close()
		return nil, fmt.Errorf("session setup was not confirmed")
	}

	go s.readAndProcessMessages()

	return s, nil
}

func setupMessage(model string, config realtime.SessionConfig) *setupPayload {
	setup := &setupPayload{Model: model}
	if config.SystemInstruction != "" {
		setup.SystemInstruction = &content{Parts: []part{{Text: config.SystemInstruction}}}
	}
	if len(config.Tools) > 0 {
		setup.Tools = []tool{{FunctionDeclarations: declareFunctions(config.Tools)}}
	}
	if config.InputTranscription {
		setup.InputAudioTranscription = &struct{}{}
	}
	if config.OutputTranscription {
		setup.OutputAudioTranscription = &struct{}{}
	}
	return setup
}

// declareFunctions reflects each tool's parameter prototype into a
// schema the peer can validate call arguments against. Tools without a
// prototype are declared parameterless.
func declareFunctions(tools []realtime.ToolDeclaration) []functionDeclaration {
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		Anonymous:      true,
	}

	declarations := make([]functionDeclaration, 0, len(tools))
	for _, t := range tools {
		declaration := functionDeclaration{Name: t.Name, Description: t.Description}
		if t.Parameters != nil {
			declaration.Parameters = reflector.Reflect(t.Parameters)
		}
		declarations = append(declarations, declaration)
	}
	return declarations
}
