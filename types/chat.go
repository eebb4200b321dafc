package types

import "context"

const (
	TypeWebsocketPing  = "ping"
	TypeWebsocketPong  = "pong"
	TypeWebsocketDoubt = "doubt"
	TypeWebsocketError = "error"
)

type WebsocketRequest struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type WebsocketResponse struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type WebsocketDoubtPayload struct {
	Query string `json:"query"`
}

// Message is a single turn in a tutor conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// FunctionHandler executes one registered LLM tool call.
type FunctionHandler func(ctx context.Context, args []byte) (any, error)
