// Package engine defines the contract with the chat-state engine: the
// opaque child service that owns conversation history, talks to the model,
// and invokes tool servers. The proxy only spawns it and forwards messages.
package engine

import (
	"context"
	"encoding/json"

	"github.com/colinrozzi/git-chat-assistant/internal/config"
)

// Message is a single chat turn submitted to the engine.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Ack is the engine's acknowledgement for a submitted request. The proxy
// passes it through unmodified.
type Ack = json.RawMessage

// Handle is a live connection to a spawned chat-state engine.
type Handle interface {
	// ID returns the engine's self-reported identifier, opaque to the proxy.
	ID() string

	// AddMessage submits a chat turn and returns the engine's ack verbatim.
	AddMessage(ctx context.Context, msg Message) (Ack, error)

	// GenerateCompletion asks the engine to produce the next assistant turn.
	GenerateCompletion(ctx context.Context) (Ack, error)

	// History returns the engine's conversation history.
	History(ctx context.Context) ([]Message, error)

	// Close shuts the engine down.
	Close() error
}

// Launcher spawns chat-state engines. Implementations: ProcessLauncher for
// real child processes, test doubles elsewhere.
type Launcher interface {
	Spawn(ctx context.Context, cfg config.Config) (Handle, error)
}

// Wire protocol: newline-delimited JSON over the child's stdin/stdout.
// The first line the proxy writes is the init frame carrying the merged
// configuration; the first line the engine writes back is the ready frame
// with its identifier. After that it is request/response in lockstep.

type initFrame struct {
	Config config.Config `json:"config"`
}

type request struct {
	Type    string   `json:"type"`
	ID      string   `json:"id,omitempty"`
	Message *Message `json:"message,omitempty"`
}

const (
	reqAddMessage         = "add_message"
	reqGenerateCompletion = "generate_completion"
	reqGetHistory         = "get_history"
)

type response struct {
	Type     string          `json:"type"`
	ID       string          `json:"id,omitempty"`
	ActorID  string          `json:"actor_id,omitempty"`
	Error    string          `json:"error,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Messages []Message       `json:"messages,omitempty"`
}

const (
	respReady   = "ready"
	respSuccess = "success"
	respError   = "error"
	respHistory = "history"
)
