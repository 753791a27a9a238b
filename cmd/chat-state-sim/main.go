// chat-state-sim is a stand-in chat-state engine for local development.
// It speaks the proxy's newline-delimited JSON protocol on stdin/stdout:
// an init frame with the merged configuration comes first, the sim answers
// with a ready frame, and then echoes canned assistant turns for every
// generate_completion request.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
)

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type initFrame struct {
	Config json.RawMessage `json:"config"`
}

type request struct {
	Type    string   `json:"type"`
	ID      string   `json:"id,omitempty"`
	Message *message `json:"message,omitempty"`
}

type response struct {
	Type     string    `json:"type"`
	ID       string    `json:"id,omitempty"`
	ActorID  string    `json:"actor_id,omitempty"`
	Error    string    `json:"error,omitempty"`
	Messages []message `json:"messages,omitempty"`
}

type sim struct {
	out     *json.Encoder
	actorID string
	history []message
}

func main() {
	log.SetOutput(os.Stderr)
	log.SetPrefix("[chat-state-sim] ")

	s := &sim{
		out:     json.NewEncoder(os.Stdout),
		actorID: uuid.New().String(),
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	// First line is the init frame with the merged configuration.
	if !scanner.Scan() {
		log.Fatal("no init frame on stdin")
	}
	var init initFrame
	if err := json.Unmarshal(scanner.Bytes(), &init); err != nil {
		log.Fatalf("parsing init frame: %v", err)
	}
	log.Printf("initialized with %d bytes of config, actor %s", len(init.Config), s.actorID)

	if err := s.out.Encode(response{Type: "ready", ActorID: s.actorID}); err != nil {
		log.Fatalf("writing ready frame: %v", err)
	}

	for scanner.Scan() {
		var req request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			s.out.Encode(response{Type: "error", Error: fmt.Sprintf("malformed request: %v", err)})
			continue
		}
		s.handle(req)
	}
	if err := scanner.Err(); err != nil {
		log.Printf("stdin closed with error: %v", err)
	}
}

func (s *sim) handle(req request) {
	switch req.Type {
	case "add_message":
		if req.Message == nil {
			s.out.Encode(response{Type: "error", ID: req.ID, Error: "add_message requires a message"})
			return
		}
		s.history = append(s.history, *req.Message)
		s.out.Encode(response{Type: "success", ID: req.ID})

	case "generate_completion":
		reply := message{
			Role:    "assistant",
			Content: fmt.Sprintf("(simulated reply to %d message(s))", len(s.history)),
		}
		s.history = append(s.history, reply)
		s.out.Encode(response{Type: "success", ID: req.ID})

	case "get_history":
		s.out.Encode(response{Type: "history", ID: req.ID, Messages: s.history})

	default:
		s.out.Encode(response{Type: "error", ID: req.ID, Error: "unknown request type: " + req.Type})
	}
}
