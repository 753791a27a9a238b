package workflow

import (
	"context"
	"sync"

	"github.com/colinrozzi/git-chat-assistant/internal/logging"
)

// State is the auto-initiation state of a configured workflow.
type State string

const (
	// StateIdle means no workflow is configured; nothing will be initiated.
	StateIdle State = "idle"
	// StatePending means a workflow is configured but its kickoff message
	// has not been sent yet.
	StatePending State = "pending"
	// StateStarted means the kickoff message was sent. Terminal.
	StateStarted State = "started"
)

// ForwardFunc sends a synthesized user message through the proxy's normal
// forwarding path.
type ForwardFunc func(ctx context.Context, content string) error

// Initiator is the workflow auto-initiation state machine.
//
// It starts Idle when no directive is configured, otherwise Pending. The
// Pending -> Started transition happens at most once, when Kickoff succeeds
// after the child spawn completes. A failed kickoff leaves the machine
// Pending.
type Initiator struct {
	mu        sync.Mutex
	state     State
	directive *Directive
	log       *logging.Logger
}

// NewInitiator creates the state machine for an optional directive.
func NewInitiator(d *Directive, log *logging.Logger) *Initiator {
	state := StateIdle
	if d != nil {
		state = StatePending
	}
	return &Initiator{
		state:     state,
		directive: d,
		log:       log.Sub("workflow"),
	}
}

// State returns the current state.
func (i *Initiator) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Directive returns the configured directive, or nil.
func (i *Initiator) Directive() *Directive {
	return i.directive
}

// Kickoff sends the directive's kickoff message via forward and transitions
// Pending -> Started. It reports whether a message was sent. Calling it in
// Idle or Started is a no-op. If forward fails the state stays Pending and
// the error is returned.
func (i *Initiator) Kickoff(ctx context.Context, forward ForwardFunc) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.state != StatePending {
		return false, nil
	}

	i.log.Info().Str("workflow", string(i.directive.Tag)).Msg("sending workflow kickoff message")
	if err := forward(ctx, i.directive.Kickoff); err != nil {
		i.log.Error().Err(err).Str("workflow", string(i.directive.Tag)).Msg("workflow kickoff failed")
		return false, err
	}

	i.state = StateStarted
	return true, nil
}
