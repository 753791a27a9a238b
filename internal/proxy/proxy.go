// Package proxy implements the configuration-enhancing chat proxy: it
// merges the inbound payload with git-domain defaults, spawns the
// chat-state engine child, optionally kicks off an automated workflow, and
// thereafter forwards messages and answers child-identifier queries.
package proxy

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/colinrozzi/git-chat-assistant/internal/config"
	"github.com/colinrozzi/git-chat-assistant/internal/engine"
	"github.com/colinrozzi/git-chat-assistant/internal/hooks"
	"github.com/colinrozzi/git-chat-assistant/internal/logging"
	"github.com/colinrozzi/git-chat-assistant/internal/store"
	"github.com/colinrozzi/git-chat-assistant/internal/workflow"
)

// Proxy owns one spawned chat-state engine for its lifetime. The child
// identifier is written exactly once, at spawn completion.
type Proxy struct {
	id        string
	cfg       config.Config
	original  config.PartialConfig
	launcher  engine.Launcher
	initiator *workflow.Initiator
	audit     store.Auditor
	hooks     *hooks.Manager
	log       *logging.Logger

	// mu serializes the forwarding path: the engine is a turn-taking
	// system, so message N+1 is not sent before N's ack arrives.
	mu     sync.Mutex
	handle engine.Handle
	ready  bool
	failed error
}

// Option configures a Proxy.
type Option func(*Proxy)

// WithAudit sets the audit store.
func WithAudit(a store.Auditor) Option {
	return func(p *Proxy) { p.audit = a }
}

// WithHooks sets the hook manager for lifecycle events.
func WithHooks(hm *hooks.Manager) Option {
	return func(p *Proxy) { p.hooks = hm }
}

// New merges the inbound payload and prepares a proxy. Malformed payloads
// fail here with *config.ValidationError; nothing is spawned yet.
func New(partial config.PartialConfig, launcher engine.Launcher, log *logging.Logger, opts ...Option) (*Proxy, error) {
	cfg, err := config.Merge(partial)
	if err != nil {
		return nil, err
	}

	p := &Proxy{
		id:        uuid.New().String(),
		cfg:       cfg,
		original:  partial,
		launcher:  launcher,
		initiator: workflow.NewInitiator(cfg.Directive(), log),
		audit:     store.NewMemoryAuditor(),
		log:       log.Sub("proxy"),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.log.Info().
		Str("proxyId", p.id).
		Str("model", cfg.ModelConfig.Model).
		Str("workflow", cfg.Workflow).
		Int("toolServers", len(cfg.MCPServers)).
		Msg("configuration merged")

	return p, nil
}

// Start runs the initialization pipeline: spawn the engine, record the
// child identifier, and send the workflow kickoff when one is configured.
// A spawn failure is fatal; the proxy reports it permanently.
func (p *Proxy) Start(ctx context.Context) error {
	handle, err := p.launcher.Spawn(ctx, p.cfg)
	if err != nil {
		serr := &SpawnError{Err: err}
		p.mu.Lock()
		p.failed = serr
		p.mu.Unlock()

		p.recordSpawn("", false, serr.Error())
		if p.hooks != nil {
			p.hooks.Emit(ctx, hooks.EventSpawnFailed, map[string]any{"error": serr.Error()})
		}
		p.log.Error().Err(err).Msg("chat state engine spawn failed")
		return serr
	}

	p.mu.Lock()
	p.handle = handle
	p.mu.Unlock()

	p.recordSpawn(handle.ID(), true, "")
	if p.hooks != nil {
		p.hooks.Emit(ctx, hooks.EventSpawnComplete, map[string]any{"childId": handle.ID()})
	}
	p.log.Info().Str("childId", handle.ID()).Msg("chat state engine spawned")

	sent, err := p.initiator.Kickoff(ctx, func(ctx context.Context, content string) error {
		_, err := p.send(ctx, content, store.ForwardKindKickoff)
		return err
	})
	if err != nil {
		// The workflow never started; the proxy cannot become ready.
		p.mu.Lock()
		p.failed = err
		p.mu.Unlock()
		return err
	}
	if sent && p.hooks != nil {
		p.hooks.Emit(ctx, hooks.EventWorkflowStarted, map[string]any{
			"workflow": p.cfg.Workflow,
			"childId":  handle.ID(),
		})
	}

	p.mu.Lock()
	p.ready = true
	p.mu.Unlock()

	p.log.Info().Str("proxyId", p.id).Msg("proxy ready")
	return nil
}

// ID returns the proxy's own stable identifier.
func (p *Proxy) ID() string { return p.id }

// Config returns the merged configuration, retained for introspection.
func (p *Proxy) Config() config.Config { return p.cfg }

// Original returns the pre-merge inbound payload.
func (p *Proxy) Original() config.PartialConfig { return p.original }

// WorkflowState reports the auto-initiation state machine's state.
func (p *Proxy) WorkflowState() workflow.State { return p.initiator.State() }

// ChildID returns the child engine's identifier verbatim. It fails with
// *NotReadyError until the spawn has completed.
func (p *Proxy) ChildID() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle == nil {
		return "", &NotReadyError{}
	}
	return p.handle.ID(), nil
}

// Forward passes message content unchanged to the child and returns its
// acknowledgement unmodified. Calls before initialization completes fail
// with *NotReadyError; child failures surface as *ForwardError.
func (p *Proxy) Forward(ctx context.Context, content string) (engine.Ack, error) {
	p.mu.Lock()
	if p.failed != nil {
		err := p.failed
		p.mu.Unlock()
		return nil, err
	}
	if !p.ready {
		p.mu.Unlock()
		return nil, &NotReadyError{}
	}
	p.mu.Unlock()

	return p.send(ctx, content, store.ForwardKindExternal)
}

// send is the shared forwarding path for kickoff and external messages.
// It submits the message, then asks the engine to generate the next
// completion, mirroring the original add-message contract.
func (p *Proxy) send(ctx context.Context, content string, kind string) (engine.Ack, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	msgID := uuid.New().String()
	ack, err := p.handle.AddMessage(ctx, engine.Message{Role: "user", Content: content})
	if err != nil {
		p.recordForward(msgID, kind, "error", err.Error())
		return nil, &ForwardError{Err: err}
	}

	if _, err := p.handle.GenerateCompletion(ctx); err != nil {
		p.recordForward(msgID, kind, "error", err.Error())
		return nil, &ForwardError{Err: err}
	}

	p.recordForward(msgID, kind, "ok", "")
	if p.hooks != nil {
		p.hooks.Emit(ctx, hooks.EventMessageForwarded, map[string]any{
			"messageId": msgID,
			"kind":      kind,
		})
	}
	return ack, nil
}

// History proxies the engine's conversation history for introspection.
func (p *Proxy) History(ctx context.Context) ([]engine.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.ready {
		return nil, &NotReadyError{}
	}
	return p.handle.History(ctx)
}

// Close shuts the child engine down.
func (p *Proxy) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle == nil {
		return nil
	}
	return p.handle.Close()
}

func (p *Proxy) recordSpawn(childID string, success bool, errMsg string) {
	cfgJSON, _ := json.Marshal(p.cfg)
	if err := p.audit.RecordSpawn(store.SpawnRecord{
		ProxyID:    p.id,
		ChildID:    childID,
		Workflow:   p.cfg.Workflow,
		ConfigJSON: string(cfgJSON),
		Success:    success,
		Error:      errMsg,
	}); err != nil {
		p.log.Warn().Err(err).Msg("failed to record spawn audit row")
	}
}

func (p *Proxy) recordForward(msgID, kind, outcome, errMsg string) {
	if err := p.audit.RecordForward(store.ForwardRecord{
		ProxyID:   p.id,
		MessageID: msgID,
		Kind:      kind,
		Outcome:   outcome,
		Error:     errMsg,
	}); err != nil {
		p.log.Warn().Err(err).Msg("failed to record forward audit row")
	}
}
