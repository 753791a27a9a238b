package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colinrozzi/git-chat-assistant/internal/config"
	"github.com/colinrozzi/git-chat-assistant/internal/engine"
	"github.com/colinrozzi/git-chat-assistant/internal/logging"
	"github.com/colinrozzi/git-chat-assistant/internal/store"
	"github.com/colinrozzi/git-chat-assistant/internal/workflow"
)

func testLogger() *logging.Logger {
	return logging.New(nil, "silent")
}

func strPtr(s string) *string { return &s }

// fakeHandle is a test double for the chat-state engine.
type fakeHandle struct {
	id          string
	ack         engine.Ack
	addErr      error
	genErr      error
	messages    []string
	completions int
	closed      bool
}

func (h *fakeHandle) ID() string { return h.id }

func (h *fakeHandle) AddMessage(_ context.Context, msg engine.Message) (engine.Ack, error) {
	if h.addErr != nil {
		return nil, h.addErr
	}
	h.messages = append(h.messages, msg.Content)
	return h.ack, nil
}

func (h *fakeHandle) GenerateCompletion(context.Context) (engine.Ack, error) {
	if h.genErr != nil {
		return nil, h.genErr
	}
	h.completions++
	return h.ack, nil
}

func (h *fakeHandle) History(context.Context) ([]engine.Message, error) {
	msgs := make([]engine.Message, 0, len(h.messages))
	for _, m := range h.messages {
		msgs = append(msgs, engine.Message{Role: "user", Content: m})
	}
	return msgs, nil
}

func (h *fakeHandle) Close() error {
	h.closed = true
	return nil
}

// fakeLauncher returns a fixed handle or error.
type fakeLauncher struct {
	handle   *fakeHandle
	spawnErr error
	spawns   int
}

func (l *fakeLauncher) Spawn(context.Context, config.Config) (engine.Handle, error) {
	l.spawns++
	if l.spawnErr != nil {
		return nil, l.spawnErr
	}
	return l.handle, nil
}

func newFakeLauncher(id string) *fakeLauncher {
	return &fakeLauncher{handle: &fakeHandle{id: id, ack: engine.Ack(`{"type":"success"}`)}}
}

func TestNewRejectsMalformedPayload(t *testing.T) {
	bad := 3.5
	_, err := New(config.PartialConfig{Temperature: &bad}, newFakeLauncher("c1"), testLogger())

	var verr *config.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestNotReadyBeforeStart(t *testing.T) {
	p, err := New(config.PartialConfig{}, newFakeLauncher("c1"), testLogger())
	require.NoError(t, err)

	_, err = p.ChildID()
	var nre *NotReadyError
	require.ErrorAs(t, err, &nre)

	_, err = p.Forward(context.Background(), "git status")
	require.ErrorAs(t, err, &nre)
}

func TestStartWithoutWorkflow(t *testing.T) {
	l := newFakeLauncher("child-42")
	p, err := New(config.PartialConfig{}, l, testLogger())
	require.NoError(t, err)
	assert.Equal(t, workflow.StateIdle, p.WorkflowState())

	require.NoError(t, p.Start(context.Background()))
	assert.Equal(t, workflow.StateIdle, p.WorkflowState())
	assert.Empty(t, l.handle.messages, "no kickoff without a workflow")

	id, err := p.ChildID()
	require.NoError(t, err)
	assert.Equal(t, "child-42", id)

	ack, err := p.Forward(context.Background(), "git status")
	require.NoError(t, err)
	assert.Equal(t, engine.Ack(`{"type":"success"}`), ack, "ack must pass through unmodified")
	assert.Equal(t, []string{"git status"}, l.handle.messages)
}

func TestStartWithWorkflowSendsOneKickoffFirst(t *testing.T) {
	l := newFakeLauncher("child-1")
	p, err := New(config.PartialConfig{
		CurrentDirectory: strPtr("/repo"),
		Workflow:         strPtr("commit"),
	}, l, testLogger())
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePending, p.WorkflowState())

	require.NoError(t, p.Start(context.Background()))
	assert.Equal(t, workflow.StateStarted, p.WorkflowState())

	_, err = p.Forward(context.Background(), "now show the log")
	require.NoError(t, err)

	d, _ := workflow.Lookup(workflow.TagCommit)
	require.Len(t, l.handle.messages, 2)
	assert.Equal(t, d.Kickoff, l.handle.messages[0], "kickoff precedes external messages")
	assert.Equal(t, "now show the log", l.handle.messages[1])
	assert.Equal(t, 2, l.handle.completions, "each forwarded message triggers a completion request")
}

func TestSpawnFailureIsFatalAndWorkflowStaysPending(t *testing.T) {
	l := &fakeLauncher{spawnErr: errors.New("launcher unreachable")}
	p, err := New(config.PartialConfig{Workflow: strPtr("review")}, l, testLogger())
	require.NoError(t, err)

	err = p.Start(context.Background())
	var serr *SpawnError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, workflow.StatePending, p.WorkflowState())

	// The failure is permanent: forwarding reports it, not NotReady.
	_, err = p.Forward(context.Background(), "git status")
	require.ErrorAs(t, err, &serr)

	_, err = p.ChildID()
	var nre *NotReadyError
	require.ErrorAs(t, err, &nre)

	assert.Equal(t, 1, l.spawns, "no re-spawn attempts")
}

func TestForwardErrorPropagatesWithoutRetry(t *testing.T) {
	l := newFakeLauncher("child-1")
	p, err := New(config.PartialConfig{}, l, testLogger())
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	l.handle.addErr = errors.New("engine rejected add_message")
	_, err = p.Forward(context.Background(), "git diff")

	var ferr *ForwardError
	require.ErrorAs(t, err, &ferr)
	assert.Empty(t, l.handle.messages, "failed message is not recorded as delivered")
}

func TestForwardPreservesOrder(t *testing.T) {
	l := newFakeLauncher("child-1")
	p, err := New(config.PartialConfig{}, l, testLogger())
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	inputs := []string{"git status", "git add -A", "git commit -m x"}
	for _, in := range inputs {
		_, err := p.Forward(context.Background(), in)
		require.NoError(t, err)
	}
	assert.Equal(t, inputs, l.handle.messages)
}

func TestKickoffFailureLeavesProxyUnready(t *testing.T) {
	l := newFakeLauncher("child-1")
	l.handle.addErr = errors.New("engine down")

	p, err := New(config.PartialConfig{Workflow: strPtr("commit")}, l, testLogger())
	require.NoError(t, err)

	err = p.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, workflow.StatePending, p.WorkflowState())

	_, err = p.Forward(context.Background(), "git status")
	require.Error(t, err)
}

func TestAuditRecordsSpawnAndForwards(t *testing.T) {
	audit := store.NewMemoryAuditor()
	l := newFakeLauncher("child-9")
	p, err := New(config.PartialConfig{Workflow: strPtr("commit")}, l, testLogger(), WithAudit(audit))
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	_, err = p.Forward(context.Background(), "git status")
	require.NoError(t, err)

	spawns, err := audit.Spawns(10)
	require.NoError(t, err)
	require.Len(t, spawns, 1)
	assert.Equal(t, "child-9", spawns[0].ChildID)
	assert.Equal(t, "commit", spawns[0].Workflow)
	assert.True(t, spawns[0].Success)

	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(spawns[0].ConfigJSON), &cfg))
	assert.Equal(t, config.DefaultModel, cfg.ModelConfig.Model)

	forwards, err := audit.Forwards(10)
	require.NoError(t, err)
	require.Len(t, forwards, 2)
	// Newest first: the external forward, then the kickoff.
	assert.Equal(t, store.ForwardKindExternal, forwards[0].Kind)
	assert.Equal(t, store.ForwardKindKickoff, forwards[1].Kind)
}

func TestConfigRetainedForIntrospection(t *testing.T) {
	partial := config.PartialConfig{Workflow: strPtr("rebase"), CurrentDirectory: strPtr("/repo")}
	p, err := New(partial, newFakeLauncher("c"), testLogger())
	require.NoError(t, err)

	assert.Equal(t, "rebase", p.Config().Workflow)
	assert.Equal(t, partial, p.Original())
	assert.NotEmpty(t, p.ID())
}

func TestHistoryRequiresReady(t *testing.T) {
	p, err := New(config.PartialConfig{}, newFakeLauncher("c"), testLogger())
	require.NoError(t, err)

	_, err = p.History(context.Background())
	var nre *NotReadyError
	require.ErrorAs(t, err, &nre)

	require.NoError(t, p.Start(context.Background()))
	_, err = p.Forward(context.Background(), "hello")
	require.NoError(t, err)

	msgs, err := p.History(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Content)
}
