package engine

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colinrozzi/git-chat-assistant/internal/config"
	"github.com/colinrozzi/git-chat-assistant/internal/logging"
)

// scriptEngine writes a shell script that speaks the engine protocol and
// returns a launcher for it.
func scriptEngine(t *testing.T, script string) *ProcessLauncher {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script engine requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "engine.sh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return NewProcessLauncher("sh", []string{path}, logging.New(nil, "silent"))
}

const lockstepScript = `#!/bin/sh
read init
echo '{"type":"ready","actor_id":"sim-1"}'
while read line; do
  case "$line" in
    *get_history*) echo '{"type":"history","messages":[{"role":"user","content":"git status"}]}' ;;
    *) echo '{"type":"success"}' ;;
  esac
done
`

func TestSpawnHandshakeAndRoundtrips(t *testing.T) {
	launcher := scriptEngine(t, lockstepScript)

	cfg, err := config.Merge(config.PartialConfig{})
	require.NoError(t, err)

	h, err := launcher.Spawn(context.Background(), cfg)
	require.NoError(t, err)
	defer h.Close()

	assert.Equal(t, "sim-1", h.ID(), "identifier comes from the ready frame verbatim")

	ack, err := h.AddMessage(context.Background(), Message{Role: "user", Content: "git status"})
	require.NoError(t, err)
	assert.NotEmpty(t, ack)

	_, err = h.GenerateCompletion(context.Background())
	require.NoError(t, err)

	msgs, err := h.History(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "git status", msgs[0].Content)
}

func TestSpawnEngineError(t *testing.T) {
	launcher := scriptEngine(t, `#!/bin/sh
read init
echo '{"type":"ready","actor_id":"sim-2"}'
while read line; do
  echo '{"type":"error","error":"model unavailable"}'
done
`)

	cfg, err := config.Merge(config.PartialConfig{})
	require.NoError(t, err)

	h, err := launcher.Spawn(context.Background(), cfg)
	require.NoError(t, err)
	defer h.Close()

	_, err = h.AddMessage(context.Background(), Message{Role: "user", Content: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model unavailable")
}

func TestOnExitCallback(t *testing.T) {
	launcher := scriptEngine(t, lockstepScript)

	exited := make(chan string, 1)
	launcher.OnExit(func(id string, err error) { exited <- id })

	cfg, err := config.Merge(config.PartialConfig{})
	require.NoError(t, err)

	h, err := launcher.Spawn(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, h.Close())

	select {
	case id := <-exited:
		assert.Equal(t, "sim-1", id)
	case <-time.After(5 * time.Second):
		t.Fatal("exit callback never fired")
	}
}

func TestSpawnMissingBinary(t *testing.T) {
	launcher := NewProcessLauncher("definitely-not-a-real-binary-xyz", nil, logging.New(nil, "silent"))

	cfg, err := config.Merge(config.PartialConfig{})
	require.NoError(t, err)

	_, err = launcher.Spawn(context.Background(), cfg)
	require.Error(t, err)
}

func TestReadyFrameWithoutActorID(t *testing.T) {
	launcher := scriptEngine(t, `#!/bin/sh
read init
echo '{"type":"ready"}'
while read line; do
  echo '{"type":"success"}'
done
`)

	cfg, err := config.Merge(config.PartialConfig{})
	require.NoError(t, err)

	h, err := launcher.Spawn(context.Background(), cfg)
	require.NoError(t, err)
	defer h.Close()

	// The proxy still needs a usable identifier.
	assert.NotEmpty(t, h.ID())
}
