package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/colinrozzi/git-chat-assistant/internal/config"
	"github.com/colinrozzi/git-chat-assistant/internal/logging"
)

// readyTimeout bounds how long we wait for the engine's ready frame.
const readyTimeout = 30 * time.Second

// maxLineBytes is the scanner buffer limit for engine output lines.
const maxLineBytes = 4 * 1024 * 1024

// ProcessLauncher spawns the chat-state engine as a child process speaking
// newline-delimited JSON over stdin/stdout.
type ProcessLauncher struct {
	command string
	args    []string
	onExit  func(id string, err error)
	log     *logging.Logger
}

// NewProcessLauncher creates a launcher for the given engine binary.
func NewProcessLauncher(command string, args []string, log *logging.Logger) *ProcessLauncher {
	return &ProcessLauncher{
		command: command,
		args:    args,
		log:     log.Sub("engine"),
	}
}

// OnExit registers a callback invoked when a spawned engine exits. Must be
// set before Spawn.
func (l *ProcessLauncher) OnExit(fn func(id string, err error)) {
	l.onExit = fn
}

// Spawn starts the engine process, hands it the merged configuration, and
// waits for the ready frame carrying the engine's identifier.
func (l *ProcessLauncher) Spawn(ctx context.Context, cfg config.Config) (Handle, error) {
	cmd := exec.Command(l.command, l.args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", l.command, err)
	}

	l.log.Info().Str("command", l.command).Int("pid", cmd.Process.Pid).Msg("chat-state engine starting")

	h := &processHandle{
		cmd:    cmd,
		stdin:  stdin,
		reader: bufio.NewScanner(stdout),
		onExit: l.onExit,
		log:    l.log,
		done:   make(chan struct{}),
	}
	h.reader.Buffer(make([]byte, 64*1024), maxLineBytes)

	// Init frame first, then wait for ready.
	if err := h.writeJSON(initFrame{Config: cfg}); err != nil {
		h.kill()
		return nil, fmt.Errorf("sending init config: %w", err)
	}

	ready, err := h.awaitReady(ctx)
	if err != nil {
		h.kill()
		return nil, err
	}
	h.id = ready.ActorID
	if h.id == "" {
		h.id = uuid.New().String()
	}

	// Log child exit events; the proxy itself does not restart the engine.
	go h.monitor()

	l.log.Info().Str("engineId", h.id).Msg("chat-state engine ready")
	return h, nil
}

// processHandle is a Handle backed by a child process. Requests are
// serialized: the engine is a single-threaded turn-taking system, so the
// handle issues one request at a time and reads its response before the next.
type processHandle struct {
	id     string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	onExit func(id string, err error)
	log    *logging.Logger
	done   chan struct{}

	mu     sync.Mutex
	reader *bufio.Scanner
}

func (h *processHandle) ID() string { return h.id }

func (h *processHandle) AddMessage(ctx context.Context, msg Message) (Ack, error) {
	resp, err := h.roundtrip(ctx, request{Type: reqAddMessage, ID: uuid.New().String(), Message: &msg})
	if err != nil {
		return nil, err
	}
	return ackOf(resp), nil
}

func (h *processHandle) GenerateCompletion(ctx context.Context) (Ack, error) {
	resp, err := h.roundtrip(ctx, request{Type: reqGenerateCompletion, ID: uuid.New().String()})
	if err != nil {
		return nil, err
	}
	return ackOf(resp), nil
}

func (h *processHandle) History(ctx context.Context) ([]Message, error) {
	resp, err := h.roundtrip(ctx, request{Type: reqGetHistory, ID: uuid.New().String()})
	if err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// Close shuts down the engine: close stdin so it can exit cleanly, then
// kill if it lingers.
func (h *processHandle) Close() error {
	h.stdin.Close()
	select {
	case <-h.done:
		return nil
	case <-time.After(5 * time.Second):
		h.log.Warn().Str("engineId", h.id).Msg("engine did not exit, killing")
		return h.cmd.Process.Kill()
	}
}

func (h *processHandle) kill() {
	h.stdin.Close()
	if h.cmd.Process != nil {
		h.cmd.Process.Kill()
	}
	h.cmd.Wait()
}

// monitor waits for the child, logs its exit, and notifies the launcher's
// exit callback.
func (h *processHandle) monitor() {
	err := h.cmd.Wait()
	close(h.done)
	if err != nil {
		h.log.Error().Err(err).Str("engineId", h.id).Msg("chat-state engine exited with error")
	} else {
		h.log.Info().Str("engineId", h.id).Msg("chat-state engine exited")
	}
	if h.onExit != nil {
		h.onExit(h.id, err)
	}
}

func (h *processHandle) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = h.stdin.Write(data)
	return err
}

// roundtrip writes one request line and reads the next response line.
// The protocol is strictly lockstep, so the next line always answers the
// request just written.
func (h *processHandle) roundtrip(ctx context.Context, req request) (*response, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := h.writeJSON(req); err != nil {
		return nil, fmt.Errorf("writing %s request: %w", req.Type, err)
	}

	resp, err := h.readResponse()
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", req.Type, err)
	}
	if resp.Type == respError {
		return nil, fmt.Errorf("engine rejected %s: %s", req.Type, resp.Error)
	}
	return resp, nil
}

func (h *processHandle) readResponse() (*response, error) {
	if !h.reader.Scan() {
		if err := h.reader.Err(); err != nil {
			return nil, err
		}
		return nil, io.ErrUnexpectedEOF
	}
	var resp response
	if err := json.Unmarshal(h.reader.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("malformed engine response: %w", err)
	}
	return &resp, nil
}

// awaitReady reads the ready frame, bounded by the context and readyTimeout.
func (h *processHandle) awaitReady(ctx context.Context) (*response, error) {
	type result struct {
		resp *response
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		resp, err := h.readResponse()
		ch <- result{resp, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(readyTimeout):
		return nil, fmt.Errorf("engine did not report ready within %s", readyTimeout)
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("reading ready frame: %w", r.err)
		}
		if r.resp.Type == respError {
			return nil, fmt.Errorf("engine rejected configuration: %s", r.resp.Error)
		}
		if r.resp.Type != respReady {
			return nil, fmt.Errorf("expected ready frame, got %q", r.resp.Type)
		}
		return r.resp, nil
	}
}

// ackOf extracts the verbatim ack payload from a response. When the engine
// supplies no payload, the whole response line stands in as the ack.
func ackOf(resp *response) Ack {
	if len(resp.Payload) > 0 {
		return Ack(resp.Payload)
	}
	raw, _ := json.Marshal(resp)
	return Ack(raw)
}
