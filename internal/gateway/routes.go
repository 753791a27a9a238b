package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/colinrozzi/git-chat-assistant/internal/proxy"
	"github.com/colinrozzi/git-chat-assistant/internal/version"
)

// forwardTimeout bounds a single chat.send round-trip through the child.
const forwardTimeout = 5 * time.Minute

// registerHTTPRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	// Catch-all for unknown routes
	mux.HandleFunc("/", handleNotFound)
}

// registerRPCHandlers sets up all JSON-RPC method handlers.
func (s *Server) registerRPCHandlers() {
	s.Handle("health", s.rpcHealth)
	s.Handle("proxy.childId", s.rpcChildID)
	s.Handle("chat.send", s.rpcChatSend)
	s.Handle("chat.history", s.rpcChatHistory)
	s.Handle("workflow.status", s.rpcWorkflowStatus)
	s.Handle("config.show", s.rpcConfigShow)
}

// proxyErrorCode maps proxy failures onto wire error codes.
func proxyErrorCode(err error) string {
	var nre *proxy.NotReadyError
	if errors.As(err, &nre) {
		return "not_ready"
	}
	var serr *proxy.SpawnError
	if errors.As(err, &serr) {
		return "spawn_failed"
	}
	var ferr *proxy.ForwardError
	if errors.As(err, &ferr) {
		return "forward_failed"
	}
	return "internal_error"
}

func (s *Server) rpcHealth(rc *RequestContext) {
	resp := HealthResponse{
		Status:  "ok",
		Version: version.Version,
		Clients: s.clients.Count(),
	}
	if s.proxy != nil {
		resp.ProxyID = s.proxy.ID()
		resp.Workflow = string(s.proxy.WorkflowState())
	}
	rc.Respond(resp)
}

func (s *Server) rpcChildID(rc *RequestContext) {
	if s.proxy == nil {
		rc.RespondError("not_ready", "no proxy attached")
		return
	}
	id, err := s.proxy.ChildID()
	if err != nil {
		rc.RespondError(proxyErrorCode(err), err.Error())
		return
	}
	rc.Respond(map[string]any{"childId": id})
}

type chatSendParams struct {
	Message string `json:"message"`
}

func (s *Server) rpcChatSend(rc *RequestContext) {
	if s.proxy == nil {
		rc.RespondError("not_ready", "no proxy attached")
		return
	}

	var p chatSendParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	if p.Message == "" {
		rc.RespondError("invalid_params", "message is required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), forwardTimeout)
	defer cancel()

	ack, err := s.proxy.Forward(ctx, p.Message)
	if err != nil {
		rc.RespondError(proxyErrorCode(err), err.Error())
		return
	}

	// The child's acknowledgement passes through verbatim.
	rc.Respond(map[string]any{"ack": ack})
}

func (s *Server) rpcChatHistory(rc *RequestContext) {
	if s.proxy == nil {
		rc.RespondError("not_ready", "no proxy attached")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	msgs, err := s.proxy.History(ctx)
	if err != nil {
		rc.RespondError(proxyErrorCode(err), err.Error())
		return
	}
	rc.Respond(map[string]any{"messages": msgs})
}

func (s *Server) rpcWorkflowStatus(rc *RequestContext) {
	if s.proxy == nil {
		rc.RespondError("not_ready", "no proxy attached")
		return
	}
	out := map[string]any{
		"state":    string(s.proxy.WorkflowState()),
		"workflow": s.proxy.Config().Workflow,
	}
	rc.Respond(out)
}

func (s *Server) rpcConfigShow(rc *RequestContext) {
	if s.proxy == nil {
		rc.RespondError("not_ready", "no proxy attached")
		return
	}
	rc.Respond(map[string]any{
		"merged":   s.proxy.Config(),
		"original": s.proxy.Original(),
	})
}
