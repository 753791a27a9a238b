package proxy

import "fmt"

// NotReadyError is returned when a forwarding or identifier query arrives
// before initialization (spawn and, when configured, workflow kickoff) has
// completed. The caller may retry later.
type NotReadyError struct {
	Reason string
}

func (e *NotReadyError) Error() string {
	if e.Reason != "" {
		return "proxy not ready: " + e.Reason
	}
	return "proxy not ready: chat state engine not initialized"
}

// SpawnError means the chat-state engine could not be started or rejected
// the configuration. It is fatal: the proxy cannot serve requests afterward.
type SpawnError struct {
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawning chat state engine: %v", e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ForwardError means the child rejected or failed to process a forwarded
// message. It is propagated unchanged; the proxy never retries.
type ForwardError struct {
	Err error
}

func (e *ForwardError) Error() string {
	return fmt.Sprintf("forwarding message: %v", e.Err)
}

func (e *ForwardError) Unwrap() error { return e.Err }
