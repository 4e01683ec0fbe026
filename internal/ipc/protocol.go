package ipc

import (
	"encoding/json"

	"github.com/Atlas-Launcher/runner/internal/atlaserr"
)

// Topic names a subscription stream.
type Topic string

const (
	TopicLogs      Topic = "Logs"
	TopicStatus    Topic = "Status"
	TopicLifecycle Topic = "Lifecycle"
)

// Kind tags every request, response, and event payload. Payloads are
// encoded as a flat JSON object carrying "kind" plus their own fields,
// a Go rendering of an internally-tagged union.
type Kind string

const (
	// Requests (client -> daemon).
	KindPing        Kind = "Ping"
	KindStatus      Kind = "Status"
	KindStart       Kind = "Start"
	KindStop        Kind = "Stop"
	KindLogsTail    Kind = "LogsTail"
	KindSubscribe   Kind = "Subscribe"
	KindUnsubscribe Kind = "Unsubscribe"
	KindBackup      Kind = "Backup"
	KindShutdown    Kind = "Shutdown"

	// Responses (daemon -> client).
	KindPong         Kind = "Pong"
	KindStarted      Kind = "Started"
	KindStopped      Kind = "Stopped"
	KindSubscribed   Kind = "Subscribed"
	KindUnsubscribed Kind = "Unsubscribed"
	KindBackupCreated Kind = "BackupCreated"
	KindShutdownAck  Kind = "ShutdownAck"
	KindError        Kind = "Error"

	// Events (daemon -> subscriber).
	KindLog       Kind = "Log"
	KindLifecycle Kind = "Lifecycle"
)

type tagged struct {
	Kind Kind `json:"kind"`
}

// DecodeKind reads just the discriminator field out of a raw payload, so
// the dispatcher can pick the right concrete type to unmarshal into.
func DecodeKind(payload json.RawMessage) (Kind, error) {
	var t tagged
	if err := json.Unmarshal(payload, &t); err != nil {
		return "", atlaserr.Wrap(atlaserr.BadRequest, "decode request kind", err)
	}
	if t.Kind == "" {
		return "", atlaserr.New(atlaserr.BadRequest, "request payload missing kind")
	}
	return t.Kind, nil
}

// PingRequest checks protocol compatibility.
type PingRequest struct {
	Kind            Kind   `json:"kind"`
	ClientVersion   string `json:"client_version"`
	ProtocolVersion int    `json:"protocol_version"`
}

// StatusRequest asks for the current daemon + server status.
type StatusRequest struct {
	Kind Kind `json:"kind"`
}

// StartRequest asks the daemon to apply and launch a pack.
type StartRequest struct {
	Kind    Kind              `json:"kind"`
	Profile string            `json:"profile"`
	Env     map[string]string `json:"env"`
}

// StopRequest asks the daemon to stop the running server.
type StopRequest struct {
	Kind    Kind   `json:"kind"`
	Force   bool   `json:"force"`
	GraceMs *int64 `json:"grace_ms,omitempty"`
}

// LogsTailRequest asks for the last N retained log lines.
type LogsTailRequest struct {
	Kind  Kind `json:"kind"`
	Lines int  `json:"lines"`
}

// SubscribeRequest installs a per-connection event sink.
type SubscribeRequest struct {
	Kind              Kind    `json:"kind"`
	Topics            []Topic `json:"topics"`
	SendInitialStatus bool    `json:"send_initial_status"`
}

// UnsubscribeRequest tears down the connection's event sink.
type UnsubscribeRequest struct {
	Kind Kind `json:"kind"`
}

// BackupRequest asks the daemon to run an on-demand world backup.
type BackupRequest struct {
	Kind Kind `json:"kind"`
}

// ShutdownRequest asks the daemon to shut down cleanly.
type ShutdownRequest struct {
	Kind Kind `json:"kind"`
}

// PongResponse answers PingRequest.
type PongResponse struct {
	Kind            Kind   `json:"kind"`
	DaemonVersion   string `json:"daemon_version"`
	ProtocolVersion int    `json:"protocol_version"`
}

// StatusResponsePayload answers StatusRequest. DaemonStatus is currently
// just "Up"; it exists for forward compatibility with a richer daemon
// health model.
type StatusResponsePayload struct {
	Kind   Kind        `json:"kind"`
	Daemon string      `json:"daemon"`
	Server interface{} `json:"server"`
}

// StartedResponse answers a successful StartRequest.
type StartedResponse struct {
	Kind        Kind   `json:"kind"`
	Profile     string `json:"profile"`
	PID         int    `json:"pid"`
	StartedAtMs int64  `json:"started_at_ms"`
}

// StoppedResponse answers a successful StopRequest.
type StoppedResponse struct {
	Kind        Kind  `json:"kind"`
	ExitCode    *int  `json:"exit,omitempty"`
	StoppedAtMs int64 `json:"stopped_at_ms"`
}

// LogsTailResponse answers LogsTailRequest.
type LogsTailResponse struct {
	Kind      Kind        `json:"kind"`
	Lines     interface{} `json:"lines"`
	Truncated bool        `json:"truncated"`
}

// SubscribedResponse acknowledges SubscribeRequest.
type SubscribedResponse struct {
	Kind   Kind    `json:"kind"`
	Topics []Topic `json:"topics"`
}

// UnsubscribedResponse acknowledges UnsubscribeRequest.
type UnsubscribedResponse struct {
	Kind Kind `json:"kind"`
}

// BackupCreatedResponse answers a successful BackupRequest.
type BackupCreatedResponse struct {
	Kind Kind   `json:"kind"`
	Path string `json:"path"`
}

// ShutdownAckResponse answers ShutdownRequest before the daemon exits.
type ShutdownAckResponse struct {
	Kind Kind `json:"kind"`
}

// ErrorResponse carries a failed request's atlaserr.Error across the wire.
type ErrorResponse struct {
	Kind    Kind                   `json:"kind"`
	Code    atlaserr.Code          `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// NewErrorResponse adapts an atlaserr.Error (or any error) into the wire
// shape, wrapping unrecognized errors as Internal.
func NewErrorResponse(err error) ErrorResponse {
	if ae, ok := err.(*atlaserr.Error); ok {
		return ErrorResponse{Kind: KindError, Code: ae.Code, Message: ae.Message, Details: ae.Details}
	}
	return ErrorResponse{Kind: KindError, Code: atlaserr.Internal, Message: err.Error()}
}

// LogEvent is one broadcast Log event.
type LogEvent struct {
	Kind Kind        `json:"kind"`
	Line interface{} `json:"line"`
}

// StatusEvent is one broadcast Status event.
type StatusEvent struct {
	Kind   Kind        `json:"kind"`
	Status interface{} `json:"status"`
}

// LifecycleEvent is one broadcast Lifecycle event; Event is one of
// DaemonShuttingDown, ServerSpawned, ServerExited.
type LifecycleEvent struct {
	Kind  Kind   `json:"kind"`
	Event string `json:"event"`
}
