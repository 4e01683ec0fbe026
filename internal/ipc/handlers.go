package ipc

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/Atlas-Launcher/runner/internal/atlaserr"
	"github.com/Atlas-Launcher/runner/internal/backup"
	"github.com/Atlas-Launcher/runner/internal/supervisor"
)

// ProtocolVersion is bumped whenever the wire shapes in protocol.go
// change incompatibly.
const ProtocolVersion = 1

// DaemonVersion identifies the running daemon build in Pong responses.
var DaemonVersion = "dev"

// RegisterHandlers installs every request handler against state and
// backupEngine, and broadcasts the lifecycle events of the Start, Stop
// and Shutdown requests through server's Broadcast method. Status is
// sent only as the initial event of a Subscribe; log lines and the
// monitor's lifecycle events are broadcast by the StartDeps callbacks
// the caller supplies. onShutdown is invoked after a Shutdown
// request is acknowledged, so the caller can cancel the accept loop's
// context and let main() drain the lifecycle lock before exiting. Call
// this once after constructing both the Dispatcher and the Server it
// will be attached to.
func RegisterHandlers(d *Dispatcher, server *Server, state *supervisor.SharedState, backupEngine backup.Engine, startDeps func() supervisor.StartDeps, onShutdown func()) {
	d.Register(KindPing, func(ctx context.Context, conn *Conn, raw json.RawMessage) (interface{}, error) {
		var req PingRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, atlaserr.Wrap(atlaserr.BadRequest, "decode ping request", err)
		}
		if req.ProtocolVersion != 0 && req.ProtocolVersion != ProtocolVersion {
			return nil, atlaserr.Newf(atlaserr.UnsupportedProtocol, "client protocol version %d unsupported", req.ProtocolVersion)
		}
		return PongResponse{Kind: KindPong, DaemonVersion: DaemonVersion, ProtocolVersion: ProtocolVersion}, nil
	})

	d.Register(KindStatus, func(ctx context.Context, conn *Conn, raw json.RawMessage) (interface{}, error) {
		return StatusResponsePayload{Kind: KindStatus, Daemon: "Up", Server: state.Snapshot()}, nil
	})

	d.Register(KindStart, func(ctx context.Context, conn *Conn, raw json.RawMessage) (interface{}, error) {
		var req StartRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, atlaserr.Wrap(atlaserr.BadRequest, "decode start request", err)
		}
		packBytes, err := loadPackBytes(req)
		if err != nil {
			return nil, err
		}
		snap, err := state.Start(ctx, startDeps(), req.Profile, packBytes)
		if err != nil {
			return nil, err
		}
		if server != nil {
			server.Broadcast(TopicLifecycle, LifecycleEvent{Kind: KindLifecycle, Event: "ServerSpawned"})
		}
		return StartedResponse{Kind: KindStarted, Profile: snap.Profile, PID: snap.PID, StartedAtMs: snap.StartedAtMs}, nil
	})

	d.Register(KindStop, func(ctx context.Context, conn *Conn, raw json.RawMessage) (interface{}, error) {
		var req StopRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, atlaserr.Wrap(atlaserr.BadRequest, "decode stop request", err)
		}
		grace := supervisor.DefaultGrace
		if req.GraceMs != nil {
			grace = time.Duration(*req.GraceMs) * time.Millisecond
		}
		snap, err := state.Stop(ctx, grace, req.Force)
		if err != nil {
			return nil, err
		}
		if server != nil {
			server.Broadcast(TopicLifecycle, LifecycleEvent{Kind: KindLifecycle, Event: "ServerExited"})
		}
		exitCode := snap.ExitCode
		return StoppedResponse{Kind: KindStopped, ExitCode: &exitCode, StoppedAtMs: snap.AtMs}, nil
	})

	d.Register(KindLogsTail, func(ctx context.Context, conn *Conn, raw json.RawMessage) (interface{}, error) {
		var req LogsTailRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, atlaserr.Wrap(atlaserr.BadRequest, "decode logs tail request", err)
		}
		lines, truncated := state.Logs().Tail(req.Lines)
		return LogsTailResponse{Kind: KindLogsTail, Lines: lines, Truncated: truncated}, nil
	})

	d.Register(KindSubscribe, func(ctx context.Context, conn *Conn, raw json.RawMessage) (interface{}, error) {
		var req SubscribeRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, atlaserr.Wrap(atlaserr.BadRequest, "decode subscribe request", err)
		}
		conn.Subscribe(req.Topics)
		if req.SendInitialStatus {
			conn.enqueue(Envelope{Payload: marshalPayload(StatusEvent{Kind: KindStatus, Status: state.Snapshot()})})
		}
		return SubscribedResponse{Kind: KindSubscribed, Topics: req.Topics}, nil
	})

	d.Register(KindUnsubscribe, func(ctx context.Context, conn *Conn, raw json.RawMessage) (interface{}, error) {
		conn.Unsubscribe()
		return UnsubscribedResponse{Kind: KindUnsubscribed}, nil
	})

	d.Register(KindBackup, func(ctx context.Context, conn *Conn, raw json.RawMessage) (interface{}, error) {
		path, err := backupEngine.Run(ctx)
		if err != nil {
			return nil, err
		}
		return BackupCreatedResponse{Kind: KindBackupCreated, Path: path}, nil
	})

	d.Register(KindShutdown, func(ctx context.Context, conn *Conn, raw json.RawMessage) (interface{}, error) {
		if server != nil {
			server.Broadcast(TopicLifecycle, LifecycleEvent{Kind: KindLifecycle, Event: "DaemonShuttingDown"})
		}
		if onShutdown != nil {
			go func() {
				// Give the ShutdownAck frame time to flush before the
				// accept loop tears down every connection.
				time.Sleep(200 * time.Millisecond)
				onShutdown()
			}()
		}
		return ShutdownAckResponse{Kind: KindShutdownAck}, nil
	})
}

// loadPackBytes reads the pack blob a Start request points at via its
// env map's ATLAS_PACK_BLOB path entry.
func loadPackBytes(req StartRequest) ([]byte, error) {
	path, ok := req.Env["ATLAS_PACK_BLOB"]
	if !ok || path == "" {
		return nil, atlaserr.New(atlaserr.BadRequest, "start request env missing ATLAS_PACK_BLOB")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, atlaserr.Wrap(atlaserr.IoError, "read pack blob", err)
	}
	return data, nil
}
