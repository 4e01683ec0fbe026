package ipc

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/Atlas-Launcher/runner/internal/atlaserr"
)

// MethodHandler handles one decoded request kind and returns the
// response payload to encode, or an error to translate into an
// ErrorResponse.
type MethodHandler func(ctx context.Context, conn *Conn, raw json.RawMessage) (interface{}, error)

// Dispatcher routes requests by Kind to a registered MethodHandler, the
// same registry-of-named-handlers shape used for method dispatch
// elsewhere in the stack, adapted from HTTP+JSON-RPC to this socket's
// length-framed envelopes.
type Dispatcher struct {
	mu      sync.RWMutex
	methods map[Kind]MethodHandler
	logger  *slog.Logger
}

// NewDispatcher returns an empty Dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{methods: make(map[Kind]MethodHandler), logger: logger}
}

// Register installs the handler for kind.
func (d *Dispatcher) Register(kind Kind, handler MethodHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.methods[kind] = handler
}

// Dispatch decodes payload's kind, runs its handler, and returns the
// response payload to frame back to the client.
func (d *Dispatcher) Dispatch(ctx context.Context, conn *Conn, payload json.RawMessage) interface{} {
	kind, err := DecodeKind(payload)
	if err != nil {
		return NewErrorResponse(err)
	}

	d.mu.RLock()
	handler, ok := d.methods[kind]
	d.mu.RUnlock()
	if !ok {
		return NewErrorResponse(atlaserr.Newf(atlaserr.UnsupportedProtocol, "unknown request kind %q", kind))
	}

	result, err := handler(ctx, conn, payload)
	if err != nil {
		d.logger.Warn("request failed", slog.String("kind", string(kind)), slog.String("error", err.Error()))
		return NewErrorResponse(err)
	}
	return result
}
