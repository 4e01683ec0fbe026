package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"sync"

	"github.com/Atlas-Launcher/runner/internal/atlaserr"
)

// Server accepts connections on a bound listener, frames requests off
// each one, and dispatches them against a single underlying supervisor.
type Server struct {
	Listener   net.Listener
	Dispatcher *Dispatcher
	Logger     *slog.Logger

	mu    sync.Mutex
	conns map[*Conn]struct{}
}

// NewServer wraps an already-bound listener.
func NewServer(listener net.Listener, dispatcher *Dispatcher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{Listener: listener, Dispatcher: dispatcher, Logger: logger, conns: make(map[*Conn]struct{})}
}

// Serve runs the accept loop until ctx is cancelled, at which point it
// closes the listener and every open connection and returns.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.Listener.Close()
		s.mu.Lock()
		for c := range s.conns {
			c.Close()
		}
		s.mu.Unlock()
	}()

	for {
		raw, err := s.Listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return atlaserr.Wrap(atlaserr.IoError, "accept ipc connection", err)
		}

		conn := newConn(raw)
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		go s.handleConn(ctx, conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn *Conn) {
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	go s.pumpEvents(conn)

	for {
		env, err := ReadFrame(conn.raw)
		if err != nil {
			return
		}

		// Handling each request to completion before reading the next
		// keeps responses in request order on this connection, even
		// though the event pump writes to the same socket concurrently.
		result := s.Dispatcher.Dispatch(ctx, conn, env.Payload)
		if err := conn.WriteEnvelope(Envelope{ID: env.ID, Payload: marshalPayload(result)}); err != nil {
			return
		}
	}
}

// pumpEvents drains conn's event queue onto the wire until the
// connection closes. It runs concurrently with handleConn's request/
// response loop; WriteEnvelope's internal lock keeps the two from
// interleaving mid-frame.
func (s *Server) pumpEvents(conn *Conn) {
	for {
		select {
		case <-conn.closed:
			return
		case env := <-conn.events:
			if err := conn.WriteEnvelope(env); err != nil {
				conn.Close()
				return
			}
		}
	}
}

// Broadcast offers an event envelope to every connection subscribed to
// topic. A connection whose queue is full is closed rather than allowed
// to stall delivery to the others.
func (s *Server) Broadcast(topic Topic, payload interface{}) {
	env := Envelope{Payload: marshalPayload(payload)}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		if c.subscribesTo(topic) {
			c.enqueue(env)
		}
	}
}

func marshalPayload(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		data, _ = json.Marshal(NewErrorResponse(err))
	}
	return data
}
