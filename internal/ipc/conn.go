package ipc

import (
	"net"
	"sync"
)

// eventQueueSize bounds each subscriber's outgoing event backlog.
// Overflow closes the subscription rather than blocking the broadcaster.
const eventQueueSize = 256

// Conn wraps one accepted socket connection: the framing stream, its
// outgoing write lock (responses and broadcast events share one
// connection and must never interleave mid-frame), and its subscription
// state.
type Conn struct {
	raw net.Conn

	writeMu sync.Mutex

	subMu  sync.Mutex
	topics map[Topic]bool

	events    chan Envelope
	closeOnce sync.Once
	closed    chan struct{}
}

func newConn(raw net.Conn) *Conn {
	return &Conn{
		raw:    raw,
		topics: make(map[Topic]bool),
		events: make(chan Envelope, eventQueueSize),
		closed: make(chan struct{}),
	}
}

// WriteEnvelope frames and writes env, serialized against concurrent
// writes from the event pump.
func (c *Conn) WriteEnvelope(env Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return WriteFrame(c.raw, env)
}

// Subscribe installs topics as this connection's active subscription
// set, replacing whatever was there before.
func (c *Conn) Subscribe(topics []Topic) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.topics = make(map[Topic]bool, len(topics))
	for _, t := range topics {
		c.topics[t] = true
	}
}

// Unsubscribe clears this connection's subscription set.
func (c *Conn) Unsubscribe() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.topics = make(map[Topic]bool)
}

func (c *Conn) subscribesTo(topic Topic) bool {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	return c.topics[topic]
}

// enqueue offers env to this connection's event queue without blocking.
// A full queue means the connection can't keep up; it is closed rather
// than allowed to stall the broadcaster.
func (c *Conn) enqueue(env Envelope) (dropped bool) {
	select {
	case c.events <- env:
		return false
	default:
		c.Close()
		return true
	}
}

// Close closes the underlying socket exactly once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.raw.Close()
	})
}
