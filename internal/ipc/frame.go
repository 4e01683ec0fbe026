// Package ipc implements the length-delimited JSON framing the daemon
// and client speak over the single-instance stream socket.
package ipc

import (
	"encoding/binary"
	"encoding/json"
	"io"

	"github.com/Atlas-Launcher/runner/internal/atlaserr"
)

// MaxFrameBytes bounds a single frame's payload, guarding against a
// malformed or hostile length prefix asking for an unbounded read.
const MaxFrameBytes = 64 << 20

// Envelope is the on-wire unit in both directions: an id the client uses
// to correlate responses with requests, and a payload tagged union
// decoded by Kind.
type Envelope struct {
	ID      uint64          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

// ReadFrame reads one 4-byte-big-endian-length-prefixed JSON frame and
// decodes it into an Envelope.
func ReadFrame(r io.Reader) (Envelope, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return Envelope{}, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > MaxFrameBytes {
		return Envelope{}, atlaserr.Newf(atlaserr.BadRequest, "frame length %d exceeds maximum", n)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return Envelope{}, err
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, atlaserr.Wrap(atlaserr.BadRequest, "decode ipc envelope", err)
	}
	return env, nil
}

// WriteFrame encodes env as JSON and writes it length-prefixed.
func WriteFrame(w io.Writer, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return atlaserr.Wrap(atlaserr.Internal, "encode ipc envelope", err)
	}
	if len(body) > MaxFrameBytes {
		return atlaserr.Newf(atlaserr.Internal, "outgoing frame length %d exceeds maximum", len(body))
	}

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}
