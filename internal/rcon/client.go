package rcon

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/Atlas-Launcher/runner/internal/atlaserr"
)

const (
	packetTypeAuth         int32 = 3
	packetTypeAuthResponse int32 = 2
	packetTypeCommand      int32 = 2
	packetTypeResponse     int32 = 0

	dialTimeout  = 3 * time.Second
	readTimeout  = 5 * time.Second
	maxBodyBytes = 1 << 20
)

// Client is a minimal Source RCON protocol client: connect, authenticate,
// send one command at a time, disconnect. It holds no long-lived
// connection between calls since quiescing only ever issues two or three
// commands per invocation.
type Client struct {
	Address  string
	Password string
}

// Execute dials Address, authenticates with Password, sends command, and
// returns the response body. The connection is closed before returning.
func (c Client) Execute(ctx context.Context, command string) (string, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.Address)
	if err != nil {
		return "", atlaserr.Wrap(atlaserr.Transport, "dial rcon", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(readTimeout))
	}

	if err := writePacket(conn, 1, packetTypeAuth, c.Password); err != nil {
		return "", err
	}
	id, _, err := readPacket(conn)
	if err != nil {
		return "", err
	}
	if id == -1 {
		return "", atlaserr.New(atlaserr.Transport, "rcon authentication rejected")
	}

	if err := writePacket(conn, 2, packetTypeCommand, command); err != nil {
		return "", err
	}
	_, body, err := readPacket(conn)
	if err != nil {
		return "", err
	}
	return body, nil
}

func writePacket(w io.Writer, id, packetType int32, body string) error {
	payload := append([]byte(body), 0, 0)
	size := int32(4 + 4 + len(payload))

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, size); err != nil {
		return atlaserr.Wrap(atlaserr.Internal, "encode rcon packet size", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, id); err != nil {
		return atlaserr.Wrap(atlaserr.Internal, "encode rcon packet id", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, packetType); err != nil {
		return atlaserr.Wrap(atlaserr.Internal, "encode rcon packet type", err)
	}
	buf.Write(payload)

	if _, err := w.Write(buf.Bytes()); err != nil {
		return atlaserr.Wrap(atlaserr.Transport, "write rcon packet", err)
	}
	return nil
}

func readPacket(r io.Reader) (id int32, body string, err error) {
	var size int32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return 0, "", atlaserr.Wrap(atlaserr.Transport, "read rcon packet size", err)
	}
	if size < 10 || size > maxBodyBytes {
		return 0, "", atlaserr.Newf(atlaserr.Transport, "rcon packet size %d out of range", size)
	}

	rest := make([]byte, size)
	if _, err := io.ReadFull(r, rest); err != nil {
		return 0, "", atlaserr.Wrap(atlaserr.Transport, "read rcon packet body", err)
	}

	id = int32(binary.LittleEndian.Uint32(rest[0:4]))
	// rest[4:8] is the packet type, which callers don't need here.
	body = string(bytes.TrimRight(rest[8:len(rest)-2], "\x00"))
	return id, body, nil
}

// address formats the loopback host:port for Settings.
func (s Settings) address() string {
	return fmt.Sprintf("127.0.0.1:%d", s.Port)
}
