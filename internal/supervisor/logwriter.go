package supervisor

import (
	"bufio"
	"io"
	"time"
)

// ringWriter adapts a LogRing to io.Writer by splitting whatever the
// child process writes into lines and pushing each one, along with
// forwarding every line to sink (used to fan lines out to subscribers).
type ringWriter struct {
	ring *LogRing
	sink func(LogLine)
	pw   *io.PipeWriter
}

// newRingWriter returns a writer safe to hand to exec.Cmd.Stdout/Stderr.
// It spawns a goroutine that scans lines off an internal pipe for the
// lifetime of the child; callers must call Close once the child has
// exited so the goroutine can stop.
func newRingWriter(ring *LogRing, sink func(LogLine)) *ringWriter {
	pr, pw := io.Pipe()
	w := &ringWriter{ring: ring, sink: sink, pw: pw}

	go func() {
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 64*1024), 1<<20)
		for scanner.Scan() {
			line := LogLine{AtMs: time.Now().UnixMilli(), Line: scanner.Text()}
			ring.Push(line)
			if sink != nil {
				sink(line)
			}
		}
	}()

	return w
}

func (w *ringWriter) Write(p []byte) (int, error) { return w.pw.Write(p) }

func (w *ringWriter) Close() error { return w.pw.Close() }
