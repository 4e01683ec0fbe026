package backup

import (
	"sync"
	"time"
)

var (
	clockMu  sync.Mutex
	lastMs   int64
)

// monotonicMillis returns the current Unix millisecond timestamp, bumped
// by at least one from whatever it last returned. Two backups requested
// back-to-back must land in distinct directories even when the wall
// clock hasn't ticked between them.
func monotonicMillis() int64 {
	clockMu.Lock()
	defer clockMu.Unlock()

	now := time.Now().UnixMilli()
	if now <= lastMs {
		now = lastMs + 1
	}
	lastMs = now
	return now
}
