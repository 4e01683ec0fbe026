package backup

import (
	"context"
	"log/slog"
	"time"
)

// dstGuard is the fixed sleep after a fired backup, long enough that a
// one-hour DST fall-back can't cause the loop to wake twice for the same
// local midnight.
const dstGuard = 60 * time.Second

// RunDailyScheduler blocks, firing e.Run once per local midnight, until
// ctx is cancelled. Each fire is detached: the scheduler never waits on
// backup completion before computing its next sleep. Callers run this as
// a single background goroutine per server root, guarded by a one-shot
// started flag the same way the child monitor is.
func (e Engine) RunDailyScheduler(ctx context.Context) {
	for {
		d := durationUntilNextLocalMidnight(time.Now())
		if e.Logger != nil {
			e.Logger.Info("daily backup scheduler sleeping", slog.Duration("for", d))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(d):
		}

		go func() {
			if _, err := e.Run(ctx); err != nil && e.Logger != nil {
				e.Logger.Warn("scheduled backup failed", slog.String("error", err.Error()))
			}
		}()

		select {
		case <-ctx.Done():
			return
		case <-time.After(dstGuard):
		}
	}
}

func durationUntilNextLocalMidnight(now time.Time) time.Duration {
	year, month, day := now.Date()
	midnight := time.Date(year, month, day+1, 0, 0, 0, 0, now.Location())
	d := midnight.Sub(now)
	if d <= 0 {
		d = time.Minute
	}
	return d
}
