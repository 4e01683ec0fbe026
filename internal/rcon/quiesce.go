// Package rcon implements the RCON quiescer: best-effort save-all/
// save-off/save-on around a world copy, plus the server.properties
// plumbing RCON settings are read from.
package rcon

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/Atlas-Launcher/runner/internal/redact"
)

// Quiescer brackets a world copy with RCON save commands, proceeding
// best-effort and logging (never failing the caller) on any RCON error.
type Quiescer struct {
	Logger *slog.Logger
}

// Begin reads server.properties under currentDir and, if RCON is enabled
// and reachable, issues save-all then save-off. It returns a done func
// that issues save-on; done is always safe to call, including when
// quiescing never actually engaged.
func (q Quiescer) Begin(ctx context.Context, currentDir string) (done func(context.Context), quiesced bool) {
	settings, err := ReadSettings(filepath.Join(currentDir, "server.properties"))
	if err != nil {
		q.log("read server.properties for rcon quiesce", err)
		return noop, false
	}
	if !settings.Enabled {
		return noop, false
	}

	client := Client{Address: settings.address(), Password: settings.Password}

	if _, err := client.Execute(ctx, "save-all"); err != nil {
		q.log("rcon save-all failed", err)
		return noop, false
	}
	if _, err := client.Execute(ctx, "save-off"); err != nil {
		q.log("rcon save-off failed", err)
		return noop, false
	}

	return func(ctx context.Context) {
		if _, err := client.Execute(ctx, "save-on"); err != nil {
			q.log("rcon save-on failed", err)
		}
	}, true
}

func noop(context.Context) {}

func (q Quiescer) log(msg string, err error) {
	if q.Logger == nil {
		return
	}
	// err may embed a dialed address or password in its message; redact
	// defensively even though Client never logs the password itself.
	q.Logger.Warn(msg, slog.String("error", redact.URL(err.Error())))
}
