// Package logging builds the daemon's root structured logger.
//
// Atlas is the spiritual successor of a Rust codebase, and its external
// interface section keeps the RUST_LOG env var name for operator muscle
// memory; this package accepts that same filter grammar and turns it into
// an slog.Leveler per component.
package logging

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Filter resolves a minimum level per logger name ("component"), parsed
// from a RUST_LOG-style string: "info" sets the default, and
// "info,supervisor=debug,ipc=warn" overrides per component.
type Filter struct {
	def       slog.Level
	overrides map[string]slog.Level
}

// ParseFilter parses the RUST_LOG-style grammar. An empty string yields a
// Filter defaulting to Info.
func ParseFilter(spec string) Filter {
	f := Filter{def: slog.LevelInfo, overrides: map[string]slog.Level{}}
	if spec == "" {
		return f
	}
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, lvl, hasEq := strings.Cut(part, "=")
		level, ok := parseLevel(lvl)
		if !hasEq {
			level, ok = parseLevel(name)
			if ok {
				f.def = level
			}
			continue
		}
		if ok {
			f.overrides[name] = level
		}
	}
	return f
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace", "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		if n, err := strconv.Atoi(s); err == nil {
			return slog.Level(n), true
		}
		return slog.LevelInfo, false
	}
}

// Level returns the minimum level configured for component, falling back
// to the filter's default.
func (f Filter) Level(component string) slog.Level {
	if lvl, ok := f.overrides[component]; ok {
		return lvl
	}
	return f.def
}

// New builds the root logger. JSON output is used unless stderr is a
// terminal, so a daemon launched under systemd/supervisord emits
// machine-parseable lines while an interactive `runnerd serve` stays
// readable.
func New(filter Filter, component string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: filter.Level(component)}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler).With(slog.String("component", component))
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
