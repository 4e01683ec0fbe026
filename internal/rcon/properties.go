package rcon

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Atlas-Launcher/runner/internal/atlaserr"
)

// Settings is what the quiescer needs out of server.properties to reach a
// running server's RCON listener.
type Settings struct {
	Enabled  bool
	Port     int
	Password string
}

const defaultPort = 25575

// ReadSettings parses current/server.properties for the enable-rcon,
// rcon.port, and rcon.password keys. A missing file or a file missing
// enable-rcon=true yields Settings{Enabled: false} rather than an error —
// the caller treats an unreachable RCON the same way as a disabled one.
func ReadSettings(propertiesPath string) (Settings, error) {
	f, err := os.Open(propertiesPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Settings{}, nil
		}
		return Settings{}, atlaserr.Wrap(atlaserr.IoError, "open server.properties", err)
	}
	defer f.Close()

	s := Settings{Port: defaultPort}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "enable-rcon":
			s.Enabled = strings.EqualFold(value, "true")
		case "rcon.port":
			if port, err := strconv.Atoi(value); err == nil {
				s.Port = port
			}
		case "rcon.password":
			s.Password = value
		}
	}
	if err := scanner.Err(); err != nil {
		return Settings{}, atlaserr.Wrap(atlaserr.IoError, "read server.properties", err)
	}

	if !s.Enabled {
		return Settings{}, nil
	}
	return s, nil
}

// GeneratePassword returns a fresh random hex password, used when staging
// enables RCON but server.properties carries no password yet.
func GeneratePassword() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", atlaserr.Wrap(atlaserr.Internal, "generate rcon password", err)
	}
	return hex.EncodeToString(buf), nil
}

// EnsurePassword rewrites propertiesPath in place, setting rcon.password
// to a freshly generated value if rcon.password is absent or blank while
// enable-rcon is true. It is a no-op when RCON is disabled or already has
// a password.
func EnsurePassword(propertiesPath string) error {
	data, err := os.ReadFile(propertiesPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return atlaserr.Wrap(atlaserr.IoError, "read server.properties", err)
	}

	lines := strings.Split(string(data), "\n")
	enabled := false
	passwordSet := false
	passwordLine := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		key, value, ok := strings.Cut(trimmed, "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "enable-rcon":
			enabled = strings.EqualFold(strings.TrimSpace(value), "true")
		case "rcon.password":
			passwordLine = i
			passwordSet = strings.TrimSpace(value) != ""
		}
	}

	if !enabled || passwordSet {
		return nil
	}

	password, err := GeneratePassword()
	if err != nil {
		return err
	}
	newLine := fmt.Sprintf("rcon.password=%s", password)
	if passwordLine >= 0 {
		lines[passwordLine] = newLine
	} else {
		lines = append(lines, newLine)
	}

	return os.WriteFile(propertiesPath, []byte(strings.Join(lines, "\n")), 0o644)
}
