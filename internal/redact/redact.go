// Package redact scrubs secrets (RCON passwords, credentialed URLs) out of
// strings before they reach a log line.
package redact

import "regexp"

var urlUserinfo = regexp.MustCompile(`(://[^/@\s]+):[^/@\s]+@`)

// URL masks a password embedded in a URL's userinfo component, leaving
// the username and host visible for debugging.
func URL(u string) string {
	return urlUserinfo.ReplaceAllString(u, "$1:***@")
}

// Secret returns a fixed-width placeholder, used for values (RCON
// passwords, API tokens) that must never appear in logs at all.
func Secret(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}
