package util

import "strings"

const maxErrorMessageLen = 500

// SanitizeError produces a bounded, single-line message safe to persist and
// return to clients.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(err.Error())
	msg = strings.ReplaceAll(msg, "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	if len(msg) > maxErrorMessageLen {
		msg = msg[:maxErrorMessageLen]
	}
	if msg == "" {
		return "unknown error"
	}
	return msg
}
