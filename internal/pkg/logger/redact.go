package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// RedactSubject replaces a subject identifier with a short stable digest.
// The digest keeps log lines correlatable within one incident without
// exposing the identifier itself.
func RedactSubject(id string) string {
	if id == "" {
		return ""
	}
	sum := sha256.Sum256([]byte("subject:" + id))
	return "subj-" + hex.EncodeToString(sum[:4])
}

// RedactURL strips everything but the scheme from a URL.
// "https://example.org/path?q=x" → "https://***"
func RedactURL(raw string) string {
	if i := strings.Index(raw, "://"); i >= 0 {
		return raw[:i+3] + "***"
	}
	return "***"
}

var urlRegex = regexp.MustCompile(`https?://[^\s"']+`)

// redactValue applies field-aware redaction to a log value.
func redactValue(key, val string) string {
	k := strings.ToLower(key)
	switch {
	case strings.Contains(k, "subject"):
		return RedactSubject(val)
	case strings.Contains(k, "url"), strings.Contains(k, "domain"), strings.Contains(k, "host"):
		return RedactURL(val)
	}
	return urlRegex.ReplaceAllStringFunc(val, RedactURL)
}
