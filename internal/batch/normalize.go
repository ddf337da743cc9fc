package batch

import "strings"

// Normalize ensures a recipient carries a country code.
//
// Numbers already starting with '+' pass through unchanged, which makes the
// function idempotent. Otherwise a single leading '0' (national dialing
// prefix) is stripped and defaultCode is prepended.
func Normalize(recipient, defaultCode string) string {
	n := strings.TrimSpace(recipient)
	if strings.HasPrefix(n, "+") {
		return n
	}
	n = strings.TrimPrefix(n, "0")
	return defaultCode + n
}

// NormalizeAll applies Normalize to every job in place.
// Called once at the dispatch boundary, never per attempt.
func NormalizeAll(jobs []Job, defaultCode string) {
	for i := range jobs {
		jobs[i].Recipient = Normalize(jobs[i].Recipient, defaultCode)
	}
}
