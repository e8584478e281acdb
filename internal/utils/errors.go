package utils

import (
	"strings"
)

// MessageClass is a coarse failure category derived from an error message.
type MessageClass int

const (
	MessageOther MessageClass = iota
	MessageTimeout
	MessageRateLimited
)

var (
	timeoutMarkers   = []string{"timeout", "timed out", "etimedout", "deadline exceeded"}
	rateLimitMarkers = []string{"rate limit", "rate_limit", "ratelimit", "rate-limit", "quota", "too many requests", "resource_exhausted"}
)

// ClassifyMessage inspects an error message for timeout or rate-limit wording.
// Providers that return structured errors are classified before this is
// consulted; it only covers errors with no status attached.
func ClassifyMessage(err error) MessageClass {
	if err == nil {
		return MessageOther
	}
	msg := strings.ToLower(err.Error())

	for _, marker := range timeoutMarkers {
		if strings.Contains(msg, marker) {
			return MessageTimeout
		}
	}
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return MessageRateLimited
		}
	}
	return MessageOther
}
