package engine

import "strings"

// oomKeywords is the fixed, centralized substring set used to classify an
// engine error as retryable OOM rather than a hard failure. Detection by
// substring is fragile, so the keyword set is kept explicit and
// centralized here so it can be extended.
var oomKeywords = []string{
	"out of memory",
	"oom",
	"cuda out of memory",
	"cublas alloc",
	"alloc_failed",
	"failed to allocate",
	"memory allocation",
}

// IsOOMError reports whether err's message matches the OOM keyword set.
func IsOOMError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range oomKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// MaxOOMRetries bounds any single transcription/synthesis attempt.
const MaxOOMRetries = 3
