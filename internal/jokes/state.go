package jokes

import "strings"

// MaxCritiques is the hard cap on critic evaluations per run.
const MaxCritiques = 5

// Next is the routing decision taken after every critic evaluation.
func Next(s LoopState) State {
	return route(s, MaxCritiques)
}

func route(s LoopState, limit int) State {
	switch {
	case s.Approved:
		return Approved
	case s.RetryCount >= limit:
		return Exhausted
	default:
		return Writing
	}
}

// IsApproved parses a critic response. Any occurrence of "yes" in the
// lower-cased, trimmed reply counts as approval, so "yes, but no" approves.
func IsApproved(response string) bool {
	return strings.Contains(strings.ToLower(strings.TrimSpace(response)), "yes")
}
