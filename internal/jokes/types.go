// Package jokes runs the writer-critic loop that turns a category and a
// language into a joke.
//
// A writer model drafts a joke, a critic model judges it, and the loop
// repeats until the critic approves or MaxCritiques judgements have been
// made. Running out of critiques is not a failure: the last draft is
// returned with OutcomeExhausted.
package jokes

import (
	"fmt"
	"time"
)

// Joke is the immutable result of one loop run.
type Joke struct {
	// Text is the final draft produced by the writer.
	Text string `json:"text"`
	// Category is the requested joke category (e.g., "dad developer").
	Category string `json:"category"`
	// Language is the requested language (e.g., "English").
	Language string `json:"language"`
}

// LoopState is threaded through the steps of a single run. It is created per
// run and never shared.
type LoopState struct {
	// LatestOutput is the most recent writer draft.
	LatestOutput string
	// Approved is set by the critic step only.
	Approved bool
	// RetryCount is the number of critic evaluations so far.
	RetryCount int
	Category   string
	Language   string
}

// State is a node of the writer-critic state machine.
type State int

const (
	Writing State = iota
	Critiquing
	Approved
	Exhausted
)

func (s State) String() string {
	switch s {
	case Writing:
		return "writing"
	case Critiquing:
		return "critiquing"
	case Approved:
		return "approved"
	case Exhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether the loop stops in s.
func (s State) Terminal() bool {
	return s == Approved || s == Exhausted
}

// Outcome reports how a run terminated.
type Outcome string

const (
	OutcomeApproved  Outcome = "approved"
	OutcomeExhausted Outcome = "exhausted"
)

// Result is what a completed run returns.
type Result struct {
	Joke
	// Outcome is approved when the critic said yes, exhausted when the
	// critique cap was reached first.
	Outcome Outcome `json:"outcome"`
	// Critiques is the number of critic evaluations performed (1..MaxCritiques).
	Critiques int `json:"critiques"`
	// WriterModel and CriticModel identify the models that produced the result.
	WriterModel string `json:"writer_model,omitempty"`
	CriticModel string `json:"critic_model,omitempty"`
	// GeneratedAt is when the run finished.
	GeneratedAt time.Time `json:"generated_at"`
	// DurationMs is the wall-clock time of the run in milliseconds.
	DurationMs int64 `json:"duration_ms"`
}

// Request is the inbound call contract of Generator.Generate.
type Request struct {
	Category          string
	Language          string
	WriterTemperature float64
	CriticTemperature float64
	// WriterModel and CriticModel fall back to the generator defaults when empty.
	WriterModel string
	CriticModel string
	// APIKey is passed through to the gateways untouched. Empty means the
	// generator default.
	APIKey string
}
