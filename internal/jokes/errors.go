package jokes

import (
	"fmt"

	"github.com/timvw/joke-bot/internal/prompt"
)

// ConfigurationError reports malformed templates or an invalid request.
type ConfigurationError = prompt.ConfigurationError

// Stage names the step of a run in which a failure occurred.
type Stage string

const (
	StageSetup      Stage = "setup"
	StageWriting    Stage = "writing"
	StageCritiquing Stage = "critiquing"
)

// GenerationFailed aborts a run. Err is the gateway (or context) error that
// caused it; errors.Is reaches gateway sentinels through Unwrap.
type GenerationFailed struct {
	Stage Stage
	// Attempt is the 1-based writer/critic round, 0 during setup.
	Attempt int
	Err     error
}

func (e *GenerationFailed) Error() string {
	if e.Stage == StageSetup {
		return fmt.Sprintf("joke generation failed during setup: %v", e.Err)
	}
	return fmt.Sprintf("joke generation failed while %s (attempt %d): %v", e.Stage, e.Attempt, e.Err)
}

func (e *GenerationFailed) Unwrap() error {
	return e.Err
}
