package domain

import (
	"fmt"

	"github.com/sngor/bayon-backend/platform/apperr"
)

var ErrInvalidSequence = apperr.Validation("invalid sequence definition")

// ValidateSteps checks a sequence definition: at least one step, offsets
// non-negative and strictly increasing, and every step addressable on a
// known channel. A definition that fails here must not schedule anything.
func ValidateSteps(steps []SequenceStep) error {
	if len(steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidSequence)
	}

	prev := -1
	for i, step := range steps {
		if step.OffsetMinutes < 0 {
			return fmt.Errorf("%w: step %d has negative offset %d", ErrInvalidSequence, i+1, step.OffsetMinutes)
		}
		if step.OffsetMinutes <= prev && i > 0 {
			return fmt.Errorf("%w: step %d offset %d is not after step %d", ErrInvalidSequence, i+1, step.OffsetMinutes, i)
		}
		if !step.Channel.Valid() {
			return fmt.Errorf("%w: step %d has unknown channel %q", ErrInvalidSequence, i+1, step.Channel)
		}
		if step.Template == "" {
			return fmt.Errorf("%w: step %d has no template", ErrInvalidSequence, i+1)
		}
		prev = step.OffsetMinutes
	}

	return nil
}
