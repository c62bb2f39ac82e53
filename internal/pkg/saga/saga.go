// Package saga runs ordered multi-step operations with compensating actions.
// Each completed step's undo is recorded; when a later step fails, the undos
// run in reverse order before the step's error is returned. Undo failures are
// logged and do not mask the original error.
package saga

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Step is one stage of a multi-step operation. Undo may be nil for steps that
// need no compensation (typically the last step).
type Step struct {
	Name string
	Do   func(ctx context.Context) error
	Undo func(ctx context.Context) error
}

// Run executes steps in order. On the first failure it compensates all prior
// completed steps in reverse order and returns the failing step's error.
func Run(ctx context.Context, steps ...Step) error {
	done := make([]Step, 0, len(steps))
	for _, st := range steps {
		if err := st.Do(ctx); err != nil {
			log.Warn().Str("step", st.Name).Err(err).Msg("saga step failed, compensating")
			compensate(ctx, done)
			return err
		}
		if st.Undo != nil {
			done = append(done, st)
		}
	}
	return nil
}

func compensate(ctx context.Context, done []Step) {
	for i := len(done) - 1; i >= 0; i-- {
		if err := done[i].Undo(ctx); err != nil {
			log.Warn().Str("step", done[i].Name).Err(err).Msg("compensating action failed")
		}
	}
}
