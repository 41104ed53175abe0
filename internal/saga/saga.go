// Package saga runs ordered multi-stage operations across stores that
// cannot share a transaction.
//
// Stages run strictly one after another. The first failing stage stops the
// saga; stages that already committed stay committed and are reported in
// the returned *StageError so callers can tell how far the saga got. There
// is no compensation step.
package saga

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/phototimeline/internal/logging"
)

// Stage is one step of a saga.
type Stage struct {
	Name string
	Run  func(ctx context.Context) error
}

// StageError reports the stage a saga stopped at.
type StageError struct {
	Saga      string
	Stage     string
	Index     int
	Committed []string
	Err       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: stage %d (%s) failed: %v", e.Saga, e.Index+1, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Run executes stages in order. The context is checked before each stage,
// so a cancelled caller stops the saga at the next stage boundary.
func Run(ctx context.Context, log logging.Logger, name string, stages ...Stage) error {
	log = log.With("saga", name)
	started := time.Now()
	committed := make([]string, 0, len(stages))

	for i, st := range stages {
		err := ctx.Err()
		if err == nil {
			err = st.Run(ctx)
		}
		if err != nil {
			log.Warn(ctx, "saga stage failed", "stage", st.Name, "index", i, "committed", len(committed), "error", err)
			return &StageError{Saga: name, Stage: st.Name, Index: i, Committed: committed, Err: err}
		}
		committed = append(committed, st.Name)
	}

	log.Info(ctx, "saga completed", "stages", len(stages), "elapsed", time.Since(started))
	return nil
}
