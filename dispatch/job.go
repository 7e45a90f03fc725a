package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/playmixer/fala/intent"
)

type stage int

const (
	stageScheduled stage = iota
	stagePrimary
	stageFallback
	stageDone
)

// Job is one dispatch. Its timers live until the job finishes or is
// cancelled.
type Job struct {
	ID     string
	Intent intent.Intent

	d      *Dispatcher
	app    intent.AppEntry
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	stage   stage
	timers  []*time.Timer
	outcome Outcome
	err     error
}

func (j *Job) Done() <-chan struct{} {
	return j.done
}

func (j *Job) Outcome() Outcome {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.outcome
}

func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Wait blocks until the job finishes or ctx ends.
func (j *Job) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-j.done:
		return j.Outcome(), j.Err()
	case <-ctx.Done():
		return OutcomePending, ctx.Err()
	}
}

// Cancel stops the job's timers and abandons any launch in flight. It is a
// no-op once the job has finished.
func (j *Job) Cancel() {
	if j.finish(OutcomeCancelled, nil) {
		j.d.log.Debug("job cancelled", zap.String("job", j.ID))
	}
}

func (j *Job) schedule(after time.Duration, fn func()) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stage == stageDone {
		return
	}
	j.timers = append(j.timers, time.AfterFunc(after, fn))
}

func (j *Job) primary() {
	j.mu.Lock()
	if j.stage != stageScheduled {
		j.mu.Unlock()
		return
	}
	j.stage = stagePrimary
	j.mu.Unlock()

	j.schedule(j.d.cfg.FallbackWindow, j.fallback)
	err := j.d.launcher.Open(j.ctx, j.app.Identifier)

	j.mu.Lock()
	current := j.stage == stagePrimary
	j.mu.Unlock()
	if !current {
		return
	}
	if err != nil {
		j.fail(err)
		return
	}
	j.d.log.Info("app opened", zap.String("job", j.ID), zap.String("app", j.app.Alias))
	j.finish(OutcomeOpened, nil)
}

func (j *Job) fallback() {
	j.mu.Lock()
	if j.stage != stagePrimary {
		j.mu.Unlock()
		return
	}
	j.stage = stageFallback
	j.mu.Unlock()

	uri := j.app.FallbackURL
	if uri == "" {
		uri = j.app.Identifier
	}
	j.d.log.Info("primary open did not take over, trying fallback",
		zap.String("job", j.ID), zap.String("uri", uri))

	err := j.d.launcher.OpenFallback(j.ctx, uri)

	j.mu.Lock()
	current := j.stage == stageFallback
	j.mu.Unlock()
	if !current {
		return
	}
	if err != nil {
		j.fail(err)
		return
	}
	j.finish(OutcomeOpenedFallback, nil)
}

func (j *Job) fail(err error) {
	j.finish(OutcomeFailed, fmt.Errorf("%w: %s: %w", ErrAppOpenFailed, j.app.Name, err), func() {
		j.d.log.Warn("app open failed", zap.String("job", j.ID), zap.String("app", j.app.Alias), zap.Error(err))
		j.d.voice.Speak(fmt.Sprintf(apologyFormat, j.app.Name))
	})
}

// finish records the outcome once, releasing timers and the launch context.
// then runs before Done is closed.
func (j *Job) finish(o Outcome, err error, then ...func()) bool {
	j.mu.Lock()
	if j.stage == stageDone {
		j.mu.Unlock()
		return false
	}
	j.stage = stageDone
	j.outcome = o
	j.err = err
	for _, t := range j.timers {
		t.Stop()
	}
	j.timers = nil
	j.mu.Unlock()

	j.cancel()
	j.d.forget(j.ID)
	for _, fn := range then {
		fn()
	}
	close(j.done)
	return true
}
