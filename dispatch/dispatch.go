// Package dispatch executes resolved intents: it speaks the confirmation,
// opens the target after a delay and falls back once when the primary open
// does not take over.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/playmixer/fala/intent"
	"github.com/playmixer/fala/speech"
)

const (
	// DefaultOpenDelay lets the confirmation start before focus moves away.
	DefaultOpenDelay = 1500 * time.Millisecond
	// DefaultFallbackWindow is how long the primary open has to succeed.
	DefaultFallbackWindow = 2 * time.Second

	apologyFormat = "Desculpe, não consegui abrir %s."
)

var (
	ErrAppOpenFailed = errors.New("app open failed")
	ErrClosed        = errors.New("dispatcher closed")
)

// Launcher opens identifiers. Open returning nil means the target visibly
// took over; OpenFallback opens in a new browser context.
type Launcher interface {
	Open(ctx context.Context, uri string) error
	OpenFallback(ctx context.Context, uri string) error
}

type Outcome int

const (
	OutcomePending Outcome = iota
	// OutcomeSpoken: only the confirmation was spoken, nothing to open.
	OutcomeSpoken
	OutcomeOpened
	OutcomeOpenedFallback
	// OutcomeFailed is AppOpenFailed.
	OutcomeFailed
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeSpoken:
		return "spoken"
	case OutcomeOpened:
		return "opened"
	case OutcomeOpenedFallback:
		return "opened_fallback"
	case OutcomeFailed:
		return "app_open_failed"
	case OutcomeCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

type Config struct {
	OpenDelay      time.Duration
	FallbackWindow time.Duration
}

func DefaultConfig() Config {
	return Config{
		OpenDelay:      DefaultOpenDelay,
		FallbackWindow: DefaultFallbackWindow,
	}
}

type Option func(*Dispatcher)

func WithLogger(log *zap.Logger) Option {
	return func(d *Dispatcher) {
		if log != nil {
			d.log = log
		}
	}
}

// WithConfig overrides the timings; zero fields keep the defaults.
func WithConfig(cfg Config) Option {
	return func(d *Dispatcher) {
		if cfg.OpenDelay > 0 {
			d.cfg.OpenDelay = cfg.OpenDelay
		}
		if cfg.FallbackWindow > 0 {
			d.cfg.FallbackWindow = cfg.FallbackWindow
		}
	}
}

type Dispatcher struct {
	voice    speech.Speaker
	launcher Launcher
	cfg      Config
	log      *zap.Logger

	mu     sync.Mutex
	jobs   map[string]*Job
	closed bool
}

func New(voice speech.Speaker, launcher Launcher, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		voice:    voice,
		launcher: launcher,
		cfg:      DefaultConfig(),
		log:      zap.NewNop(),
		jobs:     map[string]*Job{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch speaks the confirmation and, for a registry-backed OpenApp,
// schedules the open. The returned job owns its timers.
func (d *Dispatcher) Dispatch(in intent.Intent) *Job {
	ctx, cancel := context.WithCancel(context.Background())
	j := &Job{
		ID:     uuid.NewString(),
		Intent: in,
		d:      d,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		j.finish(OutcomeCancelled, ErrClosed)
		return j
	}
	d.jobs[j.ID] = j
	d.mu.Unlock()

	log := d.log.With(zap.String("job", j.ID), zap.Stringer("kind", in.Kind()))
	d.voice.Speak(in.Confirmation())

	open, ok := in.(intent.OpenApp)
	if !ok || open.App == nil || open.App.Identifier == "" {
		log.Debug("dispatched without open")
		j.finish(OutcomeSpoken, nil)
		return j
	}

	j.app = *open.App
	log.Info("open scheduled", zap.String("app", j.app.Alias), zap.Duration("delay", d.cfg.OpenDelay))
	j.schedule(d.cfg.OpenDelay, j.primary)
	return j
}

// Close cancels every pending job; used when the hosting view goes away.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	jobs := make([]*Job, 0, len(d.jobs))
	for _, j := range d.jobs {
		jobs = append(jobs, j)
	}
	d.mu.Unlock()

	for _, j := range jobs {
		j.Cancel()
	}
}

// Pending is the number of jobs still holding timers or launches.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.jobs)
}

func (d *Dispatcher) forget(id string) {
	d.mu.Lock()
	delete(d.jobs, id)
	d.mu.Unlock()
}
