// Package speech serializes spoken feedback: at most one utterance is active
// and every new utterance interrupts the previous one.
package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Rate is the synthesis speed multiplier handed to the synthesizer.
type Rate float64

const (
	RateNormal    Rate = 0.8
	RateFast      Rate = 1.2
	RateUltraFast Rate = 1.5

	DefaultLocale = "pt-BR"
	DefaultPitch  = 1.0
)

var ErrUnknownRate = errors.New("unknown speech rate")

// ParseRate maps the configuration names normal, fast and ultra-fast.
func ParseRate(s string) (Rate, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal":
		return RateNormal, nil
	case "fast":
		return RateFast, nil
	case "ultra-fast", "ultrafast", "ultra_fast":
		return RateUltraFast, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRate, s)
}

// Utterance is one playback request.
type Utterance struct {
	Text   string
	Locale string
	Rate   Rate
	Pitch  float64
}

// Synthesizer plays an utterance and blocks until playback ends or ctx is
// cancelled.
type Synthesizer interface {
	Speak(ctx context.Context, u Utterance) error
}

// Speaker is what the rest of the subsystem needs from Feedback.
type Speaker interface {
	Speak(text string, opts ...SpeakOption) uint64
}

// Discard is a Synthesizer that finishes every utterance immediately.
type Discard struct{}

func (Discard) Speak(ctx context.Context, u Utterance) error {
	return ctx.Err()
}

type SpeakOption func(*request)

type request struct {
	u    Utterance
	done func(error)
}

// OnDone registers a callback fired when the utterance finishes playing.
// It never fires for an utterance that was cancelled or superseded.
func OnDone(fn func(err error)) SpeakOption {
	return func(r *request) { r.done = fn }
}

func InLocale(locale string) SpeakOption {
	return func(r *request) { r.u.Locale = locale }
}

func AtRate(rate Rate) SpeakOption {
	return func(r *request) { r.u.Rate = rate }
}

func AtPitch(pitch float64) SpeakOption {
	return func(r *request) { r.u.Pitch = pitch }
}

type Option func(*Feedback)

func WithLogger(log *zap.Logger) Option {
	return func(f *Feedback) {
		if log != nil {
			f.log = log
		}
	}
}

func WithLocale(locale string) Option {
	return func(f *Feedback) { f.defaults.Locale = locale }
}

func WithRate(rate Rate) Option {
	return func(f *Feedback) { f.defaults.Rate = rate }
}

func WithPitch(pitch float64) Option {
	return func(f *Feedback) { f.defaults.Pitch = pitch }
}

// Feedback owns the single active utterance.
type Feedback struct {
	synth    Synthesizer
	log      *zap.Logger
	defaults Utterance

	mu     sync.Mutex
	gen    uint64
	active bool
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

func New(synth Synthesizer, opts ...Option) *Feedback {
	if synth == nil {
		synth = Discard{}
	}
	f := &Feedback{
		synth: synth,
		log:   zap.NewNop(),
		defaults: Utterance{
			Locale: DefaultLocale,
			Rate:   RateNormal,
			Pitch:  DefaultPitch,
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Speak cancels whatever is playing and starts text. It returns the
// utterance id, or 0 when nothing was started (empty text or closed).
func (f *Feedback) Speak(text string, opts ...SpeakOption) uint64 {
	req := request{u: f.defaults}
	req.u.Text = strings.TrimSpace(text)
	for _, opt := range opts {
		opt(&req)
	}

	f.mu.Lock()
	f.cancelLocked()
	if f.closed || req.u.Text == "" {
		f.mu.Unlock()
		return 0
	}
	f.gen++
	id := f.gen
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.active = true
	f.wg.Add(1)
	f.mu.Unlock()

	f.log.Debug("speak", zap.Uint64("utterance", id), zap.String("text", req.u.Text))
	go f.play(ctx, id, req)
	return id
}

func (f *Feedback) play(ctx context.Context, id uint64, req request) {
	defer f.wg.Done()
	err := f.synth.Speak(ctx, req.u)

	f.mu.Lock()
	current := f.active && f.gen == id
	if current {
		f.active = false
		f.cancel()
		f.cancel = nil
	}
	f.mu.Unlock()

	if !current {
		f.log.Debug("utterance superseded", zap.Uint64("utterance", id))
		return
	}
	if err != nil {
		f.log.Warn("speech synthesis failed", zap.Uint64("utterance", id), zap.Error(err))
	}
	if req.done != nil {
		req.done(err)
	}
}

// Cancel stops the active utterance. It is a no-op when nothing plays.
func (f *Feedback) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelLocked()
}

func (f *Feedback) cancelLocked() {
	if !f.active {
		return
	}
	f.active = false
	f.cancel()
	f.cancel = nil
}

// Speaking reports whether an utterance is active.
func (f *Feedback) Speaking() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

// Wait blocks until every started playback goroutine has returned.
func (f *Feedback) Wait() {
	f.wg.Wait()
}

// Close cancels the active utterance and refuses further speech.
func (f *Feedback) Close() {
	f.mu.Lock()
	f.closed = true
	f.cancelLocked()
	f.mu.Unlock()
	f.wg.Wait()
}
