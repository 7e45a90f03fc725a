// Package recognition drives a speech recognizer through an explicit
// Idle → Listening → Completed/Errored → Idle state machine.
package recognition

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/playmixer/fala/speech"
)

const (
	UnsupportedNotice = "Reconhecimento de voz não é suportado neste dispositivo. Use o texto."
	ErrorApology      = "Desculpe, não consegui ouvir. Tente novamente."
)

var (
	ErrUnsupported = errors.New("speech recognition unsupported")
	ErrBusy        = errors.New("already listening")
)

// Recognizer is the platform capability. Listen captures one utterance and
// returns its final transcript; an empty transcript with a nil error means
// the session ended without a result.
type Recognizer interface {
	Supported() bool
	Listen(ctx context.Context, locale string) (string, error)
}

type Option func(*Controller)

func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

func WithLocale(locale string) Option {
	return func(c *Controller) { c.locale = locale }
}

// OnState observes every transition, including the transient Completed
// and Errored states.
func OnState(fn func(State)) Option {
	return func(c *Controller) { c.onState = fn }
}

// OnTranscript receives the transcript of each completed session.
func OnTranscript(fn func(string)) Option {
	return func(c *Controller) { c.onTranscript = fn }
}

type Controller struct {
	rec          Recognizer
	voice        speech.Speaker
	log          *zap.Logger
	locale       string
	onState      func(State)
	onTranscript func(string)

	mu          sync.Mutex
	state       State
	session     uint64
	cancel      context.CancelFunc
	noticeGiven bool
	wg          sync.WaitGroup
}

func NewController(rec Recognizer, voice speech.Speaker, opts ...Option) *Controller {
	c := &Controller{
		rec:    rec,
		voice:  voice,
		log:    zap.NewNop(),
		locale: speech.DefaultLocale,
		state:  Idle{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Listening() bool {
	_, ok := c.State().(Listening)
	return ok
}

// Start opens a session. It returns ErrBusy while a session is already
// listening and ErrUnsupported when the platform has no recognizer; in both
// cases the state is left untouched.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.rec == nil || !c.rec.Supported() {
		notice := !c.noticeGiven
		c.noticeGiven = true
		c.mu.Unlock()
		if notice {
			c.log.Warn("speech recognition unsupported, typed text only")
			c.voice.Speak(UnsupportedNotice)
		}
		return ErrUnsupported
	}
	if _, ok := c.state.(Listening); ok {
		c.mu.Unlock()
		c.log.Debug("start ignored, already listening")
		return ErrBusy
	}
	c.session++
	id := c.session
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.state = Listening{Session: id}
	c.wg.Add(1)
	c.mu.Unlock()

	c.log.Info("listening", zap.Uint64("session", id))
	c.notify(Listening{Session: id})
	go c.run(ctx, id)
	return nil
}

func (c *Controller) run(ctx context.Context, id uint64) {
	defer c.wg.Done()
	transcript, err := c.rec.Listen(ctx, c.locale)
	transcript = strings.TrimSpace(transcript)

	c.mu.Lock()
	if c.session != id {
		c.mu.Unlock()
		return
	}
	c.cancel()
	c.cancel = nil
	c.state = Idle{}
	c.mu.Unlock()

	switch {
	case err != nil:
		c.log.Error("recognition failed", zap.Uint64("session", id), zap.Error(err))
		c.notify(Errored{Reason: err})
		c.voice.Speak(ErrorApology)
		c.notify(Idle{})
	case transcript == "":
		c.log.Debug("recognition ended without result", zap.Uint64("session", id))
		c.notify(Idle{})
	default:
		c.log.Info("recognized", zap.Uint64("session", id), zap.String("transcript", transcript))
		c.notify(Completed{Transcript: transcript})
		c.notify(Idle{})
		if c.onTranscript != nil {
			c.onTranscript(transcript)
		}
	}
}

// Stop abandons the current session without delivering its result. It is a
// no-op when idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	if _, ok := c.state.(Listening); !ok {
		c.mu.Unlock()
		return
	}
	c.session++
	c.cancel()
	c.cancel = nil
	c.state = Idle{}
	c.mu.Unlock()

	c.log.Info("listening stopped")
	c.notify(Idle{})
}

// Wait blocks until session goroutines have returned.
func (c *Controller) Wait() {
	c.wg.Wait()
}

func (c *Controller) Close() {
	c.Stop()
	c.Wait()
}

func (c *Controller) notify(s State) {
	if c.onState != nil {
		c.onState(s)
	}
}
