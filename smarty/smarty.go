// Package smarty ties recognition, intent resolution, dispatch and the
// vocabulary board into one assistant with a typed-text entry point.
package smarty

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"go.uber.org/zap"

	"github.com/playmixer/fala/dispatch"
	"github.com/playmixer/fala/intent"
	"github.com/playmixer/fala/navigator"
	"github.com/playmixer/fala/recognition"
	"github.com/playmixer/fala/speech"
)

type Event int

const (
	EventListening  Event = 10
	EventIdle       Event = 20
	EventIntent     Event = 30
	EventOpenFailed Event = 40
	EventCommand    Event = 50

	F_MIN_TOKEN    = 90
	F_MAX_DISTANCE = 10
	F_MIN_RATIO    = 75

	eventBuffer = 16
)

func (e Event) String() string {
	switch e {
	case EventListening:
		return "listening"
	case EventIdle:
		return "idle"
	case EventIntent:
		return "intent"
	case EventOpenFailed:
		return "open_failed"
	case EventCommand:
		return "command"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

var (
	ErrCommandNotFound = errors.New("command not found")
	ErrNoBoard         = errors.New("no vocabulary board mounted")
	ErrClosed          = errors.New("assistant closed")
)

// Voice is the speech output the assistant drives.
type Voice interface {
	speech.Speaker
	Cancel()
}

type CommandFunc func(ctx context.Context, a *Assistant)

// Command is a control phrase handled before intent resolution.
type Command struct {
	ID      string
	Phrases []string
	Func    CommandFunc
}

type Option func(*Assistant)

func WithLogger(log *zap.Logger) Option {
	return func(a *Assistant) {
		if log != nil {
			a.log = log
		}
	}
}

func WithLocale(locale string) Option {
	return func(a *Assistant) { a.locale = locale }
}

func WithDispatchConfig(cfg dispatch.Config) Option {
	return func(a *Assistant) { a.dispatchCfg = cfg }
}

// WithCue plays fn before each listening session.
func WithCue(fn func(ctx context.Context) error) Option {
	return func(a *Assistant) { a.cue = fn }
}

// WithBoard mounts a vocabulary board over root.
func WithBoard(root *navigator.Node) Option {
	return func(a *Assistant) { a.root = root }
}

type Assistant struct {
	ctx         context.Context
	cancel      context.CancelFunc
	log         *zap.Logger
	locale      string
	dispatchCfg dispatch.Config
	cue         func(ctx context.Context) error
	root        *navigator.Node

	voice      Voice
	resolver   *intent.Resolver
	controller *recognition.Controller
	dispatcher *dispatch.Dispatcher
	board      *navigator.Navigator

	muCmd    sync.Mutex
	commands []*Command

	mu     sync.Mutex
	jobs   map[string]*dispatch.Job
	closed bool
	wg     sync.WaitGroup

	eventChan chan Event
	UserSaid  chan string
}

func New(voice Voice, rec recognition.Recognizer, resolver *intent.Resolver, launcher dispatch.Launcher, opts ...Option) *Assistant {
	ctx, cancel := context.WithCancel(context.Background())
	a := &Assistant{
		ctx:         ctx,
		cancel:      cancel,
		log:         zap.NewNop(),
		locale:      speech.DefaultLocale,
		dispatchCfg: dispatch.DefaultConfig(),
		voice:       voice,
		resolver:    resolver,
		jobs:        map[string]*dispatch.Job{},
		eventChan:   make(chan Event, eventBuffer),
		UserSaid:    make(chan string, 1),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.controller = recognition.NewController(rec, voice,
		recognition.WithLogger(a.log.Named("recognition")),
		recognition.WithLocale(a.locale),
		recognition.OnState(a.onState),
		recognition.OnTranscript(func(text string) {
			a.userSaid(text)
			a.HandleText(text)
		}),
	)
	a.dispatcher = dispatch.New(voice, launcher,
		dispatch.WithLogger(a.log.Named("dispatch")),
		dispatch.WithConfig(a.dispatchCfg),
	)
	if a.root != nil {
		a.board = navigator.New(a.root, voice, navigator.WithLogger(a.log.Named("board")))
	}
	a.InitDefaultCommand()
	return a
}

// InitDefaultCommand registers the stop and back phrases.
func (a *Assistant) InitDefaultCommand() {
	a.AddCommand([]string{"parar", "pare", "cancelar", "stop"}, func(ctx context.Context, a *Assistant) {
		a.Stop()
	})
	a.AddCommand([]string{"voltar", "volta"}, func(ctx context.Context, a *Assistant) {
		if a.board != nil {
			a.board.NavigateBack()
		}
	})
}

func (a *Assistant) AddCommand(phrases []string, f CommandFunc) string {
	normalized := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = normalize(p); p != "" {
			normalized = append(normalized, p)
		}
	}
	c := &Command{ID: uuid.NewString(), Phrases: normalized, Func: f}

	a.muCmd.Lock()
	a.commands = append(a.commands, c)
	a.muCmd.Unlock()
	return c.ID
}

func (a *Assistant) GetCommand(id string) (*Command, error) {
	a.muCmd.Lock()
	defer a.muCmd.Unlock()
	for _, c := range a.commands {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCommandNotFound, id)
}

func (a *Assistant) GetCommands() [][]string {
	a.muCmd.Lock()
	defer a.muCmd.Unlock()
	result := make([][]string, 0, len(a.commands))
	for _, c := range a.commands {
		result = append(result, append([]string(nil), c.Phrases...))
	}
	return result
}

func (a *Assistant) DeleteCommand(id string) {
	a.muCmd.Lock()
	defer a.muCmd.Unlock()
	for i, c := range a.commands {
		if c.ID == id {
			a.commands = append(a.commands[:i], a.commands[i+1:]...)
			return
		}
	}
}

func (a *Assistant) DeleteAllCommand() {
	a.muCmd.Lock()
	a.commands = nil
	a.muCmd.Unlock()
}

// ComparingCommand finds the command every metric agrees on: best token set
// ratio, smallest edit distance and best plain ratio must point at the same
// command, and the scores must clear the thresholds.
func (a *Assistant) ComparingCommand(talk string) (*Command, bool) {
	talk = normalize(talk)
	if talk == "" {
		return nil, false
	}

	a.muCmd.Lock()
	defer a.muCmd.Unlock()

	var byToken, byDistance, byRatio *Command
	token, distance, ratio := 0, math.MaxInt, 0
	for _, c := range a.commands {
		for _, p := range c.Phrases {
			if t := fuzzy.TokenSetRatio(p, talk); t > token {
				byToken, token = c, t
			}
			if d := fuzzy.EditDistance(p, talk); d < distance {
				byDistance, distance = c, d
			}
			if r := fuzzy.Ratio(p, talk); r > ratio {
				byRatio, ratio = c, r
			}
		}
	}
	if byToken == nil || byToken != byDistance || byDistance != byRatio {
		return nil, false
	}
	if token < F_MIN_TOKEN || (distance > F_MAX_DISTANCE && ratio < F_MIN_RATIO) {
		return nil, false
	}
	return byToken, true
}

// HandleText is the single entry point for recognized and typed text.
// Control phrases run first, then the resolver; an unrecognized text that
// names a child of the current board node moves the board instead. The
// returned job is nil when no intent was dispatched.
func (a *Assistant) HandleText(text string) *dispatch.Job {
	if a.isClosed() {
		return nil
	}

	if cmd, ok := a.ComparingCommand(text); ok {
		a.log.Debug("run command", zap.String("text", text), zap.Strings("phrases", cmd.Phrases))
		a.PostSignalEvent(EventCommand)
		cmd.Func(a.ctx, a)
		return nil
	}

	in := a.resolver.Resolve(text)
	if _, ok := in.(intent.Unrecognized); ok && a.board != nil {
		if node, found := a.board.FindChild(text); found {
			a.log.Debug("board label", zap.String("text", text), zap.String("node", node.ID))
			if node.IsItem() {
				a.board.SelectItem(node)
			} else {
				a.board.NavigateTo(node.ID)
			}
			return nil
		}
	}

	a.log.Info("intent", zap.String("text", text), zap.Stringer("kind", in.Kind()))
	a.PostSignalEvent(EventIntent)
	return a.track(a.dispatcher.Dispatch(in))
}

// Say dispatches a board button intent without resolution.
func (a *Assistant) Say(in intent.Intent) *dispatch.Job {
	if a.isClosed() {
		return nil
	}
	a.PostSignalEvent(EventIntent)
	return a.track(a.dispatcher.Dispatch(in))
}

func (a *Assistant) track(job *dispatch.Job) *dispatch.Job {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		job.Cancel()
		return job
	}
	a.jobs[job.ID] = job
	a.wg.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.wg.Done()
		<-job.Done()
		a.mu.Lock()
		delete(a.jobs, job.ID)
		a.mu.Unlock()
		if job.Outcome() == dispatch.OutcomeFailed {
			a.PostSignalEvent(EventOpenFailed)
		}
	}()
	return job
}

// Listen silences speech, plays the cue and opens a recognition session.
func (a *Assistant) Listen() error {
	if a.isClosed() {
		return ErrClosed
	}
	if a.controller.Listening() {
		return recognition.ErrBusy
	}
	a.voice.Cancel()
	if a.cue != nil {
		if err := a.cue(a.ctx); err != nil {
			a.log.Debug("listening cue", zap.Error(err))
		}
	}
	return a.controller.Start()
}

// Stop ends listening, silences speech and cancels pending opens.
func (a *Assistant) Stop() {
	a.controller.Stop()
	a.voice.Cancel()

	a.mu.Lock()
	jobs := make([]*dispatch.Job, 0, len(a.jobs))
	for _, j := range a.jobs {
		jobs = append(jobs, j)
	}
	a.mu.Unlock()
	for _, j := range jobs {
		j.Cancel()
	}
}

func (a *Assistant) State() recognition.State {
	return a.controller.State()
}

// Board is nil unless WithBoard was given.
func (a *Assistant) Board() *navigator.Navigator {
	return a.board
}

// Pending is the number of dispatched jobs not yet finished.
func (a *Assistant) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.jobs)
}

// Close tears everything down; no callback fires afterwards.
func (a *Assistant) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()

	a.cancel()
	a.controller.Close()
	a.dispatcher.Close()
	a.voice.Cancel()
	a.wg.Wait()
}

func (a *Assistant) isClosed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

func (a *Assistant) onState(s recognition.State) {
	switch s.(type) {
	case recognition.Listening:
		a.PostSignalEvent(EventListening)
	case recognition.Idle:
		a.PostSignalEvent(EventIdle)
	}
}

func (a *Assistant) PostSignalEvent(s Event) {
	select {
	case a.eventChan <- s:
	default:
	}
}

func (a *Assistant) GetSignalEvent() <-chan Event {
	return a.eventChan
}

func (a *Assistant) userSaid(txt string) {
	select {
	case a.UserSaid <- txt:
	default:
	}
}

func normalize(s string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(s)), ".,!?;: ")
}
