package intent

import (
	"fmt"
	"regexp"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"go.uber.org/zap"
)

const (
	HelpPrompt = "Desculpe, não entendi. Você pode dizer, por exemplo: abrir WhatsApp."

	openingFormat    = "Abrindo %s agora."
	bestEffortFormat = "Tentando abrir %s agora."

	// quick phrase acceptance thresholds
	minTokenRatio = 90
	minRatio      = 75
)

// Pattern is one (matcher, extractor) pair. Match reports whether text holds
// the trigger and returns the captured app name.
type Pattern struct {
	Name  string
	Match func(text string) (arg string, ok bool)
}

// TriggerPattern matches the phrase at a word boundary followed by an
// argument. Only the leftmost occurrence is used; everything after it is the
// argument, which Resolve then cuts at the next trigger phrase.
func TriggerPattern(phrase string) Pattern {
	re := regexp.MustCompile(`(?:^|\s)` + regexp.QuoteMeta(phrase) + `\s+(.+)$`)
	return Pattern{
		Name: phrase,
		Match: func(text string) (string, bool) {
			m := re.FindStringSubmatch(text)
			if m == nil {
				return "", false
			}
			arg := strings.TrimRight(strings.TrimSpace(m[1]), ".,!?;:")
			return arg, arg != ""
		},
	}
}

// DefaultTriggers lists open phrases with the specific ones before the
// generic ones they contain.
var DefaultTriggers = []string{
	"quero abrir",
	"pode abrir",
	"abrir",
	"abre",
	"quero assistir",
	"assistir",
	"quero jogar",
	"jogar",
	"mostrar",
	"mostra",
	"acessar",
	"entrar no",
	"entrar na",
}

func DefaultPatterns() []Pattern {
	patterns := make([]Pattern, 0, len(DefaultTriggers))
	for _, t := range DefaultTriggers {
		patterns = append(patterns, TriggerPattern(t))
	}
	return patterns
}

type ResolverOption func(*Resolver)

func WithPatterns(patterns ...Pattern) ResolverOption {
	return func(r *Resolver) { r.patterns = patterns }
}

// WithPhrases enables quick-phrase matching for text no pattern claims.
func WithPhrases(phrases ...string) ResolverOption {
	return func(r *Resolver) { r.phrases = phrases }
}

func WithHelpPrompt(prompt string) ResolverOption {
	return func(r *Resolver) { r.help = prompt }
}

func WithLogger(log *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

type Resolver struct {
	patterns []Pattern
	registry *Registry
	phrases  []string
	help     string
	log      *zap.Logger
}

func NewResolver(registry *Registry, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		patterns: DefaultPatterns(),
		registry: registry,
		help:     HelpPrompt,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve is pure: the same text always yields the same intent. The app
// name ends where another trigger phrase starts, so in "abrir youtube e
// abrir whatsapp" only "youtube" is looked up.
func (r *Resolver) Resolve(text string) Intent {
	text = normalize(text)
	if text == "" {
		return Unrecognized{Prompt: r.help}
	}

	for _, p := range r.patterns {
		name, ok := p.Match(text)
		if !ok {
			continue
		}
		name = r.firstArgument(name)
		if app, found := r.registry.Lookup(name); found {
			r.log.Debug("intent open app", zap.String("pattern", p.Name), zap.String("alias", app.Alias))
			return OpenApp{App: &app, RawName: name, Text: fmt.Sprintf(openingFormat, app.Name)}
		}
		r.log.Debug("intent best-effort open", zap.String("pattern", p.Name), zap.String("name", name))
		return OpenApp{RawName: name, Text: fmt.Sprintf(bestEffortFormat, name)}
	}

	if phrase, ok := r.matchPhrase(text); ok {
		r.log.Debug("intent quick phrase", zap.String("phrase", phrase))
		return QuickPhrase{Text: phrase}
	}

	r.log.Debug("intent unrecognized", zap.String("text", text))
	return Unrecognized{Prompt: r.help}
}

// firstArgument cuts name before the next trigger phrase and drops the
// conjunction joining the two commands.
func (r *Resolver) firstArgument(name string) string {
	words := strings.Fields(name)
	for i := 1; i < len(words); i++ {
		rest := strings.Join(words[i:], " ")
		for _, p := range r.patterns {
			if p.Name == "" || (rest != p.Name && !strings.HasPrefix(rest, p.Name+" ")) {
				continue
			}
			head := words[:i]
			for len(head) > 1 && connectors[head[len(head)-1]] {
				head = head[:len(head)-1]
			}
			return strings.Join(head, " ")
		}
	}
	return name
}

var connectors = map[string]bool{"e": true, "ou": true, "depois": true}

// matchPhrase picks the best scoring phrase; ties keep the earlier one.
func (r *Resolver) matchPhrase(text string) (string, bool) {
	best, score := "", 0
	for _, phrase := range r.phrases {
		candidate := normalize(phrase)
		t := fuzzy.TokenSetRatio(candidate, text)
		if t < minTokenRatio || fuzzy.Ratio(candidate, text) < minRatio {
			continue
		}
		if t > score {
			best, score = phrase, t
		}
	}
	return best, score > 0
}
