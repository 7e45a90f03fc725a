// Package intent turns transcripts and typed text into intents.
package intent

import "fmt"

type Kind int

const (
	KindOpenApp Kind = iota + 1
	KindQuickPhrase
	KindUnrecognized
)

func (k Kind) String() string {
	switch k {
	case KindOpenApp:
		return "open_app"
	case KindQuickPhrase:
		return "quick_phrase"
	case KindUnrecognized:
		return "unrecognized"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Intent is one of OpenApp, QuickPhrase or Unrecognized.
type Intent interface {
	Kind() Kind
	// Confirmation is the text spoken when the intent is dispatched.
	Confirmation() string
	isIntent()
}

// OpenApp targets a registry entry, or only a raw name for a best-effort
// open when the registry has no match.
type OpenApp struct {
	App     *AppEntry
	RawName string
	Text    string
}

func (OpenApp) Kind() Kind             { return KindOpenApp }
func (o OpenApp) Confirmation() string { return o.Text }
func (OpenApp) isIntent()              {}

// Verified reports whether the target came from the registry.
func (o OpenApp) Verified() bool {
	return o.App != nil
}

// Target is the display name of the entry, or the raw name.
func (o OpenApp) Target() string {
	if o.App != nil {
		return o.App.Name
	}
	return o.RawName
}

type QuickPhrase struct {
	Text string
}

func (QuickPhrase) Kind() Kind             { return KindQuickPhrase }
func (q QuickPhrase) Confirmation() string { return q.Text }
func (QuickPhrase) isIntent()              {}

// Quick builds the intent for a quick-phrase button.
func Quick(text string) QuickPhrase {
	return QuickPhrase{Text: text}
}

type Unrecognized struct {
	Prompt string
}

func (Unrecognized) Kind() Kind             { return KindUnrecognized }
func (u Unrecognized) Confirmation() string { return u.Prompt }
func (Unrecognized) isIntent()              {}
