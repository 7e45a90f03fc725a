package intent

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrEmptyAlias     = errors.New("app alias is empty")
	ErrDuplicateAlias = errors.New("duplicate app alias")
)

type AppEntry struct {
	Alias      string `yaml:"alias"`
	Identifier string `yaml:"identifier"`
	Name       string `yaml:"name"`
	// FallbackURL is opened in a new browser context when the primary
	// identifier does not take over; empty means reuse Identifier.
	FallbackURL string `yaml:"fallback_url"`
}

// Registry keeps entries in declaration order; lookups scan that order.
type Registry struct {
	entries []AppEntry
}

func NewRegistry(entries ...AppEntry) (*Registry, error) {
	seen := make(map[string]struct{}, len(entries))
	r := &Registry{entries: make([]AppEntry, 0, len(entries))}
	for _, e := range entries {
		if e.Name == "" {
			e.Name = normalize(e.Alias)
		}
		e.Alias = foldKey(e.Alias)
		if e.Alias == "" {
			return nil, fmt.Errorf("%w: %q", ErrEmptyAlias, e.Name)
		}
		if _, ok := seen[e.Alias]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateAlias, e.Alias)
		}
		seen[e.Alias] = struct{}{}
		r.entries = append(r.entries, e)
	}
	return r, nil
}

// MustRegistry is NewRegistry for static tables.
func MustRegistry(entries ...AppEntry) *Registry {
	r, err := NewRegistry(entries...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the first entry, in declaration order, whose alias contains
// name or is contained in it. Both sides are compared without diacritics.
func (r *Registry) Lookup(name string) (AppEntry, bool) {
	name = foldKey(name)
	if r == nil || name == "" {
		return AppEntry{}, false
	}
	for _, e := range r.entries {
		if strings.Contains(e.Alias, name) || strings.Contains(name, e.Alias) {
			return e, true
		}
	}
	return AppEntry{}, false
}

func (r *Registry) Entries() []AppEntry {
	if r == nil {
		return nil
	}
	return append([]AppEntry(nil), r.entries...)
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// foldKey is normalize with combining marks stripped, so "câmera" and
// "camera" name the same alias.
func foldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return normalize(s)
	}
	return normalize(folded)
}

// DefaultRegistry is the built-in application table.
func DefaultRegistry() *Registry {
	return MustRegistry(
		AppEntry{Alias: "whatsapp", Identifier: "whatsapp://", Name: "WhatsApp", FallbackURL: "https://web.whatsapp.com"},
		AppEntry{Alias: "youtube", Identifier: "vnd.youtube://", Name: "YouTube", FallbackURL: "https://www.youtube.com"},
		AppEntry{Alias: "netflix", Identifier: "nflx://", Name: "Netflix", FallbackURL: "https://www.netflix.com"},
		AppEntry{Alias: "spotify", Identifier: "spotify://", Name: "Spotify", FallbackURL: "https://open.spotify.com"},
		AppEntry{Alias: "instagram", Identifier: "instagram://", Name: "Instagram", FallbackURL: "https://www.instagram.com"},
		AppEntry{Alias: "facebook", Identifier: "fb://", Name: "Facebook", FallbackURL: "https://www.facebook.com"},
		AppEntry{Alias: "telegram", Identifier: "tg://", Name: "Telegram", FallbackURL: "https://web.telegram.org"},
		AppEntry{Alias: "tiktok", Identifier: "snssdk1233://", Name: "TikTok", FallbackURL: "https://www.tiktok.com"},
		AppEntry{Alias: "gmail", Identifier: "googlegmail://", Name: "Gmail", FallbackURL: "https://mail.google.com"},
		AppEntry{Alias: "maps", Identifier: "geo:0,0", Name: "Google Maps", FallbackURL: "https://maps.google.com"},
		AppEntry{Alias: "google", Identifier: "https://www.google.com", Name: "Google"},
		AppEntry{Alias: "calculadora", Identifier: "calculator://", Name: "Calculadora"},
		AppEntry{Alias: "camera", Identifier: "camera://", Name: "Câmera"},
		AppEntry{Alias: "jogo da memoria", Identifier: "https://www.jogosdamemoria.com", Name: "Jogo da Memória"},
	)
}
