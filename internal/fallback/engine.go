// Package fallback resolves commands without a model: an ordered table of
// keyword patterns, first match wins.
package fallback

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/avvvet/voicenav/internal/entities"
	"github.com/avvvet/voicenav/internal/models"
)

// UnknownConfidence is reported when no pattern matches.
const UnknownConfidence = 0.30

// Input is what a pattern handler sees.
type Input struct {
	Text     string // trimmed, original case
	Lower    string
	Keyword  string // the keyword that matched
	Now      time.Time
	Pick     func(n int) int
	Entities models.Entities // extractor output, read-only
}

// Rest returns the text following the matched keyword, original case
// preserved when possible.
func (in Input) Rest() string {
	idx := strings.Index(in.Lower, in.Keyword)
	if idx < 0 {
		return ""
	}
	end := idx + len(in.Keyword)
	if len(in.Lower) == len(in.Text) {
		return strings.TrimSpace(in.Text[end:])
	}
	return strings.TrimSpace(in.Lower[end:])
}

// Refinement is a handler's override of a pattern's defaults.
type Refinement struct {
	Message  string
	Entities models.Entities
}

// Handler derives a message and entities from the literal command.
type Handler func(in Input) Refinement

// Pattern is one row of the rule table.
type Pattern struct {
	Name       string
	Intent     models.Intent
	Keywords   []string
	Confidence float64
	Message    string
	Entities   models.Entities
	Handler    Handler
	// Guard, when set, must accept a keyword hit for the row to match.
	Guard func(lower, keyword string) bool
}

func (p Pattern) match(lower string) (string, bool) {
	for _, kw := range p.Keywords {
		kw = strings.ToLower(kw)
		if !strings.Contains(lower, kw) {
			continue
		}
		if p.Guard != nil && !p.Guard(lower, kw) {
			continue
		}
		return kw, true
	}
	return "", false
}

// Engine is safe for concurrent use; its table is never mutated.
type Engine struct {
	patterns []Pattern
	now      func() time.Time
	pick     func(n int) int
}

type Option func(*Engine)

// WithClock fixes the clock seen by the time and date handlers.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRand sets the selector used by the joke handler. pick(n) must
// return a value in [0, n).
func WithRand(pick func(n int) int) Option {
	return func(e *Engine) { e.pick = pick }
}

// WithPatterns replaces the default table.
func WithPatterns(patterns []Pattern) Option {
	return func(e *Engine) { e.patterns = append([]Pattern(nil), patterns...) }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		patterns: DefaultPatterns(),
		now:      time.Now,
		pick:     rand.Intn,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Patterns returns a copy of the table in priority order.
func (e *Engine) Patterns() []Pattern {
	return append([]Pattern(nil), e.patterns...)
}

// Resolve always returns a result.
func (e *Engine) Resolve(text string) models.IntentResult {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)
	generic := entities.Extract(trimmed)

	for _, p := range e.patterns {
		kw, ok := p.match(lower)
		if !ok {
			continue
		}

		message := p.Message
		found := generic.Merge(p.Entities)
		if p.Handler != nil {
			ref := p.Handler(Input{
				Text:     trimmed,
				Lower:    lower,
				Keyword:  kw,
				Now:      e.now(),
				Pick:     e.pick,
				Entities: generic.Clone(),
			})
			if ref.Message != "" {
				message = ref.Message
			}
			found = found.Merge(ref.Entities)
		}

		return models.IntentResult{
			Intent:     p.Intent,
			Entities:   found,
			Message:    message,
			Confidence: p.Confidence,
			Model:      models.FallbackModel,
			Pattern:    p.Name,
		}
	}

	return models.IntentResult{
		Intent:     models.IntentUnknown,
		Entities:   generic,
		Message:    fmt.Sprintf("I heard %q, but I'm not sure how to help with that yet. Could you rephrase it?", trimmed),
		Confidence: UnknownConfidence,
		Model:      models.FallbackModel,
	}
}
