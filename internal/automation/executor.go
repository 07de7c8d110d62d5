package automation

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/avvvet/voicenav/internal/logger"
	"github.com/avvvet/voicenav/internal/models"
)

const (
	DefaultSearchURL       = "https://www.google.com/search?q="
	DefaultFieldSettle     = 300 * time.Millisecond
	DefaultMaxSummaryChars = 1000
)

type Options struct {
	SearchURL       string
	FieldSettle     time.Duration
	MaxSummaryChars int
}

// Executor runs actions on one page. Matching is by loose substring, so
// where several elements qualify the first in document order is used.
type Executor struct {
	page  Page
	opts  Options
	log   logger.Logger
	sleep func(context.Context, time.Duration) error
}

func NewExecutor(page Page, opts Options, log logger.Logger) *Executor {
	if opts.SearchURL == "" {
		opts.SearchURL = DefaultSearchURL
	}
	if opts.FieldSettle < 0 {
		opts.FieldSettle = 0
	}
	if opts.MaxSummaryChars <= 0 {
		opts.MaxSummaryChars = DefaultMaxSummaryChars
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Executor{page: page, opts: opts, log: log, sleep: Sleep}
}

// Execute performs req. Failures are reported in the result, never as a
// panic or error.
func (e *Executor) Execute(ctx context.Context, req models.ActionRequest) models.ExecutionResult {
	p := req.Payload
	switch req.Action {
	case models.ActionSearch:
		return e.search(ctx, p.Query)
	case models.ActionNavigate:
		return e.navigate(ctx, p.URL)
	case models.ActionWebsiteSearch:
		return e.websiteSearch(ctx, p.Query)
	case models.ActionFormFill:
		return e.fillForm(ctx, p.FormFields)
	case models.ActionBookTicket:
		return e.bookTicket(ctx, p)
	case models.ActionSummarize:
		return e.summarize(ctx)
	default:
		return models.ExecutionResult{Success: false, Error: "no action for intent"}
	}
}

func (e *Executor) search(ctx context.Context, query string) models.ExecutionResult {
	target := e.opts.SearchURL + url.QueryEscape(query)
	if err := e.page.Navigate(ctx, target); err != nil {
		e.log.WithError(err).Warn("Search navigation did not complete", map[string]interface{}{"url": target})
	}
	return models.ExecutionResult{Success: true, Message: "Searching for: " + query}
}

func (e *Executor) navigate(ctx context.Context, target string) models.ExecutionResult {
	if strings.TrimSpace(target) == "" {
		return models.Failed(models.NewValidationError("no url to open"))
	}
	if err := e.page.Navigate(ctx, target); err != nil {
		return models.Failed(fmt.Errorf("open %s: %w", target, err))
	}
	return models.ExecutionResult{Success: true, Message: "Opened " + target}
}

var searchNames = map[string]bool{
	"q": true, "query": true, "search": true, "search_query": true, "k": true,
}

func isSearchInput(el Element) bool {
	if el.Tag != "input" && el.Tag != "textarea" {
		return false
	}
	switch {
	case strings.EqualFold(el.Type, "search"), strings.EqualFold(el.Role, "search"):
		return true
	case searchNames[el.Name]:
		return true
	case strings.Contains(strings.ToLower(el.AriaLabel), "search"),
		strings.Contains(strings.ToLower(el.Placeholder), "search"):
		return true
	}
	return false
}

func (e *Executor) websiteSearch(ctx context.Context, query string) models.ExecutionResult {
	elements, err := e.page.Elements(ctx)
	if err != nil {
		return models.Failed(fmt.Errorf("read page: %w", err))
	}
	for _, el := range elements {
		if !isSearchInput(el) {
			continue
		}
		if err := e.page.SetValue(ctx, el.Index, query); err != nil {
			return models.Failed(fmt.Errorf("set search box: %w", err))
		}
		if err := e.page.Submit(ctx, el.Index); err != nil {
			return models.Failed(fmt.Errorf("submit search: %w", err))
		}
		return models.ExecutionResult{Success: true, Message: "Searching this site for: " + query}
	}
	return models.Failed(models.NewElementNotFoundError("search box"))
}

// findField returns the first input or textarea whose name or id
// contains key. The match is case-sensitive.
func findField(elements []Element, key string) (Element, bool) {
	for _, el := range elements {
		if el.Tag != "input" && el.Tag != "textarea" {
			continue
		}
		if strings.Contains(el.Name, key) || strings.Contains(el.ID, key) {
			return el, true
		}
	}
	return Element{}, false
}

func (e *Executor) fillForm(ctx context.Context, fields map[string]string) models.ExecutionResult {
	elements, err := e.page.Elements(ctx)
	if err != nil {
		return models.Failed(fmt.Errorf("read page: %w", err))
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	filled := 0
	for _, key := range keys {
		el, ok := findField(elements, key)
		if !ok {
			e.log.Debug("No field for key", map[string]interface{}{"key": key})
			continue
		}
		if err := e.page.SetValue(ctx, el.Index, fields[key]); err != nil {
			e.log.WithError(err).Warn("Failed to fill field", map[string]interface{}{"key": key})
			continue
		}
		filled++
	}

	return models.ExecutionResult{
		Success: true,
		Message: fmt.Sprintf("Filled %d of %d fields", filled, len(keys)),
		Filled:  filled,
	}
}

func (e *Executor) bookTicket(ctx context.Context, p models.ActionPayload) models.ExecutionResult {
	elements, err := e.page.Elements(ctx)
	if err != nil {
		return models.Failed(fmt.Errorf("read page: %w", err))
	}

	steps := []struct{ key, value string }{
		{"from", p.From},
		{"to", p.To},
		{"date", p.Date},
	}
	filled := 0
	for _, step := range steps {
		if strings.TrimSpace(step.value) == "" {
			continue
		}
		el, ok := findField(elements, step.key)
		if !ok {
			continue
		}
		if err := e.page.SetValue(ctx, el.Index, step.value); err != nil {
			e.log.WithError(err).Warn("Failed to fill booking field", map[string]interface{}{"key": step.key})
			continue
		}
		filled++
		if err := e.sleep(ctx, e.opts.FieldSettle); err != nil {
			res := models.Failed(fmt.Errorf("booking interrupted: %w", err))
			res.Filled = filled
			return res
		}
	}

	for _, el := range elements {
		if !strings.EqualFold(el.Type, "submit") {
			continue
		}
		if err := e.page.Click(ctx, el.Index); err != nil {
			res := models.Failed(fmt.Errorf("click submit: %w", err))
			res.Filled = filled
			return res
		}
		return models.ExecutionResult{
			Success: true,
			Message: fmt.Sprintf("Filled %d booking fields and submitted", filled),
			Filled:  filled,
		}
	}

	res := models.Failed(models.NewElementNotFoundError("submit control"))
	res.Message = fmt.Sprintf("Filled %d booking fields", filled)
	res.Filled = filled
	return res
}

func (e *Executor) summarize(ctx context.Context) models.ExecutionResult {
	text, err := e.page.BodyText(ctx)
	if err != nil {
		return models.Failed(fmt.Errorf("read page text: %w", err))
	}
	summary := Truncate(strings.Join(strings.Fields(text), " "), e.opts.MaxSummaryChars)
	return models.ExecutionResult{Success: true, Message: "Page summary ready", Summary: summary}
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
