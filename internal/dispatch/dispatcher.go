// Package dispatch turns a resolved intent into the one automation
// action that carries it out.
package dispatch

import (
	"strings"

	"github.com/avvvet/voicenav/internal/logger"
	"github.com/avvvet/voicenav/internal/models"
)

type Dispatcher struct {
	log logger.Logger
}

func New(log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Dispatcher{log: log}
}

// Dispatch maps r onto exactly one action. Intents with nothing to
// automate map to NONE.
func (d *Dispatcher) Dispatch(r models.IntentResult) models.ActionRequest {
	e := r.Entities
	payload := models.ActionPayload{
		FormFields: map[string]string{},
		Intent:     r.Intent,
		Message:    r.Message,
	}

	var action models.ActionType
	switch r.Intent {
	case models.IntentSearch:
		action = models.ActionSearch
		payload.Website = e.String("website")
		payload.Query = composeQuery(e.String("query"), payload.Website, e.Strings("keywords"))
	case models.IntentWebsiteSearch:
		action = models.ActionWebsiteSearch
		payload.Website = e.String("website")
		payload.URL = e.String("url")
		payload.Query = composeQuery(e.String("query"), "", e.Strings("keywords"))
	case models.IntentNavigation:
		action = models.ActionNavigate
		payload.Website = e.String("website")
		payload.URL = ResolveURL(e.String("url"), payload.Website)
	case models.IntentFormFill:
		action = models.ActionFormFill
		payload.FormFields = e.Fields("form_fields")
	case models.IntentBookTicket:
		action = models.ActionBookTicket
		payload.From = e.String("from")
		payload.To = e.String("to")
		payload.Date = e.String("date")
	case models.IntentSummarize:
		action = models.ActionSummarize
	default:
		action = models.ActionNone
		d.log.Debug("No action for intent", map[string]interface{}{"intent": r.Intent})
	}

	return models.ActionRequest{Action: action, Payload: payload}
}

// composeQuery joins the query with any keywords it does not already
// contain, prefixed with a site: operator when a website is named.
func composeQuery(query, website string, keywords []string) string {
	parts := make([]string, 0, len(keywords)+2)
	if website = strings.TrimSpace(website); website != "" {
		parts = append(parts, "site:"+siteDomain(website))
	}
	query = strings.TrimSpace(query)
	if query != "" {
		parts = append(parts, query)
	}
	lower := strings.ToLower(query)
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" || strings.Contains(lower, strings.ToLower(kw)) {
			continue
		}
		parts = append(parts, kw)
	}
	return strings.Join(parts, " ")
}

// siteDomain reduces a website entity to the bare host a site: operator
// expects.
func siteDomain(website string) string {
	host := strings.ToLower(website)
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	host = strings.TrimPrefix(host, "www.")
	if looksLikeDomain(host) {
		return host
	}
	if u, ok := wellKnown[slug(host)]; ok {
		return siteDomain(u)
	}
	return slug(host) + ".com"
}
