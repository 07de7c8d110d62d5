package fallback

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/avvvet/voicenav/internal/models"
)

// Jokes is the fixed set the joke handler draws from.
var Jokes = []string{
	"Why do programmers prefer dark mode? Because light attracts bugs.",
	"I told my computer I needed a break, and it said no problem, it would go to sleep.",
	"Why did the developer go broke? Because he used up all his cache.",
	"There are 10 kinds of people in the world: those who understand binary and those who don't.",
	"Why was the JavaScript developer sad? Because he didn't Node how to Express himself.",
}

// DefaultPatterns returns a fresh copy of the built-in table. Order is
// priority: earlier rows shadow later ones on overlapping keywords.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{
			Name:       "greeting",
			Intent:     models.IntentOther,
			Keywords:   []string{"hello", "hey there", "good morning", "good afternoon", "good evening", "greetings"},
			Confidence: 0.9,
			Message:    "Hello! How can I help you today?",
			Entities:   models.Entities{"action": "greet"},
		},
		{
			Name:       "time",
			Intent:     models.IntentQnA,
			Keywords:   []string{"what time", "current time", "time is it", "time now"},
			Confidence: 0.95,
			Message:    "Let me check the time.",
			Entities:   models.Entities{"action": "get_time"},
			Handler:    tellTime,
		},
		{
			Name:       "date",
			Intent:     models.IntentQnA,
			Keywords:   []string{"what date", "today's date", "todays date", "date today", "what day"},
			Confidence: 0.95,
			Message:    "Let me check the date.",
			Entities:   models.Entities{"action": "get_date"},
			Handler:    tellDate,
		},
		{
			Name:       "joke",
			Intent:     models.IntentOther,
			Keywords:   []string{"joke", "make me laugh", "something funny"},
			Confidence: 0.9,
			Message:    Jokes[0],
			Entities:   models.Entities{"action": "tell_joke"},
			Handler:    tellJoke,
		},
		{
			Name:       "calculation",
			Intent:     models.IntentQnA,
			Keywords:   []string{"plus", "minus", "multiplied by", "times", "divided by", "calculate", "compute"},
			Confidence: 0.95,
			Message:    "What would you like me to calculate?",
			Entities:   models.Entities{"action": "calculate"},
			Handler:    calculate,
			Guard:      isCalculation,
		},
		{
			Name:       "weather",
			Intent:     models.IntentSearch,
			Keywords:   []string{"weather", "forecast", "temperature"},
			Confidence: 0.8,
			Message:    "Looking up the weather.",
			Entities:   models.Entities{"action": "search", "query": "weather"},
			Handler:    weather,
		},
		{
			Name:       "open_website",
			Intent:     models.IntentNavigation,
			Keywords:   []string{"open ", "go to ", "navigate to ", "visit ", "launch "},
			Confidence: 0.85,
			Message:    "Which website should I open?",
			Entities:   models.Entities{"action": "open_website"},
			Handler:    openWebsite,
		},
		{
			Name:       "summarize",
			Intent:     models.IntentSummarize,
			Keywords:   []string{"summarize", "summarise", "summary", "tl;dr", "tldr"},
			Confidence: 0.85,
			Message:    "Summarizing this page.",
			Entities:   models.Entities{"action": "summarize"},
		},
		{
			Name:       "form_fill",
			Intent:     models.IntentFormFill,
			Keywords:   []string{"fill the form", "fill form", "fill in", "fill out", "fill my", "my name is"},
			Confidence: 0.8,
			Message:    "Which details should I fill in?",
			Entities:   models.Entities{"action": "fill_form"},
			Handler:    fillForm,
		},
		{
			Name:       "book_ticket",
			Intent:     models.IntentBookTicket,
			Keywords:   []string{"book a", "book me", "ticket", "reserve", "booking"},
			Confidence: 0.8,
			Message:    "Where would you like to travel?",
			Entities:   models.Entities{"action": "book_ticket"},
			Handler:    bookTicket,
		},
		{
			Name:       "website_search",
			Intent:     models.IntentWebsiteSearch,
			Keywords:   []string{"search on", "search in", "find on", "look up on", " on amazon", " on youtube", " on flipkart", " on wikipedia", " on github"},
			Confidence: 0.8,
			Message:    "What should I search for on this site?",
			Entities:   models.Entities{"action": "website_search"},
			Handler:    websiteSearch,
		},
		{
			Name:       "search",
			Intent:     models.IntentSearch,
			Keywords:   []string{"search", "google", "look up", "find", "who is", "what is", "what are", "how to", "how do", "where is", "tell me about"},
			Confidence: 0.75,
			Message:    "What should I search for?",
			Entities:   models.Entities{"action": "search"},
			Handler:    search,
		},
		{
			Name:       "help",
			Intent:     models.IntentOther,
			Keywords:   []string{"help", "what can you do"},
			Confidence: 0.9,
			Message:    "I can search the web, open websites, fill forms, book tickets and summarize pages.",
			Entities:   models.Entities{"action": "help"},
		},
		{
			Name:       "thanks",
			Intent:     models.IntentOther,
			Keywords:   []string{"thank"},
			Confidence: 0.9,
			Message:    "You're welcome!",
			Entities:   models.Entities{"action": "acknowledge"},
		},
		{
			Name:       "goodbye",
			Intent:     models.IntentOther,
			Keywords:   []string{"goodbye", "bye", "see you"},
			Confidence: 0.9,
			Message:    "Goodbye! Talk to you soon.",
			Entities:   models.Entities{"action": "goodbye"},
		},
	}
}

func tellTime(in Input) Refinement {
	return Refinement{
		Message:  fmt.Sprintf("It's %s.", in.Now.Format("3:04 PM")),
		Entities: models.Entities{"time": in.Now.Format("15:04")},
	}
}

func tellDate(in Input) Refinement {
	return Refinement{
		Message:  fmt.Sprintf("Today is %s.", in.Now.Format("Monday, January 2, 2006")),
		Entities: models.Entities{"date": in.Now.Format("2006-01-02")},
	}
}

func tellJoke(in Input) Refinement {
	i := 0
	if in.Pick != nil {
		i = in.Pick(len(Jokes))
	}
	if i < 0 || i >= len(Jokes) {
		i = 0
	}
	return Refinement{Message: Jokes[i]}
}

var arithmetic = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*(plus|\+|minus|-|multiplied by|times|x|\*|divided by|over|/)\s*(-?\d+(?:\.\d+)?)`)

// isCalculation keeps operator words from claiming ordinary phrases such
// as "the times of india". Operators count only between two numbers.
func isCalculation(lower, keyword string) bool {
	switch keyword {
	case "calculate", "compute":
		return true
	}
	return arithmetic.MatchString(lower)
}

func calculate(in Input) Refinement {
	m := arithmetic.FindStringSubmatch(in.Lower)
	if m == nil {
		return Refinement{}
	}
	a, errA := strconv.ParseFloat(m[1], 64)
	b, errB := strconv.ParseFloat(m[3], 64)
	if errA != nil || errB != nil {
		return Refinement{}
	}

	var op string
	var result float64
	switch m[2] {
	case "plus", "+":
		op, result = "+", a+b
	case "minus", "-":
		op, result = "-", a-b
	case "multiplied by", "times", "x", "*":
		op, result = "*", a*b
	default:
		op = "/"
		if b == 0 {
			return Refinement{
				Message:  "I can't divide by zero.",
				Entities: models.Entities{"expression": fmt.Sprintf("%s / %s", m[1], m[3])},
			}
		}
		result = a / b
	}

	result = math.Round(result*1e4) / 1e4
	return Refinement{
		Message: fmt.Sprintf("The answer is %s.", strconv.FormatFloat(result, 'f', -1, 64)),
		Entities: models.Entities{
			"expression": fmt.Sprintf("%s %s %s", m[1], op, m[3]),
			"result":     result,
		},
	}
}

var weatherLocation = regexp.MustCompile(`(?i)\b(?:in|at|for)\s+([a-z][a-z .'-]*)$`)

func weather(in Input) Refinement {
	m := weatherLocation.FindStringSubmatch(strings.TrimRight(in.Text, "?.! "))
	if m == nil {
		return Refinement{}
	}
	place := strings.TrimSpace(m[1])
	return Refinement{
		Message:  fmt.Sprintf("Looking up the weather in %s.", place),
		Entities: models.Entities{"query": "weather in " + place, "location": place},
	}
}

var siteFiller = map[string]bool{"the": true, "website": true, "site": true, "page": true, "app": true, "up": true}

func openWebsite(in Input) Refinement {
	if u, ok := in.Entities["url"].(string); ok && u != "" {
		return Refinement{
			Message:  fmt.Sprintf("Opening %s.", u),
			Entities: models.Entities{"url": u, "website": hostOf(u)},
		}
	}
	var site string
	for _, word := range strings.Fields(strings.ToLower(in.Rest())) {
		word = strings.Trim(word, ".,!?;:'\"")
		if word == "" || siteFiller[word] {
			continue
		}
		site = word
		break
	}
	if site == "" {
		return Refinement{}
	}
	return Refinement{
		Message:  fmt.Sprintf("Opening %s.", site),
		Entities: models.Entities{"website": site},
	}
}

func hostOf(u string) string {
	host := u
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	return strings.TrimPrefix(host, "www.")
}

var (
	namePattern  = regexp.MustCompile(`(?i)\bname is ([a-z][a-z'-]*(?: [a-z][a-z'-]*)?)`)
	phonePattern = regexp.MustCompile(`(?:\+\d{1,3}[ -]?)?\b\d{10}\b`)
)

// stopWords end a captured name ("my name is rahul and my email ...").
var stopWords = map[string]bool{"and": true, "my": true, "email": true, "phone": true, "with": true}

func fillForm(in Input) Refinement {
	fields := map[string]string{}
	if m := namePattern.FindStringSubmatch(in.Text); m != nil {
		words := strings.Fields(m[1])
		kept := words[:0]
		for _, w := range words {
			if stopWords[strings.ToLower(w)] {
				break
			}
			kept = append(kept, w)
		}
		if len(kept) > 0 {
			fields["name"] = strings.Join(kept, " ")
		}
	}
	if email, ok := in.Entities["email"].(string); ok && email != "" {
		fields["email"] = email
	}
	if phone := phonePattern.FindString(in.Text); phone != "" {
		fields["phone"] = phone
	}
	if len(fields) == 0 {
		return Refinement{Entities: models.Entities{"form_fields": fields}}
	}
	return Refinement{
		Message:  fmt.Sprintf("Filling the form with %d field(s).", len(fields)),
		Entities: models.Entities{"form_fields": fields},
	}
}

var (
	routePattern = regexp.MustCompile(`(?i)\bfrom\s+([a-z][a-z ]*?)\s+to\s+([a-z][a-z ]*?)(?:\s+(?:on|for|at|tomorrow|today)\b|[,.?!]|$)`)
	relativeDay  = regexp.MustCompile(`(?i)\b(today|tomorrow|(?:mon|tues|wednes|thurs|fri|satur|sun)day)\b`)
)

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

func bookTicket(in Input) Refinement {
	found := models.Entities{"from": "", "to": "", "date": ""}
	if m := routePattern.FindStringSubmatch(in.Text); m != nil {
		found["from"] = titleCase(m[1])
		found["to"] = titleCase(m[2])
	}
	if d, ok := in.Entities["date"].(string); ok && d != "" {
		found["date"] = d
	} else if m := relativeDay.FindStringSubmatch(in.Text); m != nil {
		found["date"] = strings.ToLower(m[1])
	}

	from, to := found["from"].(string), found["to"].(string)
	if from == "" || to == "" {
		return Refinement{Entities: found}
	}
	msg := fmt.Sprintf("Booking a ticket from %s to %s.", from, to)
	if d := found["date"].(string); d != "" {
		msg = fmt.Sprintf("Booking a ticket from %s to %s on %s.", from, to, d)
	}
	return Refinement{Message: msg, Entities: found}
}

var (
	siteFirst  = regexp.MustCompile(`(?i)\b(?:search|find|look up)\s+(?:on|in)\s+([a-z0-9.-]+)\s+for\s+(.+)$`)
	queryFirst = regexp.MustCompile(`(?i)\b(?:search|find|look up)?\s*(?:for\s+)?(.+?)\s+on\s+([a-z0-9.-]+)$`)
)

func websiteSearch(in Input) Refinement {
	text := strings.TrimRight(in.Text, "?.! ")
	var site, query string
	if m := siteFirst.FindStringSubmatch(text); m != nil {
		site, query = m[1], m[2]
	} else if m := queryFirst.FindStringSubmatch(text); m != nil {
		query, site = m[1], m[2]
	}
	site = strings.TrimSuffix(strings.ToLower(site), ".com")
	query = strings.TrimSpace(query)
	if query == "" {
		return Refinement{Entities: models.Entities{"website": site, "query": ""}}
	}
	return Refinement{
		Message:  fmt.Sprintf("Searching %s for: %s", site, query),
		Entities: models.Entities{"website": site, "query": query},
	}
}

// searchLeads are stripped from the front of a search query; question
// words are kept since they carry meaning.
var searchLeads = []string{"search the web for", "search for", "search", "google for", "google", "look up", "find me", "find"}

func search(in Input) Refinement {
	query := strings.TrimRight(in.Text, "?.! ")
	lower := strings.ToLower(query)
	for _, lead := range searchLeads {
		if strings.HasPrefix(lower, lead+" ") {
			query = strings.TrimSpace(query[len(lead):])
			break
		}
	}
	if query == "" {
		return Refinement{}
	}
	return Refinement{
		Message:  "Searching for: " + query,
		Entities: models.Entities{"query": query},
	}
}
