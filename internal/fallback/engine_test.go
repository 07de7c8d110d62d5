package fallback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/voicenav/internal/models"
)

var fixedNow = time.Date(2026, time.October, 14, 15, 4, 0, 0, time.UTC)

func newTestEngine() *Engine {
	return NewEngine(
		WithClock(func() time.Time { return fixedNow }),
		WithRand(func(n int) int { return n - 1 }),
	)
}

func TestResolveCalculation(t *testing.T) {
	res := newTestEngine().Resolve("what is 5 plus 3")

	assert.Equal(t, "calculation", res.Pattern)
	assert.Equal(t, models.IntentQnA, res.Intent)
	assert.Equal(t, "The answer is 8.", res.Message)
	assert.Equal(t, "5 + 3", res.Entities["expression"])
	assert.Equal(t, float64(8), res.Entities["result"])
	assert.Equal(t, "calculate", res.Entities["action"])
	assert.Equal(t, []int{5, 3}, res.Entities["numbers"], "generic entities are kept")
	assert.Equal(t, models.FallbackModel, res.Model)
	assert.Equal(t, 0.95, res.Confidence)
}

func TestResolveCalculationVariants(t *testing.T) {
	tests := []struct {
		text    string
		message string
		expr    string
	}{
		{text: "calculate 12 times 4", message: "The answer is 48.", expr: "12 * 4"},
		{text: "what is 10 minus 15", message: "The answer is -5.", expr: "10 - 15"},
		{text: "compute 10 divided by 4", message: "The answer is 2.5.", expr: "10 / 4"},
		{text: "what is 10 divided by 3", message: "The answer is 3.3333.", expr: "10 / 3"},
		{text: "what is 7 divided by 0", message: "I can't divide by zero.", expr: "7 / 0"},
	}
	e := newTestEngine()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			res := e.Resolve(tt.text)
			assert.Equal(t, "calculation", res.Pattern)
			assert.Equal(t, tt.message, res.Message)
			assert.Equal(t, tt.expr, res.Entities["expression"])
		})
	}
}

func TestResolveOpenWebsite(t *testing.T) {
	res := newTestEngine().Resolve("open youtube")

	assert.Equal(t, "open_website", res.Pattern)
	assert.Equal(t, models.IntentNavigation, res.Intent)
	assert.Equal(t, "youtube", res.Entities["website"])
	assert.Equal(t, "open_website", res.Entities["action"])
	assert.Equal(t, "Opening youtube.", res.Message)
}

func TestResolveOpenWebsiteWithURL(t *testing.T) {
	res := newTestEngine().Resolve("go to https://news.ycombinator.com/news")

	assert.Equal(t, "open_website", res.Pattern)
	assert.Equal(t, "https://news.ycombinator.com/news", res.Entities["url"])
	assert.Equal(t, "news.ycombinator.com", res.Entities["website"])
}

func TestResolveDeclaredIntentAndConfidence(t *testing.T) {
	e := newTestEngine()
	byName := map[string]Pattern{}
	for _, p := range e.Patterns() {
		byName[p.Name] = p
	}

	tests := []struct {
		text    string
		pattern string
	}{
		{"hello assistant", "greeting"},
		{"what time is it", "time"},
		{"what day is it today", "date"},
		{"tell me a joke", "joke"},
		{"what's the weather in Paris", "weather"},
		{"open the github website", "open_website"},
		{"summarize this page", "summarize"},
		{"fill the form, my name is Rahul", "form_fill"},
		{"book a train ticket from Delhi to Mumbai", "book_ticket"},
		{"search on amazon for running shoes", "website_search"},
		{"who is ada lovelace", "search"},
		{"can you help", "help"},
		{"thank you", "thanks"},
		{"ok bye", "goodbye"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			res := e.Resolve(tt.text)
			p, ok := byName[tt.pattern]
			require.True(t, ok)
			assert.Equal(t, tt.pattern, res.Pattern)
			assert.Equal(t, p.Intent, res.Intent)
			assert.Equal(t, p.Confidence, res.Confidence)
			assert.True(t, res.Intent.Valid())
		})
	}
}

func TestResolveClockHandlers(t *testing.T) {
	e := newTestEngine()

	timeRes := e.Resolve("What time is it?")
	assert.Equal(t, "It's 3:04 PM.", timeRes.Message)
	assert.Equal(t, "15:04", timeRes.Entities["time"])

	dateRes := e.Resolve("what's today's date")
	assert.Equal(t, "Today is Wednesday, October 14, 2026.", dateRes.Message)
	assert.Equal(t, "2026-10-14", dateRes.Entities["date"])
}

func TestResolveJokeUsesPicker(t *testing.T) {
	res := newTestEngine().Resolve("tell me a joke")
	assert.Equal(t, Jokes[len(Jokes)-1], res.Message)

	random := NewEngine()
	for i := 0; i < 20; i++ {
		assert.Contains(t, Jokes, random.Resolve("another joke please").Message)
	}
}

func TestResolveFormFill(t *testing.T) {
	res := newTestEngine().Resolve("fill the form, my name is Rahul and my email is rahul@gmail.com, phone 9876543210")

	assert.Equal(t, models.IntentFormFill, res.Intent)
	assert.Equal(t, map[string]string{
		"name":  "Rahul",
		"email": "rahul@gmail.com",
		"phone": "9876543210",
	}, res.Entities["form_fields"])
	assert.Equal(t, "Filling the form with 3 field(s).", res.Message)
}

func TestResolveBookTicket(t *testing.T) {
	res := newTestEngine().Resolve("book a flight from new delhi to goa on 12/25/2026")

	assert.Equal(t, models.IntentBookTicket, res.Intent)
	assert.Equal(t, "New Delhi", res.Entities["from"])
	assert.Equal(t, "Goa", res.Entities["to"])
	assert.Equal(t, "12/25/2026", res.Entities["date"])
	assert.Equal(t, "Booking a ticket from New Delhi to Goa on 12/25/2026.", res.Message)

	relative := newTestEngine().Resolve("reserve a bus ticket from Pune to Nashik tomorrow")
	assert.Equal(t, "Pune", relative.Entities["from"])
	assert.Equal(t, "Nashik", relative.Entities["to"])
	assert.Equal(t, "tomorrow", relative.Entities["date"])
}

func TestResolveSearchQueries(t *testing.T) {
	e := newTestEngine()

	res := e.Resolve("search for golang channels")
	assert.Equal(t, "golang channels", res.Entities["query"])
	assert.Equal(t, "Searching for: golang channels", res.Message)

	site := e.Resolve("search for wireless mouse on amazon")
	assert.Equal(t, models.IntentWebsiteSearch, site.Intent)
	assert.Equal(t, "amazon", site.Entities["website"])
	assert.Equal(t, "wireless mouse", site.Entities["query"])
}

func TestResolveUnknown(t *testing.T) {
	res := newTestEngine().Resolve("  purple elephants dance  ")

	assert.Equal(t, models.IntentUnknown, res.Intent)
	assert.Equal(t, UnknownConfidence, res.Confidence)
	assert.GreaterOrEqual(t, res.Confidence, 0.0)
	assert.LessOrEqual(t, res.Confidence, 1.0)
	assert.Equal(t, models.FallbackModel, res.Model)
	assert.Empty(t, res.Pattern)
	assert.Contains(t, res.Message, `"purple elephants dance"`)
	assert.NotNil(t, res.Entities)
}

func TestResolveIsDeterministic(t *testing.T) {
	e := newTestEngine()
	for _, text := range []string{"open youtube", "what is 5 plus 3", "search for cats", "gibberish text"} {
		assert.Equal(t, e.Resolve(text), e.Resolve(text))
	}
}

func TestFirstMatchWins(t *testing.T) {
	e := NewEngine(WithPatterns([]Pattern{
		{Name: "first", Intent: models.IntentOther, Keywords: []string{"alpha"}, Confidence: 0.6, Message: "first"},
		{Name: "second", Intent: models.IntentSearch, Keywords: []string{"alpha", "beta"}, Confidence: 0.9, Message: "second"},
	}))

	assert.Equal(t, "first", e.Resolve("ALPHA beta").Pattern)
	assert.Equal(t, "second", e.Resolve("just beta").Pattern)
}

func TestHandlerEntitiesTakePrecedence(t *testing.T) {
	e := NewEngine(WithPatterns([]Pattern{{
		Name:       "custom",
		Intent:     models.IntentOther,
		Keywords:   []string{"ping"},
		Confidence: 0.5,
		Message:    "default",
		Entities:   models.Entities{"action": "default", "email": "pattern@example.com", "kept": "yes"},
		Handler: func(in Input) Refinement {
			return Refinement{Entities: models.Entities{"action": "handled"}}
		},
	}}))

	res := e.Resolve("ping me at someone@example.com")
	assert.Equal(t, "default", res.Message, "empty handler message keeps the default")
	assert.Equal(t, "handled", res.Entities["action"])
	assert.Equal(t, "pattern@example.com", res.Entities["email"], "pattern entities beat extractor entities")
	assert.Equal(t, "yes", res.Entities["kept"])
}

func TestPatternsReturnsCopy(t *testing.T) {
	e := newTestEngine()
	ps := e.Patterns()
	ps[0].Name = "mutated"
	assert.Equal(t, "greeting", e.Patterns()[0].Name)
}

func TestResolve_OperatorWordsNeedNumbers(t *testing.T) {
	e := newTestEngine()

	res := e.Resolve("open the times of india")
	assert.Equal(t, models.IntentNavigation, res.Intent)
	assert.NotEqual(t, "calculation", res.Pattern)

	res = e.Resolve("what is 6 times 7")
	assert.Equal(t, "calculation", res.Pattern)
	assert.Equal(t, "The answer is 42.", res.Message)

	res = e.Resolve("calculate my taxes")
	assert.Equal(t, "calculation", res.Pattern, "explicit verbs still match without numbers")
}
