package automation_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/voicenav/internal/automation"
	"github.com/avvvet/voicenav/internal/automation/htmlpage"
	"github.com/avvvet/voicenav/internal/logger"
	"github.com/avvvet/voicenav/internal/models"
)

const contactForm = `<html><body>
<form id="contact">
  <input type="text" name="user_name">
  <input type="email" id="email_address">
  <input type="tel" name="phone">
  <textarea name="message"></textarea>
  <button type="submit">Send</button>
</form>
</body></html>`

const searchPage = `<html><body>
<form action="/login"><input name="username"></form>
<form action="/s"><input type="text" name="k" placeholder="Find products"><button>Go</button></form>
<form action="/other"><input type="search" name="site_q"></form>
</body></html>`

const bookingPage = `<html><body>
<form>
  <input name="from_station">
  <input name="to_station">
  <input name="journey_date">
  <input type="submit" value="Search trains">
</form>
</body></html>`

func newExecutor(t *testing.T, page automation.Page) *automation.Executor {
	return automation.NewExecutor(page, automation.Options{FieldSettle: time.Millisecond}, logger.NewTestLogger(t))
}

func TestExecute_Search(t *testing.T) {
	page := htmlpage.Blank("https://example.com")
	res := newExecutor(t, page).Execute(context.Background(), models.ActionRequest{
		Action:  models.ActionSearch,
		Payload: models.ActionPayload{Query: "golang & rust"},
	})

	assert.True(t, res.Success)
	assert.Equal(t, "Searching for: golang & rust", res.Message)
	assert.Equal(t, []string{"https://www.google.com/search?q=golang+%26+rust"}, page.Navigations())
}

func TestExecute_Navigate(t *testing.T) {
	page := htmlpage.Blank("https://example.com")
	ex := newExecutor(t, page)

	res := ex.Execute(context.Background(), models.ActionRequest{
		Action:  models.ActionNavigate,
		Payload: models.ActionPayload{URL: "https://www.youtube.com"},
	})
	assert.True(t, res.Success)
	assert.Equal(t, []string{"https://www.youtube.com"}, page.Navigations())

	res = ex.Execute(context.Background(), models.ActionRequest{Action: models.ActionNavigate})
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestExecute_WebsiteSearch(t *testing.T) {
	page := htmlpage.MustParse("https://shop.example", searchPage)
	res := newExecutor(t, page).Execute(context.Background(), models.ActionRequest{
		Action:  models.ActionWebsiteSearch,
		Payload: models.ActionPayload{Query: "usb hub"},
	})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "usb hub", page.Value("k"), "first search-role input in document order")
	assert.Equal(t, "", page.Value("site_q"))
	assert.Equal(t, []htmlpage.Event{{Index: 1, Type: "input"}, {Index: 1, Type: "change"}}, page.Events())

	subs := page.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, 1, subs[0].Form)
	assert.Equal(t, "usb hub", subs[0].Values["k"])
}

func TestExecute_WebsiteSearchMatchers(t *testing.T) {
	docs := map[string]string{
		"type":        `<form><input type="search"></form>`,
		"role":        `<form><input role="search"></form>`,
		"name":        `<form><input name="search_query"></form>`,
		"aria":        `<form><input aria-label="Search Wikipedia"></form>`,
		"placeholder": `<form><textarea placeholder="Search or ask"></textarea></form>`,
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			page := htmlpage.MustParse("https://x.example", "<html><body>"+doc+"</body></html>")
			res := newExecutor(t, page).Execute(context.Background(), models.ActionRequest{
				Action:  models.ActionWebsiteSearch,
				Payload: models.ActionPayload{Query: "q"},
			})
			assert.True(t, res.Success, res.Error)
			assert.Len(t, page.Submissions(), 1)
		})
	}
}

func TestExecute_WebsiteSearchNoInput(t *testing.T) {
	page := htmlpage.MustParse("https://x.example", contactForm)
	res := newExecutor(t, page).Execute(context.Background(), models.ActionRequest{
		Action:  models.ActionWebsiteSearch,
		Payload: models.ActionPayload{Query: "anything"},
	})

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, string(models.ErrorElementNotFound))
	assert.Empty(t, page.Submissions())
}

func TestExecute_FormFill(t *testing.T) {
	page := htmlpage.MustParse("https://x.example", contactForm)
	res := newExecutor(t, page).Execute(context.Background(), models.ActionRequest{
		Action: models.ActionFormFill,
		Payload: models.ActionPayload{FormFields: map[string]string{
			"name":  "Rahul",
			"email": "rahul@gmail.com",
		}},
	})

	require.True(t, res.Success)
	assert.Equal(t, "Filled 2 of 2 fields", res.Message)
	assert.Equal(t, 2, res.Filled)
	assert.Equal(t, "Rahul", page.Value("user_name"))
	assert.Equal(t, "rahul@gmail.com", page.Value("email_address"))
	assert.Empty(t, page.Submissions(), "form fill never submits")
}

func TestExecute_FormFillPartial(t *testing.T) {
	page := htmlpage.MustParse("https://x.example", contactForm)
	res := newExecutor(t, page).Execute(context.Background(), models.ActionRequest{
		Action: models.ActionFormFill,
		Payload: models.ActionPayload{FormFields: map[string]string{
			"Name":    "case matters",
			"message": "hello there",
			"city":    "Pune",
		}},
	})

	assert.True(t, res.Success, "partial fill is not an error")
	assert.Equal(t, "Filled 1 of 3 fields", res.Message)
	assert.Equal(t, 1, res.Filled)
	assert.Equal(t, "hello there", page.Value("message"))
	assert.Equal(t, "", page.Value("user_name"))
}

func TestExecute_BookTicket(t *testing.T) {
	page := htmlpage.MustParse("https://trains.example", bookingPage)
	res := newExecutor(t, page).Execute(context.Background(), models.ActionRequest{
		Action:  models.ActionBookTicket,
		Payload: models.ActionPayload{From: "Delhi", To: "Mumbai", Date: "2026-10-15"},
	})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 3, res.Filled)
	assert.Equal(t, []int{3}, page.Clicks())

	subs := page.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, map[string]string{
		"from_station": "Delhi",
		"to_station":   "Mumbai",
		"journey_date": "2026-10-15",
	}, subs[0].Values)
}

func TestExecute_BookTicketSkipsEmpty(t *testing.T) {
	page := htmlpage.MustParse("https://trains.example", bookingPage)
	res := newExecutor(t, page).Execute(context.Background(), models.ActionRequest{
		Action:  models.ActionBookTicket,
		Payload: models.ActionPayload{From: "Delhi", To: "Mumbai"},
	})

	require.True(t, res.Success)
	assert.Equal(t, 2, res.Filled)
	assert.Equal(t, "", page.Value("journey_date"))
}

func TestExecute_BookTicketNoSubmit(t *testing.T) {
	page := htmlpage.MustParse("https://trains.example", `<html><body><input name="from"><input name="to"></body></html>`)
	res := newExecutor(t, page).Execute(context.Background(), models.ActionRequest{
		Action:  models.ActionBookTicket,
		Payload: models.ActionPayload{From: "Delhi", To: "Mumbai", Date: "tomorrow"},
	})

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, string(models.ErrorElementNotFound))
	assert.Equal(t, 2, res.Filled)
	assert.Equal(t, "Delhi", page.Value("from"), "filled fields are left in place")
	assert.Equal(t, "Mumbai", page.Value("to"))
}

func TestExecute_Summarize(t *testing.T) {
	page := htmlpage.MustParse("https://news.example", `<html><head><title>T</title></head><body>
		<h1>Headline</h1>
		<script>var hidden = 1;</script>
		<p>First   paragraph
		   continues.</p>
	</body></html>`)
	res := newExecutor(t, page).Execute(context.Background(), models.ActionRequest{Action: models.ActionSummarize})

	require.True(t, res.Success)
	assert.Equal(t, "Headline First paragraph continues.", res.Summary)
}

func TestExecute_SummarizeTruncates(t *testing.T) {
	page := htmlpage.MustParse("https://long.example", "<html><body><p>"+strings.Repeat("é ", 800)+"</p></body></html>")
	ex := automation.NewExecutor(page, automation.Options{}, nil)

	res := ex.Execute(context.Background(), models.ActionRequest{Action: models.ActionSummarize})
	require.True(t, res.Success)
	assert.Equal(t, automation.DefaultMaxSummaryChars, len([]rune(res.Summary)))
}

func TestExecute_None(t *testing.T) {
	page := htmlpage.Blank("https://x.example")
	res := newExecutor(t, page).Execute(context.Background(), models.ActionRequest{Action: models.ActionNone})

	assert.False(t, res.Success)
	assert.Equal(t, "no action for intent", res.Error)
	assert.Empty(t, page.Navigations())
}

func TestExecute_CancelledBooking(t *testing.T) {
	page := htmlpage.MustParse("https://trains.example", bookingPage)
	ex := automation.NewExecutor(page, automation.Options{FieldSettle: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	res := ex.Execute(ctx, models.ActionRequest{
		Action:  models.ActionBookTicket,
		Payload: models.ActionPayload{From: "Delhi", To: "Mumbai"},
	})

	assert.False(t, res.Success)
	assert.Equal(t, 1, res.Filled)
	assert.Empty(t, page.Clicks())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", automation.Truncate("abc", 5))
	assert.Equal(t, "ab", automation.Truncate("abc", 2))
	assert.Equal(t, "日本", automation.Truncate("日本語", 2))
}
