// Package entities pulls generic, intent-independent values out of a
// command: integers, a time, a URL, an email and a date.
package entities

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/avvvet/voicenav/internal/models"
)

var (
	integerPattern = regexp.MustCompile(`\b\d+\b`)
	timePattern    = regexp.MustCompile(`(?i)\b(?:[01]?\d|2[0-3]):[0-5]\d(?:\s?[ap]\.?m\.?)?|\b(?:1[0-2]|0?[1-9])\s?[ap]\.?m\b\.?`)
	urlPattern     = regexp.MustCompile(`(?i)\bhttps?://[^\s<>"']+|\bwww\.[^\s<>"']+`)
	emailPattern   = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	usDatePattern  = regexp.MustCompile(`\b(?:0?[1-9]|1[0-2])/(?:0?[1-9]|[12]\d|3[01])/\d{4}\b`)
	isoDatePattern = regexp.MustCompile(`\b\d{4}-(?:0[1-9]|1[0-2])-(?:0[1-9]|[12]\d|3[01])\b`)
)

type extractor func(text string, out models.Entities)

// extractors run independently; none reads another's output.
var extractors = []extractor{
	extractNumbers,
	extractTime,
	extractURL,
	extractEmail,
	extractDate,
}

// Extract returns the generic entities found in text. Keys with no
// signal are omitted.
func Extract(text string) models.Entities {
	out := models.Entities{}
	for _, fn := range extractors {
		fn(text, out)
	}
	return out
}

func extractNumbers(text string, out models.Entities) {
	// URLs, emails and dates would otherwise leak their digits.
	cleaned := urlPattern.ReplaceAllString(text, " ")
	cleaned = emailPattern.ReplaceAllString(cleaned, " ")
	cleaned = usDatePattern.ReplaceAllString(cleaned, " ")
	cleaned = isoDatePattern.ReplaceAllString(cleaned, " ")
	cleaned = timePattern.ReplaceAllString(cleaned, " ")

	matches := integerPattern.FindAllString(cleaned, -1)
	if len(matches) == 0 {
		return
	}
	numbers := make([]int, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		numbers = append(numbers, n)
	}
	if len(numbers) > 0 {
		out["numbers"] = numbers
	}
}

func extractTime(text string, out models.Entities) {
	if m := timePattern.FindString(text); m != "" {
		out["time"] = strings.ToLower(strings.TrimSpace(m))
	}
}

func extractURL(text string, out models.Entities) {
	m := urlPattern.FindString(text)
	if m == "" {
		return
	}
	m = strings.TrimRight(m, ".,;:!?)")
	if strings.HasPrefix(strings.ToLower(m), "www.") {
		m = "https://" + m
	}
	out["url"] = m
}

func extractEmail(text string, out models.Entities) {
	if m := emailPattern.FindString(text); m != "" {
		out["email"] = m
	}
}

func extractDate(text string, out models.Entities) {
	if m := usDatePattern.FindString(text); m != "" {
		out["date"] = m
		return
	}
	if m := isoDatePattern.FindString(text); m != "" {
		out["date"] = m
	}
}
