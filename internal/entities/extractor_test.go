package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/avvvet/voicenav/internal/models"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want models.Entities
	}{
		{
			name: "integers",
			text: "what is 5 plus 3",
			want: models.Entities{"numbers": []int{5, 3}},
		},
		{
			name: "nothing",
			text: "tell me a joke",
			want: models.Entities{},
		},
		{
			name: "time expression",
			text: "remind me at 5:30 PM about 2 things",
			want: models.Entities{"time": "5:30 pm", "numbers": []int{2}},
		},
		{
			name: "compact time",
			text: "book a table for 7pm",
			want: models.Entities{"time": "7pm"},
		},
		{
			name: "url with trailing punctuation",
			text: "go to https://example.com/docs.",
			want: models.Entities{"url": "https://example.com/docs"},
		},
		{
			name: "bare www url gets a scheme",
			text: "open www.github.com",
			want: models.Entities{"url": "https://www.github.com"},
		},
		{
			name: "email",
			text: "my email is rahul@gmail.com",
			want: models.Entities{"email": "rahul@gmail.com"},
		},
		{
			name: "us date wins over iso",
			text: "from 2024-01-02 or 12/25/2024",
			want: models.Entities{"date": "12/25/2024"},
		},
		{
			name: "iso date",
			text: "book a flight on 2024-03-15",
			want: models.Entities{"date": "2024-03-15"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text))
		})
	}
}

func TestExtractIsPure(t *testing.T) {
	text := "mail bob@example.com at 10:15 about order 42 on 01/02/2025 via https://shop.example.com"
	first := Extract(text)
	second := Extract(text)

	assert.Equal(t, first, second)
	assert.Equal(t, "bob@example.com", first["email"])
	assert.Equal(t, "10:15", first["time"])
	assert.Equal(t, "01/02/2025", first["date"])
	assert.Equal(t, "https://shop.example.com", first["url"])
	assert.Equal(t, []int{42}, first["numbers"])
}
