// Package automation performs actions against a single page: navigation,
// searching inside a site, filling forms and reading visible text.
package automation

import (
	"context"
	"time"
)

// Element is a snapshot of one input, textarea or button, in document
// order. Form is the index of the owning form, or -1.
type Element struct {
	Index       int    `json:"index"`
	Tag         string `json:"tag"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	ID          string `json:"id"`
	Role        string `json:"role"`
	AriaLabel   string `json:"ariaLabel"`
	Placeholder string `json:"placeholder"`
	Form        int    `json:"form"`
}

// Page is the document an Executor works on. Element indexes refer to
// the most recent Elements snapshot.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Elements(ctx context.Context) ([]Element, error)
	// SetValue assigns the value and fires input and change events.
	SetValue(ctx context.Context, index int, value string) error
	// Submit submits the form owning the element.
	Submit(ctx context.Context, index int) error
	Click(ctx context.Context, index int) error
	BodyText(ctx context.Context) (string, error)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Tab is a page that lives in a browser window.
type Tab interface {
	Page
	ID() string
	URL(ctx context.Context) (string, error)
}

// Browser exposes the open tabs. ActivePage returns nil without error
// when no tab has focus.
type Browser interface {
	ActivePage(ctx context.Context) (Tab, error)
	Pages(ctx context.Context) ([]Tab, error)
	Open(ctx context.Context, url string) (Tab, error)
}
