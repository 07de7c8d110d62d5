package htmlpage

import (
	"context"
	"sync"

	"github.com/avvvet/voicenav/internal/automation"
)

// Browser is a set of in-memory pages with an optional focused one.
type Browser struct {
	mu     sync.Mutex
	pages  []*Page
	active int
}

// NewBrowser holds pages in tab order. No page has focus until Focus.
func NewBrowser(pages ...*Page) *Browser {
	return &Browser{pages: pages, active: -1}
}

// Focus marks the i-th page as active; out of range clears focus.
func (b *Browser) Focus(i int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.pages) {
		b.active = -1
		return
	}
	b.active = i
}

func (b *Browser) ActivePage(ctx context.Context) (automation.Tab, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active < 0 {
		return nil, nil
	}
	return b.pages[b.active], nil
}

func (b *Browser) Pages(ctx context.Context) ([]automation.Tab, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]automation.Tab, len(b.pages))
	for i, p := range b.pages {
		out[i] = p
	}
	return out, nil
}

// Open appends a blank page at url and focuses it.
func (b *Browser) Open(ctx context.Context, url string) (automation.Tab, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := Blank(url)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pages = append(b.pages, p)
	b.active = len(b.pages) - 1
	return p, nil
}

// Tabs returns the concrete pages, including opened ones.
func (b *Browser) Tabs() []*Page {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Page(nil), b.pages...)
}
