// Package htmlpage is an in-memory automation.Page over a parsed HTML
// document. It records what an executor did instead of performing it.
package htmlpage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/net/html"

	"github.com/avvvet/voicenav/internal/automation"
)

// Event is a DOM notification fired by SetValue.
type Event struct {
	Index int
	Type  string
}

// Submission is a form submitted by Submit or by clicking a submit control.
type Submission struct {
	Form   int
	Values map[string]string
}

var pageSeq atomic.Int64

type Page struct {
	mu       sync.Mutex
	id       string
	url      string
	doc      *html.Node
	controls []*html.Node
	forms    []*html.Node

	navigations []string
	events      []Event
	submissions []Submission
	clicks      []int
}

// Parse reads a document served at pageURL.
func Parse(pageURL string, r io.Reader) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	p := &Page{id: fmt.Sprintf("page-%d", pageSeq.Add(1)), url: pageURL, doc: doc}
	p.index()
	return p, nil
}

// MustParse is Parse over a string, panicking on error.
func MustParse(pageURL, document string) *Page {
	p, err := Parse(pageURL, strings.NewReader(document))
	if err != nil {
		panic(err)
	}
	return p
}

// Blank returns an empty document at pageURL.
func Blank(pageURL string) *Page {
	return MustParse(pageURL, "<html><body></body></html>")
}

func (p *Page) index() {
	p.controls = p.controls[:0]
	p.forms = p.forms[:0]
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "form":
				p.forms = append(p.forms, n)
			case "input", "textarea", "button":
				p.controls = append(p.controls, n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(p.doc)
}

// ID identifies the page within a Browser.
func (p *Page) ID() string { return p.id }

// URL is the address of the last navigation, or the load address.
func (p *Page) URL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, nil
}

// Navigate records the navigation. The document itself is unchanged.
func (p *Page) Navigate(ctx context.Context, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = target
	p.navigations = append(p.navigations, target)
	return nil
}

func (p *Page) Elements(ctx context.Context) ([]automation.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]automation.Element, 0, len(p.controls))
	for i, n := range p.controls {
		out = append(out, automation.Element{
			Index:       i,
			Tag:         n.Data,
			Type:        controlType(n),
			Name:        attr(n, "name"),
			ID:          attr(n, "id"),
			Role:        attr(n, "role"),
			AriaLabel:   attr(n, "aria-label"),
			Placeholder: attr(n, "placeholder"),
			Form:        p.formOf(n),
		})
	}
	return out, nil
}

func (p *Page) SetValue(ctx context.Context, index int, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	n, err := p.control(index)
	if err != nil {
		return err
	}
	if n.Data == "textarea" {
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			n.RemoveChild(c)
			c = next
		}
		n.AppendChild(&html.Node{Type: html.TextNode, Data: value})
	} else {
		setAttr(n, "value", value)
	}
	p.events = append(p.events, Event{Index: index, Type: "input"}, Event{Index: index, Type: "change"})
	return nil
}

func (p *Page) Submit(ctx context.Context, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	n, err := p.control(index)
	if err != nil {
		return err
	}
	form := p.formOf(n)
	if form < 0 {
		return fmt.Errorf("element %d has no form", index)
	}
	p.submit(form)
	return nil
}

func (p *Page) Click(ctx context.Context, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	n, err := p.control(index)
	if err != nil {
		return err
	}
	p.clicks = append(p.clicks, index)
	if controlType(n) == "submit" {
		if form := p.formOf(n); form >= 0 {
			p.submit(form)
		}
	}
	return nil
}

// BodyText returns the text of <body>, skipping script and style content.
func (p *Page) BodyText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	body := find(p.doc, "body")
	if body == nil {
		return "", nil
	}
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(body)
	return b.String(), nil
}

// Value returns the current value of the first control whose name or
// id equals key.
func (p *Page) Value(key string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, n := range p.controls {
		if attr(n, "name") == key || attr(n, "id") == key {
			return value(n)
		}
	}
	return ""
}

func (p *Page) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigations...)
}

func (p *Page) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

func (p *Page) Submissions() []Submission {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Submission(nil), p.submissions...)
}

func (p *Page) Clicks() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.clicks...)
}

func (p *Page) control(index int) (*html.Node, error) {
	if index < 0 || index >= len(p.controls) {
		return nil, fmt.Errorf("no element at index %d", index)
	}
	return p.controls[index], nil
}

func (p *Page) formOf(n *html.Node) int {
	for a := n.Parent; a != nil; a = a.Parent {
		if a.Type == html.ElementNode && a.Data == "form" {
			for i, f := range p.forms {
				if f == a {
					return i
				}
			}
		}
	}
	return -1
}

func (p *Page) submit(form int) {
	values := map[string]string{}
	for _, n := range p.controls {
		if p.formOf(n) != form {
			continue
		}
		if name := attr(n, "name"); name != "" && n.Data != "button" {
			values[name] = value(n)
		}
	}
	p.submissions = append(p.submissions, Submission{Form: form, Values: values})
}

// controlType mirrors the DOM type property: lower-case, with the
// element defaults filled in.
func controlType(n *html.Node) string {
	t := strings.ToLower(attr(n, "type"))
	switch n.Data {
	case "textarea":
		return "textarea"
	case "button":
		if t == "" {
			return "submit"
		}
	case "input":
		if t == "" {
			return "text"
		}
	}
	return t
}

func value(n *html.Node) string {
	if n.Data == "textarea" {
		var b strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
			}
		}
		return b.String()
	}
	return attr(n, "value")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func find(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, tag); found != nil {
			return found
		}
	}
	return nil
}
