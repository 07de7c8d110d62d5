// Package browser drives Chrome tabs over the DevTools protocol.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/avvvet/voicenav/internal/automation"
	"github.com/avvvet/voicenav/internal/logger"
)

type Options struct {
	// DevToolsURL attaches to a running browser, e.g.
	// ws://127.0.0.1:9222/devtools/browser/<id>. Empty launches Chrome.
	DevToolsURL string
	Headless    bool
}

// Chrome implements automation.Browser. Tab contexts are kept for the
// life of the Chrome value; cancelling one would close its tab.
type Chrome struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    logger.Logger

	mu   sync.Mutex
	tabs map[target.ID]*Tab
}

func New(opts Options, log logger.Logger) (*Chrome, error) {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if opts.DevToolsURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), opts.DevToolsURL)
	} else {
		flags := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", opts.Headless))
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), flags...)
	}

	ctx, cancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}

	c := &Chrome{
		ctx: ctx,
		cancel: func() {
			cancel()
			allocCancel()
		},
		log:  log,
		tabs: make(map[target.ID]*Tab),
	}
	log.Info("🌐 Browser session ready", map[string]interface{}{"remote": opts.DevToolsURL != ""})
	return c, nil
}

// Close ends the session. A launched browser exits; a remote one is
// left running.
func (c *Chrome) Close() {
	c.cancel()
}

func (c *Chrome) Pages(ctx context.Context) ([]automation.Tab, error) {
	infos, err := chromedp.Targets(c.ctx)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	out := make([]automation.Tab, 0, len(infos))
	for _, info := range infos {
		if info.Type != "page" {
			continue
		}
		tab, err := c.attach(info.TargetID)
		if err != nil {
			c.log.WithError(err).Warn("Skipping tab", map[string]interface{}{"target": string(info.TargetID)})
			continue
		}
		out = append(out, tab)
	}
	return out, nil
}

// ActivePage returns the first tab whose document is visible and
// focused.
func (c *Chrome) ActivePage(ctx context.Context) (automation.Tab, error) {
	tabs, err := c.Pages(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tabs {
		var focused bool
		if err := t.(*Tab).eval(ctx, `document.visibilityState === "visible" && document.hasFocus()`, &focused); err != nil {
			continue
		}
		if focused {
			return t, nil
		}
	}
	return nil, nil
}

func (c *Chrome) Open(ctx context.Context, url string) (automation.Tab, error) {
	tabCtx, _ := chromedp.NewContext(c.ctx)
	if err := chromedp.Run(tabCtx, chromedp.Navigate(url)); err != nil {
		return nil, fmt.Errorf("open %s: %w", url, err)
	}
	t := chromedp.FromContext(tabCtx).Target
	if t == nil {
		return nil, errors.New("new tab has no target")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	tab := &Tab{id: t.TargetID, ctx: tabCtx}
	c.tabs[t.TargetID] = tab
	return tab, nil
}

// attach binds a session to an existing target. The first Run starts the
// tab's event loop, so it must run on the long-lived tab context.
func (c *Chrome) attach(id target.ID) (*Tab, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tab, ok := c.tabs[id]; ok {
		return tab, nil
	}
	tabCtx, cancel := chromedp.NewContext(c.ctx, chromedp.WithTargetID(id))
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("attach %s: %w", id, err)
	}
	tab := &Tab{id: id, ctx: tabCtx}
	c.tabs[id] = tab
	return tab, nil
}

// Tab is one page target. Operations run in the tab's own session and
// are bounded by the caller's context.
type Tab struct {
	id  target.ID
	ctx context.Context
}

func (t *Tab) ID() string { return string(t.id) }

func (t *Tab) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(t.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (t *Tab) eval(ctx context.Context, expr string, out any) error {
	return t.run(ctx, chromedp.Evaluate(expr, out))
}

func (t *Tab) URL(ctx context.Context) (string, error) {
	var u string
	if err := t.run(ctx, chromedp.Location(&u)); err != nil {
		return "", err
	}
	return u, nil
}

func (t *Tab) Navigate(ctx context.Context, url string) error {
	return t.run(ctx, chromedp.Navigate(url))
}

func (t *Tab) Elements(ctx context.Context) ([]automation.Element, error) {
	var out []automation.Element
	if err := t.eval(ctx, elementsJS, &out); err != nil {
		return nil, fmt.Errorf("snapshot elements: %w", err)
	}
	return out, nil
}

func (t *Tab) SetValue(ctx context.Context, index int, value string) error {
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return t.call(ctx, fmt.Sprintf(setValueJS, index, v))
}

func (t *Tab) Submit(ctx context.Context, index int) error {
	return t.call(ctx, fmt.Sprintf(submitJS, index))
}

func (t *Tab) Click(ctx context.Context, index int) error {
	return t.call(ctx, fmt.Sprintf(clickJS, index))
}

func (t *Tab) BodyText(ctx context.Context) (string, error) {
	var text string
	if err := t.eval(ctx, `document.body ? document.body.innerText : ""`, &text); err != nil {
		return "", err
	}
	return text, nil
}

// call runs a script that returns an empty string on success or an
// error description.
func (t *Tab) call(ctx context.Context, script string) error {
	var msg string
	if err := t.eval(ctx, script, &msg); err != nil {
		return err
	}
	if msg != "" {
		return errors.New(msg)
	}
	return nil
}
