// Package messenger delivers an action to a browser tab and waits for
// the single result the tab sends back.
package messenger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avvvet/voicenav/internal/automation"
	"github.com/avvvet/voicenav/internal/logger"
	"github.com/avvvet/voicenav/internal/models"
)

const (
	DefaultPageURL      = "https://www.google.com"
	DefaultLoadSettle   = 1500 * time.Millisecond
	DefaultInjectSettle = 200 * time.Millisecond
	DefaultReplyTimeout = 10 * time.Second
)

// restrictedSchemes cannot host injected automation.
var restrictedSchemes = []string{
	"chrome:", "chrome-extension:", "edge:", "about:", "devtools:", "view-source:",
}

// Sender executes an action somewhere and reports the outcome.
type Sender interface {
	Send(ctx context.Context, req models.ActionRequest) models.ExecutionResult
}

// Channel carries one request to a tab and its one reply back.
type Channel interface {
	Request(ctx context.Context, msg models.Message) (models.Reply, error)
}

// Injector makes the automation executor available inside a tab.
type Injector interface {
	Inject(ctx context.Context, tab automation.Tab) (Channel, error)
}

type Config struct {
	DefaultPageURL string
	LoadSettle     time.Duration
	InjectSettle   time.Duration
	ReplyTimeout   time.Duration
	// ResolveTimeout bounds each tab lookup stage. It defaults to
	// ReplyTimeout.
	ResolveTimeout time.Duration
}

type Messenger struct {
	browser  automation.Browser
	injector Injector
	cfg      Config
	log      logger.Logger
	sleep    func(context.Context, time.Duration) error
}

func New(browser automation.Browser, injector Injector, cfg Config, log logger.Logger) *Messenger {
	if cfg.DefaultPageURL == "" {
		cfg.DefaultPageURL = DefaultPageURL
	}
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = DefaultReplyTimeout
	}
	if cfg.ResolveTimeout <= 0 {
		cfg.ResolveTimeout = cfg.ReplyTimeout
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Messenger{
		browser:  browser,
		injector: injector,
		cfg:      cfg,
		log:      log,
		sleep:    automation.Sleep,
	}
}

// Send resolves a tab, injects the executor and relays req. Every
// failure is returned as an unsuccessful result.
func (m *Messenger) Send(ctx context.Context, req models.ActionRequest) models.ExecutionResult {
	if req.Action == models.ActionNone {
		return models.ExecutionResult{Success: false, Error: "no action for intent"}
	}
	msgType, ok := models.MessageFor(req.Action)
	if !ok {
		return models.ExecutionResult{Success: false, Error: fmt.Sprintf("unsupported action %q", req.Action)}
	}

	tab, err := m.resolveTarget(ctx)
	if err != nil {
		m.log.WithError(err).Warn("Could not resolve target page", nil)
		return models.Failed(fmt.Errorf("resolve target page: %w", err))
	}
	log := m.log.WithFields(map[string]interface{}{"tab": tab.ID(), "action": req.Action})

	ch, err := m.injector.Inject(ctx, tab)
	if err != nil {
		log.WithError(err).Warn("Injection failed", nil)
		return models.Failed(fmt.Errorf("inject executor: %w", err))
	}
	if err := m.sleep(ctx, m.cfg.InjectSettle); err != nil {
		return models.Failed(fmt.Errorf("inject executor: %w", err))
	}

	rctx, cancel := context.WithTimeout(ctx, m.cfg.ReplyTimeout)
	defer cancel()

	reply, err := ch.Request(rctx, models.Message{Type: msgType, Payload: req.Payload})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = models.NewMessagingTimeoutError(m.cfg.ReplyTimeout)
		}
		log.WithError(err).Warn("No reply from page", nil)
		return models.Failed(err)
	}

	res := reply.Result()
	log.Debug("Page replied", map[string]interface{}{"success": res.Success})
	return res
}

// resolveTarget prefers the focused tab, then any tab on a normal
// scheme, and finally opens one at the default page.
// Lookup and opening are each bounded by ResolveTimeout.
func (m *Messenger) resolveTarget(ctx context.Context) (automation.Tab, error) {
	if tab := m.findUsable(ctx); tab != nil {
		return tab, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	octx, cancel := context.WithTimeout(ctx, m.cfg.ResolveTimeout)
	defer cancel()
	tab, err := m.browser.Open(octx, m.cfg.DefaultPageURL)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", m.cfg.DefaultPageURL, err)
	}
	m.log.Info("Opened new page for automation", map[string]interface{}{"url": m.cfg.DefaultPageURL})
	if err := m.sleep(ctx, m.cfg.LoadSettle); err != nil {
		return nil, err
	}
	return tab, nil
}

func (m *Messenger) findUsable(ctx context.Context) automation.Tab {
	lctx, cancel := context.WithTimeout(ctx, m.cfg.ResolveTimeout)
	defer cancel()

	active, err := m.browser.ActivePage(lctx)
	if err != nil {
		m.log.WithError(err).Debug("Active page lookup failed", nil)
	} else if active != nil && m.usable(lctx, active) {
		return active
	}

	tabs, err := m.browser.Pages(lctx)
	if err != nil {
		m.log.WithError(err).Debug("Page listing failed", nil)
	}
	for _, tab := range tabs {
		if m.usable(lctx, tab) {
			return tab
		}
	}
	return nil
}

func (m *Messenger) usable(ctx context.Context, tab automation.Tab) bool {
	u, err := tab.URL(ctx)
	if err != nil {
		return false
	}
	return !Restricted(u)
}

// Restricted reports whether u is on a browser-internal scheme.
func Restricted(u string) bool {
	lower := strings.ToLower(strings.TrimSpace(u))
	if lower == "" {
		return true
	}
	for _, scheme := range restrictedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}
