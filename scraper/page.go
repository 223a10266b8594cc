package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/menugrab/models"
)

// Page is the browser tab a run works on. Every blocking method takes the
// context it must honor. A Page is owned by exactly one run.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Query(ctx context.Context, selector string) ([]Element, error)
	Press(ctx context.Context, key input.Key) error

	// Feed is the stream of responses captured on this page.
	Feed() ResponseFeed

	Close() error
}

// Element is a handle to a DOM node. Handles go stale when the page
// re-renders; callers re-query instead of holding them across interactions.
type Element interface {
	Query(ctx context.Context, selector string) ([]Element, error)
	ScrollIntoView(ctx context.Context) error
	Click(ctx context.Context) error
	Remove(ctx context.Context) error
	HTML(ctx context.Context) (string, error)
}

// ConnectOptions shape the page a Connector opens.
type ConnectOptions struct {
	// Capture selects which responses are recorded into the page's feed.
	// nil records every response.
	Capture Predicate

	// Stealth injects go-rod/stealth before any navigation.
	Stealth bool

	// BlockedResourceTypes are failed at the Fetch domain. See setupHijack.
	BlockedResourceTypes []string

	// BlockAds fails requests to known ad and analytics hosts.
	BlockAds bool
}

// Connector opens a Page on the browser behind a CDP control URL.
type Connector interface {
	Connect(ctx context.Context, controlURL string, opts ConnectOptions) (Page, error)
}

// RodConnector opens pages with go-rod.
type RodConnector struct {
	Logger *slog.Logger
}

// Connect dials the browser, opens an isolated browser context and a tab in
// it, and starts capturing responses.
//
// Lifecycle:
//
//  1. Dial          – own the websocket so Close can hang up
//  2. Incognito     – Close disposes only what this run created
//  3. Stealth       – before navigation, or it has no effect
//  4. Hijack        – optional, before navigation
//  5. Observer      – before navigation, so no detail request is missed
func (c *RodConnector) Connect(ctx context.Context, controlURL string, opts ConnectOptions) (Page, error) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// ── 1. Dial ───────────────────────────────────────────────────────
	ws := &cdp.WebSocket{}
	if err := ws.Connect(ctx, controlURL, nil); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeEnvironment, "failed to connect to CDP URL", err)
	}
	browser := rod.New().Client(cdp.New().Start(ws))
	if err := browser.Connect(); err != nil {
		_ = ws.Close()
		return nil, models.NewScrapeError(models.ErrCodeEnvironment, "failed to attach to browser", err)
	}

	// ── 2. Isolated context + tab ─────────────────────────────────────
	incognito, err := browser.Incognito()
	if err != nil {
		_ = ws.Close()
		return nil, models.NewScrapeError(models.ErrCodeEnvironment, "failed to create browser context", err)
	}
	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = incognito.Close()
		_ = ws.Close()
		return nil, models.NewScrapeError(models.ErrCodeEnvironment, "failed to create page", err)
	}

	rp := &rodPage{
		page:      page,
		incognito: incognito,
		ws:        ws,
		hub:       NewResponseHub(),
		logger:    logger,
	}

	// ── 3. Stealth injection ──────────────────────────────────────────
	if opts.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			logger.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}

	// ── 4. Resource blocking ──────────────────────────────────────────
	rp.router = setupHijack(page, opts.BlockedResourceTypes, opts.BlockAds, opts.Capture)

	// ── 5. Response observer ──────────────────────────────────────────
	capture := opts.Capture
	if capture == nil {
		capture = func(string) bool { return true }
	}
	obsCtx, stop := context.WithCancel(context.Background())
	rp.stopObserver = stop
	wait := observeResponses(page.Context(obsCtx), rp.hub, capture, logger)
	go wait()

	return rp, nil
}

// rodPage is the go-rod implementation of Page.
type rodPage struct {
	page         *rod.Page
	incognito    *rod.Browser
	ws           *cdp.WebSocket
	router       *rod.HijackRouter
	hub          *ResponseHub
	stopObserver context.CancelFunc
	logger       *slog.Logger
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	pg := p.page.Context(ctx)
	if err := pg.Navigate(url); err != nil {
		return err
	}
	if err := pg.WaitLoad(); err != nil {
		return err
	}
	if err := pg.WaitDOMStable(300*time.Millisecond, 0.1); err != nil && ctx.Err() == nil {
		p.logger.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", err)
	}
	return ctx.Err()
}

func (p *rodPage) Query(ctx context.Context, selector string) ([]Element, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, err
	}
	return wrapElements(els), nil
}

// Press dispatches a key down/up pair. Keyboard.Press is bound to the
// page's own context, so the events are sent directly.
func (p *rodPage) Press(ctx context.Context, key input.Key) error {
	pg := p.page.Context(ctx)
	if err := key.Encode(proto.InputDispatchKeyEventTypeKeyDown, 0).Call(pg); err != nil {
		return err
	}
	return key.Encode(proto.InputDispatchKeyEventTypeKeyUp, 0).Call(pg)
}

func (p *rodPage) Feed() ResponseFeed { return p.hub }

// Close tears down everything Connect created, in reverse order. It uses the
// original page reference so cleanup succeeds after the run context expired.
func (p *rodPage) Close() error {
	p.stopObserver()
	if p.router != nil {
		_ = p.router.Stop()
	}
	err := p.page.Close()
	if disposeErr := p.incognito.Close(); disposeErr != nil {
		p.logger.Debug("cleanup: failed to dispose browser context", "error", disposeErr)
	}
	_ = p.ws.Close()
	if dropped := p.hub.Dropped(); dropped > 0 {
		p.logger.Warn("responses dropped by slow subscribers", "count", dropped)
	}
	return err
}

// rodElement is the go-rod implementation of Element.
type rodElement struct {
	el *rod.Element
}

func wrapElements(els rod.Elements) []Element {
	out := make([]Element, len(els))
	for i, el := range els {
		out[i] = &rodElement{el: el}
	}
	return out
}

func (e *rodElement) Query(ctx context.Context, selector string) ([]Element, error) {
	els, err := e.el.Context(ctx).Elements(selector)
	if err != nil {
		return nil, err
	}
	return wrapElements(els), nil
}

func (e *rodElement) ScrollIntoView(ctx context.Context) error {
	return e.el.Context(ctx).ScrollIntoView()
}

func (e *rodElement) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) Remove(ctx context.Context) error {
	return e.el.Context(ctx).Remove()
}

func (e *rodElement) HTML(ctx context.Context) (string, error) {
	return e.el.Context(ctx).HTML()
}
