package scraper

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod/lib/input"
	"github.com/use-agent/menugrab/cleaner"
	"github.com/use-agent/menugrab/config"
	"github.com/use-agent/menugrab/engine"
)

const (
	testOverlaySel   = "div.overlay"
	testContainerSel = "div.grid"
	testItemSel      = "div.item"
	testMatch        = "graphql/itemPage"
)

// fakePage is an in-memory Page. Selectors are matched literally.
type fakePage struct {
	mu         sync.Mutex
	hub        *ResponseHub
	roots      map[string][]*fakeElement
	queryErr   map[string]error
	navigated  []string
	navErr     error
	presses    int
	pressErr   error
	closeCalls int
}

func newFakePage() *fakePage {
	return &fakePage{
		hub:      NewResponseHub(),
		roots:    make(map[string][]*fakeElement),
		queryErr: make(map[string]error),
	}
}

func (p *fakePage) Navigate(_ context.Context, url string) error {
	p.navigated = append(p.navigated, url)
	return p.navErr
}

func (p *fakePage) Query(_ context.Context, selector string) ([]Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.queryErr[selector]; err != nil {
		return nil, err
	}
	return asElements(p.roots[selector]), nil
}

func (p *fakePage) Press(_ context.Context, key input.Key) error {
	if key == input.Escape {
		p.presses++
	}
	return p.pressErr
}

func (p *fakePage) Feed() ResponseFeed { return p.hub }

func (p *fakePage) Close() error {
	p.closeCalls++
	return nil
}

// fakeElement is an in-memory Element.
type fakeElement struct {
	mu        sync.Mutex
	name      string
	children  map[string][]*fakeElement
	html      string
	onClick   func(ctx context.Context) error
	clicks    int
	removed   bool
	removeErr error
	queryErr  error
}

func (e *fakeElement) Query(_ context.Context, selector string) ([]Element, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.queryErr != nil {
		return nil, e.queryErr
	}
	return asElements(e.children[selector]), nil
}

func (e *fakeElement) ScrollIntoView(context.Context) error { return nil }

func (e *fakeElement) Click(ctx context.Context) error {
	e.mu.Lock()
	e.clicks++
	fn := e.onClick
	e.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return nil
}

func (e *fakeElement) Remove(context.Context) error {
	if e.removeErr != nil {
		return e.removeErr
	}
	e.removed = true
	return nil
}

func (e *fakeElement) HTML(context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.html, nil
}

func asElements(in []*fakeElement) []Element {
	out := make([]Element, len(in))
	for i, el := range in {
		out[i] = el
	}
	return out
}

// respondingItem returns an item whose click makes the page fetch a detail
// response carrying payload, delivered asynchronously after delay.
func respondingItem(hub *ResponseHub, name string, payload []byte, delay time.Duration) *fakeElement {
	return &fakeElement{
		name: name,
		onClick: func(context.Context) error {
			seq := hub.Stamp()
			go func() {
				time.Sleep(delay)
				hub.Publish(&InterceptedResponse{
					Seq:        seq,
					URL:        "https://example.com/graphql/itemPage?id=" + name,
					Status:     200,
					MIMEType:   "application/json",
					Body:       payload,
					CapturedAt: time.Now(),
				})
			}()
			return nil
		},
	}
}

// silentItem returns an item whose click never produces a response.
func silentItem(name string) *fakeElement {
	return &fakeElement{name: name}
}

func newContainer(items ...*fakeElement) *fakeElement {
	return &fakeElement{
		html:     "<div><div></div><div></div></div>",
		children: map[string][]*fakeElement{testItemSel: items},
	}
}

func itemPayload(name, description, image string) []byte {
	header := map[string]any{}
	if name != "" {
		header["name"] = name
	}
	if description != "" {
		header["description"] = description
	}
	if image != "" {
		header["imageUrl"] = image
	}
	b, _ := json.Marshal(map[string]any{
		"data": map[string]any{
			"itemPage": map[string]any{"itemHeader": header},
		},
	})
	return b
}

func testScraperConfig() config.ScraperConfig {
	return config.ScraperConfig{
		RunTimeout:         5 * time.Second,
		MaxRunTimeout:      10 * time.Second,
		NavigationTimeout:  time.Second,
		OverlaySelector:    testOverlaySel,
		ContainerSelector:  testContainerSel,
		ItemSelector:       testItemSel,
		ResponseMatch:      testMatch,
		RecordPath:         DefaultRecordPath,
		ResponseTimeout:    150 * time.Millisecond,
		SettleInterval:     time.Millisecond,
		SettleMin:          0,
		SettleMax:          5 * time.Millisecond,
		ResetSettle:        0,
		ItemRetries:        1,
		DescriptionFormat:  "raw",
		DuplicateThreshold: -1,
	}
}

func testOrchestrator() *Orchestrator {
	s := &Scraper{scraperCfg: testScraperConfig()}
	n, _ := cleaner.NewNormalizer(cleaner.FormatRaw)
	return s.newOrchestrator(testMatch, n, discardLogger())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeProvider counts Start and Stop calls.
type fakeProvider struct {
	mu     sync.Mutex
	starts int
	stops  int
	err    error
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Start(context.Context) (engine.Instance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.starts++
	return &fakeInstance{p: p}, nil
}

type fakeInstance struct{ p *fakeProvider }

func (i *fakeInstance) ControlURL() string { return "ws://fake/devtools/browser/1" }

func (i *fakeInstance) Stop() error {
	i.p.mu.Lock()
	defer i.p.mu.Unlock()
	i.p.stops++
	return nil
}

// fakeConnector hands out a prepared page.
type fakeConnector struct {
	page *fakePage
	opts ConnectOptions
	err  error
}

func (c *fakeConnector) Connect(_ context.Context, _ string, opts ConnectOptions) (Page, error) {
	c.opts = opts
	if c.err != nil {
		return nil, c.err
	}
	return c.page, nil
}
