package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/menugrab/models"
	"golang.org/x/time/rate"
)

// actionTimeout is the per-action deadline for scrolling and clicking.
const actionTimeout = 10 * time.Second

// ItemDriver enumerates the items of a container and clicks them. It never
// looks at the network; pairing a click with its response is the
// Correlator's job.
type ItemDriver struct {
	Selector string

	// Pace, when set, spaces clicks out. nil clicks as fast as the item
	// cycle allows.
	Pace *rate.Limiter

	Logger *slog.Logger
}

// NewItemDriver creates an ItemDriver pacing clicks at clicksPerSecond.
// A non-positive rate disables pacing.
func NewItemDriver(selector string, clicksPerSecond float64, logger *slog.Logger) *ItemDriver {
	d := &ItemDriver{Selector: selector, Logger: logger}
	if clicksPerSecond > 0 {
		d.Pace = rate.NewLimiter(rate.Limit(clicksPerSecond), 1)
	}
	return d
}

// Enumerate returns the container's currently rendered items in document
// order. The handles are only valid until the next interaction.
func (d *ItemDriver) Enumerate(ctx context.Context, container Element) ([]Element, error) {
	items, err := container.Query(ctx, d.Selector)
	if err != nil {
		return nil, categorizeError(ctx, err, models.ErrCodeStaleItem, "item lookup failed")
	}
	return items, nil
}

// WaitTurn blocks until the pacing limiter allows the next click. It is
// kept apart from Interact so pacing never eats into a response timeout.
func (d *ItemDriver) WaitTurn(ctx context.Context) error {
	if d.Pace == nil {
		return nil
	}
	if err := d.Pace.Wait(ctx); err != nil {
		return categorizeError(ctx, err, models.ErrCodeCanceled, "click pacing interrupted")
	}
	return nil
}

// Interact scrolls item into view and left-clicks it.
func (d *ItemDriver) Interact(ctx context.Context, item Element) error {
	actionCtx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()

	if err := item.ScrollIntoView(actionCtx); err != nil {
		return categorizeError(ctx, err, models.ErrCodeInteractionFailed, "item could not be scrolled into view")
	}
	if err := item.Click(actionCtx); err != nil {
		return categorizeError(ctx, err, models.ErrCodeInteractionFailed, "item click failed")
	}
	return nil
}
