package scraper

import (
	"context"
	"log/slog"

	"github.com/use-agent/menugrab/models"
)

// OverlayGuard removes the blocking overlay that intercepts clicks.
type OverlayGuard struct {
	Selector string
	Logger   *slog.Logger
}

// Remove deletes every element matching the overlay selector. No overlay is
// a no-op. An overlay that is present but cannot be removed is reported as
// OVERLAY_REMOVAL_MISS, which callers treat as non-fatal; environment
// errors are returned as such.
func (g *OverlayGuard) Remove(ctx context.Context, page Page) error {
	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}

	overlays, err := page.Query(ctx, g.Selector)
	if err != nil {
		se := categorizeError(ctx, err, models.ErrCodeOverlayRemovalMiss, "overlay lookup failed")
		if !models.IsFatal(se) {
			logger.Warn("overlay removal missed", "selector", g.Selector, "error", se)
		}
		return se
	}
	if len(overlays) == 0 {
		logger.Debug("no overlay present", "selector", g.Selector)
		return nil
	}

	var missed error
	for _, el := range overlays {
		if rmErr := el.Remove(ctx); rmErr != nil {
			se := categorizeError(ctx, rmErr, models.ErrCodeOverlayRemovalMiss, "overlay could not be removed")
			if models.IsFatal(se) {
				return se
			}
			missed = se
		}
	}
	if missed != nil {
		logger.Warn("overlay removal missed", "selector", g.Selector, "error", missed)
		return missed
	}

	logger.Info("overlay removed", "count", len(overlays))
	return nil
}
