package scraper

import (
	"context"
	"time"

	"github.com/go-rod/rod/lib/input"
	"github.com/use-agent/menugrab/models"
)

// ModalResetter dismisses the detail modal opened by an item click.
type ModalResetter struct {
	// Settle is how long to wait after Escape for the modal to animate away.
	Settle time.Duration
}

// Close presses Escape and waits Settle. A modal that stays open is not
// detected here; it shows up as the next item's failure. Only environment,
// timeout and cancellation errors should stop the caller.
func (r *ModalResetter) Close(ctx context.Context, page Page) error {
	if err := page.Press(ctx, input.Escape); err != nil {
		return categorizeError(ctx, err, models.ErrCodeResetFailure, "escape key could not be sent")
	}

	if r.Settle <= 0 {
		return nil
	}
	timer := time.NewTimer(r.Settle)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return categorizeError(ctx, ctx.Err(), models.ErrCodeResetFailure, "")
	}
}
