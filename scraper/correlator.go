package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/menugrab/models"
)

// Correlator pairs one interaction with the one response it caused.
type Correlator struct {
	Match   Predicate
	Timeout time.Duration
	Logger  *slog.Logger
}

// Await subscribes to feed, takes the feed's mark, runs trigger, and waits
// for the first matching response requested after the mark.
//
// Responses whose request was observed at or before the mark are discarded,
// which is what keeps a late response from a previous item from being
// attributed to this one. No response within Timeout is an
// INTERACTION_TIMEOUT; a trigger error is INTERACTION_FAILED; a matching
// request that failed to load is DETAIL_FETCH_FAILED.
func (c *Correlator) Await(ctx context.Context, feed ResponseFeed, trigger func(context.Context) error) (*InterceptedResponse, error) {
	sub := feed.Subscribe(c.Match)
	defer sub.Close()
	mark := feed.Mark()

	waitCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	if err := trigger(waitCtx); err != nil {
		return nil, categorizeError(ctx, err, models.ErrCodeInteractionFailed, "click did not go through")
	}

	for {
		select {
		case resp := <-sub.C():
			if resp.Seq <= mark {
				c.logger().Debug("discarding stale response", "seq", resp.Seq, "mark", mark, "url", resp.URL)
				continue
			}
			if resp.Err != nil {
				return nil, models.NewScrapeError(models.ErrCodeDetailFetchFailed,
					fmt.Sprintf("detail request %s failed", resp.URL), resp.Err)
			}
			return resp, nil
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, categorizeError(ctx, ctx.Err(), models.ErrCodeInteractionTimeout, "")
			}
			return nil, models.NewScrapeError(models.ErrCodeInteractionTimeout,
				fmt.Sprintf("no matching response within %s", c.Timeout), waitCtx.Err())
		}
	}
}

func (c *Correlator) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
