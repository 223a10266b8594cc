package scraper

import (
	"context"
	"time"

	"github.com/use-agent/menugrab/simhash"
)

// settlePolicy bounds the wait for a lazily rendered region to stop changing.
type settlePolicy struct {
	Interval time.Duration
	Min      time.Duration
	Max      time.Duration
}

// snapshot is what is compared between polls.
type snapshot struct {
	items       int
	fingerprint uint64
}

// waitStable polls probe every Interval until two consecutive snapshots agree
// and at least Min has passed, or until Max is reached. Reaching Max is not
// an error: rendering is assumed done enough and the caller proceeds.
// Probes run under a deadline of Max, so a slow probe cannot stretch the
// wait; one cut short by it counts as not settled.
// It returns whether the region settled before Max.
func waitStable(ctx context.Context, p settlePolicy, probe func(context.Context) (snapshot, error)) (bool, error) {
	start := time.Now()
	deadline := start.Add(p.Max)
	pctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	// expired reports whether err came from the settle deadline rather than
	// the caller's context.
	expired := func(err error) bool {
		return err != nil && ctx.Err() == nil && pctx.Err() != nil
	}

	prev, err := probe(pctx)
	if err != nil {
		if expired(err) {
			return false, nil
		}
		return false, err
	}

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-pctx.Done():
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			return false, nil
		case now := <-ticker.C:
			if !now.Before(deadline) {
				return false, nil
			}
			cur, err := probe(pctx)
			if err != nil {
				if expired(err) {
					return false, nil
				}
				return false, err
			}
			if cur == prev && now.Sub(start) >= p.Min {
				return true, nil
			}
			prev = cur
		}
	}
}

// containerSnapshot probes a container's item count and DOM shape.
func containerSnapshot(container Element, itemSelector string) func(context.Context) (snapshot, error) {
	return func(ctx context.Context) (snapshot, error) {
		items, err := container.Query(ctx, itemSelector)
		if err != nil {
			return snapshot{}, err
		}
		html, err := container.HTML(ctx)
		if err != nil {
			return snapshot{}, err
		}
		return snapshot{items: len(items), fingerprint: simhash.FingerprintDOM(html)}, nil
	}
}
