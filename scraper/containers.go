package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/menugrab/models"
)

// ContainerScanner finds the virtualized containers and makes each one
// render its items.
type ContainerScanner struct {
	Selector     string
	ItemSelector string
	Settle       settlePolicy
	Logger       *slog.Logger
}

// Discover returns the containers in document order. None is a valid
// answer.
func (s *ContainerScanner) Discover(ctx context.Context, page Page) ([]Element, error) {
	containers, err := page.Query(ctx, s.Selector)
	if err != nil {
		return nil, categorizeError(ctx, err, models.ErrCodeEnvironment, "container lookup failed")
	}
	s.logger().Info("containers discovered", "count", len(containers))
	return containers, nil
}

// Materialize scrolls container into view and waits, bounded by the settle
// policy, until its rendered items stop changing.
func (s *ContainerScanner) Materialize(ctx context.Context, container Element) error {
	if err := container.ScrollIntoView(ctx); err != nil {
		return categorizeError(ctx, err, models.ErrCodeInteractionFailed, "container could not be scrolled into view")
	}

	start := time.Now()
	settled, err := waitStable(ctx, s.policy(), containerSnapshot(container, s.ItemSelector))
	if err != nil {
		return categorizeError(ctx, err, models.ErrCodeInteractionFailed, "container did not render")
	}
	s.logger().Debug("container materialized",
		"settled", settled,
		"waited", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

func (s *ContainerScanner) policy() settlePolicy {
	p := s.Settle
	if p.Interval <= 0 {
		p.Interval = 150 * time.Millisecond
	}
	if p.Max <= 0 {
		p.Max = time.Second
	}
	return p
}

func (s *ContainerScanner) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
