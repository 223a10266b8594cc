package scraper

import (
	"context"
	"log/slog"

	"github.com/use-agent/menugrab/models"
)

// State is the orchestrator's position in a run.
type State int

const (
	StateInit State = iota
	StateScanning
	StateInteracting
	StateCorrelating
	StateExtracting
	StateResetting
	StateDone
	StateAborted
)

var stateNames = [...]string{"init", "scanning", "interacting", "correlating", "extracting", "resetting", "done", "aborted"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// RunResult is what a run produced, complete or not.
type RunResult struct {
	// Records are in interaction order. Never deduplicated.
	Records []models.MenuItemRecord

	// Failures has one entry per enumerated item without a record.
	Failures []models.ItemFailure

	Containers int

	// TotalItems counts every enumerated item; it always equals
	// len(Records) + len(Failures).
	TotalItems int

	State State

	// Duplicates groups indices into Records with near-identical content.
	Duplicates [][]int
}

// Skipped returns the number of items without a record.
func (r *RunResult) Skipped() int {
	return len(r.Failures)
}

// Orchestrator sequences a whole extraction over one page: overlay removal,
// container scan, then one strictly sequential click/correlate/extract/reset
// cycle per item.
type Orchestrator struct {
	Overlay    *OverlayGuard
	Scanner    *ContainerScanner
	Driver     *ItemDriver
	Correlator *Correlator
	Extractor  *RecordExtractor
	Resetter   *ModalResetter

	// ItemRetries is how many extra attempts a failed item gets.
	ItemRetries int

	// DuplicateThreshold is the max SimHash distance for the duplicate
	// report. Negative disables it.
	DuplicateThreshold int

	// OnTransition, when set, observes every state change.
	OnTransition func(from, to State)

	Logger *slog.Logger
}

// itemOutcome is the result of one item cycle.
type itemOutcome struct {
	record  *models.MenuItemRecord
	failure *models.ItemFailure
}

// Run executes the traversal. It returns a non-nil RunResult on every path;
// the error is non-nil only when the run aborted, and then the result holds
// everything gathered before the abort.
func (o *Orchestrator) Run(ctx context.Context, page Page) (*RunResult, error) {
	res := &RunResult{State: StateInit}
	logger := o.logger()

	// ── 1. Overlay ────────────────────────────────────────────────────
	o.transition(res, StateScanning)
	if err := o.Overlay.Remove(ctx, page); err != nil && models.IsFatal(err) {
		return o.abort(res, err)
	}

	// ── 2. Discover ───────────────────────────────────────────────────
	containers, err := o.Scanner.Discover(ctx, page)
	if err != nil {
		return o.abort(res, err)
	}
	res.Containers = len(containers)

	// ── 3. Per container ──────────────────────────────────────────────
	for ci, container := range containers {
		o.transition(res, StateScanning)
		logger.Info("entering container", "container", ci)

		if err := o.Scanner.Materialize(ctx, container); err != nil {
			if models.IsFatal(err) {
				return o.abort(res, err)
			}
			logger.Warn("container did not materialize, enumerating what rendered",
				"container", ci, "error", err)
		}

		items, err := o.Driver.Enumerate(ctx, container)
		if err != nil {
			if models.IsFatal(err) {
				return o.abort(res, err)
			}
			logger.Warn("container items could not be enumerated", "container", ci, "error", err)
			continue
		}
		total := len(items)
		res.TotalItems += total
		logger.Info("items enumerated", "container", ci, "count", total)
		keys := itemKeys(ctx, items)

		// ── 4. Per item ───────────────────────────────────────────────
		for ii := 0; ii < total; ii++ {
			out, err := o.runItem(ctx, res, page, container, items, keys[ii], ci, ii)
			items = nil
			if err != nil {
				from := ii
				if out.record != nil {
					res.Records = append(res.Records, *out.record)
					from = ii + 1
				}
				o.failRemaining(res, ci, from, total, err)
				return o.abort(res, err)
			}
			if out.record != nil {
				res.Records = append(res.Records, *out.record)
			} else {
				res.Failures = append(res.Failures, *out.failure)
			}
		}
	}

	o.transition(res, StateDone)
	res.Duplicates = findDuplicates(res.Records, o.DuplicateThreshold)
	logger.Info("extraction finished",
		"containers", res.Containers,
		"total", res.TotalItems,
		"extracted", len(res.Records),
		"skipped", res.Skipped(),
	)
	return res, nil
}

// runItem runs up to 1+ItemRetries attempts for one item. items is the
// enumeration taken just before the first attempt, or nil when the item
// must be re-enumerated because an interaction has happened since; the
// re-enumerated item is then located by key. A fatal error after the
// record was extracted is returned together with the record.
func (o *Orchestrator) runItem(ctx context.Context, res *RunResult, page Page, container Element, items []Element, key uint64, ci, ii int) (itemOutcome, error) {
	logger := o.logger().With("container", ci, "item", ii)
	attempts := 1 + max(o.ItemRetries, 0)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			logger.Info("retrying item", "attempt", attempt, "error", lastErr)
			if err := o.Overlay.Remove(ctx, page); err != nil && models.IsFatal(err) {
				return itemOutcome{}, err
			}
		}

		var item Element
		if items != nil {
			item = items[ii]
		} else {
			fresh, err := o.Driver.Enumerate(ctx, container)
			if err != nil {
				if models.IsFatal(err) {
					return itemOutcome{}, err
				}
				lastErr = err
				continue
			}
			at := locateItem(ctx, fresh, ii, key)
			if at < 0 {
				lastErr = models.NewScrapeError(models.ErrCodeStaleItem, "item no longer rendered", nil)
				continue
			}
			if at != ii {
				logger.Debug("item moved", "now", at)
			}
			item = fresh[at]
		}
		items = nil

		rec, err := o.attempt(ctx, res, page, item, logger)
		if resetErr := o.reset(ctx, res, page, logger); resetErr != nil {
			if err == nil {
				logger.Info("scraped item", "name", models.StrOrEmpty(rec.Name))
				return itemOutcome{record: &rec}, resetErr
			}
			return itemOutcome{}, resetErr
		}
		if err == nil {
			logger.Info("scraped item", "name", models.StrOrEmpty(rec.Name))
			return itemOutcome{record: &rec}, nil
		}
		if models.IsFatal(err) {
			return itemOutcome{}, err
		}
		lastErr = err
	}

	se := models.AsScrapeError(lastErr)
	logger.Warn("skipping item", "attempts", attempts, "code", se.Code, "error", lastErr)
	return itemOutcome{failure: &models.ItemFailure{
		Container: ci,
		Item:      ii,
		Attempts:  attempts,
		Code:      se.Code,
		Message:   se.Error(),
	}}, nil
}

// attempt is one click → correlate → extract pass.
func (o *Orchestrator) attempt(ctx context.Context, res *RunResult, page Page, item Element, logger *slog.Logger) (models.MenuItemRecord, error) {
	if err := o.Driver.WaitTurn(ctx); err != nil {
		return models.MenuItemRecord{}, err
	}

	logger.Info("clicking menu item")
	resp, err := o.Correlator.Await(ctx, page.Feed(), func(tctx context.Context) error {
		o.transition(res, StateInteracting)
		if err := o.Driver.Interact(tctx, item); err != nil {
			return err
		}
		o.transition(res, StateCorrelating)
		return nil
	})
	if err != nil {
		return models.MenuItemRecord{}, err
	}

	o.transition(res, StateExtracting)
	return o.Extractor.Extract(resp)
}

// reset closes the modal. Only fatal errors are returned; anything else
// is logged and surfaces as the next item's failure if the modal stayed.
func (o *Orchestrator) reset(ctx context.Context, res *RunResult, page Page, logger *slog.Logger) error {
	o.transition(res, StateResetting)
	err := o.Resetter.Close(ctx, page)
	if err == nil {
		return nil
	}
	if models.IsFatal(err) {
		return err
	}
	logger.Warn("modal reset failed", "error", err)
	return nil
}

// failRemaining records items [from, total) of container ci as failed with
// the abort cause, so the result still accounts for every enumerated item.
func (o *Orchestrator) failRemaining(res *RunResult, ci, from, total int, cause error) {
	se := models.AsScrapeError(cause)
	for ii := from; ii < total; ii++ {
		msg := "not attempted: run aborted"
		if ii == from {
			msg = se.Error()
		}
		res.Failures = append(res.Failures, models.ItemFailure{
			Container: ci,
			Item:      ii,
			Code:      se.Code,
			Message:   msg,
		})
	}
}

func (o *Orchestrator) abort(res *RunResult, err error) (*RunResult, error) {
	o.transition(res, StateAborted)
	res.Duplicates = findDuplicates(res.Records, o.DuplicateThreshold)
	o.logger().Error("extraction aborted",
		"error", err,
		"extracted", len(res.Records),
		"skipped", res.Skipped(),
		"total", res.TotalItems,
	)
	return res, err
}

func (o *Orchestrator) transition(res *RunResult, to State) {
	from := res.State
	res.State = to
	if from == to {
		return
	}
	o.logger().Debug("state", "from", from.String(), "to", to.String())
	if o.OnTransition != nil {
		o.OnTransition(from, to)
	}
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
