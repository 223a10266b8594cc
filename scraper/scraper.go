package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/use-agent/menugrab/cleaner"
	"github.com/use-agent/menugrab/config"
	"github.com/use-agent/menugrab/engine"
	"github.com/use-agent/menugrab/models"
)

// Scraper runs extractions. Each run gets its own browser instance, page
// and response feed; the Scraper only bounds how many run at once.
// It is safe for concurrent use.
type Scraper struct {
	provider   engine.Provider
	connector  Connector
	browserCfg config.BrowserConfig
	scraperCfg config.ScraperConfig
	slots      chan struct{}
	activeRuns atomic.Int32
	logger     *slog.Logger
}

// NewScraper creates a Scraper. The execution environment is a remote
// browser when browserCfg.CDPURL is set, a locally launched one otherwise.
func NewScraper(browserCfg config.BrowserConfig, scraperCfg config.ScraperConfig, maxRuns int) *Scraper {
	if maxRuns <= 0 {
		maxRuns = 1
	}
	logger := slog.Default()

	var provider engine.Provider
	if browserCfg.CDPURL != "" {
		provider = &engine.RemoteProvider{URL: browserCfg.CDPURL, Logger: logger}
	} else {
		provider = &engine.LocalProvider{
			Headless:  browserCfg.Headless,
			NoSandbox: browserCfg.NoSandbox,
			Bin:       browserCfg.BrowserBin,
			Proxy:     browserCfg.DefaultProxy,
			Logger:    logger,
		}
	}
	logger.Info("execution environment selected", "provider", provider.Name(), "maxRuns", maxRuns)

	return &Scraper{
		provider:   provider,
		connector:  &RodConnector{Logger: logger},
		browserCfg: browserCfg,
		scraperCfg: scraperCfg,
		slots:      make(chan struct{}, maxRuns),
		logger:     logger,
	}
}

// Stats returns a snapshot of run utilisation.
func (s *Scraper) Stats() models.RunStats {
	return models.RunStats{
		MaxRuns:    cap(s.slots),
		ActiveRuns: int(s.activeRuns.Load()),
	}
}

// Extract runs one extraction for req and returns what it gathered. The
// response is never nil. The error is non-nil when the run did not reach
// the done state; the response then still carries the partial records.
//
// Lifecycle (numbered steps match the inline comments):
//
//  1. Validate            – reject bad input before any browser work
//  2. Timeout guard       – hard deadline on the entire run
//  3. Run slot            – bound concurrent browsers
//  4. Acquire instance    – DEFER release, exactly once on every path
//  5. Connect page        – observer registered before navigation
//  6. Navigate            – own, shorter deadline
//  7. Orchestrate         – overlay, scan, item cycles
func (s *Scraper) Extract(ctx context.Context, req *models.ExtractRequest) (*models.ExtractResponse, error) {
	totalStart := time.Now()
	runID := newRunID()
	logger := s.logger.With("run_id", runID, "url", req.URL)

	// ── 1. Validate ───────────────────────────────────────────────────
	match := req.ResponseMatch
	if match == "" {
		match = s.scraperCfg.ResponseMatch
	}
	format := req.DescriptionFormat
	if format == "" {
		format = s.scraperCfg.DescriptionFormat
	}
	normalizer, err := cleaner.NewNormalizer(format)
	if err != nil {
		return abortedResponse(logger, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err), totalStart, 0)
	}
	if err := validateStartURL(req.URL); err != nil {
		return abortedResponse(logger, err, totalStart, 0)
	}

	// ── 2. Timeout guard ──────────────────────────────────────────────
	timeout := s.scraperCfg.RunTimeout
	if req.Timeout > 0 {
		timeout = time.Duration(req.Timeout) * time.Second
	}
	if s.scraperCfg.MaxRunTimeout > 0 && timeout > s.scraperCfg.MaxRunTimeout {
		timeout = s.scraperCfg.MaxRunTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// ── 3. Run slot ───────────────────────────────────────────────────
	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		return abortedResponse(logger, categorizeError(ctx, ctx.Err(), models.ErrCodeTimeout, ""), totalStart, 0)
	}
	defer func() { <-s.slots }()
	s.activeRuns.Add(1)
	defer s.activeRuns.Add(-1)

	logger.Info("extraction started", "timeout", timeout)

	// ── 4. Acquire execution instance ─────────────────────────────────
	provider := s.provider
	if req.CDPURL != "" {
		provider = &engine.RemoteProvider{URL: req.CDPURL, Logger: logger}
	}
	inst, release, err := engine.Acquire(ctx, provider)
	if err != nil {
		return abortedResponse(logger, categorizeError(ctx, err, models.ErrCodeEnvironment, "browser unavailable"), totalStart, 0)
	}
	defer func() {
		if stopErr := release(); stopErr != nil {
			logger.Warn("browser release failed", "error", stopErr)
		}
	}()

	// ── 5. Connect page ───────────────────────────────────────────────
	stealthOn := s.browserCfg.Stealth
	if req.Stealth != nil {
		stealthOn = *req.Stealth
	}
	page, err := s.connector.Connect(ctx, inst.ControlURL(), ConnectOptions{
		Capture:              URLContains(match),
		Stealth:              stealthOn,
		BlockedResourceTypes: s.scraperCfg.BlockedResourceTypes,
		BlockAds:             s.scraperCfg.BlockAds,
	})
	if err != nil {
		return abortedResponse(logger, categorizeError(ctx, err, models.ErrCodeEnvironment, "page unavailable"), totalStart, 0)
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			logger.Debug("cleanup: page close failed", "error", closeErr)
		}
	}()

	// ── 6. Navigate ───────────────────────────────────────────────────
	navTimeout := s.scraperCfg.NavigationTimeout
	if navTimeout <= 0 {
		navTimeout = timeout
	}
	navCtx, navCancel := context.WithTimeout(ctx, navTimeout)
	navErr := page.Navigate(navCtx, req.URL)
	navCancel()
	navigationMs := time.Since(totalStart).Milliseconds()
	if navErr != nil {
		return abortedResponse(logger, categorizeError(ctx, navErr, models.ErrCodeNavigation, "navigation to start URL failed"), totalStart, navigationMs)
	}

	// ── 7. Orchestrate ────────────────────────────────────────────────
	orch := s.newOrchestrator(match, normalizer, logger)
	extractStart := time.Now()
	res, runErr := orch.Run(ctx, page)

	resp := toResponse(res, runErr)
	resp.Timing = models.TimingInfo{
		TotalMs:      time.Since(totalStart).Milliseconds(),
		NavigationMs: navigationMs,
		ExtractionMs: time.Since(extractStart).Milliseconds(),
	}
	return resp, runErr
}

// newOrchestrator wires the run's components from configuration.
func (s *Scraper) newOrchestrator(match string, normalizer *cleaner.Normalizer, logger *slog.Logger) *Orchestrator {
	cfg := s.scraperCfg
	extractor := &RecordExtractor{Path: cfg.RecordPath}
	if normalizer.Format() != cleaner.FormatRaw {
		extractor.Normalize = normalizer.Normalize
	}
	return &Orchestrator{
		Overlay: &OverlayGuard{Selector: cfg.OverlaySelector, Logger: logger},
		Scanner: &ContainerScanner{
			Selector:     cfg.ContainerSelector,
			ItemSelector: cfg.ItemSelector,
			Settle: settlePolicy{
				Interval: cfg.SettleInterval,
				Min:      cfg.SettleMin,
				Max:      cfg.SettleMax,
			},
			Logger: logger,
		},
		Driver:             NewItemDriver(cfg.ItemSelector, cfg.ClicksPerSecond, logger),
		Correlator:         &Correlator{Match: URLContains(match), Timeout: cfg.ResponseTimeout, Logger: logger},
		Extractor:          extractor,
		Resetter:           &ModalResetter{Settle: cfg.ResetSettle},
		ItemRetries:        cfg.ItemRetries,
		DuplicateThreshold: cfg.DuplicateThreshold,
		Logger:             logger,
	}
}

func newRunID() string {
	return uuid.NewString()
}

// validateStartURL accepts absolute http(s) URLs only.
func validateStartURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return models.NewScrapeError(models.ErrCodeInvalidInput, fmt.Sprintf("invalid start URL %q", raw), err)
	}
	return nil
}

// toResponse converts a run's result into the API shape.
func toResponse(res *RunResult, runErr error) *models.ExtractResponse {
	resp := &models.ExtractResponse{
		Success:    runErr == nil,
		State:      models.StateDone,
		Items:      res.Records,
		Containers: res.Containers,
		Total:      res.TotalItems,
		Failures:   res.Failures,
		Duplicates: res.Duplicates,
	}
	if runErr != nil {
		resp.State = models.StateAborted
		resp.Error = models.AsScrapeError(runErr).ToDetail()
	}
	if resp.Items == nil {
		resp.Items = []models.MenuItemRecord{}
	}
	if resp.Failures == nil {
		resp.Failures = []models.ItemFailure{}
	}
	return resp
}

// abortedResponse builds the response for a run that stopped before
// orchestration started.
func abortedResponse(logger *slog.Logger, err error, totalStart time.Time, navigationMs int64) (*models.ExtractResponse, error) {
	logger.Error("extraction aborted before traversal", "error", err)
	resp := toResponse(&RunResult{State: StateAborted}, err)
	resp.Timing = models.TimingInfo{
		TotalMs:      time.Since(totalStart).Milliseconds(),
		NavigationMs: navigationMs,
	}
	return resp, err
}
