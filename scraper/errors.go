package scraper

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/cdp"
	"github.com/use-agent/menugrab/models"
)

// categorizeError wraps raw errors into typed ScrapeErrors.
//
// runCtx is the context of the whole run: once it is done every error is
// reported as a cancellation or timeout of the run, even if the failing
// operation had its own shorter deadline. Errors that mean the browser
// session is gone are reported as environment errors. Anything else gets
// the caller's per-operation code.
func categorizeError(runCtx context.Context, err error, code, msg string) *models.ScrapeError {
	if err == nil {
		return nil
	}
	if ctxErr := runCtx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return models.NewScrapeError(models.ErrCodeTimeout, "run timed out", err)
		}
		return models.NewScrapeError(models.ErrCodeCanceled, "run canceled", err)
	}
	if isEnvironmentError(err) {
		return models.NewScrapeError(models.ErrCodeEnvironment, "browser session lost", err)
	}
	var se *models.ScrapeError
	if errors.As(err, &se) {
		return se
	}
	return models.NewScrapeError(code, msg, err)
}

// isEnvironmentError reports whether err means the page or the whole
// browser connection is unusable.
func isEnvironmentError(err error) bool {
	var se *models.ScrapeError
	if errors.As(err, &se) && se.Code == models.ErrCodeEnvironment {
		return true
	}

	var pageGone *rod.PageNotFoundError
	switch {
	case errors.Is(err, cdp.ErrSessionNotFound),
		errors.Is(err, cdp.ErrNotAttachedToActivePage):
		return true
	case errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ECONNRESET):
		return true
	case errors.As(err, &pageGone):
		return true
	}
	return false
}
