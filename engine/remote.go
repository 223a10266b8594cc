package engine

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/use-agent/menugrab/models"
)

// RemoteProvider hands out an already running browser, such as a hosted
// scraping browser or a local Chrome started with --remote-debugging-port.
type RemoteProvider struct {
	// URL is either a ws:// or wss:// debugger URL, used as is, or an
	// http(s)://host:port (or bare port) endpoint resolved through
	// /json/version.
	URL    string
	Logger *slog.Logger
}

func (p *RemoteProvider) Name() string { return "remote" }

func (p *RemoteProvider) Start(ctx context.Context) (Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeCanceled, "run canceled before connecting", err)
	}

	controlURL := p.URL
	if u, err := url.Parse(p.URL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		resolved, resolveErr := launcher.ResolveURL(p.URL)
		if resolveErr != nil {
			return nil, models.NewScrapeError(models.ErrCodeEnvironment, "failed to resolve CDP URL", resolveErr)
		}
		controlURL = resolved
	}

	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("using remote browser", "host", redactHost(controlURL))
	return &remoteInstance{controlURL: controlURL, logger: logger}, nil
}

type remoteInstance struct {
	controlURL string
	logger     *slog.Logger
}

func (i *remoteInstance) ControlURL() string { return i.controlURL }

// Stop leaves the remote browser running; the per-run browser context and
// connection are torn down by whoever opened them.
func (i *remoteInstance) Stop() error {
	i.logger.Debug("remote browser released")
	return nil
}

// redactHost returns only the host of u so credentials embedded in hosted
// browser URLs never reach the logs.
func redactHost(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return "invalid"
	}
	return parsed.Host
}
