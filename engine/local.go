package engine

import (
	"context"
	"log/slog"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/use-agent/menugrab/models"
)

// LocalProvider launches a Chromium process per instance.
type LocalProvider struct {
	Headless  bool
	NoSandbox bool
	Bin       string
	Proxy     string
	Logger    *slog.Logger
}

func (p *LocalProvider) Name() string { return "local" }

// Start launches a browser with flags that hide automation.
func (p *LocalProvider) Start(ctx context.Context) (Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeCanceled, "run canceled before browser launch", err)
	}

	l := launcher.New().
		Headless(p.Headless).
		NoSandbox(p.NoSandbox)

	if p.Bin != "" {
		l = l.Bin(p.Bin)
	}
	if p.Proxy != "" {
		l = l.Proxy(p.Proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeEnvironment, "failed to launch browser", err)
	}
	p.logger().Info("browser launched", "controlURL", controlURL, "pid", l.PID())

	return &localInstance{launcher: l, controlURL: controlURL, logger: p.logger()}, nil
}

func (p *LocalProvider) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

type localInstance struct {
	launcher   *launcher.Launcher
	controlURL string
	logger     *slog.Logger
}

func (i *localInstance) ControlURL() string { return i.controlURL }

// Stop kills the browser process and removes its profile directory.
func (i *localInstance) Stop() error {
	i.launcher.Kill()
	i.launcher.Cleanup()
	i.logger.Info("browser stopped")
	return nil
}
