// Command menugrab runs one extraction against a storefront page and writes
// the collected menu items to a JSON file.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/use-agent/menugrab/config"
	"github.com/use-agent/menugrab/scraper"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(config.Load(), func(cfg *config.Config) extractor {
		return scraper.NewScraper(cfg.Browser, cfg.Scraper, 1)
	})
	err := cmd.ExecuteContext(ctx)

	var ee *exitError
	switch {
	case err == nil:
		return
	case errors.As(err, &ee):
		if ee.err != nil {
			fmt.Fprintln(os.Stderr, ee.err)
		}
		os.Exit(ee.code)
	default:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitAborted)
	}
}
