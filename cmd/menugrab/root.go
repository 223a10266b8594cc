package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/menugrab/config"
	"github.com/use-agent/menugrab/logging"
	"github.com/use-agent/menugrab/models"
)

// Process exit codes.
const (
	exitOK        = 0
	exitAborted   = 1
	exitUsage     = 2
	exitWithSkips = 3
)

// exitError carries the process exit code out of the command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

type extractor interface {
	Extract(ctx context.Context, req *models.ExtractRequest) (*models.ExtractResponse, error)
}

// newRootCmd builds the command. newExtractor is called once the
// configuration is final.
func newRootCmd(cfg *config.Config, newExtractor func(*config.Config) extractor) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "menugrab [start-url]",
		Short: "Extract every menu item from a storefront page into a JSON file.",
		Long: "menugrab opens the start URL in a browser, clicks every menu item in turn and\n" +
			"records the detail payload each click fetches. The start URL may also be set\n" +
			"with MENUGRAB_START_URL.\n\n" +
			"Exit codes: 0 all items extracted, 3 finished with skipped items,\n" +
			"1 run aborted, 2 usage error.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				cfg.Scraper.StartURL = args[0]
			}
			if timeout > 0 {
				cfg.Scraper.RunTimeout = timeout
				if cfg.Scraper.MaxRunTimeout < timeout {
					cfg.Scraper.MaxRunTimeout = timeout
				}
			}
			if cfg.Scraper.StartURL == "" {
				return &exitError{code: exitUsage, err: fmt.Errorf("start URL required: pass it as an argument or set MENUGRAB_START_URL")}
			}
			if err := cfg.Validate(); err != nil {
				return &exitError{code: exitUsage, err: err}
			}

			closeLog := logging.Setup(cfg.Log, cmd.ErrOrStderr())
			defer closeLog()

			return run(cmd.Context(), cfg, newExtractor(cfg))
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &exitError{code: exitUsage, err: err}
	})

	f := cmd.Flags()
	f.StringVarP(&cfg.Output.Path, "output", "o", cfg.Output.Path, "file receiving the extracted items")
	f.StringVar(&cfg.Scraper.ResponseMatch, "response-match", cfg.Scraper.ResponseMatch, "URL substring identifying the item detail response")
	f.StringVar(&cfg.Scraper.DescriptionFormat, "description-format", cfg.Scraper.DescriptionFormat, "description normalization: raw, text or markdown")
	f.StringVar(&cfg.Browser.CDPURL, "cdp-url", cfg.Browser.CDPURL, "use the browser behind this CDP endpoint instead of launching one")
	f.IntVar(&cfg.Scraper.ItemRetries, "retries", cfg.Scraper.ItemRetries, "extra attempts for an item that failed")
	f.DurationVar(&timeout, "timeout", 0, "deadline for the whole run (default from MENUGRAB_RUN_TIMEOUT)")
	f.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "debug, info, warn or error")
	f.StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "json, text or color")
	return cmd
}

// run performs the extraction and writes whatever was gathered, even when
// the run aborted.
func run(ctx context.Context, cfg *config.Config, ex extractor) error {
	resp, runErr := ex.Extract(ctx, &models.ExtractRequest{URL: cfg.Scraper.StartURL})

	if resp != nil && (runErr == nil || len(resp.Items) > 0) {
		if err := writeItems(cfg.Output.Path, resp.Items); err != nil {
			return &exitError{code: exitAborted, err: err}
		}
		slog.Info("items written", "path", cfg.Output.Path, "count", len(resp.Items))
	}

	if runErr != nil {
		if models.CodeOf(runErr) == models.ErrCodeInvalidInput {
			return &exitError{code: exitUsage, err: runErr}
		}
		return &exitError{code: exitAborted, err: runErr}
	}
	if resp.Skipped() > 0 {
		slog.Warn("finished with skipped items", "skipped", resp.Skipped(), "total", resp.Total)
		return &exitError{code: exitWithSkips}
	}
	return nil
}

// writeItems writes items as an indented JSON array.
func writeItems(path string, items []models.MenuItemRecord) error {
	if items == nil {
		items = []models.MenuItemRecord{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
