package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/use-agent/menugrab/config"
	"github.com/use-agent/menugrab/models"
)

type stubExtractor struct {
	resp *models.ExtractResponse
	err  error
	got  *models.ExtractRequest
}

func (s *stubExtractor) Extract(_ context.Context, req *models.ExtractRequest) (*models.ExtractResponse, error) {
	s.got = req
	return s.resp, s.err
}

func execute(t *testing.T, ex *stubExtractor, args ...string) (int, string) {
	t.Helper()
	cfg := config.Load()
	out := filepath.Join(t.TempDir(), "menu_items.json")
	cfg.Output.Path = out
	cfg.Scraper.StartURL = ""

	cmd := newRootCmd(cfg, func(*config.Config) extractor { return ex })
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.ExecuteContext(context.Background())
	if err == nil {
		return exitOK, out
	}
	var ee *exitError
	if !errors.As(err, &ee) {
		t.Fatalf("unexpected error type %T: %v", err, err)
	}
	return ee.code, out
}

func readItems(t *testing.T, path string) []models.MenuItemRecord {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var items []models.MenuItemRecord
	if err := json.Unmarshal(data, &items); err != nil {
		t.Fatal(err)
	}
	return items
}

func TestRunWritesItems(t *testing.T) {
	items := []models.MenuItemRecord{
		{Name: models.StrPtr("Pad Thai"), Description: models.StrPtr("Rice noodles")},
		{Name: models.StrPtr("Spring Rolls")},
	}
	ex := &stubExtractor{resp: &models.ExtractResponse{Success: true, State: models.StateDone, Items: items, Total: 2}}

	code, out := execute(t, ex, "https://example.com/store/1")
	if code != exitOK {
		t.Fatalf("exit code = %d, want %d", code, exitOK)
	}
	if ex.got.URL != "https://example.com/store/1" {
		t.Errorf("URL = %q", ex.got.URL)
	}
	if diff := cmp.Diff(items, readItems(t, out)); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
}

func TestRunExitCodes(t *testing.T) {
	skipped := &models.ExtractResponse{
		Success:  true,
		State:    models.StateDone,
		Items:    []models.MenuItemRecord{{Name: models.StrPtr("A")}},
		Total:    2,
		Failures: []models.ItemFailure{{Container: 0, Item: 1, Code: models.ErrCodeInteractionTimeout}},
	}
	aborted := &models.ExtractResponse{State: models.StateAborted}

	tests := []struct {
		name string
		ex   *stubExtractor
		args []string
		want int
	}{
		{"skips", &stubExtractor{resp: skipped}, []string{"https://example.com"}, exitWithSkips},
		{"aborted", &stubExtractor{resp: aborted, err: models.NewScrapeError(models.ErrCodeEnvironment, "gone", nil)}, []string{"https://example.com"}, exitAborted},
		{"invalid input", &stubExtractor{resp: aborted, err: models.NewScrapeError(models.ErrCodeInvalidInput, "bad", nil)}, []string{"ftp://example.com"}, exitUsage},
		{"missing url", &stubExtractor{}, nil, exitUsage},
		{"bad flag", &stubExtractor{}, []string{"--nope", "https://example.com"}, exitUsage},
		{"bad format", &stubExtractor{}, []string{"--description-format", "pdf", "https://example.com"}, exitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := execute(t, tt.ex, tt.args...)
			if code != tt.want {
				t.Errorf("exit code = %d, want %d", code, tt.want)
			}
		})
	}
}

func TestRunAbortedKeepsPartialItems(t *testing.T) {
	partial := &models.ExtractResponse{
		State: models.StateAborted,
		Items: []models.MenuItemRecord{{Name: models.StrPtr("A")}},
		Total: 3,
	}
	ex := &stubExtractor{resp: partial, err: models.NewScrapeError(models.ErrCodeEnvironment, "gone", nil)}

	code, out := execute(t, ex, "https://example.com")
	if code != exitAborted {
		t.Fatalf("exit code = %d, want %d", code, exitAborted)
	}
	if got := readItems(t, out); len(got) != 1 {
		t.Errorf("wrote %d items, want 1", len(got))
	}
}
