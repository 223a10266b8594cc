package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/menugrab/models"
)

func main() {
	apiURL := os.Getenv("MENUGRAB_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("MENUGRAB_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "MENUGRAB_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"menugrab",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	extractTool := mcp.NewTool("extract_catalog",
		mcp.WithDescription("Open a storefront page in a browser, click through every menu item and return each item's name, description and image URL. Runs can take several minutes on large menus."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The storefront page listing the menu"),
		),
		mcp.WithString("response_match",
			mcp.Description("URL substring identifying the per-item detail request (default: server setting, usually 'graphql/itemPage')"),
		),
		mcp.WithString("description_format",
			mcp.Description("How descriptions are returned: 'raw' (default), 'text' or 'markdown'"),
			mcp.Enum("raw", "text", "markdown"),
		),
	)
	c := &apiClient{
		baseURL: apiURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
		poll:    2 * time.Second,
	}
	s.AddTool(extractTool, handleExtractCatalog(c))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiClient talks to the menugrab HTTP API.
type apiClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	poll    time.Duration
}

func (c *apiClient) do(ctx context.Context, method, path string, payload interface{}) ([]byte, int, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	return data, resp.StatusCode, err
}

// waitJob polls a job until it leaves the processing state or ctx is done.
func (c *apiClient) waitJob(ctx context.Context, id string) (*models.Job, error) {
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			data, status, err := c.do(ctx, http.MethodGet, "/api/v1/jobs/"+id, nil)
			if err != nil {
				return nil, err
			}
			if status != http.StatusOK {
				return nil, fmt.Errorf("poll job %s: status %d", id, status)
			}
			var job models.Job
			if err := json.Unmarshal(data, &job); err != nil {
				return nil, fmt.Errorf("parse job: %w", err)
			}
			if job.Status != models.JobProcessing {
				return &job, nil
			}
		}
	}
}

func handleExtractCatalog(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := models.ExtractRequest{
			URL:               url,
			ResponseMatch:     request.GetString("response_match", ""),
			DescriptionFormat: request.GetString("description_format", ""),
		}

		data, status, err := c.do(ctx, http.MethodPost, "/api/v1/jobs", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("extract request failed: %v", err)), nil
		}
		if status != http.StatusAccepted {
			return mcp.NewToolResultError(apiError(data, status)), nil
		}
		var created models.JobResponse
		if err := json.Unmarshal(data, &created); err != nil || created.ID == "" {
			return mcp.NewToolResultError("job creation failed"), nil
		}

		job, err := c.waitJob(ctx, created.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling job %s failed: %v", created.ID, err)), nil
		}
		return formatJob(job), nil
	}
}

// formatJob renders a finished job as a summary followed by the items.
func formatJob(job *models.Job) *mcp.CallToolResult {
	resp := job.Result
	if resp == nil {
		return mcp.NewToolResultError(fmt.Sprintf("job %s finished without a result", job.ID))
	}
	if job.Status == models.JobFailed && len(resp.Items) == 0 {
		msg := "extraction failed"
		if resp.Error != nil {
			msg = fmt.Sprintf("[%s] %s", resp.Error.Code, resp.Error.Message)
		}
		return mcp.NewToolResultError(msg)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Extraction %s: %s (%d/%d items, %d skipped, %d containers)\n",
		job.ID, job.Status, len(resp.Items), resp.Total, resp.Skipped(), resp.Containers)
	if resp.Error != nil {
		fmt.Fprintf(&sb, "Aborted: [%s] %s\n", resp.Error.Code, resp.Error.Message)
	}
	for _, f := range resp.Failures {
		fmt.Fprintf(&sb, "Skipped container %d item %d: %s\n", f.Container, f.Item, f.Code)
	}
	if len(resp.Duplicates) > 0 {
		fmt.Fprintf(&sb, "Possible duplicates (item indices): %v\n", resp.Duplicates)
	}

	items, err := json.MarshalIndent(resp.Items, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode items: %v", err))
	}
	sb.WriteString("\n")
	sb.Write(items)
	return mcp.NewToolResultText(sb.String())
}

// apiError extracts the error detail from an API error body.
func apiError(data []byte, status int) string {
	var body struct {
		Error *models.ErrorDetail `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error != nil {
		return fmt.Sprintf("[%s] %s", body.Error.Code, body.Error.Message)
	}
	return fmt.Sprintf("API returned status %d", status)
}
