// Package covreport pushes coverage reports to an external coverage
// aggregation service over HTTP. Each upload is tagged with the rendered job
// name, so reports from different matrix combinations land as distinct flags.
package covreport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"forgeci/internal/config"
	"forgeci/internal/core/domain"
	ports "forgeci/internal/core/ports/output"
)

type covReportClient struct {
	baseURL string
	token   string
	client  *http.Client
	enabled bool
}

// NewClient creates a new coverage uploader adapter
func NewClient(cfg *config.CoverageConfig) ports.CoverageUploader {
	if !cfg.Enabled || cfg.URL == "" {
		return &covReportClient{enabled: false}
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &covReportClient{
		baseURL: cfg.URL,
		token:   cfg.Token,
		enabled: true,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

var _ ports.CoverageUploader = (*covReportClient)(nil)

func (c *covReportClient) IsAvailable() bool {
	return c.enabled
}

type uploadRequest struct {
	RunID   string  `json:"run_id"`
	JobID   string  `json:"job_id"`
	Flag    string  `json:"flag"`
	Percent float64 `json:"percent"`
	Payload string  `json:"payload,omitempty"`
}

func (c *covReportClient) Upload(ctx context.Context, report *domain.CoverageReport) error {
	if !c.enabled {
		return domain.ErrUploaderUnavailable
	}

	body, err := json.Marshal(uploadRequest{
		RunID:   report.RunID.String(),
		JobID:   report.JobID.String(),
		Flag:    report.Flag,
		Percent: report.Percent,
		Payload: report.Payload,
	})
	if err != nil {
		return fmt.Errorf("encode coverage upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/upload", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build coverage upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("coverage upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("coverage upload rejected: %s: %s", resp.Status, string(msg))
	}
	return nil
}
