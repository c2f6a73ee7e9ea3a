// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/doc-engine/internal/httputil"
	"github.com/pdiddy/doc-engine/pkg/types"
)

const (
	submitPath = "/v1alpha/convert/file/async"
	statusPath = "/v1alpha/status/poll/"
	resultPath = "/v1alpha/result/"

	defaultPollInterval = 2 * time.Second
	defaultMaxPolls     = 150
)

// taskStatus values reported by docling-serve.
const (
	taskStarted = "started"
	taskSuccess = "success"
	taskFailure = "failure"
)

// task is the response to an async conversion submission or status poll.
type task struct {
	TaskID     string `json:"task_id"`
	TaskStatus string `json:"task_status"`
}

// taskResult is the completed conversion payload.
type taskResult struct {
	TaskStatus string `json:"task_status"`
	Document   struct {
		Filename string `json:"filename"`
		Markdown string `json:"md_content"`
		HTML     string `json:"html_content"`
	} `json:"document"`
	Errors []string `json:"errors"`
}

// ServeConverter converts PDFs through a remote docling-serve deployment:
// upload, poll the task until it settles, then fetch the result document.
type ServeConverter struct {
	cfg    types.ServeConfig
	client *http.Client
}

// NewServeConverter creates a converter for the docling-serve endpoint in cfg.
func NewServeConverter(cfg types.ServeConfig) (*ServeConverter, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("docling-serve base URL not configured")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = defaultMaxPolls
	}
	return &ServeConverter{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name returns the backend name.
func (s *ServeConverter) Name() string { return string(types.PipelineServe) }

// Convert uploads the PDF, waits for the conversion task to complete, and
// returns the Markdown and HTML content from the result document.
func (s *ServeConverter) Convert(ctx context.Context, pdfPath string) (Result, error) {
	taskID, err := s.submit(ctx, pdfPath)
	if err != nil {
		return Result{}, err
	}

	if err := s.await(ctx, taskID); err != nil {
		return Result{}, fmt.Errorf("task %s for %s: %w", taskID, pdfPath, err)
	}

	return s.fetch(ctx, taskID, pdfPath)
}

func (s *ServeConverter) submit(ctx context.Context, pdfPath string) (string, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return "", fmt.Errorf("opening PDF %s: %w", pdfPath, err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("files", filepath.Base(pdfPath))
	if err != nil {
		return "", fmt.Errorf("building upload for %s: %w", pdfPath, err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("reading PDF %s: %w", pdfPath, err)
	}
	for _, format := range []string{"md", "html"} {
		if err := mw.WriteField("to_formats", format); err != nil {
			return "", fmt.Errorf("building upload for %s: %w", pdfPath, err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("building upload for %s: %w", pdfPath, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+submitPath, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	s.setHeaders(req)

	resp, err := httputil.DoWithRetry(ctx, s.client, req, 0)
	if err != nil {
		return "", fmt.Errorf("submitting %s to docling-serve: %w", pdfPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", httpError("docling-serve submit", resp)
	}

	var t task
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return "", fmt.Errorf("decoding docling-serve submit response: %w", err)
	}
	if t.TaskID == "" {
		return "", fmt.Errorf("docling-serve returned no task id for %s", pdfPath)
	}
	return t.TaskID, nil
}

// await polls the task status until success, failure, or the poll budget
// runs out.
func (s *ServeConverter) await(ctx context.Context, taskID string) error {
	for i := 0; i < s.cfg.MaxPolls; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.PollInterval):
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+statusPath+taskID, nil)
		if err != nil {
			return err
		}
		s.setHeaders(req)

		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("polling task status: %w", err)
		}

		var t task
		err = json.NewDecoder(resp.Body).Decode(&t)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decoding task status: %w", err)
		}

		switch t.TaskStatus {
		case taskSuccess:
			return nil
		case taskFailure:
			return fmt.Errorf("conversion failed on the server")
		}
	}
	return fmt.Errorf("task did not complete after %d polls", s.cfg.MaxPolls)
}

func (s *ServeConverter) fetch(ctx context.Context, taskID, pdfPath string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+resultPath+taskID, nil)
	if err != nil {
		return Result{}, err
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("fetching result for %s: %w", pdfPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, httpError("docling-serve result", resp)
	}

	var tr taskResult
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return Result{}, fmt.Errorf("decoding result for %s: %w", pdfPath, err)
	}

	if tr.Document.Markdown == "" {
		return Result{}, fmt.Errorf("docling-serve returned empty document for %s", pdfPath)
	}

	return Result{Markdown: tr.Document.Markdown, HTML: tr.Document.HTML}, nil
}

func (s *ServeConverter) setHeaders(req *http.Request) {
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}
}

func httpError(op string, resp *http.Response) error {
	slurp, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return fmt.Errorf("%s: HTTP %d: %s", op, resp.StatusCode, string(slurp))
}
