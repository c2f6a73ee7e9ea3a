// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/doc-engine/internal/httputil"
	"github.com/pdiddy/doc-engine/internal/quality"
	"github.com/pdiddy/doc-engine/pkg/types"
)

const (
	defaultVisionModel   = "gpt-4o"
	defaultVisionBaseURL = "https://api.openai.com"
	chatCompletionsPath  = "/v1/chat/completions"

	pageSeparator = "\n\n---\n\n"

	visionPrompt = "Transcribe this document page to clean Markdown. " +
		"Preserve headings, lists, and tables. Output only the Markdown."
)

// PageReader provides per-page access to a PDF: page count, text layer,
// and a rasterized image. Satisfied by *poppler.Tool.
type PageReader interface {
	PageCount(ctx context.Context, path string) (int, error)
	TextForPage(ctx context.Context, path string, page int) (string, error)
	ImageForPage(ctx context.Context, path string, page int) ([]byte, error)
}

// HybridConverter extracts each page's embedded text layer and sends only
// the pages that fail the quality gate to a remote vision model. When the
// share of failing pages exceeds the trigger ratio the whole document goes
// to the model, since a mostly scanned document rarely has trustworthy
// text on its remaining pages.
type HybridConverter struct {
	cfg    types.HybridConfig
	pages  PageReader
	client *http.Client
}

// NewHybridConverter creates a hybrid converter. The API key is required;
// the text layer alone cannot satisfy the conversion contract for scanned
// input.
func NewHybridConverter(pages PageReader, cfg types.HybridConfig) (*HybridConverter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("vision API key not configured (set OPENAI_API_KEY or .secrets/openai-api-key)")
	}
	if cfg.Model == "" {
		cfg.Model = defaultVisionModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultVisionBaseURL
	}
	if cfg.MinWords <= 0 {
		cfg.MinWords = 10
	}
	if cfg.OCRTriggerRatio <= 0 {
		cfg.OCRTriggerRatio = 0.3
	}
	return &HybridConverter{
		cfg:    cfg,
		pages:  pages,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Name returns the backend name.
func (h *HybridConverter) Name() string { return string(types.PipelineHybrid) }

// pageEval pairs a page's text layer with its quality decision.
type pageEval struct {
	page     int
	text     string
	decision quality.Decision
}

// Convert runs the two-phase pipeline: score every page's text layer,
// then OCR the pages that need it and merge in page order.
func (h *HybridConverter) Convert(ctx context.Context, pdfPath string) (Result, error) {
	total, err := h.pages.PageCount(ctx, pdfPath)
	if err != nil {
		return Result{}, err
	}
	if total <= 0 {
		return Result{}, fmt.Errorf("%s has no pages", pdfPath)
	}

	evals := make([]pageEval, 0, total)
	var needsOCR []int
	for p := 1; p <= total; p++ {
		text, err := h.pages.TextForPage(ctx, pdfPath, p)
		if err != nil {
			return Result{}, err
		}
		d := quality.Score(text, h.cfg.MinWords)
		evals = append(evals, pageEval{page: p, text: text, decision: d})
		if d.NeedsOCR {
			needsOCR = append(needsOCR, p)
		}
	}

	ocrPages := needsOCR
	if float64(len(needsOCR))/float64(total) > h.cfg.OCRTriggerRatio {
		ocrPages = make([]int, total)
		for i := range ocrPages {
			ocrPages[i] = i + 1
		}
	}

	ocrText := make(map[int]string, len(ocrPages))
	for _, p := range ocrPages {
		md, err := h.visionPage(ctx, pdfPath, p)
		if err != nil {
			return Result{}, fmt.Errorf("vision OCR for %s page %d: %w", pdfPath, p, err)
		}
		ocrText[p] = md
	}

	parts := make([]string, 0, total)
	for _, ev := range evals {
		if md, ok := ocrText[ev.page]; ok && strings.TrimSpace(md) != "" {
			parts = append(parts, strings.TrimSpace(md))
			continue
		}
		parts = append(parts, ev.text)
	}

	return Result{Markdown: strings.Join(parts, pageSeparator)}, nil
}

// chatRequest is the OpenAI-style chat completions payload.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// visionPage rasterizes one page and asks the vision model to transcribe it.
func (h *HybridConverter) visionPage(ctx context.Context, pdfPath string, page int) (string, error) {
	img, err := h.pages.ImageForPage(ctx, pdfPath, page)
	if err != nil {
		return "", err
	}

	payload := chatRequest{
		Model: h.cfg.Model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: visionPrompt},
				{Type: "image_url", ImageURL: &imageURL{
					URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(img),
				}},
			},
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.BaseURL+chatCompletionsPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+h.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if h.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", h.cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, h.client, req, h.cfg.MaxRetries)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", httpError("vision API", resp)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding vision response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("vision API: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("vision API returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
