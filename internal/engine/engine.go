// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package engine implements the batch conversion driver: it feeds input
// files through a conversion backend, writes Markdown/HTML artifacts, and
// skips inputs whose artifacts already exist.
package engine

import (
	"context"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/doc-engine/internal/convert"
	"github.com/pdiddy/doc-engine/pkg/types"
)

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted int
	Skipped   int
	Failed    int

	// Documents records the per-file outcomes in input order.
	Documents []types.Document
}

// Total returns the total number of inputs processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Skipped + r.Failed
}

// HasFailures reports whether any inputs failed conversion.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// Engine drives batch conversion. The converter and log sink are injected
// at construction; the engine holds no global state.
type Engine struct {
	cfg       types.EngineConfig
	converter convert.Converter
	log       io.Writer
}

// New creates an engine with the given configuration, conversion backend,
// and log sink. Empty directories fall back to data/, results/, logs/;
// an empty format list falls back to Markdown and HTML.
func New(cfg types.EngineConfig, c convert.Converter, log io.Writer) *Engine {
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.ResultsDir == "" {
		cfg.ResultsDir = "results"
	}
	if cfg.LogsDir == "" {
		cfg.LogsDir = "logs"
	}
	if len(cfg.Formats) == 0 {
		cfg.Formats = types.DefaultFormats
	}
	return &Engine{cfg: cfg, converter: c, log: log}
}

// Run processes the input file names in order. Each input is converted at
// most once: inputs whose artifacts all exist are skipped, and a failure
// never stops the batch. The returned result summarizes the run.
func (e *Engine) Run(ctx context.Context, names []string) (BatchResult, error) {
	if err := os.MkdirAll(e.cfg.ResultsDir, 0o755); err != nil {
		return BatchResult{}, fmt.Errorf("creating results directory: %w", err)
	}

	fmt.Fprintf(e.log, "starting conversion of %d file(s) with %s pipeline\n", len(names), e.converter.Name())

	var result BatchResult
	for i, name := range names {
		fmt.Fprintf(e.log, "[%d/%d] %s\n", i+1, len(names), name)

		start := time.Now()
		doc := e.process(ctx, name)
		doc.Duration = time.Since(start)
		result.Documents = append(result.Documents, doc)

		switch doc.Status {
		case types.ConversionDone:
			result.Converted++
			fmt.Fprintf(e.log, "converted: %s\n", name)
		case types.ConversionNone:
			result.Skipped++
			fmt.Fprintf(e.log, "skipped: %s (already exists)\n", name)
		case types.ConversionFailed:
			result.Failed++
			fmt.Fprintf(e.log, "failed:  %s (%s)\n", name, doc.Detail)
		}
	}

	fmt.Fprintf(e.log, "\nBatch summary: %d converted, %d skipped, %d failed (total: %d)\n",
		result.Converted, result.Skipped, result.Failed, result.Total())
	return result, nil
}

// process handles a single input. All failures are captured in the
// returned Document; nothing here aborts the batch.
func (e *Engine) process(ctx context.Context, name string) types.Document {
	doc := types.Document{
		Name:       name,
		SourcePath: filepath.Join(e.cfg.DataDir, name),
	}

	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if e.wants(types.FormatMarkdown) {
		doc.MarkdownPath = filepath.Join(e.cfg.ResultsDir, stem+".md")
	}
	if e.wants(types.FormatHTML) {
		doc.HTMLPath = filepath.Join(e.cfg.ResultsDir, stem+".html")
	}

	// Artifact existence is the cache signal: skip only when every
	// requested artifact is present.
	if e.cached(doc) {
		doc.Status = types.ConversionNone
		return doc
	}

	if _, err := os.Stat(doc.SourcePath); err != nil {
		doc.Status = types.ConversionFailed
		doc.Detail = fmt.Sprintf("input not found: %v", err)
		return doc
	}

	res, err := e.converter.Convert(ctx, doc.SourcePath)
	if err != nil {
		doc.Status = types.ConversionFailed
		doc.Detail = err.Error()
		return doc
	}

	if doc.MarkdownPath != "" {
		content := convert.WithFrontmatter(name, e.converter.Name(), res.Markdown)
		if err := os.WriteFile(doc.MarkdownPath, []byte(content), 0o644); err != nil {
			doc.Status = types.ConversionFailed
			doc.Detail = fmt.Sprintf("writing markdown: %v", err)
			return doc
		}
	}

	if doc.HTMLPath != "" {
		content := res.HTML
		if content == "" {
			content = htmlFallback(stem, res.Markdown)
		}
		if err := os.WriteFile(doc.HTMLPath, []byte(content), 0o644); err != nil {
			doc.Status = types.ConversionFailed
			doc.Detail = fmt.Sprintf("writing html: %v", err)
			return doc
		}
	}

	doc.Status = types.ConversionDone
	return doc
}

func (e *Engine) wants(f types.ExportFormat) bool {
	for _, have := range e.cfg.Formats {
		if have == f {
			return true
		}
	}
	return false
}

// cached reports whether every requested artifact for doc already exists.
func (e *Engine) cached(doc types.Document) bool {
	for _, path := range []string{doc.MarkdownPath, doc.HTMLPath} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return false
		}
	}
	return true
}

// htmlFallback wraps Markdown in a minimal HTML document for backends that
// only produce Markdown.
func htmlFallback(title, markdown string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	fmt.Fprintf(&b, "<meta charset=\"utf-8\">\n<title>%s</title>\n", html.EscapeString(title))
	b.WriteString("</head>\n<body>\n<pre>\n")
	b.WriteString(html.EscapeString(markdown))
	b.WriteString("\n</pre>\n</body>\n</html>\n")
	return b.String()
}
