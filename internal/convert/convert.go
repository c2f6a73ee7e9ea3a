// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert implements PDF conversion with pluggable backends.
// The containerized docling image, a remote docling-serve endpoint, and a
// hybrid text-layer + vision-model pipeline all satisfy the same interface.
package convert

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Result holds the structured output of one document conversion.
type Result struct {
	// Markdown is the Markdown rendition of the document.
	Markdown string

	// HTML is the HTML rendition. Backends that only produce Markdown
	// leave it empty; the engine derives a minimal HTML wrapper.
	HTML string
}

// Converter transforms a PDF file into Markdown and HTML text. Different
// backends (docling container, docling-serve, hybrid) implement this
// interface.
type Converter interface {
	// Name returns the backend name for log lines ("docling", "serve", "hybrid").
	Name() string

	// Convert reads the PDF at pdfPath and returns the converted content.
	Convert(ctx context.Context, pdfPath string) (Result, error)
}

// WithFrontmatter prepends YAML frontmatter to converted Markdown content.
func WithFrontmatter(name, pipeline, body string) string {
	ts := time.Now().UTC().Format(time.RFC3339)
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "source: %q\n", name)
	fmt.Fprintf(&b, "pipeline: %q\n", pipeline)
	fmt.Fprintf(&b, "converted_at: %q\n", ts)
	b.WriteString("---\n\n")
	b.WriteString(body)
	return b.String()
}
