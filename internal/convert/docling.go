// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/pdiddy/doc-engine/internal/container"
	"github.com/pdiddy/doc-engine/pkg/types"
)

const defaultDoclingImage = "docling:latest"

// DoclingConverter converts PDFs by piping them through the docling
// container image, once per export format. It depends on a
// container.Runtime (docker or podman) injected at construction time.
type DoclingConverter struct {
	runtime container.Runtime
	image   string
}

// NewDoclingConverter creates a converter that uses the given container
// runtime to run the docling image. It verifies that the image exists
// locally before returning.
func NewDoclingConverter(rt container.Runtime, cfg types.DoclingConfig) (*DoclingConverter, error) {
	image := cfg.Image
	if image == "" {
		image = defaultDoclingImage
	}
	if err := rt.ImageExists(image); err != nil {
		return nil, fmt.Errorf("docling image not available in %s: %w", rt.Name(), err)
	}
	return &DoclingConverter{runtime: rt, image: image}, nil
}

// Name returns the backend name.
func (d *DoclingConverter) Name() string { return string(types.PipelineDocling) }

// Convert pipes the PDF through the docling container twice, exporting
// Markdown and HTML. The container reads the document on stdin and writes
// the converted text to stdout.
func (d *DoclingConverter) Convert(ctx context.Context, pdfPath string) (Result, error) {
	md, err := d.export(ctx, pdfPath, "md")
	if err != nil {
		return Result{}, err
	}
	html, err := d.export(ctx, pdfPath, "html")
	if err != nil {
		return Result{}, err
	}
	return Result{Markdown: md, HTML: html}, nil
}

func (d *DoclingConverter) export(ctx context.Context, pdfPath, format string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := os.Open(pdfPath)
	if err != nil {
		return "", fmt.Errorf("opening PDF %s: %w", pdfPath, err)
	}
	defer f.Close()

	var out bytes.Buffer
	args := []string{"--from", "pdf", "--to", format, "--output", "-", "-"}
	if err := d.runtime.Run(d.image, args, f, &out); err != nil {
		return "", fmt.Errorf("converting %s to %s with docling: %w", pdfPath, format, err)
	}

	if out.Len() == 0 {
		return "", fmt.Errorf("docling produced empty %s output for %s", format, pdfPath)
	}

	return out.String(), nil
}
