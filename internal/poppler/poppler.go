// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package poppler wraps the poppler-utils binaries (pdfinfo, pdftotext)
// used by the hybrid backend to read a PDF's embedded text layer.
package poppler

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

const (
	binPdfinfo   = "pdfinfo"
	binPdftotext = "pdftotext"
	binPdftoppm  = "pdftoppm"
)

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Tool reads page counts and per-page text layers from PDF files.
type Tool struct {
	exec executor
}

// NewTool returns a Tool backed by the poppler binaries on PATH. It returns
// an error when either binary is missing.
func NewTool() (*Tool, error) {
	return newTool(&osExecutor{})
}

func newTool(exec executor) (*Tool, error) {
	t := &Tool{exec: exec}
	for _, bin := range []string{binPdfinfo, binPdftotext, binPdftoppm} {
		if _, err := exec.LookPath(bin); err != nil {
			return nil, fmt.Errorf("%s not found on PATH (install poppler-utils): %w", bin, err)
		}
	}
	return t, nil
}

var pagesRe = regexp.MustCompile(`(?m)^Pages:\s+(\d+)\s*$`)

// PageCount returns the number of pages in the PDF at path.
func (t *Tool) PageCount(ctx context.Context, path string) (int, error) {
	out, err := t.exec.Output(ctx, binPdfinfo, path)
	if err != nil {
		return 0, fmt.Errorf("pdfinfo %s: %w", path, err)
	}
	m := pagesRe.FindStringSubmatch(string(out))
	if len(m) != 2 {
		return 0, fmt.Errorf("pdfinfo %s: page count not found in output", path)
	}
	return strconv.Atoi(m[1])
}

// TextForPage extracts the text layer of one page (1-indexed), normalized
// to Unix line endings and trimmed.
func (t *Tool) TextForPage(ctx context.Context, path string, page int) (string, error) {
	out, err := t.exec.Output(ctx, binPdftotext,
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-layout",
		path,
		"-",
	)
	if err != nil {
		return "", fmt.Errorf("pdftotext %s page %d: %w", path, page, err)
	}

	text := strings.ReplaceAll(string(out), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text), nil
}

// ImageForPage rasterizes one page (1-indexed) to PNG bytes at 150 DPI,
// the resolution the vision model is prompted with.
func (t *Tool) ImageForPage(ctx context.Context, path string, page int) ([]byte, error) {
	out, err := t.exec.Output(ctx, binPdftoppm,
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-png",
		"-r", "150",
		path,
	)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm %s page %d: %w", path, page, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("pdftoppm %s page %d: empty image", path, page)
	}
	return out, nil
}
