// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package engine

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/doc-engine/internal/convert"
	"github.com/pdiddy/doc-engine/pkg/types"
)

// fakeConverter implements convert.Converter for testing. It counts calls
// and returns canned output or per-path errors.
type fakeConverter struct {
	markdown string
	html     string
	errs     map[string]error
	calls    []string
}

func (f *fakeConverter) Name() string { return "fake" }

func (f *fakeConverter) Convert(_ context.Context, pdfPath string) (convert.Result, error) {
	f.calls = append(f.calls, pdfPath)
	if err, ok := f.errs[filepath.Base(pdfPath)]; ok {
		return convert.Result{}, err
	}
	return convert.Result{Markdown: f.markdown, HTML: f.html}, nil
}

func testConfig(t *testing.T) types.EngineConfig {
	t.Helper()
	tmp := t.TempDir()
	cfg := types.EngineConfig{
		DataDir:    filepath.Join(tmp, "data"),
		ResultsDir: filepath.Join(tmp, "results"),
		LogsDir:    filepath.Join(tmp, "logs"),
	}
	require.NoError(t, os.MkdirAll(cfg.DataDir, 0o755))
	return cfg
}

func writeInput(t *testing.T, cfg types.EngineConfig, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(cfg.DataDir, name), []byte("%PDF-1.4 fake"), 0o644))
}

func TestRunConvertsAndWritesArtifacts(t *testing.T) {
	cfg := testConfig(t)
	writeInput(t, cfg, "a.pdf")
	writeInput(t, cfg, "b.pdf")

	conv := &fakeConverter{markdown: "# Doc", html: "<h1>Doc</h1>"}
	var log bytes.Buffer
	result, err := New(cfg, conv, &log).Run(context.Background(), []string{"a.pdf", "b.pdf"})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Converted)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 0, result.Failed)
	assert.False(t, result.HasFailures())

	for _, stem := range []string{"a", "b"} {
		md, err := os.ReadFile(filepath.Join(cfg.ResultsDir, stem+".md"))
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(md), "---\n"), "markdown should carry frontmatter")
		assert.Contains(t, string(md), "# Doc")

		html, err := os.ReadFile(filepath.Join(cfg.ResultsDir, stem+".html"))
		require.NoError(t, err)
		assert.Contains(t, string(html), "<h1>Doc</h1>")
	}

	assert.Equal(t, 2, strings.Count(log.String(), "converted:"))
	assert.Contains(t, log.String(), "Batch summary: 2 converted, 0 skipped, 0 failed")
}

func TestRunSkipsCachedInputs(t *testing.T) {
	cfg := testConfig(t)
	writeInput(t, cfg, "a.pdf")

	require.NoError(t, os.MkdirAll(cfg.ResultsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ResultsDir, "a.md"), []byte("existing"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ResultsDir, "a.html"), []byte("existing"), 0o644))

	conv := &fakeConverter{markdown: "should not be called"}
	var log bytes.Buffer
	result, err := New(cfg, conv, &log).Run(context.Background(), []string{"a.pdf"})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, conv.calls, "cached input must not be converted")
	assert.Contains(t, log.String(), "skipped: a.pdf")
}

func TestRunPartialArtifactsTriggerConversion(t *testing.T) {
	cfg := testConfig(t)
	writeInput(t, cfg, "a.pdf")

	// Only the Markdown artifact exists; the HTML one is missing, so the
	// input is not considered cached.
	require.NoError(t, os.MkdirAll(cfg.ResultsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ResultsDir, "a.md"), []byte("old"), 0o644))

	conv := &fakeConverter{markdown: "# Fresh"}
	var log bytes.Buffer
	result, err := New(cfg, conv, &log).Run(context.Background(), []string{"a.pdf"})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Converted)
	assert.Len(t, conv.calls, 1)
}

func TestRunFailureDoesNotAbortBatch(t *testing.T) {
	cfg := testConfig(t)
	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		writeInput(t, cfg, name)
	}

	conv := &fakeConverter{
		markdown: "# OK",
		errs:     map[string]error{"b.pdf": errors.New("model crashed")},
	}
	var log bytes.Buffer
	result, err := New(cfg, conv, &log).Run(context.Background(), []string{"a.pdf", "b.pdf", "c.pdf"})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Converted)
	assert.Equal(t, 1, result.Failed)
	assert.True(t, result.HasFailures())

	// c.pdf was processed despite b.pdf failing.
	_, statErr := os.Stat(filepath.Join(cfg.ResultsDir, "c.md"))
	assert.NoError(t, statErr)
	assert.Contains(t, log.String(), "failed:  b.pdf (model crashed)")
}

func TestRunMissingInputIsNonFatal(t *testing.T) {
	cfg := testConfig(t)
	writeInput(t, cfg, "real.pdf")

	conv := &fakeConverter{markdown: "# OK"}
	var log bytes.Buffer
	result, err := New(cfg, conv, &log).Run(context.Background(), []string{"ghost.pdf", "real.pdf"})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Converted)
	assert.Contains(t, log.String(), "input not found")

	require.Len(t, result.Documents, 2)
	assert.Equal(t, types.ConversionFailed, result.Documents[0].Status)
	assert.Equal(t, types.ConversionDone, result.Documents[1].Status)
}

func TestRunIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	writeInput(t, cfg, "a.pdf")
	writeInput(t, cfg, "b.pdf")
	names := []string{"a.pdf", "b.pdf"}

	conv := &fakeConverter{markdown: "# Doc"}
	eng := New(cfg, conv, &bytes.Buffer{})

	first, err := eng.Run(context.Background(), names)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Converted)
	assert.Len(t, conv.calls, 2)

	second, err := eng.Run(context.Background(), names)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Converted)
	assert.Equal(t, 2, second.Skipped)
	assert.Len(t, conv.calls, 2, "second run must perform zero conversions")
}

func TestRunMarkdownOnlyFormat(t *testing.T) {
	cfg := testConfig(t)
	cfg.Formats = []types.ExportFormat{types.FormatMarkdown}
	writeInput(t, cfg, "a.pdf")

	conv := &fakeConverter{markdown: "# Doc"}
	result, err := New(cfg, conv, &bytes.Buffer{}).Run(context.Background(), []string{"a.pdf"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Converted)

	_, err = os.Stat(filepath.Join(cfg.ResultsDir, "a.md"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(cfg.ResultsDir, "a.html"))
	assert.True(t, os.IsNotExist(err), "html artifact should not be written")
}

func TestRunHTMLFallbackForMarkdownOnlyBackend(t *testing.T) {
	cfg := testConfig(t)
	writeInput(t, cfg, "a.pdf")

	conv := &fakeConverter{markdown: "# Title <tag>"}
	_, err := New(cfg, conv, &bytes.Buffer{}).Run(context.Background(), []string{"a.pdf"})
	require.NoError(t, err)

	html, err := os.ReadFile(filepath.Join(cfg.ResultsDir, "a.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "<!DOCTYPE html>")
	assert.Contains(t, string(html), "&lt;tag&gt;", "markdown must be escaped in the fallback wrapper")
}
