// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/doc-engine/pkg/types"
)

// serveFixture is a minimal docling-serve stand-in: accepts an upload,
// reports "started" for a configurable number of polls, then serves the
// result document.
type serveFixture struct {
	pollsUntilDone int32
	polls          int32
	markdown       string
	html           string
	failTask       bool
	gotAuth        string
	gotFilename    string
}

func (f *serveFixture) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(submitPath, func(w http.ResponseWriter, r *http.Request) {
		f.gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if fhs := r.MultipartForm.File["files"]; len(fhs) > 0 {
			f.gotFilename = fhs[0].Filename
		}
		json.NewEncoder(w).Encode(task{TaskID: "task-1", TaskStatus: taskStarted})
	})
	mux.HandleFunc(statusPath+"task-1", func(w http.ResponseWriter, r *http.Request) {
		status := taskStarted
		if atomic.AddInt32(&f.polls, 1) > f.pollsUntilDone {
			status = taskSuccess
			if f.failTask {
				status = taskFailure
			}
		}
		json.NewEncoder(w).Encode(task{TaskID: "task-1", TaskStatus: status})
	})
	mux.HandleFunc(resultPath+"task-1", func(w http.ResponseWriter, r *http.Request) {
		var tr taskResult
		tr.TaskStatus = taskSuccess
		tr.Document.Filename = f.gotFilename
		tr.Document.Markdown = f.markdown
		tr.Document.HTML = f.html
		json.NewEncoder(w).Encode(tr)
	})
	return mux
}

func serveConfig(url string) types.ServeConfig {
	return types.ServeConfig{
		BaseURL:      url,
		APIKey:       "tok_test",
		PollInterval: time.Millisecond,
		MaxPolls:     10,
	}
}

func TestServeConvert(t *testing.T) {
	fixture := &serveFixture{pollsUntilDone: 2, markdown: "# Doc", html: "<h1>Doc</h1>"}
	ts := httptest.NewServer(fixture.handler())
	defer ts.Close()

	conv, err := NewServeConverter(serveConfig(ts.URL))
	require.NoError(t, err)

	res, err := conv.Convert(context.Background(), writePDF(t))
	require.NoError(t, err)
	assert.Equal(t, "# Doc", res.Markdown)
	assert.Equal(t, "<h1>Doc</h1>", res.HTML)
	assert.Equal(t, "Bearer tok_test", fixture.gotAuth)
	assert.Equal(t, "farm.pdf", fixture.gotFilename)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&fixture.polls), int32(3))
}

func TestServeConvertTaskFailure(t *testing.T) {
	fixture := &serveFixture{failTask: true}
	ts := httptest.NewServer(fixture.handler())
	defer ts.Close()

	conv, err := NewServeConverter(serveConfig(ts.URL))
	require.NoError(t, err)

	_, err = conv.Convert(context.Background(), writePDF(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conversion failed on the server")
}

func TestServeConvertPollBudgetExhausted(t *testing.T) {
	fixture := &serveFixture{pollsUntilDone: 1000}
	ts := httptest.NewServer(fixture.handler())
	defer ts.Close()

	cfg := serveConfig(ts.URL)
	cfg.MaxPolls = 3
	conv, err := NewServeConverter(cfg)
	require.NoError(t, err)

	_, err = conv.Convert(context.Background(), writePDF(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not complete after 3 polls")
}

func TestServeConvertEmptyDocument(t *testing.T) {
	fixture := &serveFixture{pollsUntilDone: 0, markdown: ""}
	ts := httptest.NewServer(fixture.handler())
	defer ts.Close()

	conv, err := NewServeConverter(serveConfig(ts.URL))
	require.NoError(t, err)

	_, err = conv.Convert(context.Background(), writePDF(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty document")
}

func TestServeConvertSubmitRejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer ts.Close()

	conv, err := NewServeConverter(serveConfig(ts.URL))
	require.NoError(t, err)

	_, err = conv.Convert(context.Background(), writePDF(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 400")
}

func TestServeConvertContextCancelled(t *testing.T) {
	fixture := &serveFixture{pollsUntilDone: 1000}
	ts := httptest.NewServer(fixture.handler())
	defer ts.Close()

	cfg := serveConfig(ts.URL)
	cfg.PollInterval = 50 * time.Millisecond
	conv, err := NewServeConverter(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = conv.Convert(ctx, writePDF(t))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), context.DeadlineExceeded.Error()))
}

func TestNewServeConverterRequiresBaseURL(t *testing.T) {
	_, err := NewServeConverter(types.ServeConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base URL not configured")
}

func TestServeConvertMissingFile(t *testing.T) {
	conv, err := NewServeConverter(serveConfig("http://localhost:0"))
	require.NoError(t, err)

	_, err = conv.Convert(context.Background(), filepath.Join(t.TempDir(), "ghost.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening PDF")
}
