// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by backends that call remote APIs.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "doc-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// PipelineKind identifies the conversion backend.
type PipelineKind string

const (
	// PipelineDocling runs the docling container image locally.
	PipelineDocling PipelineKind = "docling"
	// PipelineServe talks to a docling-serve HTTP endpoint.
	PipelineServe PipelineKind = "serve"
	// PipelineHybrid extracts the text layer with poppler and sends
	// low-quality pages to a remote vision model.
	PipelineHybrid PipelineKind = "hybrid"
)

// ExportFormat selects a conversion output format.
type ExportFormat string

const (
	FormatMarkdown ExportFormat = "markdown"
	FormatHTML     ExportFormat = "html"
)

// DefaultFormats is the artifact set written when no formats are configured.
var DefaultFormats = []ExportFormat{FormatMarkdown, FormatHTML}

// EngineConfig holds settings for the batch conversion driver.
type EngineConfig struct {
	// DataDir is the directory input file names are resolved against.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// ResultsDir is the directory conversion artifacts are written to.
	// Artifact existence in this directory is the cache signal: inputs
	// whose artifacts are all present are skipped.
	ResultsDir string `json:"results_dir" yaml:"results_dir"`

	// LogsDir is the directory run logs and the run ledger live in.
	LogsDir string `json:"logs_dir" yaml:"logs_dir"`

	// Pipeline selects the conversion backend: docling, serve, or hybrid.
	Pipeline PipelineKind `json:"pipeline" yaml:"pipeline"`

	// Formats lists the artifacts to write per input (default: markdown, html).
	Formats []ExportFormat `json:"formats" yaml:"formats"`
}

// DoclingConfig holds settings for the containerized docling backend.
type DoclingConfig struct {
	// Image is the docling container image (default "docling:latest").
	Image string `json:"image" yaml:"image"`
}

// ServeConfig holds settings for the docling-serve HTTP backend.
type ServeConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the docling-serve endpoint (e.g. "http://localhost:5001").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// APIKey authenticates against a protected docling-serve deployment.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// PollInterval is the delay between task status polls (default 2s).
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`

	// MaxPolls bounds how many times a task is polled before giving up (default 150).
	MaxPolls int `json:"max_polls" yaml:"max_polls"`
}

// HybridConfig holds settings for the text-layer + remote vision model backend.
type HybridConfig struct {
	HTTPConfig `yaml:",inline"`

	// Model is the vision model identifier (default "gpt-4o").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the vision API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the vision API endpoint, for proxies and tests.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// MinWords is the per-page word count below which the text layer is
	// considered unusable (default 10).
	MinWords int `json:"min_words" yaml:"min_words"`

	// OCRTriggerRatio is the fraction of unusable pages above which the
	// whole document is sent to the vision model (default 0.3).
	OCRTriggerRatio float64 `json:"ocr_trigger_ratio" yaml:"ocr_trigger_ratio"`

	// MaxRetries is the number of retry attempts for rate-limited API calls
	// (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// PipelineConfig groups all backend configurations.
type PipelineConfig struct {
	Engine  EngineConfig  `json:"engine" yaml:"engine"`
	Docling DoclingConfig `json:"docling" yaml:"docling"`
	Serve   ServeConfig   `json:"serve" yaml:"serve"`
	Hybrid  HybridConfig  `json:"hybrid" yaml:"hybrid"`
}
