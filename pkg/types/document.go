// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ConversionStatus indicates the outcome of a document's conversion attempt.
type ConversionStatus string

const (
	// ConversionNone means the document was skipped; its artifacts already exist.
	ConversionNone ConversionStatus = "skipped"
	// ConversionDone means the document was converted and its artifacts written.
	ConversionDone ConversionStatus = "converted"
	// ConversionFailed means conversion or artifact writing failed.
	ConversionFailed ConversionStatus = "failed"
)

// Document holds the paths and outcome for one input file in a batch run.
type Document struct {
	// Name is the input file name as supplied by the caller (e.g. "farm.pdf").
	Name string `json:"name" yaml:"name"`

	// SourcePath is the input path resolved against the data directory.
	SourcePath string `json:"source_path" yaml:"source_path"`

	// MarkdownPath is the Markdown artifact path in the results directory.
	MarkdownPath string `json:"markdown_path,omitempty" yaml:"markdown_path,omitempty"`

	// HTMLPath is the HTML artifact path in the results directory.
	HTMLPath string `json:"html_path,omitempty" yaml:"html_path,omitempty"`

	// Status tracks the outcome of the conversion attempt.
	Status ConversionStatus `json:"status" yaml:"status"`

	// Detail carries the error message for failed documents.
	Detail string `json:"detail,omitempty" yaml:"detail,omitempty"`

	// Duration is the wall-clock time spent on this document.
	Duration time.Duration `json:"duration" yaml:"duration"`
}
