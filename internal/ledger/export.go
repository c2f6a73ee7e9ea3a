// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// ExportEntry holds one run with its per-file outcomes for export.
type ExportEntry struct {
	Run      Run       `json:"run" yaml:"run"`
	Outcomes []Outcome `json:"outcomes" yaml:"outcomes"`
}

// Export writes the full run history to w in the given format ("yaml" or
// "json"), newest run first.
func (l *Ledger) Export(ctx context.Context, w io.Writer, format string) error {
	runs, err := l.Runs(ctx, 0)
	if err != nil {
		return err
	}

	entries := make([]ExportEntry, len(runs))
	for i, r := range runs {
		outcomes, err := l.Outcomes(ctx, r.ID)
		if err != nil {
			return err
		}
		entries[i] = ExportEntry{Run: r, Outcomes: outcomes}
	}

	switch format {
	case "yaml", "":
		data, err := yaml.Marshal(entries)
		if err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		_, err = w.Write(data)
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
}
