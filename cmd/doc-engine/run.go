// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/doc-engine/internal/container"
	"github.com/pdiddy/doc-engine/internal/convert"
	"github.com/pdiddy/doc-engine/internal/engine"
	"github.com/pdiddy/doc-engine/internal/ledger"
	"github.com/pdiddy/doc-engine/internal/poppler"
	"github.com/pdiddy/doc-engine/internal/runlog"
	"github.com/pdiddy/doc-engine/internal/secrets"
	"github.com/pdiddy/doc-engine/pkg/types"
)

const (
	defaultTimeout   = 120 * time.Second
	defaultUserAgent = "doc-engine/0.1"
)

var runCmd = &cobra.Command{
	Use:   "run [files...]",
	Short: "Convert PDF files to Markdown and HTML artifacts",
	Long: `Run converts the named PDF files (resolved against the data directory)
and writes Markdown and HTML artifacts to the results directory. Files whose
artifacts already exist are skipped; a single file's failure never aborts the
batch. Every run writes a timestamped log file and a ledger entry.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().String("pipeline", "", "conversion backend: docling, serve, or hybrid (default docling)")
	runCmd.Flags().String("data-dir", "", "input directory (default data)")
	runCmd.Flags().String("results-dir", "", "artifact directory (default results)")
	runCmd.Flags().String("logs-dir", "", "log and ledger directory (default logs)")
	runCmd.Flags().String("formats", "", "comma-separated artifact formats: markdown,html (default both)")
	runCmd.Flags().String("image", "", "docling container image (default docling:latest)")
	runCmd.Flags().String("serve-url", "", "docling-serve base URL")
	runCmd.Flags().String("model", "", "vision model for the hybrid pipeline (default gpt-4o)")
	runCmd.Flags().Duration("timeout", 0, "HTTP request timeout for remote backends (default 120s)")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more input file names (e.g. farm.pdf)")
	}

	cfg := engineConfigFromFlags(cmd)
	conv, err := buildConverter(cmd, cfg.Pipeline)
	if err != nil {
		return err
	}

	log, err := runlog.Open(cfg.LogsDir, os.Stdout)
	if err != nil {
		return err
	}
	defer log.Close()

	started := time.Now()
	result, err := engine.New(cfg, conv, log.Writer()).Run(cmd.Context(), args)
	if err != nil {
		return err
	}

	if err := recordRun(cmd, cfg, conv.Name(), started, result); err != nil {
		// Ledger trouble should not mask a completed batch.
		fmt.Fprintf(os.Stderr, "warning: could not record run in ledger: %v\n", err)
	}

	if result.HasFailures() {
		return fmt.Errorf("%d file(s) failed conversion", result.Failed)
	}
	return nil
}

func recordRun(cmd *cobra.Command, cfg types.EngineConfig, pipeline string, started time.Time, result engine.BatchResult) error {
	led, err := ledger.Open(cfg.LogsDir)
	if err != nil {
		return err
	}
	defer led.Close()

	_, err = led.Record(cmd.Context(), ledger.Run{
		StartedAt:  started,
		FinishedAt: time.Now(),
		Pipeline:   pipeline,
		Converted:  result.Converted,
		Skipped:    result.Skipped,
		Failed:     result.Failed,
	}, result.Documents)
	return err
}

// engineConfigFromFlags resolves engine settings from flags, then the
// viper config file / environment, then built-in defaults.
func engineConfigFromFlags(cmd *cobra.Command) types.EngineConfig {
	cfg := types.EngineConfig{
		DataDir:    stringSetting(cmd, "data-dir", "engine.data_dir", "data"),
		ResultsDir: stringSetting(cmd, "results-dir", "engine.results_dir", "results"),
		LogsDir:    stringSetting(cmd, "logs-dir", "engine.logs_dir", "logs"),
		Pipeline:   types.PipelineKind(stringSetting(cmd, "pipeline", "engine.pipeline", string(types.PipelineDocling))),
	}

	if formats := stringSetting(cmd, "formats", "engine.formats", ""); formats != "" {
		for _, f := range strings.Split(formats, ",") {
			switch strings.TrimSpace(f) {
			case "markdown", "md":
				cfg.Formats = append(cfg.Formats, types.FormatMarkdown)
			case "html":
				cfg.Formats = append(cfg.Formats, types.FormatHTML)
			}
		}
	}
	return cfg
}

// buildConverter constructs the backend named by pipeline.
func buildConverter(cmd *cobra.Command, pipeline types.PipelineKind) (convert.Converter, error) {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}
	httpCfg := types.HTTPConfig{Timeout: timeout, UserAgent: defaultUserAgent}

	switch pipeline {
	case types.PipelineDocling:
		rt, err := container.DetectRuntime()
		if err != nil {
			return nil, err
		}
		return convert.NewDoclingConverter(rt, types.DoclingConfig{
			Image: stringSetting(cmd, "image", "docling.image", ""),
		})

	case types.PipelineServe:
		return convert.NewServeConverter(types.ServeConfig{
			HTTPConfig: httpCfg,
			BaseURL:    stringSetting(cmd, "serve-url", "serve.base_url", ""),
			APIKey:     secrets.Resolve(loadedSecrets, "docling-serve-token"),
		})

	case types.PipelineHybrid:
		tool, err := poppler.NewTool()
		if err != nil {
			return nil, err
		}
		return convert.NewHybridConverter(tool, types.HybridConfig{
			HTTPConfig: httpCfg,
			Model:      stringSetting(cmd, "model", "hybrid.model", ""),
			APIKey:     secrets.Resolve(loadedSecrets, "openai-api-key"),
			BaseURL:    viper.GetString("hybrid.base_url"),
			MinWords:   viper.GetInt("hybrid.min_words"),
		})

	default:
		return nil, fmt.Errorf("unknown pipeline %q: use docling, serve, or hybrid", pipeline)
	}
}

// stringSetting reads a flag, falling back to the viper key, then def.
func stringSetting(cmd *cobra.Command, flag, key, def string) string {
	if v, _ := cmd.Flags().GetString(flag); v != "" {
		return v
	}
	if v := viper.GetString(key); v != "" {
		return v
	}
	return def
}
