// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/doc-engine/internal/container"
	"github.com/pdiddy/doc-engine/internal/poppler"
	"github.com/pdiddy/doc-engine/internal/secrets"
)

var pipelinesCmd = &cobra.Command{
	Use:   "pipelines",
	Short: "List conversion backends and their availability",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "%-8s  %-12s  %s\n", "Name", "Status", "Requires")

		doclingStatus := "ready"
		if _, err := container.DetectRuntime(); err != nil {
			doclingStatus = "unavailable"
		}
		fmt.Fprintf(os.Stdout, "%-8s  %-12s  %s\n", "docling", doclingStatus, "docker or podman with the docling image")

		serveStatus := "ready"
		if viper.GetString("serve.base_url") == "" {
			serveStatus = "unconfigured"
		}
		fmt.Fprintf(os.Stdout, "%-8s  %-12s  %s\n", "serve", serveStatus, "serve.base_url in doc-engine.yaml")

		hybridStatus := "ready"
		if _, err := poppler.NewTool(); err != nil {
			hybridStatus = "unavailable"
		} else if secrets.Resolve(loadedSecrets, "openai-api-key") == "" {
			hybridStatus = "no api key"
		}
		fmt.Fprintf(os.Stdout, "%-8s  %-12s  %s\n", "hybrid", hybridStatus, "poppler-utils and OPENAI_API_KEY")
	},
}

func init() {
	rootCmd.AddCommand(pipelinesCmd)
}
