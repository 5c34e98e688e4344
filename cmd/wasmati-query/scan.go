// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/darkmacheken/wasmati/analysis"
	"github.com/darkmacheken/wasmati/analysis/config"
	"github.com/darkmacheken/wasmati/analysis/detectors"
	"github.com/darkmacheken/wasmati/analysis/report"
	"github.com/darkmacheken/wasmati/analysis/storage"
	"github.com/darkmacheken/wasmati/analysis/telemetry"
	"github.com/darkmacheken/wasmati/internal/formatutil"
	"github.com/spf13/cobra"
)

var (
	scanDetectors   []string
	scanFormat      string
	scanOut         string
	scanMetricsAddr string

	scanCmd = &cobra.Command{
		Use:   "scan",
		Short: "Run the detectors on a graph and report their findings",
		Long: "Run the detectors on a graph and report their findings.\n\nDetectors: " +
			strings.Join(detectors.Names(), ", "),
		Args: cobra.NoArgs,
		RunE: runScan,
	}
)

func init() {
	scanCmd.Flags().StringSliceVar(&scanDetectors, "detectors", nil,
		"detectors to run (default: the detectors of the config, or all of them)")
	scanCmd.Flags().StringVar(&scanFormat, "format", string(report.CSV), "report format: csv or json")
	scanCmd.Flags().StringVar(&scanOut, "out", "",
		"directory of the reports (default: the reports-dir of the config, or the standard output)")
	scanCmd.Flags().StringVar(&scanMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
}

func loadConfig() (*config.Config, *config.LogGroup, error) {
	config.SetGlobalConfig(configPath)
	cfg, err := config.LoadGlobal()
	if err != nil {
		return nil, nil, err
	}
	return cfg, config.NewLogGroup(cfg), nil
}

func runScan(cmd *cobra.Command, _ []string) error {
	if graphURL == "" {
		return fmt.Errorf("missing --graph")
	}
	format, err := report.ParseFormat(scanFormat)
	if err != nil {
		return err
	}
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	metrics := telemetry.NewMetrics()
	if scanMetricsAddr != "" {
		serveCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			if err := metrics.Serve(serveCtx, scanMetricsAddr); err != nil {
				logger.Errorf("metrics server: %v", err)
			}
		}()
		logger.Infof("Serving metrics on %s/metrics", scanMetricsAddr)
	}

	g, err := storage.Open(ctx, graphURL, logger)
	if err != nil {
		return err
	}
	fingerprint, err := storage.Fingerprint(g)
	if err != nil {
		return err
	}
	logger.Infof("Graph fingerprint %s", fingerprint)

	run, err := analysis.RunDetectors(ctx, analysis.RunParams{
		Store:     g,
		Config:    cfg,
		Logger:    logger,
		Metrics:   metrics,
		Detectors: scanDetectors,
	})
	if err != nil {
		return err
	}

	out := scanOut
	if out == "" {
		out = cfg.ReportsDir
	}
	err = report.Write(run, report.Options{
		Format:      format,
		Dir:         out,
		Out:         cmd.OutOrStdout(),
		Graph:       graphURL,
		Fingerprint: fingerprint,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	printSummary(cmd, run)

	if failed := run.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d detectors failed", len(failed))
	}
	return nil
}

// printSummary writes the number of rows of each detector on the error output, which is not the report output
func printSummary(cmd *cobra.Command, run *analysis.RunResult) {
	w := cmd.ErrOrStderr()
	fmt.Fprintf(w, "%s %s\n", formatutil.Bold("Run"), run.RunID)
	for _, res := range run.Results {
		status := ""
		switch {
		case res.Err != nil:
			status = formatutil.Red(" failed: " + res.Err.Error())
		case res.Truncated:
			status = formatutil.Yellow(" (timed out, partial results)")
		}
		fmt.Fprintf(w, "  %-24s %s%s\n", res.Name, formatutil.Count(len(res.Rows)), status)
	}
}
