package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/pagegrade/pagegrade/pkg/audit"
	"github.com/pagegrade/pagegrade/pkg/config"
	"github.com/pagegrade/pagegrade/pkg/scoring"
	"github.com/pagegrade/pagegrade/pkg/surface"
)

func newEvaluateCmd() *cobra.Command {
	var opts evaluateOpts

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate an audit run directory",
		Long: `Loads the payload files of a run directory (seo.json, performance.json,
security.json, pages.json, design_code.json, design_image.json), evaluates
every check, grades web vitals, scores each category and renders the report.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.runDir, "run-dir", "", "Path to the audit run directory (required)")
	cmd.Flags().StringVar(&opts.outputFmt, "output", "", "Output format: text, json or markdown (default from config, else text)")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Path to config file (default: search .pagegrade/config.yaml upwards from the run directory)")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().BoolVar(&opts.save, "save", true, "Save the JSON report under the pagegrade cache directory")
	_ = cmd.MarkFlagRequired("run-dir")

	return cmd
}

type evaluateOpts struct {
	runDir     string
	outputFmt  string
	configPath string
	noColor    bool
	save       bool
}

func runEvaluate(ctx context.Context, w io.Writer, opts evaluateOpts) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(opts.configPath, opts.runDir)
	if err != nil {
		return err
	}

	engine, err := cfg.Engine()
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}

	run, err := audit.LoadRun(ctx, opts.runDir)
	if err != nil {
		return fmt.Errorf("loading run: %w", err)
	}

	report, err := engine.Evaluate(run)
	if err != nil {
		return fmt.Errorf("evaluating run: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Evaluated %s: state %s\n", opts.runDir, report.State)

	if opts.save {
		saveReport(opts.runDir, report)
	}

	renderer, err := surface.ForFormat(firstNonEmpty(opts.outputFmt, cfg.Output.Format), cfg.Output.Color && !opts.noColor)
	if err != nil {
		return err
	}
	if err := renderer.Render(w, report); err != nil {
		return fmt.Errorf("rendering: %w", err)
	}
	return nil
}

// saveReport persists a report to the run's report cache directory.
func saveReport(runDir string, report *scoring.Report) {
	reportDir := config.ReportDir(runDir)
	if err := os.MkdirAll(reportDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to create report dir: %v\n", err)
		return
	}

	// Wrap report with metadata
	analyzedAt := time.Now().UTC()
	wrapped := struct {
		*scoring.Report
		AnalyzedAt string `json:"analyzed_at"`
	}{
		Report:     report,
		AnalyzedAt: analyzedAt.Format(time.RFC3339),
	}

	data, err := json.MarshalIndent(wrapped, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to marshal report: %v\n", err)
		return
	}

	path := filepath.Join(reportDir, analyzedAt.Format("20060102T150405Z")+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to save report: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "Report saved: %s\n", path)
}

// loadConfig reads the config file named by path, or the nearest
// .pagegrade/config.yaml above dir, or returns the defaults.
func loadConfig(path, dir string) (*config.Config, error) {
	if path == "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			abs = dir
		}
		path = config.FindConfigFile(abs)
	}
	if path == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	return cfg, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
