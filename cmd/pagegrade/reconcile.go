package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pagegrade/pagegrade/pkg/audit"
	"github.com/pagegrade/pagegrade/pkg/scoring"
)

func newReconcileCmd() *cobra.Command {
	var codePath, imagePath string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Combine the code and image design grade reports into one design score",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd.OutOrStdout(), codePath, imagePath)
		},
	}

	cmd.Flags().StringVar(&codePath, "code", "", "Path to the code design grade report (required)")
	cmd.Flags().StringVar(&imagePath, "image", "", "Path to the image design grade report (required)")
	_ = cmd.MarkFlagRequired("code")
	_ = cmd.MarkFlagRequired("image")

	return cmd
}

func runReconcile(w io.Writer, codePath, imagePath string) error {
	code, err := readDesignReport(codePath)
	if err != nil {
		return err
	}
	image, err := readDesignReport(imagePath)
	if err != nil {
		return err
	}

	score, ok, err := scoring.ReconcileDesign(code, image)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("both design reports are required")
	}
	fmt.Fprintf(w, "%g\n", score)
	return nil
}

func readDesignReport(path string) (*audit.DesignGradeReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading design report: %w", err)
	}
	var report audit.DesignGradeReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parsing design report %s: %w", path, err)
	}
	return &report, nil
}
