// Package main provides the pagegrade CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pagegrade",
		Short: "Grade website audit results",
		Long: `pagegrade turns the raw results of a website audit (SEO, performance,
security and design analyzers) into pass/fail verdicts, graded web vitals,
category scores and one composite score.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newEvaluateCmd(),
		newGradeCmd(),
		newReconcileCmd(),
	)
	return rootCmd
}
