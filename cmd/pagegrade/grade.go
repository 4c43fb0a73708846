package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pagegrade/pagegrade/pkg/audit"
	"github.com/pagegrade/pagegrade/pkg/metrics"
)

func newGradeCmd() *cobra.Command {
	var (
		value string
		good  float64
		poor  float64
		unit  string
	)

	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Grade one metric value against good/poor thresholds",
		Example: `  pagegrade grade --value "2.9 s" --good 2.5 --poor 4 --unit s
  pagegrade grade --value 350 --good 200 --poor 600 --unit ms`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrade(cmd.OutOrStdout(), value, good, poor, unit)
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "Raw measured value, e.g. \"1.2 s\" (required)")
	cmd.Flags().Float64Var(&good, "good", 0, "Upper bound of the good band")
	cmd.Flags().Float64Var(&poor, "poor", 0, "Upper bound of the warn band")
	cmd.Flags().StringVar(&unit, "unit", "", "Threshold unit: s, ms or empty for unitless")
	_ = cmd.MarkFlagRequired("value")
	_ = cmd.MarkFlagRequired("good")
	_ = cmd.MarkFlagRequired("poor")

	return cmd
}

func runGrade(w io.Writer, value string, good, poor float64, unitName string) error {
	if good > poor {
		return fmt.Errorf("good threshold %g exceeds poor threshold %g", good, poor)
	}
	unit, err := metrics.ParseUnit(unitName)
	if err != nil {
		return err
	}

	g, err := metrics.Grade(audit.RawValue(value), good, poor, unit)
	if err != nil {
		return fmt.Errorf("grading %q: %w", value, err)
	}

	if g.Unit == metrics.UnitNone {
		fmt.Fprintf(w, "%g %s\n", g.Value, g.Band)
	} else {
		fmt.Fprintf(w, "%g %s %s\n", g.Value, g.Unit, g.Band)
	}
	return nil
}
