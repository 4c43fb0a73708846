package scoring

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pagegrade/pagegrade/pkg/audit"
)

// ReconcileDesign combines the code-based and image-based design reports into
// one design score: the mean of the two final grades. Until both reports are
// present there is no score. Criteria are not compared; the two graders may
// use different criteria sets.
func ReconcileDesign(code, image *audit.DesignGradeReport) (float64, bool, error) {
	if code == nil || image == nil {
		return 0, false, nil
	}
	c, err := ParseFinalGrade(code.FinalGrade)
	if err != nil {
		return 0, false, fmt.Errorf("code design report: %w", err)
	}
	i, err := ParseFinalGrade(image.FinalGrade)
	if err != nil {
		return 0, false, fmt.Errorf("image design report: %w", err)
	}
	return float64(c+i) / 2, true, nil
}

// ParseFinalGrade parses a design grade: an integer between 0 and 100.
func ParseFinalGrade(raw audit.RawValue) (int, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return 0, fmt.Errorf("final grade is empty")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("final grade %q is not an integer", s)
	}
	if n < 0 || n > 100 {
		return 0, fmt.Errorf("final grade %d out of range 0-100", n)
	}
	return n, nil
}
