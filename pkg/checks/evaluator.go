package checks

import (
	"errors"
	"fmt"
)

// Evaluate runs rules against the subject and returns one verdict per rule in
// the order given.
//
// A rule whose data is not available passes with its positive text. A rule
// that fails to evaluate gets a failing verdict with Error set; the other
// rules are still evaluated and all such errors are returned joined.
func Evaluate(subject Subject, rules []Rule) ([]Verdict, error) {
	verdicts := make([]Verdict, 0, len(rules))
	var errs []error

	for _, r := range rules {
		v := Verdict{
			Key:         r.Key,
			Title:       r.Title,
			Description: r.Description,
		}
		if err := evaluate(subject, r, &v); err != nil {
			err = fmt.Errorf("rule %s: %w", r.Key, err)
			v.Passed = false
			v.Known = false
			v.Text = r.NegativeText
			v.Evidence = nil
			v.Error = err.Error()
			errs = append(errs, err)
		}
		verdicts = append(verdicts, v)
	}

	return verdicts, errors.Join(errs...)
}

func evaluate(subject Subject, r Rule, v *Verdict) error {
	switch s := r.Shape.(type) {
	case Direct:
		passed, known := s.Flag(subject)
		v.Known = known
		v.Passed = passed || !known
	case AllOrNothing:
		flags, known := s.Fields(subject)
		v.Known = known && len(flags) > 0
		if !v.Known {
			v.Passed = true
			break
		}
		trueCount := 0
		for _, f := range flags {
			if f {
				trueCount++
			}
		}
		v.Passed = trueCount == len(flags)
		if trueCount == 0 && s.NoneText != "" {
			v.Text = s.NoneText
			return nil
		}
	case IssueDerived:
		evidence, known, err := s.Evidence(subject)
		if err != nil {
			return err
		}
		v.Known = known
		v.Passed = !known || len(evidence) == 0
		if !v.Passed {
			v.Evidence = evidence
		}
	default:
		return fmt.Errorf("unsupported rule shape %T", r.Shape)
	}

	if v.Passed {
		v.Text = r.PositiveText
	} else {
		v.Text = r.NegativeText
	}
	return nil
}
