// Package metrics grades raw web-vital measurements against good/poor
// thresholds.
package metrics

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pagegrade/pagegrade/pkg/audit"
)

var (
	// ErrEmptyValue means no measurement was reported.
	ErrEmptyValue = errors.New("empty metric value")
	// ErrMalformedValue means the measurement could not be parsed.
	ErrMalformedValue = errors.New("malformed metric value")
)

// Unit is the unit a threshold pair is expressed in.
type Unit string

const (
	UnitNone         Unit = ""
	UnitSeconds      Unit = "s"
	UnitMilliseconds Unit = "ms"
)

// ParseUnit validates a unit name. The empty string means unitless.
func ParseUnit(s string) (Unit, error) {
	switch Unit(s) {
	case UnitNone, UnitSeconds, UnitMilliseconds:
		return Unit(s), nil
	}
	return "", fmt.Errorf("unknown unit %q (want s, ms or empty)", s)
}

// Band is the quality band of a graded value.
type Band string

const (
	BandGood Band = "good"
	BandWarn Band = "warn"
	BandPoor Band = "poor"
)

// Graded is a parsed measurement with its band.
type Graded struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit,omitempty"`
	Band  Band    `json:"band"`
}

// Grade parses raw and classifies it: v <= good is good, v <= poor is warn,
// anything above poor is poor. A value suffixed with the other time unit than
// unit is converted first.
func Grade(raw audit.RawValue, good, poor float64, unit Unit) (Graded, error) {
	v, err := Parse(raw, unit)
	if err != nil {
		return Graded{}, err
	}
	return Graded{Value: v, Unit: unit, Band: Classify(v, good, poor)}, nil
}

// Classify maps a parsed value to its band.
func Classify(v, good, poor float64) Band {
	switch {
	case v <= good:
		return BandGood
	case v <= poor:
		return BandWarn
	default:
		return BandPoor
	}
}

// Parse extracts the number from raw, stripping whitespace (including
// non-breaking spaces), thousands separators and a trailing ms or s suffix.
func Parse(raw audit.RawValue, unit Unit) (float64, error) {
	s := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '\u00a0', '\u202f', ',':
			return -1
		}
		return r
	}, string(raw))
	if s == "" {
		return 0, ErrEmptyValue
	}

	var suffix Unit
	switch {
	case strings.HasSuffix(s, "ms"):
		suffix = UnitMilliseconds
		s = strings.TrimSuffix(s, "ms")
	case strings.HasSuffix(s, "s"):
		suffix = UnitSeconds
		s = strings.TrimSuffix(s, "s")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrMalformedValue, string(raw))
	}

	switch {
	case suffix == UnitMilliseconds && unit == UnitSeconds:
		v /= 1000
	case suffix == UnitSeconds && unit == UnitMilliseconds:
		v *= 1000
	}
	return v, nil
}
