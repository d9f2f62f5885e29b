package severity

import (
	"fmt"
	"strings"
)

// Class is a predicted mental-health status category.
type Class int

const (
	Excellent Class = iota + 1
	Good
	Fair
	Poor
	Critical
)

// Classes lists every class from least to most severe.
var Classes = []Class{Excellent, Good, Fair, Poor, Critical}

func (c Class) String() string {
	switch c {
	case Excellent:
		return "Excellent"
	case Good:
		return "Good"
	case Fair:
		return "Fair"
	case Poor:
		return "Poor"
	case Critical:
		return "Critical"
	default:
		return fmt.Sprintf("Class(%d)", int(c))
	}
}

// Valid reports whether c is one of the known classes.
func (c Class) Valid() bool {
	return c >= Excellent && c <= Critical
}

// ParseClass parses a class label as produced by training. Matching is
// case-insensitive and ignores surrounding whitespace.
func ParseClass(label string) (Class, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "excellent":
		return Excellent, nil
	case "good":
		return Good, nil
	case "fair":
		return Fair, nil
	case "poor":
		return Poor, nil
	case "critical":
		return Critical, nil
	}
	return 0, fmt.Errorf("unknown class %q", label)
}

// MarshalText implements encoding.TextMarshaler.
func (c Class) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid class %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Class) UnmarshalText(text []byte) error {
	parsed, err := ParseClass(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// RiskLevel is the coarse display tier derived from a class.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskModerate RiskLevel = "Moderate"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
)

// RiskLevelFor maps a class to its risk level. It never fails: classes
// outside the enumeration map to RiskLow.
func RiskLevelFor(c Class) RiskLevel {
	switch c {
	case Critical:
		return RiskCritical
	case Poor:
		return RiskHigh
	case Fair:
		return RiskModerate
	case Good, Excellent:
		return RiskLow
	default:
		return RiskLow
	}
}

// RequiresIntervention reports whether a risk level warrants follow-up.
func (r RiskLevel) RequiresIntervention() bool {
	return r == RiskHigh || r == RiskCritical
}
