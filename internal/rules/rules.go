// Package rules derives risk factors and recommendations from a raw input
// record using declarative threshold tables.
package rules

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mindcareai/mindcare/internal/record"
	"github.com/mindcareai/mindcare/internal/severity"
	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var defaultTables []byte

// Operator compares a field value against a threshold.
type Operator string

const (
	GreaterThan    Operator = ">"
	GreaterOrEqual Operator = ">="
	LessThan       Operator = "<"
	LessOrEqual    Operator = "<="
)

// Compare applies the operator.
func (o Operator) Compare(v, threshold float64) bool {
	switch o {
	case GreaterThan:
		return v > threshold
	case GreaterOrEqual:
		return v >= threshold
	case LessThan:
		return v < threshold
	case LessOrEqual:
		return v <= threshold
	default:
		return false
	}
}

func (o Operator) valid() bool {
	switch o {
	case GreaterThan, GreaterOrEqual, LessThan, LessOrEqual:
		return true
	}
	return false
}

// Predicate is a numeric threshold on one field.
type Predicate struct {
	Field     string      `yaml:"field" json:"field"`
	Kind      record.Kind `yaml:"kind" json:"kind"`
	Op        Operator    `yaml:"op" json:"op"`
	Threshold float64     `yaml:"threshold" json:"threshold"`
}

func (p Predicate) String() string {
	return fmt.Sprintf("%s %s %g", p.Field, p.Op, p.Threshold)
}

func (p Predicate) validate() error {
	if p.Field == "" {
		return fmt.Errorf("missing field")
	}
	if p.Kind != record.Float && p.Kind != record.Integer {
		return fmt.Errorf("%s: unknown kind %q", p.Field, p.Kind)
	}
	if !p.Op.valid() {
		return fmt.Errorf("%s: unknown operator %q", p.Field, p.Op)
	}
	return nil
}

// RiskRule flags a risk factor when its threshold holds.
type RiskRule struct {
	Predicate `yaml:",inline"`
	Message   string `yaml:"message" json:"message"`
}

// Condition selects when a recommendation rule fires. Exactly one of
// Classes, a numeric threshold (Field with Op) or Equals is set.
type Condition struct {
	Classes   []severity.Class `yaml:"classes,omitempty" json:"classes,omitempty"`
	Field     string           `yaml:"field,omitempty" json:"field,omitempty"`
	Kind      record.Kind      `yaml:"kind,omitempty" json:"kind,omitempty"`
	Op        Operator         `yaml:"op,omitempty" json:"op,omitempty"`
	Threshold float64          `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	Equals    *string          `yaml:"equals,omitempty" json:"equals,omitempty"`
}

func (c Condition) numeric() bool {
	return c.Op != ""
}

func (c Condition) predicate() Predicate {
	return Predicate{Field: c.Field, Kind: c.Kind, Op: c.Op, Threshold: c.Threshold}
}

func (c Condition) validate() error {
	set := 0
	if len(c.Classes) > 0 {
		set++
	}
	if c.numeric() {
		set++
		if err := c.predicate().validate(); err != nil {
			return err
		}
	}
	if c.Equals != nil {
		set++
		if c.Field == "" {
			return fmt.Errorf("equals condition without field")
		}
	}
	if set != 1 {
		return fmt.Errorf("condition must set exactly one of classes, op or equals")
	}
	return nil
}

// RecommendationRule appends all of its messages when its condition holds.
type RecommendationRule struct {
	Name     string    `yaml:"name" json:"name"`
	When     Condition `yaml:"when" json:"when"`
	Messages []string  `yaml:"messages" json:"messages"`
}

// Tables is the complete rule configuration. It is immutable once loaded
// and safe for concurrent use.
type Tables struct {
	RiskFactors            []RiskRule           `yaml:"risk_factors" json:"risk_factors"`
	NoRiskMessage          string               `yaml:"no_risk_message" json:"no_risk_message"`
	Recommendations        []RecommendationRule `yaml:"recommendations" json:"recommendations"`
	FallbackRecommendation string               `yaml:"fallback_recommendation" json:"fallback_recommendation"`
	MaxRecommendations     int                  `yaml:"max_recommendations" json:"max_recommendations"`
}

// Default returns the built-in tables.
func Default() (*Tables, error) {
	return Parse(defaultTables)
}

// Load reads tables from path, or the built-in tables when path is empty.
func Load(path string) (*Tables, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse decodes and validates YAML tables.
func Parse(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Fingerprint identifies the rule content. Tables with equal rules share a
// fingerprint whatever file they were loaded from.
func (t *Tables) Fingerprint() string {
	data, err := json.Marshal(t)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// Validate checks every rule.
func (t *Tables) Validate() error {
	for i, r := range t.RiskFactors {
		if err := r.validate(); err != nil {
			return fmt.Errorf("risk_factors[%d]: %w", i, err)
		}
		if r.Message == "" {
			return fmt.Errorf("risk_factors[%d]: missing message", i)
		}
	}
	if t.NoRiskMessage == "" {
		return fmt.Errorf("missing no_risk_message")
	}

	names := make(map[string]bool, len(t.Recommendations))
	for i, r := range t.Recommendations {
		if r.Name == "" {
			return fmt.Errorf("recommendations[%d]: missing name", i)
		}
		if names[r.Name] {
			return fmt.Errorf("recommendations[%d]: duplicate name %q", i, r.Name)
		}
		names[r.Name] = true
		if err := r.When.validate(); err != nil {
			return fmt.Errorf("recommendations[%d] %s: %w", i, r.Name, err)
		}
		if len(r.Messages) == 0 {
			return fmt.Errorf("recommendations[%d] %s: no messages", i, r.Name)
		}
	}
	if t.FallbackRecommendation == "" {
		return fmt.Errorf("missing fallback_recommendation")
	}
	if t.MaxRecommendations <= 0 {
		return fmt.Errorf("max_recommendations must be positive")
	}
	return nil
}
