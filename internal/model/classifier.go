package model

import (
	"fmt"

	"github.com/mindcareai/mindcare/internal/severity"
	"github.com/shopspring/decimal"
)

// Classifier predicts a severity class from an encoded feature vector whose
// columns follow Features().
type Classifier interface {
	Predict(features []float64) (Prediction, error)
	Classes() []severity.Class
	Features() []string
}

// Prediction is a classifier's output for one row.
type Prediction struct {
	Class         severity.Class
	Probabilities []float64
}

// Confidence returns the largest class probability as a percentage rounded
// to two decimal places.
func (p Prediction) Confidence() float64 {
	best := 0.0
	for _, prob := range p.Probabilities {
		if prob > best {
			best = prob
		}
	}
	return decimal.NewFromFloat(best).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
}

// Distribution pairs each class with its probability.
func (p Prediction) Distribution(classes []severity.Class) map[string]float64 {
	out := make(map[string]float64, len(classes))
	for i, c := range classes {
		if i < len(p.Probabilities) {
			out[c.String()] = p.Probabilities[i]
		}
	}
	return out
}

// ShapeError reports a feature vector that does not match the trained columns.
type ShapeError struct {
	Missing    []string
	Unexpected []string
	Column     string
	Err        error
}

func (e *ShapeError) Error() string {
	switch {
	case e.Column != "":
		return fmt.Sprintf("feature %s: %v", e.Column, e.Err)
	case len(e.Missing) > 0 && len(e.Unexpected) > 0:
		return fmt.Sprintf("feature names mismatch: missing %v, unexpected %v", e.Missing, e.Unexpected)
	case len(e.Missing) > 0:
		return fmt.Sprintf("feature names mismatch: missing %v", e.Missing)
	case len(e.Unexpected) > 0:
		return fmt.Sprintf("feature names mismatch: unexpected %v", e.Unexpected)
	default:
		return fmt.Sprintf("feature shape mismatch: %v", e.Err)
	}
}

func (e *ShapeError) Unwrap() error {
	return e.Err
}
