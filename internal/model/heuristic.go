package model

import (
	"fmt"
	"math"

	"github.com/mindcareai/mindcare/internal/record"
	"github.com/mindcareai/mindcare/internal/severity"
)

// heuristicBand maps a minimum symptom average to a class and its fixed
// confidence.
type heuristicBand struct {
	min        float64
	class      severity.Class
	confidence float64
}

var heuristicBands = []heuristicBand{
	{9, severity.Critical, 0.95},
	{7, severity.Poor, 0.88},
	{5, severity.Fair, 0.85},
	{3, severity.Good, 0.90},
	{math.Inf(-1), severity.Excellent, 0.92},
}

// Heuristic is a stand-in classifier used when no trained model can be
// loaded. It scores the average of stress, anxiety and depression.
type Heuristic struct {
	features []string
	index    map[string]int
}

// NewHeuristic builds the fallback classifier over the given column order.
// The stress, anxiety and depression columns must all be present.
func NewHeuristic(features []string) (*Heuristic, error) {
	h := &Heuristic{
		features: append([]string(nil), features...),
		index:    make(map[string]int, len(features)),
	}
	for i, f := range features {
		h.index[f] = i
	}
	for _, f := range []string{record.StressLevel, record.AnxietyLevel, record.DepressionSymptoms} {
		if _, ok := h.index[f]; !ok {
			return nil, fmt.Errorf("heuristic needs column %s", f)
		}
	}
	return h, nil
}

// Classes returns the fallback classes in severity order.
func (h *Heuristic) Classes() []severity.Class {
	return append([]severity.Class(nil), severity.Classes...)
}

// Features returns the column order the heuristic reads.
func (h *Heuristic) Features() []string {
	return append([]string(nil), h.features...)
}

// Predict returns a distribution concentrated on the banded class, with the
// remaining mass spread evenly over the other classes.
func (h *Heuristic) Predict(features []float64) (Prediction, error) {
	if len(features) != len(h.features) {
		return Prediction{}, &ShapeError{Err: fmt.Errorf("got %d features, model expects %d", len(features), len(h.features))}
	}

	sum := 0.0
	for _, f := range []string{record.StressLevel, record.AnxietyLevel, record.DepressionSymptoms} {
		sum += math.Trunc(features[h.index[f]])
	}
	avg := sum / 3

	band := heuristicBands[len(heuristicBands)-1]
	for _, b := range heuristicBands {
		if avg >= b.min {
			band = b
			break
		}
	}

	classes := h.Classes()
	rest := (1 - band.confidence) / float64(len(classes)-1)
	probs := make([]float64, len(classes))
	for i, c := range classes {
		if c == band.class {
			probs[i] = band.confidence
		} else {
			probs[i] = rest
		}
	}
	return Prediction{Class: band.class, Probabilities: probs}, nil
}
