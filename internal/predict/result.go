package predict

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/mindcareai/mindcare/internal/encoder"
	"github.com/mindcareai/mindcare/internal/severity"
)

// Result is the outcome of one prediction. It serializes to one of two
// shapes: a success carrying the prediction, or a failure carrying only the
// error message.
type Result struct {
	Success         bool
	Prediction      severity.Class
	Confidence      float64
	RiskLevel       severity.RiskLevel
	RiskFactors     []string
	Recommendations []string
	Error           string

	// Diagnostics, not part of the serialized result.
	Probabilities     map[string]float64
	EncodingFallbacks []encoder.Fallback
	Heuristic         bool
	Cached            bool
}

// Failure builds a failed result from err.
func Failure(err error) Result {
	return Result{Error: err.Error()}
}

// Err returns the failure as an error, or nil on success.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	return errors.New(r.Error)
}

// RequiresIntervention reports whether the result calls for follow-up.
func (r Result) RequiresIntervention() bool {
	return r.Success && r.RiskLevel.RequiresIntervention()
}

type successBody struct {
	Success         bool               `json:"success" yaml:"success"`
	Prediction      severity.Class     `json:"prediction" yaml:"prediction"`
	Confidence      float64            `json:"confidence" yaml:"confidence"`
	RiskLevel       severity.RiskLevel `json:"risk_level" yaml:"risk_level"`
	RiskFactors     []string           `json:"risk_factors" yaml:"risk_factors"`
	Recommendations []string           `json:"recommendations" yaml:"recommendations"`
}

type failureBody struct {
	Success bool   `json:"success" yaml:"success"`
	Error   string `json:"error" yaml:"error"`
}

func (r Result) body() interface{} {
	if !r.Success {
		return failureBody{Error: r.Error}
	}
	return successBody{
		Success:         true,
		Prediction:      r.Prediction,
		Confidence:      r.Confidence,
		RiskLevel:       r.RiskLevel,
		RiskFactors:     nonNil(r.RiskFactors),
		Recommendations: nonNil(r.Recommendations),
	}
}

// MarshalJSON implements json.Marshaler. Messages are written verbatim,
// without HTML escaping of characters such as '>'.
func (r Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r.body()); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// MarshalYAML implements yaml.Marshaler.
func (r Result) MarshalYAML() (interface{}, error) {
	return r.body(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Result) UnmarshalJSON(data []byte) error {
	var raw struct {
		Success         bool               `json:"success"`
		Prediction      string             `json:"prediction"`
		Confidence      float64            `json:"confidence"`
		RiskLevel       severity.RiskLevel `json:"risk_level"`
		RiskFactors     []string           `json:"risk_factors"`
		Recommendations []string           `json:"recommendations"`
		Error           string             `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if !raw.Success {
		*r = Result{Error: raw.Error}
		return nil
	}

	class, err := severity.ParseClass(raw.Prediction)
	if err != nil {
		return err
	}
	*r = Result{
		Success:         true,
		Prediction:      class,
		Confidence:      raw.Confidence,
		RiskLevel:       raw.RiskLevel,
		RiskFactors:     raw.RiskFactors,
		Recommendations: raw.Recommendations,
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
