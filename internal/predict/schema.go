package predict

import (
	"github.com/invopop/jsonschema"
	"github.com/mindcareai/mindcare/internal/severity"
)

// Schema returns the JSON schema of a serialized Result: either a success
// body or a failure body. A positive maxRecommendations caps the
// recommendations array.
func Schema(maxRecommendations int) *jsonschema.Schema {
	r := &jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
	}

	success := r.Reflect(&successBody{})
	success.Version = ""
	setEnum(success, "prediction", classLabels())
	setEnum(success, "risk_level", []string{
		string(severity.RiskLow), string(severity.RiskModerate),
		string(severity.RiskHigh), string(severity.RiskCritical),
	})
	if prop, ok := success.Properties.Get("success"); ok {
		prop.Const = true
	}
	if prop, ok := success.Properties.Get("recommendations"); ok && maxRecommendations > 0 {
		prop.MaxItems = ptr(uint64(maxRecommendations))
	}

	failure := r.Reflect(&failureBody{})
	failure.Version = ""
	if prop, ok := failure.Properties.Get("success"); ok {
		prop.Const = false
	}

	return &jsonschema.Schema{
		Version: jsonschema.Version,
		ID:      "https://schemas.mindcare.ai/v1/result",
		Title:   "MindCare prediction result",
		OneOf:   []*jsonschema.Schema{success, failure},
	}
}

func classLabels() []string {
	labels := make([]string, len(severity.Classes))
	for i, c := range severity.Classes {
		labels[i] = c.String()
	}
	return labels
}

func setEnum(s *jsonschema.Schema, key string, values []string) {
	prop, ok := s.Properties.Get(key)
	if !ok {
		return
	}
	prop.Type = "string"
	prop.Enum = make([]any, len(values))
	for i, v := range values {
		prop.Enum[i] = v
	}
}

func ptr[T any](v T) *T {
	return &v
}
