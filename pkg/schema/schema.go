// Package schema provides the JSON schemas of MindCare survey records and
// prediction results. This package enables third-party applications to
// validate input before sending it for prediction, and to validate or
// generate bindings for the results they receive.
//
// The schema information is essential for:
//   - Building survey forms that only offer answers the model knows
//   - Validating records before they reach a prediction endpoint
//   - Generating client types for the prediction result
//
// Example usage:
//
//	// Schemas for the built-in rules, without model vocabularies
//	out, err := GetSchema()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Restrict categorical answers to the labels a model was trained on
//	out, err = GetSchema(WithVocabularies(map[string][]string{
//		"Gender": {"Female", "Male", "Other"},
//	}))
package schema

import (
	"github.com/invopop/jsonschema"
	"github.com/mindcareai/mindcare/internal/predict"
	"github.com/mindcareai/mindcare/internal/record"
	"github.com/mindcareai/mindcare/internal/rules"
	"github.com/mindcareai/mindcare/internal/severity"
)

// SchemaOutput represents the complete schema information for MindCare
// predictions.
type SchemaOutput struct {
	// Input is the JSON Schema of a survey record. Every field is required
	// and unknown fields are rejected. When vocabularies were supplied, each
	// categorical field lists its accepted labels.
	Input *jsonschema.Schema `json:"input"`
	// Result is the JSON Schema of a prediction result: one of a success
	// body or a failure body.
	Result *jsonschema.Schema `json:"result"`
	// Classes lists the status classes from best to worst.
	Classes []string `json:"classes"`
	// Fields lists the record fields in training column order.
	Fields []string `json:"fields"`
}

// Option configures schema generation.
type Option func(*options)

type options struct {
	vocabularies       map[string][]string
	maxRecommendations int
}

// WithVocabularies restricts categorical fields of the input schema to the
// given labels, keyed by field name.
func WithVocabularies(vocabularies map[string][]string) Option {
	return func(o *options) {
		o.vocabularies = vocabularies
	}
}

// WithMaxRecommendations caps the recommendations array of the result
// schema. Without it the cap of the built-in rule tables is used.
func WithMaxRecommendations(n int) Option {
	return func(o *options) {
		o.maxRecommendations = n
	}
}

// GetSchema builds the input and result schemas.
//
// Errors can only occur when the built-in rule tables fail to load, which
// indicates a broken build.
//
// Example:
//
//	out, err := GetSchema(WithMaxRecommendations(5))
//	if err != nil {
//		return fmt.Errorf("failed to get schema: %w", err)
//	}
//
//	data, _ := json.MarshalIndent(out.Input, "", "  ")
//	fmt.Println(string(data))
func GetSchema(opts ...Option) (*SchemaOutput, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.maxRecommendations == 0 {
		tables, err := rules.Default()
		if err != nil {
			return nil, err
		}
		o.maxRecommendations = tables.MaxRecommendations
	}

	classes := make([]string, len(severity.Classes))
	for i, c := range severity.Classes {
		classes[i] = c.String()
	}

	return &SchemaOutput{
		Input:   record.Schema(o.vocabularies),
		Result:  predict.Schema(o.maxRecommendations),
		Classes: classes,
		Fields:  append([]string(nil), record.Fields...),
	}, nil
}
