// Package mindcare provides a public API for scoring mental health survey
// records programmatically. This package allows third-party applications to
// embed MindCare predictions directly into their codebase instead of calling
// the CLI or the HTTP server.
//
// The main functionality includes:
//   - Loading the model artifacts and rule tables once
//   - Scoring records from Go maps or raw JSON
//   - Optionally caching results between calls
//
// Example usage:
//
//	p, err := New(context.Background(), WithModelsDir("./models"))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res := p.Predict(ctx, map[string]any{
//		"Age":          29,
//		"Stress_Level": 5,
//		// ...
//	})
//	if !res.Success {
//		log.Printf("prediction failed: %s", res.Error)
//	}
package mindcare

import (
	"context"

	"github.com/mindcareai/mindcare/internal/artifact"
	"github.com/mindcareai/mindcare/internal/predict"
	"github.com/mindcareai/mindcare/internal/record"
	"github.com/mindcareai/mindcare/internal/rules"
)

// Result is the outcome of one prediction. Failed predictions have Success
// set to false and carry the reason in Error. It marshals to the same JSON
// as the CLI and server output.
type Result = predict.Result

// Cache stores serialized results between calls, for example in Redis.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Option represents a functional option for configuring a Predictor.
type Option func(*config)

type config struct {
	modelsDir         string
	rulesPath         string
	fallbackHeuristic bool
	cache             Cache
}

// WithModelsDir sets the directory holding mental_health_model.json,
// label_encoders.json and model_info.json. The default is "models".
func WithModelsDir(dir string) Option {
	return func(c *config) {
		c.modelsDir = dir
	}
}

// WithRules loads the risk and recommendation tables from a YAML file
// instead of the built-in tables.
func WithRules(path string) Option {
	return func(c *config) {
		c.rulesPath = path
	}
}

// WithFallbackHeuristic serves the built-in heuristic classifier when the
// model artifacts cannot be loaded. Results produced this way are less
// accurate; Result.Heuristic reports when it happened.
func WithFallbackHeuristic() Option {
	return func(c *config) {
		c.fallbackHeuristic = true
	}
}

// WithCache caches successful results. Cache errors never fail a
// prediction.
func WithCache(cache Cache) Option {
	return func(c *config) {
		c.cache = cache
	}
}

// Predictor scores records against a model loaded once. It is safe for
// concurrent use.
type Predictor struct {
	service *predict.Service
}

// New loads the model artifacts and rule tables.
//
// Errors can occur due to:
//   - Missing or corrupt model artifacts (unless WithFallbackHeuristic is set)
//   - An unreadable or invalid rules file
func New(ctx context.Context, options ...Option) (*Predictor, error) {
	c := config{modelsDir: "models"}
	for _, option := range options {
		option(&c)
	}

	bundle, err := artifact.DirLoader{Dir: c.modelsDir, FallbackHeuristic: c.fallbackHeuristic}.Load(ctx)
	if err != nil {
		return nil, err
	}
	tables, err := rules.Load(c.rulesPath)
	if err != nil {
		return nil, err
	}

	var opts []predict.Option
	if c.cache != nil {
		opts = append(opts, predict.WithCache(c.cache))
	}
	return &Predictor{service: predict.NewService(bundle, tables, opts...)}, nil
}

// Predict scores one record, keyed by survey field name. It never returns
// an error: every failure is reported in the Result.
func (p *Predictor) Predict(ctx context.Context, input map[string]any) Result {
	return p.service.Predict(ctx, record.Record(input))
}

// PredictJSON scores one record given as a JSON object.
func (p *Predictor) PredictJSON(ctx context.Context, data []byte) Result {
	rec, err := record.Decode(data)
	if err != nil {
		return predict.Failure(err)
	}
	return p.service.Predict(ctx, rec)
}

// ModelType reports the type of the loaded classifier.
func (p *Predictor) ModelType() string {
	return p.service.Bundle().Info.ModelType
}

// Predict loads the model and scores input in one call. Prefer New when
// scoring more than one record.
func Predict(ctx context.Context, input map[string]any, options ...Option) Result {
	p, err := New(ctx, options...)
	if err != nil {
		return predict.Failure(err)
	}
	return p.Predict(ctx, input)
}
