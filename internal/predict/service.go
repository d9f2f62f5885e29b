// Package predict turns an input record into a prediction result.
package predict

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mindcareai/mindcare/internal/artifact"
	"github.com/mindcareai/mindcare/internal/cache"
	"github.com/mindcareai/mindcare/internal/encoder"
	"github.com/mindcareai/mindcare/internal/record"
	"github.com/mindcareai/mindcare/internal/rules"
	"github.com/mindcareai/mindcare/internal/severity"
	"github.com/rs/zerolog/log"
)

// ResultCache stores serialized results between calls.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Service predicts against a loaded bundle and rule tables. Both are
// immutable, so a Service is safe for concurrent use.
type Service struct {
	bundle *artifact.Bundle
	tables *rules.Tables
	cache  ResultCache

	// fingerprint scopes cache keys to the model and the rule tables.
	fingerprint string
}

// Option configures a Service.
type Option func(*Service)

// WithCache caches successful results.
func WithCache(c ResultCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// NewService creates a service over an already loaded bundle.
func NewService(bundle *artifact.Bundle, tables *rules.Tables, opts ...Option) *Service {
	s := &Service{bundle: bundle, tables: tables}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache != nil {
		s.fingerprint = bundle.Fingerprint + "-" + tables.Fingerprint()
	}
	return s
}

// Bundle returns the inference state the service predicts with.
func (s *Service) Bundle() *artifact.Bundle {
	return s.bundle
}

// Tables returns the active rule tables.
func (s *Service) Tables() *rules.Tables {
	return s.tables
}

// Predict scores one record. It never panics and never returns an error:
// every failure is reported as a failed Result.
func (s *Service) Predict(ctx context.Context, rec record.Record) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Prediction panicked")
			res = Failure(fmt.Errorf("%v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return Failure(err)
	}

	key := s.cacheKey(rec)
	if cached, ok := s.lookup(ctx, key); ok {
		return cached
	}

	res = s.score(rec)
	if res.Success {
		s.store(ctx, key, res)
	}
	return res
}

func (s *Service) score(rec record.Record) Result {
	b := s.bundle

	encoded, fallbacks := b.Encoder.Encode(rec, record.CategoricalFields)
	for _, fb := range fallbacks {
		log.Warn().
			Str("field", fb.Field).
			Str("value", fb.Value).
			Str("substituted", fb.Substituted).
			Msg("Unseen category, using vocabulary default")
	}

	vector, err := b.Vector(encoded)
	if err != nil {
		return Failure(err)
	}
	p, err := b.Classifier.Predict(vector)
	if err != nil {
		return Failure(err)
	}

	advice := s.tables.Advise(rec, p.Class)
	if advice.Fallback {
		log.Warn().Msg("Recommendation rules could not evaluate input, returned fallback")
	}

	return Result{
		Success:           true,
		Prediction:        p.Class,
		Confidence:        p.Confidence(),
		RiskLevel:         severity.RiskLevelFor(p.Class),
		RiskFactors:       s.tables.AnalyzeRisk(rec),
		Recommendations:   advice.Messages,
		Probabilities:     p.Distribution(b.Classifier.Classes()),
		EncodingFallbacks: fallbacks,
		Heuristic:         b.Heuristic,
	}
}

func (s *Service) cacheKey(rec record.Record) string {
	if s.cache == nil {
		return ""
	}
	key, err := cache.Key(s.fingerprint, rec)
	if err != nil {
		log.Debug().Err(err).Msg("Record not cacheable")
		return ""
	}
	return key
}

// cacheEntry is the cached form of a successful result. The diagnostics
// are kept beside the wire result so a cache hit renders like a fresh one.
type cacheEntry struct {
	Result            json.RawMessage    `json:"result"`
	Probabilities     map[string]float64 `json:"probabilities,omitempty"`
	EncodingFallbacks []encoder.Fallback `json:"encoding_fallbacks,omitempty"`
}

func (s *Service) lookup(ctx context.Context, key string) (Result, bool) {
	if key == "" {
		return Result{}, false
	}
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Msg("Result cache lookup failed")
		return Result{}, false
	}
	if !ok {
		return Result{}, false
	}

	var entry cacheEntry
	var res Result
	if err := json.Unmarshal(data, &entry); err != nil || len(entry.Result) == 0 {
		log.Warn().Err(err).Str("key", key).Msg("Discarding corrupt cache entry")
		return Result{}, false
	}
	if err := json.Unmarshal(entry.Result, &res); err != nil || !res.Success {
		log.Warn().Err(err).Str("key", key).Msg("Discarding corrupt cache entry")
		return Result{}, false
	}
	res.Probabilities = entry.Probabilities
	res.EncodingFallbacks = entry.EncodingFallbacks
	res.Cached = true
	res.Heuristic = s.bundle.Heuristic
	return res, true
}

func (s *Service) store(ctx context.Context, key string, res Result) {
	if key == "" {
		return
	}
	body, err := json.Marshal(res)
	if err != nil {
		return
	}
	data, err := json.Marshal(cacheEntry{
		Result:            body,
		Probabilities:     res.Probabilities,
		EncodingFallbacks: res.EncodingFallbacks,
	})
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data); err != nil {
		log.Warn().Err(err).Msg("Result cache store failed")
	}
}

// Run loads the artifacts and scores rec in one call. A nil tables value
// selects the built-in rule tables.
func Run(ctx context.Context, loader artifact.Loader, tables *rules.Tables, rec record.Record, opts ...Option) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Prediction panicked")
			res = Failure(fmt.Errorf("%v", r))
		}
	}()

	bundle, err := loader.Load(ctx)
	if err != nil {
		return Failure(err)
	}
	if tables == nil {
		if tables, err = rules.Default(); err != nil {
			return Failure(err)
		}
	}
	return NewService(bundle, tables, opts...).Predict(ctx, rec)
}
