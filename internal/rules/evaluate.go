package rules

import (
	"fmt"

	"github.com/mindcareai/mindcare/internal/record"
	"github.com/mindcareai/mindcare/internal/severity"
	"github.com/rs/zerolog/log"
)

// Outcome is the result of evaluating one rule.
type Outcome int

const (
	// NotFired means the rule evaluated and its condition was false.
	NotFired Outcome = iota
	// Fired means the condition held.
	Fired
	// Skipped means the rule could not evaluate its input.
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case NotFired:
		return "not_fired"
	case Fired:
		return "fired"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Evaluation records how a single rule was evaluated, so a rule that was
// skipped can be told apart from one that evaluated false.
type Evaluation struct {
	Rule    string
	State   record.State
	Value   float64
	Outcome Outcome
	Err     error
}

// Evaluate applies the predicate to rec. A missing field reads as zero; a
// present value that is not numeric skips the rule.
func (p Predicate) Evaluate(rec record.Record) (e Evaluation) {
	e.Rule = p.String()
	defer func() {
		if r := recover(); r != nil {
			e.Outcome = Skipped
			e.State = record.ValueInvalid
			e.Err = fmt.Errorf("panic evaluating %s: %v", p, r)
		}
	}()

	v := rec.Number(p.Field, p.Kind)
	e.State = v.State
	e.Value = v.Number
	e.Err = v.Err

	switch {
	case v.State == record.ValueInvalid:
		e.Outcome = Skipped
	case p.Op.Compare(v.Number, p.Threshold):
		e.Outcome = Fired
	}
	return e
}

// Evaluate applies the condition to rec and the predicted class.
func (c Condition) Evaluate(rec record.Record, class severity.Class) Evaluation {
	switch {
	case len(c.Classes) > 0:
		e := Evaluation{Rule: fmt.Sprintf("class in %v", c.Classes), State: record.ValuePresent}
		for _, want := range c.Classes {
			if class == want {
				e.Outcome = Fired
				break
			}
		}
		return e

	case c.numeric():
		return c.predicate().Evaluate(rec)

	default:
		e := Evaluation{Rule: fmt.Sprintf("%s == %q", c.Field, *c.Equals)}
		raw, ok := rec[c.Field]
		if !ok {
			e.State = record.ValueMissing
			return e
		}
		e.State = record.ValuePresent
		if s, isString := raw.(string); isString && s == *c.Equals {
			e.Outcome = Fired
		}
		return e
	}
}

// EvaluateRisk evaluates every risk rule in table order.
func (t *Tables) EvaluateRisk(rec record.Record) []Evaluation {
	evals := make([]Evaluation, len(t.RiskFactors))
	for i, r := range t.RiskFactors {
		evals[i] = r.Evaluate(rec)
	}
	return evals
}

// AnalyzeRisk returns the messages of the firing risk rules in table order.
// Rules that cannot evaluate are skipped. The result is never empty.
func (t *Tables) AnalyzeRisk(rec record.Record) []string {
	var factors []string
	for i, e := range t.EvaluateRisk(rec) {
		switch e.Outcome {
		case Fired:
			factors = append(factors, t.RiskFactors[i].Message)
		case Skipped:
			log.Debug().Err(e.Err).Str("rule", e.Rule).Msg("Skipped risk rule")
		}
	}
	if len(factors) == 0 {
		return []string{t.NoRiskMessage}
	}
	return factors
}

// Advice is the outcome of the recommendation rules for one record.
type Advice struct {
	Messages    []string
	Evaluations []Evaluation
	// Fallback is set when a rule could not evaluate and the generic
	// fallback recommendation ends Messages.
	Fallback bool
}

// Advise evaluates the recommendation rules in table order. Messages are
// deduplicated, keeping the first occurrence, and capped at
// MaxRecommendations. Evaluation stops at the first rule that cannot
// evaluate its input; the fallback recommendation is appended to the
// messages gathered so far.
func (t *Tables) Advise(rec record.Record, class severity.Class) (a Advice) {
	var messages []string
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("Recommendation rules panicked, using fallback")
			a.Messages = t.finish(append(messages, t.FallbackRecommendation))
			a.Fallback = true
		}
	}()

	for _, r := range t.Recommendations {
		e := r.When.Evaluate(rec, class)
		e.Rule = r.Name
		a.Evaluations = append(a.Evaluations, e)

		switch e.Outcome {
		case Skipped:
			log.Debug().Err(e.Err).Str("rule", r.Name).Msg("Recommendation rule could not evaluate, appending fallback")
			a.Messages = t.finish(append(messages, t.FallbackRecommendation))
			a.Fallback = true
			return a
		case Fired:
			messages = append(messages, r.Messages...)
		}
	}

	a.Messages = t.finish(messages)
	return a
}

// Recommend returns the recommendation messages for rec and class.
func (t *Tables) Recommend(rec record.Record, class severity.Class) []string {
	return t.Advise(rec, class).Messages
}

func (t *Tables) finish(messages []string) []string {
	return capMessages(dedupe(messages), t.MaxRecommendations)
}

func dedupe(messages []string) []string {
	seen := make(map[string]bool, len(messages))
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

func capMessages(messages []string, limit int) []string {
	if len(messages) > limit {
		return messages[:limit]
	}
	return messages
}
