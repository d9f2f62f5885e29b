package encoder

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mindcareai/mindcare/internal/record"
)

// Vocabulary is the ordered list of labels learned for one field. A label's
// code is its index.
type Vocabulary struct {
	labels []string
	codes  map[string]int
}

// NewVocabulary builds a vocabulary from labels in training order.
func NewVocabulary(labels []string) (*Vocabulary, error) {
	v := &Vocabulary{
		labels: append([]string(nil), labels...),
		codes:  make(map[string]int, len(labels)),
	}
	for i, label := range labels {
		if _, dup := v.codes[label]; dup {
			return nil, fmt.Errorf("duplicate label %q", label)
		}
		v.codes[label] = i
	}
	return v, nil
}

// Labels returns a copy of the learned labels in code order.
func (v *Vocabulary) Labels() []string {
	return append([]string(nil), v.labels...)
}

// Code returns the learned code for label.
func (v *Vocabulary) Code(label string) (int, bool) {
	code, ok := v.codes[label]
	return code, ok
}

// Default is the code substituted for labels never seen in training: the
// code of the first learned label, or 0 for an empty vocabulary.
func (v *Vocabulary) Default() (code int, label string) {
	if len(v.labels) == 0 {
		return 0, ""
	}
	return v.codes[v.labels[0]], v.labels[0]
}

// Fallback records a value that was not in the learned vocabulary.
type Fallback struct {
	Field       string `json:"field"`
	Value       string `json:"value"`
	Substituted string `json:"substituted"`
	Code        int    `json:"code"`
}

// Encoder maps categorical labels to the integer codes used by the model.
// It is immutable once built and safe for concurrent use.
type Encoder struct {
	vocabularies map[string]*Vocabulary
}

// New builds an encoder from field → labels.
func New(vocabularies map[string][]string) (*Encoder, error) {
	e := &Encoder{vocabularies: make(map[string]*Vocabulary, len(vocabularies))}
	for field, labels := range vocabularies {
		v, err := NewVocabulary(labels)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field, err)
		}
		e.vocabularies[field] = v
	}
	return e, nil
}

// Parse builds an encoder from the label_encoders.json artifact format.
func Parse(data []byte) (*Encoder, error) {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding encoders: %w", err)
	}
	return New(raw)
}

// Fields returns the encoded field names, sorted.
func (e *Encoder) Fields() []string {
	fields := make([]string, 0, len(e.vocabularies))
	for f := range e.vocabularies {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Vocabulary returns the vocabulary for field.
func (e *Encoder) Vocabulary(field string) (*Vocabulary, bool) {
	v, ok := e.vocabularies[field]
	return v, ok
}

// Code encodes a single value. The second result is false when the field is
// unknown to the encoder. Unseen values of a known field never fail: they
// are replaced by the vocabulary default and reported as a Fallback.
func (e *Encoder) Code(field, value string) (int, *Fallback, bool) {
	v, ok := e.vocabularies[field]
	if !ok {
		return 0, nil, false
	}
	if code, ok := v.Code(value); ok {
		return code, nil, true
	}

	code, label := v.Default()
	return code, &Fallback{Field: field, Value: value, Substituted: label, Code: code}, true
}

// Encode returns a copy of rec with every listed field replaced by its code.
// Fields the encoder does not know, or that rec does not contain, pass
// through untouched.
func (e *Encoder) Encode(rec record.Record, fields []string) (record.Record, []Fallback) {
	out := rec.Clone()
	var fallbacks []Fallback

	for _, field := range fields {
		if _, known := e.vocabularies[field]; !known {
			continue
		}
		if _, present := rec[field]; !present {
			continue
		}

		label, _ := rec.Label(field)
		code, fb, _ := e.Code(field, label)
		if fb != nil {
			fallbacks = append(fallbacks, *fb)
		}
		out[field] = code
	}

	return out, fallbacks
}

// MarshalJSON writes the encoder back in artifact format.
func (e *Encoder) MarshalJSON() ([]byte, error) {
	raw := make(map[string][]string, len(e.vocabularies))
	for field, v := range e.vocabularies {
		raw[field] = v.labels
	}
	return json.Marshal(raw)
}
