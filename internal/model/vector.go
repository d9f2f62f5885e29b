package model

import (
	"fmt"
	"sort"

	"github.com/mindcareai/mindcare/internal/record"
	"github.com/spf13/cast"
)

// BuildVector lays an encoded record out in training column order. Every
// trained column must be present and numeric, and the record may not carry
// columns the model was not trained on.
func BuildVector(encoded record.Record, columns []string) ([]float64, error) {
	known := make(map[string]struct{}, len(columns))
	var missing []string
	for _, col := range columns {
		known[col] = struct{}{}
		if _, ok := encoded[col]; !ok {
			missing = append(missing, col)
		}
	}

	var unexpected []string
	for col := range encoded {
		if _, ok := known[col]; !ok {
			unexpected = append(unexpected, col)
		}
	}
	sort.Strings(unexpected)

	if len(missing) > 0 || len(unexpected) > 0 {
		return nil, &ShapeError{Missing: missing, Unexpected: unexpected}
	}

	vector := make([]float64, len(columns))
	for i, col := range columns {
		raw := encoded[col]
		if raw == nil {
			return nil, &ShapeError{Column: col, Err: fmt.Errorf("value is null")}
		}
		v, err := cast.ToFloat64E(raw)
		if err != nil {
			return nil, &ShapeError{Column: col, Err: fmt.Errorf("could not convert %v to float: %w", raw, err)}
		}
		vector[i] = v
	}
	return vector, nil
}
