package record

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Number(t *testing.T) {
	rec := Record{
		"Screen_Time":  12.5,
		"Stress_Level": 8.9,
		"Self_Esteem":  "3",
		"Sleep_Hours":  "6.5",
		"Gender":       "Female",
		"Null_Field":   nil,
		"Bool_Field":   true,
	}

	tests := []struct {
		name      string
		field     string
		kind      Kind
		wantState State
		want      float64
	}{
		{"float as-is", "Screen_Time", Float, ValuePresent, 12.5},
		{"integer truncates", "Stress_Level", Integer, ValuePresent, 8},
		{"numeric string integer", "Self_Esteem", Integer, ValuePresent, 3},
		{"numeric string float", "Sleep_Hours", Float, ValuePresent, 6.5},
		{"fractional string is not an integer", "Sleep_Hours", Integer, ValueInvalid, 0},
		{"label is invalid", "Gender", Float, ValueInvalid, 0},
		{"null is invalid", "Null_Field", Integer, ValueInvalid, 0},
		{"bool reads as number", "Bool_Field", Integer, ValuePresent, 1},
		{"missing defaults to zero", "Anxiety_Level", Integer, ValueMissing, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := rec.Number(tt.field, tt.kind)
			assert.Equal(t, tt.wantState, v.State)
			assert.Equal(t, tt.want, v.Number)
			if tt.wantState == ValueInvalid {
				assert.Error(t, v.Err)
			}
		})
	}
}

func TestRecord_Label(t *testing.T) {
	rec := Record{"Gender": "Male", "Code": 2.0, "Empty": nil}

	label, ok := rec.Label("Gender")
	assert.True(t, ok)
	assert.Equal(t, "Male", label)

	label, ok = rec.Label("Code")
	assert.True(t, ok)
	assert.Equal(t, "2", label)

	_, ok = rec.Label("Empty")
	assert.False(t, ok)

	_, ok = rec.Label("Missing")
	assert.False(t, ok)
}

func TestRecord_Clone(t *testing.T) {
	rec := Record{"Age": 30.0}
	clone := rec.Clone()
	clone["Age"] = 40.0

	assert.Equal(t, 30.0, rec["Age"])
}

func TestParse_JSONString(t *testing.T) {
	rec, err := Parse(`{"Age": 28, "Gender": "Female"}`)
	require.NoError(t, err)
	assert.Equal(t, 28.0, rec["Age"])
	assert.Equal(t, "Female", rec["Gender"])
}

func TestParse_InvalidJSON(t *testing.T) {
	for _, input := range []string{`{"Age": `, ``, `not json`, `[1,2,3]`} {
		_, err := Parse(input)
		require.Error(t, err, input)

		var inputErr *InputError
		require.True(t, errors.As(err, &inputErr))
		assert.Equal(t, InvalidJSON, inputErr.Kind)
		assert.Contains(t, err.Error(), "Invalid JSON input: ")
	}
}

func TestParse_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Screen_Time": 9.5}`), 0600))

	rec, err := Parse(path)
	require.NoError(t, err)
	assert.Equal(t, 9.5, rec["Screen_Time"])
}

func TestParse_FileNotFound(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	var inputErr *InputError
	require.True(t, errors.As(err, &inputErr))
	assert.Equal(t, FileNotFound, inputErr.Kind)
	assert.Contains(t, err.Error(), "File not found: ")
}

func TestParse_FileWithInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Age":`), 0600))

	_, err := Parse(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid JSON input: ")
}
