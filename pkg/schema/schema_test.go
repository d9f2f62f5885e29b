package schema

import (
	"encoding/json"
	"testing"

	"github.com/mindcareai/mindcare/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSchema(t *testing.T) {
	out, err := GetSchema()
	require.NoError(t, err)

	assert.Equal(t, []string{"Excellent", "Good", "Fair", "Poor", "Critical"}, out.Classes)
	assert.Equal(t, record.Fields, out.Fields)

	recs, ok := out.Result.OneOf[0].Properties.Get("recommendations")
	require.True(t, ok)
	require.NotNil(t, recs.MaxItems)
	assert.Equal(t, uint64(8), *recs.MaxItems)

	gender, ok := out.Input.Properties.Get(record.Gender)
	require.True(t, ok)
	assert.Empty(t, gender.Enum)
}

func TestGetSchema_Options(t *testing.T) {
	out, err := GetSchema(
		WithVocabularies(map[string][]string{record.Gender: {"Female", "Male"}}),
		WithMaxRecommendations(3),
	)
	require.NoError(t, err)

	gender, ok := out.Input.Properties.Get(record.Gender)
	require.True(t, ok)
	assert.Equal(t, []any{"Female", "Male"}, gender.Enum)

	recs, ok := out.Result.OneOf[0].Properties.Get("recommendations")
	require.True(t, ok)
	assert.Equal(t, uint64(3), *recs.MaxItems)
}

func TestGetSchema_JSON(t *testing.T) {
	out, err := GetSchema()
	require.NoError(t, err)

	data, err := json.Marshal(out)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	input := decoded["input"].(map[string]any)
	assert.Equal(t, "https://schemas.mindcare.ai/v1/survey", input["$id"])
	assert.Equal(t, "MindCare survey record", input["title"])
}
