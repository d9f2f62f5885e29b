package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mindcareai/mindcare/internal/artifact"
	"github.com/mindcareai/mindcare/internal/record"
	"github.com/mindcareai/mindcare/internal/testhelper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type schemaDoc struct {
	ID                   string                `json:"$id"`
	Type                 string                `json:"type"`
	Required             []string              `json:"required"`
	AdditionalProperties *bool                 `json:"additionalProperties"`
	Properties           map[string]schemaProp `json:"properties"`
	OneOf                []schemaDoc           `json:"oneOf"`
}

type schemaProp struct {
	Type     string  `json:"type"`
	Enum     []any   `json:"enum"`
	Const    any     `json:"const"`
	Minimum  float64 `json:"minimum"`
	Maximum  float64 `json:"maximum"`
	MaxItems int     `json:"maxItems"`
}

func decodeSchema(t *testing.T, data []byte) schemaDoc {
	t.Helper()
	var doc schemaDoc
	require.NoError(t, json.Unmarshal(data, &doc), string(data))
	return doc
}

func TestShowSchema_Input(t *testing.T) {
	loader := artifact.DirLoader{Dir: testhelper.WriteModels(t)}

	var out bytes.Buffer
	require.NoError(t, showSchema(context.Background(), &out, loader, "", "input"))

	doc := decodeSchema(t, out.Bytes())
	assert.Equal(t, "object", doc.Type)
	assert.ElementsMatch(t, record.Fields, doc.Required)
	require.NotNil(t, doc.AdditionalProperties)
	assert.False(t, *doc.AdditionalProperties)

	assert.Equal(t, []any{"Female", "Male", "Other"}, doc.Properties[record.Gender].Enum)
	assert.Equal(t, "number", doc.Properties[record.SleepHours].Type)
	assert.Equal(t, 24.0, doc.Properties[record.SleepHours].Maximum)
	assert.Equal(t, 120.0, doc.Properties[record.Age].Maximum)
}

func TestShowSchema_InputWithoutModel(t *testing.T) {
	loader := artifact.DirLoader{Dir: filepath.Join(t.TempDir(), "models")}

	var out bytes.Buffer
	require.NoError(t, showSchema(context.Background(), &out, loader, "", "input"))

	doc := decodeSchema(t, out.Bytes())
	assert.Equal(t, "string", doc.Properties[record.Gender].Type)
	assert.Empty(t, doc.Properties[record.Gender].Enum)
}

func TestShowSchema_Result(t *testing.T) {
	loader := artifact.DirLoader{Dir: testhelper.WriteModels(t)}

	var out bytes.Buffer
	require.NoError(t, showSchema(context.Background(), &out, loader, "", "result"))

	doc := decodeSchema(t, out.Bytes())
	assert.Equal(t, "https://schemas.mindcare.ai/v1/result", doc.ID)
	require.Len(t, doc.OneOf, 2)

	success := doc.OneOf[0]
	assert.Equal(t, true, success.Properties["success"].Const)
	assert.Equal(t, []any{"Excellent", "Good", "Fair", "Poor", "Critical"}, success.Properties["prediction"].Enum)
	assert.Equal(t, 8, success.Properties["recommendations"].MaxItems)

	failure := doc.OneOf[1]
	assert.Equal(t, false, failure.Properties["success"].Const)
	assert.Contains(t, failure.Required, "error")
}

func TestShowSchema_Both(t *testing.T) {
	loader := artifact.DirLoader{Dir: testhelper.WriteModels(t)}

	var out bytes.Buffer
	require.NoError(t, showSchema(context.Background(), &out, loader, "", ""))

	var both map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out.Bytes(), &both))
	assert.Contains(t, both, "input")
	assert.Contains(t, both, "result")
}

func TestShowSchema_Unknown(t *testing.T) {
	loader := artifact.DirLoader{Dir: testhelper.WriteModels(t)}

	var out bytes.Buffer
	err := showSchema(context.Background(), &out, loader, "", "output")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown schema "output"`)
}
