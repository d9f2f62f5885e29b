package record_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/mindcareai/mindcare/internal/record"
	"github.com/mindcareai/mindcare/internal/testhelper"
	validator "github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileSurvey(t *testing.T, vocabularies map[string][]string) *validator.Schema {
	t.Helper()
	data, err := json.Marshal(record.Schema(vocabularies))
	require.NoError(t, err)

	compiler := validator.NewCompiler()
	require.NoError(t, compiler.AddResource("survey.json", bytes.NewReader(data)))
	sch, err := compiler.Compile("survey.json")
	require.NoError(t, err)
	return sch
}

func toDocument(t *testing.T, rec record.Record) any {
	t.Helper()
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	var doc any
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestSchema_Fields(t *testing.T) {
	s := record.Schema(nil)

	assert.Equal(t, "MindCare survey record", s.Title)
	assert.ElementsMatch(t, record.Fields, s.Required)
	for _, field := range record.Fields {
		_, ok := s.Properties.Get(field)
		assert.True(t, ok, field)
	}
}

func TestSchema_ValidatesRecords(t *testing.T) {
	sch := compileSurvey(t, testhelper.Vocabularies)

	assert.NoError(t, sch.Validate(toDocument(t, testhelper.Record())))

	t.Run("missing field", func(t *testing.T) {
		rec := testhelper.Record()
		delete(rec, record.SleepHours)
		assert.Error(t, sch.Validate(toDocument(t, rec)))
	})

	t.Run("unknown field", func(t *testing.T) {
		rec := testhelper.Record()
		rec["Favourite_Color"] = "Blue"
		assert.Error(t, sch.Validate(toDocument(t, rec)))
	})

	t.Run("out of range", func(t *testing.T) {
		rec := testhelper.Record()
		rec[record.SleepHours] = 30.0
		assert.Error(t, sch.Validate(toDocument(t, rec)))
	})

	t.Run("unknown label", func(t *testing.T) {
		rec := testhelper.Record()
		rec[record.Gender] = "Nonbinary"
		assert.Error(t, sch.Validate(toDocument(t, rec)))
	})
}

func TestSchema_WithoutVocabularies(t *testing.T) {
	sch := compileSurvey(t, nil)

	rec := testhelper.Record()
	rec[record.Gender] = "Nonbinary"
	assert.NoError(t, sch.Validate(toDocument(t, rec)))
}
