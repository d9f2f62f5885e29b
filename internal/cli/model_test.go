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

func TestShowModel_JSON(t *testing.T) {
	loader := artifact.DirLoader{Dir: testhelper.WriteModels(t)}

	var out bytes.Buffer
	require.NoError(t, showModel(context.Background(), &out, loader, "json"))

	var summary ModelSummary
	require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
	assert.Equal(t, "DecisionTree", summary.Info.ModelType)
	assert.Equal(t, testhelper.Classes, summary.Info.Classes)
	assert.Equal(t, record.Fields, summary.Info.Features)
	assert.Equal(t, testhelper.Vocabularies, summary.Vocabularies)
	assert.NotEmpty(t, summary.Fingerprint)
	assert.False(t, summary.Heuristic)
}

func TestShowModel_Text(t *testing.T) {
	loader := artifact.DirLoader{Dir: testhelper.WriteModels(t)}

	var out bytes.Buffer
	require.NoError(t, showModel(context.Background(), &out, loader, "text"))

	plain := re.ReplaceAllString(out.String(), "")
	assert.Contains(t, plain, "DecisionTree")
	assert.Contains(t, plain, "Critical, Excellent, Fair, Good, Poor")
	assert.Contains(t, plain, "1.0.0")
	assert.Contains(t, plain, "Education_Level")
	assert.Contains(t, plain, "Bachelor, High School, Master, PhD")
	assert.NotContains(t, plain, "Heuristic classifier in use")
}

func TestShowModel_Heuristic(t *testing.T) {
	loader := artifact.DirLoader{Dir: filepath.Join(t.TempDir(), "models"), FallbackHeuristic: true}

	var out bytes.Buffer
	require.NoError(t, showModel(context.Background(), &out, loader, "text"))

	plain := re.ReplaceAllString(out.String(), "")
	assert.Contains(t, plain, artifact.HeuristicModelType)
	assert.Contains(t, plain, "unversioned")
	assert.Contains(t, plain, "Heuristic classifier in use")
	assert.NotContains(t, plain, "Vocabularies")
}

func TestShowModel_Missing(t *testing.T) {
	loader := artifact.DirLoader{Dir: filepath.Join(t.TempDir(), "models")}

	var out bytes.Buffer
	err := showModel(context.Background(), &out, loader, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mental_health_model.json")
	assert.Empty(t, out.String())
}

func TestModelCommand(t *testing.T) {
	resetFlags(t)
	dir := testhelper.WriteModels(t)

	output, err := executeCommand(rootCmd, "model", "--models-dir", dir, "--output", "yaml")
	require.NoError(t, err)
	assert.Contains(t, output, "model_type: DecisionTree")
	assert.Contains(t, output, "vocabularies:")
}

func TestShortFingerprint(t *testing.T) {
	assert.Equal(t, "heuristic", shortFingerprint("heuristic"))
	assert.Equal(t, "0123456789ab", shortFingerprint("0123456789abcdef"))
}
