package artifact

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mindcareai/mindcare/internal/record"
	"github.com/mindcareai/mindcare/internal/severity"
	"github.com/mindcareai/mindcare/internal/testhelper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := testhelper.WriteModels(t)

	b, err := Load(dir)
	require.NoError(t, err)

	assert.False(t, b.Heuristic)
	assert.Equal(t, record.Fields, b.Classifier.Features())
	assert.Equal(t, severity.Critical, b.Classifier.Classes()[0])
	assert.Equal(t, "DecisionTree", b.Info.ModelType)
	assert.Equal(t, 0.8875, b.Info.Accuracy)
	assert.Len(t, b.Fingerprint, 16)
	assert.Len(t, b.Encoder.Fields(), len(record.CategoricalFields))
}

func TestLoad_FingerprintTracksContents(t *testing.T) {
	first, err := Load(testhelper.WriteModels(t))
	require.NoError(t, err)
	second, err := Load(testhelper.WriteModels(t))
	require.NoError(t, err)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)

	dir := testhelper.WriteModels(t)
	info := testhelper.Info()
	info["accuracy"] = 0.9
	testhelper.WriteArtifact(t, dir, InfoFile, info)

	third, err := Load(dir)
	require.NoError(t, err)
	assert.NotEqual(t, first.Fingerprint, third.Fingerprint)
}

func TestLoad_Missing(t *testing.T) {
	dir := testhelper.WriteModels(t)
	require.NoError(t, os.Remove(filepath.Join(dir, EncodersFile)))

	_, err := Load(dir)
	require.Error(t, err)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.True(t, loadErr.IsNotExist())
	assert.Contains(t, err.Error(), EncodersFile)
}

func TestLoad_Corrupt(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content any
		want    string
	}{
		{
			name:    "model not an object",
			file:    ModelFile,
			content: []int{1, 2, 3},
			want:    "schema validation failed",
		},
		{
			name:    "model without nodes",
			file:    ModelFile,
			content: map[string]any{"classes": []string{"Good"}, "features": []string{"Age"}},
			want:    "schema validation failed",
		},
		{
			name: "model with unknown class",
			file: ModelFile,
			content: map[string]any{
				"classes":  []string{"Great"},
				"features": []string{"Age"},
				"nodes":    []map[string]any{{"left": -1, "right": -1, "value": []float64{1}}},
			},
			want: "unknown class",
		},
		{
			name:    "encoder with numbers",
			file:    EncodersFile,
			content: map[string]any{"Gender": []int{1, 2}},
			want:    "schema validation failed",
		},
		{
			name:    "encoder with duplicates",
			file:    EncodersFile,
			content: map[string]any{"Gender": []string{"Male", "Male"}},
			want:    "schema validation failed",
		},
		{
			name:    "info with unsupported format",
			file:    InfoFile,
			content: map[string]any{"format_version": "2.0.0"},
			want:    "unsupported format_version",
		},
		{
			name:    "info with accuracy out of range",
			file:    InfoFile,
			content: map[string]any{"accuracy": 89},
			want:    "schema validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := testhelper.WriteModels(t)
			testhelper.WriteArtifact(t, dir, tt.file, tt.content)

			_, err := Load(dir)
			require.Error(t, err)

			var loadErr *LoadError
			require.True(t, errors.As(err, &loadErr))
			assert.False(t, loadErr.IsNotExist())
			assert.Contains(t, err.Error(), tt.file)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := testhelper.WriteModels(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ModelFile), []byte("{not json"), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestDirLoader(t *testing.T) {
	ctx := context.Background()

	t.Run("loads trained model", func(t *testing.T) {
		b, err := DirLoader{Dir: testhelper.WriteModels(t)}.Load(ctx)
		require.NoError(t, err)
		assert.False(t, b.Heuristic)
	})

	t.Run("fails without fallback", func(t *testing.T) {
		_, err := DirLoader{Dir: t.TempDir()}.Load(ctx)
		var loadErr *LoadError
		assert.True(t, errors.As(err, &loadErr))
	})

	t.Run("falls back to heuristic", func(t *testing.T) {
		b, err := DirLoader{Dir: t.TempDir(), FallbackHeuristic: true}.Load(ctx)
		require.NoError(t, err)
		assert.True(t, b.Heuristic)
		assert.Equal(t, HeuristicModelType, b.Info.ModelType)
	})

	t.Run("honours cancellation", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := DirLoader{Dir: testhelper.WriteModels(t)}.Load(cancelled)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestBundle_Vector(t *testing.T) {
	t.Run("trained model needs every column", func(t *testing.T) {
		b, err := Load(testhelper.WriteModels(t))
		require.NoError(t, err)

		_, err = b.Vector(record.Record{record.Age: 30.0})
		assert.Error(t, err)
	})

	t.Run("heuristic reads missing as zero", func(t *testing.T) {
		b, err := Heuristic()
		require.NoError(t, err)

		vec, err := b.Vector(record.Record{record.StressLevel: 9.0, "Gender": "Male"})
		require.NoError(t, err)
		assert.Equal(t, []float64{9, 0, 0}, vec)

		_, err = b.Vector(record.Record{record.AnxietyLevel: "high"})
		assert.Error(t, err)
	})
}
