// Package artifact loads the trained model, its label encoders and its
// training summary from a models directory.
package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mindcareai/mindcare/internal/encoder"
	"github.com/mindcareai/mindcare/internal/model"
	"github.com/mindcareai/mindcare/internal/record"
	"github.com/rs/zerolog/log"
)

// Artifact file names inside a models directory.
const (
	ModelFile    = "mental_health_model.json"
	EncodersFile = "label_encoders.json"
	InfoFile     = "model_info.json"
)

// HeuristicModelType is reported in Info when the fallback classifier is
// serving instead of a trained model.
const HeuristicModelType = "Heuristic"

// Bundle is the immutable inference state shared by every prediction.
type Bundle struct {
	Classifier model.Classifier
	Encoder    *encoder.Encoder
	Info       *model.Info
	// Fingerprint identifies the artifact contents. Cached results are keyed
	// by it so a retrained model never serves stale entries.
	Fingerprint string
	// Heuristic is set when Classifier is the built-in fallback.
	Heuristic bool
}

// Vector lays an encoded record out for the classifier. The trained model
// requires an exact column match; the heuristic reads its columns leniently
// with missing values as zero.
func (b *Bundle) Vector(encoded record.Record) ([]float64, error) {
	if !b.Heuristic {
		return model.BuildVector(encoded, b.Classifier.Features())
	}

	columns := b.Classifier.Features()
	vector := make([]float64, len(columns))
	for i, col := range columns {
		v := encoded.Number(col, record.Float)
		if v.State == record.ValueInvalid {
			return nil, &model.ShapeError{Column: col, Err: v.Err}
		}
		vector[i] = v.Number
	}
	return vector, nil
}

// LoadError reports an artifact that is missing or corrupt.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", filepath.Base(e.Path), e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// IsNotExist reports whether the artifact file was absent.
func (e *LoadError) IsNotExist() bool {
	return errors.Is(e.Err, os.ErrNotExist)
}

// Loader produces the inference bundle.
type Loader interface {
	Load(ctx context.Context) (*Bundle, error)
}

// DirLoader reads artifacts from a directory.
type DirLoader struct {
	Dir string
	// FallbackHeuristic serves the heuristic classifier when the trained
	// artifacts cannot be loaded.
	FallbackHeuristic bool
}

// Load reads and validates all three artifacts.
func (l DirLoader) Load(ctx context.Context) (*Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b, err := Load(l.Dir)
	if err == nil {
		return b, nil
	}
	if !l.FallbackHeuristic {
		return nil, err
	}

	log.Warn().Err(err).Str("dir", l.Dir).Msg("Serving heuristic classifier, trained model unavailable")
	return Heuristic()
}

// Load reads the artifacts in dir.
func Load(dir string) (*Bundle, error) {
	modelData, err := readArtifact(dir, ModelFile, modelSchema)
	if err != nil {
		return nil, err
	}
	encoderData, err := readArtifact(dir, EncodersFile, encodersSchema)
	if err != nil {
		return nil, err
	}
	infoData, err := readArtifact(dir, InfoFile, infoSchema)
	if err != nil {
		return nil, err
	}

	info, err := model.ParseInfo(infoData)
	if err != nil {
		return nil, &LoadError{Path: filepath.Join(dir, InfoFile), Err: err}
	}
	tree, err := model.ParseDecisionTree(modelData)
	if err != nil {
		return nil, &LoadError{Path: filepath.Join(dir, ModelFile), Err: err}
	}
	enc, err := encoder.Parse(encoderData)
	if err != nil {
		return nil, &LoadError{Path: filepath.Join(dir, EncodersFile), Err: err}
	}

	h := sha256.New()
	for _, data := range [][]byte{modelData, encoderData, infoData} {
		h.Write(data)
	}

	log.Debug().
		Str("dir", dir).
		Int("features", len(tree.Features())).
		Int("classes", len(tree.Classes())).
		Int("depth", tree.Depth()).
		Msg("Loaded model artifacts")

	return &Bundle{
		Classifier:  tree,
		Encoder:     enc,
		Info:        info,
		Fingerprint: hex.EncodeToString(h.Sum(nil))[:16],
	}, nil
}

// Heuristic returns a bundle backed by the built-in fallback classifier.
// It has no vocabularies, so categorical fields pass through unencoded.
func Heuristic() (*Bundle, error) {
	columns := []string{record.StressLevel, record.AnxietyLevel, record.DepressionSymptoms}
	h, err := model.NewHeuristic(columns)
	if err != nil {
		return nil, err
	}
	enc, err := encoder.New(nil)
	if err != nil {
		return nil, err
	}

	classes := make([]string, 0, len(h.Classes()))
	for _, c := range h.Classes() {
		classes = append(classes, c.String())
	}

	return &Bundle{
		Classifier: h,
		Encoder:    enc,
		Info: &model.Info{
			ModelType:    HeuristicModelType,
			Features:     columns,
			Classes:      classes,
			FeatureCount: len(columns),
		},
		Fingerprint: "heuristic",
		Heuristic:   true,
	}, nil
}

func readArtifact(dir, name string, validate func([]byte) error) ([]byte, error) {
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if err := validate(data); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return data, nil
}
