package model

import (
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// SupportedFormat is the artifact format range this build can read.
const SupportedFormat = "^1"

// Info is the training summary written next to the model.
type Info struct {
	Accuracy        float64  `json:"accuracy" yaml:"accuracy"`
	ModelType       string   `json:"model_type" yaml:"model_type"`
	Features        []string `json:"features" yaml:"features"`
	Classes         []string `json:"classes" yaml:"classes"`
	FeatureCount    int      `json:"feature_count" yaml:"feature_count"`
	TrainingSamples int      `json:"training_samples" yaml:"training_samples"`
	TestingSamples  int      `json:"testing_samples" yaml:"testing_samples"`
	TargetRange     string   `json:"target_range,omitempty" yaml:"target_range,omitempty"`
	FormatVersion   string   `json:"format_version,omitempty" yaml:"format_version,omitempty"`
}

// ParseInfo decodes model_info.json and checks its format version.
func ParseInfo(data []byte) (*Info, error) {
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("decoding model info: %w", err)
	}
	if err := CheckFormat(info.FormatVersion); err != nil {
		return nil, err
	}
	return &info, nil
}

// CheckFormat accepts an empty version (unversioned artifacts) or any
// version inside SupportedFormat.
func CheckFormat(version string) error {
	if version == "" {
		return nil
	}

	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("invalid format_version %q: %w", version, err)
	}
	constraint, err := semver.NewConstraint(SupportedFormat)
	if err != nil {
		return err
	}
	if !constraint.Check(v) {
		return fmt.Errorf("unsupported format_version %s (want %s)", version, SupportedFormat)
	}
	return nil
}
