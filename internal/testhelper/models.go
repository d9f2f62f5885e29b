package testhelper

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mindcareai/mindcare/internal/record"
)

// Classes is the class order of the fixture model.
var Classes = []string{"Critical", "Excellent", "Fair", "Good", "Poor"}

// Vocabularies is the fixture label encoder state.
var Vocabularies = map[string][]string{
	record.Gender:             {"Female", "Male", "Other"},
	record.EducationLevel:     {"Bachelor", "High School", "Master", "PhD"},
	record.DietQuality:        {"Average", "Good", "Poor"},
	record.PhysicalDisability: {"No", "Yes"},
	record.ChronicIllness:     {"No", "Yes"},
	record.WorkStudyPressure:  {"High", "Low", "Medium"},
	record.AccessTherapy:      {"No", "Yes"},
	record.SubstanceUse:       {"Frequent", "Never", "Occasional"},
}

func featureIndex(name string) int {
	for i, f := range record.Fields {
		if f == name {
			return i
		}
	}
	panic("unknown feature " + name)
}

// Tree returns the fixture model artifact. It splits on stress, then sleep
// and anxiety for calm respondents, and depression for stressed ones:
//
//	Stress_Level <= 6.5
//	  Sleep_Hours <= 5.5          -> Fair
//	  Anxiety_Level <= 3.5        -> Excellent, else Good
//	Depression_Symptoms <= 7.5    -> Poor, else Critical
func Tree() map[string]any {
	leaf := func(v ...float64) map[string]any {
		return map[string]any{"feature": -2, "threshold": -2.0, "left": -1, "right": -1, "value": v}
	}
	split := func(feature string, threshold float64, left, right int) map[string]any {
		return map[string]any{"feature": featureIndex(feature), "threshold": threshold, "left": left, "right": right, "value": []float64{}}
	}

	return map[string]any{
		"model_type": "DecisionTree",
		"classes":    Classes,
		"features":   record.Fields,
		"nodes": []map[string]any{
			split(record.StressLevel, 6.5, 1, 2),
			split(record.SleepHours, 5.5, 3, 4),
			split(record.DepressionSymptoms, 7.5, 7, 8),
			leaf(0, 1, 6, 2, 1),
			split(record.AnxietyLevel, 3.5, 5, 6),
			leaf(0, 8, 1, 1, 0),
			leaf(0, 1, 1, 7, 1),
			leaf(2, 0, 1, 0, 7),
			leaf(9, 0, 0, 0, 1),
		},
	}
}

// Info returns the fixture training summary.
func Info() map[string]any {
	return map[string]any{
		"accuracy":         0.8875,
		"model_type":       "DecisionTree",
		"features":         record.Fields,
		"classes":          Classes,
		"feature_count":    len(record.Fields),
		"training_samples": 800,
		"testing_samples":  200,
		"target_range":     "85-93%",
		"format_version":   "1.0.0",
	}
}

// WriteModels writes the fixture artifacts into a temp dir and returns it.
func WriteModels(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	WriteArtifact(t, dir, "mental_health_model.json", Tree())
	WriteArtifact(t, dir, "label_encoders.json", Vocabularies)
	WriteArtifact(t, dir, "model_info.json", Info())
	return dir
}

// WriteArtifact marshals v as JSON into dir/name.
func WriteArtifact(t testing.TB, dir, name string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %s: %v", name, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// Record returns a complete, moderate respondent that the fixture model
// classifies as Good.
func Record() record.Record {
	return record.Record{
		record.Age:                  29.0,
		record.Gender:               "Female",
		record.EducationLevel:       "Bachelor",
		record.SleepHours:           7.5,
		record.SleepQuality:         7.0,
		record.DietQuality:          "Good",
		record.ExerciseFreq:         4.0,
		record.ScreenTime:           5.0,
		record.SubstanceUse:         "Never",
		record.StressLevel:          5.0,
		record.AnxietyLevel:         5.0,
		record.DepressionSymptoms:   3.0,
		record.SelfEsteem:           7.0,
		record.CopingSkills:         7.0,
		record.LifeSatisfaction:     7.0,
		record.LifePurpose:          7.0,
		record.FamilySupport:        8.0,
		record.SocialIsolation:      3.0,
		record.LonelinessFrequency:  3.0,
		record.RelationshipQuality:  7.0,
		record.PhysicalDisability:   "No",
		record.DisabilityAdjustment: 8.0,
		record.ChronicIllness:       "No",
		record.WorkStudyPressure:    "Medium",
		record.WeeklyWorkStudyHours: 40.0,
		record.FinancialStress:      4.0,
		record.AccessTherapy:        "Yes",
	}
}
