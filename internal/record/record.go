package record

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Canonical survey fields in training column order.
const (
	Age                  = "Age"
	Gender               = "Gender"
	EducationLevel       = "Education_Level"
	SleepHours           = "Sleep_Hours"
	SleepQuality         = "Sleep_Quality"
	DietQuality          = "Diet_Quality"
	ExerciseFreq         = "Exercise_Freq"
	ScreenTime           = "Screen_Time"
	SubstanceUse         = "Substance_Use"
	StressLevel          = "Stress_Level"
	AnxietyLevel         = "Anxiety_Level"
	DepressionSymptoms   = "Depression_Symptoms"
	SelfEsteem           = "Self_Esteem"
	CopingSkills         = "Coping_Skills"
	LifeSatisfaction     = "Life_Satisfaction"
	LifePurpose          = "Life_Purpose"
	FamilySupport        = "Family_Support"
	SocialIsolation      = "Social_Isolation"
	LonelinessFrequency  = "Loneliness_Frequency"
	RelationshipQuality  = "Relationship_Quality"
	PhysicalDisability   = "Physical_Disability"
	DisabilityAdjustment = "Disability_Adjustment"
	ChronicIllness       = "Chronic_Illness"
	WorkStudyPressure    = "Work_Study_Pressure"
	WeeklyWorkStudyHours = "Weekly_Work_Study_Hours"
	FinancialStress      = "Financial_Stress"
	AccessTherapy        = "Access_Therapy"
)

// Fields lists the canonical fields in training column order.
var Fields = []string{
	Age, Gender, EducationLevel, SleepHours, SleepQuality, DietQuality,
	ExerciseFreq, ScreenTime, SubstanceUse, StressLevel, AnxietyLevel,
	DepressionSymptoms, SelfEsteem, CopingSkills, LifeSatisfaction, LifePurpose,
	FamilySupport, SocialIsolation, LonelinessFrequency, RelationshipQuality,
	PhysicalDisability, DisabilityAdjustment, ChronicIllness, WorkStudyPressure,
	WeeklyWorkStudyHours, FinancialStress, AccessTherapy,
}

// CategoricalFields are the fields whose values are labels rather than numbers.
var CategoricalFields = []string{
	Gender, EducationLevel, DietQuality, PhysicalDisability,
	ChronicIllness, WorkStudyPressure, AccessTherapy, SubstanceUse,
}

// Record is a single survey response keyed by field name.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Kind selects how a raw value is read as a number.
type Kind string

const (
	// Float reads the value as-is.
	Float Kind = "float"
	// Integer truncates the value toward zero.
	Integer Kind = "integer"
)

// State tells whether a field could be read.
type State int

const (
	// ValuePresent means the field exists and holds a usable number.
	ValuePresent State = iota
	// ValueMissing means the field is absent and the zero default applies.
	ValueMissing
	// ValueInvalid means the field exists but cannot be read as a number.
	ValueInvalid
)

func (s State) String() string {
	switch s {
	case ValuePresent:
		return "present"
	case ValueMissing:
		return "missing"
	case ValueInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Value is the result of reading a numeric field.
type Value struct {
	State  State
	Number float64
	Err    error
}

// Number reads field as a number of the given kind. A missing field reads as
// zero with state ValueMissing; null and non-numeric values are ValueInvalid.
func (r Record) Number(field string, kind Kind) Value {
	raw, ok := r[field]
	if !ok {
		return Value{State: ValueMissing}
	}
	if raw == nil {
		return Value{State: ValueInvalid, Err: fmt.Errorf("field %s is null", field)}
	}

	n, err := toNumber(raw, kind)
	if err != nil {
		return Value{State: ValueInvalid, Err: fmt.Errorf("field %s: %w", field, err)}
	}
	return Value{State: ValuePresent, Number: n}
}

func toNumber(raw any, kind Kind) (float64, error) {
	if s, ok := raw.(string); ok {
		s = strings.TrimSpace(s)
		if kind == Integer {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return 0, err
			}
			return float64(n), nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		if math.IsNaN(n) {
			return 0, fmt.Errorf("value is NaN")
		}
		return n, nil
	}

	n, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(n) {
		return 0, fmt.Errorf("value is NaN")
	}
	if kind == Integer {
		return math.Trunc(n), nil
	}
	return n, nil
}

// Label returns the string form of a field and whether the field is present.
func (r Record) Label(field string) (string, bool) {
	raw, ok := r[field]
	if !ok || raw == nil {
		return "", false
	}
	if s, ok := raw.(string); ok {
		return s, true
	}
	s, err := cast.ToStringE(raw)
	if err != nil {
		return fmt.Sprint(raw), true
	}
	return s, true
}
