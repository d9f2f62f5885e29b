package record

import (
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/stoewer/go-strcase"
)

const schemaBaseID jsonschema.ID = "https://schemas.mindcare.ai/v1"

// Survey documents the shape of a Record. Predictions read Records, not
// this struct; it exists to generate the published input schema.
type Survey struct {
	Age                  float64 `json:"Age" jsonschema:"minimum=0,maximum=120"`
	Gender               string  `json:"Gender"`
	EducationLevel       string  `json:"Education_Level"`
	SleepHours           float64 `json:"Sleep_Hours" jsonschema:"minimum=0,maximum=24"`
	SleepQuality         float64 `json:"Sleep_Quality" jsonschema:"minimum=0,maximum=10"`
	DietQuality          string  `json:"Diet_Quality"`
	ExerciseFreq         float64 `json:"Exercise_Freq" jsonschema:"minimum=0,maximum=7"`
	ScreenTime           float64 `json:"Screen_Time" jsonschema:"minimum=0,maximum=24"`
	SubstanceUse         string  `json:"Substance_Use"`
	StressLevel          float64 `json:"Stress_Level" jsonschema:"minimum=0,maximum=10"`
	AnxietyLevel         float64 `json:"Anxiety_Level" jsonschema:"minimum=0,maximum=10"`
	DepressionSymptoms   float64 `json:"Depression_Symptoms" jsonschema:"minimum=0,maximum=10"`
	SelfEsteem           float64 `json:"Self_Esteem" jsonschema:"minimum=0,maximum=10"`
	CopingSkills         float64 `json:"Coping_Skills" jsonschema:"minimum=0,maximum=10"`
	LifeSatisfaction     float64 `json:"Life_Satisfaction" jsonschema:"minimum=0,maximum=10"`
	LifePurpose          float64 `json:"Life_Purpose" jsonschema:"minimum=0,maximum=10"`
	FamilySupport        float64 `json:"Family_Support" jsonschema:"minimum=0,maximum=10"`
	SocialIsolation      float64 `json:"Social_Isolation" jsonschema:"minimum=0,maximum=10"`
	LonelinessFrequency  float64 `json:"Loneliness_Frequency" jsonschema:"minimum=0,maximum=10"`
	RelationshipQuality  float64 `json:"Relationship_Quality" jsonschema:"minimum=0,maximum=10"`
	PhysicalDisability   string  `json:"Physical_Disability"`
	DisabilityAdjustment float64 `json:"Disability_Adjustment" jsonschema:"minimum=0,maximum=10"`
	ChronicIllness       string  `json:"Chronic_Illness"`
	WorkStudyPressure    string  `json:"Work_Study_Pressure"`
	WeeklyWorkStudyHours float64 `json:"Weekly_Work_Study_Hours" jsonschema:"minimum=0,maximum=168"`
	FinancialStress      float64 `json:"Financial_Stress" jsonschema:"minimum=0,maximum=10"`
	AccessTherapy        string  `json:"Access_Therapy"`
}

// Schema returns the JSON schema of a survey record. Categorical fields get
// an enum of their known labels when vocabularies is non-nil.
func Schema(vocabularies map[string][]string) *jsonschema.Schema {
	r := &jsonschema.Reflector{
		Namer: func(t reflect.Type) string {
			return strcase.SnakeCase(t.Name())
		},
		BaseSchemaID:   schemaBaseID,
		ExpandedStruct: true,
	}

	schema := r.Reflect(&Survey{})
	schema.Title = "MindCare survey record"

	for _, field := range CategoricalFields {
		labels := vocabularies[field]
		if len(labels) == 0 {
			continue
		}
		prop, ok := schema.Properties.Get(field)
		if !ok {
			continue
		}
		prop.Enum = make([]any, len(labels))
		for i, label := range labels {
			prop.Enum[i] = label
		}
	}
	return schema
}
