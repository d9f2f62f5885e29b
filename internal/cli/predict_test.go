package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/mindcareai/mindcare/internal/history"
	"github.com/mindcareai/mindcare/internal/predict"
	"github.com/mindcareai/mindcare/internal/record"
	"github.com/mindcareai/mindcare/internal/testhelper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodJSON = `{"success":true,"prediction":"Good","confidence":70,"risk_level":"Low",` +
	`"risk_factors":["No major risk factors identified"],` +
	`"recommendations":["Maintain your current positive habits","Take regular assessments to track your mental health"]}`

const criticalJSON = `{"success":true,"prediction":"Critical","confidence":90,"risk_level":"Critical",` +
	`"risk_factors":["Significant depression symptoms","Very high stress levels"],` +
	`"recommendations":["Seek immediate professional help - consult a mental health professional",` +
	`"Contact crisis helpline: AASRA 9152987821 | Vandrevala 18602662345",` +
	`"Reduce screen time to under 6 hours daily","Take regular breaks every 20 minutes",` +
	`"Practice stress management techniques (meditation, yoga)"]}`

func criticalRecord() record.Record {
	rec := testhelper.Record()
	rec[record.StressLevel] = 9.0
	rec[record.DepressionSymptoms] = 9.0
	rec[record.ScreenTime] = 7.0
	return rec
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func runPredictCapture(t *testing.T, args []string, opts predictOptions) (stdout, stderr string, code int) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = runPredict(context.Background(), &out, &errOut, args, opts)
	return out.String(), errOut.String(), code
}

func TestRunPredict(t *testing.T) {
	dir := testhelper.WriteModels(t)
	opts := predictOptions{ModelsDir: dir, Format: "json"}

	tests := []struct {
		name     string
		args     []string
		wantCode int
		want     string
	}{
		{
			name:     "good respondent",
			args:     []string{mustJSON(t, testhelper.Record())},
			wantCode: 0,
			want:     goodJSON,
		},
		{
			name:     "critical respondent",
			args:     []string{mustJSON(t, criticalRecord())},
			wantCode: 0,
			want:     criticalJSON,
		},
		{
			name:     "no input",
			args:     nil,
			wantCode: 1,
			want:     `{"success":false,"error":"No input data provided"}`,
		},
		{
			name:     "invalid json",
			args:     []string{`{not json`},
			wantCode: 0,
			want:     `{"success":false,"error":"Invalid JSON input: invalid character 'n' looking for beginning of object key string"}`,
		},
		{
			name:     "not an object",
			args:     []string{`[1, 2]`},
			wantCode: 0,
			want:     `{"success":false,"error":"Invalid JSON input: expected a JSON object, got []interface {}"}`,
		},
		{
			name:     "missing file",
			args:     []string{"missing.json"},
			wantCode: 0,
			want:     `{"success":false,"error":"File not found: open missing.json: no such file or directory"}`,
		},
		{
			name:     "extra arguments are ignored",
			args:     []string{mustJSON(t, testhelper.Record()), "ignored"},
			wantCode: 0,
			want:     goodJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, code := runPredictCapture(t, tt.args, opts)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.want+"\n", stdout)
		})
	}
}

func TestRunPredict_File(t *testing.T) {
	dir := testhelper.WriteModels(t)
	path := filepath.Join(t.TempDir(), "survey.json")
	require.NoError(t, os.WriteFile(path, []byte(mustJSON(t, testhelper.Record())), 0o644))

	stdout, _, code := runPredictCapture(t, []string{path}, predictOptions{ModelsDir: dir, Format: "json"})
	assert.Equal(t, 0, code)
	assert.Equal(t, goodJSON+"\n", stdout)
}

func TestRunPredict_MissingFeature(t *testing.T) {
	dir := testhelper.WriteModels(t)
	rec := testhelper.Record()
	delete(rec, record.SleepHours)

	stdout, _, code := runPredictCapture(t, []string{mustJSON(t, rec)}, predictOptions{ModelsDir: dir, Format: "json"})
	assert.Equal(t, 0, code)

	var res predict.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, record.SleepHours)
}

func TestRunPredict_MissingModels(t *testing.T) {
	models := filepath.Join(t.TempDir(), "models")

	stdout, _, code := runPredictCapture(t, []string{mustJSON(t, testhelper.Record())}, predictOptions{ModelsDir: models, Format: "json"})
	assert.Equal(t, 0, code)

	var res predict.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "failed to load mental_health_model.json")
}

func TestRunPredict_FallbackHeuristic(t *testing.T) {
	models := filepath.Join(t.TempDir(), "models")
	opts := predictOptions{ModelsDir: models, FallbackHeuristic: true, Format: "json"}

	stdout, _, code := runPredictCapture(t, []string{mustJSON(t, criticalRecord())}, opts)
	assert.Equal(t, 0, code)

	var res predict.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Poor", res.Prediction.String())
}

func TestRunPredict_BadRules(t *testing.T) {
	dir := testhelper.WriteModels(t)
	opts := predictOptions{
		ModelsDir: dir,
		RulesPath: filepath.Join(t.TempDir(), "rules.yaml"),
		Format:    "json",
	}

	stdout, _, code := runPredictCapture(t, []string{mustJSON(t, testhelper.Record())}, opts)
	assert.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(stdout, `{"success":false,"error":"Prediction failed: failed to read rules file:`), stdout)
}

func TestRunPredict_CustomRules(t *testing.T) {
	dir := testhelper.WriteModels(t)
	rulesPath := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rulesPath, []byte(`
risk_factors:
  - {field: Age, kind: integer, op: ">", threshold: 20, message: Over twenty}
no_risk_message: Nothing
recommendations:
  - name: all
    when: {classes: [Good]}
    messages: [Keep going]
fallback_recommendation: Ask someone
max_recommendations: 3
`), 0o644))

	stdout, _, code := runPredictCapture(t, []string{mustJSON(t, testhelper.Record())}, predictOptions{ModelsDir: dir, RulesPath: rulesPath, Format: "json"})
	assert.Equal(t, 0, code)

	var res predict.Result
	require.NoError(t, json.Unmarshal([]byte(stdout), &res))
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{"Over twenty"}, res.RiskFactors)
	assert.Equal(t, []string{"Keep going"}, res.Recommendations)
}

func TestRunPredict_YAML(t *testing.T) {
	dir := testhelper.WriteModels(t)

	stdout, _, code := runPredictCapture(t, []string{mustJSON(t, testhelper.Record())}, predictOptions{ModelsDir: dir, Format: "yaml"})
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "success: true\n")
	assert.Contains(t, stdout, "prediction: Good\n")
	assert.Contains(t, stdout, "risk_level: Low\n")
}

func TestRunPredict_Text(t *testing.T) {
	setEnv(t, "MINDCARE_TEST", "true")
	dir := testhelper.WriteModels(t)

	stdout, stderr, code := runPredictCapture(t, []string{mustJSON(t, testhelper.Record())}, predictOptions{ModelsDir: dir, Format: "text"})
	assert.Equal(t, 0, code)

	assert.Contains(t, stderr, "[SPINNER START]")
	assert.Contains(t, stderr, "[SPINNER STOP]")
	snaps.MatchSnapshot(t, re.ReplaceAllString(stdout, ""))
}

func TestRunPredict_TextCritical(t *testing.T) {
	setEnv(t, "MINDCARE_TEST", "true")
	dir := testhelper.WriteModels(t)
	rec := criticalRecord()
	rec[record.Gender] = "Nonbinary"

	stdout, _, code := runPredictCapture(t, []string{mustJSON(t, rec)}, predictOptions{ModelsDir: dir, Format: "text", Quiet: true})
	assert.Equal(t, 0, code)

	plain := re.ReplaceAllString(stdout, "")
	assert.Contains(t, plain, "Critical")
	assert.Contains(t, plain, "90.0%")
	assert.Contains(t, plain, history.CrisisMessage)
	assert.Contains(t, plain, "Unknown Gender 'Nonbinary', encoded as 'Female'")
}

func TestRunPredict_TextFailure(t *testing.T) {
	stdout, stderr, code := runPredictCapture(t, []string{`{bad`}, predictOptions{Format: "text", Quiet: true})
	assert.Equal(t, 0, code)
	assert.Empty(t, stderr)
	assert.Contains(t, re.ReplaceAllString(stdout, ""), "Invalid JSON input")
}

func TestRunPredict_Cache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	dir := testhelper.WriteModels(t)
	opts := predictOptions{ModelsDir: dir, RedisAddr: mr.Addr(), CacheTTL: time.Minute, Format: "json"}
	arg := mustJSON(t, testhelper.Record())

	first, _, _ := runPredictCapture(t, []string{arg}, opts)
	require.Len(t, mr.Keys(), 1)
	assert.Equal(t, time.Minute, mr.TTL(mr.Keys()[0]))

	second, _, _ := runPredictCapture(t, []string{arg}, opts)
	assert.Equal(t, first, second)
	assert.Equal(t, goodJSON+"\n", second)
}

func TestRunPredict_CacheUnavailable(t *testing.T) {
	dir := testhelper.WriteModels(t)
	opts := predictOptions{ModelsDir: dir, RedisAddr: "127.0.0.1:1", CacheTTL: time.Minute, Format: "json"}

	stdout, _, code := runPredictCapture(t, []string{mustJSON(t, testhelper.Record())}, opts)
	assert.Equal(t, 0, code)
	assert.Equal(t, goodJSON+"\n", stdout)
}

func TestPredictCommand(t *testing.T) {
	resetFlags(t)
	dir := testhelper.WriteModels(t)

	output, err := executeCommand(rootCmd, "predict", "--models-dir", dir, mustJSON(t, testhelper.Record()))
	require.NoError(t, err)
	assert.Equal(t, goodJSON+"\n", output)
}
