package style

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ansiRe = regexp.MustCompile("\x1b\\[[0-9;]*m")

func plain(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}

func TestTable(t *testing.T) {
	out := plain(Table([]string{"FIELD", "LABELS"}, [][]string{
		{"Gender", "Female, Male"},
		{"Diet_Quality", "Good"},
	}))

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "FIELD         LABELS        ", lines[0])
	assert.Equal(t, "────────────  ────────────  ", lines[1])
	assert.Equal(t, "Gender        Female, Male  ", lines[2])
	assert.Equal(t, "Diet_Quality  Good          ", lines[3])
}

func TestTable_Empty(t *testing.T) {
	assert.Empty(t, Table([]string{"A"}, nil))
}

func TestRiskStyle(t *testing.T) {
	for _, level := range []string{"Low", "Moderate", "High", "Critical", "Unknown"} {
		assert.Equal(t, level, plain(RiskStyle(level).Render(level)))
	}
}

func TestMessages(t *testing.T) {
	var buf bytes.Buffer
	Success(&buf, "saved")
	Error(&buf, "failed")
	Warning(&buf, "careful")
	Info(&buf, "note")

	assert.Equal(t, "✓ saved\n✗ failed\n⚠ careful\nℹ note\n", plain(buf.String()))
}

func TestListItems(t *testing.T) {
	assert.Equal(t, "  • Sleep more", plain(Bullet("Sleep more")))
	assert.Equal(t, "  2. Walk daily", plain(Numbered(2, "Walk daily")))
}

func TestPrintCompactJSON(t *testing.T) {
	var buf bytes.Buffer
	PrintCompactJSON(&buf, map[string]string{"message": "Screen time (>8 hours/day)"})
	assert.Equal(t, `{"message":"Screen time (>8 hours/day)"}`+"\n", buf.String())
}

func TestPrintYAML(t *testing.T) {
	var buf bytes.Buffer
	PrintYAML(&buf, map[string][]string{"classes": {"Good", "Fair"}})
	assert.Equal(t, "classes:\n  - Good\n  - Fair\n", buf.String())
}
