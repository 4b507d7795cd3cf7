package matching

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/AnshRaj112/mindmatch-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRulesFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultRules(t *testing.T) {
	rs := DefaultRules()

	require.NoError(t, rs.Validate())
	assert.Equal(t, DefaultRulesVersion, rs.Version)
	assert.Len(t, rs.Issues, 13)

	for _, issue := range rs.Issues {
		require.NotEmpty(t, issue.Related, issue.IssueType)
		assert.Equal(t, "Child & Adolescent", issue.Related[0], issue.IssueType)
	}

	anxiety, ok := rs.Issue("Anxiety")
	require.True(t, ok)
	assert.Equal(t, []string{"Anxiety Disorders", "Social Anxiety"}, anxiety.Direct)

	grief, ok := rs.Issue("Grief/Loss")
	require.True(t, ok)
	assert.Equal(t, []string{"Grief & Loss"}, grief.Direct)

	_, ok = rs.Issue("anxiety")
	assert.False(t, ok, "issue lookup is case-sensitive")
}

func TestLoadRules_EmptyPathReturnsDefaults(t *testing.T) {
	rs, err := LoadRules("")

	require.NoError(t, err)
	assert.Equal(t, DefaultRules().Issues, rs.Issues)
}

func TestLoadRules_YAML(t *testing.T) {
	path := writeRulesFile(t, "rules.yaml", `
version: "2025.2"
issues:
  - issue_type: Anxiety
    direct: ["Social Anxiety"]
    related: ["Mindfulness"]
  - issue_type: Sleep Problems
    direct: ["Sleep Disorders"]
    related: []
`)

	rs, err := LoadRules(path)

	require.NoError(t, err)
	assert.Equal(t, "2025.2", rs.Version)
	require.Len(t, rs.Issues, 2)

	sleep, ok := rs.Issue("Sleep Problems")
	require.True(t, ok, "issue keys keep their case")
	assert.Equal(t, []string{"Sleep Disorders"}, sleep.Direct)

	// tag sets were omitted so the defaults apply
	assert.Equal(t, DefaultRules().CrisisTags, rs.CrisisTags)
	assert.Equal(t, DefaultRules().HighUrgencyTags, rs.HighUrgencyTags)
}

func TestLoadRules_Errors(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		invalid bool
	}{
		{
			name: "missing file",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") },
		},
		{
			name: "missing version",
			path: func(t *testing.T) string {
				return writeRulesFile(t, "rules.yaml", "issues:\n  - issue_type: Anxiety\n    direct: [\"CBT\"]\n")
			},
			invalid: true,
		},
		{
			name: "duplicate issue type",
			path: func(t *testing.T) string {
				return writeRulesFile(t, "rules.yaml", `
version: "x"
issues:
  - issue_type: Anxiety
    direct: ["A"]
  - issue_type: Anxiety
    direct: ["B"]
`)
			},
			invalid: true,
		},
		{
			name: "blank issue type",
			path: func(t *testing.T) string {
				return writeRulesFile(t, "rules.yaml", "version: \"x\"\nissues:\n  - direct: [\"A\"]\n")
			},
			invalid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := LoadRules(tt.path(t))

			require.Error(t, err)
			assert.Nil(t, rs)
			if tt.invalid {
				assert.ErrorIs(t, err, ErrInvalidRules)
			}
		})
	}
}

func TestNewEngine_UsesSuppliedRules(t *testing.T) {
	path := writeRulesFile(t, "rules.yaml", `
version: "custom"
issues:
  - issue_type: Anxiety
    direct: ["Mindfulness"]
crisis_tags: ["Mindfulness"]
`)
	rs, err := LoadRules(path)
	require.NoError(t, err)

	engine := NewEngine(rs)
	th := models.Therapist{ID: "T", Specializations: []string{"Mindfulness"}}

	score, reasons := engine.Score(&th, Criteria{
		IssueType: "Anxiety",
		Urgency:   models.UrgencyCrisis,
		ClientAge: 15,
	})

	assert.Equal(t, "custom", engine.RulesVersion())
	assert.Contains(t, reasons, "Specializes in Mindfulness")
	assert.Contains(t, reasons, "Crisis intervention specialist")
	assert.Equal(t, 10+40+15+10+20, score)
}
