package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/AnshRaj112/mindmatch-backend/internal/matching"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rulesFile = ""
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

const testPool = `[
	{"id": "a", "name": "Dr. A", "specializations": ["Anxiety Disorders", "Child & Adolescent"],
	 "languages": ["English", "Irish"], "is_verified": true},
	{"id": "b", "name": "Dr. B", "specializations": ["Depression"], "languages": ["English"], "is_verified": true},
	{"id": "c", "name": "Dr. C", "specializations": ["Anxiety Disorders"], "languages": ["Irish"], "is_verified": false}
]`

func TestRank(t *testing.T) {
	dir := t.TempDir()
	criteria := writeFile(t, dir, "criteria.json", `{"issue_type": "Anxiety", "urgency": "medium",
		"preferred_language": "Irish", "preferred_modality": "video", "client_age": 15}`)
	pool := writeFile(t, dir, "pool.json", testPool)

	out, err := run(t, "rank", "--criteria", criteria, "--pool", pool, "--limit", "1")
	require.NoError(t, err)

	var results []matching.MatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Therapist.ID)
	assert.Equal(t, "Verified therapist", results[0].Reasons[0])
}

func TestRank_SkipsUnverified(t *testing.T) {
	dir := t.TempDir()
	criteria := writeFile(t, dir, "criteria.json", `{"issue_type": "Anxiety", "urgency": "low",
		"preferred_language": "Irish", "preferred_modality": "chat", "client_age": 20}`)
	pool := writeFile(t, dir, "pool.json", testPool)

	out, err := run(t, "rank", "--criteria", criteria, "--pool", pool, "--limit", "10")
	require.NoError(t, err)

	var results []matching.MatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	for _, r := range results {
		assert.NotEqual(t, "c", r.Therapist.ID)
	}
}

func TestRank_BadCriteria(t *testing.T) {
	dir := t.TempDir()
	criteria := writeFile(t, dir, "criteria.json", `{"issue_type": "Anxiety", "urgency": "urgent"}`)
	pool := writeFile(t, dir, "pool.json", testPool)

	_, err := run(t, "rank", "--criteria", criteria, "--pool", pool)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "criteria")
}

func TestRank_RequiresFlags(t *testing.T) {
	_, err := run(t, "rank")
	assert.Error(t, err)
}

func TestRules_Default(t *testing.T) {
	out, err := run(t, "rules")
	require.NoError(t, err)

	var rs matching.RuleSet
	require.NoError(t, json.Unmarshal([]byte(out), &rs))
	assert.Equal(t, matching.DefaultRulesVersion, rs.Version)
	assert.NotEmpty(t, rs.Issues)
}

func TestRules_FromFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rules.yaml", `version: "2025.2"
issues:
  - issue_type: Anxiety
    direct: ["Anxiety Disorders"]
    related: ["CBT"]
`)

	out, err := run(t, "rules", "--rules", path)
	require.NoError(t, err)

	var rs matching.RuleSet
	require.NoError(t, json.Unmarshal([]byte(out), &rs))
	assert.Equal(t, "2025.2", rs.Version)
	require.Len(t, rs.Issues, 1)
	assert.Equal(t, matching.DefaultRules().CrisisTags, rs.CrisisTags)
}
