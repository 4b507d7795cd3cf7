package matching

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

var ErrInvalidRules = errors.New("invalid matching rules")

// IssueRule maps a referral issue type to the specialization tags that count
// as a direct match and, failing that, as related experience. Tag order
// matters: the first tag the therapist has is the one named in the reason.
type IssueRule struct {
	IssueType string   `mapstructure:"issue_type" json:"issue_type"`
	Direct    []string `mapstructure:"direct" json:"direct"`
	Related   []string `mapstructure:"related" json:"related"`
}

// RuleSet is the versioned clinical data behind the scoring engine.
type RuleSet struct {
	Version         string      `mapstructure:"version" json:"version"`
	Issues          []IssueRule `mapstructure:"issues" json:"issues"`
	CrisisTags      []string    `mapstructure:"crisis_tags" json:"crisis_tags"`
	HighUrgencyTags []string    `mapstructure:"high_urgency_tags" json:"high_urgency_tags"`

	byIssue map[string]IssueRule
}

const DefaultRulesVersion = "2024.1"

func DefaultRules() *RuleSet {
	rs := &RuleSet{
		Version: DefaultRulesVersion,
		Issues: []IssueRule{
			{IssueType: "Anxiety", Direct: []string{"Anxiety Disorders", "Social Anxiety"}, Related: []string{"Child & Adolescent", "CBT"}},
			{IssueType: "Depression", Direct: []string{"Depression"}, Related: []string{"Child & Adolescent", "CBT"}},
			{IssueType: "ADHD", Direct: []string{"ADHD"}, Related: []string{"Child & Adolescent", "Behavioral Issues"}},
			{IssueType: "Autism Spectrum", Direct: []string{"Autism Spectrum"}, Related: []string{"Child & Adolescent"}},
			{IssueType: "Eating Disorders", Direct: []string{"Eating Disorders"}, Related: []string{"Child & Adolescent"}},
			{IssueType: "Substance Use", Direct: []string{"Substance Use"}, Related: []string{"Child & Adolescent"}},
			{IssueType: "Trauma/PTSD", Direct: []string{"Trauma/PTSD"}, Related: []string{"Child & Adolescent", "EMDR"}},
			{IssueType: "Family Issues", Direct: []string{"Family Therapy"}, Related: []string{"Child & Adolescent", "Couples Therapy"}},
			{IssueType: "School/Work Stress", Direct: []string{"School Issues"}, Related: []string{"Child & Adolescent"}},
			{IssueType: "Self-Harm", Direct: []string{"Self-Harm"}, Related: []string{"Child & Adolescent", "Crisis Intervention"}},
			{IssueType: "Suicidal Thoughts", Direct: []string{"Suicidal Ideation"}, Related: []string{"Child & Adolescent", "Crisis Intervention"}},
			{IssueType: "Behavioral Issues", Direct: []string{"Behavioral Issues"}, Related: []string{"Child & Adolescent"}},
			{IssueType: "Grief/Loss", Direct: []string{"Grief & Loss"}, Related: []string{"Child & Adolescent"}},
		},
		CrisisTags:      []string{"Suicidal Ideation", "Self-Harm", "Crisis Intervention"},
		HighUrgencyTags: []string{"Suicidal Ideation", "Self-Harm", "Trauma/PTSD"},
	}
	rs.index()
	return rs
}

// LoadRules reads a rules file (YAML, JSON or TOML, by extension). An empty
// path returns DefaultRules. Crisis and high-urgency tag sets fall back to the
// defaults when the file leaves them out.
func LoadRules(path string) (*RuleSet, error) {
	if path == "" {
		return DefaultRules(), nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read rules file %s: %w", path, err)
	}

	var rs RuleSet
	if err := v.Unmarshal(&rs); err != nil {
		return nil, fmt.Errorf("decode rules file %s: %w", path, err)
	}

	defaults := DefaultRules()
	if len(rs.CrisisTags) == 0 {
		rs.CrisisTags = defaults.CrisisTags
	}
	if len(rs.HighUrgencyTags) == 0 {
		rs.HighUrgencyTags = defaults.HighUrgencyTags
	}

	if err := rs.Validate(); err != nil {
		return nil, err
	}
	rs.index()
	return &rs, nil
}

func (rs *RuleSet) Validate() error {
	if rs.Version == "" {
		return fmt.Errorf("%w: version is required", ErrInvalidRules)
	}
	seen := make(map[string]struct{}, len(rs.Issues))
	for i, issue := range rs.Issues {
		if issue.IssueType == "" {
			return fmt.Errorf("%w: issue %d has no issue_type", ErrInvalidRules, i)
		}
		if _, dup := seen[issue.IssueType]; dup {
			return fmt.Errorf("%w: duplicate issue_type %q", ErrInvalidRules, issue.IssueType)
		}
		seen[issue.IssueType] = struct{}{}
	}
	return nil
}

func (rs *RuleSet) index() {
	rs.byIssue = make(map[string]IssueRule, len(rs.Issues))
	for _, issue := range rs.Issues {
		rs.byIssue[issue.IssueType] = issue
	}
}

// Issue returns the rule for an issue type. Lookup is case-sensitive.
func (rs *RuleSet) Issue(issueType string) (IssueRule, bool) {
	if rs.byIssue != nil {
		rule, ok := rs.byIssue[issueType]
		return rule, ok
	}
	for _, issue := range rs.Issues {
		if issue.IssueType == issueType {
			return issue, true
		}
	}
	return IssueRule{}, false
}
