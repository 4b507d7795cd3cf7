// Package matching ranks verified therapists against a referral with an
// additive, explainable score. Every point awarded comes with a reason string
// so admins and referrers can see why a therapist was suggested.
package matching

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AnshRaj112/mindmatch-backend/internal/models"
)

// DefaultLimit is the number of results returned when the caller passes a
// non-positive limit.
const DefaultLimit = 3

const (
	pointsVerified          = 10
	pointsDirectSpecialty   = 40
	pointsRelatedSpecialty  = 20
	pointsLanguage          = 25
	pointsLanguageFallback  = 10
	pointsModality          = 15
	pointsChildSpecialist   = 15
	pointsYoungChildGeneral = 5
	pointsAgeAppropriate    = 10
	pointsCrisisSpecialist  = 20
	pointsCrisisGeneral     = 5
	pointsUrgentSpecialist  = 15
	pointsUrgentGeneral     = 10
	pointsRoutineUrgency    = 10
	pointsAccessibility     = 10
	pointsCultural          = 10
	pointsTherapySpecialist = 15
	pointsRequirementsNoted = 5
	childSpecialization     = "Child & Adolescent"
	fallbackLanguage        = "English"
	youngChildAgeLimit      = 12
	cbtSpecialization       = "CBT"
	emdrSpecialization      = "EMDR"
)

// Engine scores therapists with a fixed RuleSet. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	rules *RuleSet
}

// NewEngine builds an engine over a copy of rules. A nil RuleSet means
// DefaultRules.
func NewEngine(rules *RuleSet) *Engine {
	if rules == nil {
		return &Engine{rules: DefaultRules()}
	}
	cp := *rules
	cp.index()
	return &Engine{rules: &cp}
}

func (e *Engine) Rules() *RuleSet {
	return e.rules
}

func (e *Engine) RulesVersion() string {
	return e.rules.Version
}

// FindMatches scores every therapist in pool against c and returns the best
// limit results, highest score first. Ties keep pool order. The pool should
// already be restricted to verified therapists.
func (e *Engine) FindMatches(c Criteria, pool []models.Therapist, limit int) []MatchResult {
	if limit <= 0 {
		limit = DefaultLimit
	}

	results := make([]MatchResult, 0, len(pool))
	for i := range pool {
		score, reasons := e.Score(&pool[i], c)
		// Never true with the current weights (minimum is 35).
		if score <= 0 {
			continue
		}
		results = append(results, MatchResult{
			Therapist: &pool[i],
			Score:     score,
			Reasons:   reasons,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

type scorecard struct {
	score   int
	reasons []string
}

func (s *scorecard) add(points int, reason string) {
	s.score += points
	s.reasons = append(s.reasons, reason)
}

// Score applies the rules to a single therapist. Reasons are returned in
// evaluation order.
func (e *Engine) Score(t *models.Therapist, c Criteria) (int, []string) {
	card := &scorecard{reasons: make([]string, 0, 8)}

	card.add(pointsVerified, "Verified therapist")
	e.scoreSpecialization(card, t, c.IssueType)
	scoreLanguage(card, t, c.PreferredLanguage)

	// Availability is not checked against the therapist's calendar yet, so
	// every candidate gets the modality points.
	card.add(pointsModality, "Available for sessions")

	scoreAge(card, t, c.ClientAge)
	e.scoreUrgency(card, t, c.Urgency)
	scoreSpecialRequirements(card, t, c.SpecialRequirements)

	return card.score, card.reasons
}

func (e *Engine) scoreSpecialization(card *scorecard, t *models.Therapist, issueType string) {
	rule, ok := e.rules.Issue(issueType)
	if !ok {
		return
	}
	if tag, found := firstHeld(t, rule.Direct); found {
		card.add(pointsDirectSpecialty, "Specializes in "+tag)
		return
	}
	if tag, found := firstHeld(t, rule.Related); found {
		card.add(pointsRelatedSpecialty, "Has experience with "+tag)
	}
}

func scoreLanguage(card *scorecard, t *models.Therapist, preferred string) {
	switch {
	case t.SpeaksLanguage(preferred):
		card.add(pointsLanguage, fmt.Sprintf("Speaks %s", preferred))
	case preferred != fallbackLanguage && t.SpeaksLanguage(fallbackLanguage):
		card.add(pointsLanguageFallback, "Speaks English (fallback)")
	}
}

func scoreAge(card *scorecard, t *models.Therapist, age int) {
	switch {
	case t.HasSpecialization(childSpecialization):
		card.add(pointsChildSpecialist, "Specializes in child & adolescent therapy")
	case age < youngChildAgeLimit:
		card.add(pointsYoungChildGeneral, "General practice (may need child specialist)")
	default:
		card.add(pointsAgeAppropriate, "Appropriate for age group")
	}
}

func (e *Engine) scoreUrgency(card *scorecard, t *models.Therapist, u models.Urgency) {
	switch u {
	case models.UrgencyCrisis:
		if _, ok := firstHeld(t, e.rules.CrisisTags); ok {
			card.add(pointsCrisisSpecialist, "Crisis intervention specialist")
		} else {
			card.add(pointsCrisisGeneral, "General practice (may need crisis specialist)")
		}
	case models.UrgencyHigh:
		if _, ok := firstHeld(t, e.rules.HighUrgencyTags); ok {
			card.add(pointsUrgentSpecialist, "Experience with urgent cases")
		} else {
			card.add(pointsUrgentGeneral, "General practice")
		}
	default:
		card.add(pointsRoutineUrgency, "Appropriate for urgency level")
	}
}

// scoreSpecialRequirements awards points for the first keyword family found
// in the free-text requirements.
func scoreSpecialRequirements(card *scorecard, t *models.Therapist, requirements string) {
	if requirements == "" {
		return
	}
	text := strings.ToLower(requirements)

	switch {
	case strings.Contains(text, "wheelchair") || strings.Contains(text, "accessibility"):
		card.add(pointsAccessibility, "Accessibility considerations noted")
	case strings.Contains(text, "cultural") || strings.Contains(text, "religion"):
		card.add(pointsCultural, "Cultural considerations noted")
	case strings.Contains(text, "cbt") && t.HasSpecialization(cbtSpecialization):
		card.add(pointsTherapySpecialist, "CBT specialist")
	case strings.Contains(text, "emdr") && t.HasSpecialization(emdrSpecialization):
		card.add(pointsTherapySpecialist, "EMDR specialist")
	default:
		card.add(pointsRequirementsNoted, "Special requirements noted")
	}
}

// firstHeld returns the first tag in tags, in table order, that t holds.
func firstHeld(t *models.Therapist, tags []string) (string, bool) {
	for _, tag := range tags {
		if t.HasSpecialization(tag) {
			return tag, true
		}
	}
	return "", false
}
