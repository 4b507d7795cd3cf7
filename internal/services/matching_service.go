package services

import (
	"context"
	"fmt"
	"time"

	"github.com/AnshRaj112/mindmatch-backend/internal/logger"
	"github.com/AnshRaj112/mindmatch-backend/internal/matching"
	"github.com/AnshRaj112/mindmatch-backend/internal/metrics"
	"github.com/AnshRaj112/mindmatch-backend/internal/models"
)

const (
	TriggerAuto   = "auto"
	TriggerManual = "manual"
)

type ReferralRepository interface {
	Get(ctx context.Context, id string) (*models.Referral, error)
	CommitMatch(ctx context.Context, referralID, therapistID string) error
	GetUser(ctx context.Context, id string) (*models.User, error)
}

type TherapistPool interface {
	ListVerified(ctx context.Context) ([]models.Therapist, error)
	Get(ctx context.Context, id string) (*models.Therapist, error)
	IsTherapistAvailable(ctx context.Context, id string) (bool, error)
}

type MatchAuditor interface {
	Record(ctx context.Context, run *models.MatchRun) error
	ListForReferral(ctx context.Context, referralID string) ([]models.MatchRun, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event MatchEvent) error
}

type MatchNotifier interface {
	SendMatchNotification(ctx context.Context, to, clientName string, t *models.Therapist) error
	SendTherapistMatchNotification(ctx context.Context, to string, r *models.Referral) error
	SendCrisisAlert(ctx context.Context, r *models.Referral, therapistName string) error
}

// MatchOutcome is the result of processing a referral. Matches is always
// non-nil; Committed is false when nobody scored above zero.
type MatchOutcome struct {
	ReferralID    string                 `json:"referral_id"`
	RulesVersion  string                 `json:"rules_version"`
	Trigger       string                 `json:"trigger"`
	Matches       []matching.MatchResult `json:"matches"`
	Committed     bool                   `json:"committed"`
	Therapist     *models.Therapist      `json:"therapist,omitempty"`
	Score         int                    `json:"score,omitempty"`
	Notifications map[string]string      `json:"notifications,omitempty"`
}

// MatchingService ties the engine to storage: it loads the referral and the
// verified pool, ranks, commits and then fans the result out. Audit, events
// and notifications are optional; their failures are logged and never undo a
// commit.
type MatchingService struct {
	engine    *matching.Engine
	referrals ReferralRepository
	pool      TherapistPool
	audit     MatchAuditor
	events    EventPublisher
	notifier  MatchNotifier
	limit     int
	logger    logger.Logger
}

type MatchingServiceOption func(*MatchingService)

func WithMatchAudit(a MatchAuditor) MatchingServiceOption {
	return func(s *MatchingService) { s.audit = a }
}

func WithMatchEvents(p EventPublisher) MatchingServiceOption {
	return func(s *MatchingService) { s.events = p }
}

func WithMatchNotifier(n MatchNotifier) MatchingServiceOption {
	return func(s *MatchingService) { s.notifier = n }
}

// WithDefaultLimit sets how many candidates a run ranks when the caller does
// not say. Values <= 0 leave the engine default.
func WithDefaultLimit(limit int) MatchingServiceOption {
	return func(s *MatchingService) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

func NewMatchingService(engine *matching.Engine, referrals ReferralRepository, pool TherapistPool, log logger.Logger, opts ...MatchingServiceOption) *MatchingService {
	if engine == nil {
		engine = matching.NewEngine(nil)
	}
	s := &MatchingService{
		engine:    engine,
		referrals: referrals,
		pool:      pool,
		limit:     matching.DefaultLimit,
		logger:    log.WithFields(map[string]interface{}{"component": "matching"}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MatchingService) Engine() *matching.Engine {
	return s.engine
}

func (s *MatchingService) rank(ctx context.Context, ref *models.Referral, limit int) ([]models.Therapist, []matching.MatchResult, error) {
	start := time.Now()
	pool, err := s.pool.ListVerified(ctx)
	if err != nil {
		metrics.MatchRuns.WithLabelValues("error").Inc()
		return nil, nil, fmt.Errorf("load therapist pool: %w", err)
	}

	results := s.engine.FindMatches(matching.CriteriaFromReferral(ref), pool, limit)

	metrics.MatchDuration.Observe(time.Since(start).Seconds())
	metrics.MatchPoolSize.Observe(float64(len(pool)))
	if len(results) > 0 {
		metrics.MatchTopScore.Observe(float64(results[0].Score))
	}
	return pool, results, nil
}

// PreviewMatches ranks the verified pool for a referral without committing
// anything. limit <= 0 uses the service default.
func (s *MatchingService) PreviewMatches(ctx context.Context, referralID string, limit int) ([]matching.MatchResult, error) {
	ref, err := s.referrals.Get(ctx, referralID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.limit
	}

	_, results, err := s.rank(ctx, ref, limit)
	if err != nil {
		return nil, err
	}
	metrics.MatchRuns.WithLabelValues("preview").Inc()
	return results, nil
}

func isOpenForMatching(status models.ReferralStatus) bool {
	return status == models.ReferralPending || status == models.ReferralMatched
}

// ProcessReferral ranks the pool and commits a therapist to the referral.
// With an empty therapistID the top-ranked candidate is committed; otherwise
// the named therapist is, provided they are verified. A run with no positive
// candidates commits nothing and leaves the referral pending.
func (s *MatchingService) ProcessReferral(ctx context.Context, referralID, therapistID string) (*MatchOutcome, error) {
	ref, err := s.referrals.Get(ctx, referralID)
	if err != nil {
		return nil, err
	}
	if !isOpenForMatching(ref.Status) {
		return nil, ErrReferralClosed
	}

	pool, results, err := s.rank(ctx, ref, s.limit)
	if err != nil {
		return nil, err
	}

	out := &MatchOutcome{
		ReferralID:   ref.ID,
		RulesVersion: s.engine.RulesVersion(),
		Trigger:      TriggerAuto,
		Matches:      results,
	}

	var chosen *models.Therapist
	if therapistID == "" {
		if len(results) == 0 {
			metrics.MatchRuns.WithLabelValues("no_match").Inc()
			s.logger.Info("no therapist matched referral", map[string]interface{}{
				"referral_id": ref.ID,
				"pool_size":   len(pool),
			})
			s.recordRun(ctx, ref, out, len(pool))
			return out, nil
		}
		chosen = results[0].Therapist
		out.Score = results[0].Score
	} else {
		out.Trigger = TriggerManual
		chosen, err = s.manualChoice(ctx, pool, therapistID)
		if err != nil {
			return nil, err
		}
		out.Score, _ = s.engine.Score(chosen, matching.CriteriaFromReferral(ref))
	}

	if err := s.referrals.CommitMatch(ctx, ref.ID, chosen.ID); err != nil {
		metrics.MatchRuns.WithLabelValues("error").Inc()
		return nil, err
	}
	ref.MatchedTherapistID = chosen.ID
	ref.Status = models.ReferralMatched

	out.Committed = true
	out.Therapist = chosen
	metrics.MatchRuns.WithLabelValues("matched").Inc()
	metrics.MatchCommits.WithLabelValues(out.Trigger).Inc()
	s.logger.Info("referral matched", map[string]interface{}{
		"referral_id":  ref.ID,
		"therapist_id": chosen.ID,
		"score":        out.Score,
		"trigger":      out.Trigger,
	})

	s.recordRun(ctx, ref, out, len(pool))
	s.publish(ctx, ref, out)
	out.Notifications = s.notify(ctx, ref, chosen)
	return out, nil
}

func (s *MatchingService) manualChoice(ctx context.Context, pool []models.Therapist, therapistID string) (*models.Therapist, error) {
	ok, err := s.pool.IsTherapistAvailable(ctx, therapistID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTherapistNotVerified
	}
	for i := range pool {
		if sameID(pool[i].ID, therapistID) {
			return &pool[i], nil
		}
	}
	// Verified after the pool was cached.
	return s.pool.Get(ctx, therapistID)
}

func (s *MatchingService) recordRun(ctx context.Context, ref *models.Referral, out *MatchOutcome, poolSize int) {
	if s.audit == nil {
		return
	}
	run := &models.MatchRun{
		ReferralID:   ref.ID,
		RulesVersion: out.RulesVersion,
		Limit:        s.limit,
		PoolSize:     poolSize,
		Candidates:   CandidatesFrom(out.Matches),
		Trigger:      out.Trigger,
	}
	if out.Therapist != nil {
		run.CommittedTherapistID = out.Therapist.ID
	}
	if err := s.audit.Record(ctx, run); err != nil {
		s.logger.Warn("match run audit failed", map[string]interface{}{"referral_id": ref.ID, "error": err})
	}
}

func (s *MatchingService) publish(ctx context.Context, ref *models.Referral, out *MatchOutcome) {
	if s.events == nil {
		return
	}
	err := s.events.Publish(ctx, MatchEvent{
		Type:          EventReferralMatched,
		ReferralID:    ref.ID,
		TherapistID:   out.Therapist.ID,
		TherapistName: out.Therapist.Name,
		Score:         out.Score,
		Urgency:       ref.Urgency.String(),
	})
	if err != nil {
		s.logger.Warn("match event publish failed", map[string]interface{}{"referral_id": ref.ID, "error": err})
	}
}

func (s *MatchingService) notify(ctx context.Context, ref *models.Referral, t *models.Therapist) map[string]string {
	if s.notifier == nil {
		return nil
	}
	status := make(map[string]string, 3)

	referrer, err := s.referrals.GetUser(ctx, ref.ReferrerID)
	if err != nil {
		s.logger.Warn("referrer lookup failed", map[string]interface{}{"referral_id": ref.ID, "error": err})
		status["referrer"] = StatusFailed
	} else {
		status["referrer"] = DeliveryStatus(s.notifier.SendMatchNotification(ctx, referrer.Email, ref.ClientName, t))
	}

	status["therapist"] = DeliveryStatus(s.notifier.SendTherapistMatchNotification(ctx, t.Email, ref))

	if ref.Urgency == models.UrgencyCrisis {
		status["clinical_lead"] = DeliveryStatus(s.notifier.SendCrisisAlert(ctx, ref, t.Name))
	}
	return status
}

// MatchHistory returns the audit trail for a referral, newest first.
func (s *MatchingService) MatchHistory(ctx context.Context, referralID string) ([]models.MatchRun, error) {
	if _, err := s.referrals.Get(ctx, referralID); err != nil {
		return nil, err
	}
	if s.audit == nil {
		return []models.MatchRun{}, nil
	}
	runs, err := s.audit.ListForReferral(ctx, referralID)
	if err != nil {
		return nil, fmt.Errorf("load match runs: %w", err)
	}
	return runs, nil
}
