package services

import (
	"context"
	"time"

	"github.com/AnshRaj112/mindmatch-backend/internal/logger"
	"github.com/AnshRaj112/mindmatch-backend/internal/matching"
	"github.com/AnshRaj112/mindmatch-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	matchRunsCollection = "match_runs"
	maxMatchRunsListed  = 50
)

// MatchAuditStore keeps one document per ranking pass so the reasons behind
// a committed match can be reviewed later.
type MatchAuditStore struct {
	col    *mongo.Collection
	logger logger.Logger
}

func NewMatchAuditStore(db *mongo.Database, log logger.Logger) *MatchAuditStore {
	return &MatchAuditStore{
		col:    db.Collection(matchRunsCollection),
		logger: log.WithFields(map[string]interface{}{"component": "match_audit"}),
	}
}

// EnsureIndexes is called on startup after Mongo has connected.
func (s *MatchAuditStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "referral_id", Value: 1},
			{Key: "created_at", Value: -1},
		},
		Options: options.Index().SetName("idx_referral_created"),
	})
	return err
}

func (s *MatchAuditStore) Record(ctx context.Context, run *models.MatchRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Candidates == nil {
		run.Candidates = []models.MatchCandidate{}
	}

	res, err := s.col.InsertOne(ctx, run)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		run.ID = id
	}
	return nil
}

// ListForReferral returns the most recent runs first.
func (s *MatchAuditStore) ListForReferral(ctx context.Context, referralID string) ([]models.MatchRun, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(maxMatchRunsListed)

	cur, err := s.col.Find(ctx, bson.M{"referral_id": referralID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	runs := make([]models.MatchRun, 0)
	for cur.Next(ctx) {
		var run models.MatchRun
		if err := cur.Decode(&run); err != nil {
			s.logger.Warn("skipping undecodable match run", map[string]interface{}{"error": err})
			continue
		}
		runs = append(runs, run)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// CandidatesFrom converts ranked results into their audit form.
func CandidatesFrom(results []matching.MatchResult) []models.MatchCandidate {
	out := make([]models.MatchCandidate, 0, len(results))
	for _, r := range results {
		out = append(out, models.MatchCandidate{
			TherapistID:   r.Therapist.ID,
			TherapistName: r.Therapist.Name,
			Score:         r.Score,
			Reasons:       r.Reasons,
		})
	}
	return out
}
