package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/AnshRaj112/mindmatch-backend/internal/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	MatchEventsChannel = "matches:events"

	EventReferralMatched = "referral_matched"
	EventReferralBooked  = "referral_booked"

	maxSubscriberBackoff = 30 * time.Second
)

// MatchEvent is broadcast over Redis and fanned out to websocket watchers.
type MatchEvent struct {
	Type          string    `json:"type"`
	ReferralID    string    `json:"referral_id"`
	TherapistID   string    `json:"therapist_id,omitempty"`
	TherapistName string    `json:"therapist_name,omitempty"`
	Score         int       `json:"score,omitempty"`
	Urgency       string    `json:"urgency,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// EventConn is the part of a websocket connection the hub writes to.
type EventConn interface {
	WriteJSON(v interface{}) error
	Close() error
}

type watcher struct {
	conn EventConn
	mu   sync.Mutex
}

func (w *watcher) send(event MatchEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(event)
}

// MatchEventHub tracks local websocket watchers. With a Redis client, events
// go through pub/sub so every instance sees them; without one they are fanned
// out locally.
type MatchEventHub struct {
	mu       sync.RWMutex
	watchers map[string]*watcher
	client   *redis.Client
	logger   logger.Logger
	started  sync.Once
}

func NewMatchEventHub(client *redis.Client, log logger.Logger) *MatchEventHub {
	return &MatchEventHub{
		watchers: make(map[string]*watcher),
		client:   client,
		logger:   log.WithFields(map[string]interface{}{"component": "match_events"}),
	}
}

func (h *MatchEventHub) Register(conn EventConn) string {
	id := uuid.NewString()
	h.mu.Lock()
	h.watchers[id] = &watcher{conn: conn}
	h.mu.Unlock()
	return id
}

func (h *MatchEventHub) Unregister(id string) {
	h.mu.Lock()
	delete(h.watchers, id)
	h.mu.Unlock()
}

func (h *MatchEventHub) Watchers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers)
}

// FanOut writes the event to every local watcher. Watchers that fail are
// dropped and closed.
func (h *MatchEventHub) FanOut(event MatchEvent) {
	h.mu.RLock()
	snapshot := make(map[string]*watcher, len(h.watchers))
	for id, w := range h.watchers {
		snapshot[id] = w
	}
	h.mu.RUnlock()

	for id, w := range snapshot {
		if err := w.send(event); err != nil {
			h.logger.Warn("dropping match event watcher", map[string]interface{}{"watcher": id, "error": err})
			h.Unregister(id)
			w.conn.Close()
		}
	}
}

func (h *MatchEventHub) Publish(ctx context.Context, event MatchEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if h.client == nil {
		h.FanOut(event)
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return h.client.Publish(ctx, MatchEventsChannel, data).Err()
}

// Start runs a single Redis subscriber for this hub until ctx is done.
func (h *MatchEventHub) Start(ctx context.Context) {
	if h.client == nil {
		return
	}
	h.started.Do(func() {
		go h.runSubscriber(ctx)
	})
}

func (h *MatchEventHub) runSubscriber(ctx context.Context) {
	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		err := func() error {
			pubsub := h.client.Subscribe(ctx, MatchEventsChannel)
			defer pubsub.Close()

			h.logger.Info("match event subscriber started", map[string]interface{}{"channel": MatchEventsChannel})
			for {
				msg, err := pubsub.ReceiveMessage(ctx)
				if err != nil {
					return err
				}
				backoff = time.Second

				var event MatchEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					h.logger.Warn("bad match event payload", map[string]interface{}{"error": err})
					continue
				}
				h.FanOut(event)
			}
		}()
		if ctx.Err() != nil {
			return
		}

		h.logger.Error("match event subscriber failed", map[string]interface{}{"error": err, "retry_in": backoff.String()})
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxSubscriberBackoff {
			backoff = maxSubscriberBackoff
		}
	}
}
