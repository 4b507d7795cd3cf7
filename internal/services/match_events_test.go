package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AnshRaj112/mindmatch-backend/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	events []MatchEvent
	fail   bool
	closed bool
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broken pipe")
	}
	f.events = append(f.events, v.(MatchEvent))
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) received() []MatchEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]MatchEvent(nil), f.events...)
}

func TestMatchEventHub_LocalFanOut(t *testing.T) {
	hub := NewMatchEventHub(nil, logger.NewTestLogger(t))
	a, b := &fakeConn{}, &fakeConn{}
	hub.Register(a)
	idB := hub.Register(b)
	hub.Unregister(idB)

	require.NoError(t, hub.Publish(context.Background(), MatchEvent{Type: EventReferralMatched, ReferralID: "ref-1"}))

	require.Len(t, a.received(), 1)
	assert.Equal(t, "ref-1", a.received()[0].ReferralID)
	assert.False(t, a.received()[0].Timestamp.IsZero())
	assert.Empty(t, b.received())
}

func TestMatchEventHub_DropsBrokenWatchers(t *testing.T) {
	hub := NewMatchEventHub(nil, logger.NewTestLogger(t))
	broken := &fakeConn{fail: true}
	hub.Register(broken)

	hub.FanOut(MatchEvent{Type: EventReferralMatched})

	assert.Equal(t, 0, hub.Watchers())
	assert.True(t, broken.closed)
}

func TestMatchEventHub_RedisRoundTrip(t *testing.T) {
	mr, client := setupRedis(t)
	hub := NewMatchEventHub(client, logger.NewTestLogger(t))
	conn := &fakeConn{}
	hub.Register(conn)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub.Start(ctx)

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(MatchEventsChannel)[MatchEventsChannel] == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(ctx, MatchEvent{
		Type:        EventReferralMatched,
		ReferralID:  "ref-1",
		TherapistID: "th-1",
		Score:       110,
	}))

	require.Eventually(t, func() bool { return len(conn.received()) == 1 }, 2*time.Second, 10*time.Millisecond)
	got := conn.received()[0]
	assert.Equal(t, "th-1", got.TherapistID)
	assert.Equal(t, 110, got.Score)
}
