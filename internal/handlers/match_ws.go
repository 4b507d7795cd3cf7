package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsPongWait   = 90 * time.Second
	wsPingPeriod = 30 * time.Second
)

var matchUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origins are checked by the CORS layer.
		return true
	},
}

// MatchFeed handles GET /ws/matches. Watchers receive every match and
// booking event as JSON; anything they send is ignored.
func (h *Handler) MatchFeed(w http.ResponseWriter, r *http.Request) {
	if h.watchers == nil {
		writeFailure(w, http.StatusServiceUnavailable, "Live feed unavailable")
		return
	}

	conn, err := matchUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	id := h.watchers.Register(conn)
	defer h.watchers.Unregister(id)

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	conn.SetReadLimit(4 * 1024)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
