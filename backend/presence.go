package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"gitea.kood.tech/petrkubec/nearby/presence"
)

// heartbeater records that a user is online now.
type heartbeater interface {
	Touch(ctx context.Context, userID int) (presence.Status, error)
}

// mePingHandler marks the caller as online and notifies presence watchers.
func (a *app) mePingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "invalid_method")
			return
		}
		userID, _ := userIDFromContext(r.Context())

		status, err := a.beats.Touch(r.Context(), userID)
		if err != nil {
			a.metrics.pings.WithLabelValues("error").Inc()
			a.log.WithError(err).WithField("user_id", userID).Error("Presence heartbeat failed")
			writeError(w, http.StatusInternalServerError, "ping_error")
			return
		}
		a.metrics.pings.WithLabelValues("ok").Inc()
		a.hub.Publish(status)
		w.WriteHeader(http.StatusNoContent)
	}
}

// presenceEvent is pushed to websocket subscribers.
type presenceEvent struct {
	Type string                     `json:"type"` // "presence" | "error"
	Data []presence.DisplayPresence `json:"data,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// For development: allow Vite dev origin ws://localhost:5173
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
)

// wsPresenceHandler streams display presence for ?ids= over a websocket.
// It sends a snapshot on connect, each published heartbeat after privacy
// fusion, and a fresh snapshot every presence window so expired users turn
// offline.
func (a *app) wsPresenceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := a.userIDFromRequest(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ids, ok := parseIDList(r.URL.Query().Get("ids"))
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_ids")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			a.log.WithError(err).WithField("user_id", userID).Warn("WS upgrade failed")
			return
		}
		defer conn.Close()

		a.metrics.wsSubscribers.Inc()
		defer a.metrics.wsSubscribers.Dec()

		updates, cancel := a.hub.Subscribe(ids)
		defer cancel()

		log := a.log.WithFields(logrus.Fields{"user_id": userID, "watching": len(ids)})
		done := make(chan struct{})
		go readUntilClosed(conn, done)

		if err := a.pushSnapshot(r.Context(), conn, log, ids); err != nil {
			return
		}

		ping := time.NewTicker(wsPingPeriod)
		defer ping.Stop()
		refresh := time.NewTicker(a.cfg.PresenceWindow)
		defer refresh.Stop()

		for {
			select {
			case <-done:
				return
			case s, ok := <-updates:
				if !ok {
					return
				}
				if err := a.pushSnapshot(r.Context(), conn, log, []int{s.UserID}); err != nil {
					return
				}
			case <-refresh.C:
				if err := a.pushSnapshot(r.Context(), conn, log, ids); err != nil {
					return
				}
			case <-ping.C:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}
}

// pushSnapshot fuses the current presence of ids and writes it. Lookup
// failures are sent as everyone offline.
func (a *app) pushSnapshot(ctx context.Context, conn *websocket.Conn, log *logrus.Entry, ids []int) error {
	display, err := presence.Lookup(ctx, a.statuses, a.privacy, ids)
	if err != nil {
		a.metrics.presenceDegraded.Inc()
		log.WithError(err).Warn("Presence lookup failed, showing users offline")
	}

	evt := presenceEvent{Type: "presence", Data: make([]presence.DisplayPresence, 0, len(ids))}
	for _, id := range ids {
		evt.Data = append(evt.Data, display.For(id))
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(evt)
}

// readUntilClosed drains client frames so pongs and close frames are
// processed, and closes done when the connection goes away.
func readUntilClosed(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(1 << 10)
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
