// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package notify

import (
	"log/slog"
	"net/http"

	"golang.org/x/net/websocket"
)

const outboundBuffer = 32

// wsSubscriber queues events for a single websocket connection.
// Events leave in send order.
type wsSubscriber struct {
	out  chan Event
	done chan struct{}
}

func newWSSubscriber() *wsSubscriber {
	return &wsSubscriber{
		out:  make(chan Event, outboundBuffer),
		done: make(chan struct{}),
	}
}

func (s *wsSubscriber) Send(ev Event) error {
	select {
	case <-s.done:
		return ErrSubscriberClosed
	default:
	}
	select {
	case s.out <- ev:
		return nil
	default:
		return ErrSlowSubscriber
	}
}

func (s *wsSubscriber) writeLoop(conn *websocket.Conn) {
	for {
		select {
		case ev := <-s.out:
			if err := websocket.JSON.Send(conn, ev); err != nil {
				slog.Debug("websocket write failed", "error", err)
				return
			}
		case <-s.done:
			return
		}
	}
}

// ServeMeeting handles GET /ws/meetings/{id}
// The connection stays subscribed until the client disconnects.
func (h *Hub) ServeMeeting(w http.ResponseWriter, r *http.Request) {
	meetingID := r.PathValue("id")
	if meetingID == "" {
		http.Error(w, "meeting id is required", http.StatusBadRequest)
		return
	}

	websocket.Handler(func(conn *websocket.Conn) {
		h.serveConn(meetingID, conn)
	}).ServeHTTP(w, r)
}

func (h *Hub) serveConn(meetingID string, conn *websocket.Conn) {
	defer conn.Close()

	sub := newWSSubscriber()
	unsubscribe := h.Subscribe(meetingID, sub)
	defer unsubscribe()

	go sub.writeLoop(conn)
	defer close(sub.done)

	slog.Info("subscriber connected", "meeting_id", meetingID)

	// Inbound frames carry nothing; reading only detects disconnects.
	var msg string
	for {
		if err := websocket.Message.Receive(conn, &msg); err != nil {
			break
		}
	}

	slog.Info("subscriber disconnected", "meeting_id", meetingID)
}
