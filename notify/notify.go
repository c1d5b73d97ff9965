// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package notify

import (
	"errors"
	"log/slog"
	"sync"
)

// Event types broadcast to meeting subscribers
const (
	EventVoteSubmitted          = "vote_submitted"
	EventPollStarted            = "poll_started"
	EventPollClosed             = "poll_closed"
	EventParticipantJoined      = "participant_joined"
	EventParticipantApproved    = "participant_approved"
	EventScrutatorJoinRequest   = "scrutator_join_request"
	EventScrutatorApproved      = "scrutator_approved"
	EventReportRequested        = "report_generation_requested"
	EventScrutatorVoteSubmitted = "scrutator_vote_submitted"
	EventReportApproved         = "report_generation_approved"
	EventReportRejected         = "report_generation_rejected"
	EventLeadershipTransferred  = "leadership_transferred"
	EventOrganizerAbsent        = "organizer_absent"
	EventMeetingDeleted         = "meeting_deleted"
)

var (
	// ErrSlowSubscriber is returned by a subscriber whose outbound buffer is full.
	ErrSlowSubscriber   = errors.New("subscriber buffer full")
	ErrSubscriberClosed = errors.New("subscriber closed")
)

type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Notifier delivers events to everyone watching a meeting.
// Delivery is best effort: failures are non-fatal and never retried.
type Notifier interface {
	Broadcast(meetingID string, ev Event)
	Subscribers(meetingID string) int
}

// Subscriber receives events for one meeting. Send must not block.
type Subscriber interface {
	Send(ev Event) error
}

// Hub is an in-process publish/subscribe registry scoped by meeting id.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[Subscriber]struct{})}
}

// Subscribe registers s for meetingID and returns a function removing it.
func (h *Hub) Subscribe(meetingID string, s Subscriber) func() {
	h.mu.Lock()
	room, ok := h.rooms[meetingID]
	if !ok {
		room = make(map[Subscriber]struct{})
		h.rooms[meetingID] = room
	}
	room[s] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if room, ok := h.rooms[meetingID]; ok {
				delete(room, s)
				if len(room) == 0 {
					delete(h.rooms, meetingID)
				}
			}
		})
	}
}

// Broadcast sends ev to every current subscriber of meetingID.
func (h *Hub) Broadcast(meetingID string, ev Event) {
	h.mu.RLock()
	subs := make([]Subscriber, 0, len(h.rooms[meetingID]))
	for s := range h.rooms[meetingID] {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		if err := s.Send(ev); err != nil {
			slog.Warn("notification dropped", "meeting_id", meetingID, "type", ev.Type, "error", err)
		}
	}
}

// Subscribers returns the number of live subscribers for meetingID.
func (h *Hub) Subscribers(meetingID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[meetingID])
}

var _ Notifier = (*Hub)(nil)
