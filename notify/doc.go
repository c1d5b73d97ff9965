// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package notify broadcasts meeting events to live connections.

# Contract

Notifier is the port the governance engine depends on:

	Broadcast(meetingID, event)  // best effort, no retry
	Subscribers(meetingID) int   // live connection count

A failed delivery to one subscriber never blocks or fails delivery to the
others, nor the operation that triggered the event. Events reach a single
connection in send order; there is no ordering across connections.

# Hub

Hub keeps subscribers per meeting id. It is created once in main and injected
into the engine and the router:

	hub := notify.NewHub()
	unsubscribe := hub.Subscribe(meetingID, subscriber)

# WebSocket Transport

	GET /ws/meetings/{id} → Hub.ServeMeeting

Each connection gets a bounded outbound queue drained by its own writer
goroutine. A full queue drops the event for that connection only.
*/
package notify
