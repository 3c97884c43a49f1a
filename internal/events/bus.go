/*
Copyright (C) 2026 Seatwise

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	EventReservationCreated   EventType = "reservation.created"
	EventReservationConfirmed EventType = "reservation.confirmed"
	EventReservationSeated    EventType = "reservation.seated"
	EventReservationCompleted EventType = "reservation.completed"
	EventReservationCancelled EventType = "reservation.cancelled"
	EventReservationNoShow    EventType = "reservation.no_show"
	EventReservationDeclined  EventType = "reservation.declined"

	EventWaitlistCheckIn  EventType = "waitlist.check_in"
	EventWaitlistNotified EventType = "waitlist.notified"
	EventWaitlistSeated   EventType = "waitlist.seated"
	EventWaitlistLeft     EventType = "waitlist.left"
	EventWaitlistReorder  EventType = "waitlist.reorder"

	// Cache invalidation events
	EventSettingsUpdated   EventType = "cache.settings_updated"
	EventRestaurantUpdated EventType = "cache.restaurant_updated"

	// Audit events carry acting-user context from the API layer
	EventAuditAPIKeyCreate   EventType = "audit.apikey_create"
	EventAuditAPIKeyRevoke   EventType = "audit.apikey_revoke"
	EventAuditSettingsUpdate EventType = "audit.settings_update"
)

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Bus implements a simple in-process pubsub.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 8)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs[eventType]...)
	b.mu.RUnlock()
	for _, sub := range subs {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes the subscriber.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	b.subs[eventType] = subs
	close(sub)
}
