package api

import (
	"sync"
)

// EventType represents the type of event being broadcast over a session's
// WebSocket.
type EventType string

const (
	// EventProcess carries a process-level status. The session manager
	// emits it once per session, with status "created" and processId -1;
	// individual halts and faults are not broadcast as process events.
	EventProcess EventType = "process"
	// EventStep reports the executor having advanced one round-robin step.
	EventStep EventType = "step"
)

// BroadcastEvent is sent to every WebSocket client subscribed to a session.
type BroadcastEvent struct {
	Type      EventType              `json:"type"`
	SessionID string                 `json:"sessionId"`
	Data      map[string]interface{} `json:"data"`
}

// Subscription represents a client's subscription to events.
type Subscription struct {
	SessionID  string
	EventTypes map[EventType]bool
	Channel    chan BroadcastEvent
}

// Broadcaster fans out executor events to every subscribed WebSocket
// client, filtering by session id and event type.
type Broadcaster struct {
	mu            sync.RWMutex
	subscriptions map[*Subscription]bool
	broadcast     chan BroadcastEvent
	register      chan *Subscription
	unregister    chan *Subscription
	done          chan struct{}
}

// NewBroadcaster creates and starts a new event broadcaster.
func NewBroadcaster() *Broadcaster {
	b := &Broadcaster{
		subscriptions: make(map[*Subscription]bool),
		broadcast:     make(chan BroadcastEvent, 256),
		register:      make(chan *Subscription),
		unregister:    make(chan *Subscription),
		done:          make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broadcaster) run() {
	for {
		select {
		case sub := <-b.register:
			b.mu.Lock()
			b.subscriptions[sub] = true
			b.mu.Unlock()

		case sub := <-b.unregister:
			b.mu.Lock()
			if b.subscriptions[sub] {
				delete(b.subscriptions, sub)
				close(sub.Channel)
			}
			b.mu.Unlock()

		case event := <-b.broadcast:
			b.mu.RLock()
			for sub := range b.subscriptions {
				if sub.SessionID != "" && sub.SessionID != event.SessionID {
					continue
				}
				if len(sub.EventTypes) > 0 && !sub.EventTypes[event.Type] {
					continue
				}
				select {
				case sub.Channel <- event:
				default:
					// slow client, drop this event rather than block the broadcaster
				}
			}
			b.mu.RUnlock()

		case <-b.done:
			b.mu.Lock()
			for sub := range b.subscriptions {
				close(sub.Channel)
			}
			b.subscriptions = make(map[*Subscription]bool)
			b.mu.Unlock()
			return
		}
	}
}

// Subscribe registers a new subscription. sessionID filters to one session
// (empty = all sessions); eventTypes filters by type (empty = all types).
func (b *Broadcaster) Subscribe(sessionID string, eventTypes []EventType) *Subscription {
	eventTypeMap := make(map[EventType]bool)
	for _, et := range eventTypes {
		eventTypeMap[et] = true
	}

	sub := &Subscription{
		SessionID:  sessionID,
		EventTypes: eventTypeMap,
		Channel:    make(chan BroadcastEvent, 64),
	}

	select {
	case b.register <- sub:
	case <-b.done:
		close(sub.Channel)
	}
	return sub
}

// Unsubscribe removes a subscription and closes its channel. Safe to call
// after Close.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	select {
	case b.unregister <- sub:
	case <-b.done:
	}
}

// Broadcast sends an event to every matching subscription, dropping it if
// the broadcaster's internal queue is full rather than blocking the caller.
func (b *Broadcaster) Broadcast(event BroadcastEvent) {
	select {
	case b.broadcast <- event:
	default:
	}
}

// BroadcastProcess sends an EventProcess event carrying the given process
// id, status, and any extra fields.
func (b *Broadcaster) BroadcastProcess(sessionID string, processID int, status string, extra map[string]interface{}) {
	data := map[string]interface{}{
		"processId": processID,
		"status":    status,
	}
	for k, v := range extra {
		data[k] = v
	}
	b.Broadcast(BroadcastEvent{Type: EventProcess, SessionID: sessionID, Data: data})
}

// BroadcastStep sends a step-completed event reporting whether any process
// is still live.
func (b *Broadcaster) BroadcastStep(sessionID string, live bool) {
	b.Broadcast(BroadcastEvent{
		Type:      EventStep,
		SessionID: sessionID,
		Data:      map[string]interface{}{"live": live},
	})
}

// Close shuts down the broadcaster and closes all subscriptions.
func (b *Broadcaster) Close() {
	close(b.done)
}

// SubscriptionCount returns the number of active subscriptions.
func (b *Broadcaster) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscriptions)
}
