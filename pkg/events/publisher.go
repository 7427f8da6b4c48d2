// Package events carries outbound events from the game core to the gateway
package events

import (
	"sync"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

// Define event types. The values are the wire event names.
const (
	EventMatchFound         EventType = "matchFound"
	EventGameStart          EventType = "gameStart"
	EventMove               EventType = "move"
	EventComputerMove       EventType = "computerMove"
	EventUpdateNotation     EventType = "updateNotation"
	EventGameOver           EventType = "gameOver"
	EventEndGame            EventType = "endGame"
	EventRoomDeleted        EventType = "roomDeleted"
	EventPlayerDisconnected EventType = "playerDisconnected"
	EventPlayerReconnected  EventType = "playerReconnected"
	EventAdvice             EventType = "advice"
)

// Event represents an event in the system
type Event struct {
	Type       EventType
	RoomID     string      // Optional, can be empty for non-room events
	Recipients []uuid.UUID // Connections the event is delivered to
	Payload    interface{}
}

// Handler is a function that processes events
type Handler func(event Event)

// Publisher is the central event publisher.
//
// Handlers run synchronously in Publish order, so events of one room reach
// the gateway in the order the dispatcher produced them.
type Publisher struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Handler
	all         []Handler
}

// NewPublisher creates a new event publisher
func NewPublisher() *Publisher {
	return &Publisher{
		subscribers: make(map[EventType][]Handler),
	}
}

// Subscribe registers a handler for a specific event type
func (p *Publisher) Subscribe(eventType EventType, handler Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.subscribers[eventType] = append(p.subscribers[eventType], handler)
}

// SubscribeAll registers a handler for all event types
func (p *Publisher) SubscribeAll(handler Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.all = append(p.all, handler)
}

// Publish delivers an event to its type's subscribers, then to the catch-all ones
func (p *Publisher) Publish(event Event) {
	p.mu.RLock()
	handlers := append([]Handler(nil), p.subscribers[event.Type]...)
	handlers = append(handlers, p.all...)
	p.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}
