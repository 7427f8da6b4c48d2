package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/arena-server/internal/color"
	"github.com/tecu23/arena-server/pkg/events"
	"github.com/tecu23/arena-server/pkg/game"
	"github.com/tecu23/arena-server/pkg/manager"
	"github.com/tecu23/arena-server/pkg/matchmaking"
	"github.com/tecu23/arena-server/pkg/messages"
	"github.com/tecu23/arena-server/pkg/registry"
)

// ErrHubStopped is returned by Call once the hub has stopped
var ErrHubStopped = errors.New("hub stopped")

var (
	errInvalidPayload = errors.New("invalid payload")
	errUnknownType    = errors.New("unknown message type")
)

// Error codes sent in error responses
const (
	codeInvalidPayload   = "INVALID_PAYLOAD"
	codeUnknownType      = "UNKNOWN_TYPE"
	codeInvalidMode      = "INVALID_MODE"
	codeInvalidColor     = "INVALID_COLOR"
	codeRoomNotFound     = "ROOM_NOT_FOUND"
	codeIllegalMove      = "ILLEGAL_MOVE"
	codeOutOfTurn        = "OUT_OF_TURN"
	codeAlreadyInSession = "ALREADY_IN_SESSION"
	codeAlreadyQueued    = "ALREADY_QUEUED"
	codeNotInRoom        = "NOT_IN_ROOM"
	codeMissingIdentity  = "MISSING_IDENTITY"
	codeNotComputerGame  = "NOT_COMPUTER_GAME"
	codeInternal         = "INTERNAL"
)

// InboundHubMessage are the messages that the hub receives
type InboundHubMessage struct {
	Conn      *Connection             // who sent it
	Message   messages.InboundMessage // decoded envelope
	Malformed bool                    // the frame was not a valid envelope
}

// Hub keeps track of all active connections and is the single dispatcher:
// every request, disconnect, timer callback and advisory reply runs on the
// Run goroutine, one at a time.
type Hub struct {
	mu          sync.RWMutex              // Mutex to protect direct access to the connections map.
	connections map[uuid.UUID]*Connection // Registered connections

	register   chan *Connection       // Incoming registration
	unregister chan *Connection       // Incoming unregistration
	inbound    chan InboundHubMessage // Requests from clients
	tasks      chan func()            // Work re-entering the dispatcher
	done       chan struct{}

	manager *manager.Manager
	logger  *zap.Logger
}

// NewHub creates a new hub. It becomes the manager's dispatcher and the
// delivery point of every published event.
func NewHub(mgr *manager.Manager, publisher *events.Publisher, logger *zap.Logger) *Hub {
	h := &Hub{
		connections: make(map[uuid.UUID]*Connection),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		inbound:     make(chan InboundHubMessage),
		tasks:       make(chan func()),
		done:        make(chan struct{}),
		manager:     mgr,
		logger:      logger,
	}

	mgr.SetDispatch(h.Submit)
	publisher.SubscribeAll(h.deliver)

	return h
}

// Run is the main execution of the hub. It returns when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case conn := <-h.register:
			h.registerConnection(conn)

		case conn := <-h.unregister:
			h.unregisterConnection(conn)

		case msg := <-h.inbound:
			h.handleInbound(msg)

		case task := <-h.tasks:
			task()

		case <-ctx.Done():
			h.shutdown()
			return
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) bool {
	select {
	case h.register <- conn:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a connection and releases its seats and queue entries
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Inbound hands a client request to the dispatcher
func (h *Hub) Inbound(msg InboundHubMessage) bool {
	select {
	case h.inbound <- msg:
		return true
	case <-h.done:
		return false
	}
}

// Submit schedules task on the dispatcher. It must not be called from the
// dispatcher itself.
func (h *Hub) Submit(task func()) {
	select {
	case h.tasks <- task:
	case <-h.done:
	}
}

// Call runs fn on the dispatcher and waits for it to finish
func (h *Hub) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		fn()
	}

	select {
	case h.tasks <- task:
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Count returns the number of registered connections
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.connections)
}

func (h *Hub) registerConnection(conn *Connection) {
	h.mu.Lock()
	h.connections[conn.ID] = conn
	total := len(h.connections)
	h.mu.Unlock()

	h.logger.Info("connection registered", zap.String("connection_id", conn.ID.String()), zap.Int("connections", total))

	conn.SendJSON(messages.OutboundMessage{
		Event:   messages.EventConnected,
		Payload: messages.ConnectedPayload{ConnectionID: conn.ID.String()},
	})
}

func (h *Hub) unregisterConnection(conn *Connection) {
	h.mu.Lock()
	_, ok := h.connections[conn.ID]
	if ok {
		delete(h.connections, conn.ID)
		close(conn.send)
	}
	total := len(h.connections)
	h.mu.Unlock()

	if !ok {
		return
	}

	h.logger.Info("connection unregistered", zap.String("connection_id", conn.ID.String()), zap.Int("connections", total))
	h.manager.Disconnect(conn.ID)
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, conn := range h.connections {
		close(conn.send)
		delete(h.connections, id)
	}
}

// deliver sends a published event to its recipients
func (h *Hub) deliver(e events.Event) {
	msg := messages.OutboundMessage{Event: string(e.Type), Payload: e.Payload}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, id := range e.Recipients {
		if conn, ok := h.connections[id]; ok {
			conn.SendJSON(msg)
		}
	}
}

// handleInbound is where you decode or route the message from a client.
func (h *Hub) handleInbound(msg InboundHubMessage) {
	if msg.Malformed {
		h.sendError(msg.Conn, msg.Message, errInvalidPayload)
		return
	}

	h.logger.Debug("request",
		zap.String("connection_id", msg.Conn.ID.String()),
		zap.String("type", msg.Message.Type),
	)

	m := h.manager
	switch msg.Message.Type {
	case messages.TypeJoinQueue:
		route(h, msg, m.JoinQueue)
	case messages.TypeCancelMatching:
		route(h, msg, m.CancelMatching)
	case messages.TypePlayComputer:
		route(h, msg, m.PlayComputer)
	case messages.TypeMove, messages.TypeOnDrop:
		route(h, msg, m.Move)
	case messages.TypeSurrender:
		route(h, msg, m.Surrender)
	case messages.TypeGetTimers:
		route(h, msg, m.GetTimers)
	case messages.TypeRequestGameState, messages.TypeRequestNotation:
		route(h, msg, m.RequestGameState)
	case messages.TypeDeleteRoom:
		route(h, msg, m.DeleteRoom)
	case messages.TypeRequestAdvice:
		route(h, msg, m.RequestAdvice)
	case messages.TypeRestartGame:
		route(h, msg, m.RestartGame)
	default:
		h.sendError(msg.Conn, msg.Message, errUnknownType)
	}
}

// route decodes the payload, runs the step and answers the requester only
func route[P, R any](h *Hub, msg InboundHubMessage, step func(uuid.UUID, P) (R, error)) {
	var payload P
	if len(msg.Message.Payload) > 0 {
		if err := json.Unmarshal(msg.Message.Payload, &payload); err != nil {
			h.sendError(msg.Conn, msg.Message, errInvalidPayload)
			return
		}
	}

	resp, err := step(msg.Conn.ID, payload)
	if err != nil {
		h.logger.Debug("request rejected",
			zap.String("connection_id", msg.Conn.ID.String()),
			zap.String("type", msg.Message.Type),
			zap.Error(err),
		)
		h.sendError(msg.Conn, msg.Message, err)
		return
	}

	h.sendMessage(msg.Conn, messages.OutboundMessage{
		Event:   messages.EventResponse,
		ID:      msg.Message.ID,
		Type:    msg.Message.Type,
		Payload: resp,
	})
}

func (h *Hub) sendError(conn *Connection, req messages.InboundMessage, err error) {
	h.sendMessage(conn, messages.OutboundMessage{
		Event: messages.EventError,
		ID:    req.ID,
		Type:  req.Type,
		Payload: messages.ErrorPayload{
			Code:    errorCode(err),
			Message: err.Error(),
		},
	})
}

// sendMessage answers a connection that may already be gone
func (h *Hub) sendMessage(conn *Connection, msg messages.OutboundMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.connections[conn.ID]; ok {
		conn.SendJSON(msg)
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, errInvalidPayload):
		return codeInvalidPayload
	case errors.Is(err, errUnknownType):
		return codeUnknownType
	case errors.Is(err, matchmaking.ErrInvalidMode):
		return codeInvalidMode
	case errors.Is(err, color.ErrInvalidColor):
		return codeInvalidColor
	case errors.Is(err, registry.ErrRoomNotFound):
		return codeRoomNotFound
	case errors.Is(err, game.ErrIllegalMove):
		return codeIllegalMove
	case errors.Is(err, game.ErrOutOfTurn):
		return codeOutOfTurn
	case errors.Is(err, manager.ErrAlreadyInSession):
		return codeAlreadyInSession
	case errors.Is(err, manager.ErrAlreadyQueued):
		return codeAlreadyQueued
	case errors.Is(err, manager.ErrNotInRoom):
		return codeNotInRoom
	case errors.Is(err, manager.ErrMissingIdentity):
		return codeMissingIdentity
	case errors.Is(err, game.ErrNotComputerGame):
		return codeNotComputerGame
	default:
		return codeInternal
	}
}
