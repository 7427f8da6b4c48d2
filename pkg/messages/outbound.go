package messages

import (
	"github.com/tecu23/arena-server/internal/color"
	"github.com/tecu23/arena-server/pkg/board"
	"github.com/tecu23/arena-server/pkg/game"
)

// Response and error events. Domain events use the names in pkg/events.
const (
	EventConnected = "connected"
	EventResponse  = "response"
	EventError     = "error"
)

// OutboundMessage is how we wrap responses before sending
// them to the client. Responses and errors echo the request's id and type.
type OutboundMessage struct {
	Event   string      `json:"event"`
	ID      string      `json:"id,omitempty"`
	Type    string      `json:"type,omitempty"`
	Payload interface{} `json:"payload"`
}

// ConnectedPayload greets a new connection
type ConnectedPayload struct {
	ConnectionID string `json:"connectionId"`
}

// ErrorPayload is a typed rejection sent to the requester only
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AckPayload answers requests that have no other result
type AckPayload struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// RoomCreatedPayload answers playComputer
type RoomCreatedPayload struct {
	RoomID string `json:"roomId"`
}

// MoveResultPayload answers a move request
type MoveResultPayload struct {
	Accepted    bool        `json:"accepted"`
	Board       string      `json:"board,omitempty"`
	AppliedMove *board.Ply  `json:"appliedMove,omitempty"`
	Reason      string      `json:"reason,omitempty"`
	CurrentTurn color.Color `json:"currentTurn,omitempty"`
}

// TimersPayload answers getTimers
type TimersPayload struct {
	Timers       game.Timers `json:"timers"`
	TimeoutColor color.Color `json:"timeoutColor,omitempty"`
	GameOver     bool        `json:"gameOver"`
}

// GameStatePayload answers requestGameState with the room snapshot and the
// requester's color
type GameStatePayload struct {
	game.Snapshot
	Color color.Color `json:"color"`
}

// QueueCountsPayload reports waiting entries per mode
type QueueCountsPayload struct {
	Waiting map[string]int `json:"waiting"`
}

// OpponentView is what a matched player learns about the other side
type OpponentView struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"displayName"`
	Rating      int    `json:"rating"`
}

// MatchFoundPayload tells a queued player they were paired
type MatchFoundPayload struct {
	Opponent        OpponentView `json:"opponent"`
	Color           color.Color  `json:"color"`
	Mode            string       `json:"mode"`
	RoomID          string       `json:"roomId"`
	InitialDuration int64        `json:"initialDuration"`
}

// GameStartPayload opens a computer game
type GameStartPayload struct {
	RoomID        string      `json:"roomId"`
	Color         color.Color `json:"color"`
	ComputerColor color.Color `json:"computerColor"`
	Mode          string      `json:"mode"`
	FEN           string      `json:"fen"`
	ShowWinBar    bool        `json:"showWinBar"`
	ShowBestMoves bool        `json:"showBestMoves"`
}

// MoveEventPayload is broadcast for every accepted ply
type MoveEventPayload struct {
	RoomID      string      `json:"roomId"`
	Move        board.Ply   `json:"move"`
	FEN         string      `json:"fen"`
	CurrentTurn color.Color `json:"currentTurn"`
	Timers      game.Timers `json:"timers"`
}

// NotationPayload carries the paired move log
type NotationPayload struct {
	RoomID   string               `json:"roomId"`
	Notation []game.NotationEntry `json:"notation"`
}

// GameOverPayload is broadcast exactly once per game
type GameOverPayload struct {
	RoomID string `json:"roomId"`
	game.OutcomeView
}

// RoomEventPayload names the room an event refers to
type RoomEventPayload struct {
	RoomID string `json:"roomId"`
	Reason string `json:"reason,omitempty"`
}

// PlayerPresencePayload reports a seat disconnecting or reconnecting
type PlayerPresencePayload struct {
	RoomID   string      `json:"roomId"`
	Identity string      `json:"identity"`
	Color    color.Color `json:"color"`
}

// AdvicePayload carries the win bar and best-move hint
type AdvicePayload struct {
	RoomID    string          `json:"roomId"`
	Available bool            `json:"available"`
	WinChance *float64        `json:"winChance,omitempty"`
	BestMove  *board.MoveSpec `json:"bestMove,omitempty"`
	SAN       string          `json:"san,omitempty"`
}
