package messages

import (
	"encoding/json"

	"github.com/tecu23/arena-server/pkg/board"
	"github.com/tecu23/arena-server/pkg/player"
)

// Request types accepted over the websocket
const (
	TypeJoinQueue        = "joinQueue"
	TypeCancelMatching   = "cancelMatching"
	TypePlayComputer     = "playComputer"
	TypeMove             = "move"
	TypeOnDrop           = "onDrop"
	TypeSurrender        = "surrender"
	TypeGetTimers        = "getTimers"
	TypeRequestGameState = "requestGameState"
	TypeRequestNotation  = "requestNotation"
	TypeDeleteRoom       = "deleteRoom"
	TypeRequestAdvice    = "requestAdvice"
	TypeRestartGame      = "restartGame"
)

// InboundMessage is the generic wrapper for messages coming from the client.
// The "type" field tells us the action; "payload" is the data we parse further.
// "id" is echoed on the response so the client can correlate it.
type InboundMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// JoinQueuePayload asks to be paired in mode
type JoinQueuePayload struct {
	Player player.Player `json:"player"`
	Mode   string        `json:"mode"`
}

// CancelMatchingPayload withdraws the connection's entry in mode
type CancelMatchingPayload struct {
	Mode string `json:"mode"`
}

// ComputerOptions tunes a game against the computer
type ComputerOptions struct {
	Depth          int    `json:"depth"`
	ThinkingTime   int    `json:"thinkingTime"`
	ShowWinBar     bool   `json:"showWinBar"`
	ShowBestMoves  bool   `json:"showBestMoves"`
	Mode           string `json:"mode"`
	ComputerRating int    `json:"computerRating"`
}

// PlayComputerPayload starts a game against the computer
type PlayComputerPayload struct {
	Player  player.Player   `json:"player"`
	Color   string          `json:"color"`
	Options ComputerOptions `json:"options"`
}

// MovePayload plays a move. The move may be given as a square pair or in UCI.
type MovePayload struct {
	RoomID string         `json:"roomId"`
	Move   board.MoveSpec `json:"move"`
	UCI    string         `json:"uci,omitempty"`
	Color  string         `json:"color"`
}

// SurrenderPayload names the surrendering player or the room
type SurrenderPayload struct {
	Username string `json:"username,omitempty"`
	RoomID   string `json:"roomId,omitempty"`
}

// RoomPayload addresses a room
type RoomPayload struct {
	RoomID string `json:"roomId"`
}

// IdentityPayload addresses a player across connections
type IdentityPayload struct {
	Identity string `json:"identity"`
}

// DeleteRoomPayload names the room directly or through one of its players
type DeleteRoomPayload struct {
	Identity string `json:"identity,omitempty"`
	RoomID   string `json:"roomId,omitempty"`
}
