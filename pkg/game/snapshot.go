package game

import (
	"github.com/tecu23/arena-server/internal/color"
	"github.com/tecu23/arena-server/pkg/board"
	"github.com/tecu23/arena-server/pkg/clock"
	"github.com/tecu23/arena-server/pkg/result"
)

// Timers holds both balances in milliseconds
type Timers struct {
	White int64 `json:"white"`
	Black int64 `json:"black"`
}

// SeatView is the public view of a seat
type SeatView struct {
	Identity    string      `json:"identity"`
	DisplayName string      `json:"displayName"`
	Color       color.Color `json:"color"`
	Rating      int         `json:"rating"`
	Computer    bool        `json:"computer"`
	Connected   bool        `json:"connected"`
}

// OutcomeView is the wire shape of a finished game's result
type OutcomeView struct {
	Winner      string `json:"winner"`
	Loser       string `json:"loser,omitempty"`
	Cause       string `json:"cause"`
	RatingDelta int    `json:"ratingDelta"`
	Detail      string `json:"detail,omitempty"`
	Duration    string `json:"duration"`
}

// Snapshot is everything a reconnecting client needs to redraw the room
type Snapshot struct {
	RoomID      string          `json:"roomId"`
	Mode        string          `json:"mode"`
	Kind        Kind            `json:"kind"`
	Status      Status          `json:"status"`
	Players     []SeatView      `json:"players"`
	CurrentTurn color.Color     `json:"currentTurn"`
	FEN         string          `json:"fen"`
	Notation    []NotationEntry `json:"notation"`
	History     []board.Ply     `json:"history"`
	Timers      Timers          `json:"timers"`
	Result      *OutcomeView    `json:"result,omitempty"`
}

// Timers returns the remaining balance of both clocks
func (s *Session) Timers() Timers {
	return Timers{
		White: s.clocks[color.White].Remaining().Milliseconds(),
		Black: s.clocks[color.Black].Remaining().Milliseconds(),
	}
}

// OutcomeView renders o with the session's game duration
func (s *Session) OutcomeView(o result.Outcome) OutcomeView {
	return OutcomeView{
		Winner:      o.WinnerLabel(),
		Loser:       string(o.Loser()),
		Cause:       string(o.Cause),
		RatingDelta: o.RatingDelta,
		Detail:      o.Detail,
		Duration:    clock.Format(s.Duration()),
	}
}

// Snapshot captures the session state
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		RoomID:      s.ID.String(),
		Mode:        s.Mode,
		Kind:        s.Kind,
		Status:      s.status,
		CurrentTurn: s.turn,
		FEN:         s.board.FEN(),
		Notation:    s.Notation(),
		History:     s.board.History(),
		Timers:      s.Timers(),
	}

	for _, seat := range s.seats {
		snap.Players = append(snap.Players, SeatView{
			Identity:    seat.Player.Identity,
			DisplayName: seat.Player.Name(),
			Color:       seat.Color,
			Rating:      s.ratings.Of(seat.Color),
			Computer:    seat.Computer,
			Connected:   seat.Connected,
		})
	}

	if s.outcome != nil {
		view := s.OutcomeView(*s.outcome)
		snap.Result = &view
	}

	return snap
}
