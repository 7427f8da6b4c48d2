package game

import (
	"github.com/google/uuid"

	"github.com/tecu23/arena-server/internal/color"
)

// Seats returns both seats
func (s *Session) Seats() [2]Seat {
	return s.seats
}

// Seat returns the seat playing c
func (s *Session) Seat(c color.Color) Seat {
	for _, seat := range s.seats {
		if seat.Color == c {
			return seat
		}
	}
	return Seat{}
}

// SeatByConnection finds the human seat bound to connID
func (s *Session) SeatByConnection(connID uuid.UUID) (Seat, bool) {
	for _, seat := range s.seats {
		if !seat.Computer && seat.Connected && seat.ConnectionID == connID {
			return seat, true
		}
	}
	return Seat{}, false
}

// SeatByIdentity finds the human seat of identity
func (s *Session) SeatByIdentity(identity string) (Seat, bool) {
	for _, seat := range s.seats {
		if !seat.Computer && seat.Player.Identity == identity {
			return seat, true
		}
	}
	return Seat{}, false
}

// ComputerColor returns the computer's color in a computer game
func (s *Session) ComputerColor() (color.Color, bool) {
	for _, seat := range s.seats {
		if seat.Computer {
			return seat.Color, true
		}
	}
	return "", false
}

// Bind attaches identity's seat to a new connection
func (s *Session) Bind(identity string, connID uuid.UUID) (Seat, bool) {
	for i := range s.seats {
		seat := &s.seats[i]
		if seat.Computer || seat.Player.Identity != identity {
			continue
		}
		seat.ConnectionID = connID
		seat.Connected = true
		return *seat, true
	}
	return Seat{}, false
}

// Disconnect marks the seat bound to connID as disconnected
func (s *Session) Disconnect(connID uuid.UUID) (Seat, bool) {
	for i := range s.seats {
		seat := &s.seats[i]
		if seat.Computer || !seat.Connected || seat.ConnectionID != connID {
			continue
		}
		seat.Connected = false
		return *seat, true
	}
	return Seat{}, false
}

// ConnectedPlayers counts human seats with a live connection
func (s *Session) ConnectedPlayers() int {
	n := 0
	for _, seat := range s.seats {
		if !seat.Computer && seat.Connected {
			n++
		}
	}
	return n
}

// Recipients returns the live connections of the room
func (s *Session) Recipients() []uuid.UUID {
	var out []uuid.UUID
	for _, seat := range s.seats {
		if !seat.Computer && seat.Connected {
			out = append(out, seat.ConnectionID)
		}
	}
	return out
}
