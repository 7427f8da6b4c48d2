package manager

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/arena-server/internal/color"
	"github.com/tecu23/arena-server/pkg/board"
	"github.com/tecu23/arena-server/pkg/events"
	"github.com/tecu23/arena-server/pkg/game"
	"github.com/tecu23/arena-server/pkg/messages"
	"github.com/tecu23/arena-server/pkg/registry"
	"github.com/tecu23/arena-server/pkg/result"
)

// Move plays a move for the requester's seat. Accepted moves are broadcast
// to the room before the next request is processed.
func (m *Manager) Move(connID uuid.UUID, p messages.MovePayload) (messages.MoveResultPayload, error) {
	s, seat, err := m.seatedIn(connID, p.RoomID)
	if err != nil {
		return messages.MoveResultPayload{}, err
	}

	if p.Color != "" {
		requester, err := color.Parse(p.Color)
		if err != nil {
			return messages.MoveResultPayload{}, err
		}
		if requester != seat.Color {
			return messages.MoveResultPayload{}, game.ErrOutOfTurn
		}
	}

	spec := p.Move
	if p.UCI != "" {
		if spec, err = board.ParseUCI(p.UCI); err != nil {
			return messages.MoveResultPayload{}, err
		}
	}

	if m.finishIfExpired(s) {
		return messages.MoveResultPayload{}, game.ErrOutOfTurn
	}

	res, err := s.ApplyMove(seat.Color, spec)
	if err != nil {
		m.logger.Debug("move rejected",
			zap.String("room_id", s.ID.String()),
			zap.String("move", spec.UCI()),
			zap.Error(err),
		)
		return messages.MoveResultPayload{}, err
	}

	m.announceMove(events.EventMove, s, res)

	if res.Outcome != nil {
		m.announceOver(s, *res.Outcome, true)
	} else if s.Kind == game.KindComputer {
		m.scheduleComputerMove(s)
	}

	return messages.MoveResultPayload{
		Accepted:    true,
		Board:       res.FEN,
		AppliedMove: &res.Ply,
		CurrentTurn: res.Turn,
	}, nil
}

// Surrender ends the requester's game. The game is named by room id or by
// the surrendering player's username.
func (m *Manager) Surrender(connID uuid.UUID, p messages.SurrenderPayload) (messages.AckPayload, error) {
	var (
		s    *game.Session
		seat game.Seat
		err  error
	)

	switch {
	case p.RoomID != "":
		s, seat, err = m.seatedIn(connID, p.RoomID)
	case p.Username != "":
		s, seat, err = m.seatedAs(connID, p.Username)
	default:
		err = registry.ErrRoomNotFound
	}
	if err != nil {
		return messages.AckPayload{}, err
	}

	o, changed := s.Surrender(seat.Color)
	m.announceOver(s, o, changed)

	return messages.AckPayload{Success: changed}, nil
}

// GetTimers reports both clocks. An expired clock found here ends the game.
func (m *Manager) GetTimers(connID uuid.UUID, p messages.RoomPayload) (messages.TimersPayload, error) {
	s, err := m.registry.Lookup(p.RoomID)
	if err != nil {
		return messages.TimersPayload{}, err
	}

	var resp messages.TimersPayload
	if expired, ok := s.CheckTimeout(); ok {
		resp.TimeoutColor = expired
		m.finishIfExpired(s)
	}

	resp.Timers = s.Timers()
	resp.GameOver = s.Status() == game.StatusOver

	return resp, nil
}

// finishIfExpired ends an active game whose clock has run out
func (m *Manager) finishIfExpired(s *game.Session) bool {
	if s.Status() != game.StatusActive {
		return false
	}

	expired, ok := s.CheckTimeout()
	if !ok {
		return false
	}

	o, changed := s.FinishTimeout(expired)
	m.announceOver(s, o, changed)

	return true
}

func (m *Manager) seatedAs(connID uuid.UUID, identity string) (*game.Session, game.Seat, error) {
	s, ok := m.registry.FindByIdentity(identity)
	if !ok {
		return nil, game.Seat{}, registry.ErrRoomNotFound
	}

	seat, ok := s.SeatByConnection(connID)
	if !ok || seat.Player.Identity != identity {
		return nil, game.Seat{}, ErrNotInRoom
	}

	return s, seat, nil
}

func (m *Manager) announceMove(t events.EventType, s *game.Session, res game.MoveResult) {
	m.publish(t, s, messages.MoveEventPayload{
		RoomID:      s.ID.String(),
		Move:        res.Ply,
		FEN:         res.FEN,
		CurrentTurn: res.Turn,
		Timers:      s.Timers(),
	})
	m.publish(events.EventUpdateNotation, s, messages.NotationPayload{
		RoomID:   s.ID.String(),
		Notation: res.Notation,
	})
}

// announceOver broadcasts the result of a game that just ended. Outcomes
// that did not change the session are dropped.
func (m *Manager) announceOver(s *game.Session, o result.Outcome, changed bool) {
	if !changed {
		return
	}

	m.publish(events.EventGameOver, s, messages.GameOverPayload{
		RoomID:      s.ID.String(),
		OutcomeView: s.OutcomeView(o),
	})
	m.publish(events.EventEndGame, s, messages.RoomEventPayload{RoomID: s.ID.String()})

	m.logger.Info("game over",
		zap.String("room_id", s.ID.String()),
		zap.String("winner", o.WinnerLabel()),
		zap.String("cause", string(o.Cause)),
		zap.Int("rating_delta", o.RatingDelta),
	)

	m.scheduleCleanup(s)
}
