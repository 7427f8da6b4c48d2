package manager

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/arena-server/internal/color"
	"github.com/tecu23/arena-server/pkg/board"
	"github.com/tecu23/arena-server/pkg/events"
	"github.com/tecu23/arena-server/pkg/game"
	"github.com/tecu23/arena-server/pkg/matchmaking"
	"github.com/tecu23/arena-server/pkg/messages"
)

// JoinQueue enqueues the connection's player and pairs the queue if possible.
// Matched players are told through matchFound events.
func (m *Manager) JoinQueue(connID uuid.UUID, p messages.JoinQueuePayload) (messages.AckPayload, error) {
	mode, err := matchmaking.ParseMode(p.Mode)
	if err != nil {
		return messages.AckPayload{}, err
	}

	identity := p.Player.Identity
	if identity == "" {
		return messages.AckPayload{}, ErrMissingIdentity
	}
	if m.registry.InSession(identity) {
		return messages.AckPayload{}, ErrAlreadyInSession
	}
	if m.queue.Contains(mode, identity) {
		return messages.AckPayload{}, ErrAlreadyQueued
	}

	entry := matchmaking.Entry{ConnectionID: connID, Player: p.Player, Mode: mode}
	if err := m.queue.Enqueue(mode, entry); err != nil {
		return messages.AckPayload{}, err
	}

	m.logger.Debug("player queued",
		zap.String("identity", identity),
		zap.String("mode", string(mode)),
		zap.Int("waiting", m.queue.Len(mode)),
	)

	m.match(mode)

	return messages.AckPayload{Success: true, Message: "waiting for an opponent"}, nil
}

// CancelMatching withdraws the connection's entry from the mode's queue
func (m *Manager) CancelMatching(connID uuid.UUID, p messages.CancelMatchingPayload) (messages.AckPayload, error) {
	mode, err := matchmaking.ParseMode(p.Mode)
	if err != nil {
		return messages.AckPayload{}, err
	}

	removed, err := m.queue.Cancel(mode, connID)
	if err != nil {
		return messages.AckPayload{}, err
	}

	return messages.AckPayload{Success: removed}, nil
}

// QueueCounts reports how many players wait in each mode
func (m *Manager) QueueCounts() messages.QueueCountsPayload {
	counts := make(map[string]int)
	for mode, n := range m.queue.Counts() {
		counts[string(mode)] = n
	}
	return messages.QueueCountsPayload{Waiting: counts}
}

func (m *Manager) match(mode matchmaking.Mode) {
	m.pruneSeated(mode)

	for {
		a, b, ok := m.queue.TryMatch(mode)
		if !ok {
			return
		}
		m.startMatch(mode, a, b)
	}
}

func (m *Manager) startMatch(mode matchmaking.Mode, a, b matchmaking.Entry) {
	white, black := a, b
	if !m.coin() {
		white, black = b, a
	}

	// a matched player leaves every other queue
	m.withdraw(a.Player.Identity, a.ConnectionID)
	m.withdraw(b.Player.Identity, b.ConnectionID)

	s := game.New(game.Params{
		ID:         uuid.New(),
		Generation: m.registry.NextGeneration(),
		Mode:       string(mode),
		Kind:       game.KindPlayers,
		Seats: [2]game.Seat{
			{Player: white.Player, Color: color.White, ConnectionID: white.ConnectionID, Connected: true},
			{Player: black.Player, Color: color.Black, ConnectionID: black.ConnectionID, Connected: true},
		},
		InitialDuration: mode.InitialDuration(),
		Board:           board.New(),
		Clock:           m.clock,
		DefaultRating:   m.cfg.DefaultRating,
	})
	m.registry.Save(s)

	ratings := s.Ratings()
	for _, seat := range s.Seats() {
		opp := s.Seat(seat.Color.Opp())
		m.publishTo(events.EventMatchFound, s.ID.String(), []uuid.UUID{seat.ConnectionID}, messages.MatchFoundPayload{
			Opponent: messages.OpponentView{
				Identity:    opp.Player.Identity,
				DisplayName: opp.Player.Name(),
				Rating:      ratings.Of(opp.Color),
			},
			Color:           seat.Color,
			Mode:            string(mode),
			RoomID:          s.ID.String(),
			InitialDuration: mode.InitialDuration().Milliseconds(),
		})
	}

	s.Start()

	m.logger.Info("match found",
		zap.String("room_id", s.ID.String()),
		zap.String("mode", string(mode)),
		zap.String("white", white.Player.Identity),
		zap.String("black", black.Player.Identity),
	)
}

// pruneSeated drops waiting entries whose player already holds a live session
func (m *Manager) pruneSeated(mode matchmaking.Mode) {
	for _, e := range m.queue.Waiting(mode) {
		if !m.registry.InSession(e.Player.Identity) {
			continue
		}
		n := m.queue.CancelIdentity(e.Player.Identity)
		m.logger.Debug("dropped queue entries of a seated player",
			zap.String("identity", e.Player.Identity),
			zap.Int("count", n),
		)
	}
}

// withdraw removes every queue entry of the player, by identity and by connection
func (m *Manager) withdraw(identity string, connID uuid.UUID) int {
	return m.queue.CancelIdentity(identity) + m.queue.CancelConnection(connID)
}
