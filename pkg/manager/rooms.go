package manager

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/arena-server/pkg/events"
	"github.com/tecu23/arena-server/pkg/game"
	"github.com/tecu23/arena-server/pkg/messages"
	"github.com/tecu23/arena-server/pkg/registry"
)

// Reasons carried by roomDeleted
const (
	ReasonDeleted      = "deleted"
	ReasonDisconnected = "disconnected"
	ReasonExpired      = "expired"
)

// RequestGameState binds the identity's seat to the requesting connection
// and returns the room snapshot.
func (m *Manager) RequestGameState(connID uuid.UUID, p messages.IdentityPayload) (messages.GameStatePayload, error) {
	if p.Identity == "" {
		return messages.GameStatePayload{}, ErrMissingIdentity
	}

	s, ok := m.registry.FindByIdentity(p.Identity)
	if !ok {
		return messages.GameStatePayload{}, registry.ErrRoomNotFound
	}

	seat, _ := s.SeatByIdentity(p.Identity)
	if !seat.Connected || seat.ConnectionID != connID {
		seat, _ = s.Bind(p.Identity, connID)

		others := make([]uuid.UUID, 0, 1)
		for _, r := range s.Recipients() {
			if r != connID {
				others = append(others, r)
			}
		}
		m.publishTo(events.EventPlayerReconnected, s.ID.String(), others, messages.PlayerPresencePayload{
			RoomID:   s.ID.String(),
			Identity: p.Identity,
			Color:    seat.Color,
		})

		m.logger.Info("player reconnected",
			zap.String("room_id", s.ID.String()),
			zap.String("identity", p.Identity),
		)
	}

	return messages.GameStatePayload{Snapshot: s.Snapshot(), Color: seat.Color}, nil
}

// RoomSnapshot returns the state of a room
func (m *Manager) RoomSnapshot(roomID string) (game.Snapshot, error) {
	s, err := m.registry.Lookup(roomID)
	if err != nil {
		return game.Snapshot{}, err
	}
	return s.Snapshot(), nil
}

// DeleteRoom removes a room the requester is seated in
func (m *Manager) DeleteRoom(connID uuid.UUID, p messages.DeleteRoomPayload) (messages.AckPayload, error) {
	var (
		s   *game.Session
		err error
	)

	switch {
	case p.RoomID != "":
		s, _, err = m.seatedIn(connID, p.RoomID)
	case p.Identity != "":
		s, _, err = m.seatedAs(connID, p.Identity)
	default:
		err = registry.ErrRoomNotFound
	}
	if err != nil {
		return messages.AckPayload{}, err
	}

	m.deleteRoom(s, ReasonDeleted)

	return messages.AckPayload{Success: true}, nil
}

// Disconnect releases everything held by a closed connection. Its queue
// entries are cancelled; in each of its rooms the other side is told, and
// the room is deleted once no human remains connected to it.
func (m *Manager) Disconnect(connID uuid.UUID) {
	if n := m.queue.CancelConnection(connID); n > 0 {
		m.logger.Debug("queue entries cancelled", zap.String("connection_id", connID.String()), zap.Int("count", n))
	}

	for _, s := range m.registry.FindByConnection(connID) {
		seat, _ := s.Disconnect(connID)

		if s.Kind == game.KindComputer || s.ConnectedPlayers() == 0 {
			m.deleteRoom(s, ReasonDisconnected)
			continue
		}

		m.publish(events.EventPlayerDisconnected, s, messages.PlayerPresencePayload{
			RoomID:   s.ID.String(),
			Identity: seat.Player.Identity,
			Color:    seat.Color,
		})
	}
}

func (m *Manager) deleteRoom(s *game.Session, reason string) {
	recipients := s.Recipients()
	if _, err := m.registry.Delete(s.ID); err != nil {
		return
	}

	m.publishTo(events.EventRoomDeleted, s.ID.String(), recipients, messages.RoomEventPayload{
		RoomID: s.ID.String(),
		Reason: reason,
	})
}

// scheduleCleanup deletes a finished room once it has been idle long enough
func (m *Manager) scheduleCleanup(s *game.Session) {
	if m.cfg.RoomTTLAfterOver <= 0 {
		return
	}

	id, gen := s.ID, s.Generation
	m.after(m.ctx, m.cfg.RoomTTLAfterOver, func() {
		s, err := m.registry.GetGeneration(id, gen)
		if err != nil || s.Status() != game.StatusOver {
			return
		}
		m.deleteRoom(s, ReasonExpired)
	})
}
