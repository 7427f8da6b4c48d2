// Package registry owns the set of live sessions
package registry

import (
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/arena-server/pkg/game"
)

// ErrRoomNotFound is returned on a lookup miss
var ErrRoomNotFound = errors.New("room not found")

// Registry is an in-memory store of sessions keyed by room id. Sessions are
// handed out only to the dispatcher; the lock guards the index itself.
type Registry struct {
	sessions   map[uuid.UUID]*game.Session
	generation uint64
	mu         sync.RWMutex
	logger     *zap.Logger
}

// New creates an empty registry
func New(logger *zap.Logger) *Registry {
	return &Registry{
		sessions: make(map[uuid.UUID]*game.Session),
		logger:   logger,
	}
}

// NextGeneration returns a fresh, strictly increasing generation tag
func (r *Registry) NextGeneration() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.generation++
	return r.generation
}

// Save stores a session under its id
func (r *Registry) Save(s *game.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[s.ID] = s
	r.logger.Debug("session saved", zap.String("room_id", s.ID.String()), zap.Uint64("generation", s.Generation))
}

// Get retrieves a session by id
func (r *Registry) Get(id uuid.UUID) (*game.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrRoomNotFound
	}

	return s, nil
}

// Lookup retrieves a session by its string id
func (r *Registry) Lookup(roomID string) (*game.Session, error) {
	id, err := uuid.Parse(roomID)
	if err != nil {
		return nil, ErrRoomNotFound
	}

	return r.Get(id)
}

// GetGeneration retrieves a session only if it still carries generation
func (r *Registry) GetGeneration(id uuid.UUID, generation uint64) (*game.Session, error) {
	s, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	if s.Generation != generation {
		return nil, ErrRoomNotFound
	}

	return s, nil
}

// Delete removes a session and cancels any request it is waiting on
func (r *Registry) Delete(id uuid.UUID) (*game.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrRoomNotFound
	}

	s.CancelPending()
	delete(r.sessions, id)

	r.logger.Info("session removed", zap.String("room_id", id.String()))

	return s, nil
}

// FindByIdentity returns the session the identity is seated in, preferring
// one that is not over.
func (r *Registry) FindByIdentity(identity string) (*game.Session, bool) {
	var found *game.Session
	for _, s := range r.List() {
		if _, ok := s.SeatByIdentity(identity); !ok {
			continue
		}
		if s.Status() != game.StatusOver {
			return s, true
		}
		if found == nil {
			found = s
		}
	}

	return found, found != nil
}

// InSession reports whether identity holds a session that is not over
func (r *Registry) InSession(identity string) bool {
	s, ok := r.FindByIdentity(identity)
	return ok && s.Status() != game.StatusOver
}

// FindByConnection returns every session with a seat bound to connID
func (r *Registry) FindByConnection(connID uuid.UUID) []*game.Session {
	var out []*game.Session
	for _, s := range r.List() {
		if _, ok := s.SeatByConnection(connID); ok {
			out = append(out, s)
		}
	}

	return out
}

// List returns all sessions ordered by creation time, then generation
func (r *Registry) List() []*game.Session {
	r.mu.RLock()
	out := make([]*game.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt().Equal(b.CreatedAt()) {
			return a.CreatedAt().Before(b.CreatedAt())
		}
		return a.Generation < b.Generation
	})

	return out
}

// ListActive returns all sessions in the Active state
func (r *Registry) ListActive() []*game.Session {
	var active []*game.Session
	for _, s := range r.List() {
		if s.Status() == game.StatusActive {
			active = append(active, s)
		}
	}

	return active
}

// Len returns the number of stored sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}
