package matchmaking

import (
	"github.com/google/uuid"

	"github.com/tecu23/arena-server/pkg/player"
)

// RatingWindow is the largest rating difference two players can be paired across
const RatingWindow = 100

// Entry is one waiting player
type Entry struct {
	ConnectionID uuid.UUID
	Player       player.Player
	Mode         Mode
}

// Queue holds the per-mode waiting lists in arrival order.
//
// It is not safe for concurrent use; the dispatcher owns it.
type Queue struct {
	waiting       map[Mode][]Entry
	defaultRating int
}

// NewQueue creates an empty queue for every supported mode
func NewQueue(defaultRating int) *Queue {
	q := &Queue{
		waiting:       make(map[Mode][]Entry),
		defaultRating: defaultRating,
	}
	for _, m := range Modes() {
		q.waiting[m] = nil
	}

	return q
}

// Enqueue appends entry to the mode's waiting list
func (q *Queue) Enqueue(mode Mode, entry Entry) error {
	if !mode.Valid() {
		return ErrInvalidMode
	}

	entry.Mode = mode
	q.waiting[mode] = append(q.waiting[mode], entry)
	return nil
}

// Cancel removes the first entry of the connection; it reports whether one was removed
func (q *Queue) Cancel(mode Mode, connID uuid.UUID) (bool, error) {
	if !mode.Valid() {
		return false, ErrInvalidMode
	}

	list := q.waiting[mode]
	for i, e := range list {
		if e.ConnectionID == connID {
			q.waiting[mode] = append(list[:i:i], list[i+1:]...)
			return true, nil
		}
	}

	return false, nil
}

// CancelConnection removes every entry of the connection in every mode
func (q *Queue) CancelConnection(connID uuid.UUID) int {
	return q.removeIf(func(e Entry) bool { return e.ConnectionID == connID })
}

// CancelIdentity removes every entry of identity in every mode, whatever
// connection queued it
func (q *Queue) CancelIdentity(identity string) int {
	return q.removeIf(func(e Entry) bool { return e.Player.Identity == identity })
}

func (q *Queue) removeIf(drop func(Entry) bool) int {
	removed := 0
	for mode, list := range q.waiting {
		kept := list[:0:0]
		for _, e := range list {
			if drop(e) {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		q.waiting[mode] = kept
	}

	return removed
}

// Contains reports whether identity is waiting in mode
func (q *Queue) Contains(mode Mode, identity string) bool {
	for _, e := range q.waiting[mode] {
		if e.Player.Identity == identity {
			return true
		}
	}

	return false
}

// TryMatch pairs the first compatible entries. Each entry in arrival order is
// an anchor compared against every later entry; the first pair within
// RatingWindow is removed and returned. Remaining entries keep their order.
//
// The scan is quadratic and the window never widens with waiting time.
func (q *Queue) TryMatch(mode Mode) (Entry, Entry, bool) {
	list := q.waiting[mode]
	if len(list) < 2 {
		return Entry{}, Entry{}, false
	}

	key := string(mode)
	for i := 0; i < len(list); i++ {
		ri := list[i].Player.Rating(key, q.defaultRating)
		for j := i + 1; j < len(list); j++ {
			rj := list[j].Player.Rating(key, q.defaultRating)
			if abs(ri-rj) > RatingWindow {
				continue
			}

			first, second := list[i], list[j]

			// higher index first so i stays valid
			list = append(list[:j:j], list[j+1:]...)
			list = append(list[:i:i], list[i+1:]...)
			q.waiting[mode] = list

			return first, second, true
		}
	}

	return Entry{}, Entry{}, false
}

// Len returns the number of waiting entries in mode
func (q *Queue) Len(mode Mode) int {
	return len(q.waiting[mode])
}

// Waiting returns a copy of the mode's waiting list
func (q *Queue) Waiting(mode Mode) []Entry {
	out := make([]Entry, len(q.waiting[mode]))
	copy(out, q.waiting[mode])
	return out
}

// Counts returns the waiting count per mode
func (q *Queue) Counts() map[Mode]int {
	out := make(map[Mode]int, len(q.waiting))
	for m, list := range q.waiting {
		out[m] = len(list)
	}

	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
