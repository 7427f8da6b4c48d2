package game

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/tecu23/arena-server/internal/color"
	"github.com/tecu23/arena-server/pkg/board"
	"github.com/tecu23/arena-server/pkg/clock"
	"github.com/tecu23/arena-server/pkg/player"
	"github.com/tecu23/arena-server/pkg/result"
)

var (
	// ErrOutOfTurn is returned when the requester is not on move or the session is not active
	ErrOutOfTurn = errors.New("out of turn")
	// ErrIllegalMove is returned when the rules engine rejects a move
	ErrIllegalMove = board.ErrIllegalMove
	// ErrNotComputerGame is returned for operations only computer games support
	ErrNotComputerGame = errors.New("not a computer game")
)

// Status is the lifecycle state of a session. It only moves forward.
type Status string

// Possible statuses
const (
	StatusCreated Status = "created"
	StatusActive  Status = "active"
	StatusOver    Status = "over"
)

// Kind tells human-vs-human sessions from sessions against the computer
type Kind string

// Possible kinds
const (
	KindPlayers  Kind = "playerVsPlayer"
	KindComputer Kind = "playerVsComputer"
)

// Board is the rules engine the session delegates legality to
type Board interface {
	Apply(spec board.MoveSpec) (board.Ply, error)
	Status() board.Status
	FEN() string
	Turn() color.Color
	History() []board.Ply
	LegalMoves() []board.MoveSpec
	Reset()
}

// Seat binds a player to a color in one session
type Seat struct {
	Player       player.Player
	Color        color.Color
	ConnectionID uuid.UUID
	Connected    bool
	Computer     bool
}

// NotationEntry is one numbered move pair
type NotationEntry struct {
	MoveNumber int    `json:"moveNumber"`
	WhiteMove  string `json:"whiteMove"`
	BlackMove  string `json:"blackMove"`
}

// ComputerOptions configures the computer side of a computer game
type ComputerOptions struct {
	Depth         int
	ThinkingTime  time.Duration
	ShowWinBar    bool
	ShowBestMoves bool
}

// Params are the inputs to New
type Params struct {
	ID              uuid.UUID
	Generation      uint64
	Mode            string
	Kind            Kind
	Seats           [2]Seat
	InitialDuration time.Duration
	Board           Board
	Clock           clockwork.Clock
	DefaultRating   int
	Computer        ComputerOptions
}

// MoveResult describes an accepted move
type MoveResult struct {
	Ply      board.Ply
	FEN      string
	Turn     color.Color
	Notation []NotationEntry
	Outcome  *result.Outcome // set when the move ended the game
}

// Session is one room: two seats, their clocks, the board and the move log.
//
// A session is not safe for concurrent use. It is reached only through the
// registry by the dispatcher.
type Session struct {
	ID         uuid.UUID
	Generation uint64
	Mode       string
	Kind       Kind
	Computer   ComputerOptions

	seats    [2]Seat
	clocks   map[color.Color]*clock.Clock
	duration *clock.Clock
	ratings  result.Ratings

	board    Board
	turn     color.Color
	notation []NotationEntry

	status  Status
	outcome *result.Outcome

	clk       clockwork.Clock
	createdAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a session in the Created state
func New(p Params) *Session {
	clk := p.Clock
	if clk == nil {
		clk = clockwork.NewRealClock()
	}

	s := &Session{
		ID:         p.ID,
		Generation: p.Generation,
		Mode:       p.Mode,
		Kind:       p.Kind,
		Computer:   p.Computer,
		seats:      p.Seats,
		clocks: map[color.Color]*clock.Clock{
			color.White: clock.New(p.InitialDuration, clk),
			color.Black: clock.New(p.InitialDuration, clk),
		},
		duration:  clock.New(0, clk),
		board:     p.Board,
		turn:      p.Board.Turn(),
		status:    StatusCreated,
		clk:       clk,
		createdAt: clk.Now(),
	}

	for _, seat := range p.Seats {
		rating := seat.Player.Rating(p.Mode, p.DefaultRating)
		if seat.Color == color.White {
			s.ratings.White = rating
		} else {
			s.ratings.Black = rating
		}
	}

	return s
}

// Start moves a Created session to Active. Human games start the clock of the
// side on move; computer games run no per-player clock.
func (s *Session) Start() {
	if s.status != StatusCreated {
		return
	}

	s.status = StatusActive
	s.duration.Start()
	if s.Kind == KindPlayers {
		s.clocks[s.turn].Start()
	}
}

// ApplyMove plays spec for requester.
func (s *Session) ApplyMove(requester color.Color, spec board.MoveSpec) (MoveResult, error) {
	if s.status != StatusActive || requester != s.turn {
		return MoveResult{}, ErrOutOfTurn
	}

	ply, err := s.board.Apply(spec)
	if err != nil {
		return MoveResult{}, err
	}

	s.recordNotation(ply)

	if s.Kind == KindPlayers {
		s.clocks[s.turn].Stop()
		s.clocks[s.turn.Opp()].Start()
	}
	s.turn = s.turn.Opp()

	res := MoveResult{
		Ply:      ply,
		FEN:      s.board.FEN(),
		Turn:     s.turn,
		Notation: s.Notation(),
	}

	if st := s.board.Status(); st.Over {
		var o result.Outcome
		if st.Draw {
			o = result.Draw(st.Method)
		} else {
			o = result.Checkmate(st.Winner, s.ratings)
			o.Detail = st.Method
		}
		o, _ = s.Finish(o)
		res.Outcome = &o
	}

	return res, nil
}

// recordNotation groups plies in pairs: a white ply opens an entry, a black
// ply fills the trailing slot.
func (s *Session) recordNotation(ply board.Ply) {
	if s.turn == color.White || len(s.notation) == 0 {
		entry := NotationEntry{MoveNumber: len(s.notation) + 1}
		if s.turn == color.White {
			entry.WhiteMove = ply.To
		} else {
			entry.BlackMove = ply.To
		}
		s.notation = append(s.notation, entry)
		return
	}

	s.notation[len(s.notation)-1].BlackMove = ply.To
}

// Surrender ends the game in favour of the opponent of c, whatever the turn
// or clock state.
func (s *Session) Surrender(c color.Color) (result.Outcome, bool) {
	return s.Finish(result.Surrender(c, s.ratings))
}

// CheckTimeout reports the color whose clock has run out. It never changes
// state; the caller ends the game with FinishTimeout.
func (s *Session) CheckTimeout() (color.Color, bool) {
	if s.Kind != KindPlayers {
		return "", false
	}

	for _, c := range []color.Color{color.White, color.Black} {
		if s.clocks[c].Expired() {
			return c, true
		}
	}

	return "", false
}

// FinishTimeout ends the game in favour of the side whose clock did not expire
func (s *Session) FinishTimeout(expired color.Color) (result.Outcome, bool) {
	return s.Finish(result.Timeout(expired, s.ratings))
}

// Finish moves the session to Over at most once. Later calls return the
// recorded outcome and false.
func (s *Session) Finish(o result.Outcome) (result.Outcome, bool) {
	if s.status == StatusOver {
		return *s.outcome, false
	}

	s.status = StatusOver
	s.outcome = &o

	for _, c := range s.clocks {
		c.Stop()
		c.EndGame()
	}
	s.duration.EndGame()
	s.duration.Stop()
	s.CancelPending()

	return o, true
}

// Restart resets a computer game to its initial position under a new generation.
// It is the one path out of Over: the new generation makes it a new game, and
// work scheduled for the old one no longer finds it.
func (s *Session) Restart(generation uint64) error {
	if s.Kind != KindComputer {
		return ErrNotComputerGame
	}

	s.CancelPending()
	s.board.Reset()
	for _, c := range s.clocks {
		c.Stop()
		c.Reset()
	}
	s.duration.Stop()
	s.duration.Reset()

	s.turn = s.board.Turn()
	s.notation = nil
	s.outcome = nil
	s.status = StatusCreated
	s.Generation = generation

	return nil
}

// Context scopes requests made on behalf of the session. It is cancelled when
// the game ends, restarts or the room is deleted.
func (s *Session) Context() context.Context {
	if s.ctx == nil {
		s.ctx, s.cancel = context.WithCancel(context.Background())
	}
	return s.ctx
}

// CancelPending cancels every request scoped to the current context
func (s *Session) CancelPending() {
	if s.cancel != nil {
		s.cancel()
		s.ctx, s.cancel = nil, nil
	}
}

// Status returns the lifecycle state
func (s *Session) Status() Status {
	return s.status
}

// Turn returns the color on move
func (s *Session) Turn() color.Color {
	return s.turn
}

// Outcome returns the terminal outcome once the session is over
func (s *Session) Outcome() (result.Outcome, bool) {
	if s.outcome == nil {
		return result.Outcome{}, false
	}
	return *s.outcome, true
}

// Ratings returns both sides' ratings for the session's mode
func (s *Session) Ratings() result.Ratings {
	return s.ratings
}

// Remaining returns the balance of c's clock
func (s *Session) Remaining(c color.Color) time.Duration {
	return s.clocks[c].Remaining()
}

// ClockRunning reports whether c's clock is counting down
func (s *Session) ClockRunning(c color.Color) bool {
	return s.clocks[c].Running()
}

// Duration is the total game length once the game is over
func (s *Session) Duration() time.Duration {
	return s.duration.TotalGameDuration()
}

// LegalMoves lists the moves playable in the current position
func (s *Session) LegalMoves() []board.MoveSpec {
	return s.board.LegalMoves()
}

// FEN serializes the board
func (s *Session) FEN() string {
	return s.board.FEN()
}

// History returns all accepted plies
func (s *Session) History() []board.Ply {
	return s.board.History()
}

// Notation returns a copy of the paired move log
func (s *Session) Notation() []NotationEntry {
	out := make([]NotationEntry, len(s.notation))
	copy(out, s.notation)
	return out
}

// CreatedAt returns when the session was created
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}
