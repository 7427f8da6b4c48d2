// Package board adapts the chess rules engine to the session's needs: move
// legality, terminal detection and FEN serialization.
package board

import (
	"errors"
	"fmt"
	"strings"

	"github.com/corentings/chess/v2"

	"github.com/tecu23/arena-server/internal/color"
)

// ErrIllegalMove is returned when the rules engine rejects a move
var ErrIllegalMove = errors.New("illegal move")

// MoveSpec is a move as requested by a client
type MoveSpec struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

// ParseUCI parses long algebraic notation such as "e2e4" or "e7e8q"
func ParseUCI(s string) (MoveSpec, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 4 && len(s) != 5 {
		return MoveSpec{}, fmt.Errorf("%w: %q", ErrIllegalMove, s)
	}

	spec := MoveSpec{From: s[0:2], To: s[2:4]}
	if len(s) == 5 {
		spec.Promotion = s[4:]
	}

	return spec, nil
}

// UCI renders the move in long algebraic notation
func (m MoveSpec) UCI() string {
	return strings.ToLower(m.From + m.To + m.Promotion)
}

// Ply is one accepted move
type Ply struct {
	Color     color.Color `json:"color"`
	From      string      `json:"from"`
	To        string      `json:"to"`
	Promotion string      `json:"promotion,omitempty"`
	SAN       string      `json:"san"`
	UCI       string      `json:"uci"`
}

// Status describes whether the position is terminal
type Status struct {
	Over      bool
	Checkmate bool
	Draw      bool
	Winner    color.Color
	Method    string
}

// Board wraps a single chess game
type Board struct {
	game    *chess.Game
	start   string
	history []Ply
}

// New creates a board at the standard starting position
func New() *Board {
	return &Board{game: chess.NewGame()}
}

// FromFEN creates a board at the given position
func FromFEN(fen string) (*Board, error) {
	if fen == "" || fen == "startpos" {
		return New(), nil
	}

	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("invalid fen: %w", err)
	}

	return &Board{game: chess.NewGame(opt), start: fen}, nil
}

// Apply plays spec if it is legal in the current position
func (b *Board) Apply(spec MoveSpec) (Ply, error) {
	uci := spec.UCI()
	if !b.isValid(uci) {
		return Ply{}, fmt.Errorf("%w: %s", ErrIllegalMove, uci)
	}

	pos := b.game.Position()
	mover := fromChess(pos.Turn())

	mv, err := chess.UCINotation{}.Decode(pos, uci)
	if err != nil {
		return Ply{}, fmt.Errorf("%w: %s", ErrIllegalMove, err)
	}

	san := chess.AlgebraicNotation{}.Encode(pos, mv)

	if err := b.game.PushMove(san, nil); err != nil {
		return Ply{}, fmt.Errorf("%w: %s", ErrIllegalMove, err)
	}

	ply := Ply{
		Color:     mover,
		From:      strings.ToLower(spec.From),
		To:        strings.ToLower(spec.To),
		Promotion: strings.ToLower(spec.Promotion),
		SAN:       san,
		UCI:       uci,
	}
	b.history = append(b.history, ply)

	return ply, nil
}

func (b *Board) isValid(uci string) bool {
	for _, vm := range b.game.ValidMoves() {
		if vm.String() == uci {
			return true
		}
	}
	return false
}

// LegalMoves lists the legal moves in the current position
func (b *Board) LegalMoves() []MoveSpec {
	valid := b.game.ValidMoves()
	out := make([]MoveSpec, 0, len(valid))
	for _, mv := range valid {
		spec, err := ParseUCI(mv.String())
		if err != nil {
			continue
		}
		out = append(out, spec)
	}
	return out
}

// Status reports checkmate or draw
func (b *Board) Status() Status {
	switch b.game.Outcome() {
	case chess.WhiteWon:
		return Status{Over: true, Checkmate: b.game.Method() == chess.Checkmate, Winner: color.White, Method: method(b.game.Method())}
	case chess.BlackWon:
		return Status{Over: true, Checkmate: b.game.Method() == chess.Checkmate, Winner: color.Black, Method: method(b.game.Method())}
	case chess.Draw:
		return Status{Over: true, Draw: true, Method: method(b.game.Method())}
	}

	return Status{}
}

// FEN serializes the current position
func (b *Board) FEN() string {
	return b.game.FEN()
}

// Turn returns the side to move
func (b *Board) Turn() color.Color {
	return fromChess(b.game.Position().Turn())
}

// History returns the accepted plies in order
func (b *Board) History() []Ply {
	out := make([]Ply, len(b.history))
	copy(out, b.history)
	return out
}

// Reset returns the board to its starting position
func (b *Board) Reset() {
	fresh, err := FromFEN(b.start)
	if err != nil {
		fresh = New()
	}
	b.game = fresh.game
	b.history = nil
}

func fromChess(c chess.Color) color.Color {
	if c == chess.Black {
		return color.Black
	}
	return color.White
}

func method(m chess.Method) string {
	switch m {
	case chess.Checkmate:
		return "checkmate"
	case chess.Resignation:
		return "resignation"
	case chess.DrawOffer:
		return "draw_offer"
	case chess.Stalemate:
		return "stalemate"
	case chess.ThreefoldRepetition:
		return "threefold_repetition"
	case chess.FivefoldRepetition:
		return "fivefold_repetition"
	case chess.FiftyMoveRule:
		return "fifty_move_rule"
	case chess.SeventyFiveMoveRule:
		return "seventy_five_move_rule"
	case chess.InsufficientMaterial:
		return "insufficient_material"
	}
	return ""
}
