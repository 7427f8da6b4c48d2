package board

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tecu23/arena-server/internal/color"
)

func play(t *testing.T, b *Board, moves ...string) {
	t.Helper()
	for _, m := range moves {
		spec, err := ParseUCI(m)
		require.NoError(t, err)
		_, err = b.Apply(spec)
		require.NoError(t, err, m)
	}
}

func TestParseUCI(t *testing.T) {
	spec, err := ParseUCI("e7e8Q")
	require.NoError(t, err)
	assert.Equal(t, MoveSpec{From: "e7", To: "e8", Promotion: "q"}, spec)
	assert.Equal(t, "e7e8q", spec.UCI())

	_, err = ParseUCI("e2")
	assert.ErrorIs(t, err, ErrIllegalMove)
}

func TestApplyLegalMove(t *testing.T) {
	b := New()
	assert.Equal(t, color.White, b.Turn())

	ply, err := b.Apply(MoveSpec{From: "e2", To: "e4"})
	require.NoError(t, err)
	assert.Equal(t, color.White, ply.Color)
	assert.Equal(t, "e4", ply.SAN)
	assert.Equal(t, "e2e4", ply.UCI)
	assert.Equal(t, color.Black, b.Turn())
	assert.Len(t, b.History(), 1)
	assert.Contains(t, b.FEN(), " b ")
}

func TestApplyCastlingAndPromotion(t *testing.T) {
	b, err := FromFEN("r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	require.NoError(t, err)

	ply, err := b.Apply(MoveSpec{From: "e1", To: "g1"})
	require.NoError(t, err)
	assert.Equal(t, "O-O", ply.SAN)
	assert.True(t, strings.HasPrefix(b.FEN(), "r3k2r/8/8/8/8/8/8/R4RK1 b kq"))

	b, err = FromFEN("8/4P3/8/8/8/8/k7/7K w - - 0 1")
	require.NoError(t, err)

	ply, err = b.Apply(MoveSpec{From: "e7", To: "e8", Promotion: "q"})
	require.NoError(t, err)
	assert.Equal(t, "e8=Q", ply.SAN)
	assert.Equal(t, "e7e8q", ply.UCI)
	assert.True(t, strings.HasPrefix(b.FEN(), "4Q3/8/8/8/8/8/k7/7K b"))
}

func TestApplyRejectsIllegalMoves(t *testing.T) {
	b := New()
	before := b.FEN()

	for _, spec := range []MoveSpec{
		{From: "e2", To: "e5"},
		{From: "e7", To: "e5"},
		{From: "z9", To: "a1"},
		{},
	} {
		_, err := b.Apply(spec)
		assert.ErrorIs(t, err, ErrIllegalMove)
	}

	assert.Equal(t, before, b.FEN())
	assert.Empty(t, b.History())
}

func TestCheckmate(t *testing.T) {
	b := New()
	play(t, b, "f2f3", "e7e5", "g2g4", "d8h4")

	st := b.Status()
	assert.True(t, st.Over)
	assert.True(t, st.Checkmate)
	assert.Equal(t, color.Black, st.Winner)
	assert.Equal(t, "checkmate", st.Method)
	assert.Equal(t, "Qh4#", b.History()[3].SAN)
}

func TestStalemateIsDraw(t *testing.T) {
	b, err := FromFEN("7k/8/6K1/5Q2/8/8/8/8 w - - 0 1")
	require.NoError(t, err)

	play(t, b, "f5f7")

	st := b.Status()
	assert.True(t, st.Over)
	assert.True(t, st.Draw)
	assert.False(t, st.Checkmate)
	assert.Equal(t, "stalemate", st.Method)
}

func TestResetRestoresStartPosition(t *testing.T) {
	b := New()
	start := b.FEN()
	play(t, b, "e2e4", "e7e5")

	b.Reset()
	assert.Equal(t, start, b.FEN())
	assert.Empty(t, b.History())
}

func TestFromFENRejectsGarbage(t *testing.T) {
	_, err := FromFEN("not a fen")
	assert.Error(t, err)
}

func TestLegalMovesFromStart(t *testing.T) {
	b := New()

	moves := b.LegalMoves()
	assert.Len(t, moves, 20)
	assert.Contains(t, moves, MoveSpec{From: "e2", To: "e4"})
	assert.Contains(t, moves, MoveSpec{From: "g1", To: "f3"})
}
