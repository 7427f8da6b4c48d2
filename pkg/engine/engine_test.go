package engine

import (
	"bufio"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeEngine answers the subset of UCI the server speaks
func fakeEngine(t *testing.T, bestmove string, info string) *UCIEngine {
	t.Helper()

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	go func() {
		defer outW.Close()
		scanner := bufio.NewScanner(inR)
		for scanner.Scan() {
			cmd := scanner.Text()
			switch {
			case cmd == "uci":
				_, _ = io.WriteString(outW, "id name fake\nuciok\n")
			case cmd == "isready":
				_, _ = io.WriteString(outW, "readyok\n")
			case strings.HasPrefix(cmd, "go"):
				if info != "" {
					_, _ = io.WriteString(outW, info+"\n")
				}
				_, _ = io.WriteString(outW, "bestmove "+bestmove+"\n")
			case cmd == "quit":
				return
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	e, err := Attach(ctx, inW, outR, zap.NewNop())
	require.NoError(t, err)

	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestAnalyzeReturnsBestMoveAndScore(t *testing.T) {
	e := fakeEngine(t, "e2e4", "info depth 12 score cp 34 nodes 100 pv e2e4 e7e5")

	a, err := e.Analyze(context.Background(), "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", 12, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "e2e4", a.BestMove)
	assert.True(t, a.HasScore)
	assert.Equal(t, 34, a.ScoreCP)
	assert.Equal(t, 0, a.Mate)
}

func TestAnalyzeWithoutScore(t *testing.T) {
	e := fakeEngine(t, "g1f3", "")

	a, err := e.Analyze(context.Background(), "startfen", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, "g1f3", a.BestMove)
	assert.False(t, a.HasScore)
}

func TestParseSearchMateScore(t *testing.T) {
	a, err := parseSearch([]string{"info depth 5 score mate -2 pv h7h6", "bestmove h7h6 ponder a1a2"})
	require.NoError(t, err)
	assert.Equal(t, -2, a.Mate)
	assert.True(t, a.HasScore)
	assert.Equal(t, "h7h6", a.BestMove)
}

func TestParseSearchNoMove(t *testing.T) {
	_, err := parseSearch([]string{"bestmove (none)"})
	assert.Error(t, err)

	_, err = parseSearch([]string{"info string nothing"})
	assert.Error(t, err)
}

func TestAnalyzeAfterCloseFails(t *testing.T) {
	e := fakeEngine(t, "e2e4", "")
	require.NoError(t, e.Close())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := e.Analyze(ctx, "fen", 1, 0)
	assert.Error(t, err)
}

func TestPoolLendsAndReturnsEngines(t *testing.T) {
	pool := NewPool(2, func() (*UCIEngine, error) {
		return fakeEngine(t, "d2d4", ""), nil
	}, zap.NewNop())
	require.NoError(t, pool.Initialize())
	defer pool.Shutdown()

	ctx := context.Background()
	a, err := pool.GetEngine(ctx)
	require.NoError(t, err)
	b, err := pool.GetEngine(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = pool.GetEngine(short)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	pool.ReturnEngine(a)
	again, err := pool.GetEngine(ctx)
	require.NoError(t, err)
	assert.Equal(t, a.ID, again.ID)
}

func TestPoolShutdown(t *testing.T) {
	pool := NewPool(1, func() (*UCIEngine, error) {
		return fakeEngine(t, "d2d4", ""), nil
	}, zap.NewNop())
	require.NoError(t, pool.Initialize())

	e, err := pool.GetEngine(context.Background())
	require.NoError(t, err)

	pool.Shutdown()
	pool.Shutdown()
	pool.ReturnEngine(e)

	_, err = pool.GetEngine(context.Background())
	assert.ErrorIs(t, err, ErrPoolClosed)
}
