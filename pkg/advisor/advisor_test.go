package advisor

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tecu23/arena-server/pkg/board"
	"github.com/tecu23/arena-server/pkg/engine"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func TestHTTPAdvisorDecodesBestMove(t *testing.T) {
	var got apiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"type":"bestmove","from":"e2","to":"e4","san":"e4","winChance":53.5}`)
	}))
	defer srv.Close()

	a := NewHTTPAdvisor(srv.URL, time.Second, zap.NewNop())
	advice, err := a.Advise(context.Background(), Request{FEN: startFEN, Depth: 18, ThinkingTime: 100 * time.Millisecond})
	require.NoError(t, err)

	assert.Equal(t, startFEN, got.FEN)
	assert.Equal(t, 18, got.Depth)
	assert.Equal(t, int64(100), got.MaxThinkingTime)

	assert.Equal(t, board.MoveSpec{From: "e2", To: "e4"}, advice.Move)
	assert.Equal(t, "e4", advice.SAN)
	assert.True(t, advice.HasWinChance)
	assert.InDelta(t, 53.5, advice.WinChance, 0.001)
}

func TestHTTPAdvisorDegradesOnFailure(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		},
		"garbage": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "not json")
		},
		"error type": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"type":"error","text":"invalid fen"}`)
		},
	}

	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			_, err := NewHTTPAdvisor(srv.URL, time.Second, zap.NewNop()).Advise(context.Background(), Request{FEN: startFEN})
			assert.ErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestHTTPAdvisorHonoursTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewHTTPAdvisor(srv.URL, 5*time.Second, zap.NewNop()).Advise(ctx, Request{FEN: startFEN})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.Advise(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestWinChance(t *testing.T) {
	assert.InDelta(t, 50, winChance(0), 0.001)
	assert.Greater(t, winChance(300), 70.0)
	assert.Less(t, winChance(-300), 30.0)
	assert.True(t, whiteToMove(startFEN))
	assert.False(t, whiteToMove("8/8/8/8/8/8/8/8 b - - 0 1"))
}

func pipeEngine(t *testing.T, reply string) *engine.UCIEngine {
	t.Helper()

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	go func() {
		defer outW.Close()
		scanner := bufio.NewScanner(inR)
		for scanner.Scan() {
			switch cmd := scanner.Text(); {
			case cmd == "uci":
				_, _ = io.WriteString(outW, "uciok\n")
			case cmd == "isready":
				_, _ = io.WriteString(outW, "readyok\n")
			case strings.HasPrefix(cmd, "go"):
				_, _ = io.WriteString(outW, reply)
			case cmd == "quit":
				return
			}
		}
	}()

	e, err := engine.Attach(context.Background(), inW, outR, zap.NewNop())
	require.NoError(t, err)
	return e
}

func TestEngineAdvisor(t *testing.T) {
	pool := engine.NewPool(1, func() (*engine.UCIEngine, error) {
		return pipeEngine(t, "info depth 3 score cp 0 pv e7e5\nbestmove e7e5\n"), nil
	}, zap.NewNop())
	require.NoError(t, pool.Initialize())
	defer pool.Shutdown()

	advice, err := NewEngineAdvisor(pool).Advise(context.Background(), Request{
		FEN:   "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1",
		Depth: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, board.MoveSpec{From: "e7", To: "e5"}, advice.Move)
	assert.True(t, advice.HasWinChance)
	assert.InDelta(t, 50, advice.WinChance, 0.001)
}

func TestEngineAdvisorUnavailableWhenPoolBusy(t *testing.T) {
	pool := engine.NewPool(1, func() (*engine.UCIEngine, error) {
		return pipeEngine(t, "bestmove e7e5\n"), nil
	}, zap.NewNop())
	require.NoError(t, pool.Initialize())
	defer pool.Shutdown()

	held, err := pool.GetEngine(context.Background())
	require.NoError(t, err)
	defer pool.ReturnEngine(held)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = NewEngineAdvisor(pool).Advise(ctx, Request{FEN: startFEN})
	assert.ErrorIs(t, err, ErrUnavailable)
}
