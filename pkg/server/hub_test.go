package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tecu23/arena-server/pkg/advisor"
	"github.com/tecu23/arena-server/pkg/events"
	"github.com/tecu23/arena-server/pkg/manager"
	"github.com/tecu23/arena-server/pkg/matchmaking"
	"github.com/tecu23/arena-server/pkg/messages"
	"github.com/tecu23/arena-server/pkg/player"
	"github.com/tecu23/arena-server/pkg/registry"
)

type envelope struct {
	Event   string          `json:"event"`
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	logger := zap.NewNop()
	publisher := events.NewPublisher()
	mgr := manager.New(
		manager.DefaultConfig(),
		matchmaking.NewQueue(player.DefaultRating),
		registry.New(logger),
		advisor.Disabled{},
		publisher,
		logger,
	)
	hub := NewHub(mgr, publisher, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := NewConnection(ws, hub, logger)
		if !hub.Register(conn) {
			ws.Close()
			return
		}
		go conn.WritePump()
		go conn.ReadPump()
	}))

	t.Cleanup(func() {
		srv.Close()
		cancel()
		mgr.Close()
	})

	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })

	readEvent(t, ws, messages.EventConnected)
	return ws
}

func send(t *testing.T, ws *websocket.Conn, id, typ string, payload interface{}) {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(messages.InboundMessage{ID: id, Type: typ, Payload: raw}))
}

// readEvent skips frames until one with the given event arrives
func readEvent(t *testing.T, ws *websocket.Conn, event string) envelope {
	t.Helper()

	for {
		require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
		var env envelope
		require.NoError(t, ws.ReadJSON(&env))
		if env.Event == event {
			return env
		}
	}
}

func joinBlitz(t *testing.T, ws *websocket.Conn, identity string, rating int) {
	t.Helper()

	send(t, ws, "join-"+identity, messages.TypeJoinQueue, messages.JoinQueuePayload{
		Player: player.Player{Identity: identity, Ratings: map[string]int{"blitz": rating}},
		Mode:   "blitz",
	})
}

func TestMatchAndMoveOverWebsocket(t *testing.T) {
	hub, srv := newTestHub(t)

	alice := dial(t, srv)
	bob := dial(t, srv)
	assert.Eventually(t, func() bool { return hub.Count() == 2 }, time.Second, 10*time.Millisecond)

	joinBlitz(t, alice, "alice", 1500)
	ack := readEvent(t, alice, messages.EventResponse)
	assert.Equal(t, "join-alice", ack.ID)
	assert.Equal(t, messages.TypeJoinQueue, ack.Type)

	joinBlitz(t, bob, "bob", 1560)

	var aliceMatch, bobMatch messages.MatchFoundPayload
	require.NoError(t, json.Unmarshal(readEvent(t, alice, string(events.EventMatchFound)).Payload, &aliceMatch))
	require.NoError(t, json.Unmarshal(readEvent(t, bob, string(events.EventMatchFound)).Payload, &bobMatch))

	assert.Equal(t, int64(180000), aliceMatch.InitialDuration)
	assert.Equal(t, aliceMatch.RoomID, bobMatch.RoomID)
	assert.NotEqual(t, aliceMatch.Color, bobMatch.Color)
	assert.Equal(t, "bob", aliceMatch.Opponent.Identity)

	white, black := alice, bob
	if bobMatch.Color == "white" {
		white, black = bob, alice
	}

	send(t, white, "m1", messages.TypeMove, messages.MovePayload{RoomID: aliceMatch.RoomID, UCI: "e2e4"})

	for _, ws := range []*websocket.Conn{white, black} {
		var moved messages.MoveEventPayload
		require.NoError(t, json.Unmarshal(readEvent(t, ws, string(events.EventMove)).Payload, &moved))
		assert.Equal(t, "e4", moved.Move.SAN)
		assert.Equal(t, "black", string(moved.CurrentTurn))
	}

	resp := readEvent(t, white, messages.EventResponse)
	assert.Equal(t, "m1", resp.ID)
	var result messages.MoveResultPayload
	require.NoError(t, json.Unmarshal(resp.Payload, &result))
	assert.True(t, result.Accepted)
}

func TestRejectionsGoToRequesterOnly(t *testing.T) {
	_, srv := newTestHub(t)
	ws := dial(t, srv)

	send(t, ws, "x", "teleport", struct{}{})
	env := readEvent(t, ws, messages.EventError)
	assert.Equal(t, "x", env.ID)
	var payload messages.ErrorPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, codeUnknownType, payload.Code)

	send(t, ws, "y", messages.TypeJoinQueue, messages.JoinQueuePayload{Player: player.Player{Identity: "carol"}, Mode: "classical"})
	require.NoError(t, json.Unmarshal(readEvent(t, ws, messages.EventError).Payload, &payload))
	assert.Equal(t, codeInvalidMode, payload.Code)

	send(t, ws, "z", messages.TypeGetTimers, messages.RoomPayload{RoomID: "nowhere"})
	require.NoError(t, json.Unmarshal(readEvent(t, ws, messages.EventError).Payload, &payload))
	assert.Equal(t, codeRoomNotFound, payload.Code)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{not json")))
	require.NoError(t, json.Unmarshal(readEvent(t, ws, messages.EventError).Payload, &payload))
	assert.Equal(t, codeInvalidPayload, payload.Code)
}

func TestDisconnectReleasesQueueEntry(t *testing.T) {
	hub, srv := newTestHub(t)
	ws := dial(t, srv)

	joinBlitz(t, ws, "carol", 1500)
	readEvent(t, ws, messages.EventResponse)

	waiting := func() int {
		var counts messages.QueueCountsPayload
		require.NoError(t, hub.Call(context.Background(), func() { counts = hub.manager.QueueCounts() }))
		return counts.Waiting["blitz"]
	}
	assert.Equal(t, 1, waiting())

	ws.Close()

	assert.Eventually(t, func() bool { return waiting() == 0 }, 2*time.Second, 20*time.Millisecond)
	assert.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 20*time.Millisecond)
}

func TestCallAfterStop(t *testing.T) {
	logger := zap.NewNop()
	publisher := events.NewPublisher()
	mgr := manager.New(manager.DefaultConfig(), matchmaking.NewQueue(player.DefaultRating), registry.New(logger), nil, publisher, logger)
	defer mgr.Close()
	hub := NewHub(mgr, publisher, logger)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	ran := false
	require.NoError(t, hub.Call(context.Background(), func() { ran = true }))
	assert.True(t, ran)

	cancel()
	<-stopped

	assert.ErrorIs(t, hub.Call(context.Background(), func() {}), ErrHubStopped)
	assert.False(t, hub.Inbound(InboundHubMessage{}))
}

func TestErrorCodes(t *testing.T) {
	assert.Equal(t, codeNotInRoom, errorCode(manager.ErrNotInRoom))
	assert.Equal(t, codeAlreadyInSession, errorCode(manager.ErrAlreadyInSession))
	assert.Equal(t, codeRoomNotFound, errorCode(registry.ErrRoomNotFound))
	assert.Equal(t, codeInternal, errorCode(assert.AnError))
}
