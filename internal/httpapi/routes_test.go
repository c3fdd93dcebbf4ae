package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DoyleJ11/dice-table/internal/httpapi"
	"github.com/DoyleJ11/dice-table/internal/session"
	"github.com/DoyleJ11/dice-table/internal/types"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	co := session.NewCoordinator(ctx, []string{"warrior", "mage"}, zap.NewNop())
	srv := httptest.NewServer(httpapi.SetupRoutes(co, t.TempDir(), zap.NewNop()))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg types.ClientMessage) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload, err := json.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, payload))
}

func recv(t *testing.T, conn *websocket.Conn) types.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var msg types.ServerMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWS_ClaimReadyRoll(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv)

	snap := recv(t, conn)
	require.Equal(t, types.EvtPlayersUpdate, snap.Type)
	assert.Empty(t, snap.Players)

	send(t, conn, types.ClientMessage{Type: types.EvtClaimRole, Role: "warrior"})

	reply := recv(t, conn)
	require.Equal(t, types.EvtRoleAssigned, reply.Type)
	require.NotNil(t, reply.Success)
	assert.True(t, *reply.Success)
	assert.Equal(t, "warrior", reply.Role)

	roster := recv(t, conn)
	require.Equal(t, types.EvtPlayersUpdate, roster.Type)
	require.Len(t, roster.Players, 1)
	assert.Equal(t, "warrior", roster.Players[0].Role)

	// sole online role: readiness barrier fires on the first signal
	send(t, conn, types.ClientMessage{Type: types.EvtPlayerReady, Role: "warrior"})

	roll := recv(t, conn)
	require.Equal(t, types.EvtStartRoll, roll.Type)
	require.Len(t, roll.RoundPoints, 1)
	points := roll.RoundPoints["warrior"]
	require.Len(t, points, 5)
	for _, v := range points {
		assert.GreaterOrEqual(t, v, 1)
		assert.LessOrEqual(t, v, 6)
	}
}

func TestWS_DisconnectBroadcastsRoster(t *testing.T) {
	srv := newTestServer(t)

	claimer := dial(t, srv)
	_ = recv(t, claimer) // join snapshot
	send(t, claimer, types.ClientMessage{Type: types.EvtClaimRole, Role: "mage"})
	_ = recv(t, claimer) // role-assigned
	_ = recv(t, claimer) // roster

	watcher := dial(t, srv)
	snap := recv(t, watcher)
	require.Equal(t, types.EvtPlayersUpdate, snap.Type)
	require.Len(t, snap.Players, 1)

	claimer.Close(websocket.StatusNormalClosure, "leaving")

	roster := recv(t, watcher)
	require.Equal(t, types.EvtPlayersUpdate, roster.Type)
	assert.Empty(t, roster.Players)
}

func TestWS_UnknownTypeGetsErrorMsg(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv)
	_ = recv(t, conn) // join snapshot

	send(t, conn, types.ClientMessage{Type: "shuffle-deck"})

	msg := recv(t, conn)
	assert.Equal(t, types.EvtErrorMsg, msg.Type)
	assert.Equal(t, "unknown type", msg.Message)
}
