package ws

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"time"

	"github.com/DoyleJ11/dice-table/internal/session"
	"github.com/DoyleJ11/dice-table/internal/types"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

const writeTimeout = 3 * time.Second

func Handler(co *session.Coordinator, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan types.ServerMessage, 8)
		connID := randID(6)
		log.Debug("client connected", zap.String("conn", connID))

		co.Inbox() <- session.Join{ConnID: connID, Outbox: out}
		defer func() { co.Inbox() <- session.Leave{ConnID: connID} }()

		// Writer goroutine: drains the outbox until the coordinator closes
		// it (shutdown or slow-client drop) or the socket dies.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for msg := range out {
				payload, err := json.Marshal(msg)
				if err != nil {
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop. No read deadline: connections persist until the
		// transport reports disconnection.
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				// Otherwise, just exit (session.Leave in defer):
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeError(r.Context(), conn, "bad json")
				continue
			}

			msg, ok := toSessionMsg(connID, cm)
			if !ok {
				writeError(r.Context(), conn, "unknown type")
				continue
			}

			co.Inbox() <- msg
		}
	}
}

func toSessionMsg(connID string, m types.ClientMessage) (session.Msg, bool) {
	switch m.Type {
	case types.EvtClaimRole:
		return session.Claim{ConnID: connID, Role: m.Role}, true
	case types.EvtPlayerReady:
		return session.Ready{ConnID: connID, Role: m.Role}, true
	default:
		return nil, false
	}
}

func writeError(ctx context.Context, conn *websocket.Conn, message string) {
	payload, _ := json.Marshal(types.ServerMessage{
		Type:    types.EvtErrorMsg,
		Message: message,
	})
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, payload)
}

func randID(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
