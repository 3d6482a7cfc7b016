package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"arena-battle/internal/spectate"
	"arena-battle/pkg/logger"
)

const writeTimeout = 3 * time.Second

// Stream upgrades to a WebSocket and pushes every arena view as a JSON text
// message. Anything the spectator sends is ignored.
func Stream(h *spectate.Hub, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			log.Debug("websocket accept: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan spectate.View, 8)
		clientID := uuid.NewString()
		select {
		case h.Inbox() <- spectate.Join{ClientID: clientID, Outbox: out}:
		case <-h.Done():
			conn.Close(websocket.StatusGoingAway, "game over")
			return
		}
		defer func() {
			select {
			case h.Inbox() <- spectate.Leave{ClientID: clientID}:
			case <-h.Done():
			}
		}()
		log.Debug("spectator %s joined from %s", clientID, r.RemoteAddr)

		// CloseRead handles control frames and cancels ctx when the peer goes away.
		ctx := conn.CloseRead(r.Context())
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-out:
				if !ok {
					conn.Close(websocket.StatusGoingAway, "stream closed")
					return
				}
				payload, err := json.Marshal(v)
				if err != nil {
					log.Error("marshal view: %v", err)
					continue
				}
				wctx, cancel := context.WithTimeout(ctx, writeTimeout)
				err = conn.Write(wctx, websocket.MessageText, payload)
				cancel()
				if err != nil {
					return
				}
			}
		}
	}
}
