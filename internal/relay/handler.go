package relay

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

var clientSeq atomic.Int64

// Handler upgrades requests to WebSocket connections fed by hub.
func Handler(hub *Hub) http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// The relay is read-only and usually bound to localhost.
		CheckOrigin: func(*http.Request) bool { return true },
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.logger.Error().Err(err).Msg("WebSocket upgrade failed")
			return
		}

		client := NewClient(fmt.Sprintf("%s-%d", r.RemoteAddr, clientSeq.Add(1)), hub, conn)
		if !hub.Register(client) {
			_ = conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump()
	})
}
