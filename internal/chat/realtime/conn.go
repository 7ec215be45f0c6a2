package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/anongram/server/internal/chat/metrics"
	"github.com/anongram/server/pkg/slogx"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The app serves mobile/web clients from other origins, same as the
	// original prototype's permissive CORS setup.
	CheckOrigin: func(*http.Request) bool { return true },
}

// ServeWS upgrades the request and runs the connection until either side
// goes away. Registration, frame handling and teardown all go through the
// hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := NewClient()
	h.Register(c)
	metrics.ConnectionsLive.Inc()
	log.Debug("websocket connected", "client_id", c.ID)

	go h.writePump(conn, c)
	go h.readPump(conn, c)
}

// readPump relays inbound frames to the hub. The connection-level ping/pong
// keeps the read deadline fresh independent of application traffic.
func (h *Hub) readPump(conn *websocket.Conn, c *Client) {
	defer func() {
		h.Unregister(context.Background(), c)
		metrics.ConnectionsLive.Dec()
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.Logger.Debug("websocket read ended", "client_id", c.ID, "error", err)
			}
			return
		}
		h.HandleFrame(context.Background(), c, data)
	}
}

// writePump drains the client's send channel onto the wire and keeps the
// connection alive with protocol pings.
func (h *Hub) writePump(conn *websocket.Conn, c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
