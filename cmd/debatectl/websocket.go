package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/neo/debateengine/internal/telemetry"
)

// upgrader mirrors the teacher's permissive CheckOrigin/compression
// settings; this is a reference deployment, not a hardened one.
var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// streamDebate upgrades to a WebSocket, writes the catch-up snapshot as
// the first frame, then relays the broadcaster's event stream — whose
// first event is connection_established — as JSON frames until the
// client disconnects or the subscription reaches end-of-stream.
func (a *app) streamDebate(c *gin.Context) {
	id := c.Param("id")
	snapshot, err := a.repo.Get(id)
	if err != nil {
		writeError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		telemetry.Error("websocket upgrade failed", telemetry.Fields{"debate_id": id, "error": err.Error()})
		return
	}
	defer conn.Close()

	sub := a.broadcaster.Subscribe(id, snapshot)
	defer sub.Unsubscribe()

	if err := conn.WriteJSON(gin.H{"type": "snapshot", "debate_id": id, "snapshot": sub.Snapshot, "offset": sub.Offset}); err != nil {
		return
	}

	go drainClientReads(conn)

	for event := range sub.Events {
		if err := conn.WriteJSON(event); err != nil {
			return
		}
	}
}

// drainClientReads discards inbound frames so the connection's read
// deadline and control-frame handling (ping/pong, close) keep working;
// this channel is publish-only from the server's side.
func drainClientReads(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
