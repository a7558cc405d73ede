package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"carwatch-engine/internal/events"
	"carwatch-engine/internal/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true }, // Allow all origins
}

type WSHandler struct {
	Hub     *events.Hub
	Backlog *events.Backlog
}

// ServeWS upgrades the connection, replays the recent backlog and then
// streams live events until either side goes away.
func (h WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	l := logging.WithComponent("httpapi/ws")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub := h.Hub.Subscribe()
	defer h.Hub.Unsubscribe(sub.ID)

	l.Info().Str("remote_addr", conn.RemoteAddr().String()).Msg("websocket client connected")

	// outbound carries pong replies from the read pump so only one goroutine
	// ever writes to the connection.
	outbound := make(chan string, 4)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
					l.Warn().Err(err).Msg("unexpected websocket close")
				}
				return
			}
			var in struct {
				Type string `json:"type"`
			}
			if json.Unmarshal(msg, &in) == nil && in.Type == events.TypePing {
				select {
				case outbound <- events.Make(events.TypePong, nil):
				default:
				}
			}
		}
	}()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(events.Make(events.TypeWelcome, nil))); err != nil {
		return
	}
	initial := events.Make(events.TypeInitialListings, map[string]any{"listings": h.Backlog.Snapshot()})
	if err := conn.WriteMessage(websocket.TextMessage, []byte(initial)); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case msg := <-outbound:
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		case msg, open := <-sub.C:
			if !open {
				// pruned by the hub for falling behind
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
	}
}
