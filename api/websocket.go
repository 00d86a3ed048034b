package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingEvery    = 45 * time.Second
	wsMaxFrame     = 4096
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return isAllowedOrigin(r.Header.Get("Origin"))
	},
}

// wsSubscribe is the control message a client sends to replace its event
// filter mid-connection.
type wsSubscribe struct {
	SessionID string   `json:"sessionId"`
	Events    []string `json:"events"`
}

// handleWebSocket upgrades GET /api/v1/ws and streams executor events to
// the client. The initial filter comes from the query string (?session=ID
// and ?events=process,step; both optional, empty means everything); the
// client can replace it at any time by sending a wsSubscribe message.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}

	q := r.URL.Query()
	sub := s.broadcaster.Subscribe(q.Get("session"), splitEventTypes(q.Get("events")))

	resub := make(chan wsSubscribe, 1)
	go wsReadLoop(conn, resub)
	s.wsWriteLoop(conn, sub, resub)
}

// wsReadLoop consumes pong frames and wsSubscribe control messages until
// the client goes away, then closes resub to end the write loop.
func wsReadLoop(conn *websocket.Conn, resub chan wsSubscribe) {
	defer close(resub)

	conn.SetReadLimit(wsMaxFrame)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	})

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket read: %v", err)
			}
			return
		}

		var req wsSubscribe
		if err := json.Unmarshal(msg, &req); err != nil {
			log.Printf("websocket subscribe: %v", err)
			continue
		}

		// Only the latest pending filter matters; drop a stale one.
		select {
		case resub <- req:
		default:
			select {
			case <-resub:
			default:
			}
			resub <- req
		}
	}
}

// wsWriteLoop owns the connection's write side and the subscription's
// lifetime: it pushes broadcast events and pings, and swaps the
// subscription when the read loop hands over a new filter.
func (s *Server) wsWriteLoop(conn *websocket.Conn, sub *Subscription, resub <-chan wsSubscribe) {
	ticker := time.NewTicker(wsPingEvery)
	defer func() {
		ticker.Stop()
		s.broadcaster.Unsubscribe(sub)
		_ = conn.Close()
	}()

	for {
		select {
		case ev, ok := <-sub.Channel:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}

		case req, ok := <-resub:
			if !ok {
				return
			}
			s.broadcaster.Unsubscribe(sub)
			sub = s.broadcaster.Subscribe(req.SessionID, toEventTypes(req.Events))

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// splitEventTypes parses the comma-separated ?events= query value.
func splitEventTypes(csv string) []EventType {
	if csv == "" {
		return nil
	}
	return toEventTypes(strings.Split(csv, ","))
}

func toEventTypes(names []string) []EventType {
	var out []EventType
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, EventType(n))
		}
	}
	return out
}
