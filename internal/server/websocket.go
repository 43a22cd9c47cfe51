package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bobmcallan/stockdesk/internal/common"
	"github.com/bobmcallan/stockdesk/internal/services/session"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsMaxMessage = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// streamMessage is one frame sent to a session stream client.
type streamMessage struct {
	Type    string            `json:"type"` // snapshot | error
	Session *session.Snapshot `json:"session,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// streamCommand is a frame sent by the client: {"action":"select","symbol":"AAPL"} or {"action":"clear"}.
type streamCommand struct {
	Action string `json:"action"`
	Symbol string `json:"symbol,omitempty"`
}

// streamClient is one websocket connection following a session.
type streamClient struct {
	id      string
	conn    *websocket.Conn
	cache   *session.Cache
	touch   func(id string) (*session.Cache, error)
	updates <-chan session.Snapshot
	errs    chan string
	done    chan struct{}
	logger  *common.Logger
}

func (s *Server) serveSessionStream(w http.ResponseWriter, r *http.Request, id string, cache *session.Cache) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Str("session", id).Msg("WebSocket upgrade failed")
		return
	}

	updates, unsubscribe := cache.Subscribe()
	c := &streamClient{
		id:      id,
		conn:    conn,
		cache:   cache,
		touch:   s.app.Sessions.Get,
		updates: updates,
		errs:    make(chan string, 8),
		done:    make(chan struct{}),
		logger:  s.logger,
	}
	s.logger.Debug().Str("session", id).Msg("Session stream connected")

	go c.writePump(unsubscribe)
	go c.readPump()
}

// writePump sends snapshots and command errors to the connection. It is the
// only goroutine writing to conn.
func (c *streamClient) writePump(unsubscribe func()) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		unsubscribe()
		c.conn.Close()
		c.logger.Debug().Str("session", c.id).Msg("Session stream disconnected")
	}()

	for {
		select {
		case snap, ok := <-c.updates:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				// Session closed or evicted.
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := c.conn.WriteJSON(streamMessage{Type: "snapshot", Session: &snap}); err != nil {
				return
			}

		case msg := <-c.errs:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteJSON(streamMessage{Type: "error", Error: msg}); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

// readPump applies client commands to the session and detects close.
func (c *streamClient) readPump() {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		close(c.done)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(wsMaxMessage)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		var cmd streamCommand
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug().Err(err).Str("session", c.id).Msg("Session stream read failed")
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))

		if _, err := c.touch(c.id); err != nil {
			c.report(err.Error())
			return
		}

		switch cmd.Action {
		case "select":
			if _, err := c.cache.Select(ctx, cmd.Symbol); err != nil {
				c.report(err.Error())
			}
		case "clear":
			c.cache.Clear()
		default:
			c.report("unknown action: " + cmd.Action)
		}
	}
}

func (c *streamClient) report(msg string) {
	select {
	case c.errs <- msg:
	default:
		c.logger.Warn().Str("session", c.id).Msg("Session stream error queue full, dropping message")
	}
}
