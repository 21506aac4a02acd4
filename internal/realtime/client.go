package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendBuffer     = 64

	joinShopRoom = "join_shop_room"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// JoinAuthorizer decides whether the connected principal may join a shop.
type JoinAuthorizer func(shopID int64) error

type joinRequest struct {
	Event  string `json:"event"`
	ShopID int64  `json:"shop_id"`
}

// Client is one websocket session. Outgoing messages are buffered; a slow
// reader loses events instead of stalling the hub.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *Client) Send(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		c.hub.Unregister(c.id)
		_ = c.conn.Close()
		slog.Info("realtime session closed", "session_id", c.id)
	})
}

// ServeWS upgrades the request and runs the session until the peer leaves.
func ServeWS(hub *Hub, authorize JoinAuthorizer, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		id:   uuid.NewString(),
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	hub.Register(client.id, client)
	slog.Info("realtime session opened", "session_id", client.id, "remote", r.RemoteAddr)

	go client.writePump()
	go client.readPump(authorize)
}

func (c *Client) readPump(authorize JoinAuthorizer) {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("realtime session read failed", "session_id", c.id, "error", err)
			}
			return
		}

		var req joinRequest
		if err := json.Unmarshal(raw, &req); err != nil || req.Event != joinShopRoom || req.ShopID == 0 {
			c.reply(0, EventError, map[string]string{"error": "expected join_shop_room with shop_id"})
			continue
		}
		if authorize != nil {
			if err := authorize(req.ShopID); err != nil {
				c.reply(req.ShopID, EventError, map[string]string{"error": err.Error()})
				continue
			}
		}
		if err := c.hub.Subscribe(c.id, req.ShopID); err != nil {
			slog.Error("failed to join shop channel", "session_id", c.id, "shop_id", req.ShopID, "error", err)
			return
		}
		slog.Info("session joined shop channel", "session_id", c.id, "shop_id", req.ShopID)
		c.reply(req.ShopID, EventJoined, map[string]int64{"shop_id": req.ShopID})
	}
}

func (c *Client) reply(shopID int64, event string, payload any) {
	msg, err := Encode(shopID, event, payload)
	if err != nil {
		return
	}
	c.Send(msg)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Warn("realtime session write failed", "session_id", c.id, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
