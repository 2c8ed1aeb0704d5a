package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024

	// Per connection frame budget, on top of the per event limiter in the
	// room manager.
	framesPerSecond = 20
	frameBurst      = 40
)

// Client is one websocket connection. Writes only ever happen on the
// writePump goroutine.
type Client struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
}

func newClient(id string, conn *websocket.Conn) *Client {
	return &Client{
		id:      id,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		limiter: rate.NewLimiter(framesPerSecond, frameBurst),
	}
}

// enqueue never blocks. A client that cannot keep up loses the frame.
func (c *Client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		log.Warn().Str("conn", c.id).Msg("[enqueue] send queue full, frame dropped")
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("conn", c.id).Msg("[writePump] write failed")
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

// readPump hands every frame within budget to handle until the connection
// fails.
func (c *Client) readPump(handle func(raw []byte)) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("conn", c.id).Msg("[readPump] read error")
			}
			return
		}
		if !c.limiter.Allow() {
			log.Debug().Str("conn", c.id).Msg("[readPump] frame over budget, dropped")
			continue
		}
		handle(raw)
	}
}
