package socket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/SuyogBora/picode-server/internal/model"
)

// Frame is the JSON envelope of every server to client message.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Client is a websocket-backed Conn.  All writes go through a single
// writer goroutine fed by a bounded queue, so Emit never blocks on a slow
// peer: when the queue is full the event is dropped for this client.
type Client struct {
	id        string
	principal *model.Principal
	ws        *websocket.Conn
	logger    *zap.Logger

	writeTimeout  time.Duration
	probeInterval time.Duration

	mu     sync.Mutex
	send   chan []byte
	closed bool

	done chan struct{} // closed when the writer exits
}

func newClient(ws *websocket.Conn, p *model.Principal, sendBuffer int, writeTimeout, probeInterval time.Duration, logger *zap.Logger) *Client {
	if sendBuffer < 1 {
		sendBuffer = 1
	}
	return &Client{
		id:            uuid.NewString(),
		principal:     p,
		ws:            ws,
		logger:        logger,
		writeTimeout:  writeTimeout,
		probeInterval: probeInterval,
		send:          make(chan []byte, sendBuffer),
		done:          make(chan struct{}),
	}
}

func (c *Client) ID() string                  { return c.id }
func (c *Client) Principal() *model.Principal { return c.principal }

// Emit encodes the event and queues it for the writer.
func (c *Client) Emit(event string, payload any) error {
	msg, err := json.Marshal(Frame{Event: event, Data: payload})
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close stops accepting events.  The writer flushes what is queued, sends
// a normal close frame and releases the socket.  Close is idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
	return nil
}

// kick drops the underlying socket immediately.  The read loop fails,
// which runs the regular disconnect path.
func (c *Client) kick() {
	_ = c.ws.Close()
}

// writePump owns every write on the socket.
func (c *Client) writePump() {
	probe := time.NewTicker(c.probeInterval)
	defer func() {
		probe.Stop()
		_ = c.ws.Close()
		close(c.done)
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Debug("socket write failed", zap.String("conn_id", c.id), zap.Error(err))
				return
			}
		case <-probe.C:
			deadline := time.Now().Add(c.writeTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logger.Debug("socket probe failed", zap.String("conn_id", c.id), zap.Error(err))
				return
			}
		}
	}
}

// readPump consumes inbound frames until the peer goes away.  Clients are
// not expected to send anything after the handshake; frames are read only
// to observe pongs and close frames.
func (c *Client) readPump(pongTimeout time.Duration) {
	_ = c.ws.SetReadDeadline(time.Now().Add(pongTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("socket read failed", zap.String("conn_id", c.id), zap.Error(err))
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongTimeout))
	}
}
