package transport

import (
	"encoding/json"
	"time"

	"github.com/decred/slog"
	"github.com/gorilla/websocket"
	"github.com/liaptui/server/internal/connreg"
	"github.com/liaptui/server/internal/wire"
)

// connection is one upgraded websocket socket and the room seat (if any) it
// is currently bound to. Reads and the single writer goroutine never touch
// the same field without send's channel in between, mirroring the
// read-pump/write-pump split every websocket gateway in the pack uses.
type connection struct {
	id     connreg.ConnID
	ws     *websocket.Conn
	send   chan wire.Frame
	router *Router
	log    slog.Logger

	playerName string
}

// inboundFrame mirrors wire.Frame but keeps Data raw until the handler
// knows which payload type to decode it into.
type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (c *connection) readPump(cfg Config) {
	defer c.ws.Close()

	c.ws.SetReadLimit(cfg.ReadLimit)
	c.ws.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		c.router.registry.RecordHeartbeat(c.id)
		return nil
	})

	for {
		var in inboundFrame
		if err := c.ws.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warnf("transport: %s read error: %v", c.id, err)
			}
			return
		}
		if !c.router.limiter.Allow(string(c.id), in.Event) {
			continue
		}
		c.handle(in)
	}
}

func (c *connection) writePump(cfg Config) {
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteJSON(frame); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// trySend drops the frame instead of blocking a full send buffer; a
// connection that can't keep up gets disconnected by its own stalled
// writePump rather than stalling the room's broadcast fan-out.
func (c *connection) trySend(frame wire.Frame) {
	select {
	case c.send <- frame:
	default:
		c.log.Warnf("transport: dropping frame %s to %s: send buffer full", frame.Event, c.id)
	}
}

func (c *connection) sendError(err *wire.Error) {
	c.trySend(err.Frame())
}
