package main

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/liaptui/server/internal/wire"
)

// wsConn wraps a single websocket connection to a liaptuisrv endpoint.
// gorilla/websocket already delivers one JSON message per frame, so there
// is no framing concern of its own beyond translating to/from wire.Frame.
type wsConn struct {
	ws *websocket.Conn
}

// dial opens url (e.g. "ws://127.0.0.1:8080/ws") and returns a ready wsConn.
func dial(url string) (*wsConn, error) {
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("liaptuiclient: dial %s: %w", url, err)
	}
	return &wsConn{ws: ws}, nil
}

func (c *wsConn) send(frame wire.Frame) error {
	return c.ws.WriteJSON(frame)
}

// inFrame mirrors wire.Frame for inbound traffic, except Data stays a
// json.RawMessage: the server's payload shape varies with Event, and some
// of those shapes (roomJoinedPayload, roomListPayload) are unexported types
// in internal/transport this package can't import — so every inbound
// payload is decoded into this package's own mirror struct instead, keyed
// off Event, rather than wire.Frame's interface{} (which would only ever
// decode as a map[string]interface{}).
type inFrame struct {
	Event          string          `json:"event"`
	Data           json.RawMessage `json:"data"`
	SequenceNumber *int            `json:"sequenceNumber,omitempty"`
	ServerTime     *int64          `json:"serverTime,omitempty"`
}

func (c *wsConn) recv() (inFrame, error) {
	var frame inFrame
	err := c.ws.ReadJSON(&frame)
	return frame, err
}

func (c *wsConn) close() error {
	return c.ws.Close()
}
