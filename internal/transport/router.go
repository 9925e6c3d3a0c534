// Package transport implements the wire protocol's external edge: a
// gorilla/websocket Upgrader accepting one full-duplex JSON connection per
// client, and the Router that turns inbound frames into calls against
// internal/room, internal/recovery, and internal/connreg, and turns those
// packages' broadcasts back into outbound frames. It is the composition
// layer spec.md §6.1 describes as "external"; internal/wire stays pure
// protocol-format types so internal/room/internal/phase/internal/recovery
// can depend on its event vocabulary and error taxonomy without this
// package's own dependency on internal/room folding back into a cycle.
//
// Grounded on the teacher's pkg/server for the overall "one struct owns
// every live connection plus the domain manager it drives" shape, and on
// a websocket-gateway's register/upgrade/read-write-pump split for the
// transport mechanics themselves, since the teacher's own transport is
// gRPC streams rather than a duplex JSON socket.
package transport

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/decred/slog"
	"github.com/gorilla/websocket"
	"github.com/liaptui/server/internal/connreg"
	"github.com/liaptui/server/internal/recovery"
	"github.com/liaptui/server/internal/room"
	"github.com/liaptui/server/internal/wire"
)

// Config bounds the router's own behavior, distinct from room.Config's game
// defaults.
type Config struct {
	// ReadLimit bounds a single inbound frame's size in bytes.
	ReadLimit int64
	// ReadTimeout is the read deadline, renewed on every pong.
	ReadTimeout time.Duration
	// PingInterval is how often the server pings an idle connection.
	PingInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.ReadLimit == 0 {
		c.ReadLimit = 8192
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 60 * time.Second
	}
	if c.PingInterval == 0 {
		c.PingInterval = 25 * time.Second
	}
	return c
}

// Router accepts websocket connections, fans inbound frames out to the
// right handler, and implements broadcast.Publisher/room.LobbyPublisher so
// internal/room and internal/broadcast can reach every live connection
// without knowing this package exists.
type Router struct {
	cfg      Config
	log      slog.Logger
	upgrader websocket.Upgrader

	rooms    *room.Manager
	recovery *recovery.Service
	registry *connreg.Registry
	limiter  wire.RateLimiter

	mu      sync.RWMutex
	conns   map[connreg.ConnID]*connection
	lobby   map[connreg.ConnID]*connection
	nextSeq uint64
}

// New builds a Router sharing the same connreg.Registry instance the
// composition root's heartbeat sweep loop reads from. rooms and rec may be
// nil here; Bind supplies them once the room.Manager and recovery.Service
// exist.
func New(cfg Config, rooms *room.Manager, rec *recovery.Service, registry *connreg.Registry, limiter wire.RateLimiter, log slog.Logger) *Router {
	if limiter == nil {
		limiter = wire.NoopRateLimiter{}
	}
	return &Router{
		cfg:      cfg.withDefaults(),
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		rooms:    rooms,
		recovery: rec,
		registry: registry,
		limiter:  limiter,
		conns:    map[connreg.ConnID]*connection{},
		lobby:    map[connreg.ConnID]*connection{},
	}
}

// Bind attaches the room manager and recovery service this router dispatches
// into. Room and transport construct each other circularly — the manager's
// broadcast.Publisher/room.LobbyPublisher is this Router, and this Router's
// dispatch needs the Manager it publishes for — so New builds a Router with
// both left nil and a composition root calls Bind once they exist, rather
// than exposing rooms/recovery as public fields a caller could otherwise
// swap out mid-flight.
func (rt *Router) Bind(rooms *room.Manager, rec *recovery.Service) {
	rt.rooms = rooms
	rt.recovery = rec
}

// Rooms returns the room manager this router dispatches into, for the
// composition root's heartbeat/snapshot sweep loops.
func (rt *Router) Rooms() *room.Manager {
	return rt.rooms
}

// ServeHTTP upgrades the request to a websocket and runs the connection's
// read/write pumps until it closes.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := rt.upgrader.Upgrade(w, r, nil)
	if err != nil {
		rt.log.Warnf("transport: upgrade failed: %v", err)
		return
	}

	id := connreg.ConnID(rt.nextConnID())
	c := &connection{
		id:     id,
		ws:     conn,
		send:   make(chan wire.Frame, 64),
		router: rt,
		log:    rt.log,
	}

	rt.mu.Lock()
	rt.conns[id] = c
	rt.lobby[id] = c
	rt.mu.Unlock()

	rt.log.Infof("transport: connection %s opened", id)

	c.send <- wire.NewFrame(wire.EventConnected, wire.ConnectedPayload{ConnectionID: string(id)})

	go c.writePump(rt.cfg)
	c.readPump(rt.cfg)

	rt.dropConnection(c)
}

func (rt *Router) nextConnID() string {
	n := atomic.AddUint64(&rt.nextSeq, 1)
	return fmt.Sprintf("conn-%d", n)
}

// dropConnection runs once a connection's readPump returns (socket closed
// locally or remotely): it leaves the lobby index, detaches the registry
// entry, and — if the connection was bound to a seat — tells internal/room
// this is transport loss, not an explicit leave_room, so the seat is
// reserved for a reconnect rather than vacated.
func (rt *Router) dropConnection(c *connection) {
	rt.mu.Lock()
	delete(rt.conns, c.id)
	delete(rt.lobby, c.id)
	rt.mu.Unlock()
	close(c.send)

	entry, ok := rt.registry.LookupByConnection(c.id)
	if !ok {
		return
	}
	if err := rt.recovery.Disconnect(entry); err != nil {
		rt.log.Warnf("transport: disconnect handling for %s: %v", c.id, err)
	}
	rt.log.Infof("transport: connection %s closed (room %s seat %d)", c.id, entry.RoomID, entry.Position)
}

// SweepHeartbeats is called once per heartbeatInterval by the composition
// root's ticker loop. Connections past two missed beats are handed to
// internal/recovery as transport-loss disconnects.
func (rt *Router) SweepHeartbeats(interval time.Duration) {
	for _, entry := range rt.registry.SweepMissedHeartbeats(interval) {
		if err := rt.recovery.Disconnect(entry); err != nil {
			rt.log.Warnf("transport: heartbeat-sweep disconnect for %s: %v", entry.ConnID, err)
		}
	}
}

// --- broadcast.Publisher / room.LobbyPublisher -----------------------------

// PublishRoom fans event out to every connection currently attached to a
// seat in roomID.
func (rt *Router) PublishRoom(roomID string, event string, data interface{}, sequenceNumber int) {
	frame := wire.NewSequencedFrame(event, data, sequenceNumber)
	for _, connID := range rt.registry.ConnectionsInRoom(roomID) {
		rt.send(connID, frame)
	}
}

// PublishSeat sends event only to whichever single connection currently
// holds position in roomID (e.g. a private hand_updated frame).
func (rt *Router) PublishSeat(roomID string, position int, event string, data interface{}) {
	connID, ok := rt.registry.LookupByRoomPosition(roomID, position)
	if !ok {
		return
	}
	rt.send(connID, wire.NewFrame(event, data))
}

// PublishLobby fans a room_list_update frame out to every connection not
// currently attached to a room seat.
func (rt *Router) PublishLobby(rooms []room.Summary) {
	frame := wire.NewFrame(wire.EventRoomListUpdate, roomListPayload{Rooms: rooms})
	rt.mu.RLock()
	targets := make([]*connection, 0, len(rt.lobby))
	for _, c := range rt.lobby {
		targets = append(targets, c)
	}
	rt.mu.RUnlock()
	for _, c := range targets {
		c.trySend(frame)
	}
}

type roomListPayload struct {
	Rooms []room.Summary `json:"rooms"`
}

func (rt *Router) send(connID connreg.ConnID, frame wire.Frame) {
	rt.mu.RLock()
	c, ok := rt.conns[connID]
	rt.mu.RUnlock()
	if !ok {
		return
	}
	c.trySend(frame)
}

// enterRoom moves a connection out of the lobby index once it binds to a
// seat, so a subsequent PublishLobby no longer targets it.
func (rt *Router) enterRoom(c *connection) {
	rt.mu.Lock()
	delete(rt.lobby, c.id)
	rt.mu.Unlock()
}
