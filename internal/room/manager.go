package room

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/decred/slog"
	"github.com/liaptui/server/internal/actionbus"
	"github.com/liaptui/server/internal/bot"
	"github.com/liaptui/server/internal/broadcast"
	"github.com/liaptui/server/internal/phase"
	"github.com/liaptui/server/internal/wire"
)

// LobbyPublisher fans a room_list_update frame out to every connection
// subscribed to the lobby channel, separate from any one room's seats.
type LobbyPublisher interface {
	PublishLobby(rooms []Summary)
}

// Manager owns every active room and the lobby index over the public ones.
// Its own state (the room map, join order, host) is guarded by mu; each
// room's game state is guarded instead by that room's single-worker action
// bus, never by mu.
type Manager struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	rng   *rand.Rand

	publisher      broadcast.Publisher
	lobbyPublisher LobbyPublisher
	backend        *slog.Backend
	log            slog.Logger

	maxRooms     int
	winningScore int
	maxRounds    int
	seed         int64

	botThinkDelay [2]time.Duration

	// actionNonce gives every Manager-originated synthetic action (join,
	// leave, add/remove bot, disconnect, reconnect) its own turnNumber, so
	// the bus's resubmission-dedupe cache — built for a client retrying
	// the identical declare/play within a round's turnNumber — never
	// mistakes two distinct room-management calls for the same resend.
	actionNonce int
}

func (m *Manager) nextNonce() int {
	m.actionNonce++
	return m.actionNonce
}

// Config bundles the game-session defaults every new room is created with.
type Config struct {
	MaxRooms     int
	WinningScore int
	MaxRounds    int
	Seed         int64

	// BotThinkDelay bounds the randomized pacing delay the bot driver
	// waits before submitting a computed action; zero value defaults to
	// a 400-1200ms window.
	BotThinkDelay [2]time.Duration
}

// NewManager builds a Manager with no rooms yet. backend mints the
// per-subsystem loggers each room's session and action bus use.
func NewManager(cfg Config, publisher broadcast.Publisher, lobbyPublisher LobbyPublisher, backend *slog.Backend) *Manager {
	botThinkDelay := cfg.BotThinkDelay
	if botThinkDelay[1] == 0 {
		botThinkDelay = [2]time.Duration{400 * time.Millisecond, 1200 * time.Millisecond}
	}
	return &Manager{
		rooms:          map[string]*Room{},
		rng:            rand.New(rand.NewSource(cfg.Seed)),
		publisher:      publisher,
		lobbyPublisher: lobbyPublisher,
		backend:        backend,
		log:            backend.Logger("ROOM"),
		maxRooms:       cfg.MaxRooms,
		winningScore:   cfg.WinningScore,
		maxRounds:      cfg.MaxRounds,
		seed:           cfg.Seed,
		botThinkDelay:  botThinkDelay,
	}
}

// CreateRoom creates a new room hosted by hostName at position 0 and starts
// its action bus. The room code is regenerated on collision.
func (m *Manager) CreateRoom(roomName, hostName string, isPublic bool) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.rooms) >= m.maxRooms {
		return nil, fmt.Errorf("room: at capacity (%d rooms)", m.maxRooms)
	}

	var code string
	for {
		code = generateCode(m.rng)
		if _, exists := m.rooms[code]; !exists {
			break
		}
	}

	driver := bot.NewDriver(bot.NewDefaultStrategy(), m.publisher, m.botThinkDelay, m.backend.Logger("BOT"))
	session := phase.NewGameSession(code, 0, m.winningScore, m.maxRounds, m.seed, driver, m.backend.Logger("ROOM"))
	// Safe to write directly: the bus isn't started yet and no other
	// goroutine holds a reference to session until this room is inserted
	// into m.rooms below.
	session.Seats[0].Name = hostName

	r := &Room{
		ID:        code,
		Name:      roomName,
		IsPublic:  isPublic,
		Host:      0,
		Status:    StatusWaiting,
		CreatedAt: time.Now(),
		Session:   session,
		Bot:       driver,
		joinOrder: []int{0},
	}
	r.Bus = actionbus.New(session, 64, m.backend.Logger("BUS"))
	driver.BindSession(session)
	driver.BindBus(r.Bus)
	r.Bus.Start()

	m.rooms[code] = r
	m.publishLobbyLocked()
	return r, nil
}

// JoinRoom assigns playerName the lowest-index empty seat. The seat write
// itself happens on the room's bus worker (Submit), not here under mu, so
// it can never race a live round's own action dispatch.
func (m *Manager) JoinRoom(roomID, playerName string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return 0, fmt.Errorf("room: %s not found", roomID)
	}

	res := r.Bus.Submit(phase.Action{Kind: wire.EventJoinRoom, PlayerName: playerName}, m.nextNonce())
	if !res.OK {
		return 0, fmt.Errorf("room: %s", res.Err.Message)
	}
	pos := res.Room.Position
	r.joinOrder = append(r.joinOrder, pos)
	m.publishRoomLocked(roomID, wire.EventPlayerJoined, wire.PlayerJoinedPayload{
		PlayerName: playerName,
		Position:   pos,
		IsBot:      false,
	})
	m.publishLobbyLocked()
	return pos, nil
}

// LeaveRoom removes playerName's seat. If the game is in progress the seat
// is handed to a bot instead of emptied, so the remaining humans aren't
// stalled; otherwise the seat opens for reuse. Returns whether the room
// should now be closed. The seat mutation and host-transfer decision both
// happen inside GameSession.leaveRoom on the bus worker, so they see a
// consistent Seats/Host snapshot no concurrent round action can tear.
func (m *Manager) LeaveRoom(roomID string, position int) (closed bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return false, fmt.Errorf("room: %s not found", roomID)
	}
	playerName := r.Session.Seats[position].Name

	res := r.Bus.Submit(phase.Action{Position: position, Kind: wire.EventLeaveRoom, JoinOrder: r.joinOrder}, m.nextNonce())
	if !res.OK {
		return false, fmt.Errorf("room: %s", res.Err.Message)
	}

	if res.Room.NewHost >= 0 {
		r.Host = res.Room.NewHost
	}
	if res.Room.Vacated {
		r.removeFromJoinOrder(position)
	}

	m.publishRoomLocked(roomID, wire.EventPlayerLeft, wire.PlayerLeftPayload{
		PlayerName: playerName,
		NewHost:    res.Room.NewHostName,
	})

	if res.Room.Closed {
		m.closeRoomLocked(roomID)
		return true, nil
	}

	m.publishLobbyLocked()
	return false, nil
}

// MarkDisconnected converts a seat to bot control after C7 reports two
// missed heartbeats (transport loss, as distinct from an explicit
// leave_room). Unlike LeaveRoom, the seat's joinOrder slot is kept: the
// human may still reconnect and reclaim it.
func (m *Manager) MarkDisconnected(roomID string, position int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return fmt.Errorf("room: %s not found", roomID)
	}
	playerName := r.Session.Seats[position].Name

	res := r.Bus.Submit(phase.Action{Position: position, Kind: phase.ActionMarkDisconnected}, m.nextNonce())
	if !res.OK {
		return fmt.Errorf("room: %s", res.Err.Message)
	}

	m.publishRoomLocked(roomID, wire.EventPlayerDisconnected, wire.PlayerDisconnectedPayload{
		Player:         playerName,
		AIActivated:    true,
		TimeoutSeconds: 0,
	})
	r.Bot.Nudge()
	return nil
}

// Reconnect rebinds a disconnected human's seat on a successful handshake:
// flips isBot back off (only if this wasn't an original add_bot seat),
// cancels any bot decision the driver had pending for that seat, and
// publishes player_reconnected. Called by internal/recovery after it has
// located the seat and validated the session token.
func (m *Manager) Reconnect(roomID string, position int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return fmt.Errorf("room: %s not found", roomID)
	}
	playerName := r.Session.Seats[position].Name

	res := r.Bus.Submit(phase.Action{Position: position, Kind: phase.ActionReconnect}, m.nextNonce())
	if !res.OK {
		return fmt.Errorf("room: %s", res.Err.Message)
	}

	r.Bot.CancelPending(position)
	m.publishRoomLocked(roomID, wire.EventPlayerReconnected, wire.PlayerReconnectedPayload{
		Player: playerName,
	})
	return nil
}

func (m *Manager) publishRoomLocked(roomID, event string, data interface{}) {
	m.publisher.PublishRoom(roomID, event, data, 0)
}

func (r *Room) removeFromJoinOrder(position int) {
	out := r.joinOrder[:0]
	for _, p := range r.joinOrder {
		if p != position {
			out = append(out, p)
		}
	}
	r.joinOrder = out
}

// AddBot seats a bot at position; only the room's host may call this.
func (m *Manager) AddBot(roomID string, requester, position int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return fmt.Errorf("room: %s not found", roomID)
	}
	if requester != r.Host {
		return fmt.Errorf("room: only the host may add a bot")
	}

	res := r.Bus.Submit(phase.Action{Position: requester, Kind: wire.EventAddBot, TargetPosition: position}, m.nextNonce())
	if !res.OK {
		return fmt.Errorf("room: %s", res.Err.Message)
	}
	r.joinOrder = append(r.joinOrder, position)
	m.publishLobbyLocked()
	return nil
}

// RemoveBot vacates a bot-held seat; only the room's host may call this.
func (m *Manager) RemoveBot(roomID string, requester, position int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return fmt.Errorf("room: %s not found", roomID)
	}
	if requester != r.Host {
		return fmt.Errorf("room: only the host may remove a bot")
	}

	res := r.Bus.Submit(phase.Action{Position: requester, Kind: wire.EventRemoveBot, TargetPosition: position}, m.nextNonce())
	if !res.OK {
		return fmt.Errorf("room: %s", res.Err.Message)
	}
	r.removeFromJoinOrder(position)
	m.publishLobbyLocked()
	return nil
}

// CloseRoom tears a room down explicitly (abandonment) or via LeaveRoom's
// automatic check.
func (m *Manager) CloseRoom(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeRoomLocked(roomID)
}

func (m *Manager) closeRoomLocked(roomID string) {
	r, ok := m.rooms[roomID]
	if !ok {
		return
	}
	r.Bus.Stop()
	r.Bot.Stop()
	r.Status = StatusAbandoned
	delete(m.rooms, roomID)
	m.publishLobbyLocked()
}

// Get returns a room by code.
func (m *Manager) Get(roomID string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[roomID]
	return r, ok
}

// RoomIDs lists every currently active room, public or private — for the
// composition root's periodic snapshot sweep.
func (m *Manager) RoomIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	return ids
}

// PublicRooms lists the public lobby index.
func (m *Manager) PublicRooms() []Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.publicRoomsLocked()
}

func (m *Manager) publicRoomsLocked() []Summary {
	var out []Summary
	for _, r := range m.rooms {
		if r.IsPublic {
			out = append(out, r.Summary())
		}
	}
	return out
}

func (m *Manager) publishLobbyLocked() {
	if m.lobbyPublisher == nil {
		return
	}
	m.lobbyPublisher.PublishLobby(m.publicRoomsLocked())
}
