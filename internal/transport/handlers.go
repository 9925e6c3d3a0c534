package transport

import (
	"encoding/json"
	"time"

	"github.com/liaptui/server/internal/connreg"
	"github.com/liaptui/server/internal/phase"
	"github.com/liaptui/server/internal/round"
	"github.com/liaptui/server/internal/wire"
)

// roomJoinedPayload is the data field of a `room_joined` frame: the public
// seat table plus whatever phase/phaseData the room is already in (nil for
// a room still in the lobby).
type roomJoinedPayload struct {
	RoomID    string       `json:"roomId"`
	RoomName  string       `json:"roomName"`
	Players   []round.Seat `json:"players"`
	GameState interface{}  `json:"gameState"`
}

// handle decodes in.Data against the shape in.Event implies and dispatches
// to the matching operation. Decode failures and rejected operations are
// reported back to this connection only, never broadcast — spec.md §7's
// rule that validation/game errors are state-preserving and connection-
// local.
func (c *connection) handle(in inboundFrame) {
	switch in.Event {
	case wire.EventClientReady:
		c.handleClientReady(in.Data)
	case wire.EventCreateRoom:
		c.handleCreateRoom(in.Data)
	case wire.EventJoinRoom:
		c.handleJoinRoom(in.Data)
	case wire.EventLeaveRoom:
		c.handleLeaveRoom()
	case wire.EventAddBot:
		c.handleAddBot(in.Data)
	case wire.EventRemoveBot:
		c.handleRemoveBot(in.Data)
	case wire.EventStartGame:
		c.submitAction(phase.Action{Kind: wire.EventStartGame}, 0)
	case wire.EventAcceptRedeal:
		c.submitAction(phase.Action{Kind: wire.EventAcceptRedeal}, 0)
	case wire.EventDeclineRedeal:
		c.submitAction(phase.Action{Kind: wire.EventDeclineRedeal}, 0)
	case wire.EventDeclare:
		c.handleDeclare(in.Data)
	case wire.EventPlay:
		c.handlePlay(in.Data)
	case wire.EventPing:
		c.handlePing(in.Data)
	default:
		c.sendError(wire.NewError(wire.ErrInvalidMessageFormat, "unknown event "+in.Event, nil))
	}
}

func decode(data json.RawMessage, v interface{}) *wire.Error {
	if err := json.Unmarshal(data, v); err != nil {
		return wire.NewError(wire.ErrInvalidFieldType, "malformed payload: "+err.Error(), nil)
	}
	return nil
}

func (c *connection) handleClientReady(data json.RawMessage) {
	var p wire.ClientReadyPayload
	if err := decode(data, &p); err != nil {
		c.sendError(err)
		return
	}
	c.playerName = p.PlayerName

	if !p.Reconnecting {
		return
	}
	if p.RoomID == "" {
		c.sendError(wire.NewError(wire.ErrMissingRequiredField, "roomId is required to reconnect", nil))
		return
	}

	token := wire.SessionToken{RoomID: p.RoomID, Name: p.PlayerName, LastSeenSeq: p.LastSeenSeq}
	outcome, wErr := c.router.recovery.Reconnect(token, c.id)
	if wErr != nil {
		c.sendError(wErr)
		return
	}
	c.router.enterRoom(c)
	c.trySend(wire.NewFrame(wire.EventConnected, wire.ConnectedPayload{
		ConnectionID: string(c.id),
		RoomID:       p.RoomID,
		PlayerName:   p.PlayerName,
		Reconnected:  true,
	}))
	c.trySend(wire.NewFrame(wire.EventSyncResponse, outcome.SyncFrame))
}

func (c *connection) handleCreateRoom(data json.RawMessage) {
	var p wire.CreateRoomPayload
	if err := decode(data, &p); err != nil {
		c.sendError(err)
		return
	}
	r, err := c.router.rooms.CreateRoom(p.RoomName, p.PlayerName, p.IsPublic)
	if err != nil {
		c.sendError(wire.NewError(wire.ErrRoomFull, err.Error(), nil))
		return
	}
	c.playerName = p.PlayerName
	c.router.registry.Attach(c.id, r.ID, 0)
	c.router.enterRoom(c)

	c.trySend(wire.NewFrame(wire.EventRoomCreated, wire.RoomCreatedPayload{RoomID: r.ID, RoomName: r.Name}))
	c.sendRoomJoined(r.ID)
}

func (c *connection) handleJoinRoom(data json.RawMessage) {
	var p wire.JoinRoomPayload
	if err := decode(data, &p); err != nil {
		c.sendError(err)
		return
	}
	pos, err := c.router.rooms.JoinRoom(p.RoomID, p.PlayerName)
	if err != nil {
		c.sendError(wire.NewError(wire.ErrRoomNotFound, err.Error(), nil))
		return
	}
	c.playerName = p.PlayerName
	c.router.registry.Attach(c.id, p.RoomID, pos)
	c.router.enterRoom(c)

	c.sendRoomJoined(p.RoomID)
}

func (c *connection) sendRoomJoined(roomID string) {
	r, ok := c.router.rooms.Get(roomID)
	if !ok {
		return
	}
	players := make([]round.Seat, 0, len(r.Session.Seats))
	for _, seat := range r.Session.Seats {
		if seat.Name == "" {
			continue
		}
		players = append(players, *seat)
	}
	c.trySend(wire.NewFrame(wire.EventRoomJoined, roomJoinedPayload{
		RoomID:    r.ID,
		RoomName:  r.Name,
		Players:   players,
		GameState: r.Session.PhaseData,
	}))
}

func (c *connection) handleLeaveRoom() {
	entry, ok := c.router.registry.LookupByConnection(c.id)
	if !ok {
		c.sendError(wire.NewError(wire.ErrRoomNotFound, "not currently in a room", nil))
		return
	}
	if _, err := c.router.rooms.LeaveRoom(entry.RoomID, entry.Position); err != nil {
		c.sendError(wire.NewError(wire.ErrOutOfPhase, err.Error(), nil))
		return
	}
	c.router.registry.Detach(c.id)
	c.router.registry.DetachRoomPosition(entry.RoomID, entry.Position)
	c.router.mu.Lock()
	c.router.lobby[c.id] = c
	c.router.mu.Unlock()
}

func (c *connection) handleAddBot(data json.RawMessage) {
	var p wire.SeatPositionPayload
	if err := decode(data, &p); err != nil {
		c.sendError(err)
		return
	}
	entry, ok := c.router.registry.LookupByConnection(c.id)
	if !ok {
		c.sendError(wire.NewError(wire.ErrRoomNotFound, "not currently in a room", nil))
		return
	}
	if err := c.router.rooms.AddBot(entry.RoomID, entry.Position, p.Position); err != nil {
		c.sendError(wire.NewError(wire.ErrOutOfPhase, err.Error(), nil))
	}
}

func (c *connection) handleRemoveBot(data json.RawMessage) {
	var p wire.SeatPositionPayload
	if err := decode(data, &p); err != nil {
		c.sendError(err)
		return
	}
	entry, ok := c.router.registry.LookupByConnection(c.id)
	if !ok {
		c.sendError(wire.NewError(wire.ErrRoomNotFound, "not currently in a room", nil))
		return
	}
	if err := c.router.rooms.RemoveBot(entry.RoomID, entry.Position, p.Position); err != nil {
		c.sendError(wire.NewError(wire.ErrOutOfPhase, err.Error(), nil))
	}
}

func (c *connection) handleDeclare(data json.RawMessage) {
	var p wire.DeclarePayload
	if err := decode(data, &p); err != nil {
		c.sendError(err)
		return
	}
	c.submitAction(phase.Action{Kind: wire.EventDeclare, Value: p.Value}, 0)
}

func (c *connection) handlePlay(data json.RawMessage) {
	var p wire.PlayPayload
	if err := decode(data, &p); err != nil {
		c.sendError(err)
		return
	}
	entry, ok := c.router.registry.LookupByConnection(c.id)
	if !ok {
		c.sendError(wire.NewError(wire.ErrRoomNotFound, "not currently in a room", nil))
		return
	}
	r, ok := c.router.rooms.Get(entry.RoomID)
	if !ok {
		c.sendError(wire.NewError(wire.ErrRoomNotFound, "room no longer exists", nil))
		return
	}
	turnNumber := 0
	if r.Session.Current != nil {
		turnNumber = r.Session.Current.TurnNumber
	}
	c.submitActionFor(entry, phase.Action{Position: entry.Position, Kind: wire.EventPlay, PieceIDs: p.PieceIDs}, turnNumber)
}

func (c *connection) handlePing(data json.RawMessage) {
	var p wire.PingPayload
	if err := decode(data, &p); err != nil {
		c.sendError(err)
		return
	}
	c.router.registry.RecordHeartbeat(c.id)
	c.trySend(wire.NewFrame(wire.EventPong, wire.PongPayload{ClientTime: p.ClientTime, ServerTime: time.Now().UnixMilli()}))
}

// submitAction fills in Position from the connection's current seat binding
// before handing the action to its room's bus.
func (c *connection) submitAction(a phase.Action, turnNumber int) {
	entry, ok := c.router.registry.LookupByConnection(c.id)
	if !ok {
		c.sendError(wire.NewError(wire.ErrRoomNotFound, "not currently in a room", nil))
		return
	}
	a.Position = entry.Position
	c.submitActionFor(entry, a, turnNumber)
}

func (c *connection) submitActionFor(entry connreg.Entry, a phase.Action, turnNumber int) {
	r, ok := c.router.rooms.Get(entry.RoomID)
	if !ok {
		c.sendError(wire.NewError(wire.ErrRoomNotFound, "room no longer exists", nil))
		return
	}
	result := r.Bus.Submit(a, turnNumber)
	if !result.OK {
		c.sendError(result.Err)
	}
}
