package phase

import (
	"fmt"

	"github.com/liaptui/server/internal/wire"
)

// Room-management action kinds. Unlike declare/play these aren't gated by
// any single phase's Accepts: a player can leave, a host can swap a bot in
// or out, or a seat can be marked disconnected/reconnected regardless of
// what phase the round is in. Dispatch routes them straight to
// handleRoomAction instead of through the active state's HandleAction.
const (
	ActionMarkDisconnected = "mark_disconnected"
	ActionReconnect        = "reconnect"
)

// RoomActionInfo carries the extra result data a room-management action
// computes while still holding the bus's single-writer lock. Callers must
// not re-read gs.Seats after Submit returns to get this data themselves:
// by then the worker may already be mutating them for the next queued
// action.
type RoomActionInfo struct {
	Position    int    // join_room: the seat assigned; add_bot/remove_bot/mark_disconnected/reconnect: the seat acted on
	NewHost     int    // leave_room only: -1 if the host didn't change, else the seat promoted to host
	NewHostName string // leave_room only: the promoted seat's name, read under the same lock as NewHost
	Vacated     bool   // leave_room only: true if the seat was fully emptied rather than handed to a bot
	Closed      bool   // leave_room only: true once the room has no humans left and no game in progress
}

func isRoomAction(kind string) bool {
	switch kind {
	case wire.EventJoinRoom, wire.EventLeaveRoom, wire.EventAddBot, wire.EventRemoveBot, ActionMarkDisconnected, ActionReconnect:
		return true
	}
	return false
}

// handleRoomAction mutates gs.Seats/gs.Host for one room-management action,
// the same fields a live round's declare/play actions mutate through the
// bus's single worker, and nothing else: join order, lobby publication,
// and room teardown stay Room/Manager's job, driven off the RoomActionInfo
// this returns.
func (gs *GameSession) handleRoomAction(a Action) ActionResult {
	switch a.Kind {
	case wire.EventJoinRoom:
		return gs.joinRoom(a.PlayerName)
	case wire.EventLeaveRoom:
		return gs.leaveRoom(a.Position, a.JoinOrder)
	case wire.EventAddBot:
		return gs.addBot(a.TargetPosition)
	case wire.EventRemoveBot:
		return gs.removeBot(a.TargetPosition)
	case ActionMarkDisconnected:
		return gs.markDisconnected(a.Position)
	case ActionReconnect:
		return gs.reconnect(a.Position)
	default:
		return fail(wire.NewError(wire.ErrInvalidMessageFormat, "unknown room action "+a.Kind, nil))
	}
}

func (gs *GameSession) hasName(name string) bool {
	for _, s := range gs.Seats {
		if s.Name == name {
			return true
		}
	}
	return false
}

func (gs *GameSession) lowestEmptySeat() int {
	for i, s := range gs.Seats {
		if s.Name == "" {
			return i
		}
	}
	return -1
}

func (gs *GameSession) gameInProgress() bool {
	switch gs.Phase() {
	case Waiting, GameOver:
		return false
	default:
		return true
	}
}

func (gs *GameSession) humanCount() int {
	n := 0
	for _, s := range gs.Seats {
		if s.Name != "" && !s.IsBot {
			n++
		}
	}
	return n
}

func (gs *GameSession) joinRoom(playerName string) ActionResult {
	if gs.hasName(playerName) {
		return fail(wire.NewError(wire.ErrAlreadyInRoom, "name "+playerName+" already taken in this room", nil))
	}
	pos := gs.lowestEmptySeat()
	if pos < 0 {
		return fail(wire.NewError(wire.ErrRoomFull, "room is full", nil))
	}
	gs.Seats[pos].Name = playerName
	res := ok()
	res.Room = &RoomActionInfo{Position: pos, NewHost: -1}
	return res
}

// leaveRoom empties or bot-takes-over the seat at position, depending on
// whether a round is live, and — if that seat held the host — promotes the
// earliest-joined remaining human per joinOrder.
func (gs *GameSession) leaveRoom(position int, joinOrder []int) ActionResult {
	seat := gs.Seats[position]
	if seat.Name == "" {
		return fail(wire.NewError(wire.ErrOutOfPhase, fmt.Sprintf("position %d is already empty", position), nil))
	}
	oldHost := gs.Host
	vacated := !gs.gameInProgress()

	if !vacated {
		seat.IsBot = true
		seat.IsOriginalBot = false
	} else {
		seat.Name = ""
		seat.IsBot = false
		seat.IsOriginalBot = false
		seat.Declared = nil
		seat.CapturedPiles = 0
		seat.Hand = nil
	}

	if gs.Seats[gs.Host].Name == "" {
		for _, p := range joinOrder {
			if p == position {
				continue
			}
			if gs.Seats[p].Name != "" {
				gs.Host = p
				break
			}
		}
	}

	newHost, newHostName := -1, ""
	if oldHost == position && gs.Host != oldHost {
		newHost = gs.Host
		newHostName = gs.Seats[gs.Host].Name
	}

	res := ok()
	res.Room = &RoomActionInfo{
		Position:    position,
		NewHost:     newHost,
		NewHostName: newHostName,
		Vacated:     vacated,
		Closed:      gs.humanCount() == 0 && !gs.gameInProgress(),
	}
	return res
}

func (gs *GameSession) addBot(target int) ActionResult {
	seat := gs.Seats[target]
	if seat.Name != "" {
		return fail(wire.NewError(wire.ErrOutOfPhase, fmt.Sprintf("position %d is occupied", target), nil))
	}
	seat.Name = fmt.Sprintf("Bot-%d", target)
	seat.IsBot = true
	seat.IsOriginalBot = true
	res := ok()
	res.Room = &RoomActionInfo{Position: target, NewHost: -1}
	return res
}

func (gs *GameSession) removeBot(target int) ActionResult {
	seat := gs.Seats[target]
	if !seat.IsBot {
		return fail(wire.NewError(wire.ErrOutOfPhase, fmt.Sprintf("position %d is not a bot", target), nil))
	}
	seat.Name = ""
	seat.IsBot = false
	seat.IsOriginalBot = false
	res := ok()
	res.Room = &RoomActionInfo{Position: target, NewHost: -1}
	return res
}

func (gs *GameSession) markDisconnected(position int) ActionResult {
	seat := gs.Seats[position]
	if seat.Name == "" || seat.IsBot {
		return fail(wire.NewError(wire.ErrOutOfPhase, fmt.Sprintf("position %d has no connected human to disconnect", position), nil))
	}
	seat.IsBot = true
	res := ok()
	res.Room = &RoomActionInfo{Position: position, NewHost: -1}
	return res
}

func (gs *GameSession) reconnect(position int) ActionResult {
	seat := gs.Seats[position]
	if seat.Name == "" {
		return fail(wire.NewError(wire.ErrOutOfPhase, fmt.Sprintf("position %d is empty", position), nil))
	}
	if !seat.IsOriginalBot {
		seat.IsBot = false
	}
	res := ok()
	res.Room = &RoomActionInfo{Position: position, NewHost: -1}
	return res
}
