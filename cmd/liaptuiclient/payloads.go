package main

import (
	"github.com/liaptui/server/internal/broadcast"
	"github.com/liaptui/server/internal/phase"
	"github.com/liaptui/server/internal/piece"
	"github.com/liaptui/server/internal/room"
	"github.com/liaptui/server/internal/wire"
)

// roomJoinedPayload mirrors internal/transport's unexported roomJoinedPayload
// (it publishes this exact JSON shape over the wire, but the Go type itself
// isn't exported for a client to import).
type roomJoinedPayload struct {
	RoomID    string      `json:"roomId"`
	RoomName  string      `json:"roomName"`
	Players   []seatJSON  `json:"players"`
	GameState interface{} `json:"gameState"`
}

// seatJSON mirrors internal/round.Seat's public JSON shape, hand included —
// the server only ever sends a full Seat (hand and all) to the seat's own
// owner via room_joined/sync_response; every broadcast seat view uses
// phase.SeatView instead, which omits Hand.
type seatJSON struct {
	Position      int           `json:"position"`
	Name          string        `json:"name"`
	IsBot         bool          `json:"isBot"`
	IsOriginalBot bool          `json:"isOriginalBot"`
	Score         int           `json:"score"`
	Hand          []piece.Piece `json:"hand"`
	Declared      *int          `json:"declared"`
	CapturedPiles int           `json:"capturedPiles"`
}

// roomListPayload mirrors internal/transport's unexported roomListPayload.
type roomListPayload struct {
	Rooms []room.Summary `json:"rooms"`
}

type phaseChangePayload = broadcast.PhaseChangePayload
type handUpdatedPayload = broadcast.HandUpdatedPayload
type phaseData = phase.PhaseData
type seatView = phase.SeatView

type connectedPayload = wire.ConnectedPayload
type roomCreatedPayload = wire.RoomCreatedPayload
type playerJoinedPayload = wire.PlayerJoinedPayload
type playerLeftPayload = wire.PlayerLeftPayload
type playerDisconnectedPayload = wire.PlayerDisconnectedPayload
type playerReconnectedPayload = wire.PlayerReconnectedPayload
type syncResponsePayload = wire.SyncResponsePayload
