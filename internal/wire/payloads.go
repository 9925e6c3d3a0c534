package wire

import (
	"github.com/liaptui/server/internal/broadcast"
	"github.com/liaptui/server/internal/piece"
)

// CreateRoomPayload is the data field of a `create_room` frame.
type CreateRoomPayload struct {
	RoomName   string `json:"roomName"`
	PlayerName string `json:"playerName"`
	IsPublic   bool   `json:"isPublic"`
}

// JoinRoomPayload is the data field of a `join_room` frame. RoomID is the
// room code from §6.2; a lobby connection with no code is rejected, never
// matched by name.
type JoinRoomPayload struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
}

// DeclarePayload is the data field of a `declare` frame.
type DeclarePayload struct {
	Value int `json:"value"`
}

// PlayPayload is the data field of a `play` frame.
type PlayPayload struct {
	PieceIDs []string `json:"pieceIds"`
}

// SeatPositionPayload is the data field of both `add_bot` and `remove_bot`
// frames.
type SeatPositionPayload struct {
	Position int `json:"position"`
}

// PingPayload is the data field of a `ping` frame.
type PingPayload struct {
	ClientTime int64 `json:"clientTime"`
}

// PongPayload is the data field of a `pong` frame.
type PongPayload struct {
	ClientTime int64 `json:"clientTime"`
	ServerTime int64 `json:"serverTime"`
}

// ClientReadyPayload is the data field of a `client_ready` frame: the one
// message that both completes a fresh handshake (Reconnecting=false) and
// carries a reconnect's session token fields (Reconnecting=true, RoomID and
// LastSeenSeq populated).
type ClientReadyPayload struct {
	PlayerName   string `json:"playerName"`
	Reconnecting bool   `json:"reconnecting"`
	RoomID       string `json:"roomId,omitempty"`
	LastSeenSeq  int    `json:"lastSeenSeq,omitempty"`
}

// RoomCreatedPayload is the data field of a `room_created` frame.
type RoomCreatedPayload struct {
	RoomID   string `json:"roomId"`
	RoomName string `json:"roomName"`
}

// SessionToken is the handshake credential a reconnecting client presents
// (spec.md §6.1's client_ready{playerName, reconnecting, lastSeenSeq}): the
// room and seat it claims, and the last sequence number it successfully
// applied, so the server can decide between a change-log replay and a full
// state sync.
type SessionToken struct {
	RoomID      string `json:"roomId"`
	Name        string `json:"playerName"`
	LastSeenSeq int    `json:"lastSeenSeq"`
}

// ConnectedPayload is the data field of a `connected` frame, sent once a
// handshake (fresh or reconnecting) completes.
type ConnectedPayload struct {
	ConnectionID string `json:"connectionId"`
	RoomID       string `json:"roomId,omitempty"`
	PlayerName   string `json:"playerName,omitempty"`
	Reconnected  bool   `json:"reconnected"`
}

// PlayerJoinedPayload is the data field of a `player_joined` frame.
type PlayerJoinedPayload struct {
	PlayerName string `json:"playerName"`
	Position   int    `json:"position"`
	IsBot      bool   `json:"isBot"`
}

// PlayerLeftPayload is the data field of a `player_left` frame. NewHost is
// only set when the departure forced a host transfer.
type PlayerLeftPayload struct {
	PlayerName string `json:"playerName"`
	NewHost    string `json:"newHost,omitempty"`
}

// PlayerDisconnectedPayload is the data field of a `player_disconnected`
// frame: emitted once a seat's connection is declared lost (two missed
// heartbeats) and the bot driver has taken it over.
type PlayerDisconnectedPayload struct {
	Player         string `json:"player"`
	AIActivated    bool   `json:"aiActivated"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

// PlayerReconnectedPayload is the data field of a `player_reconnected`
// frame.
type PlayerReconnectedPayload struct {
	Player string `json:"player"`
}

// FullState is the fullState field of a sync_response frame, sent when the
// requested lastSeenSeq predates the retained change-log window: the
// current phase, its phaseData, and the reconnecting seat's own private
// hand (never another seat's).
type FullState struct {
	Phase     string        `json:"phase"`
	PhaseData interface{}   `json:"phaseData"`
	Hand      []piece.Piece `json:"hand"`
}

// SyncResponsePayload is the data field of a `sync_response` frame.
// Exactly one of MissedEvents or FullState is populated: a replay when the
// client's lastSeenSeq still falls within the retained change log, a full
// snapshot when it doesn't.
type SyncResponsePayload struct {
	CurrentSequence int                       `json:"currentSequence"`
	MissedEvents    []broadcast.ChangeRecord  `json:"missedEvents,omitempty"`
	FullState       *FullState                `json:"fullState,omitempty"`
}
