// Package recovery implements reconnection/recovery (C10): validating a
// reconnecting client's session token against the room it claims, rebinding
// its connection, and deciding between a change-log replay and a full state
// sync, per spec.md §4.10. It is the one package that sits between
// internal/connreg (the connection<->seat mapping) and internal/room (the
// seat/game state itself), grounded on the teacher's reconnection handling
// in pkg/server/server.go (rebinding a stream to an existing account/table
// on a resumed session rather than allocating a new one).
package recovery

import (
	"github.com/decred/slog"
	"github.com/liaptui/server/internal/connreg"
	"github.com/liaptui/server/internal/room"
	"github.com/liaptui/server/internal/wire"
)

// Outcome is what the caller (internal/transport's Router) needs to finish
// a reconnect handshake: which seat was rebound, and either the missed
// change records to replay or a full state snapshot to send instead.
type Outcome struct {
	Position  int
	RoomName  string
	IsHost    bool
	SyncFrame wire.SyncResponsePayload
}

// Service resolves reconnect handshakes against the live room set and the
// connection registry.
type Service struct {
	manager  *room.Manager
	registry *connreg.Registry
	log      slog.Logger
}

// New builds a Service over the given Manager and Registry.
func New(manager *room.Manager, registry *connreg.Registry, log slog.Logger) *Service {
	return &Service{manager: manager, registry: registry, log: log}
}

// Reconnect validates token against the live rooms, rebinds connID to the
// claimed seat, flips it back off bot control, cancels any bot decision the
// driver had pending for it, and computes the replay-or-full-sync payload
// the caller sends back over connID. It does not itself write to the
// connection; internal/transport's Router does that.
func (s *Service) Reconnect(token wire.SessionToken, connID connreg.ConnID) (Outcome, *wire.Error) {
	r, ok := s.manager.Get(token.RoomID)
	if !ok {
		return Outcome{}, wire.NewError(wire.ErrRoomNotFound, "room not found", nil)
	}

	position, ok := seatByName(r, token.Name)
	if !ok {
		return Outcome{}, wire.NewError(wire.ErrAuthFailed, "no seat held by that name in this room", nil)
	}

	if err := s.manager.Reconnect(token.RoomID, position); err != nil {
		return Outcome{}, wire.NewError(wire.ErrAuthFailed, err.Error(), nil)
	}

	s.registry.Attach(connID, token.RoomID, position)
	s.registry.RecordLastSeenSeq(connID, token.LastSeenSeq)

	s.log.Infof("recovery: %s reconnected to room %s at seat %d (lastSeenSeq %d)", token.Name, token.RoomID, position, token.LastSeenSeq)

	return Outcome{
		Position:  position,
		RoomName:  r.Name,
		IsHost:    r.Host == position,
		SyncFrame: s.syncFrame(r, position, token.LastSeenSeq),
	}, nil
}

// syncFrame builds the sync_response payload: a replay when lastSeenSeq is
// still within the retained change log, a full snapshot (current phase,
// phaseData, and this seat's own private hand) otherwise.
func (s *Service) syncFrame(r *room.Room, position, lastSeenSeq int) wire.SyncResponsePayload {
	records, ok := r.Session.ReplayFrom(lastSeenSeq)
	if ok {
		return wire.SyncResponsePayload{
			CurrentSequence: r.Session.SequenceNumber,
			MissedEvents:    records,
		}
	}
	return wire.SyncResponsePayload{
		CurrentSequence: r.Session.SequenceNumber,
		FullState: &wire.FullState{
			Phase:     string(r.Session.Phase()),
			PhaseData: r.Session.PhaseData,
			Hand:      r.Session.Seats[position].Hand,
		},
	}
}

// Disconnect is called once C7's heartbeat sweep reports a connection past
// its missed-beat threshold: it detaches the connection and tells the Room
// manager to convert the seat to bot control. Explicit leave_room does not
// go through here — that's handled directly by room.Manager.LeaveRoom,
// since a graceful leave (unlike transport loss) removes the seat rather
// than reserving it for a reconnect.
func (s *Service) Disconnect(entry connreg.Entry) error {
	s.registry.Detach(entry.ConnID)
	return s.manager.MarkDisconnected(entry.RoomID, entry.Position)
}

func seatByName(r *room.Room, name string) (int, bool) {
	for i, seat := range r.Session.Seats {
		if seat.Name == name {
			return i, true
		}
	}
	return 0, false
}
