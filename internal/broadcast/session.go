// Package broadcast implements the state-update-and-broadcast primitive
// (C6): the single indivisible path by which a room's phase data is
// mutated, logged, sequenced, and fanned out to every connected seat. It is
// the hard invariant of the system — there is no other writable path into a
// room's state.
package broadcast

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/decred/slog"
)

// changeLogCap bounds how many change records a room retains for
// reconnection replay. Beyond this window a reconnecting client gets a full
// state sync instead of a replay.
const changeLogCap = 500

// ChangeRecord is one append-only entry in a room's change log: the delta
// that was applied, why, a digest of the state before the delta, and the
// sequence number the delta produced.
type ChangeRecord struct {
	SequenceNumber int         `json:"sequenceNumber"`
	Reason         string      `json:"reason"`
	Delta          interface{} `json:"delta"`
	PriorDigest    string      `json:"priorDigest"`
}

// Publisher fans a frame out to a room's connected seats. Implemented by
// internal/transport's Router, and by internal/bot's Driver, which wraps
// one; broadcast never talks to transports directly.
type Publisher interface {
	PublishRoom(roomID string, event string, data interface{}, sequenceNumber int)
	PublishSeat(roomID string, position int, event string, data interface{})
}

// Session is the mutable state a room's phase machine owns: the current
// phase name, its phaseData, the bounded change log, and the strictly
// monotonic sequence counter. Every field here is written exclusively
// through UpdatePhaseData.
type Session struct {
	RoomID         string
	Phase          string
	PhaseData      interface{}
	SequenceNumber int
	ChangeLog      []ChangeRecord

	publisher Publisher
	log       slog.Logger
}

// NewSession constructs a Session bound to a room and its publisher.
func NewSession(roomID string, publisher Publisher, log slog.Logger) *Session {
	return &Session{
		RoomID:    roomID,
		publisher: publisher,
		log:       log,
	}
}

// digest hashes the session's current PhaseData so change records can prove
// what preceded a delta without keeping a full snapshot per entry.
func (s *Session) digest() string {
	b, err := json.Marshal(s.PhaseData)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}

// UpdatePhaseData is the sole writable path into a room's state. It applies
// apply (a pure mutation of the session, typically closing over a phase
// state's handleAction logic), appends a change record, increments
// SequenceNumber, and publishes a phase_change frame to every connected
// seat — all before returning, as one indivisible unit from the room
// worker's perspective. No suspension happens inside this call beyond the
// publisher's own fan-out, which operates on already-serialized data.
func (s *Session) UpdatePhaseData(reason string, delta interface{}, apply func()) {
	priorDigest := s.digest()

	apply()

	s.SequenceNumber++
	s.ChangeLog = append(s.ChangeLog, ChangeRecord{
		SequenceNumber: s.SequenceNumber,
		Reason:         reason,
		Delta:          delta,
		PriorDigest:    priorDigest,
	})
	if len(s.ChangeLog) > changeLogCap {
		s.ChangeLog = s.ChangeLog[len(s.ChangeLog)-changeLogCap:]
	}

	s.log.Debugf("room %s: %s -> seq %d (%s)", s.RoomID, s.Phase, s.SequenceNumber, reason)

	s.publisher.PublishRoom(s.RoomID, "phase_change", PhaseChangePayload{
		Phase:          s.Phase,
		PhaseData:      s.PhaseData,
		SequenceNumber: s.SequenceNumber,
	}, s.SequenceNumber)
}

// PublishHand sends a private hand_updated frame to a single seat. It does
// not touch SequenceNumber or the change log: hand visibility is seat-local
// and not part of the room's replayable state stream.
func (s *Session) PublishHand(position int, pieces interface{}, count int) {
	s.publisher.PublishSeat(s.RoomID, position, "hand_updated", HandUpdatedPayload{
		Pieces: pieces,
		Count:  count,
	})
}

// PhaseChangePayload is the data field of a phase_change frame.
type PhaseChangePayload struct {
	Phase          string      `json:"phase"`
	PhaseData      interface{} `json:"phaseData"`
	SequenceNumber int         `json:"sequenceNumber"`
}

// HandUpdatedPayload is the data field of a hand_updated frame.
type HandUpdatedPayload struct {
	Pieces interface{} `json:"pieces"`
	Count  int         `json:"count"`
}

// ReplayFrom returns the change records with SequenceNumber > lastSeenSeq,
// or ok=false if lastSeenSeq predates the retained window and the caller
// must fall back to a full state sync instead.
func (s *Session) ReplayFrom(lastSeenSeq int) (records []ChangeRecord, ok bool) {
	if len(s.ChangeLog) == 0 {
		if lastSeenSeq == s.SequenceNumber {
			return nil, true
		}
		return nil, lastSeenSeq == 0
	}
	oldest := s.ChangeLog[0].SequenceNumber - 1
	if lastSeenSeq < oldest {
		return nil, false
	}
	var out []ChangeRecord
	for _, rec := range s.ChangeLog {
		if rec.SequenceNumber > lastSeenSeq {
			out = append(out, rec)
		}
	}
	return out, true
}

// DigestString exposes the current state digest for tests that assert
// deck-conservation and other snapshot invariants without duplicating the
// hashing logic.
func (s *Session) DigestString() string {
	return fmt.Sprintf("%s@%d:%s", s.RoomID, s.SequenceNumber, s.digest())
}
