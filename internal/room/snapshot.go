package room

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/liaptui/server/internal/actionbus"
	"github.com/liaptui/server/internal/bot"
	"github.com/liaptui/server/internal/phase"
	"github.com/liaptui/server/internal/round"
	"github.com/liaptui/server/internal/storage"
)

// snapshotBlob is the full on-disk shape of one room's restorable state:
// enough of phase.GameSession to rebuild it without replaying a single
// game event, plus the room-level fields the session itself doesn't own.
type snapshotBlob struct {
	RoomID   string `json:"roomId"`
	Name     string `json:"name"`
	IsPublic bool   `json:"isPublic"`
	Host     int    `json:"host"`
	Status   Status `json:"status"`

	Phase          phase.Name             `json:"phase"`
	PhaseData      interface{}            `json:"phaseData"`
	SequenceNumber int                    `json:"sequenceNumber"`
	Seats          [round.SeatCount]round.Seat `json:"seats"`
	Current        *round.Round           `json:"current"`
	RoundNumber    int                    `json:"roundNumber"`
	Multiplier     int                    `json:"multiplier"`
	BaseSeed       int64                  `json:"baseSeed"`
	RedealCount    int                    `json:"redealCount"`
	Starter        int                    `json:"starter"`
	WeakHands      []int                  `json:"weakHands"`
	WinningScore   int                    `json:"winningScore"`
	MaxRounds      int                    `json:"maxRounds"`
}

// snapshot serializes r's restorable state. The composition root saves it
// from its periodic snapshot sweep and once more at shutdown — a failed save
// never blocks gameplay, it only means the next process restart can't
// resume this room.
func (r *Room) snapshot() ([]byte, int, error) {
	gs := r.Session
	var seats [round.SeatCount]round.Seat
	for i, s := range gs.Seats {
		seats[i] = *s
	}
	blob := snapshotBlob{
		RoomID:         r.ID,
		Name:           r.Name,
		IsPublic:       r.IsPublic,
		Host:           r.Host,
		Status:         r.Status,
		Phase:          gs.Phase(),
		PhaseData:      gs.PhaseData,
		SequenceNumber: gs.SequenceNumber,
		Seats:          seats,
		Current:        gs.Current,
		RoundNumber:    gs.RoundNumber,
		Multiplier:     gs.Multiplier,
		BaseSeed:       gs.BaseSeed,
		RedealCount:    gs.RedealCount,
		Starter:        gs.Starter,
		WeakHands:      gs.WeakHands,
		WinningScore:   gs.WinningScore,
		MaxRounds:      gs.MaxRounds,
	}
	data, err := json.Marshal(blob)
	if err != nil {
		return nil, 0, fmt.Errorf("room: marshal snapshot for %s: %w", r.ID, err)
	}
	return data, gs.SequenceNumber, nil
}

// SaveSnapshot persists roomID's current state to repo, logging (not
// returning) a failure — persistence is optional, per spec.md §6.4.
func (m *Manager) SaveSnapshot(repo storage.SnapshotRepository, roomID string) {
	m.mu.RLock()
	r, ok := m.rooms[roomID]
	m.mu.RUnlock()
	if !ok {
		return
	}
	blob, seq, err := r.snapshot()
	if err != nil {
		m.log.Errorf("room: snapshot build failed for %s: %v", roomID, err)
		return
	}
	if err := repo.SaveSnapshot(roomID, seq, blob); err != nil {
		m.log.Errorf("room: snapshot save failed for %s: %v", roomID, err)
	}
}

// RestoreRoom rebuilds and registers a room from a previously saved
// snapshot blob, reinstating its phase directly (phase.RestoreState) rather
// than replaying the sequence of actions that produced it.
func (m *Manager) RestoreRoom(blob []byte) (*Room, error) {
	var snap snapshotBlob
	if err := json.Unmarshal(blob, &snap); err != nil {
		return nil, fmt.Errorf("room: unmarshal snapshot: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	driver := bot.NewDriver(bot.NewDefaultStrategy(), m.publisher, m.botThinkDelay, m.backend.Logger("BOT"))
	gs := phase.NewGameSession(snap.RoomID, snap.Host, snap.WinningScore, snap.MaxRounds, snap.BaseSeed, driver, m.backend.Logger("ROOM"))
	for i := range gs.Seats {
		seat := snap.Seats[i]
		gs.Seats[i] = &seat
	}
	gs.Current = snap.Current
	gs.RoundNumber = snap.RoundNumber
	gs.Multiplier = snap.Multiplier
	gs.RedealCount = snap.RedealCount
	gs.Starter = snap.Starter
	gs.WeakHands = snap.WeakHands
	gs.Session.PhaseData = snap.PhaseData
	gs.Session.SequenceNumber = snap.SequenceNumber
	phase.RestoreState(gs, snap.Phase)

	r := &Room{
		ID:        snap.RoomID,
		Name:      snap.Name,
		IsPublic:  snap.IsPublic,
		Host:      snap.Host,
		Status:    snap.Status,
		CreatedAt: time.Now(),
		Session:   gs,
		Bot:       driver,
	}
	r.Bus = actionbus.New(gs, 64, m.backend.Logger("BUS"))
	driver.BindSession(gs)
	driver.BindBus(r.Bus)
	r.Bus.Start()

	for i, seat := range gs.Seats {
		if seat.Name != "" {
			r.joinOrder = append(r.joinOrder, i)
		}
	}
	m.rooms[snap.RoomID] = r
	m.publishLobbyLocked()
	return r, nil
}
