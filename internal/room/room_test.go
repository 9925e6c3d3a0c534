package room

import (
	"io"
	"math/rand"
	"testing"

	"github.com/decred/slog"
	"github.com/liaptui/server/internal/broadcast"
	"github.com/liaptui/server/internal/phase"
	"github.com/stretchr/testify/assert"
)

func newTestRoom(t *testing.T) *Room {
	t.Helper()
	backend := slog.NewBackend(io.Discard)
	session := phase.NewGameSession("ROOM01", 0, 50, 20, 0, &fakePublisher{}, backend.Logger("TEST"))
	return &Room{
		ID:      "ROOM01",
		Name:    "Table 1",
		Host:    0,
		Status:  StatusWaiting,
		Session: session,
	}
}

var _ broadcast.Publisher = (*fakePublisher)(nil)

func TestOccupancyAndHumanCountDistinguishBots(t *testing.T) {
	r := newTestRoom(t)
	r.Session.Seats[0].Name = "Alice"
	r.Session.Seats[1].Name = "Bot-1"
	r.Session.Seats[1].IsBot = true

	assert.Equal(t, 2, r.Occupancy())
	assert.Equal(t, 1, r.HumanCount())
}

func TestSummaryReflectsHostAndOccupancy(t *testing.T) {
	r := newTestRoom(t)
	r.Session.Seats[0].Name = "Alice"
	r.Session.Seats[1].Name = "Bob"

	s := r.Summary()
	assert.Equal(t, "ROOM01", s.RoomID)
	assert.Equal(t, "Alice", s.Host)
	assert.Equal(t, 2, s.Occupancy)
	assert.Equal(t, MaxPlayersPerRoom, s.MaxPlayers)
}

func TestGenerateCodeProducesExpectedLength(t *testing.T) {
	rng := rand.New(rand.NewSource(0))
	code := generateCode(rng)
	assert.Len(t, code, codeLength)
	for _, c := range code {
		assert.Contains(t, codeAlphabet, string(c))
	}
}
