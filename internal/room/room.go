// Package room implements the Room manager (C8): room lifecycle (create,
// join, leave, host transfer, close), the lobby index, and the
// host-only slot-mutation rules. It owns each room's phase.GameSession and
// actionbus.Bus; nothing outside this package is allowed to write a room's
// game state directly (spec §5's ownership rule), mirroring the teacher's
// Server owning CreateTable/JoinTable/LeaveTable over its table map.
package room

import (
	"time"

	"github.com/liaptui/server/internal/actionbus"
	"github.com/liaptui/server/internal/bot"
	"github.com/liaptui/server/internal/phase"
)

// Status is a room's lifecycle state, distinct from its game session's
// phase.
type Status string

const (
	StatusWaiting   Status = "WAITING"
	StatusPlaying   Status = "PLAYING"
	StatusFinished  Status = "FINISHED"
	StatusAbandoned Status = "ABANDONED"
)

const MaxPlayersPerRoom = 4

// Room is one table: its code, its public name, who hosts it, its
// lifecycle status, and the game session + action bus that actually run
// the game. The Room manager is the only thing that mutates Status; all
// game-state mutation flows through Session via Bus.
type Room struct {
	ID        string
	Name      string
	IsPublic  bool
	Host      int
	Status    Status
	CreatedAt time.Time

	Session *phase.GameSession
	Bus     *actionbus.Bus
	Bot     *bot.Driver

	joinOrder []int // positions in the order their current occupant joined, for host-transfer precedence
}

// Summary is the lobby's public projection of a room.
type Summary struct {
	RoomID     string    `json:"roomId"`
	Host       string    `json:"host"`
	Occupancy  int       `json:"occupancy"`
	MaxPlayers int       `json:"maxPlayers"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Occupancy counts non-empty seats.
func (r *Room) Occupancy() int {
	n := 0
	for _, s := range r.Session.Seats {
		if s.Name != "" {
			n++
		}
	}
	return n
}

// HumanCount counts seats held by a connected human (not bot-controlled).
func (r *Room) HumanCount() int {
	n := 0
	for _, s := range r.Session.Seats {
		if s.Name != "" && !s.IsBot {
			n++
		}
	}
	return n
}

// Summary projects this room for the lobby index.
func (r *Room) Summary() Summary {
	hostName := ""
	if r.Session.Seats[r.Host].Name != "" {
		hostName = r.Session.Seats[r.Host].Name
	}
	return Summary{
		RoomID:     r.ID,
		Host:       hostName,
		Occupancy:  r.Occupancy(),
		MaxPlayers: MaxPlayersPerRoom,
		CreatedAt:  r.CreatedAt,
	}
}

