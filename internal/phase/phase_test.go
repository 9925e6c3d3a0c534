package phase

import (
	"io"
	"testing"

	"github.com/decred/slog"
	"github.com/liaptui/server/internal/round"
	"github.com/liaptui/server/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	roomEvents []string
}

func (r *recordingPublisher) PublishRoom(roomID, event string, data interface{}, seq int) {
	r.roomEvents = append(r.roomEvents, event)
}
func (r *recordingPublisher) PublishSeat(roomID string, position int, event string, data interface{}) {
}

func testLogger() slog.Logger {
	backend := slog.NewBackend(io.Discard)
	return backend.Logger("TEST")
}

func newTestSession(t *testing.T) *GameSession {
	t.Helper()
	gs := NewGameSession("room-1", 0, 50, 20, 0, &recordingPublisher{}, testLogger())
	names := []string{"Alice", "Bob", "Carol", "David"}
	for i, n := range names {
		gs.Seats[i].Name = n
	}
	return gs
}

func TestWaitingRequiresAllSeatsOccupied(t *testing.T) {
	gs := NewGameSession("room-1", 0, 50, 20, 0, &recordingPublisher{}, testLogger())
	gs.Seats[0].Name = "Alice"
	res := gs.Dispatch(Action{Position: 0, Kind: wire.EventStartGame})
	assert.False(t, res.OK)
	assert.Equal(t, Waiting, gs.Phase())
}

func TestWaitingOnlyHostMayStart(t *testing.T) {
	gs := newTestSession(t)
	res := gs.Dispatch(Action{Position: 1, Kind: wire.EventStartGame})
	assert.False(t, res.OK)
}

func TestStartGameEntersPreparationOrDeclaration(t *testing.T) {
	gs := newTestSession(t)
	res := gs.Dispatch(Action{Position: 0, Kind: wire.EventStartGame})
	require.True(t, res.OK)
	assert.Contains(t, []Name{Preparation, Declaration}, gs.Phase())
	assert.Equal(t, 1, gs.RoundNumber)
}

func TestOutOfPhaseActionRejected(t *testing.T) {
	gs := newTestSession(t)
	res := gs.Dispatch(Action{Position: 0, Kind: wire.EventDeclare, Value: 2})
	assert.False(t, res.OK)
	assert.Equal(t, wire.ErrOutOfPhase, res.Err.Code)
}

func TestDeclarationSumCannotEqualEight(t *testing.T) {
	gs := newTestSession(t)
	gs.Dispatch(Action{Position: 0, Kind: wire.EventStartGame})

	// Force past PREPARATION if any weak hands were dealt, by auto-declining.
	for gs.Phase() == Preparation {
		for _, pos := range gs.WeakHands {
			if _, decided := gs.RedealDecisions[pos]; !decided {
				gs.Dispatch(Action{Position: pos, Kind: wire.EventDeclineRedeal})
			}
		}
	}
	require.Equal(t, Declaration, gs.Phase())

	order := OrderFrom(gs.Current.CurrentLeader)
	res1 := gs.Dispatch(Action{Position: order[0], Kind: wire.EventDeclare, Value: 3})
	require.True(t, res1.OK)
	res2 := gs.Dispatch(Action{Position: order[1], Kind: wire.EventDeclare, Value: 2})
	require.True(t, res2.OK)
	res3 := gs.Dispatch(Action{Position: order[2], Kind: wire.EventDeclare, Value: 2})
	require.True(t, res3.OK)

	// Sum so far is 7; a last declaration of 1 would make 8 and must be rejected.
	bad := gs.Dispatch(Action{Position: order[3], Kind: wire.EventDeclare, Value: 1})
	assert.False(t, bad.OK)
	assert.Equal(t, wire.ErrInvalidDeclaration, bad.Err.Code)

	good := gs.Dispatch(Action{Position: order[3], Kind: wire.EventDeclare, Value: 0})
	assert.True(t, good.OK)
	assert.Equal(t, Turn, gs.Phase())
}

func TestNotYourTurnRejected(t *testing.T) {
	gs := newTestSession(t)
	gs.Dispatch(Action{Position: 0, Kind: wire.EventStartGame})
	for gs.Phase() == Preparation {
		for _, pos := range gs.WeakHands {
			if _, decided := gs.RedealDecisions[pos]; !decided {
				gs.Dispatch(Action{Position: pos, Kind: wire.EventDeclineRedeal})
			}
		}
	}
	order := OrderFrom(gs.Current.CurrentLeader)
	wrongPosition := order[1]
	res := gs.Dispatch(Action{Position: wrongPosition, Kind: wire.EventDeclare, Value: 2})
	assert.False(t, res.OK)
	assert.Equal(t, wire.ErrNotYourTurn, res.Err.Code)
}

func TestSequenceNumberStrictlyIncreasesAcrossActions(t *testing.T) {
	gs := newTestSession(t)
	prev := gs.SequenceNumber
	gs.Dispatch(Action{Position: 0, Kind: wire.EventStartGame})
	assert.Greater(t, gs.SequenceNumber, prev)
}

func TestScoringResetsMultiplierForNextRound(t *testing.T) {
	gs := newTestSession(t)
	var err error
	gs.Current, err = round.NewRound(1, 1, gs.Seats, 0, 0)
	require.NoError(t, err)
	gs.Multiplier = 2 // simulate an accepted redeal having doubled this round's stake
	gs.RoundNumber = 1

	scoringState{}.OnEnter(gs)

	// Round 2's deal (seed 2000) gives no seat a weak hand, so PREPARATION
	// passes straight through to DECLARATION.
	require.Equal(t, Declaration, gs.Phase())
	assert.Equal(t, 1, gs.Multiplier, "multiplier must reset to 1 for the next round")
	assert.Equal(t, 0, gs.RedealCount)
	assert.Equal(t, 2, gs.RoundNumber)
}
