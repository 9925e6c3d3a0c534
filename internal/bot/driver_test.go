package bot

import (
	"io"
	"testing"
	"time"

	"github.com/decred/slog"
	"github.com/liaptui/server/internal/phase"
	"github.com/liaptui/server/internal/piece"
	"github.com/liaptui/server/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() slog.Logger {
	backend := slog.NewBackend(io.Discard)
	return backend.Logger("TEST")
}

type fakeInnerPublisher struct {
	events []string
}

func (f *fakeInnerPublisher) PublishRoom(roomID, event string, data interface{}, seq int) {
	f.events = append(f.events, event)
}
func (f *fakeInnerPublisher) PublishSeat(roomID string, position int, event string, data interface{}) {
}

type fakeBus struct {
	submitted chan phase.Action
}

func newFakeBus() *fakeBus {
	return &fakeBus{submitted: make(chan phase.Action, 8)}
}

func (b *fakeBus) Submit(a phase.Action, turnNumber int) phase.ActionResult {
	b.submitted <- a
	return phase.ActionResult{OK: true}
}

// newReadySession dispatches start_game and declines every real weak hand
// the seeded deck produces (exactly the pattern internal/phase's own tests
// use), driving the session to DECLARATION deterministically regardless of
// how many redeal rounds the actual deal triggers. The first declarer there
// is always position 0: CurrentLeader starts at gs.Starter (0), and nothing
// before round-scoring ever changes it.
func newReadySession(t *testing.T, thinkDelay time.Duration) (*phase.GameSession, *Driver, *fakeBus, *fakeInnerPublisher) {
	t.Helper()
	inner := &fakeInnerPublisher{}
	driver := NewDriver(NewDefaultStrategy(), inner, [2]time.Duration{thinkDelay, thinkDelay}, testLogger())
	gs := phase.NewGameSession("room-1", 0, 50, 20, 0, driver, testLogger())
	driver.BindSession(gs)
	bus := newFakeBus()
	driver.BindBus(bus)

	names := []string{"Alice", "Bob", "Carol", "Dave"}
	for i, n := range names {
		gs.Seats[i].Name = n
	}

	res := gs.Dispatch(phase.Action{Position: 0, Kind: wire.EventStartGame})
	require.True(t, res.OK)

	for gs.Phase() == phase.Preparation {
		for _, pos := range gs.WeakHands {
			if _, decided := gs.RedealDecisions[pos]; !decided {
				gs.Dispatch(phase.Action{Position: pos, Kind: wire.EventDeclineRedeal})
			}
		}
	}
	require.Equal(t, phase.Declaration, gs.Phase())
	return gs, driver, bus, inner
}

func TestDriverDoesNotActForHumanSeats(t *testing.T) {
	gs, driver, bus, _ := newReadySession(t, time.Millisecond)

	driver.PublishRoom(gs.RoomID, wire.EventPhaseChange, nil, gs.SequenceNumber)

	select {
	case a := <-bus.submitted:
		t.Fatalf("driver should not act for a human-held seat, got %+v", a)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDriverSchedulesDeclareForBotSeat(t *testing.T) {
	gs, driver, bus, _ := newReadySession(t, time.Millisecond)

	gs.Seats[0].IsBot = true
	gs.Seats[0].Hand = []piece.Piece{
		{ID: "g-r", Rank: piece.General, Color: piece.Red, Point: 14},
		{ID: "s-r", Rank: piece.Soldier, Color: piece.Red, Point: 1},
	}

	driver.PublishRoom(gs.RoomID, wire.EventPhaseChange, nil, gs.SequenceNumber)

	select {
	case a := <-bus.submitted:
		assert.Equal(t, 0, a.Position)
		assert.Equal(t, wire.EventDeclare, a.Kind)
		assert.Equal(t, 1, a.Value, "one strong piece (General) should estimate one capture")
	case <-time.After(time.Second):
		t.Fatal("driver did not submit a declare action")
	}
}

func TestDriverDedupesPendingDecisionForSameSeat(t *testing.T) {
	gs, driver, bus, _ := newReadySession(t, 100*time.Millisecond)

	gs.Seats[0].IsBot = true
	gs.Seats[0].Hand = []piece.Piece{{ID: "s1", Rank: piece.Soldier, Color: piece.Red, Point: 1}}

	driver.PublishRoom(gs.RoomID, wire.EventPhaseChange, nil, gs.SequenceNumber)
	driver.PublishRoom(gs.RoomID, wire.EventPhaseChange, nil, gs.SequenceNumber)

	<-bus.submitted
	select {
	case a := <-bus.submitted:
		t.Fatalf("a second notification before the first decision fires should not schedule a duplicate, got %+v", a)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestCancelPendingStopsAScheduledDecision(t *testing.T) {
	gs, driver, bus, _ := newReadySession(t, 200*time.Millisecond)

	gs.Seats[0].IsBot = true
	gs.Seats[0].Hand = []piece.Piece{{ID: "s1", Rank: piece.Soldier, Color: piece.Red, Point: 1}}

	driver.PublishRoom(gs.RoomID, wire.EventPhaseChange, nil, gs.SequenceNumber)
	driver.CancelPending(0)

	select {
	case a := <-bus.submitted:
		t.Fatalf("cancelled decision should never submit, got %+v", a)
	case <-time.After(350 * time.Millisecond):
	}
}

func TestDriverStopCancelsAllPending(t *testing.T) {
	gs, driver, bus, _ := newReadySession(t, 200*time.Millisecond)

	gs.Seats[0].IsBot = true
	gs.Seats[0].Hand = []piece.Piece{{ID: "s1", Rank: piece.Soldier, Color: piece.Red, Point: 1}}

	driver.PublishRoom(gs.RoomID, wire.EventPhaseChange, nil, gs.SequenceNumber)
	driver.Stop()

	select {
	case a := <-bus.submitted:
		t.Fatalf("decision pending at Stop() should never submit, got %+v", a)
	case <-time.After(350 * time.Millisecond):
	}
}
