package phase

import (
	"testing"

	"github.com/liaptui/server/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinRoomAssignsLowestEmptySeat(t *testing.T) {
	gs := NewGameSession("room-1", 0, 50, 20, 0, &recordingPublisher{}, testLogger())
	gs.Seats[0].Name = "Alice"
	gs.Seats[2].Name = "Carol"

	res := gs.Dispatch(Action{Kind: wire.EventJoinRoom, PlayerName: "Bob"})
	require.True(t, res.OK)
	assert.Equal(t, 1, res.Room.Position)
	assert.Equal(t, "Bob", gs.Seats[1].Name)
}

func TestJoinRoomRejectsDuplicateName(t *testing.T) {
	gs := NewGameSession("room-1", 0, 50, 20, 0, &recordingPublisher{}, testLogger())
	gs.Seats[0].Name = "Alice"

	res := gs.Dispatch(Action{Kind: wire.EventJoinRoom, PlayerName: "Alice"})
	assert.False(t, res.OK)
	assert.Equal(t, wire.ErrAlreadyInRoom, res.Err.Code)
}

func TestJoinRoomRejectsWhenFull(t *testing.T) {
	gs := newTestSession(t)
	res := gs.Dispatch(Action{Kind: wire.EventJoinRoom, PlayerName: "Eve"})
	assert.False(t, res.OK)
	assert.Equal(t, wire.ErrRoomFull, res.Err.Code)
}

func TestLeaveRoomEmptiesSeatBeforeGameStarts(t *testing.T) {
	gs := newTestSession(t)
	res := gs.Dispatch(Action{Position: 1, Kind: wire.EventLeaveRoom, JoinOrder: []int{0, 1, 2, 3}})
	require.True(t, res.OK)
	assert.Equal(t, "", gs.Seats[1].Name)
	assert.False(t, res.Room.Closed)
	assert.Equal(t, -1, res.Room.NewHost, "only seat 0 (the host) left; no transfer expected")
}

func TestLeaveRoomHandsSeatToBotMidGame(t *testing.T) {
	gs := newTestSession(t)
	RestoreState(gs, Declaration)

	res := gs.Dispatch(Action{Position: 1, Kind: wire.EventLeaveRoom, JoinOrder: []int{0, 1, 2, 3}})
	require.True(t, res.OK)
	assert.Equal(t, "Bob", gs.Seats[1].Name, "mid-game leave hands the seat to a bot instead of vacating it")
	assert.True(t, gs.Seats[1].IsBot)
	assert.False(t, res.Room.Vacated)
}

func TestLeaveRoomTransfersHostToEarliestJoinedRemainingHuman(t *testing.T) {
	gs := newTestSession(t)
	res := gs.Dispatch(Action{Position: 0, Kind: wire.EventLeaveRoom, JoinOrder: []int{0, 1, 2, 3}})
	require.True(t, res.OK)
	assert.Equal(t, 1, res.Room.NewHost)
	assert.Equal(t, "Bob", res.Room.NewHostName)
	assert.Equal(t, 1, gs.Host)
}

func TestLeaveRoomReportsClosedWhenNoHumansRemain(t *testing.T) {
	gs := NewGameSession("room-1", 0, 50, 20, 0, &recordingPublisher{}, testLogger())
	gs.Seats[0].Name = "Alice"

	res := gs.Dispatch(Action{Position: 0, Kind: wire.EventLeaveRoom, JoinOrder: []int{0}})
	require.True(t, res.OK)
	assert.True(t, res.Room.Closed)
}

func TestAddBotFillsEmptySeat(t *testing.T) {
	gs := NewGameSession("room-1", 0, 50, 20, 0, &recordingPublisher{}, testLogger())
	gs.Seats[0].Name = "Alice"

	res := gs.Dispatch(Action{Position: 0, Kind: wire.EventAddBot, TargetPosition: 1})
	require.True(t, res.OK)
	assert.Equal(t, "Bot-1", gs.Seats[1].Name)
	assert.True(t, gs.Seats[1].IsBot)
	assert.True(t, gs.Seats[1].IsOriginalBot)
}

func TestAddBotRejectsOccupiedSeat(t *testing.T) {
	gs := newTestSession(t)
	res := gs.Dispatch(Action{Position: 0, Kind: wire.EventAddBot, TargetPosition: 1})
	assert.False(t, res.OK)
}

func TestRemoveBotVacatesSeat(t *testing.T) {
	gs := newTestSession(t)
	gs.Dispatch(Action{Position: 0, Kind: wire.EventAddBot, TargetPosition: 1})

	res := gs.Dispatch(Action{Position: 0, Kind: wire.EventRemoveBot, TargetPosition: 1})
	require.True(t, res.OK)
	assert.Equal(t, "", gs.Seats[1].Name)
	assert.False(t, gs.Seats[1].IsBot)
}

func TestRemoveBotRejectsNonBotSeat(t *testing.T) {
	gs := newTestSession(t)
	res := gs.Dispatch(Action{Position: 0, Kind: wire.EventRemoveBot, TargetPosition: 1})
	assert.False(t, res.OK)
}

func TestMarkDisconnectedThenReconnectRoundTrips(t *testing.T) {
	gs := newTestSession(t)

	res := gs.Dispatch(Action{Position: 2, Kind: ActionMarkDisconnected})
	require.True(t, res.OK)
	assert.True(t, gs.Seats[2].IsBot)

	res = gs.Dispatch(Action{Position: 2, Kind: ActionReconnect})
	require.True(t, res.OK)
	assert.False(t, gs.Seats[2].IsBot)
}

func TestReconnectLeavesOriginalBotSeatAlone(t *testing.T) {
	gs := NewGameSession("room-1", 0, 50, 20, 0, &recordingPublisher{}, testLogger())
	gs.Seats[0].Name = "Alice"
	gs.Dispatch(Action{Position: 0, Kind: wire.EventAddBot, TargetPosition: 1})

	res := gs.Dispatch(Action{Position: 1, Kind: ActionReconnect})
	require.True(t, res.OK)
	assert.True(t, gs.Seats[1].IsBot, "an add_bot seat stays bot-controlled across a reconnect")
}

func TestRoomActionsBypassPhaseGating(t *testing.T) {
	gs := newTestSession(t)
	gs.Dispatch(Action{Position: 0, Kind: wire.EventStartGame})
	require.NotEqual(t, Waiting, gs.Phase())

	res := gs.Dispatch(Action{Position: 2, Kind: ActionMarkDisconnected})
	assert.True(t, res.OK, "room-management actions must run regardless of the active phase's Accepts gate")
}
