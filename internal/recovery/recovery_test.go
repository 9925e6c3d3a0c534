package recovery

import (
	"io"
	"testing"

	"github.com/decred/slog"
	"github.com/liaptui/server/internal/connreg"
	"github.com/liaptui/server/internal/phase"
	"github.com/liaptui/server/internal/room"
	"github.com/liaptui/server/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct{}

func (f *fakePublisher) PublishRoom(roomID, event string, data interface{}, seq int) {}
func (f *fakePublisher) PublishSeat(roomID string, position int, event string, data interface{}) {
}
func (f *fakePublisher) PublishLobby(rooms []room.Summary) {}

func testLogger() slog.Logger {
	return slog.NewBackend(io.Discard).Logger("TEST")
}

func newTestService(t *testing.T) (*Service, *room.Manager, *room.Room) {
	t.Helper()
	pub := &fakePublisher{}
	manager := room.NewManager(room.Config{MaxRooms: 4, WinningScore: 50, MaxRounds: 20, Seed: 0}, pub, pub, slog.NewBackend(io.Discard))
	r, err := manager.CreateRoom("Table 1", "Alice", true)
	require.NoError(t, err)
	_, err = manager.JoinRoom(r.ID, "Bob")
	require.NoError(t, err)

	registry := connreg.New()
	svc := New(manager, registry, testLogger())
	return svc, manager, r
}

func TestReconnectWithCurrentSeqReturnsEmptyReplay(t *testing.T) {
	svc, manager, r := newTestService(t)
	require.NoError(t, manager.MarkDisconnected(r.ID, 1))

	out, wErr := svc.Reconnect(wire.SessionToken{RoomID: r.ID, Name: "Bob", LastSeenSeq: 0}, connreg.ConnID("conn-1"))
	require.Nil(t, wErr)
	assert.Equal(t, 1, out.Position)
	assert.False(t, out.IsHost)
	assert.Nil(t, out.SyncFrame.FullState)
	assert.Empty(t, out.SyncFrame.MissedEvents)
	assert.Equal(t, 0, out.SyncFrame.CurrentSequence)

	assert.False(t, r.Session.Seats[1].IsBot)
}

func TestReconnectBindsConnectionInRegistry(t *testing.T) {
	svc, manager, r := newTestService(t)
	require.NoError(t, manager.MarkDisconnected(r.ID, 1))

	registry := connreg.New()
	svc2 := New(manager, registry, testLogger())
	_, wErr := svc2.Reconnect(wire.SessionToken{RoomID: r.ID, Name: "Bob", LastSeenSeq: 0}, connreg.ConnID("conn-1"))
	require.Nil(t, wErr)

	entry, ok := registry.LookupByConnection(connreg.ConnID("conn-1"))
	require.True(t, ok)
	assert.Equal(t, r.ID, entry.RoomID)
	assert.Equal(t, 1, entry.Position)
	assert.Equal(t, 0, entry.LastSeenSeq)
}

func TestReconnectWithStaleSeqFallsBackToFullState(t *testing.T) {
	svc, manager, r := newTestService(t)
	require.NoError(t, manager.MarkDisconnected(r.ID, 1))

	out, wErr := svc.Reconnect(wire.SessionToken{RoomID: r.ID, Name: "Bob", LastSeenSeq: 7}, connreg.ConnID("conn-1"))
	require.Nil(t, wErr)
	require.NotNil(t, out.SyncFrame.FullState)
	assert.Empty(t, out.SyncFrame.MissedEvents)
	assert.Equal(t, string(r.Session.Phase()), out.SyncFrame.FullState.Phase)
	assert.Equal(t, r.Session.Seats[1].Hand, out.SyncFrame.FullState.Hand)
}

func TestReconnectReplaysMissedChangeRecords(t *testing.T) {
	svc, manager, r := newTestService(t)
	require.NoError(t, manager.MarkDisconnected(r.ID, 1))

	// Fill the two remaining seats and kick off a real round so the change
	// log actually advances past 0 before Bob reconnects.
	_, err := manager.JoinRoom(r.ID, "Carol")
	require.NoError(t, err)
	_, err = manager.JoinRoom(r.ID, "Dave")
	require.NoError(t, err)

	res := r.Bus.Submit(phase.Action{Position: 0, Kind: wire.EventStartGame}, 0)
	require.True(t, res.OK)

	out, wErr := svc.Reconnect(wire.SessionToken{RoomID: r.ID, Name: "Bob", LastSeenSeq: 0}, connreg.ConnID("conn-1"))
	require.Nil(t, wErr)
	assert.Greater(t, out.SyncFrame.CurrentSequence, 0)
	assert.NotEmpty(t, out.SyncFrame.MissedEvents)
	assert.Nil(t, out.SyncFrame.FullState)
}

func TestReconnectRejectsUnknownRoom(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, wErr := svc.Reconnect(wire.SessionToken{RoomID: "NOPE", Name: "Bob"}, connreg.ConnID("conn-1"))
	require.NotNil(t, wErr)
	assert.Equal(t, wire.ErrRoomNotFound, wErr.Code)
}

func TestReconnectRejectsUnknownSeatName(t *testing.T) {
	svc, _, r := newTestService(t)
	_, wErr := svc.Reconnect(wire.SessionToken{RoomID: r.ID, Name: "Nobody"}, connreg.ConnID("conn-1"))
	require.NotNil(t, wErr)
	assert.Equal(t, wire.ErrAuthFailed, wErr.Code)
}

func TestReconnectLeavesOriginalBotSeatBotControlled(t *testing.T) {
	svc, manager, r := newTestService(t)
	require.NoError(t, manager.AddBot(r.ID, 0, 2))

	_, wErr := svc.Reconnect(wire.SessionToken{RoomID: r.ID, Name: "Bot-2"}, connreg.ConnID("conn-1"))
	require.Nil(t, wErr)
	assert.True(t, r.Session.Seats[2].IsBot)
}

func TestDisconnectDetachesAndMarksSeatDisconnected(t *testing.T) {
	svc, manager, r := newTestService(t)

	registry := connreg.New()
	svc2 := New(manager, registry, testLogger())
	registry.Attach(connreg.ConnID("conn-1"), r.ID, 1)

	err := svc2.Disconnect(connreg.Entry{ConnID: connreg.ConnID("conn-1"), RoomID: r.ID, Position: 1})
	require.NoError(t, err)

	assert.True(t, r.Session.Seats[1].IsBot)
	_, ok := registry.LookupByConnection(connreg.ConnID("conn-1"))
	assert.False(t, ok)
}
