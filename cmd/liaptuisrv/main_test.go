package main

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/decred/slog"
	"github.com/liaptui/server/internal/config"
	"github.com/liaptui/server/internal/connreg"
	"github.com/liaptui/server/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevelMapsEveryRecognizedName(t *testing.T) {
	cases := map[string]slog.Level{
		"trace": slog.LevelTrace,
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for name, want := range cases {
		assert.Equal(t, want, parseLevel(name))
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, parseLevel("nonsense"))
}

func TestOpenRepositoryDefaultsToNoopWhenDBPathEmpty(t *testing.T) {
	repo, err := openRepository("")
	require.NoError(t, err)
	_, ok := repo.(storage.NoopRepository)
	assert.True(t, ok)
}

func TestOpenRepositoryOpensSQLiteWhenDBPathSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")
	repo, err := openRepository(path)
	require.NoError(t, err)
	defer repo.Close()
	_, ok := repo.(*storage.SQLiteRepository)
	assert.True(t, ok)
}

func testBackend() *slog.Backend {
	return slog.NewBackend(io.Discard)
}

func TestNewRouterWiresRoomManagerBackIntoItself(t *testing.T) {
	cfg := config.Config{MaxRooms: 4, MaxPlayersPerRoom: 4, WinningScore: 50, MaxRounds: 20, BotThinkDelayMsRange: [2]int{1, 1}}
	registry := connreg.New()
	rt := newRouter(cfg, registry, storage.NoopRepository{}, testBackend())
	require.NotNil(t, rt.Rooms())

	r, err := rt.Rooms().CreateRoom("Table 1", "Alice", true)
	require.NoError(t, err)
	assert.Equal(t, "Alice", r.Session.Seats[0].Name)
}

func TestRestoreRoomsReloadsEverySavedSnapshot(t *testing.T) {
	registry := connreg.New()
	backend := testBackend()
	cfg := config.Config{MaxRooms: 4, MaxPlayersPerRoom: 4, WinningScore: 50, MaxRounds: 20, BotThinkDelayMsRange: [2]int{1, 1}}
	rt := newRouter(cfg, registry, storage.NoopRepository{}, backend)
	r, err := rt.Rooms().CreateRoom("Table 1", "Alice", true)
	require.NoError(t, err)

	repo := &memRepository{}
	rt.Rooms().SaveSnapshot(repo, r.ID)

	rt2 := newRouter(cfg, connreg.New(), storage.NoopRepository{}, backend)
	var buf bytes.Buffer
	log := slog.NewBackend(&buf).Logger("TEST")
	require.NoError(t, restoreRooms(rt2.Rooms(), repo, log))

	restored, ok := rt2.Rooms().Get(r.ID)
	require.True(t, ok)
	assert.Equal(t, "Alice", restored.Session.Seats[0].Name)
}

func TestFlushSnapshotsSavesEveryActiveRoom(t *testing.T) {
	registry := connreg.New()
	cfg := config.Config{MaxRooms: 4, MaxPlayersPerRoom: 4, WinningScore: 50, MaxRounds: 20, BotThinkDelayMsRange: [2]int{1, 1}}
	rt := newRouter(cfg, registry, storage.NoopRepository{}, testBackend())
	r, err := rt.Rooms().CreateRoom("Table 1", "Alice", true)
	require.NoError(t, err)

	repo := &memRepository{}
	var buf bytes.Buffer
	log := slog.NewBackend(&buf).Logger("TEST")
	flushSnapshots(rt.Rooms(), repo, log)

	_, _, ok, err := repo.LoadSnapshot(r.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

// memRepository is a minimal in-memory storage.SnapshotRepository, mirroring
// internal/room's own test stand-in, so this package's tests don't need a
// filesystem for the save/reload round trip.
type memRepository struct {
	snapshots map[string][]byte
	seqs      map[string]int
}

func (r *memRepository) SaveSnapshot(roomID string, sequenceNumber int, blob []byte) error {
	if r.snapshots == nil {
		r.snapshots = map[string][]byte{}
		r.seqs = map[string]int{}
	}
	r.snapshots[roomID] = blob
	r.seqs[roomID] = sequenceNumber
	return nil
}

func (r *memRepository) LoadSnapshot(roomID string) ([]byte, int, bool, error) {
	blob, ok := r.snapshots[roomID]
	return blob, r.seqs[roomID], ok, nil
}

func (r *memRepository) AppendEvent(string, int, []byte) error { return nil }
func (r *memRepository) DeleteSnapshot(roomID string) error {
	delete(r.snapshots, roomID)
	delete(r.seqs, roomID)
	return nil
}
func (r *memRepository) RoomIDs() ([]string, error) {
	ids := make([]string, 0, len(r.snapshots))
	for id := range r.snapshots {
		ids = append(ids, id)
	}
	return ids, nil
}
func (r *memRepository) Close() error { return nil }
